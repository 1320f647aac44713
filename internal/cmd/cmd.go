package cmd

import (
	"errors"
	"github.com/clambin/go-common/charmer"
	"github.com/clambin/smarterzones/internal/cmd/eval"
	"github.com/clambin/smarterzones/internal/cmd/run"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log/slog"
	"os"
)

var (
	configFilename string
	RootCmd        = cobra.Command{
		Use:   "smarterzones",
		Short: "Controls the zones of a ducted air conditioner",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			charmer.SetJSONLogger(cmd, viper.GetBool("debug"))
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	RootCmd.PersistentFlags().Bool("debug", false, "Log debug messages")
	_ = viper.BindPFlag("debug", RootCmd.PersistentFlags().Lookup("debug"))

	RootCmd.AddCommand(&run.Cmd, &eval.Cmd)
}

var args = charmer.Arguments{
	"debug":                           charmer.Argument{Default: false, Help: "Log debug messages"},
	"zones":                           charmer.Argument{Default: "", Help: "Zones file (default: zones.yaml in the configuration file's directory)"},
	"mqtt.broker":                     charmer.Argument{Default: "tcp://localhost:1883", Help: "MQTT broker"},
	"mqtt.clientID":                   charmer.Argument{Default: "smarterzones", Help: "MQTT client ID"},
	"mqtt.statestream":                charmer.Argument{Default: "homeassistant/statestream", Help: "Base topic of Home Assistant's mqtt_statestream"},
	"mqtt.commands":                   charmer.Argument{Default: "smarterzones/command", Help: "Base topic for commands"},
	"exporter.addr":                   charmer.Argument{Default: ":9090", Help: "Address of Prometheus exporter"},
	"health.addr":                     charmer.Argument{Default: ":8080", Help: "Address of /health endpoint"},
	"slack.token":                     charmer.Argument{Default: "", Help: "Slack token"},
	"controller.commonZoneRefinement": charmer.Argument{Default: false, Help: "Keep the common zone open while it needs conditioning"},
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/smarterzones/")
		viper.AddConfigPath("$HOME/.smarterzones")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	if err := charmer.SetDefaults(viper.GetViper(), args); err != nil {
		panic("failed to set viper defaults: " + err.Error())
	}

	viper.SetEnvPrefix("SMARTERZONES")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// without a config file, smarterzones runs on defaults & environment variables
		var notFound viper.ConfigFileNotFoundError
		if configFilename != "" || !errors.As(err, &notFound) {
			slog.Error("failed to read config file", "err", err)
			os.Exit(1)
		}
	}
}
