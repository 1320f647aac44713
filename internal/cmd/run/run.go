package run

import (
	"context"
	"fmt"
	"github.com/clambin/go-common/taskmanager"
	"github.com/clambin/go-common/taskmanager/httpserver"
	promserver "github.com/clambin/go-common/taskmanager/prometheus"
	"github.com/clambin/smarterzones/internal/collector"
	"github.com/clambin/smarterzones/internal/configuration"
	"github.com/clambin/smarterzones/internal/controller"
	"github.com/clambin/smarterzones/internal/controller/notifier"
	"github.com/clambin/smarterzones/internal/health"
	"github.com/clambin/smarterzones/internal/host"
	"github.com/clambin/smarterzones/internal/host/statestream"
	"github.com/clambin/smarterzones/internal/registry"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

var Cmd = cobra.Command{
	Use:   "run",
	Short: "Control the zones",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return Run(ctx, viper.GetViper(), cmd.Root().Version, slog.Default())
	},
}

// Run connects to the MQTT broker and controls the zones until the context is canceled.
func Run(ctx context.Context, v *viper.Viper, version string, logger *slog.Logger) error {
	logger.Info("smarterzones starting", "version", version)
	defer logger.Info("smarterzones stopped")

	r, err := loadRegistry(v, logger.With("component", "registry"))
	if err != nil {
		return err
	}

	// the OnConnect handler restores the subscriptions after a reconnect. It's set before the client exists.
	var h *statestream.Host
	opts := mqtt.NewClientOptions().
		AddBroker(v.GetString("mqtt.broker")).
		SetClientID(v.GetString("mqtt.clientID")).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(c mqtt.Client) { h.OnConnect(c) }).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", "err", err)
		})
	client := mqtt.NewClient(opts)
	h = statestream.New(client, v.GetString("mqtt.statestream"), v.GetString("mqtt.commands"), logger.With("component", "statestream"))

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt: %w", token.Error())
	}
	defer client.Disconnect(250)

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range makeTasks(v, h, r, prometheus.DefaultRegisterer, logger) {
		g.Go(func() error { return t.Run(ctx) })
	}
	return g.Wait()
}

func loadRegistry(v *viper.Viper, logger *slog.Logger) (*registry.Registry, error) {
	path := zonesPath(v)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("zones: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	cfg, err := configuration.Load(f)
	if err != nil {
		return nil, fmt.Errorf("zones: %s: %w", path, err)
	}
	r := registry.New(cfg, logger)
	r.CommonZoneRefinement = r.CommonZoneRefinement || v.GetBool("controller.commonZoneRefinement")
	if len(r.Zones()) == 0 {
		logger.Warn("no valid zones found", "path", path)
	}
	return r, nil
}

func zonesPath(v *viper.Viper) string {
	if path := v.GetString("zones"); path != "" {
		return path
	}
	return filepath.Join(filepath.Dir(v.ConfigFileUsed()), "zones.yaml")
}

func makeTasks(v *viper.Viper, h host.Host, r *registry.Registry, promRegistry prometheus.Registerer, l *slog.Logger) []taskmanager.Task {
	var tasks []taskmanager.Task

	// Notifiers
	n := notifier.Notifiers{notifier.SLogNotifier{Logger: l.With("component", "notifier")}}
	if token := v.GetString("slack.token"); token != "" {
		n = append(n, &notifier.SlackNotifier{
			Logger:      l.With("component", "slack"),
			SlackSender: slack.New(token),
		})
	}

	// Controller
	c := controller.New(h, r, n, l.With("component", "controller"))
	tasks = append(tasks, c)

	// Collector
	m := collector.NewMetrics()
	if promRegistry != nil {
		promRegistry.MustRegister(m)
	}
	tasks = append(tasks, &collector.Collector{Reporter: c, Metrics: m, Logger: l.With("component", "collector")})

	// Prometheus Server
	tasks = append(tasks, promserver.New(promserver.WithAddr(v.GetString("exporter.addr"))))

	// Health Endpoint
	hc := health.New(c, l.With("component", "health"))
	tasks = append(tasks, hc)
	mux := http.NewServeMux()
	mux.Handle("/health", hc)
	tasks = append(tasks, httpserver.New(v.GetString("health.addr"), mux))

	return tasks
}
