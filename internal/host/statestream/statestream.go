// Package statestream connects to Home Assistant over MQTT.
//
// Entity states are received from Home Assistant's mqtt_statestream integration, which publishes each entity's state
// to <base>/<domain>/<object_id>/state and (if publish_attributes is set) each attribute to
// <base>/<domain>/<object_id>/<attribute>, JSON-encoded. The received states are kept in memory.
//
// Commands are published as JSON to <commands>/<kind> (e.g. smarterzones/command/turn_on), for a Home Assistant
// automation to execute:
//
//	{"entity_id":"climate.ac","hvac_mode":"cool"}
//
// Commands aren't applied to the stored state: the new state is received from Home Assistant once the command has
// been executed.
package statestream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/clambin/smarterzones/internal/host"
	"github.com/clambin/smarterzones/internal/host/memory"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

var _ host.Host = &Host{}

// DefaultTimeout is the time Host waits for the broker to accept a subscription or a command.
const DefaultTimeout = 5 * time.Second

// Client is the part of mqtt.Client used by Host.
type Client interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Host implements host.Host for Home Assistant.
type Host struct {
	*memory.Store
	client   Client
	logger   *slog.Logger
	base     string
	commands string
	Timeout  time.Duration
}

// New returns a Host that receives state updates under the base topic and publishes commands under the commands topic.
func New(client Client, base string, commands string, logger *slog.Logger) *Host {
	h := Host{
		Store:    memory.New(),
		client:   client,
		logger:   logger,
		base:     strings.TrimSuffix(base, "/"),
		commands: strings.TrimSuffix(commands, "/"),
		Timeout:  DefaultTimeout,
	}
	h.Store.Executor = h.publish
	return &h
}

// Listen subscribes to the statestream topics. Retained messages are received immediately, so the stored state
// is populated shortly after Listen returns.
func (h *Host) Listen(ctx context.Context) error {
	topic := h.base + "/#"
	if err := h.wait(ctx, h.client.Subscribe(topic, 1, h.onMessage)); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	h.logger.Info("listening for state updates", "topic", topic)
	return nil
}

// OnConnect subscribes to the statestream topics. Use it as the client's mqtt.OnConnectHandler, so subscriptions are
// restored when the client reconnects.
func (h *Host) OnConnect(_ mqtt.Client) {
	if err := h.Listen(context.Background()); err != nil {
		h.logger.Error("failed to subscribe", "err", err)
	}
}

func (h *Host) onMessage(_ mqtt.Client, msg mqtt.Message) {
	entityID, attribute, ok := h.parseTopic(msg.Topic())
	if !ok {
		h.logger.Debug("ignoring message", "topic", msg.Topic())
		return
	}
	if attribute == "state" {
		h.Store.SetState(entityID, string(msg.Payload()))
		return
	}
	h.Store.SetAttribute(entityID, attribute, decodeAttribute(msg.Payload()))
}

// parseTopic splits <base>/<domain>/<object_id>/<attribute> into an entity ID and an attribute.
func (h *Host) parseTopic(topic string) (string, string, bool) {
	rest, ok := strings.CutPrefix(topic, h.base+"/")
	if !ok {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0] + "." + parts[1], parts[2], true
}

// decodeAttribute converts a JSON-encoded attribute to a string. Lists are joined with ", ". Payloads that aren't
// valid JSON are returned unchanged.
func decodeAttribute(payload []byte) string {
	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return string(payload)
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		values := make([]string, len(v))
		for i, element := range v {
			values[i] = fmt.Sprint(element)
		}
		return strings.Join(values, ", ")
	default:
		return string(payload)
	}
}

func (h *Host) publish(ctx context.Context, cmd host.Command) error {
	payload := make(map[string]string, len(cmd.Params)+1)
	for key, value := range cmd.Params {
		payload[key] = value
	}
	payload["entity_id"] = cmd.EntityID
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	topic := h.commands + "/" + string(cmd.Kind)
	if err = h.wait(ctx, h.client.Publish(topic, 1, false, body)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	h.logger.Debug("command published", "topic", topic, "command", cmd.String())
	return nil
}

var errTimeout = errors.New("timeout")

func (h *Host) wait(ctx context.Context, token mqtt.Token) error {
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errTimeout
		}
		return ctx.Err()
	}
}
