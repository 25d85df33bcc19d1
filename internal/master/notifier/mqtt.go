// Package notifier mirrors the master's state onto an MQTT broker.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/pkg/mqtt/paths"
	"github.com/flightlab-io/flightlab/internal/pkg/queue"
	"github.com/flightlab-io/flightlab/pkg/log"
	pkgmqtt "github.com/flightlab-io/flightlab/pkg/mqtt"
	"github.com/flightlab-io/flightlab/pkg/mqtt/topic"
	"github.com/flightlab-io/flightlab/pkg/options"
)

const qos = 1

// Source is the part of the ControlService the mirror reads from.
type Source interface {
	State() v1.SystemState
	OnStateChanged(fn func(v1.SystemState))
	Subscribe() (feed *queue.Queue[*v1.MachineStatus], cancel func())
	SendCommand(cmd v1.Command)
}

// MQTTMirror publishes the aggregate state and every machine's latest status
// as retained JSON, and accepts commands on {root}/command.
type MQTTMirror struct {
	client  pkgmqtt.Client
	topics  *topic.TopicBuilder
	machine string
	src     Source
	log     log.Logger

	states chan v1.SystemState
}

// NewMQTTMirror creates the mirror. machine names the master in the online
// topic.
func NewMQTTMirror(opts *options.MqttOptions, src Source, machine string, l log.Logger) (*MQTTMirror, error) {
	topics := topic.NewTopicBuilder(opts.TopicRoot)

	cfg := opts.ToClientConfig()
	if cfg.ClientID == "" {
		hostname, _ := os.Hostname()
		cfg.ClientID = fmt.Sprintf("flightlab-master-%s", hostname)
	}
	cfg.WillTopic = topics.Build(paths.Online, machine)
	cfg.WillPayload = []byte("false")
	cfg.WillQoS = qos
	cfg.WillRetain = true
	cfg.Logger = l.WithName("mqtt")

	client, err := pkgmqtt.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create mqtt client: %w", err)
	}
	return newMQTTMirror(client, topics, src, machine, l), nil
}

func newMQTTMirror(client pkgmqtt.Client, topics *topic.TopicBuilder, src Source, machine string, l log.Logger) *MQTTMirror {
	m := &MQTTMirror{
		client:  client,
		topics:  topics,
		machine: machine,
		src:     src,
		log:     l,
		states:  make(chan v1.SystemState, 1),
	}
	src.OnStateChanged(m.stateChanged)
	return m
}

// stateChanged keeps only the latest pending state.
func (m *MQTTMirror) stateChanged(s v1.SystemState) {
	for {
		select {
		case m.states <- s:
			return
		default:
		}
		select {
		case <-m.states:
		default:
		}
	}
}

// Start connects and mirrors until ctx is done.
func (m *MQTTMirror) Start(ctx context.Context) error {
	if err := m.client.Start(ctx); err != nil {
		return err
	}
	defer m.client.Disconnect(context.Background())

	if err := m.client.AwaitConnection(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	if err := m.client.Subscribe(ctx, m.topics.Build(paths.Command), qos, m.handleCommand); err != nil {
		m.log.Error(err, "Failed to subscribe to command topic")
	}

	m.log.Info("Mirroring system state to MQTT", "root", m.topics.Root())
	m.publish(ctx, m.topics.Build(paths.Online, m.machine), []byte("true"))
	m.publishState(ctx, m.src.State())

	feed, cancel := m.src.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			m.publish(context.Background(), m.topics.Build(paths.Online, m.machine), []byte("false"))
			return nil
		case s := <-m.states:
			m.publishState(ctx, s)
			continue
		default:
		}

		ms, ok := feed.Get(ctx, time.Second)
		if !ok {
			continue
		}
		m.publishStatus(ctx, ms)
	}
}

func (m *MQTTMirror) publishState(ctx context.Context, s v1.SystemState) {
	payload, err := json.Marshal(v1.SystemStateResponse{State: s})
	if err != nil {
		m.log.Error(err, "Failed to marshal state")
		return
	}
	m.publish(ctx, m.topics.Build(paths.State), payload)
}

func (m *MQTTMirror) publishStatus(ctx context.Context, ms *v1.MachineStatus) {
	payload, err := json.Marshal(ms)
	if err != nil {
		m.log.Error(err, "Failed to marshal status", "machine", ms.Name)
		return
	}
	m.publish(ctx, m.topics.Build(paths.Status, ms.Name), payload)
}

func (m *MQTTMirror) publish(ctx context.Context, topic string, payload []byte) {
	if err := m.client.Publish(ctx, topic, qos, true, payload); err != nil {
		m.log.Warn("Failed to publish", "topic", topic, "error", err)
	}
}

func (m *MQTTMirror) handleCommand(_ context.Context, topic string, payload []byte) {
	var cmd v1.Command
	if err := cmd.UnmarshalText([]byte(strings.TrimSpace(string(payload)))); err != nil || cmd == v1.CommandUnspecified {
		m.log.Warn("Ignoring invalid command", "topic", topic, "payload", string(payload))
		return
	}
	m.log.Info("Command received over MQTT", "command", cmd)
	m.src.SendCommand(cmd)
}
