// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package builtin

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/liminal-stream/engine/internal/config"
	"github.com/liminal-stream/engine/internal/message"
	"github.com/liminal-stream/engine/internal/processor"
)

func init() {
	processor.Register("mqtt_input", newMQTTInputProcessor)
	processor.Register("mqtt_output", newMQTTOutputProcessor)
}

// mqttConnectionConfig captures the connection parameters shared by the
// MQTT input and output processors, grounded on the reference
// implementation's common MqttConnectionConfig.
type mqttConnectionConfig struct {
	brokerURL string
	clientID  string
	qos       byte
	username  string
	password  string
}

func mqttConnectionFromStage(cfg config.StageConfig) mqttConnectionConfig {
	return mqttConnectionConfig{
		brokerURL: processor.ExtractParam(cfg.Parameters, "broker_url", "mqtt://localhost:1883"),
		clientID:  processor.ExtractParam(cfg.Parameters, "client_id", ""),
		qos:       byte(processor.ExtractParam(cfg.Parameters, "qos", 0)),
		username:  processor.ExtractParam(cfg.Parameters, "username", ""),
		password:  processor.ExtractParam(cfg.Parameters, "password", ""),
	}
}

func (c mqttConnectionConfig) serverURL() (*url.URL, error) {
	raw := c.brokerURL
	if !strings.Contains(raw, "://") {
		raw = "mqtt://" + raw
	}
	return url.Parse(raw)
}

func (c mqttConnectionConfig) resolvedClientID(prefix string) string {
	if c.clientID != "" {
		return c.clientID
	}
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// mqttInputProcessor subscribes to one or more topics and republishes every
// received message downstream, grounded on the reference implementation's
// MqttInputProcessor.
type mqttInputProcessor struct {
	name   string
	conn   mqttConnectionConfig
	topics []string
	cm     *autopaho.ConnectionManager
	inbox  chan message.Message
}

func newMQTTInputProcessor(name string, cfg config.StageConfig) (processor.Processor, error) {
	topics := processor.ExtractParam(cfg.Parameters, "topics", []string{"#"})
	if len(topics) == 0 {
		return nil, fmt.Errorf("mqtt_input %q: at least one topic must be specified", name)
	}
	return &mqttInputProcessor{
		name:   name,
		conn:   mqttConnectionFromStage(cfg),
		topics: topics,
		inbox:  make(chan message.Message, 256),
	}, nil
}

func (p *mqttInputProcessor) Init(ctx context.Context) error {
	u, err := p.conn.serverURL()
	if err != nil {
		return fmt.Errorf("mqtt_input %q: parsing broker_url: %w", p.name, err)
	}

	subs := make([]paho.SubscribeOptions, 0, len(p.topics))
	for _, t := range p.topics {
		subs = append(subs, paho.SubscribeOptions{Topic: t, QoS: p.conn.qos})
	}

	cliCfg := autopaho.ClientConfig{
		ServerUrls: []*url.URL{u},
		KeepAlive:  20,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			_, _ = cm.Subscribe(ctx, &paho.Subscribe{Subscriptions: subs})
		},
		ClientConfig: paho.ClientConfig{
			ClientID: p.conn.resolvedClientID("liminal"),
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					payload := decodeMQTTPayload(pr.Packet.Payload)
					select {
					case p.inbox <- message.New(p.name, pr.Packet.Topic, payload):
					default:
					}
					return true, nil
				},
			},
		},
	}
	if p.conn.username != "" {
		cliCfg.ConnectUsername = p.conn.username
		cliCfg.ConnectPassword = []byte(p.conn.password)
	}

	cm, err := autopaho.NewConnection(ctx, cliCfg)
	if err != nil {
		return fmt.Errorf("mqtt_input %q: connecting: %w", p.name, err)
	}
	p.cm = cm
	return nil
}

func (p *mqttInputProcessor) Process(ctx context.Context, pc *processor.ProcessingContext) error {
	select {
	case msg := <-p.inbox:
		return pc.Publish(message.Propagate(msg, p.name, outputTopic(pc, p.name), msg.Payload))
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(idleDelay):
		return nil
	}
}

// mqttOutputProcessor publishes every received message to a fixed topic,
// wrapping the publish call in a circuit breaker so a struggling broker
// degrades the stage instead of blocking it indefinitely.
type mqttOutputProcessor struct {
	name  string
	conn  mqttConnectionConfig
	topic string
	cm    *autopaho.ConnectionManager
	cb    *gobreaker.CircuitBreaker[struct{}]
}

func newMQTTOutputProcessor(name string, cfg config.StageConfig) (processor.Processor, error) {
	return &mqttOutputProcessor{
		name:  name,
		conn:  mqttConnectionFromStage(cfg),
		topic: processor.ExtractParam(cfg.Parameters, "topic", name),
	}, nil
}

func (p *mqttOutputProcessor) Init(ctx context.Context) error {
	u, err := p.conn.serverURL()
	if err != nil {
		return fmt.Errorf("mqtt_output %q: parsing broker_url: %w", p.name, err)
	}

	cliCfg := autopaho.ClientConfig{
		ServerUrls: []*url.URL{u},
		KeepAlive:  20,
		ClientConfig: paho.ClientConfig{
			ClientID: p.conn.resolvedClientID("liminal"),
		},
	}
	if p.conn.username != "" {
		cliCfg.ConnectUsername = p.conn.username
		cliCfg.ConnectPassword = []byte(p.conn.password)
	}

	cm, err := autopaho.NewConnection(ctx, cliCfg)
	if err != nil {
		return fmt.Errorf("mqtt_output %q: connecting: %w", p.name, err)
	}
	p.cm = cm
	p.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "mqtt-output-" + p.name,
		MaxRequests: 1,
		Timeout:     10 * time.Second,
	})
	return nil
}

func (p *mqttOutputProcessor) Process(ctx context.Context, pc *processor.ProcessingContext) error {
	received := false
	for _, sub := range pc.Inputs {
		msg, ok := sub.TryRecv()
		if !ok {
			continue
		}
		received = true
		body, err := message.MarshalPayload(msg.Payload)
		if err != nil {
			return fmt.Errorf("mqtt_output %q: marshalling payload: %w", p.name, err)
		}
		_, err = p.cb.Execute(func() (struct{}, error) {
			_, pubErr := p.cm.Publish(ctx, &paho.Publish{Topic: p.topic, QoS: p.conn.qos, Payload: body})
			return struct{}{}, pubErr
		})
		if err != nil {
			return fmt.Errorf("mqtt_output %q: publish: %w", p.name, err)
		}
	}
	if !received {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(idleDelay):
		}
	}
	return nil
}

func decodeMQTTPayload(body []byte) any {
	var v any
	if err := message.UnmarshalPayload(body, &v); err == nil {
		return v
	}
	return string(body)
}
