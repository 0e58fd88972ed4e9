// Package mqtt resolves targets published on an MQTT broker. Devices
// publish their retained state and receive service calls on a set topic.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	log "github.com/echocat/slf4g"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
	"github.com/richardctrimble/ha-emulated-hue/internal/ports"
)

var ErrNotConnected = errors.New("mqtt broker not connected")

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token
}

// Provider tracks retained entity states and publishes commands.
type Provider struct {
	prefix string
	qos    byte

	client pahomqtt.Client
	pub    publisher

	mu     sync.RWMutex
	states map[string]*model.TargetState
}

func newProvider(prefix string, qos byte) *Provider {
	if prefix == "" {
		prefix = "hue"
	}
	return &Provider{
		prefix: prefix,
		qos:    qos,
		states: make(map[string]*model.TargetState),
	}
}

// Connect dials the broker and subscribes to all state topics.
func Connect(ctx context.Context, o Options) (*Provider, error) {
	return connect(ctx, o, pahomqtt.NewClient)
}

func connect(ctx context.Context, o Options, newClient func(*pahomqtt.ClientOptions) pahomqtt.Client) (*Provider, error) {
	p := newProvider(o.Prefix, o.QoS)
	o.Prefix = p.prefix

	opts := buildClientOptions(o)
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		// subscriptions do not survive a clean session reconnect
		c.Subscribe(stateSubscription(p.prefix), p.qos, func(_ pahomqtt.Client, m pahomqtt.Message) {
			p.handle(m.Topic(), m.Payload())
		})
		c.Publish(statusTopic(p.prefix), 1, true, "online")
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.WithError(err).
			With("broker", o.Broker).
			Warn("Lost connection to MQTT broker.")
	})

	p.client = newClient(opts)
	p.pub = p.client
	token := p.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		// stops the connect and reconnect loops paho runs in the background
		p.client.Disconnect(0)
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		p.client.Disconnect(0)
		return nil, fmt.Errorf("cannot connect to %s: %w", o.Broker, err)
	}

	log.With("broker", o.Broker).
		With("prefix", p.prefix).
		Info("Connected to MQTT broker.")
	return p, nil
}

func (p *Provider) Close() error {
	if p.client == nil {
		return nil
	}
	if p.client.IsConnected() {
		p.client.Publish(statusTopic(p.prefix), 1, true, "offline").WaitTimeout(defaultPublishTimeout)
	}
	p.client.Disconnect(disconnectQuiesce)
	return nil
}

func (p *Provider) Target(_ context.Context, ref model.TargetRef) (ports.Target, error) {
	if _, err := p.state(ref); err != nil {
		return nil, err
	}
	return &entity{provider: p, ref: ref}, nil
}

func (p *Provider) Entities(_ context.Context) ([]model.Entity, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entities := make([]model.Entity, 0, len(p.states))
	for id, s := range p.states {
		name, _ := s.Attributes["friendly_name"].(string)
		if name == "" {
			name = id
		}
		entities = append(entities, model.Entity{EntityID: id, Name: name})
	}
	model.SortEntities(entities)
	return entities, nil
}

type statePayload struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type commandPayload struct {
	Service string         `json:"service"`
	Data    map[string]any `json:"data,omitempty"`
}

func (p *Provider) handle(topic string, payload []byte) {
	ref, ok := parseStateTopic(p.prefix, topic)
	if !ok || !ref.Domain.IsSupported() {
		return
	}
	id := ref.EntityID()

	// an empty retained message clears the entity
	if len(payload) == 0 {
		p.mu.Lock()
		delete(p.states, id)
		p.mu.Unlock()
		return
	}

	var sp statePayload
	if err := json.Unmarshal(payload, &sp); err != nil {
		// plain payloads such as "on" are accepted as bare states
		sp = statePayload{State: string(payload)}
	}
	if sp.Attributes == nil {
		sp.Attributes = map[string]any{}
	}

	p.mu.Lock()
	p.states[id] = &model.TargetState{EntityID: id, State: sp.State, Attributes: sp.Attributes}
	p.mu.Unlock()
}

func (p *Provider) state(ref model.TargetRef) (*model.TargetState, error) {
	p.mu.RLock()
	s, ok := p.states[ref.EntityID()]
	p.mu.RUnlock()
	if !ok {
		return nil, &model.TargetUnreachableError{EntityID: ref.EntityID(), Err: errors.New("no retained state")}
	}
	attrs := make(map[string]any, len(s.Attributes))
	for k, v := range s.Attributes {
		attrs[k] = v
	}
	return &model.TargetState{EntityID: s.EntityID, State: s.State, Attributes: attrs}, nil
}

func (p *Provider) publish(ctx context.Context, ref model.TargetRef, cmd model.NativeCommand) error {
	if p.pub == nil {
		return ErrNotConnected
	}
	body, err := json.Marshal(commandPayload{Service: cmd.String(), Data: cmd.Data})
	if err != nil {
		return err
	}
	token := p.pub.Publish(CommandTopic(p.prefix, ref), p.qos, false, body)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("cannot publish %s for %s: %w", cmd, ref, err)
	}
	return nil
}

type entity struct {
	provider *Provider
	ref      model.TargetRef
}

func (e *entity) Ref() model.TargetRef {
	return e.ref
}

func (e *entity) CurrentState(context.Context) (*model.TargetState, error) {
	return e.provider.state(e.ref)
}

func (e *entity) Apply(ctx context.Context, cmd model.NativeCommand) error {
	return e.provider.publish(ctx, e.ref, cmd)
}
