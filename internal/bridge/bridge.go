package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nestwire/nestwire-core/internal/apperr"
	"github.com/nestwire/nestwire-core/internal/codec"
	"github.com/nestwire/nestwire-core/internal/device"
	"github.com/nestwire/nestwire-core/internal/infrastructure/config"
	"github.com/nestwire/nestwire-core/internal/infrastructure/mqtt"
)

// storeTimeout bounds each merge-update issued for an inbound message.
const storeTimeout = 5 * time.Second

// MQTTClient is the broker session the bridge needs. *mqtt.Client
// satisfies it.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Registry is the merge-update the bridge applies decoded deltas with.
// *device.Registry satisfies it.
type Registry interface {
	UpdateEndpointValue(ctx context.Context, scope device.Scope, endpointID int, v device.Value, at time.Time) (device.MergeResult, error)
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds the dependencies of a Bridge.
type Options struct {
	Client   MQTTClient
	Registry Registry
	Codec    *codec.Codec

	// Topology is one of the config.Scope* values. Empty means room.
	Topology string

	// QoS is used for subscriptions and command publishes.
	QoS byte

	Logger Logger
}

// Bridge routes MQTT traffic to and from the device registry.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	client   MQTTClient
	registry Registry
	codec    *codec.Codec
	topology string
	qos      byte
	logger   Logger
	now      func() time.Time

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	subscribed []string

	received  atomic.Uint64
	applied   atomic.Uint64
	unmatched atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
	published atomic.Uint64
}

// New creates a bridge. It does not subscribe until Start is called.
func New(opts Options) (*Bridge, error) {
	if opts.Client == nil || opts.Registry == nil {
		return nil, fmt.Errorf("bridge: client and registry are required")
	}
	topology := opts.Topology
	if topology == "" {
		topology = config.ScopeRoom
	}
	switch topology {
	case config.ScopeRoom, config.ScopeDevice, config.ScopeHouseRoom:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopology, topology)
	}

	c := opts.Codec
	if c == nil {
		c = codec.Default()
	}
	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		client:   opts.Client,
		registry: opts.Registry,
		codec:    c,
		topology: topology,
		qos:      opts.QoS,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start subscribes to the topology's filters. Storage calls made by
// inbound handlers derive from ctx.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	b.cancel()
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.mu.Unlock()

	for _, filter := range b.filters() {
		if err := b.client.Subscribe(filter, b.qos, b.handle); err != nil {
			b.Stop()
			return fmt.Errorf("subscribing to %s: %w", filter, err)
		}
		b.mu.Lock()
		b.subscribed = append(b.subscribed, filter)
		b.mu.Unlock()
	}

	b.logger.Info("bridge started", "topology", b.topology, "filters", b.filters())
	return nil
}

// Stop unsubscribes and cancels in-flight storage calls. It does not close
// the MQTT session.
func (b *Bridge) Stop() {
	b.mu.Lock()
	filters := b.subscribed
	b.subscribed = nil
	b.cancel()
	b.mu.Unlock()

	for _, f := range filters {
		if err := b.client.Unsubscribe(f); err != nil {
			b.logger.Debug("unsubscribe failed", "filter", f, "error", err)
		}
	}
	b.logger.Info("bridge stopped")
}

func (b *Bridge) context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

func (b *Bridge) handle(topic string, payload []byte) error {
	b.HandleMessage(topic, payload)
	return nil
}

// HandleMessage applies one inbound message. Every failure is logged and
// counted; nothing escapes.
func (b *Bridge) HandleMessage(topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			b.failed.Add(1)
			b.logger.Error("panic handling message", "topic", topic, "panic", r)
		}
	}()

	b.received.Add(1)

	rt, ok := b.classify(topic)
	if !ok {
		b.dropped.Add(1)
		b.logger.Debug("dropping unrecognised topic", "topic", topic)
		return
	}

	deltas, err := b.codec.Decode(rt.kind, payload)
	if err != nil {
		b.dropped.Add(1)
		b.logger.Warn("dropping undecodable payload",
			"topic", topic, "kind", rt.kind.String(), "error", err)
		return
	}

	at := b.now()
	parent := b.context()
	for _, d := range deltas {
		ctx, cancel := context.WithTimeout(parent, storeTimeout)
		res, err := b.registry.UpdateEndpointValue(ctx, rt.scope, d.EndpointID, d.Value, at)
		cancel()

		switch {
		case err != nil:
			b.failed.Add(1)
			b.logger.Error("applying endpoint update",
				"topic", topic, "scope", rt.scope.String(), "endpoint", d.EndpointID, "error", err)
		case !res.Matched:
			b.unmatched.Add(1)
			b.logger.Warn("no device for endpoint update",
				"topic", topic, "scope", rt.scope.String(), "endpoint", d.EndpointID)
		default:
			b.applied.Add(1)
		}
	}
}

// Send encodes a composite command setting endpointID to value and
// publishes it on dev's control topic. It returns the topic and payload it
// used. Publish failures are transient.
func (b *Bridge) Send(_ context.Context, dev *device.Device, endpointID, value int) (string, []byte, error) {
	topic, err := b.TopicFor(dev)
	if err != nil {
		return "", nil, err
	}
	payload := b.codec.BuildCompositePayload(dev, endpointID, value).Bytes()

	if err := b.client.Publish(topic, payload, b.qos, false); err != nil {
		b.failed.Add(1)
		return topic, payload, apperr.Transient(fmt.Errorf("publishing to %s: %w", topic, err))
	}
	b.published.Add(1)
	b.logger.Debug("command published", "topic", topic, "payload", string(payload))
	return topic, payload, nil
}

// Stats holds bridge counters for monitoring.
type Stats struct {
	Received  uint64
	Applied   uint64
	Unmatched uint64
	Dropped   uint64
	Failed    uint64
	Published uint64
}

// Stats returns the current counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Received:  b.received.Load(),
		Applied:   b.applied.Load(),
		Unmatched: b.unmatched.Load(),
		Dropped:   b.dropped.Load(),
		Failed:    b.failed.Load(),
		Published: b.published.Load(),
	}
}
