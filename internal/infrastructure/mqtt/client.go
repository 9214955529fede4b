package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nestwire/nestwire-core/internal/infrastructure/config"
)

// Client is the hub's broker session. It tracks connection state, replays
// subscriptions after a reconnect and shields paho from handler panics.
//
// All methods are safe for concurrent use.
type Client struct {
	paho pahomqtt.Client
	cfg  config.MQTTConfig

	subs       subscriptionSet
	up         atomic.Bool
	reconnects atomic.Int32

	mu           sync.RWMutex // guards the hooks and logger
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Logger is the subset of logging.Logger the session uses.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MessageHandler receives one inbound message. Handlers run on their own
// goroutine; a returned error is logged and the message is dropped.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker and blocks until the first session is up.
//
// The retained system status topic carries "online" once connected and an
// LWT "offline" if the process vanishes. Later drops reconnect with backoff,
// bounded by reconnect.max_attempts when it is set.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{cfg: cfg}

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.connected() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.lost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) { c.reconnecting() })

	c.paho = pahomqtt.NewClient(opts)
	if err := await(c.paho.Connect(), defaultConnectTimeout, ErrConnectionFailed); err != nil {
		return nil, err
	}

	// The paho OnConnect hook fires asynchronously, so Connect does not
	// wait for it before reporting the session as up.
	c.up.Store(true)
	return c, nil
}

func (c *Client) connected() {
	c.up.Store(true)
	c.reconnects.Store(0)

	c.subs.replay(func(s subscription) {
		token := c.paho.Subscribe(s.topic, s.qos, c.wrapHandler(s.handler))
		go func() {
			if err := await(token, defaultPublishTimeout, ErrSubscribeFailed); err != nil {
				c.log().Error("MQTT resubscribe failed", "topic", s.topic, "error", err)
			}
		}()
	})
	c.paho.Publish(Topics{}.SystemStatus(), c.QoS(), true, buildOnlinePayload(c.cfg.Broker.ClientID))

	c.mu.RLock()
	hook := c.onConnect
	c.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) lost(err error) {
	c.up.Store(false)
	c.log().Warn("MQTT connection lost", "error", err)

	c.mu.RLock()
	hook := c.onDisconnect
	c.mu.RUnlock()
	if hook != nil {
		hook(err)
	}
}

func (c *Client) reconnecting() {
	attempt := int(c.reconnects.Add(1))
	limit := c.cfg.Reconnect.MaxAttempts
	c.log().Info("MQTT reconnecting", "broker", c.cfg.BrokerURL(), "attempt", attempt)

	if limit > 0 && attempt > limit {
		c.log().Error("MQTT reconnect attempts exhausted", "max_attempts", limit)
		// Disconnect blocks on the reconnect loop that is calling us.
		go c.paho.Disconnect(0)
	}
}

// Close publishes the graceful offline status and disconnects. It is safe
// on a nil or never-connected client.
func (c *Client) Close() error {
	if c == nil || c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.paho.Publish(Topics{}.SystemStatus(), c.QoS(), true, buildOfflinePayload(c.cfg.Broker.ClientID))
		token.WaitTimeout(defaultPublishTimeout)
	}
	c.paho.Disconnect(defaultDisconnectQuiesce)
	c.up.Store(false)
	return nil
}

// HealthCheck returns ErrNotConnected while the session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether a broker session is currently established.
func (c *Client) IsConnected() bool {
	return c.up.Load() && c.paho != nil && c.paho.IsConnected()
}

// SetOnConnect registers a hook run after the first connect and every reconnect.
func (c *Client) SetOnConnect(hook func()) {
	c.mu.Lock()
	c.onConnect = hook
	c.mu.Unlock()
}

// SetOnDisconnect registers a hook run when the session drops.
func (c *Client) SetOnDisconnect(hook func(err error)) {
	c.mu.Lock()
	c.onDisconnect = hook
	c.mu.Unlock()
}

func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.logger == nil {
		return noopLogger{}
	}
	return c.logger
}

// wrapHandler adapts a MessageHandler to paho. Panics and errors end as log
// lines so one bad payload never takes the session down.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		topic := msg.Topic()
		defer func() {
			if r := recover(); r != nil {
				c.log().Error("MQTT handler panic recovered", "topic", topic, "panic", r)
			}
		}()

		if err := handler(topic, msg.Payload()); err != nil {
			c.log().Warn("MQTT handler returned error", "topic", topic, "error", err)
		}
	}
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
