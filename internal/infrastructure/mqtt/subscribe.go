package mqtt

import (
	"fmt"
	"sync"
)

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// subscriptionSet remembers filters so that a new session can restore them.
// The zero value is ready to use.
type subscriptionSet struct {
	mu    sync.RWMutex
	byKey map[string]subscription
}

func (s *subscriptionSet) add(sub subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byKey == nil {
		s.byKey = make(map[string]subscription)
	}
	s.byKey[sub.topic] = sub
}

func (s *subscriptionSet) remove(topic string) {
	s.mu.Lock()
	delete(s.byKey, topic)
	s.mu.Unlock()
}

func (s *subscriptionSet) has(topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byKey[topic]
	return ok
}

func (s *subscriptionSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

func (s *subscriptionSet) replay(fn func(subscription)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.byKey {
		fn(sub)
	}
}

// Subscribe registers handler for a topic filter. Filters may use the MQTT
// wildcards, e.g. "+/device" for every room control topic or "devices/#".
// The filter is replayed after every reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subs.add(subscription{topic: topic, qos: qos, handler: handler})
	if err := await(c.paho.Subscribe(topic, qos, c.wrapHandler(handler)), defaultPublishTimeout, ErrSubscribeFailed); err != nil {
		c.subs.remove(topic)
		return err
	}
	return nil
}

// Unsubscribe forgets a filter. Messages already dispatched may still arrive.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	c.subs.remove(topic)
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return await(c.paho.Unsubscribe(topic), defaultPublishTimeout, ErrUnsubscribeFailed)
}

// SubscriptionCount returns the number of remembered filters.
func (c *Client) SubscriptionCount() int { return c.subs.len() }

// HasSubscription matches the filter string exactly.
func (c *Client) HasSubscription(topic string) bool { return c.subs.has(topic) }
