package mqtt

import (
	"errors"
	"fmt"

	"github.com/nestwire/nestwire-core/internal/apperr"
)

// Domain-specific errors for MQTT operations.
// Broker-side failures wrap apperr.ErrTransient; input errors do not.
var (
	// ErrNotConnected is returned when attempting operations on a disconnected client.
	ErrNotConnected = fmt.Errorf("mqtt: client not connected: %w", apperr.ErrTransient)

	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = fmt.Errorf("mqtt: connection failed: %w", apperr.ErrTransient)

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = fmt.Errorf("mqtt: publish failed: %w", apperr.ErrTransient)

	// ErrSubscribeFailed is returned when a subscribe operation fails.
	ErrSubscribeFailed = fmt.Errorf("mqtt: subscribe failed: %w", apperr.ErrTransient)

	// ErrUnsubscribeFailed is returned when an unsubscribe operation fails.
	ErrUnsubscribeFailed = fmt.Errorf("mqtt: unsubscribe failed: %w", apperr.ErrTransient)

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned when an empty topic is provided.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrPayloadTooLarge is returned for payloads over maxPayloadSize.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
)
