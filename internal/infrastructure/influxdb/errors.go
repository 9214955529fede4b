package influxdb

import (
	"errors"
	"fmt"

	"github.com/nestwire/nestwire-core/internal/apperr"
)

var (
	// ErrNotConnected indicates the client has been closed.
	ErrNotConnected = fmt.Errorf("influxdb: not connected: %w", apperr.ErrTransient)

	// ErrConnectionFailed indicates the initial ping failed.
	ErrConnectionFailed = fmt.Errorf("influxdb: connection failed: %w", apperr.ErrTransient)

	// ErrDisabled indicates the integration is disabled in configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
