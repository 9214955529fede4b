// Package logging provides the structured logger shared by nestwire components.
//
// It wraps log/slog so every entry carries the service name and build version.
// Components outside this package depend on a four-method Logger interface
// (Debug, Info, Warn, Error) which *Logger satisfies, so they can be tested
// with a silent logger.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log broker passwords or the InfluxDB token.
package logging
