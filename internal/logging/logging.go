// Package logging configures the acquirer gateway's structured logger and
// the request/response log events every HTTP handler emits.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the zerolog logger with the given level and output
// format. human selects a colorized ConsoleWriter; otherwise logs are
// newline-delimited JSON.
func Init(level string, human bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if human {
		log.Logger = base.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339Nano,
		})
	} else {
		log.Logger = base
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// LogRequest logs an inbound HTTP request with structured fields.
func LogRequest(requestID, clientIP, method, path string) {
	log.Info().
		Str("event", "request_received").
		Str("request_id", requestID).
		Str("client_ip", clientIP).
		Str("method", method).
		Str("path", path).
		Msg("received request")
}

// LogResponse logs an outbound HTTP response with structured fields.
func LogResponse(requestID, clientIP, path string, status int, duration time.Duration) {
	log.Info().
		Str("event", "response_sent").
		Str("request_id", requestID).
		Str("client_ip", clientIP).
		Str("path", path).
		Int("status", status).
		Str("duration", duration.String()).
		Msg("sent response")
}
