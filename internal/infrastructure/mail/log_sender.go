package mail

import (
	"context"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/northwind/backoffice/internal/core/ports"
)

// secretParam matches token query values so raw verification secrets never
// reach the log.
var secretParam = regexp.MustCompile(`(?i)(token=)[^\s&"]+`)

// LogSender writes outgoing email to the log instead of delivering it.
// Used in development when no broker is configured.
type LogSender struct {
	log zerolog.Logger
}

var _ ports.EmailSender = (*LogSender)(nil)

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.log.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", redact(body)).
		Msg("email not delivered: no mail transport configured")
	return nil
}

func redact(body string) string {
	return secretParam.ReplaceAllString(body, "${1}[redacted]")
}
