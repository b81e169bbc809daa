package mail

import (
	"context"
	"log"
)

// ConsoleMailer is the last-resort development channel: it writes the token to
// the process log instead of reaching the user. It never fails, so a chain
// ending in it always "delivers", flagged degraded.
type ConsoleMailer struct {
	logf func(format string, args ...any)
}

func NewConsoleMailer() *ConsoleMailer {
	return &ConsoleMailer{logf: log.Printf}
}

func (m *ConsoleMailer) Name() string { return "console" }

func (m *ConsoleMailer) Degraded() bool { return true }

func (m *ConsoleMailer) Send(ctx context.Context, msg Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	m.logf("mail fallback: to=%s subject=%q token=%s", msg.To, msg.Subject, msg.Token)
	return nil
}
