package mail

import "context"

// Message is one out-of-band notification carrying a verification token or
// reset link to the user.
type Message struct {
	To      string
	Subject string
	Body    string
	// Token is the raw one-time token, exposed separately so degraded
	// channels can surface it without parsing the body.
	Token string
}

// Strategy is one concrete delivery mechanism. Strategies are tried in the
// dispatcher's declared order; Degraded marks channels that do not actually
// reach the user's inbox (development fallbacks).
type Strategy interface {
	Name() string
	Degraded() bool
	Send(ctx context.Context, msg Message) error
}
