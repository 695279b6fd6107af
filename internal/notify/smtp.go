package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/mireles/tether/internal/validate"
)

// SMTPChannel delivers notifications as plain-text email through a relay.
// No external mail dependency: the relay handles retries and queueing, so a
// single synchronous submission is all the dispatcher needs.
type SMTPChannel struct {
	addr string // host:port of the relay
	from string
	auth smtp.Auth

	// sendMail is swappable for tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPChannel creates an SMTPChannel. auth may be nil for an open relay.
func NewSMTPChannel(addr, from string, auth smtp.Auth) *SMTPChannel {
	return &SMTPChannel{
		addr:     addr,
		from:     from,
		auth:     auth,
		sendMail: smtp.SendMail,
	}
}

// Deliver submits the message to the relay.
func (c *SMTPChannel) Deliver(ctx context.Context, recipient Recipient, msg Message) error {
	if c.addr == "" || c.from == "" {
		return ErrChannelUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Also guards the To header against injection through a stored address.
	to, err := validate.Email(recipient.Address)
	if err != nil {
		return fmt.Errorf("recipient address: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	if err := c.sendMail(c.addr, c.auth, c.from, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
