package smtp

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Message is one outgoing mail.
type Message struct {
	From    string
	To      []string
	CC      []string
	Subject string
	Body    string
	Date    time.Time
}

// Send submits the message to the SMTP server, upgrading to STARTTLS when the
// server offers it and authenticating with SASL PLAIN.
func Send(address, username, password string, msg *Message) error {
	c, err := smtp.Dial(address)
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server: %w", err)
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(nil); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if username != "" {
		if err := c.Auth(sasl.NewPlainClient("", username, password)); err != nil {
			return fmt.Errorf("failed to authenticate with SMTP server: %w", err)
		}
	}

	recipients := append(append([]string{}, msg.To...), msg.CC...)
	if err := c.SendMail(msg.From, recipients, strings.NewReader(Format(msg))); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return c.Quit()
}

// Format renders the message as an RFC 5322 text/plain mail.
func Format(msg *Message) string {
	date := msg.Date
	if date.IsZero() {
		date = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	if len(msg.CC) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(msg.CC, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")

	return b.String()
}
