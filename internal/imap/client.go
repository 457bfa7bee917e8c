package imap

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
)

// ErrAuthFailed is returned when the remote mailbox rejects the credentials.
// Callers surface this as an actionable "check app password" error.
var ErrAuthFailed = errors.New("mailbox authentication failed")

// ConnectToIMAP connects to the IMAP server with a 5-second dial timeout.
// useTLS: true for production (TLS), false for tests (non-TLS).
func ConnectToIMAP(address string, useTLS bool) (*client.Client, error) {
	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
	}

	if useTLS {
		c, err := client.DialWithDialerTLS(dialer, address, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to dial with TLS: %w", err)
		}
		return c, nil
	}

	// Non-TLS connection for testing
	c, err := client.DialWithDialer(dialer, address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	return c, nil
}

// Login authenticates with the IMAP server. A rejection maps to ErrAuthFailed
// so the sync job can report it distinctly from connection failures.
func Login(c *client.Client, username, password string) error {
	if err := c.Login(username, password); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	return nil
}
