package imap

import (
	"context"
	"log"
)

// LiveFetcher fetches from a real IMAP server. It opens one connection per
// job, which matches the on-demand sync model: no pooled or idle connections
// are kept between requests.
type LiveFetcher struct {
	Address string
	UseTLS  bool
}

// NewLiveFetcher creates a fetcher for the given IMAP server address.
func NewLiveFetcher(address string, useTLS bool) *LiveFetcher {
	return &LiveFetcher{Address: address, UseTLS: useTLS}
}

// FetchFolder connects, authenticates, resolves the folder alias and fetches
// the newest limit messages. The connection is closed before returning.
func (f *LiveFetcher) FetchFolder(ctx context.Context, username, password, folder string, limit int) (*FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := ConnectToIMAP(f.Address, f.UseTLS)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := c.Logout(); err != nil {
			log.Printf("Warning: Failed to log out of IMAP session: %v", err)
		}
	}()

	if err := Login(c, username, password); err != nil {
		return nil, err
	}

	resolved, err := ResolveFolder(c, folder)
	if err != nil {
		return nil, err
	}

	return FetchRecent(c, resolved, uint32(limit))
}
