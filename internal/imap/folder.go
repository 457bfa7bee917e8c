package imap

import (
	"fmt"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// folderAliases is the closed set of well-known folder aliases the API
// accepts, mapped to the provider folder names they may resolve to. The first
// candidate that exists on the server wins.
var folderAliases = map[string][]string{
	"sent":   {"[Gmail]/Sent Mail", "Sent", "Sent Items", "Sent Messages"},
	"drafts": {"[Gmail]/Drafts", "Drafts"},
	"spam":   {"[Gmail]/Spam", "Spam", "Junk"},
	"trash":  {"[Gmail]/Trash", "Trash", "Deleted Items"},
}

// canonicalNames maps the lowercased aliases to the spelling used for local
// storage and partitioning.
var canonicalNames = map[string]string{
	"inbox":  "INBOX",
	"sent":   "Sent",
	"drafts": "Drafts",
	"spam":   "Spam",
	"trash":  "Trash",
}

// CanonicalFolder returns the canonical spelling of a well-known folder alias
// ("drafts" -> "Drafts"). The stored folder name must be canonical: draft
// cleanup and later syncs look partitions up by it, so "drafts" and "Drafts"
// must not land in different partitions. Unknown names pass through unchanged.
func CanonicalFolder(name string) string {
	if canonical, ok := canonicalNames[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// ListFolders lists all folders on the IMAP server.
func ListFolders(c *client.Client) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	var folders []string
	for m := range mailboxes {
		folders = append(folders, m.Name)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

// ResolveFolder maps a folder alias (Sent, Drafts, Spam, Trash) to the name
// the server actually uses. Unknown names and INBOX pass through unchanged.
func ResolveFolder(c *client.Client, name string) (string, error) {
	candidates, ok := folderAliases[strings.ToLower(name)]
	if !ok {
		return name, nil
	}

	folders, err := ListFolders(c)
	if err != nil {
		return "", err
	}

	existing := make(map[string]struct{}, len(folders))
	for _, folder := range folders {
		existing[folder] = struct{}{}
	}

	for _, candidate := range candidates {
		if _, found := existing[candidate]; found {
			return candidate, nil
		}
	}

	// No candidate exists; let the folder select fail with the server's error.
	return name, nil
}
