package imap_test

import (
	"testing"

	"github.com/consolegal/crm/backend/internal/imap"
	"github.com/consolegal/crm/backend/internal/testutil"
)

func TestCanonicalFolder(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"inbox", "INBOX"},
		{"INBOX", "INBOX"},
		{"drafts", "Drafts"},
		{"DRAFTS", "Drafts"},
		{"Drafts", "Drafts"},
		{"sent", "Sent"},
		{"spam", "Spam"},
		{"trash", "Trash"},
		{"Archive/2024", "Archive/2024"},
	}

	for _, tt := range tests {
		if got := imap.CanonicalFolder(tt.name); got != tt.expected {
			t.Errorf("CanonicalFolder(%q) = %q, want %q", tt.name, got, tt.expected)
		}
	}
}

func TestResolveFolder(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	server.EnsureFolder(t, "Sent")
	server.EnsureFolder(t, "Drafts")

	client, cleanup := server.Connect(t)
	defer cleanup()

	t.Run("inbox passes through", func(t *testing.T) {
		folder, err := imap.ResolveFolder(client, "INBOX")
		if err != nil {
			t.Fatalf("ResolveFolder failed: %v", err)
		}
		if folder != "INBOX" {
			t.Errorf("Expected INBOX, got %s", folder)
		}
	})

	t.Run("sent alias resolves case insensitively", func(t *testing.T) {
		for _, name := range []string{"Sent", "sent", "SENT"} {
			folder, err := imap.ResolveFolder(client, name)
			if err != nil {
				t.Fatalf("ResolveFolder(%s) failed: %v", name, err)
			}
			if folder != "Sent" {
				t.Errorf("ResolveFolder(%s) = %s, want Sent", name, folder)
			}
		}
	})

	t.Run("drafts alias resolves", func(t *testing.T) {
		folder, err := imap.ResolveFolder(client, "drafts")
		if err != nil {
			t.Fatalf("ResolveFolder failed: %v", err)
		}
		if folder != "Drafts" {
			t.Errorf("Expected Drafts, got %s", folder)
		}
	})

	t.Run("unknown folder passes through", func(t *testing.T) {
		folder, err := imap.ResolveFolder(client, "Archive/2024")
		if err != nil {
			t.Fatalf("ResolveFolder failed: %v", err)
		}
		if folder != "Archive/2024" {
			t.Errorf("Expected passthrough, got %s", folder)
		}
	})

	t.Run("alias without matching folder passes through", func(t *testing.T) {
		// No Spam/Junk folder exists on the test server; the select downstream
		// reports the real error.
		folder, err := imap.ResolveFolder(client, "spam")
		if err != nil {
			t.Fatalf("ResolveFolder failed: %v", err)
		}
		if folder != "spam" {
			t.Errorf("Expected passthrough of unresolved alias, got %s", folder)
		}
	})
}

func TestListFolders(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	server.EnsureFolder(t, "Sent")

	client, cleanup := server.Connect(t)
	defer cleanup()

	folders, err := imap.ListFolders(client)
	if err != nil {
		t.Fatalf("ListFolders failed: %v", err)
	}

	found := make(map[string]bool, len(folders))
	for _, folder := range folders {
		found[folder] = true
	}

	if !found["INBOX"] {
		t.Error("Expected INBOX in folder list")
	}
	if !found["Sent"] {
		t.Error("Expected Sent in folder list")
	}
}
