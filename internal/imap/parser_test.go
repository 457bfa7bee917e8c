package imap

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
)

func TestIsAttachmentPart(t *testing.T) {
	tests := []struct {
		name     string
		part     *imap.BodyStructure
		expected bool
	}{
		{
			name:     "explicit attachment disposition",
			part:     &imap.BodyStructure{MIMEType: "application", MIMESubType: "pdf", Disposition: "attachment"},
			expected: true,
		},
		{
			name:     "inline disposition never counts",
			part:     &imap.BodyStructure{MIMEType: "application", MIMESubType: "pdf", Disposition: "inline"},
			expected: false,
		},
		{
			name:     "inline image excluded",
			part:     &imap.BodyStructure{MIMEType: "image", MIMESubType: "png", Disposition: "inline"},
			expected: false,
		},
		{
			name:     "image without disposition excluded",
			part:     &imap.BodyStructure{MIMEType: "image", MIMESubType: "jpeg"},
			expected: false,
		},
		{
			name:     "image with attachment disposition counts",
			part:     &imap.BodyStructure{MIMEType: "image", MIMESubType: "png", Disposition: "attachment"},
			expected: true,
		},
		{
			name:     "text plain excluded",
			part:     &imap.BodyStructure{MIMEType: "text", MIMESubType: "plain"},
			expected: false,
		},
		{
			name:     "text html excluded",
			part:     &imap.BodyStructure{MIMEType: "text", MIMESubType: "html"},
			expected: false,
		},
		{
			name:     "text calendar counts",
			part:     &imap.BodyStructure{MIMEType: "text", MIMESubType: "calendar"},
			expected: true,
		},
		{
			name:     "multipart container excluded",
			part:     &imap.BodyStructure{MIMEType: "multipart", MIMESubType: "mixed"},
			expected: false,
		},
		{
			name:     "application pdf without disposition counts",
			part:     &imap.BodyStructure{MIMEType: "application", MIMESubType: "pdf"},
			expected: true,
		},
		{
			name:     "disposition is case insensitive",
			part:     &imap.BodyStructure{MIMEType: "application", MIMESubType: "pdf", Disposition: "ATTACHMENT"},
			expected: true,
		},
		{
			name:     "untyped part excluded",
			part:     &imap.BodyStructure{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isAttachmentPart(tt.part); got != tt.expected {
				t.Errorf("isAttachmentPart(%+v) = %v, want %v", tt.part, got, tt.expected)
			}
		})
	}
}

func TestCollectStructureAttachments(t *testing.T) {
	t.Run("nil structure", func(t *testing.T) {
		if got := collectStructureAttachments(nil); got != nil {
			t.Errorf("Expected nil, got %v", got)
		}
	})

	t.Run("walks nested multiparts", func(t *testing.T) {
		structure := &imap.BodyStructure{
			MIMEType:    "multipart",
			MIMESubType: "mixed",
			Parts: []*imap.BodyStructure{
				{
					MIMEType:    "multipart",
					MIMESubType: "alternative",
					Parts: []*imap.BodyStructure{
						{MIMEType: "text", MIMESubType: "plain"},
						{MIMEType: "text", MIMESubType: "html"},
					},
				},
				{
					MIMEType:          "application",
					MIMESubType:       "pdf",
					Disposition:       "attachment",
					DispositionParams: map[string]string{"filename": "contract.pdf"},
					Size:              4096,
				},
			},
		}

		attachments := collectStructureAttachments(structure)
		if len(attachments) != 1 {
			t.Fatalf("Expected 1 attachment, got %d", len(attachments))
		}
		if attachments[0].Filename != "contract.pdf" {
			t.Errorf("Expected filename contract.pdf, got %s", attachments[0].Filename)
		}
		if attachments[0].ContentType != "application/pdf" {
			t.Errorf("Expected content type application/pdf, got %s", attachments[0].ContentType)
		}
		if attachments[0].Size != 4096 {
			t.Errorf("Expected size 4096, got %d", attachments[0].Size)
		}
	})

	t.Run("falls back to name param then placeholder", func(t *testing.T) {
		withNameParam := &imap.BodyStructure{
			MIMEType:    "application",
			MIMESubType: "zip",
			Params:      map[string]string{"name": "archive.zip"},
		}
		attachments := collectStructureAttachments(withNameParam)
		if len(attachments) != 1 || attachments[0].Filename != "archive.zip" {
			t.Errorf("Expected name param fallback, got %v", attachments)
		}

		nameless := &imap.BodyStructure{
			MIMEType:    "application",
			MIMESubType: "octet-stream",
		}
		attachments = collectStructureAttachments(nameless)
		if len(attachments) != 1 || attachments[0].Filename != "attachment" {
			t.Errorf("Expected placeholder filename, got %v", attachments)
		}
	})
}

func TestParseEnvelope(t *testing.T) {
	t.Run("nil message", func(t *testing.T) {
		if _, err := ParseEnvelope(nil, nil); err == nil {
			t.Error("Expected error for nil message")
		}
	})

	t.Run("header fields mapped", func(t *testing.T) {
		date := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
		msg := &imap.Message{
			SeqNum: 1,
			Flags:  []string{imap.SeenFlag},
			Envelope: &imap.Envelope{
				Subject:   "Hearing schedule",
				Date:      date,
				MessageId: "<abc@example.com>",
				InReplyTo: "<root@example.com>",
				From: []*imap.Address{
					{PersonalName: "Ada Lovelace", MailboxName: "ada", HostName: "example.com"},
				},
				To: []*imap.Address{
					{MailboxName: "firm", HostName: "consolegal.test"},
					{MailboxName: "partner", HostName: "consolegal.test"},
				},
			},
		}

		envelope, err := ParseEnvelope(msg, nil)
		if err != nil {
			t.Fatalf("ParseEnvelope failed: %v", err)
		}

		if envelope.From != "Ada Lovelace <ada@example.com>" {
			t.Errorf("Unexpected from: %s", envelope.From)
		}
		if envelope.To != "firm@consolegal.test, partner@consolegal.test" {
			t.Errorf("Unexpected to: %s", envelope.To)
		}
		if envelope.Subject != "Hearing schedule" {
			t.Errorf("Unexpected subject: %s", envelope.Subject)
		}
		if envelope.MessageID != "<abc@example.com>" {
			t.Errorf("Unexpected message id: %s", envelope.MessageID)
		}
		if envelope.InReplyTo != "<root@example.com>" {
			t.Errorf("Unexpected in-reply-to: %s", envelope.InReplyTo)
		}
		if !envelope.Date.Equal(date) {
			t.Errorf("Unexpected date: %v", envelope.Date)
		}
		if !envelope.IsRead {
			t.Error("Expected Seen flag to map to IsRead")
		}
	})

	t.Run("missing message id synthesized", func(t *testing.T) {
		msg := &imap.Message{
			SeqNum:   7,
			Envelope: &imap.Envelope{Subject: "No id"},
		}

		envelope, err := ParseEnvelope(msg, nil)
		if err != nil {
			t.Fatalf("ParseEnvelope failed: %v", err)
		}
		if envelope.MessageID == "" {
			t.Fatal("Expected synthesized message id")
		}
		if !strings.HasSuffix(envelope.MessageID, "-7") {
			t.Errorf("Expected synthesized id to end with sequence number, got %s", envelope.MessageID)
		}
	})

	t.Run("placeholder attachments synthesized from structure", func(t *testing.T) {
		msg := &imap.Message{
			SeqNum:   1,
			Envelope: &imap.Envelope{Subject: "With attachment", MessageId: "<x@example.com>"},
			BodyStructure: &imap.BodyStructure{
				MIMEType:    "multipart",
				MIMESubType: "mixed",
				Parts: []*imap.BodyStructure{
					{MIMEType: "text", MIMESubType: "plain"},
					{MIMEType: "application", MIMESubType: "pdf", Disposition: "attachment"},
				},
			},
		}

		envelope, err := ParseEnvelope(msg, nil)
		if err != nil {
			t.Fatalf("ParseEnvelope failed: %v", err)
		}
		if !envelope.HasAttachments {
			t.Error("Expected HasAttachments from structure signal")
		}
		if len(envelope.Attachments) != 1 {
			t.Errorf("Expected 1 placeholder attachment, got %d", len(envelope.Attachments))
		}
	})

	t.Run("inline only structure leaves message unflagged", func(t *testing.T) {
		msg := &imap.Message{
			SeqNum:   1,
			Envelope: &imap.Envelope{Subject: "Signature image", MessageId: "<y@example.com>"},
			BodyStructure: &imap.BodyStructure{
				MIMEType:    "multipart",
				MIMESubType: "related",
				Parts: []*imap.BodyStructure{
					{MIMEType: "text", MIMESubType: "html"},
					{MIMEType: "image", MIMESubType: "png", Disposition: "inline"},
				},
			},
		}

		envelope, err := ParseEnvelope(msg, nil)
		if err != nil {
			t.Fatalf("ParseEnvelope failed: %v", err)
		}
		if envelope.HasAttachments {
			t.Error("Expected inline image to not flag the message")
		}
		if len(envelope.Attachments) != 0 {
			t.Errorf("Expected no attachments, got %v", envelope.Attachments)
		}
	})
}

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		name     string
		address  *imap.Address
		expected string
	}{
		{
			name:     "nil address",
			address:  nil,
			expected: "",
		},
		{
			name:     "empty address",
			address:  &imap.Address{},
			expected: "",
		},
		{
			name:     "bare address",
			address:  &imap.Address{MailboxName: "ada", HostName: "example.com"},
			expected: "ada@example.com",
		},
		{
			name:     "with personal name",
			address:  &imap.Address{PersonalName: "Ada Lovelace", MailboxName: "ada", HostName: "example.com"},
			expected: "Ada Lovelace <ada@example.com>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAddress(tt.address); got != tt.expected {
				t.Errorf("formatAddress = %q, want %q", got, tt.expected)
			}
		})
	}
}
