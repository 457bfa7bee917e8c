package imap

import (
	"fmt"
	"strings"
	"time"

	"github.com/consolegal/crm/backend/internal/models"
	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
)

// ParseEnvelope converts one fetched IMAP message into a normalized
// RemoteEnvelope. A body-parse failure returns the envelope built from the
// headers together with the error, so callers can log and keep the message.
//
// When the message carries no Message-ID header, a `<unix-millis>-<seq>`
// identifier is synthesized. Such identifiers are not stable across fetches;
// the stale synthetic row is removed by deletion reconciliation on the next
// complete sync of the folder.
func ParseEnvelope(imapMsg *imap.Message, section *imap.BodySectionName) (*models.RemoteEnvelope, error) {
	if imapMsg == nil {
		return nil, fmt.Errorf("imap message is nil")
	}

	envelope := &models.RemoteEnvelope{}

	for _, flag := range imapMsg.Flags {
		if flag == imap.SeenFlag {
			envelope.IsRead = true
		}
	}

	if imapMsg.Envelope != nil {
		if len(imapMsg.Envelope.From) > 0 {
			envelope.From = formatAddress(imapMsg.Envelope.From[0])
		}
		envelope.To = strings.Join(formatAddressList(imapMsg.Envelope.To), ", ")
		envelope.CC = strings.Join(formatAddressList(imapMsg.Envelope.Cc), ", ")
		envelope.BCC = strings.Join(formatAddressList(imapMsg.Envelope.Bcc), ", ")
		envelope.Subject = imapMsg.Envelope.Subject
		envelope.InReplyTo = imapMsg.Envelope.InReplyTo
		if !imapMsg.Envelope.Date.IsZero() {
			envelope.Date = imapMsg.Envelope.Date
		}
		envelope.MessageID = imapMsg.Envelope.MessageId
	}

	if envelope.MessageID == "" {
		envelope.MessageID = fmt.Sprintf("%d-%d", time.Now().UnixMilli(), imapMsg.SeqNum)
	}

	var parseErr error
	var parsedAttachments []models.Attachment

	if section != nil {
		if bodyReader := imapMsg.GetBody(section); bodyReader != nil {
			parsed, err := enmime.ReadEnvelope(bodyReader)
			if err != nil {
				parseErr = fmt.Errorf("failed to parse message body: %w", err)
			} else {
				envelope.Body = parsed.Text
				if envelope.Body == "" {
					envelope.Body = parsed.HTML
				}
				if v := parsed.GetHeader("In-Reply-To"); v != "" {
					envelope.InReplyTo = v
				}
				if v := parsed.GetHeader("References"); v != "" {
					envelope.References = strings.Fields(v)
				}
				for _, part := range parsed.Attachments {
					parsedAttachments = append(parsedAttachments, models.Attachment{
						Filename:    part.FileName,
						Size:        int64(len(part.Content)),
						ContentType: part.ContentType,
					})
				}
			}
		}
	}

	// Two independent attachment signals: the content parser's attachment
	// list, and a walk of the message's MIME structure tree.
	structural := collectStructureAttachments(imapMsg.BodyStructure)

	envelope.Attachments = parsedAttachments
	envelope.HasAttachments = len(parsedAttachments) > 0 || len(structural) > 0

	// The structure says attachments exist but the content parser produced
	// none (malformed MIME or header-only fetch): synthesize placeholders so
	// the flag and the list stay consistent.
	if len(structural) > 0 && len(parsedAttachments) == 0 {
		envelope.Attachments = structural
	}

	return envelope, parseErr
}

// collectStructureAttachments walks the MIME structure tree and returns one
// attachment record per part classified as an attachment.
func collectStructureAttachments(part *imap.BodyStructure) []models.Attachment {
	if part == nil {
		return nil
	}

	var attachments []models.Attachment

	if len(part.Parts) > 0 {
		for _, child := range part.Parts {
			attachments = append(attachments, collectStructureAttachments(child)...)
		}
		return attachments
	}

	if !isAttachmentPart(part) {
		return nil
	}

	filename := part.DispositionParams["filename"]
	if filename == "" {
		filename = part.Params["name"]
	}
	if filename == "" {
		filename = "attachment"
	}

	return []models.Attachment{{
		Filename:    filename,
		Size:        int64(part.Size),
		ContentType: strings.ToLower(part.MIMEType + "/" + part.MIMESubType),
	}}
}

// isAttachmentPart classifies one leaf part of the MIME tree.
// Disposition "attachment" always counts; "inline" never does (signature and
// embedded images must not flag a message). Text bodies, multipart containers
// and bare images without an explicit attachment disposition are excluded;
// any other typed part counts.
func isAttachmentPart(part *imap.BodyStructure) bool {
	disposition := strings.ToLower(part.Disposition)
	if disposition == "inline" {
		return false
	}
	if disposition == "attachment" {
		return true
	}

	mimeType := strings.ToLower(part.MIMEType)
	mimeSubType := strings.ToLower(part.MIMESubType)

	switch {
	case mimeType == "multipart":
		return false
	case mimeType == "text" && (mimeSubType == "plain" || mimeSubType == "html"):
		return false
	case mimeType == "image":
		return false
	}

	return mimeType != "" && mimeSubType != ""
}

// formatAddress formats an IMAP address to a string.
func formatAddress(address *imap.Address) string {
	if address == nil {
		return ""
	}

	if address.MailboxName == "" && address.HostName == "" {
		return ""
	}

	if address.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", address.PersonalName, address.MailboxName, address.HostName)
	}

	return fmt.Sprintf("%s@%s", address.MailboxName, address.HostName)
}

// formatAddressList formats a list of IMAP addresses.
func formatAddressList(addresses []*imap.Address) []string {
	result := make([]string, 0, len(addresses))
	for _, address := range addresses {
		formatted := formatAddress(address)
		if formatted != "" {
			result = append(result, formatted)
		}
	}
	return result
}
