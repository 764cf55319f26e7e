package imap

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/mailbridge/backend/internal/models"
)

// DecodeMessage turns the raw RFC 822 bytes of one message into a Message.
// It is pure: the same bytes always decode to the same Message. A failure is
// wrapped in ErrParse; callers omit the one message and keep the batch.
func DecodeMessage(uid uint32, folder string, flags []string, raw []byte) (*models.Message, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("decode message uid %d: %w: empty message body", uid, ErrParse)
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode message uid %d: %w: %v", uid, ErrParse, err)
	}

	msg := &models.Message{
		UID:        uid,
		Folder:     folder,
		MessageID:  strings.TrimSpace(envelope.GetHeader("Message-Id")),
		InReplyTo:  strings.TrimSpace(envelope.GetHeader("In-Reply-To")),
		References: strings.Fields(envelope.GetHeader("References")),
		Subject:    envelope.GetHeader("Subject"),
		From:       firstAddress(envelope, "From"),
		To:         addressList(envelope, "To"),
		Cc:         addressList(envelope, "Cc"),
		Bcc:        addressList(envelope, "Bcc"),
		IsRead:     hasFlag(flags, imap.SeenFlag),
		BodyText:   envelope.Text,
		BodyHTML:   envelope.HTML,
	}

	if date, err := mail.ParseDate(envelope.GetHeader("Date")); err == nil {
		msg.Date = &date
	}

	// When there is no HTML part, render the text part as minimal HTML so
	// the UI always has something to display.
	if msg.BodyHTML == "" && msg.BodyText != "" {
		msg.BodyHTML = strings.ReplaceAll(msg.BodyText, "\n", "<br>")
	}

	for _, part := range envelope.Attachments {
		msg.Attachments = append(msg.Attachments, models.Attachment{
			Filename: part.FileName,
			MimeType: part.ContentType,
			Size:     int64(len(part.Content)),
		})
	}

	return msg, nil
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

func firstAddress(envelope *enmime.Envelope, key string) models.Address {
	list := addressList(envelope, key)
	if len(list) == 0 {
		return models.Address{}
	}
	return list[0]
}

func addressList(envelope *enmime.Envelope, key string) []models.Address {
	parsed, err := envelope.AddressList(key)
	if err != nil || len(parsed) == 0 {
		return nil
	}

	result := make([]models.Address, 0, len(parsed))
	for _, addr := range parsed {
		if addr.Address == "" {
			continue
		}
		result = append(result, models.Address{Name: addr.Name, Email: addr.Address})
	}
	return result
}
