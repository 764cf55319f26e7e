package api

import (
	"io"
	"log"
	"net/http"
	"net/mail"
	"strings"

	"github.com/mailbridge/backend/internal/imap"
	"github.com/mailbridge/backend/internal/models"
	"github.com/mailbridge/backend/internal/smtp"
)

// Uploads are capped at 25 MB, the common provider limit for a whole message.
const maxSendFormSize = 25 << 20

// SendHandler serves message submission and draft saving. Both accept the
// same multipart form, so the composer UI posts to either interchangeably.
type SendHandler struct {
	sender  *smtp.Sender
	service imap.MailboxService
}

// NewSendHandler creates a new SendHandler instance.
func NewSendHandler(sender *smtp.Sender, service imap.MailboxService) *SendHandler {
	return &SendHandler{sender: sender, service: service}
}

// Send composes the message from the multipart form and relays it over SMTP.
func (h *SendHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, ok := GetCredentialsFromRequest(ctx, w)
	if !ok {
		return
	}

	msg, ok := h.parseOutgoingMessage(w, r, creds)
	if !ok {
		return
	}

	messageID, raw, err := smtp.Compose(msg)
	if err != nil {
		log.Printf("SendHandler: Failed to compose message: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.sender.Send(creds, msg, raw); err != nil {
		log.Printf("SendHandler: Failed to send message: %v", err)
		http.Error(w, "Failed to send message", http.StatusBadGateway)
		return
	}

	WriteJSONResponse(w, map[string]interface{}{
		"message": "Message sent",
		"info":    map[string]string{"messageId": messageID},
	})
}

// SaveDraft composes the message the same way Send does and appends it to
// the drafts folder instead of relaying it. Responds with the draft's UID.
func (h *SendHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, ok := GetCredentialsFromRequest(ctx, w)
	if !ok {
		return
	}

	msg, ok := h.parseOutgoingMessage(w, r, creds)
	if !ok {
		return
	}

	messageID, raw, err := smtp.Compose(msg)
	if err != nil {
		log.Printf("SendHandler: Failed to compose draft: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	uid, err := h.service.SaveDraft(ctx, creds, messageID, raw)
	if err != nil {
		WriteMailError(w, "SendHandler", err)
		return
	}

	WriteJSONResponse(w, map[string]interface{}{"uid": uid})
}

func (h *SendHandler) parseOutgoingMessage(w http.ResponseWriter, r *http.Request, creds models.Credentials) (smtp.OutgoingMessage, bool) {
	var msg smtp.OutgoingMessage

	if err := r.ParseMultipartForm(maxSendFormSize); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return msg, false
	}

	to := parseAddressField(r.FormValue("to"))
	if len(to) == 0 {
		http.Error(w, "to is required", http.StatusBadRequest)
		return msg, false
	}

	msg = smtp.OutgoingMessage{
		From:       models.Address{Email: creds.Username},
		To:         to,
		Cc:         parseAddressField(r.FormValue("cc")),
		Bcc:        parseAddressField(r.FormValue("bcc")),
		Subject:    r.FormValue("subject"),
		Text:       r.FormValue("text"),
		HTML:       r.FormValue("html"),
		InReplyTo:  strings.TrimSpace(r.FormValue("inReplyTo")),
		References: strings.Fields(r.FormValue("references")),
	}

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["attachments"] {
			file, err := header.Open()
			if err != nil {
				http.Error(w, "Failed to read attachment", http.StatusBadRequest)
				return msg, false
			}
			content, err := io.ReadAll(file)
			_ = file.Close()
			if err != nil {
				http.Error(w, "Failed to read attachment", http.StatusBadRequest)
				return msg, false
			}

			mimeType := header.Header.Get("Content-Type")
			if mimeType == "" {
				mimeType = "application/octet-stream"
			}
			msg.Attachments = append(msg.Attachments, smtp.FileAttachment{
				Filename: header.Filename,
				MimeType: mimeType,
				Content:  content,
			})
		}
	}

	return msg, true
}

// parseAddressField accepts a comma-separated address list in either
// "Name <addr>" or bare "addr" form.
func parseAddressField(value string) []models.Address {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if parsed, err := mail.ParseAddressList(value); err == nil {
		result := make([]models.Address, 0, len(parsed))
		for _, addr := range parsed {
			result = append(result, models.Address{Name: addr.Name, Email: addr.Address})
		}
		return result
	}

	// Malformed list; fall back to treating each piece as a bare address.
	var result []models.Address
	for _, piece := range strings.Split(value, ",") {
		piece = strings.TrimSpace(piece)
		if piece != "" {
			result = append(result, models.Address{Email: piece})
		}
	}
	return result
}
