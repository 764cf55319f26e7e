package api

import (
	"net/http"

	"github.com/mailbridge/backend/internal/imap"
	"github.com/mailbridge/backend/internal/models"
)

// SenderHandler serves correspondence queries: all mail received from, or
// sent to, a given address.
type SenderHandler struct {
	service    imap.MailboxService
	sentFolder string
}

// NewSenderHandler creates a new SenderHandler instance. sentFolder names
// the folder searched by EmailsSentTo.
func NewSenderHandler(service imap.MailboxService, sentFolder string) *SenderHandler {
	return &SenderHandler{service: service, sentFolder: sentFolder}
}

// EmailsFromSender returns all messages received from the address, oldest
// first. Searches INBOX unless a folder is given.
func (h *SenderHandler) EmailsFromSender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, ok := GetCredentialsFromRequest(ctx, w)
	if !ok {
		return
	}

	address := r.URL.Query().Get("address")
	if address == "" {
		http.Error(w, "address query parameter is required", http.StatusBadRequest)
		return
	}
	folder := r.URL.Query().Get("folder")
	if folder == "" {
		folder = "INBOX"
	}

	messages, err := h.service.MessagesFromSender(ctx, creds, folder, address)
	if err != nil {
		WriteMailError(w, "SenderHandler", err)
		return
	}

	writeMessageList(w, messages)
}

// EmailsSentTo returns all messages sent to the address, oldest first.
// Searches the configured sent folder unless a folder is given.
func (h *SenderHandler) EmailsSentTo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, ok := GetCredentialsFromRequest(ctx, w)
	if !ok {
		return
	}

	address := r.URL.Query().Get("address")
	if address == "" {
		http.Error(w, "address query parameter is required", http.StatusBadRequest)
		return
	}
	folder := r.URL.Query().Get("folder")
	if folder == "" {
		folder = h.sentFolder
	}

	messages, err := h.service.MessagesSentTo(ctx, creds, folder, address)
	if err != nil {
		WriteMailError(w, "SenderHandler", err)
		return
	}

	writeMessageList(w, messages)
}

func writeMessageList(w http.ResponseWriter, messages []*models.Message) {
	if messages == nil {
		messages = []*models.Message{}
	}
	WriteJSONResponse(w, messages)
}
