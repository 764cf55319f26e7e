package api

import (
	"net/http"

	"github.com/mailbridge/backend/internal/imap"
)

// ReceiveHandler serves paginated, threaded folder pages.
type ReceiveHandler struct {
	service     imap.MailboxService
	defaultPage int
}

// NewReceiveHandler creates a new ReceiveHandler instance.
func NewReceiveHandler(service imap.MailboxService, defaultPage int) *ReceiveHandler {
	return &ReceiveHandler{service: service, defaultPage: defaultPage}
}

// Receive returns one page of the requested folder, newest first. The
// category query parameter names the folder (default INBOX); beforeUid is
// the cursor from the previous page's nextCursor.
func (h *ReceiveHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, ok := GetCredentialsFromRequest(ctx, w)
	if !ok {
		return
	}

	folder := r.URL.Query().Get("category")
	if folder == "" {
		folder = "INBOX"
	}
	beforeUID := ParseUintParam(r, "beforeUid", 0)
	limit := ParseIntParam(r, "limit", h.defaultPage)

	page, err := h.service.FetchPage(ctx, creds, folder, beforeUID, limit)
	if err != nil {
		WriteMailError(w, "ReceiveHandler", err)
		return
	}

	WriteJSONResponse(w, page)
}
