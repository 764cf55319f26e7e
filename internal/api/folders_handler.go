package api

import (
	"net/http"

	"github.com/mailbridge/backend/internal/imap"
)

// FoldersHandler lists the folders of the remote mailbox.
type FoldersHandler struct {
	service imap.MailboxService
}

// NewFoldersHandler creates a new FoldersHandler instance.
func NewFoldersHandler(service imap.MailboxService) *FoldersHandler {
	return &FoldersHandler{service: service}
}

// GetFolders returns the folder names of the current account, sorted.
func (h *FoldersHandler) GetFolders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, ok := GetCredentialsFromRequest(ctx, w)
	if !ok {
		return
	}

	folders, err := h.service.ListFolders(ctx, creds)
	if err != nil {
		WriteMailError(w, "FoldersHandler", err)
		return
	}

	if folders == nil {
		folders = []string{}
	}
	WriteJSONResponse(w, folders)
}
