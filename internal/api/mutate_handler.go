package api

import (
	"encoding/json"
	"net/http"

	"github.com/mailbridge/backend/internal/imap"
)

// MutateHandler serves the single-purpose mutation endpoints: mark-read,
// move, and permanent delete. Each request opens and closes its own
// read-write session; nothing is shared with read flows.
type MutateHandler struct {
	service imap.MailboxService
}

// NewMutateHandler creates a new MutateHandler instance.
func NewMutateHandler(service imap.MailboxService) *MutateHandler {
	return &MutateHandler{service: service}
}

type markReadRequest struct {
	Folder string   `json:"folder"`
	UIDs   []uint32 `json:"uids"`
}

// MarkReadBatch records the UIDs as viewed and flushes the whole pending
// unread set as one batched \Seen mutation. The UI calls this on
// navigation, tab hide, and pre-unload.
func (h *MutateHandler) MarkReadBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, ok := GetCredentialsFromRequest(ctx, w)
	if !ok {
		return
	}

	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.UIDs) == 0 {
		http.Error(w, "uids is required", http.StatusBadRequest)
		return
	}
	if req.Folder == "" {
		req.Folder = "INBOX"
	}

	if err := h.service.MarkRead(ctx, creds, req.Folder, req.UIDs); err != nil {
		WriteMailError(w, "MutateHandler", err)
		return
	}

	WriteJSONResponse(w, map[string]string{"message": "Messages marked as read"})
}

type moveRequest struct {
	UID          uint32 `json:"uid"`
	SourceFolder string `json:"sourceFolder"`
	ToFolder     string `json:"toFolder"`
}

// MoveToFolder moves one message between folders. An invalid destination
// name is a 404; the message stays where it was.
func (h *MutateHandler) MoveToFolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, ok := GetCredentialsFromRequest(ctx, w)
	if !ok {
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UID == 0 || req.SourceFolder == "" || req.ToFolder == "" {
		http.Error(w, "uid, sourceFolder and toFolder are required", http.StatusBadRequest)
		return
	}

	if err := h.service.MoveToFolder(ctx, creds, req.UID, req.SourceFolder, req.ToFolder); err != nil {
		WriteMailError(w, "MutateHandler", err)
		return
	}

	WriteJSONResponse(w, map[string]string{"message": "Message moved"})
}

type deleteForeverRequest struct {
	UID        uint32 `json:"uid"`
	FolderName string `json:"folderName"`
}

// DeleteForever permanently removes one message from its folder.
func (h *MutateHandler) DeleteForever(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, ok := GetCredentialsFromRequest(ctx, w)
	if !ok {
		return
	}

	var req deleteForeverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UID == 0 || req.FolderName == "" {
		http.Error(w, "uid and folderName are required", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteForever(ctx, creds, req.UID, req.FolderName); err != nil {
		WriteMailError(w, "MutateHandler", err)
		return
	}

	WriteJSONResponse(w, map[string]string{"message": "Message deleted"})
}
