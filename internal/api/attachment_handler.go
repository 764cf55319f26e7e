package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/mailbridge/backend/internal/imap"
)

// AttachmentHandler streams single attachments for download.
type AttachmentHandler struct {
	service imap.MailboxService
}

// NewAttachmentHandler creates a new AttachmentHandler instance.
func NewAttachmentHandler(service imap.MailboxService) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

type downloadRequest struct {
	UID      uint32 `json:"uid"`
	Filename string `json:"filename"`
	Folder   string `json:"folder"`
}

// Download resolves one attachment by UID and filename and writes it as a
// binary download. Only the target message is fetched from the store.
func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, ok := GetCredentialsFromRequest(ctx, w)
	if !ok {
		return
	}

	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UID == 0 || req.Filename == "" {
		http.Error(w, "uid and filename are required", http.StatusBadRequest)
		return
	}
	if req.Folder == "" {
		req.Folder = "INBOX"
	}

	mimeType, content, err := h.service.FetchAttachment(ctx, creds, req.Folder, req.UID, req.Filename)
	if err != nil {
		WriteMailError(w, "AttachmentHandler", err)
		return
	}

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.Filename))
	if _, err := w.Write(content); err != nil {
		log.Printf("AttachmentHandler: Failed to write attachment: %v", err)
	}
}
