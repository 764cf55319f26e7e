package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/mailbridge/backend/internal/api"
	"github.com/mailbridge/backend/internal/auth"
	"github.com/mailbridge/backend/internal/config"
	"github.com/mailbridge/backend/internal/crypto"
	"github.com/mailbridge/backend/internal/imap"
	"github.com/mailbridge/backend/internal/smtp"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}

	address := ":" + cfg.Port
	log.Printf("Mailbridge backend starting on %s (environment: %s)", address, cfg.Environment)

	if err := http.ListenAndServe(address, server); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// NewServer wires the mailbox service and handlers into an HTTP handler.
func NewServer(cfg *config.Config) (http.Handler, error) {
	encryptor, err := crypto.NewEncryptor(cfg.TokenKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}

	factory := imap.NewFactory(cfg.IMAPAddress(), cfg.IMAPUseTLS, cfg.IMAPTimeout)
	tracker := imap.NewUnreadTracker()
	mailbox := imap.NewService(factory, tracker, cfg.PageSize, cfg.DraftsFolder)
	sender := smtp.NewSender(cfg.SMTPAddress(), cfg.SMTPUseTLS)

	receiveHandler := api.NewReceiveHandler(mailbox, cfg.PageSize)
	sendHandler := api.NewSendHandler(sender, mailbox)
	mutateHandler := api.NewMutateHandler(mailbox)
	attachmentHandler := api.NewAttachmentHandler(mailbox)
	foldersHandler := api.NewFoldersHandler(mailbox)
	senderHandler := api.NewSenderHandler(mailbox, cfg.SentFolder)

	requireAuth := func(method string, handler http.HandlerFunc) http.Handler {
		return auth.RequireCredentials(encryptor, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			handler(w, r)
		}))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", handleRoot)

	mux.Handle("/mail/receive", requireAuth(http.MethodGet, receiveHandler.Receive))
	mux.Handle("/mail/send", requireAuth(http.MethodPost, sendHandler.Send))
	mux.Handle("/mail/save-draft", requireAuth(http.MethodPost, sendHandler.SaveDraft))
	mux.Handle("/mail/mark-read-batch", requireAuth(http.MethodPost, mutateHandler.MarkReadBatch))
	mux.Handle("/mail/move-to-folder", requireAuth(http.MethodPost, mutateHandler.MoveToFolder))
	mux.Handle("/mail/delete-forever", requireAuth(http.MethodPost, mutateHandler.DeleteForever))
	mux.Handle("/mail/download-attachment", requireAuth(http.MethodPost, attachmentHandler.Download))
	mux.Handle("/mail/emails-from-sender", requireAuth(http.MethodGet, senderHandler.EmailsFromSender))
	mux.Handle("/mail/emails-sent-to", requireAuth(http.MethodGet, senderHandler.EmailsSentTo))
	mux.Handle("/mail/folders", requireAuth(http.MethodGet, foldersHandler.GetFolders))

	return mux, nil
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Mailbridge API is running")
}
