package imap

import (
	"context"

	"github.com/mailbridge/backend/internal/models"
)

// MailSession is the protocol surface the orchestrator consumes. It exists
// so service tests can run against fake sessions without a live server.
type MailSession interface {
	Folder() string
	TotalMessages() uint32
	SearchAll() ([]uint32, error)
	SearchUnseen() ([]uint32, error)
	SearchBefore(beforeUID uint32) ([]uint32, error)
	SearchFrom(address string) ([]uint32, error)
	SearchTo(address string) ([]uint32, error)
	SearchHeader(name, value string) ([]uint32, error)
	FetchRaw(uids []uint32, handle func(uid uint32, flags []string, body []byte)) error
	AddFlags(uids []uint32, flag string) error
	RemoveFlags(uids []uint32, flag string) error
	Move(uids []uint32, destFolder string) error
	Expunge(uids []uint32) error
	ListFolders() ([]string, error)
	Append(folder string, flags []string, raw []byte) error
	Close()
}

// SessionFactory opens mail sessions. Implemented by Factory for real
// connections and by fakes in tests.
type SessionFactory interface {
	OpenSession(ctx context.Context, creds models.Credentials, folder string, mode Mode) (MailSession, error)
}

// OpenSession adapts Open to the SessionFactory interface.
func (f *Factory) OpenSession(ctx context.Context, creds models.Credentials, folder string, mode Mode) (MailSession, error) {
	session, err := f.Open(ctx, creds, folder, mode)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// MailboxService defines the operations the HTTP handlers need.
// This interface allows handlers to be tested with mock implementations.
type MailboxService interface {
	// FetchPage returns one page of the folder, newest first, threaded.
	FetchPage(ctx context.Context, creds models.Credentials, folder string, beforeUID uint32, limit int) (*models.FolderPage, error)

	// MarkRead records the UIDs as viewed and flushes the whole pending set
	// as one batched \Seen mutation.
	MarkRead(ctx context.Context, creds models.Credentials, folder string, uids []uint32) error

	// MoveToFolder moves one message between folders. An invalid destination
	// fails with ErrFolderNotFound; nothing is moved elsewhere.
	MoveToFolder(ctx context.Context, creds models.Credentials, uid uint32, sourceFolder, destFolder string) error

	// DeleteForever flags the message \Deleted and expunges exactly that UID.
	DeleteForever(ctx context.Context, creds models.Credentials, uid uint32, folder string) error

	// SaveDraft appends a composed message to the drafts folder and returns
	// the UID assigned to it.
	SaveDraft(ctx context.Context, creds models.Credentials, messageID string, raw []byte) (uint32, error)

	// FetchAttachment resolves one attachment by UID and filename, fetching
	// only that message. Returns the MIME type and content.
	FetchAttachment(ctx context.Context, creds models.Credentials, folder string, uid uint32, filename string) (string, []byte, error)

	// MessagesFromSender returns all messages in the folder from the given
	// address, oldest first.
	MessagesFromSender(ctx context.Context, creds models.Credentials, folder, address string) ([]*models.Message, error)

	// MessagesSentTo returns all messages in the folder addressed to the
	// given address, oldest first.
	MessagesSentTo(ctx context.Context, creds models.Credentials, folder, address string) ([]*models.Message, error)

	// ListFolders lists all folder names on the remote store.
	ListFolders(ctx context.Context, creds models.Credentials) ([]string, error)
}

// Ensure the concrete types implement their interfaces
var (
	_ SessionFactory = (*Factory)(nil)
	_ MailSession    = (*Session)(nil)
	_ MailboxService = (*Service)(nil)
)
