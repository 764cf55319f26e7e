package imap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/emersion/go-imap"
	"github.com/mailbridge/backend/internal/models"
)

// Service orchestrates mailbox views and mutations. Every operation opens
// its own session, performs one logical operation set, and closes it; no
// session state is shared between requests. The only cross-request state is
// the unread tracker, which has its own locking.
type Service struct {
	factory      SessionFactory
	tracker      *UnreadTracker
	pageSize     int
	draftsFolder string
}

// NewService creates a mailbox view service.
func NewService(factory SessionFactory, tracker *UnreadTracker, pageSize int, draftsFolder string) *Service {
	if tracker == nil {
		tracker = NewUnreadTracker()
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	if draftsFolder == "" {
		draftsFolder = "Drafts"
	}
	return &Service{
		factory:      factory,
		tracker:      tracker,
		pageSize:     pageSize,
		draftsFolder: draftsFolder,
	}
}

// Tracker exposes the unread tracker for direct lifecycle calls.
func (s *Service) Tracker() *UnreadTracker {
	return s.tracker
}

// FetchPage answers "give me the page of folder F before cursor C". It runs
// the whole read flow against one read-only session: count unseen, search
// the UID universe, window it, fetch raw bytes, decode, thread. A decode
// failure omits that one message and never fails the page.
func (s *Service) FetchPage(ctx context.Context, creds models.Credentials, folder string, beforeUID uint32, limit int) (*models.FolderPage, error) {
	if limit <= 0 {
		limit = s.pageSize
	}

	session, err := s.factory.OpenSession(ctx, creds, folder, ReadOnly)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	unseen, err := session.SearchUnseen()
	if err != nil {
		return nil, err
	}

	var universe []uint32
	if beforeUID > 0 {
		universe, err = session.SearchBefore(beforeUID)
	} else {
		universe, err = session.SearchAll()
	}
	if err != nil {
		return nil, err
	}

	page := &models.FolderPage{
		Folder:        folder,
		TotalMessages: session.TotalMessages(),
		Messages:      []*models.Message{},
	}

	window := ComputeWindow(universe, beforeUID, limit)

	decoded := make([]*models.Message, 0, len(window))
	if len(window) > 0 {
		err = session.FetchRaw(window, func(uid uint32, flags []string, body []byte) {
			msg, decodeErr := DecodeMessage(uid, folder, flags, body)
			if decodeErr != nil {
				log.Printf("Service: Skipping message UID %d in %s: %v", uid, folder, decodeErr)
				return
			}
			decoded = append(decoded, msg)
		})
		if err != nil {
			return nil, err
		}
	}

	pending := s.annotateUnread(creds, folder, decoded)

	// The unread total discounts messages already viewed but not yet
	// flushed, so the count matches the rows the page renders.
	for _, uid := range unseen {
		if !pending[uid] {
			page.TotalUnreadMessages++
		}
	}

	page.Messages = AssembleThreads(decoded)
	page.NextCursor = NextCursor(window, universe)
	return page, nil
}

// annotateUnread reconciles the page against the pending unread set: UIDs
// the server confirms as read leave the set, and UIDs still pending are
// shown as read even before the flush lands. Returns the pending set after
// reconciliation.
func (s *Service) annotateUnread(creds models.Credentials, folder string, messages []*models.Message) map[uint32]bool {
	key := TrackerKey{Account: creds.Username, Folder: folder}

	pending := make(map[uint32]bool)
	for _, uid := range s.tracker.Pending(key) {
		pending[uid] = true
	}

	var confirmed []uint32
	for _, msg := range messages {
		if msg.IsRead {
			if pending[msg.UID] {
				confirmed = append(confirmed, msg.UID)
			}
			continue
		}
		if pending[msg.UID] {
			msg.IsRead = true
		}
	}

	if len(confirmed) > 0 {
		s.tracker.ClearConfirmed(key, confirmed...)
		for _, uid := range confirmed {
			delete(pending, uid)
		}
	}

	return pending
}

// MarkRead is the flush trigger: the UI calls it on navigation, tab hide and
// pre-unload. It batches everything viewed since the last successful flush
// into a single flag mutation. On failure the set is retained for retry.
func (s *Service) MarkRead(ctx context.Context, creds models.Credentials, folder string, uids []uint32) error {
	key := TrackerKey{Account: creds.Username, Folder: folder}
	s.tracker.MarkViewed(key, uids...)

	session, err := s.factory.OpenSession(ctx, creds, folder, ReadWrite)
	if err != nil {
		return err
	}
	defer session.Close()

	return s.tracker.Flush(key, session)
}

// MoveToFolder moves one message out of sourceFolder. The destination is
// validated; a bad name surfaces as ErrFolderNotFound with nothing moved.
func (s *Service) MoveToFolder(ctx context.Context, creds models.Credentials, uid uint32, sourceFolder, destFolder string) error {
	session, err := s.factory.OpenSession(ctx, creds, sourceFolder, ReadWrite)
	if err != nil {
		return err
	}
	defer session.Close()

	return session.Move([]uint32{uid}, destFolder)
}

// DeleteForever permanently removes one message: flag \Deleted, then expunge
// exactly that UID. If the targeted expunge cannot be carried out, the flag
// is rolled back so the folder is left as it was.
func (s *Service) DeleteForever(ctx context.Context, creds models.Credentials, uid uint32, folder string) error {
	session, err := s.factory.OpenSession(ctx, creds, folder, ReadWrite)
	if err != nil {
		return err
	}
	defer session.Close()

	target := []uint32{uid}
	if err := session.AddFlags(target, imap.DeletedFlag); err != nil {
		return err
	}

	if err := session.Expunge(target); err != nil {
		if rollbackErr := session.RemoveFlags(target, imap.DeletedFlag); rollbackErr != nil {
			log.Printf("Service: Failed to roll back \\Deleted on UID %d in %s: %v", uid, folder, rollbackErr)
		}
		return err
	}

	return nil
}

// SaveDraft appends the composed message to the drafts folder and returns
// its UID, located by searching for the Message-ID just written.
func (s *Service) SaveDraft(ctx context.Context, creds models.Credentials, messageID string, raw []byte) (uint32, error) {
	session, err := s.factory.OpenSession(ctx, creds, s.draftsFolder, ReadWrite)
	if err != nil {
		return 0, err
	}
	defer session.Close()

	flags := []string{imap.DraftFlag, imap.SeenFlag}
	if err := session.Append(s.draftsFolder, flags, raw); err != nil {
		return 0, err
	}

	uids, err := session.SearchHeader("Message-Id", messageID)
	if err != nil {
		return 0, err
	}
	if len(uids) == 0 {
		return 0, fmt.Errorf("draft not found after append: %w", ErrConnection)
	}

	return uids[len(uids)-1], nil
}

// MessagesFromSender returns every message in the folder whose From header
// matches the address, oldest first.
func (s *Service) MessagesFromSender(ctx context.Context, creds models.Credentials, folder, address string) ([]*models.Message, error) {
	return s.searchAndDecode(ctx, creds, folder, func(session MailSession) ([]uint32, error) {
		return session.SearchFrom(address)
	})
}

// MessagesSentTo returns every message in the folder whose To header matches
// the address, oldest first.
func (s *Service) MessagesSentTo(ctx context.Context, creds models.Credentials, folder, address string) ([]*models.Message, error) {
	return s.searchAndDecode(ctx, creds, folder, func(session MailSession) ([]uint32, error) {
		return session.SearchTo(address)
	})
}

func (s *Service) searchAndDecode(ctx context.Context, creds models.Credentials, folder string, search func(MailSession) ([]uint32, error)) ([]*models.Message, error) {
	session, err := s.factory.OpenSession(ctx, creds, folder, ReadOnly)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	uids, err := search(session)
	if err != nil {
		return nil, err
	}

	messages := make([]*models.Message, 0, len(uids))
	err = session.FetchRaw(uids, func(uid uint32, flags []string, body []byte) {
		msg, decodeErr := DecodeMessage(uid, folder, flags, body)
		if decodeErr != nil {
			log.Printf("Service: Skipping message UID %d in %s: %v", uid, folder, decodeErr)
			return
		}
		messages = append(messages, msg)
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return newerThan(messages[j], messages[i])
	})
	return messages, nil
}

// ListFolders lists all folder names. The session is opened on INBOX, which
// every IMAP server is required to have.
func (s *Service) ListFolders(ctx context.Context, creds models.Credentials) ([]string, error) {
	session, err := s.factory.OpenSession(ctx, creds, "INBOX", ReadOnly)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	return session.ListFolders()
}

// IsNotFound reports whether the error is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFolderNotFound) || errors.Is(err, ErrAttachmentNotFound)
}
