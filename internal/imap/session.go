package imap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	uidplus "github.com/emersion/go-imap-uidplus"
	"github.com/emersion/go-imap/client"
	"github.com/mailbridge/backend/internal/models"
)

// Mode selects how a session opens its folder.
type Mode int

const (
	// ReadOnly is used by list/fetch flows; the server must not mutate flags.
	ReadOnly Mode = iota
	// ReadWrite is used by mutation flows (flags, moves, expunges, appends).
	ReadWrite
)

// Factory opens sessions against the remote mail store. A session is scoped
// to one logical operation set and is always closed afterwards; sessions are
// never pooled or reused across requests.
type Factory struct {
	Address string
	UseTLS  bool
	Timeout time.Duration
}

// NewFactory creates a session factory for the given server address.
func NewFactory(address string, useTLS bool, timeout time.Duration) *Factory {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Factory{Address: address, UseTLS: useTLS, Timeout: timeout}
}

// Open dials the server, authenticates, and selects the folder. The returned
// session must be closed by the caller regardless of the outcome of the
// enclosing operation. Every protocol round-trip on the session is bounded
// by the factory timeout.
func (f *Factory) Open(ctx context.Context, creds models.Credentials, folder string, mode Mode) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open session: %w: %v", ErrTimeout, err)
	}

	c, err := f.dial()
	if err != nil {
		return nil, err
	}
	c.Timeout = f.Timeout

	if err := c.Login(creds.Username, creds.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("login %q: %w: %v", creds.Username, ErrAuthentication, err)
	}

	mbox, err := c.Select(folder, mode == ReadOnly)
	if err != nil {
		_ = c.Logout()
		return nil, classifySelectError(folder, err)
	}

	return &Session{c: c, uidplus: uidplus.NewClient(c), folder: folder, mailbox: mbox}, nil
}

func (f *Factory) dial() (*client.Client, error) {
	dialer := &net.Dialer{Timeout: f.Timeout}

	var c *client.Client
	var err error
	if f.UseTLS {
		c, err = client.DialWithDialerTLS(dialer, f.Address, nil)
	} else {
		// Non-TLS connection for testing
		c, err = client.DialWithDialer(dialer, f.Address)
	}
	if err != nil {
		if isTimeoutError(err) {
			return nil, fmt.Errorf("dial %s: %w: %v", f.Address, ErrTimeout, err)
		}
		return nil, fmt.Errorf("dial %s: %w: %v", f.Address, ErrConnection, err)
	}

	return c, nil
}

// Session is a live, authenticated connection with one folder selected.
type Session struct {
	c       *client.Client
	uidplus *uidplus.Client
	folder  string
	mailbox *imap.MailboxStatus
}

// Folder returns the name of the selected folder.
func (s *Session) Folder() string {
	return s.folder
}

// TotalMessages returns the message count of the selected folder.
func (s *Session) TotalMessages() uint32 {
	return s.mailbox.Messages
}

// Close logs out and tears down the connection. Safe to defer; errors on
// teardown are swallowed because the operation outcome is already decided.
func (s *Session) Close() {
	_ = s.c.Logout()
}

// SearchAll returns all UIDs in the folder, ascending.
func (s *Session) SearchAll() ([]uint32, error) {
	return s.search(imap.NewSearchCriteria())
}

// SearchUnseen returns the UIDs of messages without the \Seen flag, ascending.
func (s *Session) SearchUnseen() ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	return s.search(criteria)
}

// SearchBefore returns the UIDs strictly below beforeUID, ascending.
func (s *Session) SearchBefore(beforeUID uint32) ([]uint32, error) {
	if beforeUID <= 1 {
		return nil, nil
	}
	criteria := imap.NewSearchCriteria()
	criteria.Uid = new(imap.SeqSet)
	criteria.Uid.AddRange(1, beforeUID-1)
	return s.search(criteria)
}

// SearchFrom returns the UIDs of messages whose From header contains the
// address, ascending.
func (s *Session) SearchFrom(address string) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("From", address)
	return s.search(criteria)
}

// SearchTo returns the UIDs of messages whose To header contains the
// address, ascending.
func (s *Session) SearchTo(address string) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("To", address)
	return s.search(criteria)
}

// SearchHeader returns the UIDs of messages carrying the given header value,
// ascending. Used to locate a just-appended draft by its Message-ID.
func (s *Session) SearchHeader(name, value string) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Header.Add(name, value)
	return s.search(criteria)
}

func (s *Session) search(criteria *imap.SearchCriteria) ([]uint32, error) {
	uids, err := s.c.UidSearch(criteria)
	if err != nil {
		return nil, s.wrapProtocolError("search", err)
	}
	// Servers are not required to return search results in UID order.
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

// FetchRaw fetches the full raw bytes of each message and hands them to
// handle one at a time, in server order, without accumulating the batch in
// memory. The body slice is only valid during that call.
func (s *Session) FetchRaw(uids []uint32, handle func(uid uint32, flags []string, body []byte)) error {
	if len(uids) == 0 {
		return nil
	}

	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchFlags, imap.FetchUid}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- s.c.UidFetch(seqSet, items, messages)
	}()

	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(body); err != nil {
			continue
		}
		handle(msg.Uid, msg.Flags, buf.Bytes())
	}

	if err := <-done; err != nil {
		return s.wrapProtocolError("fetch", err)
	}

	return nil
}

// AddFlags sets the flag on the given UIDs (silent store).
func (s *Session) AddFlags(uids []uint32, flag string) error {
	return s.storeFlags(uids, imap.AddFlags, flag)
}

// RemoveFlags clears the flag on the given UIDs (silent store).
func (s *Session) RemoveFlags(uids []uint32, flag string) error {
	return s.storeFlags(uids, imap.RemoveFlags, flag)
}

func (s *Session) storeFlags(uids []uint32, op imap.FlagsOp, flag string) error {
	if len(uids) == 0 {
		return nil
	}

	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	item := imap.FormatFlagsOp(op, true)
	if err := s.c.UidStore(seqSet, item, []interface{}{flag}, nil); err != nil {
		return s.wrapProtocolError("store flags", err)
	}

	return nil
}

// Move moves the given UIDs to the destination folder. The destination is
// verified first so an invalid name surfaces as ErrFolderNotFound instead of
// a silent misfile.
func (s *Session) Move(uids []uint32, destFolder string) error {
	if len(uids) == 0 {
		return nil
	}

	folders, err := s.ListFolders()
	if err != nil {
		return err
	}
	found := false
	for _, name := range folders {
		if name == destFolder {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("move to %q: %w", destFolder, ErrFolderNotFound)
	}

	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	err = s.c.UidMove(seqSet, destFolder)
	if err == nil {
		return nil
	}
	// Only a command rejection warrants the fallback. A timed-out or dead
	// connection must not get a second mutation attempt.
	if isTimeoutError(err) || s.c.State() != imap.SelectedState {
		return s.wrapProtocolError("move", err)
	}

	// Servers that reject MOVE get the classic copy, flag, expunge sequence.
	// The expunge precondition is checked before the copy so a refusal leaves
	// both folders untouched, and Message-IDs are captured up front so a
	// failure after the copy can locate and remove the stray copies.
	if err := s.checkExpungeCollateral(uids); err != nil {
		return err
	}
	ids, err := s.messageIDs(uids)
	if err != nil {
		return err
	}
	if err := s.c.UidCopy(seqSet, destFolder); err != nil {
		return s.wrapProtocolError("copy", err)
	}
	if err := s.AddFlags(uids, imap.DeletedFlag); err != nil {
		s.removeCopies(destFolder, ids)
		return err
	}
	if err := s.Expunge(uids); err != nil {
		_ = s.RemoveFlags(uids, imap.DeletedFlag)
		s.removeCopies(destFolder, ids)
		return err
	}
	return nil
}

// messageIDs fetches the Message-ID header of each UID. Used to locate stray
// copies when a fallback move has to be rolled back.
func (s *Session) messageIDs(uids []uint32) ([]string, error) {
	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- s.c.UidFetch(seqSet, []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid}, messages)
	}()

	var ids []string
	for msg := range messages {
		if msg.Envelope != nil && msg.Envelope.MessageId != "" {
			ids = append(ids, msg.Envelope.MessageId)
		}
	}

	if err := <-done; err != nil {
		return nil, s.wrapProtocolError("fetch envelope", err)
	}

	return ids, nil
}

// removeCopies is the destination-side rollback for a failed fallback move:
// reselect destFolder, remove any message carrying one of the Message-IDs,
// reselect the original folder. Best effort; the caller surfaces the move
// error regardless.
func (s *Session) removeCopies(destFolder string, messageIDs []string) {
	if len(messageIDs) == 0 {
		return
	}
	if _, err := s.c.Select(destFolder, false); err != nil {
		return
	}
	defer func() {
		if mbox, err := s.c.Select(s.folder, false); err == nil {
			s.mailbox = mbox
		}
	}()

	var found []uint32
	for _, id := range messageIDs {
		uids, err := s.SearchHeader("Message-Id", id)
		if err != nil {
			return
		}
		found = append(found, uids...)
	}
	if len(found) == 0 {
		return
	}
	if err := s.AddFlags(found, imap.DeletedFlag); err != nil {
		return
	}
	if err := s.Expunge(found); err != nil {
		_ = s.RemoveFlags(found, imap.DeletedFlag)
	}
}

// Expunge permanently removes exactly the given UIDs, which must already
// carry \Deleted. With UIDPLUS this is a single UID EXPUNGE. Without it, a
// plain EXPUNGE is only issued after verifying that no other message in the
// folder carries \Deleted; otherwise the call fails so the caller can roll
// back, because a plain EXPUNGE would take those messages with it.
func (s *Session) Expunge(uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}

	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	supported, err := s.uidplus.SupportUidPlus()
	if err != nil {
		return s.wrapProtocolError("capability", err)
	}

	if supported {
		if err := s.uidplus.UidExpunge(seqSet, nil); err != nil {
			return s.wrapProtocolError("uid expunge", err)
		}
		return nil
	}

	if err := s.checkExpungeCollateral(uids); err != nil {
		return err
	}

	if err := s.c.Expunge(nil); err != nil {
		return s.wrapProtocolError("expunge", err)
	}

	return nil
}

// checkExpungeCollateral reports whether expunging exactly uids is possible.
// With UIDPLUS it always is. Without it, a message outside uids carrying
// \Deleted makes a plain EXPUNGE unsafe, so the check fails with
// ErrExpungeConflict and nothing should be mutated.
func (s *Session) checkExpungeCollateral(uids []uint32) error {
	supported, err := s.uidplus.SupportUidPlus()
	if err != nil {
		return s.wrapProtocolError("capability", err)
	}
	if supported {
		return nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithFlags = []string{imap.DeletedFlag}
	deleted, err := s.c.UidSearch(criteria)
	if err != nil {
		return s.wrapProtocolError("search deleted", err)
	}

	targets := make(map[uint32]bool, len(uids))
	for _, uid := range uids {
		targets[uid] = true
	}
	for _, uid := range deleted {
		if !targets[uid] {
			return fmt.Errorf("expunge would also remove uid %d: %w", uid, ErrExpungeConflict)
		}
	}

	return nil
}

// ListFolders lists all folder names on the server.
func (s *Session) ListFolders() ([]string, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- s.c.List("", "*", mailboxes)
	}()

	var folders []string
	for m := range mailboxes {
		folders = append(folders, m.Name)
	}

	if err := <-done; err != nil {
		return nil, s.wrapProtocolError("list folders", err)
	}

	sort.Strings(folders)
	return folders, nil
}

// Append stores a full message into the named folder with the given flags.
func (s *Session) Append(folder string, flags []string, raw []byte) error {
	if err := s.c.Append(folder, flags, time.Now(), bytes.NewReader(raw)); err != nil {
		return classifySelectError(folder, err)
	}
	return nil
}

func (s *Session) wrapProtocolError(op string, err error) error {
	if isTimeoutError(err) {
		return fmt.Errorf("%s in %q: %w: %v", op, s.folder, ErrTimeout, err)
	}
	return fmt.Errorf("%s in %q: %w: %v", op, s.folder, ErrConnection, err)
}

// classifySelectError distinguishes "that folder does not exist" from
// transport trouble. IMAP has no structured error code here, so this matches
// the phrasings common servers use.
func classifySelectError(folder string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "no such mailbox") ||
		strings.Contains(msg, "doesn't exist") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "unknown mailbox") ||
		strings.Contains(msg, "trycreate") {
		return fmt.Errorf("folder %q: %w", folder, ErrFolderNotFound)
	}
	if isTimeoutError(err) {
		return fmt.Errorf("select %q: %w: %v", folder, ErrTimeout, err)
	}
	return fmt.Errorf("select %q: %w: %v", folder, ErrConnection, err)
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "i/o timeout")
}
