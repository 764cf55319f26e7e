package imap

import (
	"fmt"
	"sort"
	"sync"

	"github.com/emersion/go-imap"
)

// TrackerKey scopes a pending unread set. UIDs are only unique within a
// folder, so the account alone is not enough.
type TrackerKey struct {
	Account string
	Folder  string
}

// FlagSetter is the slice of a session the tracker needs to flush.
type FlagSetter interface {
	AddFlags(uids []uint32, flag string) error
}

// UnreadTracker holds the UIDs the UI has displayed but the server has not
// yet confirmed as read. It is shared across concurrent requests and guarded
// by a mutex: a flush snapshots-and-clears its set atomically, so UIDs marked
// viewed while a flush is in flight start a fresh batch instead of being
// lost or double-sent.
type UnreadTracker struct {
	mu      sync.Mutex
	pending map[TrackerKey]map[uint32]struct{}
}

// NewUnreadTracker creates an empty tracker.
func NewUnreadTracker() *UnreadTracker {
	return &UnreadTracker{pending: make(map[TrackerKey]map[uint32]struct{})}
}

// MarkViewed records that the UI displayed the given UIDs.
func (t *UnreadTracker) MarkViewed(key TrackerKey, uids ...uint32) {
	if len(uids) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.pending[key]
	if !ok {
		set = make(map[uint32]struct{})
		t.pending[key] = set
	}
	for _, uid := range uids {
		set[uid] = struct{}{}
	}
}

// Pending returns the UIDs currently awaiting a flush, sorted ascending.
func (t *UnreadTracker) Pending(key TrackerKey) []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedUIDs(t.pending[key])
}

// ClearConfirmed drops UIDs the server already reports as read, so a later
// flush does not resend them.
func (t *UnreadTracker) ClearConfirmed(key TrackerKey, uids ...uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.pending[key]
	if !ok {
		return
	}
	for _, uid := range uids {
		delete(set, uid)
	}
	if len(set) == 0 {
		delete(t.pending, key)
	}
}

// Flush sends the whole pending set as one batched \Seen mutation. The set
// is cleared before the call; if the call fails, the snapshot is merged back
// so a retry resends every UID exactly once.
func (t *UnreadTracker) Flush(key TrackerKey, session FlagSetter) error {
	t.mu.Lock()
	snapshot := t.pending[key]
	delete(t.pending, key)
	t.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}

	if err := session.AddFlags(sortedUIDs(snapshot), imap.SeenFlag); err != nil {
		t.mu.Lock()
		set, ok := t.pending[key]
		if !ok {
			t.pending[key] = snapshot
		} else {
			for uid := range snapshot {
				set[uid] = struct{}{}
			}
		}
		t.mu.Unlock()
		return fmt.Errorf("flush unread set for %s/%s: %w", key.Account, key.Folder, err)
	}

	return nil
}

func sortedUIDs(set map[uint32]struct{}) []uint32 {
	if len(set) == 0 {
		return nil
	}
	uids := make([]uint32, 0, len(set))
	for uid := range set {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids
}
