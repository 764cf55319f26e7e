package imap

import (
	"sort"

	"github.com/mailbridge/backend/internal/models"
)

// AssembleThreads groups a flat page of decoded messages into threads by
// walking each message's References chain. Threading is a best-effort,
// single-page operation: ancestors that live on other pages are not
// resolved, so a message whose whole chain is off-page roots its own thread.
//
// The returned list is what the UI shows at the top level, newest first
// (ties broken by UID descending): one entry per thread, the entry being the
// thread's most recent message, with the remaining members attached
// oldest-first as ThreadMessages. Assembling the flattened result again
// yields the same grouping.
func AssembleThreads(messages []*models.Message) []*models.Message {
	byID := make(map[string]*models.Message, len(messages))
	for _, msg := range messages {
		if msg.MessageID != "" {
			byID[msg.MessageID] = msg
		}
	}

	// Reset thread annotations so reassembly starts from a clean slate.
	for _, msg := range messages {
		msg.ThreadMessages = nil
		msg.ThreadSize = 0
	}

	groups := make(map[*models.Message][]*models.Message)
	order := make([]*models.Message, 0, len(messages))
	for _, msg := range messages {
		root := resolveRoot(msg, byID)
		if _, seen := groups[root]; !seen {
			order = append(order, root)
		}
		groups[root] = append(groups[root], msg)
	}

	result := make([]*models.Message, 0, len(order))
	for _, root := range order {
		members := groups[root]
		sortOldestFirst(members)

		display := members[len(members)-1]
		display.ThreadSize = len(members)
		if len(members) > 1 {
			display.ThreadMessages = make([]*models.Message, 0, len(members)-1)
			for _, member := range members {
				if member != display {
					display.ThreadMessages = append(display.ThreadMessages, member)
				}
			}
		}
		result = append(result, display)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return newerThan(result[i], result[j])
	})
	return result
}

// resolveRoot walks the references chain oldest-first and follows the
// earliest ancestor present in the batch, transitively. A visited set guards
// against reference cycles in malformed mail.
func resolveRoot(msg *models.Message, byID map[string]*models.Message) *models.Message {
	visited := map[*models.Message]bool{msg: true}

	current := msg
	for {
		var next *models.Message
		for _, ref := range current.References {
			if ancestor, ok := byID[ref]; ok && !visited[ancestor] {
				next = ancestor
				break
			}
		}
		if next == nil {
			return current
		}
		visited[next] = true
		current = next
	}
}

func sortOldestFirst(members []*models.Message) {
	sort.SliceStable(members, func(i, j int) bool {
		return newerThan(members[j], members[i])
	})
}

// newerThan orders by date descending with UID descending as tie-break.
func newerThan(a, b *models.Message) bool {
	switch {
	case a.Date == nil && b.Date == nil:
		return a.UID > b.UID
	case a.Date == nil:
		return false
	case b.Date == nil:
		return true
	case a.Date.Equal(*b.Date):
		return a.UID > b.UID
	default:
		return a.Date.After(*b.Date)
	}
}
