package imap

// ComputeWindow picks the page of UIDs to fetch from the full ascending UID
// list of a folder. beforeUID == 0 means no cursor: the window is the
// numerically largest `limit` UIDs, reversed to newest-first. With a cursor,
// only UIDs strictly below it are considered, then the same rule applies.
// Paging with each page's minimum UID as the next cursor visits every UID
// exactly once with no overlap, as long as nothing is deleted in between;
// deletions mid-pagination are silently skipped, which is safe because UIDs
// are never reused within a folder.
func ComputeWindow(allUIDsAscending []uint32, beforeUID uint32, limit int) []uint32 {
	if limit <= 0 {
		return nil
	}

	eligible := allUIDsAscending
	if beforeUID > 0 {
		eligible = nil
		for _, uid := range allUIDsAscending {
			if uid < beforeUID {
				eligible = append(eligible, uid)
			}
		}
	}

	if len(eligible) > limit {
		eligible = eligible[len(eligible)-limit:]
	}

	window := make([]uint32, len(eligible))
	for i, uid := range eligible {
		window[len(eligible)-1-i] = uid
	}
	return window
}

// NextCursor returns the cursor for the page after window, or zero when the
// window already reaches the oldest message of the eligible universe.
func NextCursor(window []uint32, universe []uint32) uint32 {
	if len(window) == 0 {
		return 0
	}

	oldest := window[len(window)-1]
	for _, uid := range universe {
		if uid < oldest {
			return oldest
		}
	}
	return 0
}
