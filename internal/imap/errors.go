package imap

import "errors"

// Error taxonomy for mailbox operations. Callers match with errors.Is; the
// HTTP layer maps each sentinel to a status code.
var (
	// ErrAuthentication means the remote store rejected the credentials.
	// Not retried; the user has to log in again.
	ErrAuthentication = errors.New("imap: authentication failed")

	// ErrConnection is a transport-level failure. The whole request is safe
	// to retry; individual sub-steps are not.
	ErrConnection = errors.New("imap: connection failed")

	// ErrTimeout means a protocol round-trip exceeded its bound.
	ErrTimeout = errors.New("imap: operation timed out")

	// ErrFolderNotFound means the named folder does not exist on the remote store.
	ErrFolderNotFound = errors.New("imap: folder not found")

	// ErrExpungeConflict means a targeted expunge could not proceed because a
	// message outside the target set already carries \Deleted and the server
	// lacks UIDPLUS. Retrying cannot succeed until that flag clears.
	ErrExpungeConflict = errors.New("imap: expunge conflict")

	// ErrParse is a per-message decode failure. Recovered locally by omitting
	// the message; never surfaced as a request failure.
	ErrParse = errors.New("imap: message parse failed")

	// ErrAttachmentNotFound means no attachment with the requested filename
	// exists on the message, or the message itself is gone.
	ErrAttachmentNotFound = errors.New("imap: attachment not found")
)
