package models

import "time"

// Address is a display name plus an email address, as carried in
// From/To/Cc/Bcc headers.
type Address struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Message is one mail message as reflected from the remote store.
// Identity is (account, folder, UID); the UID is only unique within its folder.
type Message struct {
	UID        uint32     `json:"uid"`
	Folder     string     `json:"folder"`
	MessageID  string     `json:"messageId,omitempty"`
	InReplyTo  string     `json:"inReplyTo,omitempty"`
	References []string   `json:"references,omitempty"`
	Subject    string     `json:"subject"`
	From       Address    `json:"from"`
	To         []Address  `json:"to"`
	Cc         []Address  `json:"cc,omitempty"`
	Bcc        []Address  `json:"bcc,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
	BodyText   string     `json:"bodyText"`
	BodyHTML   string     `json:"bodyHtml"`
	IsRead     bool       `json:"isRead"`

	Attachments []Attachment `json:"attachments,omitempty"`

	// ThreadMessages holds the other members of this message's thread,
	// oldest first. Only set on the entry shown in the top-level list.
	ThreadMessages []*Message `json:"threadMessages,omitempty"`
	// ThreadSize counts the thread root plus all attached children.
	ThreadSize int `json:"threadSize,omitempty"`
}

// Attachment is attachment metadata only; content is fetched lazily
// through the attachment endpoint.
type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// FolderPage is one page of a folder listing, newest first.
type FolderPage struct {
	Folder              string     `json:"folder"`
	TotalMessages       uint32     `json:"totalMessages"`
	TotalUnreadMessages int        `json:"totalUnreadMessages"`
	Messages            []*Message `json:"messages"`
	// NextCursor is the smallest UID on this page. Pass it as beforeUid to
	// fetch the next (older) page. Zero means there are no older messages.
	NextCursor uint32 `json:"nextCursor,omitempty"`
}

// Credentials identify one remote mailbox account. They arrive sealed
// inside the bearer token and live only for the duration of a request.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
