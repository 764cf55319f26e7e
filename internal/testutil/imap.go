package testutil

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
)

// TestIMAPServer is an in-memory IMAP server for tests. The memory backend
// creates a default user "username"/"password" whose INBOX already contains
// one seen message.
type TestIMAPServer struct {
	Server   *server.Server
	Address  string
	Backend  *memory.Backend
	cleanup  func()
	username string
	password string
}

// NewTestIMAPServer starts an IMAP server with an in-memory backend on a
// random port and returns it together with its cleanup hook.
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	be := memory.New()

	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	addr := listener.Addr().String()

	go func() {
		if err := s.Serve(listener); err != nil {
			t.Logf("IMAP server error: %v", err)
		}
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	srv := &TestIMAPServer{
		Server:   s,
		Address:  addr,
		Backend:  be,
		cleanup:  func() { _ = s.Close() },
		username: "username",
		password: "password",
	}
	t.Cleanup(srv.Close)
	return srv
}

// Close shuts down the test IMAP server.
func (s *TestIMAPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Username returns the default test username.
func (s *TestIMAPServer) Username() string {
	return s.username
}

// Password returns the default test password.
func (s *TestIMAPServer) Password() string {
	return s.password
}

// Connect creates a new logged-in IMAP client connection to the test server.
func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	client, err := imapclient.Dial(s.Address)
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}

	if err := client.Login(s.username, s.password); err != nil {
		_ = client.Logout()
		t.Fatalf("Failed to login: %v", err)
	}

	cleanup := func() {
		_ = client.Logout()
	}

	return client, cleanup
}

// EnsureFolder creates the folder if it does not exist yet. Tests mostly use
// their own folders so the backend's pre-seeded INBOX message stays out of
// their counts.
func (s *TestIMAPServer) EnsureFolder(t *testing.T, folderName string) {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if _, err := client.Select(folderName, false); err != nil {
		if err := client.Create(folderName); err != nil {
			t.Fatalf("Failed to create folder %s: %v", folderName, err)
		}
	}
}

// TestMessage describes a message to seed into a folder.
type TestMessage struct {
	MessageID  string
	Subject    string
	From       string
	To         string
	SentAt     time.Time
	References []string
	Body       string
	Seen       bool

	// AttachmentName/AttachmentContent, when set, turn the message into a
	// multipart message with one file attached.
	AttachmentName    string
	AttachmentContent string
}

// AddMessage appends the message to the folder and returns its UID, located
// by searching for its Message-ID.
func (s *TestIMAPServer) AddMessage(t *testing.T, folderName string, msg TestMessage) uint32 {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if _, err := client.Select(folderName, false); err != nil {
		t.Fatalf("Failed to select folder: %v", err)
	}

	var flags []string
	if msg.Seen {
		flags = append(flags, imap.SeenFlag)
	}

	raw := BuildRawMessage(msg)
	if err := client.Append(folderName, flags, time.Now(), strings.NewReader(raw)); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Message-ID", msg.MessageID)
	uids, err := client.UidSearch(criteria)
	if err != nil {
		t.Fatalf("Failed to search for message: %v", err)
	}
	if len(uids) == 0 {
		t.Fatalf("Message not found after append")
	}

	return uids[len(uids)-1]
}

// BuildRawMessage renders a TestMessage as RFC 822 bytes.
func BuildRawMessage(msg TestMessage) string {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	if msg.Body == "" {
		msg.Body = "Test message body."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Message-ID: %s\r\n", msg.MessageID)
	fmt.Fprintf(&b, "Date: %s\r\n", msg.SentAt.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	if len(msg.References) > 0 {
		fmt.Fprintf(&b, "References: %s\r\n", strings.Join(msg.References, " "))
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", msg.References[len(msg.References)-1])
	}

	if msg.AttachmentName == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
		b.WriteString("\r\n")
		b.WriteString(msg.Body)
		b.WriteString("\r\n")
		return b.String()
	}

	const boundary = "testboundary42"
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n", boundary)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: application/octet-stream\r\n")
	fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n", msg.AttachmentName)
	b.WriteString("\r\n")
	b.WriteString(msg.AttachmentContent)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.String()
}
