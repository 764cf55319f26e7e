// Package smtp composes outgoing messages and submits them to the remote
// mail relay.
package smtp

import (
	"bytes"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"
	"github.com/mailbridge/backend/internal/models"
)

// FileAttachment is one uploaded file to attach to an outgoing message.
type FileAttachment struct {
	Filename string
	MimeType string
	Content  []byte
}

// OutgoingMessage is a composed message ready to send or save as a draft.
type OutgoingMessage struct {
	From        models.Address
	To          []models.Address
	Cc          []models.Address
	Bcc         []models.Address
	Subject     string
	Text        string
	HTML        string
	InReplyTo   string
	References  []string
	Attachments []FileAttachment
}

// Compose builds the full MIME message and returns its generated Message-ID
// together with the raw bytes. Send and SaveDraft both consume the same
// bytes, so a saved draft is exactly what would have gone over the wire.
func Compose(msg OutgoingMessage) (string, []byte, error) {
	if msg.From.Email == "" {
		return "", nil, fmt.Errorf("outgoing message has no sender")
	}
	if len(msg.To) == 0 {
		return "", nil, fmt.Errorf("outgoing message has no recipients")
	}

	messageID, err := generateMessageID(msg.From.Email)
	if err != nil {
		return "", nil, err
	}

	builder := enmime.Builder().
		From(msg.From.Name, msg.From.Email).
		ToAddrs(toMailAddresses(msg.To)).
		CCAddrs(toMailAddresses(msg.Cc)).
		BCCAddrs(toMailAddresses(msg.Bcc)).
		Subject(msg.Subject).
		Date(time.Now()).
		Header("Message-Id", messageID)

	if msg.Text != "" {
		builder = builder.Text([]byte(msg.Text))
	}
	if msg.HTML != "" {
		builder = builder.HTML([]byte(msg.HTML))
	}
	if msg.InReplyTo != "" {
		builder = builder.Header("In-Reply-To", msg.InReplyTo)
	}
	if len(msg.References) > 0 {
		builder = builder.Header("References", strings.Join(msg.References, " "))
	}
	for _, attachment := range msg.Attachments {
		builder = builder.AddAttachment(attachment.Content, attachment.MimeType, attachment.Filename)
	}

	part, err := builder.Build()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return "", nil, fmt.Errorf("failed to encode message: %w", err)
	}

	return messageID, buf.Bytes(), nil
}

// Sender submits composed messages over authenticated SMTP. Like IMAP
// sessions, each submission dials its own connection and tears it down.
type Sender struct {
	Address string
	UseTLS  bool
}

// NewSender creates a sender for the given relay address.
func NewSender(address string, useTLS bool) *Sender {
	return &Sender{Address: address, UseTLS: useTLS}
}

// Send submits the raw message to every envelope recipient (To, Cc, Bcc).
func (s *Sender) Send(creds models.Credentials, msg OutgoingMessage, raw []byte) error {
	client, err := s.dial()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if creds.Password != "" {
		auth := sasl.NewPlainClient("", creds.Username, creds.Password)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp authentication failed: %w", err)
		}
	}

	recipients := make([]string, 0, len(msg.To)+len(msg.Cc)+len(msg.Bcc))
	for _, addr := range msg.To {
		recipients = append(recipients, addr.Email)
	}
	for _, addr := range msg.Cc {
		recipients = append(recipients, addr.Email)
	}
	for _, addr := range msg.Bcc {
		recipients = append(recipients, addr.Email)
	}

	if err := client.SendMail(msg.From.Email, recipients, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return client.Quit()
}

func (s *Sender) dial() (*smtp.Client, error) {
	if s.UseTLS {
		client, err := smtp.DialTLS(s.Address, &tls.Config{ServerName: hostOf(s.Address)})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
		}
		return client, nil
	}

	// Non-TLS connection for testing
	client, err := smtp.Dial(s.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	return client, nil
}

func hostOf(address string) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return address
	}
	return host
}

func toMailAddresses(addrs []models.Address) []mail.Address {
	if len(addrs) == 0 {
		return nil
	}
	result := make([]mail.Address, 0, len(addrs))
	for _, addr := range addrs {
		result = append(result, mail.Address{Name: addr.Name, Address: addr.Email})
	}
	return result
}

func generateMessageID(fromEmail string) (string, error) {
	entropy := make([]byte, 16)
	if _, err := rand.Read(entropy); err != nil {
		return "", fmt.Errorf("failed to generate message id: %w", err)
	}

	domain := "localhost"
	if i := strings.LastIndex(fromEmail, "@"); i >= 0 && i < len(fromEmail)-1 {
		domain = fromEmail[i+1:]
	}

	return fmt.Sprintf("<%d.%s@%s>", time.Now().UnixNano(), hex.EncodeToString(entropy), domain), nil
}
