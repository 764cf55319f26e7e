package imap

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jhillyerd/enmime"
	"github.com/mailbridge/backend/internal/models"
)

// FetchAttachment resolves one attachment by (UID, filename) within a
// folder. Only the target message is fetched and decoded; the rest of the
// folder is never enumerated. Duplicate filenames within a message resolve
// to the first match, a known limitation of filename-based identity.
func (s *Service) FetchAttachment(ctx context.Context, creds models.Credentials, folder string, uid uint32, filename string) (string, []byte, error) {
	session, err := s.factory.OpenSession(ctx, creds, folder, ReadOnly)
	if err != nil {
		return "", nil, err
	}
	defer session.Close()

	var raw []byte
	err = session.FetchRaw([]uint32{uid}, func(_ uint32, _ []string, body []byte) {
		raw = append([]byte(nil), body...)
	})
	if err != nil {
		return "", nil, err
	}
	if raw == nil {
		return "", nil, fmt.Errorf("message uid %d in %q: %w", uid, folder, ErrAttachmentNotFound)
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return "", nil, fmt.Errorf("decode message uid %d: %w: %v", uid, ErrParse, err)
	}

	for _, part := range envelope.Attachments {
		if part.FileName == filename {
			return part.ContentType, part.Content, nil
		}
	}

	return "", nil, fmt.Errorf("%q on uid %d in %q: %w", filename, uid, folder, ErrAttachmentNotFound)
}
