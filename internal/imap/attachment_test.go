package imap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailbridge/backend/internal/testutil"
)

func TestServiceFetchAttachment(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	server.EnsureFolder(t, "Files")

	uid := server.AddMessage(t, "Files", testutil.TestMessage{
		MessageID:         "<att@example.com>",
		Subject:           "With attachment",
		From:              "alice@example.com",
		To:                "me@example.com",
		Body:              "See the file.",
		AttachmentName:    "notes.txt",
		AttachmentContent: "line one\nline two",
	})

	service := NewService(testFactory(server), nil, 10, "Drafts")
	ctx := context.Background()

	t.Run("returns the attachment content and type", func(t *testing.T) {
		mimeType, content, err := service.FetchAttachment(ctx, testCredentials(server), "Files", uid, "notes.txt")
		require.NoError(t, err)

		assert.Equal(t, "application/octet-stream", mimeType)
		assert.Contains(t, string(content), "line one")
		assert.Contains(t, string(content), "line two")
	})

	t.Run("unknown filename fails with the attachment sentinel", func(t *testing.T) {
		_, _, err := service.FetchAttachment(ctx, testCredentials(server), "Files", uid, "other.txt")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAttachmentNotFound))
	})

	t.Run("unknown uid fails with the attachment sentinel", func(t *testing.T) {
		_, _, err := service.FetchAttachment(ctx, testCredentials(server), "Files", uid+1000, "notes.txt")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAttachmentNotFound))
	})

	t.Run("unknown folder fails with the folder sentinel", func(t *testing.T) {
		_, _, err := service.FetchAttachment(ctx, testCredentials(server), "NoSuchFolder", uid, "notes.txt")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrFolderNotFound))
	})
}
