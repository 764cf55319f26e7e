package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailbridge/backend/internal/imap"
	"github.com/mailbridge/backend/internal/models"
)

func TestReceiveHandler_Receive(t *testing.T) {
	t.Run("returns 401 without credentials in context", func(t *testing.T) {
		handler := NewReceiveHandler(&mockMailboxService{}, 10)
		req := httptest.NewRequest(http.MethodGet, "/mail/receive", nil)

		rr := httptest.NewRecorder()
		handler.Receive(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("serves a page with defaults applied", func(t *testing.T) {
		var gotFolder string
		var gotBefore uint32
		var gotLimit int

		service := &mockMailboxService{
			fetchPage: func(folder string, beforeUID uint32, limit int) (*models.FolderPage, error) {
				gotFolder, gotBefore, gotLimit = folder, beforeUID, limit
				return &models.FolderPage{
					Folder:              folder,
					TotalMessages:       2,
					TotalUnreadMessages: 1,
					Messages: []*models.Message{
						{UID: 2, Subject: "Newest"},
						{UID: 1, Subject: "Oldest"},
					},
				}, nil
			},
		}
		handler := NewReceiveHandler(service, 10)

		req := withCreds(httptest.NewRequest(http.MethodGet, "/mail/receive", nil))
		rr := httptest.NewRecorder()
		handler.Receive(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "INBOX", gotFolder)
		assert.Equal(t, uint32(0), gotBefore)
		assert.Equal(t, 10, gotLimit)

		var page models.FolderPage
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
		assert.Equal(t, "INBOX", page.Folder)
		assert.Equal(t, uint32(2), page.TotalMessages)
		assert.Equal(t, 1, page.TotalUnreadMessages)
		require.Len(t, page.Messages, 2)
		assert.Equal(t, "Newest", page.Messages[0].Subject)
	})

	t.Run("passes folder, cursor and limit through", func(t *testing.T) {
		var gotFolder string
		var gotBefore uint32
		var gotLimit int

		service := &mockMailboxService{
			fetchPage: func(folder string, beforeUID uint32, limit int) (*models.FolderPage, error) {
				gotFolder, gotBefore, gotLimit = folder, beforeUID, limit
				return &models.FolderPage{Folder: folder, Messages: []*models.Message{}}, nil
			},
		}
		handler := NewReceiveHandler(service, 10)

		req := withCreds(httptest.NewRequest(http.MethodGet, "/mail/receive?category=Archive&beforeUid=16&limit=5", nil))
		rr := httptest.NewRecorder()
		handler.Receive(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Archive", gotFolder)
		assert.Equal(t, uint32(16), gotBefore)
		assert.Equal(t, 5, gotLimit)
	})

	t.Run("maps service errors onto http statuses", func(t *testing.T) {
		service := &mockMailboxService{
			fetchPage: func(string, uint32, int) (*models.FolderPage, error) {
				return nil, imap.ErrFolderNotFound
			},
		}
		handler := NewReceiveHandler(service, 10)

		req := withCreds(httptest.NewRequest(http.MethodGet, "/mail/receive?category=Bogus", nil))
		rr := httptest.NewRecorder()
		handler.Receive(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
