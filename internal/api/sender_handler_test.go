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

func TestSenderHandler_EmailsFromSender(t *testing.T) {
	t.Run("returns 401 without credentials", func(t *testing.T) {
		handler := NewSenderHandler(&mockMailboxService{}, "Sent")
		req := httptest.NewRequest(http.MethodGet, "/mail/emails-from-sender?address=a@example.com", nil)

		rr := httptest.NewRecorder()
		handler.EmailsFromSender(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("missing address is a 400", func(t *testing.T) {
		handler := NewSenderHandler(&mockMailboxService{}, "Sent")
		req := withCreds(httptest.NewRequest(http.MethodGet, "/mail/emails-from-sender", nil))

		rr := httptest.NewRecorder()
		handler.EmailsFromSender(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("lists messages from the address, searching INBOX by default", func(t *testing.T) {
		var gotFolder, gotAddress string
		service := &mockMailboxService{
			messagesFromSender: func(folder, address string) ([]*models.Message, error) {
				gotFolder, gotAddress = folder, address
				return []*models.Message{{UID: 1, Subject: "Oldest"}, {UID: 2, Subject: "Newest"}}, nil
			},
		}
		handler := NewSenderHandler(service, "Sent")

		req := withCreds(httptest.NewRequest(http.MethodGet, "/mail/emails-from-sender?address=alice@example.com", nil))
		rr := httptest.NewRecorder()
		handler.EmailsFromSender(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "INBOX", gotFolder)
		assert.Equal(t, "alice@example.com", gotAddress)

		var messages []*models.Message
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &messages))
		require.Len(t, messages, 2)
		assert.Equal(t, "Oldest", messages[0].Subject)
	})

	t.Run("no matches is an empty array, not null", func(t *testing.T) {
		handler := NewSenderHandler(&mockMailboxService{}, "Sent")

		req := withCreds(httptest.NewRequest(http.MethodGet, "/mail/emails-from-sender?address=alice@example.com", nil))
		rr := httptest.NewRecorder()
		handler.EmailsFromSender(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})
}

func TestSenderHandler_EmailsSentTo(t *testing.T) {
	t.Run("searches the configured sent folder by default", func(t *testing.T) {
		var gotFolder, gotAddress string
		service := &mockMailboxService{
			messagesSentTo: func(folder, address string) ([]*models.Message, error) {
				gotFolder, gotAddress = folder, address
				return nil, nil
			},
		}
		handler := NewSenderHandler(service, "Sent")

		req := withCreds(httptest.NewRequest(http.MethodGet, "/mail/emails-sent-to?address=bob@example.com", nil))
		rr := httptest.NewRecorder()
		handler.EmailsSentTo(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Sent", gotFolder)
		assert.Equal(t, "bob@example.com", gotAddress)
	})

	t.Run("explicit folder overrides the default", func(t *testing.T) {
		var gotFolder string
		service := &mockMailboxService{
			messagesSentTo: func(folder, address string) ([]*models.Message, error) {
				gotFolder = folder
				return nil, nil
			},
		}
		handler := NewSenderHandler(service, "Sent")

		req := withCreds(httptest.NewRequest(http.MethodGet, "/mail/emails-sent-to?address=bob@example.com&folder=Outbox", nil))
		rr := httptest.NewRecorder()
		handler.EmailsSentTo(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Outbox", gotFolder)
	})

	t.Run("unknown folder is a 404", func(t *testing.T) {
		service := &mockMailboxService{
			messagesSentTo: func(string, string) ([]*models.Message, error) {
				return nil, imap.ErrFolderNotFound
			},
		}
		handler := NewSenderHandler(service, "Sent")

		req := withCreds(httptest.NewRequest(http.MethodGet, "/mail/emails-sent-to?address=bob@example.com", nil))
		rr := httptest.NewRecorder()
		handler.EmailsSentTo(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
