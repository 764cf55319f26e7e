package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailbridge/backend/internal/imap"
)

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return withCreds(req)
}

func TestMutateHandler_MarkReadBatch(t *testing.T) {
	t.Run("returns 401 without credentials", func(t *testing.T) {
		handler := NewMutateHandler(&mockMailboxService{})
		req := httptest.NewRequest(http.MethodPost, "/mail/mark-read-batch", strings.NewReader(`{}`))

		rr := httptest.NewRecorder()
		handler.MarkReadBatch(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("marks the batch in the named folder", func(t *testing.T) {
		var gotFolder string
		var gotUIDs []uint32
		service := &mockMailboxService{
			markRead: func(folder string, uids []uint32) error {
				gotFolder, gotUIDs = folder, uids
				return nil
			},
		}
		handler := NewMutateHandler(service)

		rr := httptest.NewRecorder()
		handler.MarkReadBatch(rr, postJSON("/mail/mark-read-batch", `{"folder":"Archive","uids":[3,1,2]}`))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Archive", gotFolder)
		assert.Equal(t, []uint32{3, 1, 2}, gotUIDs)
	})

	t.Run("folder defaults to INBOX", func(t *testing.T) {
		var gotFolder string
		service := &mockMailboxService{
			markRead: func(folder string, uids []uint32) error {
				gotFolder = folder
				return nil
			},
		}
		handler := NewMutateHandler(service)

		rr := httptest.NewRecorder()
		handler.MarkReadBatch(rr, postJSON("/mail/mark-read-batch", `{"uids":[1]}`))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "INBOX", gotFolder)
	})

	t.Run("empty uids is a 400", func(t *testing.T) {
		handler := NewMutateHandler(&mockMailboxService{})

		rr := httptest.NewRecorder()
		handler.MarkReadBatch(rr, postJSON("/mail/mark-read-batch", `{"folder":"INBOX","uids":[]}`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		handler := NewMutateHandler(&mockMailboxService{})

		rr := httptest.NewRecorder()
		handler.MarkReadBatch(rr, postJSON("/mail/mark-read-batch", `{not json`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestMutateHandler_MoveToFolder(t *testing.T) {
	t.Run("moves the message", func(t *testing.T) {
		var gotUID uint32
		var gotSource, gotDest string
		service := &mockMailboxService{
			moveToFolder: func(uid uint32, sourceFolder, destFolder string) error {
				gotUID, gotSource, gotDest = uid, sourceFolder, destFolder
				return nil
			},
		}
		handler := NewMutateHandler(service)

		rr := httptest.NewRecorder()
		handler.MoveToFolder(rr, postJSON("/mail/move-to-folder",
			`{"uid":42,"sourceFolder":"INBOX","toFolder":"Archive"}`))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, uint32(42), gotUID)
		assert.Equal(t, "INBOX", gotSource)
		assert.Equal(t, "Archive", gotDest)
	})

	t.Run("missing fields are a 400", func(t *testing.T) {
		handler := NewMutateHandler(&mockMailboxService{})

		for _, body := range []string{
			`{"sourceFolder":"INBOX","toFolder":"Archive"}`,
			`{"uid":42,"toFolder":"Archive"}`,
			`{"uid":42,"sourceFolder":"INBOX"}`,
		} {
			rr := httptest.NewRecorder()
			handler.MoveToFolder(rr, postJSON("/mail/move-to-folder", body))
			assert.Equal(t, http.StatusBadRequest, rr.Code, "body %s", body)
		}
	})

	t.Run("unknown destination is a 404", func(t *testing.T) {
		service := &mockMailboxService{
			moveToFolder: func(uint32, string, string) error {
				return imap.ErrFolderNotFound
			},
		}
		handler := NewMutateHandler(service)

		rr := httptest.NewRecorder()
		handler.MoveToFolder(rr, postJSON("/mail/move-to-folder",
			`{"uid":42,"sourceFolder":"INBOX","toFolder":"Bogus"}`))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestMutateHandler_DeleteForever(t *testing.T) {
	t.Run("deletes the message", func(t *testing.T) {
		var gotUID uint32
		var gotFolder string
		service := &mockMailboxService{
			deleteForever: func(uid uint32, folder string) error {
				gotUID, gotFolder = uid, folder
				return nil
			},
		}
		handler := NewMutateHandler(service)

		rr := httptest.NewRecorder()
		handler.DeleteForever(rr, postJSON("/mail/delete-forever", `{"uid":42,"folderName":"Trash"}`))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, uint32(42), gotUID)
		assert.Equal(t, "Trash", gotFolder)
	})

	t.Run("missing fields are a 400", func(t *testing.T) {
		handler := NewMutateHandler(&mockMailboxService{})

		for _, body := range []string{`{"folderName":"Trash"}`, `{"uid":42}`} {
			rr := httptest.NewRecorder()
			handler.DeleteForever(rr, postJSON("/mail/delete-forever", body))
			assert.Equal(t, http.StatusBadRequest, rr.Code, "body %s", body)
		}
	})

	t.Run("connection trouble is a 503", func(t *testing.T) {
		service := &mockMailboxService{
			deleteForever: func(uint32, string) error {
				return imap.ErrConnection
			},
		}
		handler := NewMutateHandler(service)

		rr := httptest.NewRecorder()
		handler.DeleteForever(rr, postJSON("/mail/delete-forever", `{"uid":42,"folderName":"Trash"}`))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}
