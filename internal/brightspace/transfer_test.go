package brightspace

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadMultipart(t *testing.T) {
	m := newMockBrightspace(t)
	var calls int32
	m.handle("/d2l/api/le/1.74/5/dropbox/folders/1/submissions/mysubmissions/", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "hello", r.FormValue("Text"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		content, err := io.ReadAll(f)
		require.NoError(t, err)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"filename":    hdr.Filename,
			"contentType": hdr.Header.Get("Content-Type"),
			"content":     string(content),
		})
	})
	s, rec := m.session()

	resp, err := s.UploadMultipart(context.Background(),
		"/d2l/api/le/1.74/5/dropbox/folders/1/submissions/mysubmissions/",
		map[string]string{"Text": "hello"},
		map[string]File{"file": {Filename: "essay.txt", Content: []byte("my essay"), ContentType: "text/plain"}},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, rec.sleeps, 1, "a throttled upload is retried with the same body")

	obj, ok := resp.Body.Object()
	require.True(t, ok)
	assert.Equal(t, "essay.txt", obj["filename"])
	assert.Equal(t, "text/plain", obj["contentType"])
	assert.Equal(t, "my essay", obj["content"])
}

func TestUploadMultipartRequiresFilename(t *testing.T) {
	m := newMockBrightspace(t)
	s, _ := m.session()

	_, err := s.UploadMultipart(context.Background(), "/d2l/api/x", nil, map[string]File{"file": {Content: []byte("x")}}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, m.requests())
}

func TestDownloadBase64(t *testing.T) {
	payload := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff}
	m := newMockBrightspace(t)
	m.handle("/d2l/api/le/1.74/5/content/topics/9/file", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="notes.pdf"`)
		_, _ = w.Write(payload)
	})
	m.handle("/d2l/api/le/1.74/5/content/topics/10/file", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"a": 1})
	})
	s, _ := m.session()

	dl, err := s.DownloadBase64(context.Background(), "/d2l/api/le/1.74/5/content/topics/9/file", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, dl.StatusCode)
	assert.Equal(t, base64.StdEncoding.EncodeToString(payload), dl.DataB64)
	assert.Equal(t, "application/pdf", dl.Headers["Content-Type"])

	dl, err = s.DownloadBase64(context.Background(), "/d2l/api/le/1.74/5/content/topics/10/file", nil)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(dl.DataB64)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(decoded), "structured bodies are returned as their raw bytes")

	data, err := json.Marshal(dl)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data_b64":`)
}
