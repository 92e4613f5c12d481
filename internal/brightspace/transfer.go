package brightspace

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
)

// File is one file part of a multipart upload.
type File struct {
	Filename    string
	Content     []byte
	ContentType string
}

// UploadMultipart POSTs fields and files as multipart/form-data. The body is
// encoded once, so a retried attempt resends identical bytes.
func (s *Session) UploadMultipart(ctx context.Context, path string, fields map[string]string, files map[string]File, headers map[string]string) (*Response, error) {
	body, contentType, err := encodeMultipart(fields, files)
	if err != nil {
		return nil, err
	}
	return s.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        path,
		RawBody:     body,
		ContentType: contentType,
		Headers:     headers,
	})
}

func encodeMultipart(fields map[string]string, files map[string]File) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, name := range sortedKeys(fields) {
		if err := w.WriteField(name, fields[name]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	fileNames := make([]string, 0, len(files))
	for name := range files {
		fileNames = append(fileNames, name)
	}
	sort.Strings(fileNames)

	for _, name := range fileNames {
		f := files[name]
		if f.Filename == "" {
			return nil, "", invalidArgument("file part %q has no filename", name)
		}
		ctype := f.ContentType
		if ctype == "" {
			ctype = "application/octet-stream"
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(name), escapeQuotes(f.Filename)))
		h.Set("Content-Type", ctype)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create part %s: %w", name, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, "", fmt.Errorf("failed to write part %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Download is a fetched resource with its bytes in base64, ready for a JSON transport.
type Download struct {
	StatusCode int               `json:"status"`
	DataB64    string            `json:"data_b64"`
	Headers    map[string]string `json:"headers"`
}

// DownloadBase64 GETs path and returns the undecoded response bytes in base64,
// whatever the content type.
func (s *Session) DownloadBase64(ctx context.Context, path string, params map[string]interface{}) (*Download, error) {
	resp, err := s.Do(ctx, Request{Method: http.MethodGet, Path: path, Params: params})
	if err != nil {
		return nil, err
	}
	return &Download{
		StatusCode: resp.StatusCode,
		DataB64:    resp.Body.Base64(),
		Headers:    resp.Headers(),
	}, nil
}
