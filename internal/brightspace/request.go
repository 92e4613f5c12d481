package brightspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// defaultRetryAfter is used for 429 responses without a usable Retry-After header.
const defaultRetryAfter = time.Second

// Request describes one API call. Path is host-relative and must start with "/".
type Request struct {
	Method string
	Path   string
	// Params are added to the query string; nil values are skipped and slices
	// produce repeated keys.
	Params map[string]interface{}
	// Body is JSON encoded when RawBody is nil.
	Body        interface{}
	RawBody     []byte
	ContentType string
	// Headers are merged over the Authorization header; caller values win.
	Headers map[string]string
	// ExpectStructured is advisory. JSON responses are always decoded.
	ExpectStructured bool
}

// Response is the envelope returned by Do. Status codes >= 400 are not errors
// at this level.
type Response struct {
	StatusCode int
	Body       Body
	Header     http.Header
}

// Headers flattens the response headers into a single-valued map.
func (r *Response) Headers() map[string]string {
	out := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// step is the transition chosen after one attempt of the retry loop.
type step int

const (
	stepDone      step = iota // classify and return the response
	stepReauth                // 401: refresh the token and resend
	stepThrottle              // 429: wait Retry-After and resend
	stepTransport             // network failure: resend while budget remains
)

type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

// Do performs an authenticated request.
//
// 401 and 429 responses and transport failures share one budget of
// MaxRetries retries. Once it is spent a 401 or 429 is returned to the caller
// as a regular response, and a transport failure as *TransportError.
func (s *Session) Do(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		return nil, invalidArgument("method is required")
	}
	if !strings.HasPrefix(req.Path, "/") {
		return nil, invalidArgument("path must start with '/', got %q", req.Path)
	}

	target, err := s.buildURL(req.Path, req.Params)
	if err != nil {
		return nil, err
	}
	payload, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		token, err := s.accessTokenFor(ctx)
		if err != nil {
			return nil, err
		}

		s.logger.Debug("%s %s (attempt %d/%d)", method, req.Path, attempt+1, s.maxRetries+1)
		raw, err := s.roundTrip(ctx, method, target, payload, contentType, token, req.Headers)

		switch s.nextStep(raw, err, attempt) {
		case stepTransport:
			if ctx.Err() != nil || attempt >= s.maxRetries {
				return nil, &TransportError{Method: method, URL: redactURL(target), Attempts: attempt + 1, Err: err}
			}
			s.logger.Warning("%s %s: transport error, retrying: %v", method, req.Path, err)

		case stepReauth:
			s.logger.Debug("%s %s: 401, refreshing access token", method, req.Path)
			s.InvalidateToken()
			if _, err := s.refreshAccessToken(ctx); err != nil {
				return nil, err
			}

		case stepThrottle:
			delay := retryAfter(raw.header.Get("Retry-After"))
			s.logger.Warning("%s %s: rate limited, retrying in %v", method, req.Path, delay)
			if err := s.sleep(ctx, delay); err != nil {
				return nil, err
			}

		default:
			return s.buildResponse(raw, req.ExpectStructured), nil
		}
	}
}

// nextStep decides the retry transition. 401 and 429 only retry while the
// shared budget lasts; afterwards they are classified like any other status.
func (s *Session) nextStep(raw *rawResponse, err error, attempt int) step {
	if err != nil {
		return stepTransport
	}
	if attempt >= s.maxRetries {
		return stepDone
	}
	switch raw.status {
	case http.StatusUnauthorized:
		return stepReauth
	case http.StatusTooManyRequests:
		return stepThrottle
	default:
		return stepDone
	}
}

func (s *Session) roundTrip(ctx context.Context, method, target string, payload []byte, contentType, token string, headers map[string]string) (*rawResponse, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &rawResponse{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

func (s *Session) buildResponse(raw *rawResponse, expectStructured bool) *Response {
	body := classifyBody(raw.header.Get("Content-Type"), raw.body)
	if body.kind == BodyText && isJSONMediaType(raw.header.Get("Content-Type")) {
		s.logger.Warning("response declared JSON but could not be decoded; returning text")
	} else if expectStructured && body.kind != BodyStructured {
		s.logger.Debug("expected structured response, got %s (%s)", body.kind, raw.header.Get("Content-Type"))
	}
	return &Response{StatusCode: raw.status, Body: body, Header: raw.header}
}

// classifyBody picks the Body variant from the content type.
func classifyBody(contentType string, raw []byte) Body {
	switch {
	case isJSONMediaType(contentType):
		if len(bytes.TrimSpace(raw)) == 0 {
			return StructuredBody(nil, raw)
		}
		var value interface{}
		if err := json.Unmarshal(raw, &value); err != nil {
			return TextBody(string(raw))
		}
		return StructuredBody(value, raw)
	case strings.HasPrefix(mediaType(contentType), "text/"):
		return TextBody(string(raw))
	default:
		return BinaryBody(raw)
	}
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func isJSONMediaType(contentType string) bool {
	mt := mediaType(contentType)
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// retryAfter parses a Retry-After value in (possibly fractional) seconds.
func retryAfter(value string) time.Duration {
	if value == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return defaultRetryAfter
	}
	return time.Duration(secs * float64(time.Second))
}

func (s *Session) buildURL(path string, params map[string]interface{}) (string, error) {
	u, err := url.Parse(s.baseURL + path)
	if err != nil {
		return "", invalidArgument("invalid request URL: %v", err)
	}
	if len(params) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for key, value := range params {
		addQueryValue(q, key, value)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func addQueryValue(q url.Values, key string, value interface{}) {
	switch v := value.(type) {
	case nil:
	case string:
		q.Add(key, v)
	case []string:
		for _, item := range v {
			q.Add(key, item)
		}
	case []interface{}:
		for _, item := range v {
			addQueryValue(q, key, item)
		}
	case bool:
		q.Add(key, strconv.FormatBool(v))
	case float64:
		q.Add(key, strconv.FormatFloat(v, 'f', -1, 64))
	default:
		q.Add(key, fmt.Sprint(v))
	}
}

func encodeBody(req Request) ([]byte, string, error) {
	if req.RawBody != nil {
		return req.RawBody, req.ContentType, nil
	}
	if req.Body == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", invalidArgument("body is not JSON encodable: %v", err)
	}
	return data, "application/json", nil
}

// redactURL strips the query string, which may carry bookmarks or search terms.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}
