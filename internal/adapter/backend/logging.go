package backend

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const maxLoggedBody = 4 << 10

// LoggingRoundTripper logs every backend exchange. Card fields are masked
// before a body reaches the log.
type LoggingRoundTripper struct {
	next      http.RoundTripper
	log       zerolog.Logger
	logBodies bool
}

// NewLoggingRoundTripper wraps next (http.DefaultTransport when nil).
func NewLoggingRoundTripper(next http.RoundTripper, log zerolog.Logger, logBodies bool) *LoggingRoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &LoggingRoundTripper{next: next, log: log, logBodies: logBodies}
}

// NewHTTPClient returns an http.Client with request logging and the given overall timeout.
func NewHTTPClient(timeout time.Duration, log zerolog.Logger, logBodies bool) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: NewLoggingRoundTripper(nil, log, logBodies),
	}
}

func (l *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	var reqBody []byte
	if l.logBodies && req.GetBody != nil {
		if rc, err := req.GetBody(); err == nil {
			reqBody, _ = io.ReadAll(io.LimitReader(rc, maxLoggedBody))
			rc.Close()
		}
	}

	resp, err := l.next.RoundTrip(req)
	latency := time.Since(start)

	if err != nil {
		l.log.Warn().
			Err(err).
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Dur("latency", latency).
			Msg("backend request failed")
		return nil, err
	}

	event := l.log.Debug()
	if resp.StatusCode >= http.StatusInternalServerError {
		event = l.log.Warn()
	}
	event = event.
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Dur("latency", latency)

	if l.logBodies {
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(respBody))
		if readErr != nil {
			// Hand the failure to the reader of the response.
			resp.Body = io.NopCloser(io.MultiReader(bytes.NewReader(respBody), errReader{readErr}))
		}
		event = event.
			Str("request_body", RedactBody(reqBody)).
			Str("response_body", RedactBody(truncate(respBody)))
	}

	event.Msg("backend request")
	return resp, nil
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func truncate(b []byte) []byte {
	if len(b) > maxLoggedBody {
		return b[:maxLoggedBody]
	}
	return b
}

// RedactBody masks card number, CVV and expiry in a JSON body.
// Non-JSON bodies are returned unchanged.
func RedactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return string(body)
	}
	card, ok := doc["cardData"].(map[string]any)
	if !ok {
		return string(body)
	}
	if n, ok := card["cardNumber"].(string); ok {
		card["cardNumber"] = maskNumber(n)
	}
	if _, ok := card["cvv"]; ok {
		card["cvv"] = "***"
	}
	if _, ok := card["expiry"]; ok {
		card["expiry"] = "**/**"
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "<redacted>"
	}
	return string(out)
}

func maskNumber(n string) string {
	if len(n) <= 4 {
		return "****"
	}
	return "****" + n[len(n)-4:]
}
