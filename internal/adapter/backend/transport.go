package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inapppay/internal/core/domain"
	"inapppay/internal/wire"
	"inapppay/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds a single call when the caller passes none.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
)

// HTTPClient abstracts http.Client for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transport implements ports.Transport over HTTP.
type Transport struct {
	baseURL string
	client  HTTPClient
	codec   *Codec
	timeout time.Duration
	log     zerolog.Logger
}

// NewTransport creates a backend transport. timeout applies to Call and to
// Send when the caller passes zero.
func NewTransport(baseURL string, client HTTPClient, codec *Codec, timeout time.Duration, log zerolog.Logger) *Transport {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		codec:   codec,
		timeout: timeout,
		log:     log,
	}
}

// Send performs one processPurchase call and classifies the result.
func (t *Transport) Send(ctx context.Context, req domain.PurchaseRequest, key domain.IdempotencyKey, timeout time.Duration) domain.Outcome {
	body, err := t.codec.Encode(req, key)
	if err != nil {
		return domain.FatalFailure(domain.CodeEncodeFailed, err.Error())
	}

	if timeout <= 0 {
		timeout = t.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := t.newRequest(ctx, wire.EndpointProcessPurchase, body)
	if err != nil {
		return domain.FatalFailure(domain.CodeEncodeFailed, err.Error())
	}
	httpReq.Header.Set(domain.IdempotencyKeyHeader, key.String())

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return classifyNetworkError(err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	outcome := t.classify(resp, respBody, readErr)

	t.log.Debug().
		Str("item_id", req.ItemID).
		Int("status", resp.StatusCode).
		Str("outcome", string(outcome.Kind)).
		Bool("replayed", resp.Header.Get(wire.HeaderIdempotentReplayed) == "true").
		Msg("purchase attempt classified")

	return outcome
}

func (t *Transport) classify(resp *http.Response, body []byte, readErr error) domain.Outcome {
	status := resp.StatusCode

	switch {
	case status >= 200 && status < 300:
		if readErr != nil {
			// The charge may have happened; the same key makes the retry safe.
			return domain.TransientFailure(domain.CodeNetworkError, fmt.Sprintf("reading response body: %v", readErr))
		}
		return t.codec.Decode(body)

	case status >= 500:
		_, msg := t.codec.DecodeRejection(status, body)
		o := domain.TransientFailure(domain.CodeServerError, msg)
		o.HTTPStatus = status
		o.RetryAfter = parseRetryAfter(resp.Header.Get(wire.HeaderRetryAfter), time.Now())
		return o

	case isThrottleStatus(status):
		code, msg := t.codec.DecodeRejection(status, body)
		if status == http.StatusTooManyRequests {
			code = domain.CodeRateLimited
		} else if status == http.StatusRequestTimeout {
			code = domain.CodeTimeout
		}
		o := domain.TransientFailure(code, msg)
		o.HTTPStatus = status
		o.RetryAfter = parseRetryAfter(resp.Header.Get(wire.HeaderRetryAfter), time.Now())
		return o

	case isMalformedRequestStatus(status):
		code, msg := t.codec.DecodeRejection(status, body)
		o := domain.FatalFailure(code, msg)
		o.HTTPStatus = status
		return o

	case status >= 400:
		code, msg := t.codec.DecodeRejection(status, body)
		o := domain.Declined(code, msg)
		o.HTTPStatus = status
		return o
	}

	o := domain.FatalFailure(domain.CodeMalformedResponse, fmt.Sprintf("unexpected status %d", status))
	o.HTTPStatus = status
	return o
}

// Call posts payload to a read-only endpoint. Non-2xx answers and
// undecodable bodies become *apperror.AppError.
func (t *Transport) Call(ctx context.Context, endpoint string, payload any) (*wire.Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal %s payload: %w", endpoint, err))
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	httpReq, err := t.newRequest(ctx, endpoint, body)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, apperror.ErrNetwork(fmt.Errorf("%s: %w", endpoint, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperror.ErrNetwork(fmt.Errorf("reading %s response: %w", endpoint, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code, msg := t.codec.DecodeRejection(resp.StatusCode, respBody)
		return nil, apperror.ErrUpstream(resp.StatusCode, code, msg)
	}

	var env wire.Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, apperror.ErrMalformedResponse(fmt.Errorf("decode %s response: %w", endpoint, err))
	}
	return &env, nil
}

func (t *Transport) newRequest(ctx context.Context, endpoint string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func classifyNetworkError(err error) domain.Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.TransientFailure(domain.CodeTimeout, err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.TransientFailure(domain.CodeTimeout, err.Error())
	}
	return domain.TransientFailure(domain.CodeNetworkError, err.Error())
}

func isThrottleStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return false
}

// isMalformedRequestStatus lists statuses meaning the request itself is wrong;
// resending it cannot succeed.
func isMalformedRequestStatus(status int) bool {
	switch status {
	case http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusMethodNotAllowed,
		http.StatusNotAcceptable,
		http.StatusLengthRequired,
		http.StatusRequestEntityTooLarge,
		http.StatusRequestURITooLong,
		http.StatusUnsupportedMediaType,
		http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Unparseable values yield zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
