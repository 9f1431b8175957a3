package domain

import (
	"fmt"
	"time"
)

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind string

const (
	OutcomeSuccess          OutcomeKind = "SUCCESS"
	OutcomeDeclined         OutcomeKind = "DECLINED"
	OutcomeTransientFailure OutcomeKind = "TRANSIENT_FAILURE"
	OutcomeFatalFailure     OutcomeKind = "FATAL_FAILURE"
	OutcomeCancelled        OutcomeKind = "CANCELLED"
	OutcomeExpired          OutcomeKind = "EXPIRED"
)

// Failure cause codes carried by TransientFailure and FatalFailure outcomes.
const (
	CodeNetworkError      = "NETWORK_ERROR"
	CodeTimeout           = "TIMEOUT"
	CodeServerError       = "SERVER_ERROR"
	CodeRateLimited       = "RATE_LIMITED"
	CodeMalformedResponse = "MALFORMED_RESPONSE"
	CodeInvalidSignature  = "INVALID_RECEIPT_SIGNATURE"
	CodeEncodeFailed      = "ENCODE_FAILED"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodePurchaseFailed    = "PURCHASE_FAILED"
	CodeUserCancelled     = "USER_CANCELLED"
	CodeDeadlineExceeded  = "DEADLINE_EXCEEDED"
)

// Receipt is the backend's proof of a completed purchase.
type Receipt struct {
	ID        string         `json:"id"`
	Message   string         `json:"message,omitempty"`
	Signature string         `json:"signature,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Outcome is the result of one attempt, and the terminal result of a transaction.
// Receipt is set only for SUCCESS; Reason only for DECLINED; Code for failures.
type Outcome struct {
	Kind       OutcomeKind   `json:"kind"`
	Receipt    *Receipt      `json:"receipt,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Code       string        `json:"code,omitempty"`
	Message    string        `json:"message,omitempty"`
	HTTPStatus int           `json:"http_status,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

func Success(receipt Receipt) Outcome {
	return Outcome{Kind: OutcomeSuccess, Receipt: &receipt}
}

func Declined(reason, message string) Outcome {
	return Outcome{Kind: OutcomeDeclined, Reason: reason, Message: message}
}

func TransientFailure(code, message string) Outcome {
	return Outcome{Kind: OutcomeTransientFailure, Code: code, Message: message}
}

func FatalFailure(code, message string) Outcome {
	return Outcome{Kind: OutcomeFatalFailure, Code: code, Message: message}
}

func Cancelled() Outcome {
	return Outcome{Kind: OutcomeCancelled, Code: CodeUserCancelled, Message: "purchase cancelled by caller"}
}

func Expired() Outcome {
	return Outcome{Kind: OutcomeExpired, Code: CodeDeadlineExceeded, Message: "purchase deadline passed"}
}

// IsSuccess reports whether the outcome carries a receipt.
func (o Outcome) IsSuccess() bool {
	return o.Kind == OutcomeSuccess
}

// Clone returns a deep copy of the outcome.
func (o Outcome) Clone() Outcome {
	out := o
	if o.Receipt != nil {
		r := *o.Receipt
		if o.Receipt.Data != nil {
			r.Data = make(map[string]any, len(o.Receipt.Data))
			for k, v := range o.Receipt.Data {
				r.Data[k] = v
			}
		}
		out.Receipt = &r
	}
	return out
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		if o.Receipt != nil {
			return fmt.Sprintf("SUCCESS(receipt=%s)", o.Receipt.ID)
		}
		return "SUCCESS"
	case OutcomeDeclined:
		return fmt.Sprintf("DECLINED(%s)", o.Reason)
	case OutcomeTransientFailure, OutcomeFatalFailure:
		return fmt.Sprintf("%s(%s: %s)", o.Kind, o.Code, o.Message)
	}
	return string(o.Kind)
}
