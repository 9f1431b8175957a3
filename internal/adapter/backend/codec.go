package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"inapppay/internal/core/domain"
	"inapppay/internal/core/ports"
	"inapppay/internal/wire"
)

// maxPlainTextReason bounds how much of a non-JSON error body becomes the rejection message.
const maxPlainTextReason = 200

// maxTokenReason bounds a bare error body that is used as the rejection code.
const maxTokenReason = 64

// Codec converts purchase requests to backend bodies and backend bodies to outcomes.
type Codec struct {
	projectName   string
	userID        string
	signer        ports.ReceiptSigner
	receiptSecret string
}

// NewCodec creates a codec. Receipt signatures are verified only when both
// signer and receiptSecret are set.
func NewCodec(projectName, userID string, signer ports.ReceiptSigner, receiptSecret string) *Codec {
	return &Codec{
		projectName:   projectName,
		userID:        userID,
		signer:        signer,
		receiptSecret: receiptSecret,
	}
}

// Encode builds the processPurchase body. The idempotency key is embedded so
// the backend can deduplicate even if a proxy strips headers.
func (c *Codec) Encode(req domain.PurchaseRequest, key domain.IdempotencyKey) ([]byte, error) {
	currency := req.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	body := wire.PurchaseBody{
		ProjectName:    c.projectName,
		UserID:         c.userID,
		ProductID:      req.ItemID,
		Amount:         req.Amount.String(),
		Currency:       currency,
		PaymentMethod:  string(req.PaymentMethod),
		Metadata:       req.Metadata,
		IdempotencyKey: key.String(),
	}
	if req.Card != nil {
		body.CardData = &wire.CardData{
			CardNumber: req.Card.Digits(),
			Expiry:     req.Card.Expiry,
			CVV:        req.Card.CVV,
			Name:       req.Card.Name,
			CardType:   string(req.Card.Brand()),
		}
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal purchase body: %w", err)
	}
	return b, nil
}

// EncodeQuery builds the body of a read-only endpoint.
func (c *Codec) EncodeQuery(productID string) wire.QueryBody {
	return wire.QueryBody{
		ProjectName: c.projectName,
		UserID:      c.userID,
		ProductID:   productID,
	}
}

// Decode maps a 2xx response body to an Outcome. Any input yields an Outcome.
func (c *Codec) Decode(body []byte) domain.Outcome {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return domain.FatalFailure(domain.CodeMalformedResponse, "response is not a JSON object")
	}
	if _, ok := fields["success"]; !ok {
		return domain.FatalFailure(domain.CodeMalformedResponse, "response has no success field")
	}

	var env wire.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.FatalFailure(domain.CodeMalformedResponse, fmt.Sprintf("decode envelope: %v", err))
	}

	if !env.Success {
		reason := firstNonEmpty(env.ErrorCode, env.Error, domain.CodePurchaseFailed)
		return domain.Declined(reason, firstNonEmpty(env.Error, env.Message))
	}

	return c.decodeReceipt(env)
}

func (c *Codec) decodeReceipt(env wire.Envelope) domain.Outcome {
	var data map[string]any
	if len(env.Data) == 0 || json.Unmarshal(env.Data, &data) != nil || data == nil {
		return domain.FatalFailure(domain.CodeMalformedResponse, "success response carries no receipt data")
	}

	id := firstString(data, "receiptId", "receipt", "transactionId")
	if id == "" {
		return domain.FatalFailure(domain.CodeMalformedResponse, "success response carries no receipt id")
	}

	var rd wire.ReceiptData
	_ = json.Unmarshal(env.Data, &rd)

	if c.signer != nil && c.receiptSecret != "" {
		if rd.Signature == "" || !c.signer.Verify(c.receiptSecret, rd.Canonical(), rd.Signature) {
			return domain.FatalFailure(domain.CodeInvalidSignature, "receipt signature does not verify")
		}
	}

	return domain.Success(domain.Receipt{
		ID:        id,
		Message:   env.Message,
		Signature: rd.Signature,
		Data:      data,
	})
}

// DecodeRejection extracts an error code and message from a non-2xx body.
func (c *Codec) DecodeRejection(status int, body []byte) (code, message string) {
	var (
		env  wire.Envelope
		text string
	)
	if err := json.Unmarshal(body, &env); err == nil {
		code = firstNonEmpty(env.ErrorCode, env.Error)
		message = firstNonEmpty(env.Error, env.Message)
	} else if err := json.Unmarshal(body, &text); err == nil {
		text = strings.TrimSpace(text)
	} else {
		text = strings.TrimSpace(string(body))
	}
	if text != "" && len(text) <= maxPlainTextReason && utf8.ValidString(text) {
		message = text
		if isReasonToken(text) {
			code = text
		}
	}
	if code == "" {
		code = fmt.Sprintf("HTTP_%d", status)
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return code, message
}

// isReasonToken reports whether s looks like a machine-readable code such as
// "insufficient_funds" rather than prose.
func isReasonToken(s string) bool {
	if len(s) > maxTokenReason {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstString(data map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := data[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
