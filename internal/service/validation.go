package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"inapppay/internal/core/domain"
	"inapppay/pkg/apperror"

	"golang.org/x/text/currency"
)

var (
	cvvPattern        = regexp.MustCompile(`^[0-9]{3,4}$`)
	cardholderPattern = regexp.MustCompile(`^[a-zA-Z ]{2,}$`)
)

// RequestValidator checks a purchase request before any network call and
// returns it in normalized form.
type RequestValidator struct {
	projectName string
	userID      string
	now         func() time.Time
}

func NewRequestValidator(projectName, userID string) *RequestValidator {
	return &RequestValidator{
		projectName: projectName,
		userID:      userID,
		now:         time.Now,
	}
}

// Validate returns the normalized request or an IAP_001 error.
func (v *RequestValidator) Validate(req domain.PurchaseRequest) (domain.PurchaseRequest, error) {
	if strings.TrimSpace(v.projectName) == "" {
		return req, apperror.InvalidRequest("MISSING_PROJECT_NAME: project name is not configured")
	}
	if strings.TrimSpace(v.userID) == "" {
		return req, apperror.InvalidRequest("MISSING_DEVICE_ID: user id is not configured")
	}

	out := req.Clone()
	out.ItemID = strings.TrimSpace(out.ItemID)
	if out.ItemID == "" {
		return req, apperror.InvalidRequest("itemId is required")
	}
	if !out.Amount.IsPositive() {
		return req, apperror.InvalidRequest("amount must be greater than zero")
	}

	if out.Currency == "" {
		out.Currency = domain.DefaultCurrency
	}
	out.Currency = strings.ToUpper(strings.TrimSpace(out.Currency))
	unit, err := currency.ParseISO(out.Currency)
	if err != nil {
		return req, apperror.InvalidRequest(fmt.Sprintf("unknown currency %q", req.Currency))
	}
	scale, _ := currency.Standard.Rounding(unit)
	if !out.Amount.Equal(out.Amount.Round(int32(scale))) {
		return req, apperror.InvalidRequest(fmt.Sprintf("amount has more than %d decimal places for %s", scale, out.Currency))
	}

	if out.PaymentMethod == "" {
		out.PaymentMethod = domain.PaymentMethodPayPal
		if out.Card != nil {
			out.PaymentMethod = domain.PaymentMethodCard
		}
	}
	switch out.PaymentMethod {
	case domain.PaymentMethodCard:
		if out.Card == nil {
			return req, apperror.InvalidRequest("card details are required for card payments")
		}
		if err := v.validateCard(out.Card); err != nil {
			return req, err
		}
	case domain.PaymentMethodPayPal:
		if out.Card != nil {
			return req, apperror.InvalidRequest("card details given for a paypal payment")
		}
	default:
		return req, apperror.InvalidRequest(fmt.Sprintf("unsupported payment method %q", out.PaymentMethod))
	}

	return out, nil
}

func (v *RequestValidator) validateCard(card *domain.Card) error {
	if !domain.LuhnValid(card.Digits()) {
		return apperror.InvalidRequest("invalid card number")
	}
	if !domain.ExpiryValid(card.Expiry, v.now()) {
		return apperror.InvalidRequest("invalid or past card expiry, expected MM/YY")
	}
	if !cvvPattern.MatchString(card.CVV) {
		return apperror.InvalidRequest("invalid CVV")
	}
	if !cardholderPattern.MatchString(strings.TrimSpace(card.Name)) {
		return apperror.InvalidRequest("invalid cardholder name")
	}
	return nil
}
