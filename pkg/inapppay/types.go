package inapppay

import (
	"inapppay/internal/core/domain"
	"inapppay/internal/core/ports"
	"inapppay/internal/service"
)

// Domain types re-exported for callers outside this module.
type (
	PurchaseRequest   = domain.PurchaseRequest
	Card              = domain.Card
	PaymentMethod     = domain.PaymentMethod
	Outcome           = domain.Outcome
	OutcomeKind       = domain.OutcomeKind
	Receipt           = domain.Receipt
	Transaction       = domain.Transaction
	Attempt           = domain.Attempt
	State             = domain.State
	Item              = domain.Item
	EntitlementStatus = domain.EntitlementStatus
	PurchaseRecord    = domain.PurchaseRecord

	KeyStore         = ports.KeyStore
	TransactionStore = ports.TransactionStore
	Transport        = ports.Transport

	SubmitOption = service.SubmitOption
)

const (
	PaymentMethodCard   = domain.PaymentMethodCard
	PaymentMethodPayPal = domain.PaymentMethodPayPal
)

var (
	WithDeadline = service.WithDeadline
	WithTimeout  = service.WithTimeout
	WithProgress = service.WithProgress
)
