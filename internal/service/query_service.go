package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"inapppay/internal/core/domain"
	"inapppay/internal/core/ports"
	"inapppay/internal/wire"
	"inapppay/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// QueryService wraps the read-only backend endpoints. Each call is a single
// attempt; failures surface as AppErrors.
type QueryService struct {
	transport   ports.Transport
	projectName string
	userID      string
	log         zerolog.Logger
}

func NewQueryService(transport ports.Transport, projectName, userID string, log zerolog.Logger) *QueryService {
	return &QueryService{
		transport:   transport,
		projectName: projectName,
		userID:      userID,
		log:         log,
	}
}

// ValidateItem checks that itemID can be bought and returns its catalog entry.
func (s *QueryService) ValidateItem(ctx context.Context, itemID string) (*domain.Item, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, apperror.InvalidRequest("item id is required")
	}

	var data wire.ItemData
	if err := s.call(ctx, wire.EndpointValidateItem, itemID, "VALIDATION_FAILED", &data); err != nil {
		return nil, err
	}

	itemType := domain.ItemType(strings.ToLower(data.Type))
	if !itemType.Valid() {
		return nil, apperror.ErrInvalidItemType(data.Type)
	}
	price, err := decimal.NewFromString(data.Price)
	if err != nil {
		return nil, apperror.ErrParseFailed(fmt.Errorf("item price %q: %w", data.Price, err))
	}

	return &domain.Item{
		ID:          firstNonBlank(data.ProductID, itemID),
		Name:        data.Name,
		Description: data.Description,
		Type:        itemType,
		Price:       price,
		Currency:    strings.ToUpper(data.Currency),
	}, nil
}

// IsPurchased reports whether the configured user owns itemID.
func (s *QueryService) IsPurchased(ctx context.Context, itemID string) (domain.EntitlementStatus, error) {
	var data wire.StatusData
	if err := s.call(ctx, wire.EndpointCheckPurchased, itemID, "CHECK_FAILED", &data); err != nil {
		return domain.EntitlementStatus{}, err
	}
	return domain.EntitlementStatus{Owned: data.Purchased}, nil
}

// IsSubscribed reports whether the configured user holds an active subscription to itemID.
func (s *QueryService) IsSubscribed(ctx context.Context, itemID string) (domain.EntitlementStatus, error) {
	var data wire.StatusData
	if err := s.call(ctx, wire.EndpointCheckSubscribed, itemID, "CHECK_FAILED", &data); err != nil {
		return domain.EntitlementStatus{}, err
	}
	return domain.EntitlementStatus{Owned: data.Subscribed}, nil
}

func (s *QueryService) ListPurchases(ctx context.Context) ([]domain.PurchaseRecord, error) {
	return s.list(ctx, wire.EndpointListPurchases)
}

func (s *QueryService) ListSubscriptions(ctx context.Context) ([]domain.PurchaseRecord, error) {
	return s.list(ctx, wire.EndpointListSubscriptions)
}

func (s *QueryService) list(ctx context.Context, endpoint string) ([]domain.PurchaseRecord, error) {
	var data []wire.ReceiptData
	if err := s.call(ctx, endpoint, "", "UNKNOWN_ERROR", &data); err != nil {
		return nil, err
	}

	records := make([]domain.PurchaseRecord, 0, len(data))
	for _, rd := range data {
		amount, err := decimal.NewFromString(rd.Amount)
		if err != nil {
			return nil, apperror.ErrParseFailed(fmt.Errorf("receipt %s amount: %w", rd.ReceiptID, err))
		}
		rec := domain.PurchaseRecord{
			ReceiptID: rd.ReceiptID,
			ItemID:    rd.ProductID,
			Amount:    amount,
			Currency:  rd.Currency,
		}
		if rd.PurchasedAt != "" {
			if ts, err := time.Parse(time.RFC3339, rd.PurchasedAt); err == nil {
				rec.PurchasedAt = ts
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// call posts a query body and decodes the envelope data into out.
func (s *QueryService) call(ctx context.Context, endpoint, productID, fallbackCode string, out any) error {
	if s.projectName == "" {
		return apperror.InvalidRequest("MISSING_PROJECT_NAME: project name is not configured")
	}
	if s.userID == "" {
		return apperror.InvalidRequest("MISSING_DEVICE_ID: user id is not configured")
	}

	body := wire.QueryBody{ProjectName: s.projectName, UserID: s.userID, ProductID: productID}
	env, err := s.transport.Call(ctx, endpoint, body)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.ErrNetwork(err)
	}

	if !env.Success {
		code := firstNonBlank(env.ErrorCode, fallbackCode)
		msg := firstNonBlank(env.Error, env.Message, "request rejected")
		s.log.Info().Str("endpoint", endpoint).Str("code", code).Msg("query rejected")
		return apperror.ErrRejected(code, msg)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return apperror.ErrParseFailed(fmt.Errorf("%s: empty data", endpoint))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperror.ErrParseFailed(fmt.Errorf("%s: %w", endpoint, err))
	}
	return nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
