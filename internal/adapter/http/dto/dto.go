package dto

import "inapppay/internal/wire"

// CardData is the card section of a purchase request.
type CardData struct {
	CardNumber string `json:"cardNumber" binding:"required,numeric,min=12,max=19"`
	Expiry     string `json:"expiry" binding:"required,len=5"`
	CVV        string `json:"cvv" binding:"required,numeric,min=3,max=4"`
	Name       string `json:"name" binding:"required,min=2,max=100"`
	CardType   string `json:"cardType,omitempty"`
}

// PurchaseRequest is the body of POST /processPurchase.
type PurchaseRequest struct {
	ProjectName    string            `json:"projectName" binding:"required,safe_id"`
	UserID         string            `json:"userId" binding:"required,max=128"`
	ProductID      string            `json:"productId" binding:"required,safe_id"`
	Amount         string            `json:"amount" binding:"required,decimal_amount"`
	Currency       string            `json:"currency" binding:"required,len=3,alpha"`
	PaymentMethod  string            `json:"paymentMethod" binding:"required,oneof=card paypal"`
	CardData       *CardData         `json:"cardData,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
}

// ToWire converts the bound request to the backend body.
func (r PurchaseRequest) ToWire() wire.PurchaseBody {
	body := wire.PurchaseBody{
		ProjectName:    r.ProjectName,
		UserID:         r.UserID,
		ProductID:      r.ProductID,
		Amount:         r.Amount,
		Currency:       r.Currency,
		PaymentMethod:  r.PaymentMethod,
		Metadata:       r.Metadata,
		IdempotencyKey: r.IdempotencyKey,
	}
	if r.CardData != nil {
		body.CardData = &wire.CardData{
			CardNumber: r.CardData.CardNumber,
			Expiry:     r.CardData.Expiry,
			CVV:        r.CardData.CVV,
			Name:       r.CardData.Name,
			CardType:   r.CardData.CardType,
		}
	}
	return body
}

// QueryRequest is the body of every read-only endpoint.
type QueryRequest struct {
	ProjectName string `json:"projectName" binding:"required,safe_id"`
	UserID      string `json:"userId" binding:"required,max=128"`
	ProductID   string `json:"productId" binding:"omitempty,safe_id"`
}

func (r QueryRequest) ToWire() wire.QueryBody {
	return wire.QueryBody{ProjectName: r.ProjectName, UserID: r.UserID, ProductID: r.ProductID}
}

// StatusResponse is the data of the check endpoints.
type StatusResponse = wire.StatusData
