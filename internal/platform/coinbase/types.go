package coinbase

import (
	"strconv"
	"time"

	"github.com/Mikesteam1234/crypfinder/internal/domain"
)

// --------------------------------------------------------------------------
// REST API DTOs. The exchange quotes every numeric field as a string.
// --------------------------------------------------------------------------

// APIProfile represents a sub-account profile as returned by GET /profiles.
type APIProfile struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	IsDefault bool   `json:"is_default"`
	CreatedAt string `json:"created_at"`
}

// ToDomainProfile converts an APIProfile to a domain.Profile.
func (p *APIProfile) ToDomainProfile() domain.Profile {
	return domain.Profile{
		ID:     p.ID,
		Name:   p.Name,
		Active: p.Active,
	}
}

// APIOrder represents an order as returned by the orders endpoints.
type APIOrder struct {
	ID            string `json:"id"`
	ClientOID     string `json:"client_oid,omitempty"`
	Price         string `json:"price"`
	Size          string `json:"size"`
	ProductID     string `json:"product_id"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	CreatedAt     string `json:"created_at"`
	DoneAt        string `json:"done_at,omitempty"`
	DoneReason    string `json:"done_reason,omitempty"`
	FillFees      string `json:"fill_fees"`
	FilledSize    string `json:"filled_size"`
	ExecutedValue string `json:"executed_value"`
	Status        string `json:"status"`
	Settled       bool   `json:"settled"`
}

// ToDomainOrder converts an APIOrder to a domain.Order.
func (o *APIOrder) ToDomainOrder() domain.Order {
	ord := domain.Order{
		ID:            o.ID,
		ClientOID:     o.ClientOID,
		ProductID:     o.ProductID,
		Side:          domain.OrderSide(o.Side),
		Price:         parseFloat(o.Price),
		Size:          parseFloat(o.Size),
		Status:        domain.OrderStatus(o.Status),
		DoneReason:    domain.DoneReason(o.DoneReason),
		ExecutedValue: parseFloat(o.ExecutedValue),
		FillFees:      parseFloat(o.FillFees),
		FilledSize:    parseFloat(o.FilledSize),
	}
	if t, err := time.Parse(time.RFC3339, o.CreatedAt); err == nil {
		ord.CreatedAt = t
	}
	if o.DoneAt != "" {
		if t, err := time.Parse(time.RFC3339, o.DoneAt); err == nil {
			ord.DoneAt = &t
		}
	}
	return ord
}

// APITicker is the response from GET /products/{id}/ticker.
type APITicker struct {
	TradeID int64  `json:"trade_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Bid     string `json:"bid"`
	Ask     string `json:"ask"`
	Volume  string `json:"volume"`
	Time    string `json:"time"`
}

// APIAccount is a currency account as returned by GET /accounts.
type APIAccount struct {
	ID        string `json:"id"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
	Hold      string `json:"hold"`
	ProfileID string `json:"profile_id"`
}

// APITransferResult is the response from POST /profiles/transfer.
type APITransferResult struct {
	ID       string `json:"id,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Currency string `json:"currency,omitempty"`
	Amount   string `json:"amount,omitempty"`
}

// --------------------------------------------------------------------------
// Wire formatting helpers
// --------------------------------------------------------------------------

// FormatPrice renders a quote-currency price to the 2 decimal places the
// exchange expects on order submission.
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// FormatSize renders a base-currency size to the 8 decimal places the
// exchange expects on order submission.
func FormatSize(s float64) string {
	return strconv.FormatFloat(s, 'f', 8, 64)
}

// FormatAmount renders a transfer amount to 2 decimal places.
func FormatAmount(a float64) string {
	return strconv.FormatFloat(a, 'f', 2, 64)
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
