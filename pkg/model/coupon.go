package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon is a discount code scoped to one product.
type Coupon struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	Code        string          `json:"code"`
	Amount      decimal.Decimal `json:"amount"`     // value or percent, per Percentage
	Percentage  bool            `json:"percentage"` // true = Amount is a percent
	MinPurchase decimal.Decimal `json:"min_purchase"`
	UsageLimit  int             `json:"usage_limit"` // 0 = unlimited
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Status      Status          `json:"status"`
}

// Deliverable is content the buyer receives after purchase.
type Deliverable struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`    // "file" | "link"
	Content   string `json:"content"` // URL or storage pointer
	Size      int64  `json:"size,omitempty"`
	Status    Status `json:"status"`
}

// Coproducer shares revenue on a product.
type Coproducer struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Commission decimal.Decimal `json:"commission"` // percent of each sale
	Lifetime   bool            `json:"lifetime"`
	Months     int             `json:"months,omitempty"` // contract duration when not lifetime
	ShareSales bool            `json:"share_sales"`      // coproducer sees sales data
	ShareLeads bool            `json:"share_leads"`      // coproducer sees buyer contacts
	Status     Status          `json:"status"`
}
