package model

import (
	"github.com/shopspring/decimal"
)

// PricingMode selects how an offer charges the buyer.
type PricingMode string

const (
	PricingSingle       PricingMode = "single"
	PricingSubscription PricingMode = "subscription"
)

// SubscriptionPlan describes recurring pricing for subscription offers.
type SubscriptionPlan struct {
	NormalPrice     decimal.Decimal `json:"normal_price"`
	PromoPrice      decimal.Decimal `json:"promo_price"`
	FirstCyclePrice decimal.Decimal `json:"first_cycle_price"`
	ChargeCount     int             `json:"charge_count"` // 0 = charge until cancelled
}

// OrderBump is an extra offer presented on the checkout of its parent offer.
// While the parent offer draft is unsaved, bumps have no ID and are addressed
// by list position.
type OrderBump struct {
	ID          string `json:"id,omitempty"`
	ProductID   string `json:"product_id"` // source product
	OfferID     string `json:"offer_id"`   // source offer
	Title       string `json:"title"`
	Tag         string `json:"tag,omitempty"`
	Description string `json:"description,omitempty"`
}

// Offer is a sellable configuration of a product.
type Offer struct {
	ID          string            `json:"id"`
	ProductID   string            `json:"product_id"`
	Name        string            `json:"name"`
	PricingMode PricingMode       `json:"pricing_mode"`
	Price       decimal.Decimal   `json:"price"`
	Plan        *SubscriptionPlan `json:"plan,omitempty"` // set when pricing_mode=subscription
	Free        bool              `json:"free"`
	CheckoutID  string            `json:"checkout_id,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Status      Status            `json:"status"`
	Bumps       []OrderBump       `json:"order_bumps,omitempty"`
}
