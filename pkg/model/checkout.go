package model

import (
	"github.com/shopspring/decimal"
)

// Testimonial is displayed on a checkout page. Rating runs 0-5.
type Testimonial struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Text     string `json:"text"`
	Rating   int    `json:"rating"`
	Active   bool   `json:"active"`
	ImageURL string `json:"image_url,omitempty"`
}

// Countdown is the scarcity timer shown on a checkout page.
type Countdown struct {
	Enabled bool  `json:"enabled"`
	Seconds int64 `json:"seconds,omitempty"`
}

// Checkout is the purchase page configuration for a product.
type Checkout struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`

	Theme          string `json:"theme"`
	AccentColor    string `json:"accent_color,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
	LogoPosition   string `json:"logo_position,omitempty"`
	BannerURL      string `json:"banner_url,omitempty"`
	BannerPosition string `json:"banner_position,omitempty"`

	RequireAddress           bool `json:"require_address"`
	RequirePhone             bool `json:"require_phone"`
	RequireBirthdate         bool `json:"require_birthdate"`
	RequireDocument          bool `json:"require_document"`
	RequireEmailConfirmation bool `json:"require_email_confirmation"`

	Countdown Countdown `json:"countdown"`

	AcceptCard   bool `json:"accept_card"`
	AcceptBoleto bool `json:"accept_boleto"`
	AcceptPix    bool `json:"accept_pix"`

	// Per payment-method discount, keyed by "card" | "boleto" | "pix".
	MethodDiscounts map[string]decimal.Decimal `json:"method_discounts,omitempty"`

	MaxInstallments  int `json:"max_installments,omitempty"`
	BoletoExpiryDays int `json:"boleto_expiry_days,omitempty"`
	PixExpiryMinutes int `json:"pix_expiry_minutes,omitempty"`

	Testimonials []Testimonial `json:"testimonials,omitempty"`
}
