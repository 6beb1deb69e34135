package model

import (
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state shared by products and their sub-resources.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ResourceType identifies one cacheable sub-resource family of a product.
type ResourceType string

const (
	ResourceProduct      ResourceType = "product"
	ResourceSettings     ResourceType = "settings"
	ResourceOffers       ResourceType = "offers"
	ResourceCheckouts    ResourceType = "checkouts"
	ResourceCoupons      ResourceType = "coupons"
	ResourceDeliverables ResourceType = "deliverables"
	ResourceCoproducers  ResourceType = "coproducers"
)

// SubResources lists every resource family owned by a product, in the order
// the dashboard tabs present them. The prefetcher walks this list.
var SubResources = []ResourceType{
	ResourceSettings,
	ResourceOffers,
	ResourceCheckouts,
	ResourceCoupons,
	ResourceDeliverables,
	ResourceCoproducers,
}

// Product is the parent entity every sub-resource belongs to.
// It is owned by the backend and mirrored read-only in the cache.
type Product struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Status         Status          `json:"status"`
	AmountInvoiced decimal.Decimal `json:"amount_invoiced"`
	UnitsSold      int64           `json:"units_sold"`
}

// Settings holds the one-to-one configuration of a product.
type Settings struct {
	ProductID    string `json:"product_id"`
	SupportEmail string `json:"support_email"`
	SupportPhone string `json:"support_phone"`
	Language     string `json:"language"` // e.g. "pt-BR", "en-US"
	Currency     string `json:"currency"` // e.g. "BRL", "USD"
	Status       Status `json:"status"`
}

// UploadResult is the response of a binary asset upload (logo, banner,
// testimonial image, deliverable file).
type UploadResult struct {
	URL string `json:"url"`
}
