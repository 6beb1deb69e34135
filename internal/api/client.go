// Package api is the typed client for the platform's resource API. Every
// sub-resource of a product is exposed as plain CRUD; the server's returned
// entity is always authoritative and the caller overwrites local state with
// it, never merging.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/paylume/productsync/internal/rate"
	"github.com/paylume/productsync/pkg/model"
)

// Client talks to the resource API on behalf of one dashboard session.
// The auth token is passed through opaquely on every call; the client never
// interprets or refreshes it.
type Client struct {
	logger  *zap.Logger
	baseURL string
	tr      *transport
}

// NewClient constructs a resource API client. httpClient may be nil.
func NewClient(logger *zap.Logger, baseURL string, rateMgr *rate.Manager, httpClient *http.Client, retryMax int) *Client {
	return &Client{
		logger:  logger,
		baseURL: baseURL,
		tr:      newTransport(logger, rateMgr, httpClient, retryMax),
	}
}

func (c *Client) call(ctx context.Context, token, method, path, endpoint string, payload, out any) error {
	if token == "" {
		return ErrNoToken
	}

	var body []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = data
	}

	newReq := func(ctx context.Context) (*http.Request, error) {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	}

	return c.tr.doJSON(ctx, endpoint, newReq, out)
}

func productPath(productID string, rest string) string {
	return "/api/v1/products/" + url.PathEscape(productID) + rest
}

// --- Product & settings ---

// GetProduct fetches the parent product (read-only mirror).
func (c *Client) GetProduct(ctx context.Context, token, productID string) (model.Product, error) {
	var out model.Product
	err := c.call(ctx, token, http.MethodGet, productPath(productID, ""), "product", nil, &out)
	return out, err
}

// GetSettings fetches the product's one-to-one settings.
func (c *Client) GetSettings(ctx context.Context, token, productID string) (model.Settings, error) {
	var out model.Settings
	err := c.call(ctx, token, http.MethodGet, productPath(productID, "/settings"), "settings", nil, &out)
	return out, err
}

// UpdateSettings replaces the product settings and returns the server copy.
func (c *Client) UpdateSettings(ctx context.Context, token, productID string, s model.Settings) (model.Settings, error) {
	var out model.Settings
	err := c.call(ctx, token, http.MethodPut, productPath(productID, "/settings"), "settings", s, &out)
	return out, err
}

// --- Coupons ---

func (c *Client) ListCoupons(ctx context.Context, token, productID string) ([]model.Coupon, error) {
	var out []model.Coupon
	err := c.call(ctx, token, http.MethodGet, productPath(productID, "/coupons"), "coupons", nil, &out)
	return out, err
}

func (c *Client) CreateCoupon(ctx context.Context, token, productID string, in model.Coupon) (model.Coupon, error) {
	var out model.Coupon
	err := c.call(ctx, token, http.MethodPost, productPath(productID, "/coupons"), "coupons", in, &out)
	return out, err
}

func (c *Client) UpdateCoupon(ctx context.Context, token, productID, id string, in model.Coupon) (model.Coupon, error) {
	var out model.Coupon
	err := c.call(ctx, token, http.MethodPut, productPath(productID, "/coupons/"+url.PathEscape(id)), "coupons", in, &out)
	return out, err
}

func (c *Client) DeleteCoupon(ctx context.Context, token, productID, id string) error {
	return c.call(ctx, token, http.MethodDelete, productPath(productID, "/coupons/"+url.PathEscape(id)), "coupons", nil, nil)
}

// --- Deliverables ---

func (c *Client) ListDeliverables(ctx context.Context, token, productID string) ([]model.Deliverable, error) {
	var out []model.Deliverable
	err := c.call(ctx, token, http.MethodGet, productPath(productID, "/deliverables"), "deliverables", nil, &out)
	return out, err
}

func (c *Client) CreateDeliverable(ctx context.Context, token, productID string, in model.Deliverable) (model.Deliverable, error) {
	var out model.Deliverable
	err := c.call(ctx, token, http.MethodPost, productPath(productID, "/deliverables"), "deliverables", in, &out)
	return out, err
}

func (c *Client) UpdateDeliverable(ctx context.Context, token, productID, id string, in model.Deliverable) (model.Deliverable, error) {
	var out model.Deliverable
	err := c.call(ctx, token, http.MethodPut, productPath(productID, "/deliverables/"+url.PathEscape(id)), "deliverables", in, &out)
	return out, err
}

func (c *Client) DeleteDeliverable(ctx context.Context, token, productID, id string) error {
	return c.call(ctx, token, http.MethodDelete, productPath(productID, "/deliverables/"+url.PathEscape(id)), "deliverables", nil, nil)
}

// --- Coproducers ---

func (c *Client) ListCoproducers(ctx context.Context, token, productID string) ([]model.Coproducer, error) {
	var out []model.Coproducer
	err := c.call(ctx, token, http.MethodGet, productPath(productID, "/coproducers"), "coproducers", nil, &out)
	return out, err
}

func (c *Client) CreateCoproducer(ctx context.Context, token, productID string, in model.Coproducer) (model.Coproducer, error) {
	var out model.Coproducer
	err := c.call(ctx, token, http.MethodPost, productPath(productID, "/coproducers"), "coproducers", in, &out)
	return out, err
}

func (c *Client) UpdateCoproducer(ctx context.Context, token, productID, id string, in model.Coproducer) (model.Coproducer, error) {
	var out model.Coproducer
	err := c.call(ctx, token, http.MethodPut, productPath(productID, "/coproducers/"+url.PathEscape(id)), "coproducers", in, &out)
	return out, err
}

func (c *Client) DeleteCoproducer(ctx context.Context, token, productID, id string) error {
	return c.call(ctx, token, http.MethodDelete, productPath(productID, "/coproducers/"+url.PathEscape(id)), "coproducers", nil, nil)
}

// --- Offers ---

func (c *Client) ListOffers(ctx context.Context, token, productID string) ([]model.Offer, error) {
	var out []model.Offer
	err := c.call(ctx, token, http.MethodGet, productPath(productID, "/offers"), "offers", nil, &out)
	return out, err
}

func (c *Client) CreateOffer(ctx context.Context, token, productID string, in model.Offer) (model.Offer, error) {
	var out model.Offer
	err := c.call(ctx, token, http.MethodPost, productPath(productID, "/offers"), "offers", in, &out)
	return out, err
}

func (c *Client) UpdateOffer(ctx context.Context, token, productID, id string, in model.Offer) (model.Offer, error) {
	var out model.Offer
	err := c.call(ctx, token, http.MethodPut, productPath(productID, "/offers/"+url.PathEscape(id)), "offers", in, &out)
	return out, err
}

func (c *Client) DeleteOffer(ctx context.Context, token, productID, id string) error {
	return c.call(ctx, token, http.MethodDelete, productPath(productID, "/offers/"+url.PathEscape(id)), "offers", nil, nil)
}

// --- Checkouts & testimonials ---

func (c *Client) ListCheckouts(ctx context.Context, token, productID string) ([]model.Checkout, error) {
	var out []model.Checkout
	err := c.call(ctx, token, http.MethodGet, productPath(productID, "/checkouts"), "checkouts", nil, &out)
	return out, err
}

func (c *Client) UpdateCheckout(ctx context.Context, token, productID, id string, in model.Checkout) (model.Checkout, error) {
	var out model.Checkout
	err := c.call(ctx, token, http.MethodPut, productPath(productID, "/checkouts/"+url.PathEscape(id)), "checkouts", in, &out)
	return out, err
}

func (c *Client) CreateTestimonial(ctx context.Context, token, productID, checkoutID string, in model.Testimonial) (model.Testimonial, error) {
	var out model.Testimonial
	path := productPath(productID, "/checkouts/"+url.PathEscape(checkoutID)+"/testimonials")
	err := c.call(ctx, token, http.MethodPost, path, "checkouts", in, &out)
	return out, err
}

func (c *Client) UpdateTestimonial(ctx context.Context, token, productID, checkoutID, id string, in model.Testimonial) (model.Testimonial, error) {
	var out model.Testimonial
	path := productPath(productID, "/checkouts/"+url.PathEscape(checkoutID)+"/testimonials/"+url.PathEscape(id))
	err := c.call(ctx, token, http.MethodPut, path, "checkouts", in, &out)
	return out, err
}

func (c *Client) DeleteTestimonial(ctx context.Context, token, productID, checkoutID, id string) error {
	path := productPath(productID, "/checkouts/"+url.PathEscape(checkoutID)+"/testimonials/"+url.PathEscape(id))
	return c.call(ctx, token, http.MethodDelete, path, "checkouts", nil, nil)
}

// --- Binary assets ---

// Upload sends a binary asset (logo, banner, testimonial image, deliverable
// file) as multipart form data and returns the stored asset URL.
func (c *Client) Upload(ctx context.Context, token, productID, ownerID, kind, filename string, r io.Reader) (model.UploadResult, error) {
	var out model.UploadResult
	if token == "" {
		return out, ErrNoToken
	}

	// Uploads are not retried: the reader can only be consumed once.
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("owner_id", ownerID); err != nil {
		return out, err
	}
	if err := w.WriteField("kind", kind); err != nil {
		return out, err
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return out, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return out, err
	}
	if err := w.Close(); err != nil {
		return out, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+productPath(productID, "/uploads"), &buf)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.tr.http.Do(req)
	if err != nil {
		return out, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if len(body) > 0 {
			_ = json.Unmarshal(body, apiErr)
		}
		return out, apiErr
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode failed: %w", err)
	}
	return out, nil
}
