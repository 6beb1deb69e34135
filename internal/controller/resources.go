package controller

import (
	"context"

	"go.uber.org/zap"

	"github.com/paylume/productsync/internal/api"
	"github.com/paylume/productsync/internal/cache"
	"github.com/paylume/productsync/internal/dedup"
	"github.com/paylume/productsync/internal/events"
	"github.com/paylume/productsync/pkg/model"
)

// Deps bundles the shared collaborators every controller needs.
type Deps struct {
	Logger *zap.Logger
	Bus    *events.Bus
	Cache  cache.Store
	Coord  *dedup.Coordinator
	Client *api.Client
}

// Coupons edits the discount codes of a product.
type Coupons struct {
	*Controller[[]model.Coupon]
	client *api.Client
}

func NewCoupons(d Deps) *Coupons {
	c := &Coupons{client: d.Client}
	c.Controller = newController(d, model.ResourceCoupons,
		func(ctx context.Context, token, pid string) ([]model.Coupon, error) {
			return d.Client.ListCoupons(ctx, token, pid)
		})
	return c
}

func (c *Coupons) Create(ctx context.Context, in model.Coupon) (model.Coupon, error) {
	var created model.Coupon
	err := c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		var err error
		created, err = c.client.CreateCoupon(ctx, token, pid, in)
		return err
	})
	return created, err
}

func (c *Coupons) Update(ctx context.Context, id string, in model.Coupon) (model.Coupon, error) {
	var updated model.Coupon
	err := c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		var err error
		updated, err = c.client.UpdateCoupon(ctx, token, pid, id, in)
		return err
	})
	return updated, err
}

func (c *Coupons) Delete(ctx context.Context, id string) error {
	return c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		return c.client.DeleteCoupon(ctx, token, pid, id)
	})
}

// Deliverables edits the post-purchase content of a product.
type Deliverables struct {
	*Controller[[]model.Deliverable]
	client *api.Client
}

func NewDeliverables(d Deps) *Deliverables {
	c := &Deliverables{client: d.Client}
	c.Controller = newController(d, model.ResourceDeliverables,
		func(ctx context.Context, token, pid string) ([]model.Deliverable, error) {
			return d.Client.ListDeliverables(ctx, token, pid)
		})
	return c
}

func (c *Deliverables) Create(ctx context.Context, in model.Deliverable) (model.Deliverable, error) {
	var created model.Deliverable
	err := c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		var err error
		created, err = c.client.CreateDeliverable(ctx, token, pid, in)
		return err
	})
	return created, err
}

func (c *Deliverables) Update(ctx context.Context, id string, in model.Deliverable) (model.Deliverable, error) {
	var updated model.Deliverable
	err := c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		var err error
		updated, err = c.client.UpdateDeliverable(ctx, token, pid, id, in)
		return err
	})
	return updated, err
}

func (c *Deliverables) Delete(ctx context.Context, id string) error {
	return c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		return c.client.DeleteDeliverable(ctx, token, pid, id)
	})
}

// Coproducers edits the revenue-sharing partners of a product.
type Coproducers struct {
	*Controller[[]model.Coproducer]
	client *api.Client
}

func NewCoproducers(d Deps) *Coproducers {
	c := &Coproducers{client: d.Client}
	c.Controller = newController(d, model.ResourceCoproducers,
		func(ctx context.Context, token, pid string) ([]model.Coproducer, error) {
			return d.Client.ListCoproducers(ctx, token, pid)
		})
	return c
}

func (c *Coproducers) Create(ctx context.Context, in model.Coproducer) (model.Coproducer, error) {
	var created model.Coproducer
	err := c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		var err error
		created, err = c.client.CreateCoproducer(ctx, token, pid, in)
		return err
	})
	return created, err
}

func (c *Coproducers) Update(ctx context.Context, id string, in model.Coproducer) (model.Coproducer, error) {
	var updated model.Coproducer
	err := c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		var err error
		updated, err = c.client.UpdateCoproducer(ctx, token, pid, id, in)
		return err
	})
	return updated, err
}

func (c *Coproducers) Delete(ctx context.Context, id string) error {
	return c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		return c.client.DeleteCoproducer(ctx, token, pid, id)
	})
}

// Offers edits the sellable configurations of a product. Saving an offer
// submits its whole order-bump list; the server response carries the
// assigned bump ids.
type Offers struct {
	*Controller[[]model.Offer]
	client *api.Client
}

func NewOffers(d Deps) *Offers {
	c := &Offers{client: d.Client}
	c.Controller = newController(d, model.ResourceOffers,
		func(ctx context.Context, token, pid string) ([]model.Offer, error) {
			return d.Client.ListOffers(ctx, token, pid)
		})
	return c
}

func (c *Offers) Create(ctx context.Context, in model.Offer) (model.Offer, error) {
	var created model.Offer
	err := c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		var err error
		created, err = c.client.CreateOffer(ctx, token, pid, in)
		return err
	})
	return created, err
}

func (c *Offers) Update(ctx context.Context, id string, in model.Offer) (model.Offer, error) {
	var updated model.Offer
	err := c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		var err error
		updated, err = c.client.UpdateOffer(ctx, token, pid, id, in)
		return err
	})
	return updated, err
}

func (c *Offers) Delete(ctx context.Context, id string) error {
	return c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		return c.client.DeleteOffer(ctx, token, pid, id)
	})
}

// Settings edits the one-to-one product settings (single entity, not a list).
type Settings struct {
	*Controller[model.Settings]
	client *api.Client
}

func NewSettings(d Deps) *Settings {
	c := &Settings{client: d.Client}
	c.Controller = newController(d, model.ResourceSettings,
		func(ctx context.Context, token, pid string) (model.Settings, error) {
			return d.Client.GetSettings(ctx, token, pid)
		})
	return c
}

func (c *Settings) Update(ctx context.Context, in model.Settings) (model.Settings, error) {
	var updated model.Settings
	err := c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		var err error
		updated, err = c.client.UpdateSettings(ctx, token, pid, in)
		return err
	})
	return updated, err
}

// Registry owns one controller per resource family for the product the
// operator is editing. Views bind the controller of their tab; the
// prefetcher warms the rest.
type Registry struct {
	Settings     *Settings
	Offers       *Offers
	Checkouts    *Checkouts
	Coupons      *Coupons
	Deliverables *Deliverables
	Coproducers  *Coproducers

	store cache.Store
}

// NewRegistry wires one controller per resource family over shared deps.
func NewRegistry(d Deps) *Registry {
	return &Registry{
		Settings:     NewSettings(d),
		Offers:       NewOffers(d),
		Checkouts:    NewCheckouts(d),
		Coupons:      NewCoupons(d),
		Deliverables: NewDeliverables(d),
		Coproducers:  NewCoproducers(d),
		store:        d.Cache,
	}
}

// Clear drops the whole cache. Called on the session/logout boundary.
func (r *Registry) Clear(ctx context.Context) {
	r.store.Clear(ctx)
}
