package controller

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/paylume/productsync/internal/api"
	"github.com/paylume/productsync/internal/cache"
	"github.com/paylume/productsync/pkg/model"
)

// ErrNotFound is returned when a checkout or testimonial position does not
// exist in the current view state.
var ErrNotFound = errors.New("controller: entity not found in view state")

// Checkouts edits the purchase pages of a product, including their
// testimonial lists. Testimonial activation toggles go through the
// optimistic path; everything else is a plain mutate-then-refresh.
type Checkouts struct {
	*Controller[[]model.Checkout]
	client  *api.Client
	toggler *Toggler
}

func NewCheckouts(d Deps) *Checkouts {
	c := &Checkouts{
		client:  d.Client,
		toggler: NewToggler(d.Logger, d.Bus),
	}
	c.Controller = newController(d, model.ResourceCheckouts,
		func(ctx context.Context, token, pid string) ([]model.Checkout, error) {
			return d.Client.ListCheckouts(ctx, token, pid)
		})
	return c
}

func (c *Checkouts) Update(ctx context.Context, id string, in model.Checkout) (model.Checkout, error) {
	var updated model.Checkout
	err := c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		var err error
		updated, err = c.client.UpdateCheckout(ctx, token, pid, id, in)
		return err
	})
	return updated, err
}

func (c *Checkouts) CreateTestimonial(ctx context.Context, checkoutID string, in model.Testimonial) (model.Testimonial, error) {
	var created model.Testimonial
	err := c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		var err error
		created, err = c.client.CreateTestimonial(ctx, token, pid, checkoutID, in)
		return err
	})
	return created, err
}

func (c *Checkouts) DeleteTestimonial(ctx context.Context, checkoutID, id string) error {
	return c.Mutate(ctx, func(ctx context.Context, token, pid string) error {
		return c.client.DeleteTestimonial(ctx, token, pid, checkoutID, id)
	})
}

// ToggleTestimonial optimistically flips the active flag of the testimonial
// at position index within checkoutID's list: the view updates immediately,
// the remote update runs after, and a failure restores the previous value
// and surfaces an error notice. A testimonial without a server id is a
// local draft; its flag is flipped and kept without any remote call.
func (c *Checkouts) ToggleTestimonial(ctx context.Context, checkoutID string, index int, active bool) error {
	c.mu.Lock()
	ci := -1
	for i := range c.data {
		if c.data[i].ID == checkoutID {
			ci = i
			break
		}
	}
	if ci < 0 || index < 0 || index >= len(c.data[ci].Testimonials) {
		c.mu.Unlock()
		return ErrNotFound
	}
	prev := c.data[ci].Testimonials[index].Active
	item := c.data[ci].Testimonials[index]
	pid, tok := c.productID, c.token
	c.mu.Unlock()

	item.Active = active
	cmd := ToggleCommand{
		Resource:  model.ResourceCheckouts,
		ProductID: pid,
		Persisted: item.ID != "",
		Apply: func() {
			c.setTestimonialActive(checkoutID, index, active)
		},
		Compensate: func() {
			c.setTestimonialActive(checkoutID, index, prev)
		},
		Call: func(ctx context.Context) error {
			echo, err := c.client.UpdateTestimonial(ctx, tok, pid, checkoutID, item.ID, item)
			if err != nil {
				return err
			}
			c.reconcileTestimonial(ctx, checkoutID, index, echo)
			return nil
		},
		SuccessMessage: "testimonial updated",
		FailureMessage: "could not update testimonial, change was undone",
	}
	return c.toggler.Run(ctx, cmd)
}

// setTestimonialActive flips the flag in view state only; the cache is
// written exclusively from server-confirmed values.
func (c *Checkouts) setTestimonialActive(checkoutID string, index int, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.data {
		if c.data[i].ID != checkoutID {
			continue
		}
		if index >= 0 && index < len(c.data[i].Testimonials) {
			c.data[i].Testimonials[index].Active = active
		}
		return
	}
}

// reconcileTestimonial replaces the toggled item with the server echo and
// persists the now-confirmed list to the cache.
func (c *Checkouts) reconcileTestimonial(ctx context.Context, checkoutID string, index int, echo model.Testimonial) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.data {
		if c.data[i].ID != checkoutID {
			continue
		}
		if index >= 0 && index < len(c.data[i].Testimonials) {
			c.data[i].Testimonials[index] = echo
		}
		break
	}
	key := cache.Key(c.resource, c.productID)
	if err := cache.Put(ctx, c.store, key, c.data); err != nil {
		c.logger.Warn("controller.cache_write_failed",
			zap.String("key", key),
			zap.Error(err))
	}
}
