// Package draft holds in-memory, unpersisted sub-entity lists edited inside
// a parent form. Order bumps live here while their offer draft is open:
// they are addressed by list position until the parent save assigns ids.
package draft

import (
	"context"
	"errors"
	"sync"

	"github.com/paylume/productsync/pkg/model"
)

var (
	ErrTitleRequired   = errors.New("draft: order bump title is required")
	ErrSourceProduct   = errors.New("draft: order bump source product is required")
	ErrSourceOffer     = errors.New("draft: order bump source offer is required")
	ErrIndexOutOfRange = errors.New("draft: order bump index out of range")
)

// validateBump enforces the local constraints checked before any network
// call: a bump needs a title, a source product and a source offer.
func validateBump(b model.OrderBump) error {
	if b.Title == "" {
		return ErrTitleRequired
	}
	if b.ProductID == "" {
		return ErrSourceProduct
	}
	if b.OfferID == "" {
		return ErrSourceOffer
	}
	return nil
}

// BumpList is the ordered order-bump list of one offer draft.
type BumpList struct {
	mu    sync.Mutex
	bumps []model.OrderBump
}

// NewBumpList starts a draft from the bumps the offer already has (empty
// for a new offer).
func NewBumpList(existing []model.OrderBump) *BumpList {
	l := &BumpList{}
	l.bumps = append(l.bumps, existing...)
	return l
}

// Append validates and adds a bump at the end of the list.
func (l *BumpList) Append(b model.OrderBump) error {
	if err := validateBump(b); err != nil {
		return err
	}
	l.mu.Lock()
	l.bumps = append(l.bumps, b)
	l.mu.Unlock()
	return nil
}

// UpdateAt validates and replaces the bump at position index.
func (l *BumpList) UpdateAt(index int, b model.OrderBump) error {
	if err := validateBump(b); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.bumps) {
		return ErrIndexOutOfRange
	}
	// Unpersisted entries keep no id; persisted ones keep theirs so the
	// server can match them on save.
	b.ID = l.bumps[index].ID
	l.bumps[index] = b
	return nil
}

// RemoveAt deletes the bump at position index, preserving order.
func (l *BumpList) RemoveAt(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.bumps) {
		return ErrIndexOutOfRange
	}
	l.bumps = append(l.bumps[:index], l.bumps[index+1:]...)
	return nil
}

// Items returns a copy of the current list in order.
func (l *BumpList) Items() []model.OrderBump {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.OrderBump, len(l.bumps))
	copy(out, l.bumps)
	return out
}

// Len returns the number of bumps in the draft.
func (l *BumpList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bumps)
}

// Commit submits the whole list with the parent offer save and, on success,
// adopts the server-assigned identities from the response. On failure the
// draft is left untouched so the operator can retry.
func (l *BumpList) Commit(ctx context.Context, save func(ctx context.Context, bumps []model.OrderBump) ([]model.OrderBump, error)) error {
	saved, err := save(ctx, l.Items())
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.bumps = make([]model.OrderBump, len(saved))
	copy(l.bumps, saved)
	l.mu.Unlock()
	return nil
}
