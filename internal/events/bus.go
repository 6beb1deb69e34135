// Package events carries sync-layer notifications to whoever renders them:
// user-facing notices (toasts) and controller state transitions. Delivery is
// synchronous and in-process; an optional NATS sink forwards mutation
// outcomes for ops telemetry.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paylume/productsync/pkg/model"
)

// Level classifies a Notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a user-visible notification emitted by the sync layer.
type Notice struct {
	ID        uuid.UUID
	Level     Level
	Message   string
	Resource  model.ResourceType
	ProductID string
	At        time.Time
}

// StateChange reports a controller state transition.
type StateChange struct {
	Resource  model.ResourceType
	ProductID string
	From, To  string
	At        time.Time
}

// Bus is an in-process pub/sub for notices and state changes. Handlers run
// synchronously on the publisher's goroutine and must not block.
type Bus struct {
	mu       sync.RWMutex
	noticeHs []func(Notice)
	stateHs  []func(StateChange)
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// OnNotice registers a handler for user-facing notices.
func (b *Bus) OnNotice(fn func(Notice)) {
	b.mu.Lock()
	b.noticeHs = append(b.noticeHs, fn)
	b.mu.Unlock()
}

// OnStateChange registers a handler for controller state transitions.
func (b *Bus) OnStateChange(fn func(StateChange)) {
	b.mu.Lock()
	b.stateHs = append(b.stateHs, fn)
	b.mu.Unlock()
}

// PublishNotice delivers n to every notice handler.
func (b *Bus) PublishNotice(n Notice) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.At.IsZero() {
		n.At = time.Now()
	}
	b.mu.RLock()
	hs := b.noticeHs
	b.mu.RUnlock()
	for _, h := range hs {
		h(n)
	}
}

// PublishStateChange delivers sc to every state handler.
func (b *Bus) PublishStateChange(sc StateChange) {
	if sc.At.IsZero() {
		sc.At = time.Now()
	}
	b.mu.RLock()
	hs := b.stateHs
	b.mu.RUnlock()
	for _, h := range hs {
		h(sc)
	}
}
