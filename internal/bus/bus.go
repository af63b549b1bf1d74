// Package bus implements the typed request/response surface the UI
// process talks to. Each message name maps to exactly one handler;
// payloads and responses are JSON. The wire transport is out of scope:
// callers hand Dispatch a name and a raw payload and get raw JSON back.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ruckert/canto/internal/domain"
)

// Handler processes one message. The payload may be empty for requests
// without parameters.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Bus routes named messages to their handlers.
//
// Thread-safety: registration and dispatch may run concurrently, though
// registration normally happens once at startup.
type Bus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates an empty message bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger:   logger,
		handlers: make(map[string]Handler),
	}
}

// Handle binds a handler to a message name. Binding the same name twice
// is a programming error and panics.
func (b *Bus) Handle(name string, handler Handler) {
	if handler == nil {
		panic("message handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.handlers[name]; exists {
		panic(fmt.Sprintf("message %q already has a handler", name))
	}
	b.handlers[name] = handler
}

// Register binds a typed handler: the payload is decoded into Req before
// the handler runs and the response is returned as-is for Dispatch to
// encode.
func Register[Req, Resp any](b *Bus, name string, fn func(ctx context.Context, req Req) (Resp, error)) {
	b.Handle(name, func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req Req
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, fmt.Errorf("invalid payload for %s: %w", name, err)
			}
		}
		return fn(ctx, req)
	})
}

// Dispatch routes a message to its handler and encodes the response.
// An unregistered name yields domain.ErrUnknownMessage.
func (b *Bus) Dispatch(ctx context.Context, name string, payload json.RawMessage) (json.RawMessage, error) {
	b.mu.RLock()
	handler, ok := b.handlers[name]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMessage, name)
	}

	b.logger.Debug("dispatching message", slog.String("name", name))

	resp, err := handler(ctx, payload)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return json.RawMessage("null"), nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response for %s: %w", name, err)
	}
	return data, nil
}

// Names returns the registered message names, sorted.
func (b *Bus) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
