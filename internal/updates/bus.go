package updates

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/practice-sem-2/chat-service/internal/models"
)

type Listener interface {
	Handle(ctx context.Context, update models.Update) error
}

type ListenerFunc func(ctx context.Context, update models.Update) error

func (f ListenerFunc) Handle(ctx context.Context, update models.Update) error {
	return f(ctx, update)
}

// Bus hands every published update to all subscribed listeners in
// subscription order. A failing listener doesn't stop the others.
type Bus struct {
	mu        sync.RWMutex
	listeners []Listener
	validate  *validator.Validate
}

func NewBus(v *validator.Validate) *Bus {
	return &Bus{
		validate: v,
	}
}

func (b *Bus) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Publish returns a validation error without calling any listener, or the
// combined errors of the listeners that failed.
func (b *Bus) Publish(ctx context.Context, update models.Update) error {
	if err := b.validate.Struct(update); err != nil {
		return fmt.Errorf("invalid %s update: %w", update.UpdateType(), err)
	}

	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	var result *multierror.Error
	for _, l := range listeners {
		if err := l.Handle(ctx, update); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}
