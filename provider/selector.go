package provider

import (
	"context"
	"sort"

	"github.com/kbukum/lifescribe/errors"
)

// Selector picks a backend from the initialized ones.
type Selector[T Provider] interface {
	Select(ctx context.Context, providers map[string]T) (T, error)
}

// PrioritySelector tries backends in the given order and returns the first
// available one. A sidecar is usually listed before a file-backed fallback.
type PrioritySelector[T Provider] struct {
	Priority []string
}

// Select returns the first available backend in priority order.
func (s *PrioritySelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	for _, name := range s.Priority {
		if p, ok := providers[name]; ok && p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, errors.ProviderUnavailable("priority")
}

// HealthCheckSelector returns the first available backend in name order.
type HealthCheckSelector[T Provider] struct{}

// Select returns the first backend that reports as available.
func (s *HealthCheckSelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if p := providers[name]; p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, errors.ProviderUnavailable("any")
}
