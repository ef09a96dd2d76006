package diarization

import (
	"context"

	"github.com/kbukum/lifescribe/provider"
)

// Provider is the interface that diarization backends must implement.
type Provider interface {
	provider.Provider // embeds Name() and IsAvailable()

	// Diarize finds who speaks when and returns it as RTTM.
	Diarize(ctx context.Context, req Request) (*Response, error)
}

// NewManager creates a manager for diarization backends that picks the
// first available one in the given order, or by name when order is empty.
func NewManager(order ...string) *provider.Manager[Provider] {
	var sel provider.Selector[Provider] = &provider.HealthCheckSelector[Provider]{}
	if len(order) > 0 {
		sel = &provider.PrioritySelector[Provider]{Priority: order}
	}
	return provider.NewManager(provider.NewRegistry[Provider](), sel)
}
