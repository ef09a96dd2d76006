package testutil

import (
	"context"

	"github.com/kbukum/lifescribe/component"
)

// TestComponent is a component a test can return to its initial state.
type TestComponent interface {
	component.Component

	// Reset removes everything written since Start.
	Reset(ctx context.Context) error
}
