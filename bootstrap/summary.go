package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/lifescribe/component"
)

// Summary prints what a long-running application started.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	out             io.Writer
}

// NewSummary creates a summary writing to stderr.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version, out: os.Stderr}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Display prints the header, the describable components and their live
// health.
func (s *Summary) Display(ctx context.Context, registry *component.Registry) {
	w := s.out
	fmt.Fprintf(w, "\n🚀 %s %s started in %.2fs\n\n", s.serviceName, s.version, s.startupDuration.Seconds())

	var described []component.Description
	for _, c := range registry.All() {
		if d, ok := c.(component.Describable); ok {
			described = append(described, d.Describe())
		}
	}
	if len(described) > 0 {
		fmt.Fprintf(w, "📊 Infrastructure\n")
		for i, d := range described {
			fmt.Fprintf(w, "   %s %s [%s]: %s\n", branch(i, len(described)), d.Name, d.Type, d.Details)
		}
		fmt.Fprintf(w, "\n")
	}

	health := registry.HealthAll(ctx)
	if len(health) == 0 {
		fmt.Fprintf(w, "   └── No components registered\n\n")
		return
	}
	fmt.Fprintf(w, "🏥 Health Check\n")
	for i, h := range health {
		msg := ""
		if h.Message != "" {
			msg = ": " + h.Message
		}
		fmt.Fprintf(w, "   %s %s %s (%s)%s\n", branch(i, len(health)), healthIcon(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
	}
	fmt.Fprintf(w, "\n")
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
