package filtering

import (
	"context"

	"github.com/spigell/apply-queue/internal/catalog"
)

type automationFilter struct{}

// NewAutomation creates the automation gate step. It cannot be disabled.
func NewAutomation() Filter {
	return &automationFilter{}
}

func (f *automationFilter) Name() string { return "automation" }

func (f *automationFilter) Disable(string) {}

func (f *automationFilter) IsEnabled() bool { return true }

func (f *automationFilter) Validate() error { return nil }

func (f *automationFilter) Apply(_ context.Context, p *catalog.Postings) (*catalog.Postings, Step, error) {
	initial := p.Len()
	allowed := catalog.FilterAutomatable(p)
	return allowed, Step{Initial: initial, Dropped: initial - allowed.Len(), Left: allowed.Len()}, nil
}
