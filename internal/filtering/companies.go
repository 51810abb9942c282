package filtering

import (
	"context"
	"errors"
	"strings"

	"github.com/spigell/apply-queue/internal/catalog"
)

type companiesFilter struct {
	toggle
	companies []string
}

// NewExcludedCompanies creates a filter that removes postings by company name.
func NewExcludedCompanies(companies []string) Filter {
	return &companiesFilter{
		companies: companies,
	}
}

func (f *companiesFilter) Name() string { return "companies" }

func (f *companiesFilter) Validate() error {
	for _, company := range f.companies {
		if strings.TrimSpace(company) == "" {
			return errors.New("excluded company name must not be empty")
		}
	}
	return nil
}

func (f *companiesFilter) Apply(_ context.Context, p *catalog.Postings) (*catalog.Postings, Step, error) {
	initial := p.Len()
	if len(f.companies) == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	excluded := p.Exclude(catalog.PostingCompanyField, f.companies)

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}
