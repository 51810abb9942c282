// Package catalog loads job-posting catalogs and exposes the postings as an
// immutable snapshot for one matching request.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
)

const (
	PostingIDField      = "ID"
	PostingCompanyField = "Company"

	defaultCategory        = "tech"
	defaultExperienceLevel = "Entry"
	defaultLocation        = "Remote"
)

type Postings struct {
	Items []*Posting
}

type Posting struct {
	ID              string   `json:"job_id" mapstructure:"job_id"`
	Title           string   `json:"title" mapstructure:"title"`
	Company         string   `json:"company" mapstructure:"company"`
	Category        string   `json:"category,omitempty" mapstructure:"category"`
	ExperienceLevel string   `json:"experience_level,omitempty" mapstructure:"experience_level"`
	Location        string   `json:"location,omitempty" mapstructure:"location"`
	Description     string   `json:"description,omitempty" mapstructure:"description"`
	Requirements    []string `json:"requirements" mapstructure:"requirements"`
	// AutomationAllowed is nil when the catalog omits the flag.
	AutomationAllowed *bool `json:"automation_allowed,omitempty" mapstructure:"automation_allowed"`
	// Extra keeps catalog fields the pipeline does not interpret so the job
	// snapshot in a match stays complete.
	Extra map[string]any `json:"extra,omitempty" mapstructure:",remain"`
}

// Automatable reports whether the posting may be handled automatically.
// A missing flag counts as allowed. Parse turns an explicit null into false.
func (p *Posting) Automatable() bool {
	if p == nil {
		return false
	}
	if p.AutomationAllowed == nil {
		return true
	}
	return *p.AutomationAllowed
}

// Render returns the structured text block used as the posting's retrieval document.
func (p *Posting) Render() string {
	lines := []string{
		"Title: " + p.Title,
		"Company: " + p.Company,
		"Category: " + orDefault(p.Category, defaultCategory),
		"Experience Level: " + orDefault(p.ExperienceLevel, defaultExperienceLevel),
		"Location: " + orDefault(p.Location, defaultLocation),
		"Description: " + p.Description,
		"Requirements: " + strings.Join(p.Requirements, ", "),
	}
	return strings.Join(lines, "\n")
}

func (p *Posting) GetStringField(name string) string {
	switch name {
	case PostingIDField:
		return p.ID
	case PostingCompanyField:
		return p.Company
	default:
		return ""
	}
}

// FilterAutomatable returns the postings whose automation gate is open.
// The input is left untouched.
func FilterAutomatable(p *Postings) *Postings {
	out := &Postings{}
	if p == nil {
		return out
	}
	for _, posting := range p.Items {
		if posting.Automatable() {
			out.Items = append(out.Items, posting)
		}
	}
	return out
}

func (p *Postings) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

func (p *Postings) IDs() []string {
	ids := make([]string, 0, p.Len())
	for _, posting := range p.Items {
		ids = append(ids, posting.ID)
	}
	return ids
}

// FindByID returns the posting with the given id or a *NotFoundError.
func (p *Postings) FindByID(id string) (*Posting, error) {
	if p != nil {
		for _, posting := range p.Items {
			if posting.ID == id {
				return posting, nil
			}
		}
	}
	return nil, &NotFoundError{ID: id}
}

// Exclude removes postings whose field matches one of targets (case-insensitive)
// and returns the removed ids. Order of the remaining postings is preserved.
func (p *Postings) Exclude(name string, targets []string) []string {
	if p == nil || len(targets) == 0 {
		return nil
	}

	var excluded []string
	p.Items = slices.DeleteFunc(p.Items, func(posting *Posting) bool {
		value := posting.GetStringField(name)
		for _, target := range targets {
			if strings.EqualFold(strings.TrimSpace(target), value) {
				excluded = append(excluded, posting.ID)
				return true
			}
		}
		return false
	})
	return excluded
}

// Clone returns a shallow copy of the list so filters can drop items without
// touching the caller's snapshot.
func (p *Postings) Clone() *Postings {
	if p == nil {
		return &Postings{}
	}
	return &Postings{Items: slices.Clone(p.Items)}
}

// ReportByCompany groups postings by company for quick inspection.
func (p *Postings) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, posting := range p.Items {
		report[posting.Company] = append(report[posting.Company], map[string]string{
			"job_id":             posting.ID,
			"title":              posting.Title,
			"location":           orDefault(posting.Location, defaultLocation),
			"requirements":       strings.Join(posting.Requirements, ", "),
			"automation_allowed": fmt.Sprintf("%t", posting.Automatable()),
		})
	}
	return report
}

func (p *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"jobs": p.Items}); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
