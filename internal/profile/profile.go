// Package profile holds the candidate artifact pack consumed by the matching
// pipeline and renders it into a single retrieval document.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	SourceProject    = "project"
	SourceInternship = "internship"
	SourceEducation  = "education"
)

// Candidate is the structured candidate profile plus its achievement bank.
type Candidate struct {
	Profile    Profile      `json:"profile"`
	BulletBank []BulletItem `json:"bullet_bank" validate:"dive"`
}

type Profile struct {
	Education   []string     `json:"education,omitempty"`
	Skills      []string     `json:"skills,omitempty"`
	Projects    []Project    `json:"projects,omitempty" validate:"dive"`
	Internships []Internship `json:"internships,omitempty" validate:"dive"`
	Links       []string     `json:"links,omitempty"`
}

type Project struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Tech        []string `json:"tech,omitempty"`
	Evidence    []string `json:"evidence,omitempty"`
}

type Internship struct {
	Role        string `json:"role" validate:"required"`
	Company     string `json:"company" validate:"required"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
}

// BulletItem is one achievement bullet traceable to a profile item.
type BulletItem struct {
	Bullet       string `json:"bullet" validate:"required"`
	SourceType   string `json:"source_type" validate:"required,oneof=project internship education"`
	SourceName   string `json:"source_name" validate:"required"`
	IsQuantified bool   `json:"is_quantified"`
}

// Bullets returns the bullet texts in bank order.
func (c *Candidate) Bullets() []string {
	bullets := make([]string, 0, len(c.BulletBank))
	for _, item := range c.BulletBank {
		bullets = append(bullets, item.Bullet)
	}
	return bullets
}

// Untraceable returns bullets whose source does not name any profile item.
func (c *Candidate) Untraceable() []BulletItem {
	var orphans []BulletItem
	for _, item := range c.BulletBank {
		if !c.hasSource(item.SourceType, item.SourceName) {
			orphans = append(orphans, item)
		}
	}
	return orphans
}

func (c *Candidate) hasSource(kind, name string) bool {
	name = strings.TrimSpace(name)
	switch kind {
	case SourceProject:
		for _, p := range c.Profile.Projects {
			if strings.EqualFold(p.Name, name) {
				return true
			}
		}
	case SourceInternship:
		for _, in := range c.Profile.Internships {
			if strings.EqualFold(in.Company, name) || strings.EqualFold(in.Role, name) {
				return true
			}
		}
	case SourceEducation:
		for _, edu := range c.Profile.Education {
			if strings.Contains(strings.ToLower(edu), strings.ToLower(name)) {
				return true
			}
		}
	}
	return false
}

// ValidationError reports a malformed candidate document.
type ValidationError struct {
	Message string
	Fields  []string
	Cause   error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("invalid candidate profile: %s: %s", e.Message, strings.Join(e.Fields, ", "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("invalid candidate profile: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid candidate profile: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates a candidate document.
func Parse(data []byte) (*Candidate, error) {
	var candidate Candidate
	if err := json.Unmarshal(data, &candidate); err != nil {
		return nil, &ValidationError{Message: "candidate is not valid JSON", Cause: err}
	}

	if err := Validate(&candidate); err != nil {
		return nil, err
	}

	return &candidate, nil
}

// Load reads a candidate document from path.
func Load(path string) (*Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidate file %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks struct constraints on the candidate.
func Validate(c *Candidate) error {
	if c == nil {
		return &ValidationError{Message: "candidate is required"}
	}

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
		}
		return &ValidationError{Message: "field constraints failed", Fields: fields, Cause: err}
	}

	return &ValidationError{Message: "validation failed", Cause: err}
}
