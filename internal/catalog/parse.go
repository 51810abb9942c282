package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const automationAllowedKey = "automation_allowed"

// Parse decodes a catalog document. Both a bare list of postings and an
// object of the form {"jobs": [...]} are accepted.
func Parse(data []byte) (*Postings, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &FormatError{Message: "catalog is not valid JSON", Cause: err}
	}

	items, err := postingsList(raw)
	if err != nil {
		return nil, err
	}

	closeNullGates(items)

	var postings []*Posting
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &postings,
	})
	if err != nil {
		return nil, fmt.Errorf("create catalog decoder: %w", err)
	}

	if err := decoder.Decode(items); err != nil {
		return nil, &FormatError{Message: "postings do not match the posting schema", Cause: err}
	}

	if err := validate(postings); err != nil {
		return nil, err
	}

	return &Postings{Items: postings}, nil
}

func postingsList(raw any) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case map[string]any:
		jobs, ok := v["jobs"]
		if !ok {
			return nil, &FormatError{Message: `catalog object has no "jobs" key`}
		}
		list, ok := jobs.([]any)
		if !ok {
			return nil, &FormatError{Message: fmt.Sprintf(`"jobs" must be a list, got %T`, jobs)}
		}
		return list, nil
	default:
		return nil, &FormatError{Message: fmt.Sprintf("catalog must be a list or an object with a jobs list, got %T", raw)}
	}
}

// closeNullGates turns an explicit "automation_allowed": null into false. Only
// an absent key means allowed.
func closeNullGates(items []any) {
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if value, present := fields[automationAllowedKey]; present && value == nil {
			fields[automationAllowedKey] = false
		}
	}
}

func validate(postings []*Posting) error {
	seen := make(map[string]int, len(postings))
	for idx, posting := range postings {
		if posting == nil {
			return &FormatError{Message: fmt.Sprintf("posting #%d is null", idx)}
		}

		posting.ID = strings.TrimSpace(posting.ID)
		if posting.ID == "" {
			return &FormatError{Message: fmt.Sprintf("posting #%d has no job_id", idx)}
		}

		if first, dup := seen[posting.ID]; dup {
			return &FormatError{Message: fmt.Sprintf("job_id %q is used by postings #%d and #%d", posting.ID, first, idx)}
		}
		seen[posting.ID] = idx
	}
	return nil
}
