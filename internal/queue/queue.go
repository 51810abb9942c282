package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/apply-queue/internal/catalog"
	"github.com/spigell/apply-queue/internal/matching"
	"github.com/spigell/apply-queue/internal/scoring"
)

// ApplyQueue is the ordered, aggregated view over a set of matches.
type ApplyQueue struct {
	TotalJobs         int                 `json:"total_jobs"`
	HighPriority      int                 `json:"high_priority"`
	MediumPriority    int                 `json:"medium_priority"`
	LowPriority       int                 `json:"low_priority"`
	AverageMatchScore float64             `json:"average_match_score"`
	Jobs              []matching.JobMatch `json:"jobs" validate:"dive"`
}

// Build sorts matches by score (stable, so ties keep their input order),
// truncates to topK when topK > 0 and computes aggregates. The input slice is
// not modified.
func Build(matches []matching.JobMatch, topK int) ApplyQueue {
	jobs := slices.Clone(matches)
	if jobs == nil {
		jobs = []matching.JobMatch{}
	}

	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].MatchScore > jobs[j].MatchScore
	})

	if topK > 0 && len(jobs) > topK {
		jobs = jobs[:topK]
	}

	q := ApplyQueue{TotalJobs: len(jobs), Jobs: jobs}

	var sum float64
	for _, job := range jobs {
		sum += job.MatchScore
		switch job.Priority {
		case scoring.PriorityHigh:
			q.HighPriority++
		case scoring.PriorityMedium:
			q.MediumPriority++
		default:
			q.LowPriority++
		}
	}

	if len(jobs) > 0 {
		q.AverageMatchScore = scoring.Round(sum/float64(len(jobs)), 2)
	}

	return q
}

// Postings returns the job snapshots of the queue in queue order.
func (q ApplyQueue) Postings() *catalog.Postings {
	out := &catalog.Postings{Items: make([]*catalog.Posting, 0, len(q.Jobs))}
	for _, job := range q.Jobs {
		if job.Job != nil {
			out.Items = append(out.Items, job.Job)
		}
	}
	return out
}

// ValidationError reports a malformed queue document.
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid apply queue: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid apply queue: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

var validate = validator.New()

// Parse decodes a queue document and checks that every entry carries a job
// snapshot matching its id and a known priority.
func Parse(data []byte) (ApplyQueue, error) {
	var q ApplyQueue
	if err := json.Unmarshal(data, &q); err != nil {
		return ApplyQueue{}, &ValidationError{Message: "queue is not valid JSON", Cause: err}
	}

	if err := validate.Struct(q); err != nil {
		return ApplyQueue{}, &ValidationError{Message: "field constraints failed", Cause: err}
	}

	for i, job := range q.Jobs {
		if strings.TrimSpace(job.JobID) == "" {
			return ApplyQueue{}, &ValidationError{Message: fmt.Sprintf("job %d has no job_id", i)}
		}
		if job.Job == nil || job.Job.ID != job.JobID {
			return ApplyQueue{}, &ValidationError{Message: fmt.Sprintf("job %s has no matching job snapshot", job.JobID)}
		}
		switch job.Priority {
		case scoring.PriorityHigh, scoring.PriorityMedium, scoring.PriorityLow:
		default:
			return ApplyQueue{}, &ValidationError{Message: fmt.Sprintf("job %s has unknown priority %q", job.JobID, job.Priority)}
		}
	}

	if q.Jobs == nil {
		q.Jobs = []matching.JobMatch{}
	}
	return q, nil
}

func Load(path string) (ApplyQueue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ApplyQueue{}, fmt.Errorf("read queue file %s: %w", path, err)
	}
	return Parse(data)
}

// ToFile writes the queue as indented JSON.
func (q ApplyQueue) ToFile(path string) error {
	if path == "" {
		return errors.New("queue path is empty")
	}
	data, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal queue: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write queue file %s: %w", path, err)
	}
	return nil
}
