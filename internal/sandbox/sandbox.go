// Package sandbox simulates an application outcome per queued job without
// contacting any employer system.
package sandbox

import (
	"strings"

	"github.com/spigell/apply-queue/internal/matching"
	"github.com/spigell/apply-queue/internal/notes"
	"github.com/spigell/apply-queue/internal/queue"
	"github.com/spigell/apply-queue/internal/scoring"
)

type Signal string

const (
	SignalSuccess    Signal = "success"
	SignalProcessing Signal = "processing"
	SignalFailure    Signal = "failure"
)

const (
	semanticWeight = 0.40
	skillWeight    = 0.35
	matchWeight    = 0.25

	unsupportedNotePenalty = 0.85

	successThreshold    = 0.25
	processingThreshold = 0.23
)

// Result is the simulated outcome of one queued job. Confidence is nil when
// the automation gate short-circuits scoring.
type Result struct {
	JobID      string   `json:"job_id"`
	Signal     Signal   `json:"signal"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Simulate scores each queued job in queue order. Jobs whose posting is not
// automatable always fail.
func Simulate(q queue.ApplyQueue, recruiterNotes []notes.RecruiterNote) []Result {
	index := notes.Index(recruiterNotes)

	results := make([]Result, 0, len(q.Jobs))
	for _, job := range q.Jobs {
		results = append(results, simulateOne(job, index[job.JobID]))
	}
	return results
}

func simulateOne(job matching.JobMatch, note string) Result {
	if job.Job == nil || !job.Job.Automatable() {
		return Result{JobID: job.JobID, Signal: SignalFailure}
	}

	confidence := Confidence(
		job.SemanticSimilarity/100,
		job.SkillMatchScore/100,
		job.MatchScore/100,
		noteSupports(note, job.Job.Requirements),
	)

	return Result{JobID: job.JobID, Signal: Classify(confidence), Confidence: &confidence}
}

// Confidence blends normalized scores into [0,1], rounded to three decimals.
// supported is false when the note mentions none of the requirements.
func Confidence(semantic, skill, match float64, supported bool) float64 {
	c := semanticWeight*semantic + skillWeight*skill + matchWeight*match
	if !supported {
		c *= unsupportedNotePenalty
	}
	return scoring.Round(scoring.Clamp(c, 0, 1), 3)
}

func Classify(confidence float64) Signal {
	switch {
	case confidence >= successThreshold:
		return SignalSuccess
	case confidence >= processingThreshold:
		return SignalProcessing
	default:
		return SignalFailure
	}
}

func noteSupports(note string, requirements []string) bool {
	lower := strings.ToLower(note)
	for _, req := range requirements {
		req = strings.ToLower(strings.TrimSpace(req))
		if req != "" && strings.Contains(lower, req) {
			return true
		}
	}
	return false
}

// Summary counts results per signal.
type Summary struct {
	Total      int `json:"total"`
	Success    int `json:"success"`
	Processing int `json:"processing"`
	Failure    int `json:"failure"`
}

func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Signal {
		case SignalSuccess:
			s.Success++
		case SignalProcessing:
			s.Processing++
		default:
			s.Failure++
		}
	}
	return s
}
