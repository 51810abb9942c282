// Package scoring holds the deterministic parts of match scoring: skill
// overlap, weighted combination and priority bucketing.
package scoring

import (
	"math"
	"sort"
	"strings"
)

const (
	SemanticWeight = 0.6
	SkillWeight    = 0.4

	HighThreshold   = 70.0
	MediumThreshold = 50.0
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Overlap is the result of comparing requirements with candidate skills.
type Overlap struct {
	Overlap    []string `json:"overlap"`
	Missing    []string `json:"missing"`
	Percentage float64  `json:"percentage"`
}

// SkillOverlap compares normalized requirement and skill sets. Percentage is
// 100 when there are no requirements.
func SkillOverlap(requirements, skills []string) Overlap {
	required := normalizedSet(requirements)
	have := normalizedSet(skills)

	result := Overlap{Overlap: []string{}, Missing: []string{}}
	for term := range required {
		if _, ok := have[term]; ok {
			result.Overlap = append(result.Overlap, term)
		} else {
			result.Missing = append(result.Missing, term)
		}
	}
	sort.Strings(result.Overlap)
	sort.Strings(result.Missing)

	if len(required) == 0 {
		result.Percentage = 100
		return result
	}

	result.Percentage = 100 * float64(len(result.Overlap)) / float64(len(required))
	return result
}

func normalizedSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		set[value] = struct{}{}
	}
	return set
}

// Combine blends a semantic similarity and a skill fraction, both in [0,1],
// into a 0-100 match score rounded to two decimals.
func Combine(semantic, skill float64) float64 {
	score := 100 * (SemanticWeight*Clamp(semantic, 0, 1) + SkillWeight*Clamp(skill, 0, 1))
	return Clamp(Round(score, 2), 0, 100)
}

// PriorityFor buckets a stored match score.
func PriorityFor(score float64) Priority {
	switch {
	case score >= HighThreshold:
		return PriorityHigh
	case score >= MediumThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds half away from zero to the given number of decimals (at most
// nine). The value is first snapped to an integer count of 1e-9 units so that
// binary noise such as 0.77775 being stored as 0.7777499999 does not change
// the result.
func Round(v float64, places int) float64 {
	units := math.Round(v * 1e9)
	scaled := units / math.Pow(10, float64(9-places))
	return math.Round(scaled) / math.Pow(10, float64(places))
}
