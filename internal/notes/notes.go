// Package notes composes short recruiter notes from the candidate's bullet
// bank using keyword overlap with each posting's requirements.
package notes

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spigell/apply-queue/internal/catalog"
	"github.com/spigell/apply-queue/internal/profile"
)

const (
	DefaultMaxBullets = 3
	MaxNoteLength     = 600

	fallbackBullets = 2
	separator       = ". "
)

type RecruiterNote struct {
	JobID     string `json:"job_id"`
	ShortNote string `json:"short_note"`
}

// Compose returns one note per posting that passes the automation gate, in
// posting order. maxBullets <= 0 means DefaultMaxBullets.
func Compose(candidate *profile.Candidate, postings *catalog.Postings, maxBullets int) []RecruiterNote {
	if maxBullets <= 0 {
		maxBullets = DefaultMaxBullets
	}

	var bullets []string
	if candidate != nil {
		bullets = candidate.Bullets()
	}

	notes := []RecruiterNote{}
	for _, posting := range catalog.FilterAutomatable(postings).Items {
		notes = append(notes, RecruiterNote{
			JobID:     posting.ID,
			ShortNote: composeOne(bullets, posting.Requirements, maxBullets),
		})
	}
	return notes
}

type scoredBullet struct {
	score int
	text  string
}

func composeOne(bullets, requirements []string, maxBullets int) string {
	var scored []scoredBullet
	for _, bullet := range bullets {
		if score := keywordScore(bullet, requirements); score > 0 {
			scored = append(scored, scoredBullet{score: score, text: bullet})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	var selected []string
	if len(scored) == 0 {
		selected = bullets[:min(fallbackBullets, maxBullets, len(bullets))]
	} else {
		for _, s := range scored[:min(maxBullets, len(scored))] {
			selected = append(selected, s.text)
		}
	}

	cleaned := make([]string, 0, len(selected))
	for _, text := range selected {
		cleaned = append(cleaned, normalizeWhitespace(text))
	}

	return truncate(strings.Join(cleaned, separator), MaxNoteLength)
}

// keywordScore counts requirements occurring as case-insensitive substrings of text.
func keywordScore(text string, requirements []string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, req := range requirements {
		req = strings.ToLower(strings.TrimSpace(req))
		if req != "" && strings.Contains(lower, req) {
			score++
		}
	}
	return score
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// Index maps job ids to note text. Later notes win on duplicate ids.
func Index(notes []RecruiterNote) map[string]string {
	index := make(map[string]string, len(notes))
	for _, note := range notes {
		index[note.JobID] = note.ShortNote
	}
	return index
}

// Load reads a JSON list of notes.
func Load(path string) ([]RecruiterNote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read notes file %s: %w", path, err)
	}

	var notes []RecruiterNote
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("parse notes file %s: %w", path, err)
	}
	for i, note := range notes {
		if strings.TrimSpace(note.JobID) == "" {
			return nil, fmt.Errorf("parse notes file %s: note %d has no job_id", path, i)
		}
	}
	return notes, nil
}

func ToFile(path string, notes []RecruiterNote) error {
	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write notes file %s: %w", path, err)
	}
	return nil
}
