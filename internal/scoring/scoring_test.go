package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSkillOverlap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		requirements []string
		skills       []string
		overlap      []string
		missing      []string
		percentage   float64
	}{
		{
			name:         "half match",
			requirements: []string{"python", "sql"},
			skills:       []string{"Python", "Java"},
			overlap:      []string{"python"},
			missing:      []string{"sql"},
			percentage:   50,
		},
		{
			name:       "no requirements",
			skills:     []string{"Go"},
			overlap:    []string{},
			missing:    []string{},
			percentage: 100,
		},
		{
			name:         "duplicates and whitespace",
			requirements: []string{" Go ", "go", "Docker"},
			skills:       []string{"GO", "docker", "k8s"},
			overlap:      []string{"docker", "go"},
			missing:      []string{},
			percentage:   100,
		},
		{
			name:         "no skills",
			requirements: []string{"rust", "c"},
			overlap:      []string{},
			missing:      []string{"c", "rust"},
			percentage:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SkillOverlap(tt.requirements, tt.skills)
			assert.Equal(t, tt.overlap, got.Overlap)
			assert.Equal(t, tt.missing, got.Missing)
			assert.InDelta(t, tt.percentage, got.Percentage, 1e-9)
		})
	}
}

func TestSkillOverlap_OrderIndependent(t *testing.T) {
	a := SkillOverlap([]string{"sql", "python", "go"}, []string{"go", "python"})
	b := SkillOverlap([]string{"go", "python", "sql"}, []string{"python", "go"})
	assert.Equal(t, a, b)
}

func TestCombine(t *testing.T) {
	assert.Equal(t, 68.0, Combine(0.8, 0.5))
	assert.Equal(t, 100.0, Combine(1.5, 2))
	assert.Equal(t, 0.0, Combine(-1, 0))
	assert.Equal(t, 40.0, Combine(0, 1))
	assert.Equal(t, 55.55, Combine(0.6543, 0.4074))
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, PriorityHigh, PriorityFor(70))
	assert.Equal(t, PriorityMedium, PriorityFor(69.99))
	assert.Equal(t, PriorityMedium, PriorityFor(50))
	assert.Equal(t, PriorityLow, PriorityFor(49.99))
	assert.Equal(t, PriorityMedium, PriorityFor(Combine(0.8, 0.5)))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.778, Round(0.77775, 3))
	assert.Equal(t, 68.0, Round(68.00000000000001, 2))
	assert.Equal(t, 1.24, Round(1.235, 2))
}
