package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/apply-queue/internal/ai"
	"github.com/spigell/apply-queue/internal/logger"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// Reasoner implements ai.Reasoner using a text generator.
type Reasoner struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewReasoner(generator contentGenerator, log *zap.Logger, maxLogLength int) *Reasoner {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Reasoner{
		generator: generator,
		logger:    logger.WithFields(log),
		maxLogLen: maxLogLength,
	}
}

func (r *Reasoner) Reason(ctx context.Context, req ai.ReasoningRequest) (string, error) {
	if req.Posting == nil {
		return "", ai.Wrap(ProviderName, "reason", errors.New("posting is required"))
	}

	prompt := buildPrompt(req)

	r.logger.Debug("gemini reasoning request",
		zap.String(logger.FieldJobID, req.Posting.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", ai.Wrap(ProviderName, "reason", err)
	}

	r.logger.Debug("gemini reasoning response",
		zap.String(logger.FieldJobID, req.Posting.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, r.maxLogLen)),
	)

	reasoning, err := parseResponse(raw)
	if err != nil {
		return "", ai.Wrap(ProviderName, "reason", err)
	}

	return reasoning, nil
}

func buildPrompt(req ai.ReasoningRequest) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job: {{TITLE}} at {{COMPANY}}\nMatching Skills: {{MATCHING}}\nMissing Skills: {{MISSING}}\n\nJSON Response:"
	}

	var skills []string
	var projects, internships int
	if req.Candidate != nil {
		skills = req.Candidate.Profile.Skills
		projects = len(req.Candidate.Profile.Projects)
		internships = len(req.Candidate.Profile.Internships)
	}

	p := req.Posting
	replacer := strings.NewReplacer(
		"{{TITLE}}", p.Title,
		"{{COMPANY}}", p.Company,
		"{{REQUIREMENTS}}", strings.Join(p.Requirements, ", "),
		"{{DESCRIPTION}}", p.Description,
		"{{SKILLS}}", strings.Join(skills, ", "),
		"{{PROJECT_COUNT}}", strconv.Itoa(projects),
		"{{INTERNSHIP_COUNT}}", strconv.Itoa(internships),
		"{{SUMMARY}}", req.Summary,
		"{{OVERLAP_COUNT}}", strconv.Itoa(len(req.Overlap)),
		"{{REQUIREMENT_COUNT}}", strconv.Itoa(len(p.Requirements)),
		"{{MATCHING}}", strings.Join(req.Overlap, ", "),
		"{{MISSING}}", strings.Join(req.Missing, ", "),
	)
	return replacer.Replace(template)
}

// parseResponse accepts the JSON shape requested by the prompt and falls back
// to the raw text when the model answers in prose.
func parseResponse(raw string) (string, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return "", errors.New("gemini returned empty reasoning")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		if strings.HasPrefix(cleaned, "{") {
			return "", fmt.Errorf("parse gemini response: %w", err)
		}
		return cleaned, nil
	}

	reasoning := coerceString(data["reasoning"])
	if reasoning == "" {
		return "", errors.New("gemini response has no reasoning field")
	}
	return reasoning, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
