package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/refmatch/refmatch/internal/ai"
	"github.com/refmatch/refmatch/internal/logger"
	"github.com/refmatch/refmatch/internal/utils"
)

const (
	defaultMaxLogLength = 200
	defaultTone         = "Friendly"
	systemInstruction   = "You are a careful career assistant. Follow the response schema exactly."
)

//go:embed prompt.md
var promptTemplate string

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

// Drafter writes referral request messages with Gemini.
type Drafter struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewDrafter(generator contentGenerator, maxLogLength int, log *zap.Logger) *Drafter {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Drafter{
		generator: generator,
		logger:    logger.OrNop(log),
		maxLogLen: maxLogLength,
	}
}

func (d *Drafter) Draft(ctx context.Context, req *ai.DraftRequest) (*ai.Draft, error) {
	if req == nil || req.Match == nil {
		return nil, errors.New("a matched employee is required")
	}

	tone := strings.TrimSpace(req.Tone)
	if tone == "" {
		tone = defaultTone
	}

	candidate := map[string]any{
		"name":        strings.TrimSpace(req.CandidateName),
		"target_role": strings.TrimSpace(req.TargetRole),
		"skills":      strings.TrimSpace(req.Skills),
		"tone":        tone,
	}

	candidateJSON, err := json.MarshalIndent(candidate, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal candidate payload: %w", err)
	}

	matchJSON, err := json.MarshalIndent(req.Match, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal match payload: %w", err)
	}

	prompt := buildPrompt(string(candidateJSON), string(matchJSON))

	d.logger.Debug("gemini generate content request",
		zap.Int("employee_id", req.Match.EmployeeID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, d.maxLogLen)),
	)

	raw, err := d.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("gemini generate content response",
		zap.Int("employee_id", req.Match.EmployeeID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, d.maxLogLen)),
	)

	draft, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	draft.Raw = raw
	return draft, nil
}

func buildPrompt(candidateJSON, matchJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Candidate:\n{{CANDIDATE_JSON}}\n\nEmployee match:\n{{MATCH_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{CANDIDATE_JSON}}", candidateJSON)
	prompt = strings.ReplaceAll(prompt, "{{MATCH_JSON}}", matchJSON)
	return prompt
}

func parseResponse(raw string) (*ai.Draft, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	draft := &ai.Draft{
		Subject: coerceString(data["subject"]),
		Message: coerceString(data["message"]),
	}

	if draft.Message == "" {
		return nil, errors.New("gemini response has no message")
	}

	return draft, nil
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
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
