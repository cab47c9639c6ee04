package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"dispatch/internal/domain"
)

// Intent is what a natural-language parser extracts from one operator
// message.
type Intent struct {
	Action      string             `json:"action"`
	TargetHints domain.TargetHints `json:"target_hints"`
	Parameters  map[string]any     `json:"parameters"`
	Confidence  float64            `json:"confidence"`
}

// Parser turns operator text into an Intent. Implementations are external
// collaborators; the action pipeline treats them as a black box.
type Parser interface {
	Parse(ctx context.Context, text string, oc domain.OperatorContext) (Intent, error)
}

// ErrNoParser is returned when the command path is used without a
// configured parser.
var ErrNoParser = errors.New("natural-language parser is not configured")

// decodeIntent reads a model reply. Replies sometimes arrive wrapped in a
// markdown code fence.
func decodeIntent(raw string) (Intent, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		s = s[start : end+1]
	}

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var in Intent
	if err := dec.Decode(&in); err != nil {
		return Intent{}, fmt.Errorf("decode intent: %w", err)
	}
	in.Action = strings.TrimSpace(in.Action)
	if in.Parameters == nil {
		in.Parameters = map[string]any{}
	}
	switch {
	case in.Confidence < 0:
		in.Confidence = 0
	case in.Confidence > 1:
		in.Confidence = 1
	}
	return in, nil
}
