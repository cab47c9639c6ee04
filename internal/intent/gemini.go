package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"dispatch/internal/domain"
)

const systemPrompt = `You translate dispatcher commands for a shuttle operator into JSON.
Reply with one JSON object and nothing else:
{"action": one of "assign_vehicle","assign_driver","assign_vehicle_and_driver","remove_vehicle","cancel_trip",
 "target_hints": {"id": trip id or null, "label": trip label or "", "time": "HH:MM" or ""},
 "parameters": {"vehicle_id": id or vehicle code, "driver_id": id or driver name, "cancel_bookings": true/false},
 "confidence": number between 0 and 1}
Leave a field empty when the command does not say it. Never invent ids.`

// GeminiParser asks a Gemini model for the intent.
type GeminiParser struct {
	client *genai.Client
	model  string
}

func NewGeminiParser(ctx context.Context, apiKey, model string) (*GeminiParser, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiParser{client: client, model: model}, nil
}

func (p *GeminiParser) Parse(ctx context.Context, text string, oc domain.OperatorContext) (Intent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Intent{}, fmt.Errorf("empty command")
	}

	prompt := text
	if ctxJSON, err := json.Marshal(oc); err == nil && (oc.SelectedTripID > 0 || oc.ServiceDate != "") {
		prompt = fmt.Sprintf("Operator context: %s\nCommand: %s", ctxJSON, text)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			Temperature:       genai.Ptr[float32](0),
		})
	if err != nil {
		return Intent{}, fmt.Errorf("gemini generate: %w", err)
	}
	return decodeIntent(resp.Text())
}
