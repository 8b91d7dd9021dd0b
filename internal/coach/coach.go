// Package coach wraps the generative-text endpoint behind the AI earning
// coach. Failures from the endpoint are never fatal: every error path
// degrades to a fixed fallback payload.
package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Advice is the structured coaching payload.
type Advice struct {
	Tips           []string `json:"tips"`
	Recommendation string   `json:"recommendation"`
}

// FallbackAdvice is returned whenever the endpoint cannot be reached or
// answers with something unusable.
func FallbackAdvice() Advice {
	return Advice{
		Tips:           []string{"Consistency is key.", "Try new categories.", "Check daily challenges."},
		Recommendation: "Focus on surveys for quick daily gains.",
	}
}

// FallbackReply is the chat answer used when the endpoint fails.
const FallbackReply = "I'm having trouble connecting to my brain right now! Please try again later."

// Client talks to a Gemini-style generateContent endpoint.
type Client struct {
	http    *http.Client
	baseURL string
	model   string
	apiKey  string
	logger  *slog.Logger
}

// NewClient creates a coach client. An empty apiKey leaves the client in
// permanent fallback mode.
func NewClient(baseURL, model, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		logger:  logger,
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// adviceSchema mirrors the {tips, recommendation} response contract.
var adviceSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"tips": {"type": "ARRAY", "items": {"type": "STRING"}, "description": "Motivational tips for the user."},
		"recommendation": {"type": "STRING", "description": "Personalized focus recommendation."}
	},
	"required": ["tips", "recommendation"]
}`)

// generate performs one completion call and returns the first text part.
func (c *Client) generate(ctx context.Context, prompt string, cfg *generationConfig) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("no api key configured")
	}

	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: cfg,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("endpoint returned %s", resp.Status)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// Recommendations asks for three tips and a focus recommendation tailored to
// the user's balance and completion count.
func (c *Client) Recommendations(ctx context.Context, balance float64, completedCount int) Advice {
	prompt := fmt.Sprintf(
		"User has a balance of $%.2f and has completed %d tasks. Suggest 3 motivational tips and 1 high-priority task type they should focus on for maximum earnings. Respond in a supportive, professional tone.",
		balance, completedCount,
	)

	text, err := c.generate(ctx, prompt, &generationConfig{
		ResponseMimeType: "application/json",
		ResponseSchema:   adviceSchema,
	})
	if err != nil {
		c.logger.Warn("coach recommendations failed, using fallback", "error", err)
		return FallbackAdvice()
	}

	var advice Advice
	if err := json.Unmarshal([]byte(text), &advice); err != nil || len(advice.Tips) == 0 {
		c.logger.Warn("coach returned unusable payload, using fallback", "error", err)
		return FallbackAdvice()
	}
	return advice
}

// Chat answers a free-form assistant question.
func (c *Client) Chat(ctx context.Context, message string) string {
	prompt := fmt.Sprintf(
		"You are an earning assistant for EarnPulse. A user asks: %q. Provide a helpful, concise response about how they can maximize their time on the app.",
		message,
	)

	text, err := c.generate(ctx, prompt, nil)
	if err != nil {
		c.logger.Warn("coach chat failed, using fallback", "error", err)
		return FallbackReply
	}
	return text
}
