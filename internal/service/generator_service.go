package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"exam_portal_backend/internal/config"
	"exam_portal_backend/pkg/logger"

	"go.uber.org/zap"
)

// GeneratorService produces exam questions from an OpenAI-compatible chat
// endpoint. It speaks the wire format directly rather than going through a
// client library, since only one call shape is needed.
type GeneratorService struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewGeneratorService(cfg config.GeneratorConfig) *GeneratorService {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &GeneratorService{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

// GeneratedQuestion is one question coming out of the model, with the
// reference answer that later becomes the grader's teacher solution.
type GeneratedQuestion struct {
	Text        string `json:"text"`
	ModelAnswer string `json:"modelAnswer"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const generatorSystemPrompt = `You write exam questions. Respond with JSON only, in the shape {"questions": [{"text": "...", "modelAnswer": "..."}]}. Each modelAnswer must be a complete reference answer a grader could score against.`

// Generate asks the model for count questions on the topic, in the style of
// the given variant and difficulty.
func (s *GeneratorService) Generate(ctx context.Context, variant, topic, difficulty string, count int) ([]GeneratedQuestion, error) {
	if count <= 0 {
		count = 5
	}

	userPrompt := fmt.Sprintf("Write %d %s questions about %q at %s difficulty.", count, variant, topic, difficulty)

	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: generatorSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("question generation request: %w", err)
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode generation response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("question generation: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK || len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("question generation: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Questions []GeneratedQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("decode generated questions: %w", err)
	}
	if len(out.Questions) == 0 {
		return nil, fmt.Errorf("question generation: model returned no questions")
	}

	logger.Log.Info("questions generated",
		zap.String("variant", variant),
		zap.String("topic", topic),
		zap.Int("count", len(out.Questions)))
	return out.Questions, nil
}
