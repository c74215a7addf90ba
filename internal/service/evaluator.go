package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// EvaluationItem is one answered question sent to the evaluator, paired with
// the reference solution it is graded against.
type EvaluationItem struct {
	QuestionID      string `json:"questionId"`
	Answer          string `json:"answer"`
	ReferenceAnswer string `json:"referenceAnswer"`
}

type EvaluationRequest struct {
	Submissions []EvaluationItem `json:"submissions"`
}

// QuestionResult is one scored answer coming back from the evaluator.
// Results are matched to answers by QuestionID; extras and misses are
// tolerated.
type QuestionResult struct {
	QuestionID string `json:"questionId"`
	Score      int    `json:"score"`
	Feedback   string `json:"feedback"`
}

type EvaluationOutcome struct {
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
	Results []QuestionResult `json:"results"`
}

// Evaluator grades a batch of answers. The variant selects the grading
// strategy (essay prose, code, math); implementations may ignore it.
type Evaluator interface {
	Evaluate(ctx context.Context, variant string, req EvaluationRequest) (*EvaluationOutcome, error)
}

// NewEvaluator picks the implementation from config. Script mode spawns the
// per-variant python graders; llm mode talks to an OpenAI-compatible
// endpoint directly.
func NewEvaluator(cfg config.EvaluatorConfig) Evaluator {
	if cfg.Mode == "llm" {
		return NewLLMEvaluator(cfg)
	}
	return NewScriptEvaluator(cfg)
}

// ScriptEvaluator shells out to a grading script, feeding the request as
// JSON on stdin and reading the outcome as JSON from stdout. A non-zero
// exit or unparseable output counts as evaluator failure, not a crash.
type ScriptEvaluator struct {
	pythonBin string
	scriptDir string
	timeout   time.Duration
}

func NewScriptEvaluator(cfg config.EvaluatorConfig) *ScriptEvaluator {
	bin := cfg.PythonBin
	if bin == "" {
		bin = "python3"
	}
	return &ScriptEvaluator{
		pythonBin: bin,
		scriptDir: cfg.ScriptDir,
		timeout:   cfg.TimeoutSeconds,
	}
}

// scriptFor maps a variant to its grader. Complex and diverse exams reuse
// the coding grader; their questions are free-text like coding ones.
func (e *ScriptEvaluator) scriptFor(variant string) string {
	switch variant {
	case model.VariantEssay:
		return "essayEvaluator.py"
	case model.VariantMath:
		return "mathEvaluator.py"
	default:
		return "codingEvaluator.py"
	}
}

func (e *ScriptEvaluator) Evaluate(ctx context.Context, variant string, req EvaluationRequest) (*EvaluationOutcome, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode evaluation request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	script := filepath.Join(e.scriptDir, e.scriptFor(variant))
	cmd := exec.CommandContext(ctx, e.pythonBin, script)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logger.Log.Error("evaluator script failed",
			zap.String("script", script),
			zap.String("stderr", stderr.String()),
			zap.Error(err))
		return nil, fmt.Errorf("run %s: %w", script, err)
	}

	var outcome EvaluationOutcome
	if err := json.Unmarshal(stdout.Bytes(), &outcome); err != nil {
		logger.Log.Error("evaluator produced malformed output",
			zap.String("script", script),
			zap.Error(err))
		return nil, fmt.Errorf("decode evaluator output: %w", err)
	}
	return &outcome, nil
}

// LLMEvaluator grades answers with a chat model instead of a local script.
// It asks for the same JSON shape the scripts emit, so the folding logic
// upstream does not care which evaluator ran.
type LLMEvaluator struct {
	client *openai.Client
	model  string
}

func NewLLMEvaluator(cfg config.EvaluatorConfig) *LLMEvaluator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	m := cfg.Model
	if m == "" {
		m = openai.GPT4oMini
	}
	return &LLMEvaluator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  m,
	}
}

const evaluatorSystemPrompt = `You are an exam grader. You receive a JSON object with a "submissions" array; each entry has "questionId", "answer" and "referenceAnswer". Grade each answer against its reference on a 0-100 scale and write one sentence of feedback. Respond with JSON only: {"success": true, "results": [{"questionId": "...", "score": 0, "feedback": "..."}]}.`

func (e *LLMEvaluator) Evaluate(ctx context.Context, variant string, req EvaluationRequest) (*EvaluationOutcome, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode evaluation request: %w", err)
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: evaluatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Exam variant: %s\n%s", variant, payload)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("llm evaluation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm evaluation: empty response")
	}

	var outcome EvaluationOutcome
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &outcome); err != nil {
		return nil, fmt.Errorf("decode llm evaluator output: %w", err)
	}
	return &outcome, nil
}
