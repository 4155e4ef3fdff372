// Package completion wraps the OpenAI chat API and turns raw model output
// into a structured classification the orchestrator can act on.
package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/lucinedinatale/chatbot-backend/internal/config"
	"github.com/lucinedinatale/chatbot-backend/internal/session"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
)

// Kind tags what the model's answer asks the orchestrator to do.
type Kind string

const (
	// KindReply is a normal answer to show the visitor.
	KindReply Kind = "reply"
	// KindOperatorRequest means the model decided the visitor needs a human.
	KindOperatorRequest Kind = "operator_request"
)

// Classification is the structured interpretation of a model response.
type Classification struct {
	Kind          Kind
	Reply         string
	LowConfidence bool
}

// operatorToken is the machine token the system prompt instructs the model
// to emit when the visitor should be handed to a human.
const operatorToken = "request_operator"

// hedgingPhrases mark answers where the model admits it does not know.
// The list is a curated starting point, extended as transcripts are reviewed.
var hedgingPhrases = []string{
	"non sono sicuro",
	"non sono sicura",
	"non ho informazioni",
	"non ho abbastanza informazioni",
	"non posso aiutarti",
	"non saprei",
	"mi dispiace, non so",
	"purtroppo non so",
}

// Client talks to the OpenAI chat completions API.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int64
	temperature float64
	log         logger.Logger
}

// NewClient creates a completion client from configuration.
func NewClient(cfg config.OpenAIConfig, log logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.APIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.APIBaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	client := openai.NewClient(opts...)

	return &Client{
		client:      &client,
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		log:         log,
	}, nil
}

// Complete sends the conversation to the model and classifies the answer.
func (c *Client) Complete(ctx context.Context, history []session.Message, userMessage string) (Classification, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(SystemPrompt),
	}
	for _, m := range history {
		switch m.Role {
		case session.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case session.RoleBot, session.RoleOperator:
			messages = append(messages, openai.AssistantMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(userMessage))

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		MaxTokens:   openai.Int(c.maxTokens),
		Temperature: openai.Float(c.temperature),
		Messages:    messages,
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Classification{}, fmt.Errorf("openai API error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Classification{}, fmt.Errorf("openai returned no choices")
	}

	raw := completion.Choices[0].Message.Content
	result := Classify(raw)

	c.log.Debug("Model response classified",
		logger.StringField("kind", string(result.Kind)),
		logger.BoolField("low_confidence", result.LowConfidence),
	)
	return result, nil
}

// modelEnvelope is the JSON shape the prompt asks the model to use. Models
// do not always comply, so plain text is handled too.
type modelEnvelope struct {
	Reply  string `json:"reply"`
	Action string `json:"action"`
}

// Classify interprets raw model output. JSON envelopes are preferred; the
// operator token is also honored when it appears in plain text.
func Classify(raw string) Classification {
	text := strings.TrimSpace(raw)

	if env, ok := extractEnvelope(text); ok {
		if env.Action == operatorToken {
			return Classification{Kind: KindOperatorRequest, Reply: env.Reply}
		}
		text = env.Reply
	}

	if strings.Contains(strings.ToLower(text), operatorToken) {
		reply := strings.TrimSpace(strings.ReplaceAll(text, operatorToken, ""))
		return Classification{Kind: KindOperatorRequest, Reply: reply}
	}

	return Classification{
		Kind:          KindReply,
		Reply:         text,
		LowConfidence: isHedging(text),
	}
}

// extractEnvelope pulls a JSON object out of the response, tolerating
// surrounding prose and markdown fences.
func extractEnvelope(text string) (modelEnvelope, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return modelEnvelope{}, false
	}

	var env modelEnvelope
	if err := json.Unmarshal([]byte(text[start:end+1]), &env); err != nil {
		return modelEnvelope{}, false
	}
	if env.Reply == "" && env.Action == "" {
		return modelEnvelope{}, false
	}
	return env, true
}

func isHedging(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
