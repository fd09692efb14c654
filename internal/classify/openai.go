package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"intake/internal/logger"
)

// chatCompleter is the part of the OpenAI client the classifier uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIConfig configures the chat completion call. A zero Temperature
// leaves the server default in place.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	// MaxAttempts bounds the number of calls made for one document.
	MaxAttempts int
	// RetryDelay is the pause between failed attempts.
	RetryDelay time.Duration
}

// OpenAIClassifier sends the prompt as the system message and the document
// text as the user message.
type OpenAIClassifier struct {
	client chatCompleter
	config OpenAIConfig
	log    zerolog.Logger
}

// NewOpenAIClassifier creates a classifier with a new OpenAI client.
func NewOpenAIClassifier(config OpenAIConfig) (*OpenAIClassifier, error) {
	const op = "NewOpenAIClassifier"

	if config.APIKey == "" {
		return nil, WrapClassificationError(op, ErrMissingAPIKey, "")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return NewOpenAIClassifierWithClient(openai.NewClientWithConfig(clientConfig), config), nil
}

// NewOpenAIClassifierWithClient creates a classifier with an explicit client (for testing).
func NewOpenAIClassifierWithClient(client chatCompleter, config OpenAIConfig) *OpenAIClassifier {
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 500
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	return &OpenAIClassifier{
		client: client,
		config: config,
		log:    logger.WithComponent("openai-classifier"),
	}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, documentText, prompt string) (string, error) {
	const op = "Classify"

	if strings.TrimSpace(documentText) == "" {
		return "", WrapClassificationError(op, ErrEmptyDocument, "")
	}

	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: documentText},
		},
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			verdict, err := verdictFrom(resp)
			if err != nil {
				c.log.Warn().
					Err(err).
					Str("model", resp.Model).
					Msg("Unexpected response structure")
				return "", WrapClassificationError(op, err, "")
			}

			c.log.Debug().
				Str("verdict", verdict).
				Msg("Received classification verdict")
			return verdict, nil
		}

		lastErr = err
		if ctx.Err() != nil || attempt >= c.config.MaxAttempts {
			break
		}

		c.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", c.config.MaxAttempts).
			Dur("delay", c.config.RetryDelay).
			Msg("Classification request failed, retrying")

		if err := sleep(ctx, c.config.RetryDelay); err != nil {
			lastErr = err
			break
		}
	}

	return "", WrapClassificationError(op, lastErr, fmt.Sprintf("after %d attempts", c.config.MaxAttempts))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// verdictFrom checks the response shape before reading the message.
func verdictFrom(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	msg := resp.Choices[0].Message
	if msg.Content != "" {
		return msg.Content, nil
	}
	// Some servers return the reply as content parts.
	var parts []string
	for _, part := range msg.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText && part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	if len(parts) == 0 {
		if msg.Refusal != "" {
			return "", fmt.Errorf("%w: refusal: %s", ErrMalformedResponse, msg.Refusal)
		}
		return "", fmt.Errorf("%w: empty message", ErrMalformedResponse)
	}
	return strings.Join(parts, " "), nil
}
