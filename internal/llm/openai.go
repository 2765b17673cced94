package llm

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/icfextract/internal/util"
)

// OpenAIProvider implements the Agent interface for OpenAI models
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, errors.WithHint(errors.New("OpenAI API key is required"), "export OPENAI_API_KEY=sk-...")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	httpClient, err := util.NewHTTPClient(config.Timeout, 120, config.HTTPProxy, config.HTTPSProxy)
	if err != nil {
		return nil, err
	}
	clientConfig.HTTPClient = httpClient

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Close is a no-op; the HTTP client holds no per-run state
func (p *OpenAIProvider) Close() error {
	return nil
}

// Invoke runs the task through the Chat Completions API
func (p *OpenAIProvider) Invoke(ctx context.Context, task Task) (*Completion, error) {
	model := task.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	maxTokens := task.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 2000
	}

	return converse(ctx, task, func(ctx context.Context, messages []message) (turnReply, error) {
		chatReq := openai.ChatCompletionRequest{
			Model:       model,
			Messages:    toOpenAIMessages(messages),
			MaxTokens:   maxTokens,
			Temperature: p.config.Temperature,
		}

		resp, err := p.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return turnReply{}, errors.Wrap(err, "OpenAI API error")
		}
		if len(resp.Choices) == 0 {
			return turnReply{}, errors.New("no response from OpenAI")
		}

		return turnReply{
			Text:   resp.Choices[0].Message.Content,
			Model:  resp.Model,
			Tokens: resp.Usage.TotalTokens,
		}, nil
	})
}

func toOpenAIMessages(messages []message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
