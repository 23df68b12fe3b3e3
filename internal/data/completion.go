package data

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/repo"
)

const (
	replyPrefix  = "🤖: "
	emptyReply   = "Sorry, no reply."
	defaultModel = "gemini-1.5-flash"
)

// PromptBuilder renders the system prompt for a reply to sender
type PromptBuilder interface {
	SystemPrompt(sender string) string
}

// completionRepo implements repo.CompletionRepo over an OpenAI-compatible chat API
type completionRepo struct {
	client *openai.Client
	model  string
	prompt PromptBuilder
}

// NewCompletionRepo creates a completion repository. An empty baseURL uses the OpenAI default.
func NewCompletionRepo(apiKey, baseURL, model string, prompt PromptBuilder) repo.CompletionRepo {
	if model == "" {
		model = defaultModel
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}

	return &completionRepo{
		client: openai.NewClientWithConfig(config),
		model:  model,
		prompt: prompt,
	}
}

// Complete asks the model for a reply to userText
func (r *completionRepo) Complete(ctx context.Context, userText, senderLabel string) (string, error) {
	var messages []openai.ChatCompletionMessage
	if r.prompt != nil {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: r.prompt.SystemPrompt(senderLabel),
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	reply := ""
	if len(resp.Choices) > 0 {
		reply = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if reply == "" {
		reply = emptyReply
	}
	return replyPrefix + reply, nil
}
