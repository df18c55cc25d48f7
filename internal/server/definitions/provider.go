// Package definitions generates short definitions for study terms using
// a chat-completion model. The whole batch goes out as one request and
// the model answers with a single JSON object mapping term to definition.
package definitions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clarifio/clarifio/internal/common"
	openai "github.com/sashabaranov/go-openai"
)

// Provider produces definitions for a batch of terms. The notes argument
// is optional surrounding context; implementations may ignore it.
type Provider interface {
	Define(ctx context.Context, terms []string, notes string) (map[string]string, error)
}

const systemPrompt = `You are a study assistant. The user gives you a JSON array of terms and optionally some lecture notes for context. Reply with a single JSON object whose keys are exactly the given terms and whose values are concise definitions (one or two sentences each). Reply with the JSON object only, no prose and no code fences.`

// OpenAIProvider implements Provider on top of the OpenAI chat API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{client: openai.NewClient(apiKey), model: model}
}

func (p *OpenAIProvider) Define(ctx context.Context, terms []string, notes string) (map[string]string, error) {
	userMsg, err := buildUserMessage(terms, notes)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: chat completion: %v", common.ErrService, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", common.ErrService)
	}

	return parseDefinitions(resp.Choices[0].Message.Content)
}

func buildUserMessage(terms []string, notes string) (string, error) {
	payload := struct {
		Terms []string `json:"terms"`
		Notes string   `json:"notes,omitempty"`
	}{Terms: terms, Notes: notes}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", common.ErrService, err)
	}
	return string(b), nil
}

// parseDefinitions decodes the model output into a term-to-definition map.
// Models sometimes wrap JSON in markdown fences despite instructions, so
// fences are stripped before decoding. Anything else malformed fails the
// batch.
func parseDefinitions(content string) (map[string]string, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	out := make(map[string]string)
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("%w: malformed model output: %v", common.ErrService, err)
	}
	return out, nil
}
