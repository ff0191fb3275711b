// Package llm wraps chat-completion backends behind a single-prompt
// Completer interface used by the classification, enrichment and
// remediation stages.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/hashicorp/go-hclog"
)

// ErrEmptyCompletion is returned when the backend answers without content.
var ErrEmptyCompletion = errors.New("no completion received from LLM")

// Completer sends a prompt and returns the model's text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// AzureClient is a Completer backed by an Azure OpenAI chat deployment.
type AzureClient struct {
	client       *azopenai.Client
	deploymentID string
	temperature  float32
	logger       hclog.Logger
}

// NewAzureClient creates a client using key credentials. The deploymentID is
// used for every subsequent call.
func NewAzureClient(endpoint, apiKey, deploymentID string, logger hclog.Logger) (*AzureClient, error) {
	if endpoint == "" || apiKey == "" || deploymentID == "" {
		return nil, errors.New("azure openai endpoint, key and deployment are required")
	}
	keyCredential := azcore.NewKeyCredential(apiKey)
	client, err := azopenai.NewClientWithKeyCredential(endpoint, keyCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating Azure OpenAI client: %w", err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &AzureClient{client: client, deploymentID: deploymentID, logger: logger}, nil
}

// Complete sends prompt as a single user message at temperature zero.
func (c *AzureClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.GetChatCompletions(
		ctx,
		azopenai.ChatCompletionsOptions{
			DeploymentName: to.Ptr(c.deploymentID),
			Temperature:    to.Ptr(c.temperature),
			Messages: []azopenai.ChatRequestMessageClassification{
				&azopenai.ChatRequestUserMessage{
					Content: azopenai.NewChatRequestUserMessageContent(prompt),
				},
			},
		},
		nil,
	)
	if err != nil {
		c.logger.Debug("chat completion failed", "deployment", c.deploymentID, "error", err)
		return "", err
	}
	if len(resp.Choices) > 0 && resp.Choices[0].Message != nil && resp.Choices[0].Message.Content != nil {
		return *resp.Choices[0].Message.Content, nil
	}
	return "", ErrEmptyCompletion
}

// DecodeJSON extracts the first JSON object or array from a model answer,
// tolerating markdown fences and surrounding prose, and unmarshals it into v.
func DecodeJSON(answer string, v any) error {
	s := strings.TrimSpace(answer)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return fmt.Errorf("no JSON in model answer")
	}
	open := s[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return fmt.Errorf("unterminated JSON in model answer")
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("malformed JSON in model answer: %w", err)
	}
	return nil
}
