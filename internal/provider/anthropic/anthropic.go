package anthropic

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/DefangLabs/openai-access-gateway/internal/errors"
	goopenai "github.com/sashabaranov/go-openai"
)

const (
	// VertexVersion is the anthropic_version value required by the GCP-hosted
	// messages endpoint.
	VertexVersion = "vertex-2023-10-16"
	// BedrockVersion is the anthropic_version value required by the
	// AWS-hosted messages endpoint.
	BedrockVersion = "bedrock-2023-05-31"

	// The messages API rejects requests without max_tokens, so one is always
	// filled in when the client omits it.
	defaultMaxTokens = 256
)

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

type MessagesRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []Message `json:"messages"`
	Temperature      float32   `json:"temperature,omitempty"`
	TopP             float32   `json:"top_p,omitempty"`
	StopSequences    []string  `json:"stop_sequences,omitempty"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type MessagesResponse struct {
	Id           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Content      []ContentBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   string         `json:"stop_reason"`
	StopSequence string         `json:"stop_sequence,omitempty"`
	Usage        Usage          `json:"usage"`
}

// ToMessagesRequest converts an OpenAI chat completion request into the
// message-blocks shape. The model field is dropped, it travels in the URL
// instead. maxTokens overrides the client value when positive; a client that
// sent neither gets the endpoint's minimum viable default.
func ToMessagesRequest(req *goopenai.ChatCompletionRequest, version string, maxTokens int) *MessagesRequest {
	messages := []Message{}
	for _, m := range req.Messages {
		if len(m.Content) == 0 {
			continue
		}

		messages = append(messages, Message{
			Role: m.Role,
			Content: []ContentBlock{
				{
					Type: "text",
					Text: m.Content,
				},
			},
		})
	}

	if maxTokens <= 0 {
		maxTokens = req.MaxTokens
	}

	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &MessagesRequest{
		AnthropicVersion: version,
		MaxTokens:        maxTokens,
		Messages:         messages,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		StopSequences:    req.Stop,
	}
}

// ToChatCompletion translates a messages response into the OpenAI chat
// completion shape. Only text blocks carry over; their texts are concatenated
// into a single assistant message. The upstream id is kept as-is.
func ToChatCompletion(body []byte, model string) (*goopenai.ChatCompletionResponse, error) {
	res := &MessagesResponse{}
	if err := json.Unmarshal(body, res); err != nil {
		return nil, errors.NewValidationError("failed to unmarshal messages response: " + err.Error())
	}

	var text strings.Builder
	for _, block := range res.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	finishReason := "stop"
	if len(res.StopReason) != 0 {
		finishReason = strings.ToLower(res.StopReason)
	}

	return &goopenai.ChatCompletionResponse{
		ID:      res.Id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []goopenai.ChatCompletionChoice{
			{
				Index: 0,
				Message: goopenai.ChatCompletionMessage{
					Role:    "assistant",
					Content: text.String(),
				},
				FinishReason: goopenai.FinishReason(finishReason),
			},
		},
		Usage: goopenai.Usage{
			PromptTokens:     res.Usage.InputTokens,
			CompletionTokens: res.Usage.OutputTokens,
			TotalTokens:      res.Usage.InputTokens + res.Usage.OutputTokens,
		},
	}, nil
}
