package anthropic

import (
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMessagesRequest(t *testing.T) {
	req := ToMessagesRequest(&goopenai.ChatCompletionRequest{
		Model: "claude-3-haiku",
		Messages: []goopenai.ChatCompletionMessage{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: ""},
			{Role: "assistant", Content: "hi, how can I help?"},
		},
	}, VertexVersion, 0)

	assert.Equal(t, VertexVersion, req.AnthropicVersion)
	assert.Equal(t, defaultMaxTokens, req.MaxTokens)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, "user", req.Messages[0].Role)
	require.Len(t, req.Messages[0].Content, 1)
	assert.Equal(t, "text", req.Messages[0].Content[0].Type)
	assert.Equal(t, "hello", req.Messages[0].Content[0].Text)
	assert.Equal(t, "hi, how can I help?", req.Messages[1].Content[0].Text)
}

func TestToMessagesRequest_MaxTokens(t *testing.T) {
	req := ToMessagesRequest(&goopenai.ChatCompletionRequest{
		MaxTokens: 1024,
	}, BedrockVersion, 0)
	assert.Equal(t, 1024, req.MaxTokens)
	assert.Equal(t, BedrockVersion, req.AnthropicVersion)

	req = ToMessagesRequest(&goopenai.ChatCompletionRequest{
		MaxTokens: 1024,
	}, BedrockVersion, 2048)
	assert.Equal(t, 2048, req.MaxTokens)
}

func TestToChatCompletion(t *testing.T) {
	body := []byte(`{
		"id": "msg_019LBLYFJ",
		"type": "message",
		"role": "assistant",
		"content": [
			{"type": "text", "text": "Hello"},
			{"type": "tool_use", "text": "ignored"},
			{"type": "text", "text": " world"}
		],
		"model": "claude-3-haiku",
		"stop_reason": "END_TURN",
		"usage": {"input_tokens": 10, "output_tokens": 25}
	}`)

	res, err := ToChatCompletion(body, "claude-3-haiku")
	require.NoError(t, err)

	assert.Equal(t, "msg_019LBLYFJ", res.ID)
	assert.Equal(t, "chat.completion", res.Object)
	assert.Equal(t, "claude-3-haiku", res.Model)

	require.Len(t, res.Choices, 1)
	assert.Equal(t, "assistant", res.Choices[0].Message.Role)
	assert.Equal(t, "Hello world", res.Choices[0].Message.Content)
	assert.Equal(t, goopenai.FinishReason("end_turn"), res.Choices[0].FinishReason)

	assert.Equal(t, 10, res.Usage.PromptTokens)
	assert.Equal(t, 25, res.Usage.CompletionTokens)
	assert.Equal(t, 35, res.Usage.TotalTokens)
}

func TestToChatCompletion_Defaults(t *testing.T) {
	res, err := ToChatCompletion([]byte(`{"id": "msg_1", "content": []}`), "m")
	require.NoError(t, err)

	assert.Equal(t, goopenai.FinishReason("stop"), res.Choices[0].FinishReason)
	assert.Equal(t, "", res.Choices[0].Message.Content)
}

func TestToChatCompletion_MalformedBody(t *testing.T) {
	_, err := ToChatCompletion([]byte(`not json`), "m")
	assert.Error(t, err)
}
