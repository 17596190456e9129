package vertex

import (
	"strings"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatModelName(t *testing.T) {
	assert.Equal(t, "google/gemini-2.0-flash-001", ChatModelName("publishers/google/models/gemini-2.0-flash-001"))
	assert.Equal(t, "mistral-nemo-instruct-2407", ChatModelName("publishers/mistral-ai/models/mistral-nemo-instruct-2407"))
	assert.Equal(t, "plain-model", ChatModelName("plain-model"))
}

func TestToChatCompletion(t *testing.T) {
	body := []byte(`{
		"candidates": [
			{
				"content": {"role": "model", "parts": [{"text": "Hello"}, {"text": " there"}]},
				"finishReason": "STOP"
			},
			{
				"content": {"parts": [{"text": "second"}]}
			}
		]
	}`)

	res, err := ToChatCompletion(body)
	require.NoError(t, err)

	require.Len(t, res.Choices, 2)
	assert.True(t, strings.HasPrefix(res.ID, "chatcmpl-"))
	assert.Len(t, res.ID, len("chatcmpl-")+8)
	assert.Equal(t, "chat.completion", res.Object)

	assert.Equal(t, 0, res.Choices[0].Index)
	assert.Equal(t, "assistant", res.Choices[0].Message.Role)
	assert.Equal(t, "Hello there", res.Choices[0].Message.Content)
	assert.Equal(t, goopenai.FinishReason("stop"), res.Choices[0].FinishReason)

	assert.Equal(t, 1, res.Choices[1].Index)
	assert.Equal(t, "second", res.Choices[1].Message.Content)
	assert.Equal(t, goopenai.FinishReason("stop"), res.Choices[1].FinishReason)
}

func TestToChatCompletion_FreshIds(t *testing.T) {
	body := []byte(`{"candidates": [{"content": {"parts": [{"text": "hi"}]}}]}`)

	first, err := ToChatCompletion(body)
	require.NoError(t, err)
	second, err := ToChatCompletion(body)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestToChatCompletion_NoCandidates(t *testing.T) {
	_, err := ToChatCompletion([]byte(`{"candidates": []}`))
	require.Error(t, err)

	_, err = ToChatCompletion([]byte(`{}`))
	require.Error(t, err)

	_, ok := err.(interface{ Validation() })
	assert.True(t, ok)
}

func TestToPredictRequest(t *testing.T) {
	req := ToPredictRequest("a single sentence")
	require.Len(t, req.Instances, 1)
	assert.Equal(t, "a single sentence", req.Instances[0].Content)

	req = ToPredictRequest([]interface{}{"one", float64(42), float64(1.5), true})
	require.Len(t, req.Instances, 4)
	assert.Equal(t, "one", req.Instances[0].Content)
	assert.Equal(t, "42", req.Instances[1].Content)
	assert.Equal(t, "1.5", req.Instances[2].Content)
	assert.Equal(t, "true", req.Instances[3].Content)

	req = ToPredictRequest(nil)
	assert.Empty(t, req.Instances)
}

func TestToEmbeddingResponse(t *testing.T) {
	body := []byte(`{
		"predictions": [
			{"embeddings": {"values": [0.1, 0.2], "statistics": {"token_count": 3}}},
			{"embeddings": {"values": [0.3]}}
		]
	}`)

	res, err := ToEmbeddingResponse(body, "text-embedding-ada-002")
	require.NoError(t, err)

	assert.Equal(t, "list", res.Object)
	assert.Equal(t, "text-embedding-ada-002", res.Model)
	assert.Equal(t, 3, res.Usage.TotalTokens)

	require.Len(t, res.Data, 2)
	assert.Equal(t, 0, res.Data[0].Index)
	assert.Equal(t, "embedding", res.Data[0].Object)
	assert.Equal(t, []float32{0.1, 0.2}, res.Data[0].Embedding)
	assert.Equal(t, 1, res.Data[1].Index)
	assert.Equal(t, []float32{0.3}, res.Data[1].Embedding)
}

func TestToEmbeddingResponse_MissingValues(t *testing.T) {
	_, err := ToEmbeddingResponse([]byte(`{"predictions": [{}]}`), "m")
	require.Error(t, err)

	_, ok := err.(interface{ NotFound() })
	assert.True(t, ok)

	_, err = ToEmbeddingResponse([]byte(`{"predictions": [{"embeddings": {}}]}`), "m")
	assert.Error(t, err)
}
