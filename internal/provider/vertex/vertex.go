package vertex

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/DefangLabs/openai-access-gateway/internal/errors"
	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"
)

// Content-parts response shape returned by the generic prediction endpoints.
type Part struct {
	Text string `json:"text"`
}

type Candidate struct {
	Content struct {
		Role  string `json:"role,omitempty"`
		Parts []Part `json:"parts"`
	} `json:"content"`
	FinishReason string `json:"finishReason,omitempty"`
}

type ChatResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// ChatModelName reduces a fully-qualified publisher model path to the short
// form expected by the chat completions endpoint.
func ChatModelName(model string) string {
	parts := strings.Split(model, "/")
	name := parts[len(parts)-1]

	if strings.HasPrefix(model, "publishers/google/") {
		return "google/" + name
	}

	return name
}

// ToChatCompletion translates a content-parts chat response into the OpenAI
// chat completion shape. The response id is freshly generated, never taken
// from upstream. A response without candidates violates the dialect contract
// and is rejected rather than papered over with an empty choice.
func ToChatCompletion(body []byte) (*goopenai.ChatCompletionResponse, error) {
	res := &ChatResponse{}
	if err := json.Unmarshal(body, res); err != nil {
		return nil, errors.NewValidationError("failed to unmarshal chat response: " + err.Error())
	}

	if len(res.Candidates) == 0 {
		return nil, errors.NewValidationError("no candidates in response")
	}

	choices := make([]goopenai.ChatCompletionChoice, 0, len(res.Candidates))
	for i, candidate := range res.Candidates {
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}

		finishReason := "stop"
		if len(candidate.FinishReason) != 0 {
			finishReason = strings.ToLower(candidate.FinishReason)
		}

		choices = append(choices, goopenai.ChatCompletionChoice{
			Index: i,
			Message: goopenai.ChatCompletionMessage{
				Role:    "assistant",
				Content: text.String(),
			},
			FinishReason: goopenai.FinishReason(finishReason),
		})
	}

	return &goopenai.ChatCompletionResponse{
		ID:      "chatcmpl-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8],
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Choices: choices,
	}, nil
}

// Embeddings prediction envelope.
type Instance struct {
	Content string `json:"content"`
}

type PredictRequest struct {
	Instances []Instance `json:"instances"`
}

type EmbeddingStatistics struct {
	TokenCount int `json:"token_count"`
}

type Embeddings struct {
	Values     []float32            `json:"values"`
	Statistics *EmbeddingStatistics `json:"statistics,omitempty"`
}

type Prediction struct {
	Embeddings *Embeddings `json:"embeddings,omitempty"`
}

type PredictResponse struct {
	Predictions []Prediction `json:"predictions"`
}

type Usage struct {
	TotalTokens int `json:"total_tokens"`
}

type EmbeddingResponse struct {
	Data   []goopenai.Embedding `json:"data"`
	Model  string               `json:"model"`
	Object string               `json:"object"`
	Usage  Usage                `json:"usage"`
}

// ToPredictRequest wraps an OpenAI embeddings input in the prediction
// instances envelope. Inputs are stringified element-wise; a bare string
// becomes a single instance and a missing input an empty instance list.
func ToPredictRequest(input interface{}) *PredictRequest {
	instances := []Instance{}

	switch v := input.(type) {
	case string:
		instances = append(instances, Instance{Content: v})
	case []interface{}:
		for _, item := range v {
			instances = append(instances, Instance{Content: stringify(item)})
		}
	}

	return &PredictRequest{Instances: instances}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	}

	bs, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	return string(bs)
}

// ToEmbeddingResponse translates a prediction response into the OpenAI
// embeddings list shape. A prediction without the embeddings.values nesting
// is a contract violation and fails the whole translation; token counts are
// summed with missing statistics contributing zero.
func ToEmbeddingResponse(body []byte, model string) (*EmbeddingResponse, error) {
	res := &PredictResponse{}
	if err := json.Unmarshal(body, res); err != nil {
		return nil, errors.NewValidationError("failed to unmarshal predict response: " + err.Error())
	}

	data := make([]goopenai.Embedding, 0, len(res.Predictions))
	totalTokens := 0

	for i, prediction := range res.Predictions {
		if prediction.Embeddings == nil || prediction.Embeddings.Values == nil {
			return nil, errors.NewNotFoundError("prediction is missing embeddings values")
		}

		if prediction.Embeddings.Statistics != nil {
			totalTokens += prediction.Embeddings.Statistics.TokenCount
		}

		data = append(data, goopenai.Embedding{
			Embedding: prediction.Embeddings.Values,
			Index:     i,
			Object:    "embedding",
		})
	}

	return &EmbeddingResponse{
		Data:   data,
		Model:  model,
		Object: "list",
		Usage:  Usage{TotalTokens: totalTokens},
	}, nil
}
