package dialect

import "strings"

// Dialect identifies the upstream wire format a request has to be translated
// into before forwarding.
type Dialect int

const (
	// Passthrough forwards the request verbatim to a configured override
	// target, bypassing all URL and body rewriting.
	Passthrough Dialect = iota
	// NativeChat targets the provider's OpenAI-compatible chat completions
	// endpoint, so the body is forwarded near-verbatim.
	NativeChat
	// RawPredict wraps the request in the provider's generic prediction
	// endpoint, content-parts response shape.
	RawPredict
	// Anthropic is the foreign message-blocks dialect requiring full
	// structural conversion in both directions.
	Anthropic
)

func (d Dialect) String() string {
	switch d {
	case Passthrough:
		return "passthrough"
	case NativeChat:
		return "native_chat"
	case RawPredict:
		return "raw_predict"
	case Anthropic:
		return "anthropic"
	}
	return "unknown"
}

// anthropicMarker is the vendor substring that flags a model as speaking the
// foreign message-blocks dialect.
const anthropicMarker = "anthropic"

const chatCompletionsSuffix = "/chat/completions"

// Models known to be served behind the provider's OpenAI-compatible chat
// completions endpoint.
var defaultKnownChatModels = []string{
	"publishers/mistral-ai/models/mistral-7b-instruct-v0.3",
	"publishers/mistral-ai/models/mistral-nemo-instruct-2407",
	"publishers/mistral-ai/models/mistral-nemo@2407",
	"publishers/mistral-ai/models/mistral-7b-instruct@v0.3",
	"publishers/google/models/gemma-2-27b-it",
	"publishers/google/models/gemma-2-9b-it",
	"publishers/google/models/gemini-2.0-flash-001",
	"publishers/google/models/gemini-2.0-flash-lite-001",
	"publishers/google/models/gemini-2.5-pro-preview-05-06",
	"publishers/google/models/gemini-2.5-flash-preview-05-20",
	"publishers/meta/models/llama3-8b",
	"publishers/meta/models/llama-3-1-8b-instruct",
	"publishers/meta/models/llama2-7b",
}

// Selector decides the upstream dialect for a resolved model and request
// path. The known chat model set is fixed at construction; runtime changes go
// through a restart, never through mutation.
type Selector struct {
	proxyTarget     string
	knownChatModels map[string]struct{}
}

// NewSelector builds a selector. extraModels extends the compiled-in chat
// model allow-list, and a non-empty proxyTarget short-circuits every
// selection to Passthrough.
func NewSelector(proxyTarget string, extraModels []string) *Selector {
	known := make(map[string]struct{}, len(defaultKnownChatModels)+len(extraModels))
	for _, m := range defaultKnownChatModels {
		known[m] = struct{}{}
	}

	for _, m := range extraModels {
		if len(m) != 0 {
			known[m] = struct{}{}
		}
	}

	return &Selector{
		proxyTarget:     proxyTarget,
		knownChatModels: known,
	}
}

func (s *Selector) IsKnownChatModel(model string) bool {
	_, ok := s.knownChatModels[model]
	return ok
}

// Select picks the dialect for a resolved model and the request path with the
// route prefix already removed. A known chat model still needs a chat
// completions path to qualify for NativeChat; posting it anywhere else falls
// through to RawPredict.
func (s *Selector) Select(model, path string) Dialect {
	if len(s.proxyTarget) != 0 {
		return Passthrough
	}

	if s.IsKnownChatModel(model) && strings.HasSuffix(path, chatCompletionsSuffix) {
		return NativeChat
	}

	if strings.Contains(model, anthropicMarker) {
		return Anthropic
	}

	return RawPredict
}
