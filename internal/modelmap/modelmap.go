package modelmap

import (
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Mapper resolves client-facing model aliases to upstream model identifiers.
// The table is two levels deep, provider first, then alias. It is populated
// once at startup and read-only afterwards.
type Mapper struct {
	table map[string]map[string]string
}

// NewMapper loads the alias table from a JSON file shaped as
// {"provider": {"alias": "upstream-model"}}.
func NewMapper(path string) (*Mapper, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return nil, err
	}

	table := map[string]map[string]string{}
	for provider, raw := range k.Raw() {
		models, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		entries := map[string]string{}
		for alias, model := range models {
			if upstream, ok := model.(string); ok {
				entries[strings.ToLower(alias)] = upstream
			}
		}

		table[strings.ToLower(provider)] = entries
	}

	return &Mapper{table: table}, nil
}

// NewMapperFromTable builds a mapper from an in-memory table.
func NewMapperFromTable(table map[string]map[string]string) *Mapper {
	normalized := map[string]map[string]string{}
	for provider, models := range table {
		entries := map[string]string{}
		for alias, model := range models {
			entries[strings.ToLower(alias)] = model
		}

		normalized[strings.ToLower(provider)] = entries
	}

	return &Mapper{table: normalized}
}

// Identity returns a mapper with an empty table, so every lookup falls
// through to the normalized alias.
func Identity() *Mapper {
	return &Mapper{table: map[string]map[string]string{}}
}

// Lookup resolves an alias to the provider's model identifier. The alias is
// lower-cased and a trailing ":latest" tag is stripped before the lookup.
// Unknown providers and unknown aliases resolve to the normalized alias
// itself, so unmapped models are forwarded instead of rejected.
func (m *Mapper) Lookup(provider, model string) string {
	normalized := strings.TrimSuffix(strings.ToLower(model), ":latest")

	models, ok := m.table[strings.ToLower(provider)]
	if !ok {
		return normalized
	}

	if upstream, ok := models[normalized]; ok {
		return upstream
	}

	return normalized
}
