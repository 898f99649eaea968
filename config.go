package depot

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy selects the placement strategy of a storage.
type Policy int

const (
	PolicyUnmanaged Policy = iota
	PolicySwapCompacted
	PolicyArchetypeGrouped
)

func (p Policy) String() string {
	switch p {
	case PolicyUnmanaged:
		return "unmanaged"
	case PolicySwapCompacted:
		return "swap-compacted"
	case PolicyArchetypeGrouped:
		return "archetype-grouped"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

func (p *Policy) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch raw {
	case "unmanaged":
		*p = PolicyUnmanaged
	case "swap-compacted":
		*p = PolicySwapCompacted
	case "archetype-grouped":
		*p = PolicyArchetypeGrouped
	default:
		return ConfigError{Field: "policy", Reason: fmt.Sprintf("unknown policy %q", raw)}
	}
	return nil
}

// Indexing selects how table indices map to pool slots.
type Indexing int

const (
	IndexingDirect Indexing = iota
	IndexingSparse
)

func (i Indexing) String() string {
	switch i {
	case IndexingDirect:
		return "direct"
	case IndexingSparse:
		return "sparse"
	}
	return fmt.Sprintf("indexing(%d)", int(i))
}

func (i *Indexing) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch raw {
	case "direct":
		*i = IndexingDirect
	case "sparse":
		*i = IndexingSparse
	default:
		return ConfigError{Field: "indexing", Reason: fmt.Sprintf("unknown indexing %q", raw)}
	}
	return nil
}

// Config holds storage construction settings. MaxComponents sizes schemas
// built through the factory; the remaining fields size and shape each
// storage. The zero value is not usable, start from DefaultConfig.
type Config struct {
	MaxEntities   int          `yaml:"max_entities"`
	MaxComponents int          `yaml:"max_components"`
	Policy        Policy       `yaml:"policy"`
	Indexing      Indexing     `yaml:"indexing"`
	Logger        *slog.Logger `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		MaxEntities:   1024,
		MaxComponents: 32,
		Policy:        PolicyArchetypeGrouped,
		Indexing:      IndexingDirect,
	}
}

// LoadConfig reads a YAML file over the defaults, so absent keys keep their
// default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.MaxEntities < 1 {
		return ConfigError{Field: "max_entities", Reason: "must be at least 1"}
	}
	if c.MaxComponents < 1 || c.MaxComponents > MaxComponentTypes {
		return ConfigError{Field: "max_components", Reason: fmt.Sprintf("must be within [1, %d]", MaxComponentTypes)}
	}
	switch c.Policy {
	case PolicyUnmanaged, PolicySwapCompacted, PolicyArchetypeGrouped:
	default:
		return ConfigError{Field: "policy", Reason: fmt.Sprintf("unknown policy %d", int(c.Policy))}
	}
	switch c.Indexing {
	case IndexingDirect, IndexingSparse:
	default:
		return ConfigError{Field: "indexing", Reason: fmt.Sprintf("unknown indexing %d", int(c.Indexing))}
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
