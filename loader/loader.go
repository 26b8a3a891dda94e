package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofhir/fhir/r4"
	"github.com/rs/zerolog"

	"github.com/gofhir/crawler/schema"
)

// Loader reads StructureDefinition JSON and populates a schema registry.
// It accepts single resources, Bundles, files, and directories, and is
// itself a schema.Provider so it can be handed straight to a crawl.
type Loader struct {
	registry  *schema.Registry
	converter *Converter
	log       zerolog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for load diagnostics. The default
// discards all output.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// WithRegistry makes the loader populate an existing registry instead
// of creating its own.
func WithRegistry(reg *schema.Registry) Option {
	return func(l *Loader) {
		if reg != nil {
			l.registry = reg
		}
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		registry:  schema.NewRegistry(),
		converter: NewConverter(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Registry returns the registry the loader populates.
func (l *Loader) Registry() *schema.Registry {
	return l.registry
}

// Schema implements schema.Provider.
func (l *Loader) Schema(ctx context.Context, typeName string) (*schema.TypeSchema, error) {
	return l.registry.Schema(ctx, typeName)
}

// ResolveProperty implements schema.Provider.
func (l *Loader) ResolveProperty(ctx context.Context, tv schema.TypedValue, key string, opts ...schema.ResolveOption) ([]schema.TypedValue, error) {
	return l.registry.ResolveProperty(ctx, tv, key, opts...)
}

// LoadStructureDefinition converts and registers one R4
// StructureDefinition, including the nested backbone types it defines.
func (l *Loader) LoadStructureDefinition(sd *r4.StructureDefinition) error {
	schemas, err := l.converter.Convert(sd)
	if err != nil {
		return err
	}
	for _, s := range schemas {
		l.registry.Register(s)
	}
	l.log.Debug().
		Str("type", schemas[0].Name).
		Str("url", schemas[0].URL).
		Int("schemas", len(schemas)).
		Msg("loaded structure definition")
	return nil
}

// LoadFromJSON loads StructureDefinitions from JSON data, auto-detecting
// Bundle versus single StructureDefinition format. It returns the number
// of StructureDefinitions loaded.
func (l *Loader) LoadFromJSON(data []byte) (int, error) {
	var probe struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0, fmt.Errorf("invalid JSON: %w", err)
	}

	switch probe.ResourceType {
	case "Bundle":
		return l.LoadFromBundle(data)
	case "StructureDefinition":
		var sd r4.StructureDefinition
		if err := json.Unmarshal(data, &sd); err != nil {
			return 0, fmt.Errorf("parse StructureDefinition: %w", err)
		}
		if err := l.LoadStructureDefinition(&sd); err != nil {
			return 0, err
		}
		return 1, nil
	default:
		return 0, fmt.Errorf("unsupported resourceType: %q", probe.ResourceType)
	}
}

// LoadFromBundle loads every StructureDefinition entry of a FHIR Bundle.
// Entries that are not StructureDefinitions, or fail to convert, are
// skipped.
func (l *Loader) LoadFromBundle(data []byte) (int, error) {
	var bundle struct {
		ResourceType string `json:"resourceType"`
		Entry        []struct {
			Resource json.RawMessage `json:"resource"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(data, &bundle); err != nil {
		return 0, fmt.Errorf("parse Bundle: %w", err)
	}
	if bundle.ResourceType != "Bundle" {
		return 0, fmt.Errorf("expected Bundle, got %q", bundle.ResourceType)
	}

	count := 0
	for _, entry := range bundle.Entry {
		if entry.Resource == nil {
			continue
		}
		var probe struct {
			ResourceType string `json:"resourceType"`
		}
		if err := json.Unmarshal(entry.Resource, &probe); err != nil {
			continue
		}
		if probe.ResourceType != "StructureDefinition" {
			continue
		}

		var sd r4.StructureDefinition
		if err := json.Unmarshal(entry.Resource, &sd); err != nil {
			l.log.Warn().Err(err).Msg("skipping unparseable bundle entry")
			continue
		}
		if err := l.LoadStructureDefinition(&sd); err != nil {
			l.log.Warn().Err(err).Msg("skipping unconvertible bundle entry")
			continue
		}
		count++
	}
	return count, nil
}

// LoadFromFile loads StructureDefinitions from a JSON file.
func (l *Loader) LoadFromFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	count, err := l.LoadFromJSON(data)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", path, err)
	}
	return count, nil
}

// LoadFromDirectory loads all StructureDefinition-*.json files from a
// directory. Files that fail to load are skipped.
func (l *Loader) LoadFromDirectory(dirPath string) (int, error) {
	files, err := filepath.Glob(filepath.Join(dirPath, "StructureDefinition-*.json"))
	if err != nil {
		return 0, fmt.Errorf("glob %s: %w", dirPath, err)
	}

	total := 0
	for _, file := range files {
		count, err := l.LoadFromFile(file)
		if err != nil {
			l.log.Warn().Err(err).Str("file", file).Msg("skipping file")
			continue
		}
		total += count
	}
	return total, nil
}

// LoadAllFromDirectory loads every .json file under a directory tree.
// Files that fail to load are skipped.
func (l *Loader) LoadAllFromDirectory(dirPath string) (int, error) {
	total := 0
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		count, err := l.LoadFromFile(path)
		if err != nil {
			l.log.Debug().Err(err).Str("file", path).Msg("skipping file")
			return nil
		}
		total += count
		return nil
	})
	return total, err
}

// Count returns the number of loaded type schemas.
func (l *Loader) Count() int {
	return l.registry.Len()
}

// Verify interface compliance.
var _ schema.Provider = (*Loader)(nil)
