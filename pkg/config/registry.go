package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const customPrefix = "custom:"

// FactoryDefaultModel describes runs that let droid pick its own model.
const FactoryDefaultModel = "Factory default model"

// ModelEntry is one custom model of the Factory registry.
type ModelEntry struct {
	DisplayName string `mapstructure:"model_display_name" json:"model_display_name"`
	Model       string `mapstructure:"model" json:"model"`
	Provider    string `mapstructure:"provider" json:"provider,omitempty"`
}

// Ref returns the custom:<slug>-<index> reference droid accepts for the
// entry at index.
func (m ModelEntry) Ref(index int) string {
	return fmt.Sprintf("%s%s-%d", customPrefix, strings.ReplaceAll(m.DisplayName, " ", "-"), index)
}

// Describe formats the entry as "<display> [<provider>] (<model>)".
func (m ModelEntry) Describe() string {
	return fmt.Sprintf("%s [%s] (%s)", m.DisplayName, m.Provider, m.Model)
}

// Registry is the read-only list of custom models from ~/.factory/config.json.
type Registry struct {
	models []ModelEntry
}

// NewRegistry builds a registry from entries in droid's own order.
func NewRegistry(entries ...ModelEntry) *Registry {
	models := make([]ModelEntry, len(entries))
	copy(models, entries)
	return &Registry{models: models}
}

// RegistryPath returns ~/.factory/config.json, or "" when no home directory
// can be determined.
func RegistryPath() string {
	var home string
	if runtime.GOOS == "windows" {
		home = os.Getenv("USERPROFILE")
	} else {
		home = os.Getenv("HOME")
	}
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".factory", "config.json")
}

// LoadRegistry reads the Factory config at path. Missing or malformed files
// yield an empty registry.
func LoadRegistry(path string) *Registry {
	var doc struct {
		CustomModels []ModelEntry `mapstructure:"custom_models"`
	}
	if path != "" {
		if _, err := readJSON(path, &doc); err != nil {
			logger.Errorf("failed to load Factory config %s: %v", path, err)
			return NewRegistry()
		}
	}
	return NewRegistry(doc.CustomModels...)
}

// Len returns the number of custom models.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.models)
}

// Entries returns a copy of the custom models.
func (r *Registry) Entries() []ModelEntry {
	if r == nil {
		return nil
	}
	out := make([]ModelEntry, len(r.models))
	copy(out, r.models)
	return out
}

// List formats every model as "<display> (custom:<slug>-<index>)".
func (r *Registry) List() []string {
	out := make([]string, 0, r.Len())
	for i, m := range r.Entries() {
		out = append(out, fmt.Sprintf("%s (%s)", m.DisplayName, m.Ref(i)))
	}
	return out
}

// DefaultRef picks the model used when a request names none: the first GPT
// model, else the first entry, else "" to let droid decide.
func (r *Registry) DefaultRef() string {
	entries := r.Entries()
	for i, m := range entries {
		if strings.Contains(strings.ToLower(m.DisplayName), "gpt") ||
			strings.Contains(strings.ToLower(m.Model), "gpt") {
			return m.Ref(i)
		}
	}
	if len(entries) > 0 {
		return entries[0].Ref(0)
	}
	return ""
}

// Resolve looks up a custom:<slug>-<index> reference. The index is taken
// after the last hyphen and the slug is not verified, so a display name that
// itself ends in "-<digits>" is ambiguous.
func (r *Registry) Resolve(ref string) (ModelEntry, bool) {
	rest, ok := strings.CutPrefix(ref, customPrefix)
	if !ok {
		return ModelEntry{}, false
	}
	i := strings.LastIndex(rest, "-")
	if i < 0 {
		return ModelEntry{}, false
	}
	idx, err := strconv.ParseUint(rest[i+1:], 10, 64)
	if err != nil || idx >= uint64(r.Len()) {
		return ModelEntry{}, false
	}
	return r.models[idx], true
}

// Describe returns a human-readable descriptor for ref and an optional
// warning for the caller.
func (r *Registry) Describe(ref string) (info string, warning string) {
	if ref == "" {
		if r.Len() > 0 {
			return r.models[0].Describe(), ""
		}
		return FactoryDefaultModel, "No custom models configured. Using Factory default model (requires FACTORY_API_KEY)."
	}

	if !strings.HasPrefix(ref, customPrefix) {
		return "Model: " + ref, ""
	}

	if m, ok := r.Resolve(ref); ok {
		return m.Describe(), ""
	}

	warning = fmt.Sprintf("Invalid custom model reference: '%s'. Using first available model.", ref)
	if r.Len() > 0 {
		info = r.models[0].Describe()
		return info, warning + "\nFallback to: " + info
	}
	return FactoryDefaultModel, warning
}
