package sdk

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Format selects the text encoding of an Output.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// EncodeOutput renders out as text. YAML is the compact default handed to
// tool callers.
func EncodeOutput(out Output, format Format) (string, error) {
	switch format {
	case "", FormatYAML:
		data, err := yaml.Marshal(out)
		if err != nil {
			return "", fmt.Errorf("failed to serialize output: %w", err)
		}
		return string(data), nil
	case FormatJSON:
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to serialize output: %w", err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%w: unknown output format %q", ErrInvalidArgs, format)
}
