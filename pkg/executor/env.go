package executor

import (
	"os"
	"sort"
	"strings"
)

// strippedEnvPrefixes lists host variables that never leak into agent processes.
var strippedEnvPrefixes = []string{"ANTHROPIC_"}

// BuildCommandEnv builds command environment variables from the host environment
// and applies overrides from left to right. An override with an empty value
// removes the variable.
func BuildCommandEnv(overrides ...map[string]string) []string {
	envMap := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" || hasStrippedPrefix(key) {
			continue
		}
		envMap[key] = value
	}

	for _, override := range overrides {
		for key, value := range override {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if value == "" {
				delete(envMap, key)
				continue
			}
			envMap[key] = value
		}
	}

	keys := make([]string, 0, len(envMap))
	for key := range envMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]string, 0, len(keys))
	for _, key := range keys {
		result = append(result, key+"="+envMap[key])
	}
	return result
}

func hasStrippedPrefix(key string) bool {
	for _, prefix := range strippedEnvPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
