package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Labels maps a class index to its animal name.
type Labels map[int]string

// LoadLabels reads a JSON object of name → class index and inverts it.
func LoadLabels(path string) (Labels, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return ParseLabels(raw)
}

// ParseLabels inverts a JSON name → index object. Two names sharing an
// index is an error.
func ParseLabels(raw []byte) (Labels, error) {
	var byName map[string]int
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("failed to parse labels: %w", err)
	}
	if len(byName) == 0 {
		return nil, fmt.Errorf("labels file is empty")
	}

	labels := make(Labels, len(byName))
	for name, idx := range byName {
		if idx < 0 {
			return nil, fmt.Errorf("label %q has negative index %d", name, idx)
		}
		if prev, ok := labels[idx]; ok {
			return nil, fmt.Errorf("labels %q and %q share index %d", prev, name, idx)
		}
		labels[idx] = name
	}
	return labels, nil
}

// Name returns the label for idx, or a placeholder naming the index.
func (l Labels) Name(idx int) string {
	if name, ok := l[idx]; ok {
		return name
	}
	return fmt.Sprintf("Unknown class ID: %d", idx)
}
