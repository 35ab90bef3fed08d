package entities

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Interactions is the normalized drug interaction payload of a medicine.
type Interactions struct {
	Drugs   []string `json:"drugs"`
	Brands  []string `json:"brands"`
	Effects []string `json:"effects"`
}

// ParseInteractions decodes a {"drug":[],"brand":[],"effect":[]} payload.
// The payload may also arrive double encoded as a JSON string.
func ParseInteractions(raw string) (Interactions, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Interactions{}, nil
	}

	if strings.HasPrefix(raw, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(raw), &inner); err != nil {
			return Interactions{}, fmt.Errorf("invalid interaction payload: %w", err)
		}
		raw = inner
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Interactions{}, fmt.Errorf("invalid interaction payload: %w", err)
	}

	return Interactions{
		Drugs:   stringList(payload["drug"]),
		Brands:  stringList(payload["brand"]),
		Effects: stringList(payload["effect"]),
	}, nil
}

// stringList decodes a JSON array of strings; anything else is treated as absent.
func stringList(field json.RawMessage) []string {
	if len(field) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(field, &list); err != nil {
		return nil
	}
	return list
}
