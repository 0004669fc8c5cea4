// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON parses the first JSON object in a model reply into v. Markdown
// code fences and prose around the object are tolerated. Any failure wraps
// ErrOutputInvalid.
func DecodeJSON(reply string, v any) error {
	s := strings.TrimSpace(reply)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return fmt.Errorf("%w: no JSON object in reply", ErrOutputInvalid)
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputInvalid, err)
	}
	return nil
}
