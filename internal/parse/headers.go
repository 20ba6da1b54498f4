package parse

import (
	"fmt"
	"strings"
)

// Headers parses a comma separated "Key=Value" list into a header map.
// Entries without a key or a value are skipped and reported in the returned
// error, which is informational: the map always holds every valid entry.
func Headers(raw string) (map[string]string, error) {
	headers := make(map[string]string)
	var bad []string

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, value, ok := strings.Cut(entry, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			bad = append(bad, entry)
			continue
		}
		headers[key] = value
	}

	if len(bad) > 0 {
		return headers, fmt.Errorf("malformed header entries: %q", bad)
	}
	return headers, nil
}
