package mcpserver

import "strings"

const (
	defaultPageLimit = 50
	maxPageLimit     = 500

	defaultStartingChips = 1000
	defaultSmallBlind    = 10
	defaultBigBlind      = 20
	defaultMaxHands      = 20
)

func clampPagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// splitModelNames parses the comma-separated model_names argument.
// Blank entries are dropped so "a, ,b" yields two names.
func splitModelNames(raw string) []string {
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}
