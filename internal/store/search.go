package store

import (
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/models"
)

// FilterByName keeps entries whose name contains query, ignoring case.
// Order is preserved. A blank query returns entries unchanged.
func FilterByName(entries []models.FileEntry, query string) []models.FileEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return entries
	}

	out := make([]models.FileEntry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Name), q) {
			out = append(out, e)
		}
	}
	return out
}
