package notion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// idInURL matches the trailing 32-hex id of a Notion page URL
var idInURL = regexp.MustCompile(`([0-9a-fA-F]{32})(?:[?#].*)?$`)

// NormalizeID accepts a dashed id, a compact 32-hex id or a page URL and
// returns the dashed form.
func NormalizeID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty notion id")
	}
	if u, err := uuid.Parse(s); err == nil {
		return u.String(), nil
	}
	if m := idInURL.FindStringSubmatch(s); m != nil {
		u, err := uuid.Parse(m[1])
		if err == nil {
			return u.String(), nil
		}
	}
	return "", fmt.Errorf("invalid notion id %q", s)
}

// CompactID strips the dashes from an id; section ids in the content store
// use this form.
func CompactID(id string) string {
	return strings.ToLower(strings.ReplaceAll(id, "-", ""))
}
