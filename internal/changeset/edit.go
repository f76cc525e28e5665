package changeset

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// applyEdits applies each {find, replace} pair in order: exact string
// replacement first, falling back to regex if no literal match exists. If
// neither matches, the whole operation fails.
func applyEdits(path string, edits []Edit) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read target file: %w", err)
	}
	src := string(data)

	for _, e := range edits {
		if strings.Contains(src, e.Find) {
			src = strings.Replace(src, e.Find, e.Replace, 1)
			continue
		}
		re, err := regexp.Compile(e.Find)
		if err != nil {
			return fmt.Errorf("edit find %q matches zero sites (not a literal or valid regex)", e.Find)
		}
		if !re.MatchString(src) {
			return fmt.Errorf("edit find %q matches zero sites", e.Find)
		}
		src = re.ReplaceAllString(src, e.Replace)
	}

	return writeFile(path, []byte(src))
}
