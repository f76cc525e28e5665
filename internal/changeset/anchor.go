package changeset

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// insertRelativeToAnchor inserts content immediately after (or before) the
// first occurrence of anchor, which is a literal substring by default or a
// regex when useRegex is set. Re-application is a no-op when content
// already sits at that position. It is an error for the anchor to be
// absent — the operation never silently appends.
func insertRelativeToAnchor(path, anchor, content string, useRegex, after bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read target file: %w", err)
	}
	src := string(data)

	var idx, matchLen int
	if useRegex {
		re, err := regexp.Compile(anchor)
		if err != nil {
			return fmt.Errorf("invalid anchor regex: %w", err)
		}
		loc := re.FindStringIndex(src)
		if loc == nil {
			return fmt.Errorf("anchor not found")
		}
		idx, matchLen = loc[0], loc[1]-loc[0]
	} else {
		i := strings.Index(src, anchor)
		if i < 0 {
			return fmt.Errorf("anchor not found")
		}
		idx, matchLen = i, len(anchor)
	}

	var insertAt int
	if after {
		insertAt = idx + matchLen
	} else {
		insertAt = idx
	}

	if after && strings.HasPrefix(src[insertAt:], content) {
		return nil
	}
	if !after && strings.HasSuffix(src[:insertAt], content) {
		return nil
	}

	newSrc := src[:insertAt] + content + src[insertAt:]
	if newSrc == src {
		return nil
	}
	return writeFile(path, []byte(newSrc))
}

// appendIfMissing appends content to path iff signature is absent after
// normalizing line endings.
func appendIfMissing(path, signature, content string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		data = []byte{}
	}
	src := normalizeLineEndings(string(data))
	if strings.Contains(src, normalizeLineEndings(signature)) {
		return nil
	}
	if len(src) > 0 && !strings.HasSuffix(src, "\n") {
		src += "\n"
	}
	src += content
	return writeFile(path, []byte(src))
}

func normalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
