package changeset

import (
	"os"
	"regexp"
	"strings"
)

// cssRuleHeaderRe matches a top-level selector line, capturing the selector
// text up to the opening brace.
var cssRuleHeaderRe = regexp.MustCompile(`(?m)^([^{}\n]+?)\s*\{`)

// upsertCSSSelector locates the first top-level rule with exactly the
// given selector and replaces the whole rule, selector through its
// matching `}`, with content; if absent, appends the new rule. No-op if
// byte-identical.
func upsertCSSSelector(path, selector, content string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		data = []byte{}
	}
	src := string(data)

	start, end, found := findCSSRuleRegion(src, selector)
	if !found {
		if len(src) > 0 && !strings.HasSuffix(src, "\n") {
			src += "\n"
		}
		src += content
		if !strings.HasSuffix(src, "\n") {
			src += "\n"
		}
		return writeFile(path, []byte(src))
	}

	existing := src[start:end]
	if existing == content {
		return nil
	}
	newSrc := src[:start] + content + src[end:]
	return writeFile(path, []byte(newSrc))
}

// findCSSRuleRegion returns the byte range [start, end) of the full rule
// (selector through matching closing brace) for the first top-level match
// of the given selector.
func findCSSRuleRegion(src, selector string) (int, int, bool) {
	matches := cssRuleHeaderRe.FindAllStringSubmatchIndex(src, -1)
	for _, m := range matches {
		candidate := strings.TrimSpace(src[m[2]:m[3]])
		if candidate != strings.TrimSpace(selector) {
			continue
		}
		openBrace := m[1] - 1
		closeBrace := matchBraceCSS(src, openBrace)
		if closeBrace < 0 {
			continue
		}
		return m[0], closeBrace + 1, true
	}
	return 0, 0, false
}

func matchBraceCSS(src string, openIdx int) int {
	depth := 0
	for i := openIdx; i < len(src); i++ {
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
