package changeset

import (
	"os"
	"regexp"
	"strings"
)

// declarationPatterns recognizes the supported JS function-declaration
// forms, in priority order. Each has exactly one capture group: the name.
var declarationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bfunction\s+([A-Za-z0-9_$]+)\s*\(`),
	regexp.MustCompile(`\bconst\s+([A-Za-z0-9_$]+)\s*=`),
	regexp.MustCompile(`\blet\s+([A-Za-z0-9_$]+)\s*=`),
	regexp.MustCompile(`\bvar\s+([A-Za-z0-9_$]+)\s*=`),
	regexp.MustCompile(`(?m)^\s*([A-Za-z0-9_$]+)\s*\([^)]*\)\s*\{`), // class-method signature
}

// upsertFunctionJS locates a function definition by name across the
// supported declaration forms and replaces its body region (declaration
// through the matching closing brace, tracked by balanced-brace scanning
// that respects string and comment contexts). If the function is not
// found, the new content is appended. No-op if the existing definition is
// byte-identical to the new one.
func upsertFunctionJS(path, name, content string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		data = []byte{}
	}
	src := string(data)

	start, end, found := findFunctionRegion(src, name)
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

// findFunctionRegion finds the declaration of `name` via the supported
// patterns and returns the byte range [start, end) from the declaration
// keyword through the matching closing brace.
func findFunctionRegion(src, name string) (int, int, bool) {
	for _, pat := range declarationPatterns {
		locs := pat.FindAllStringSubmatchIndex(src, -1)
		for _, loc := range locs {
			matchedName := src[loc[2]:loc[3]]
			if matchedName != name {
				continue
			}
			declStart := loc[0]
			braceIdx := strings.IndexByte(src[loc[1]:], '{')
			if braceIdx < 0 {
				continue
			}
			openBrace := loc[1] + braceIdx
			closeBrace := matchBrace(src, openBrace)
			if closeBrace < 0 {
				continue
			}
			return declStart, closeBrace + 1, true
		}
	}
	return 0, 0, false
}

// matchBrace returns the index of the brace matching the '{' at openIdx,
// scanning forward while respecting string and line/block comment contexts
// so that braces inside string literals or comments are not counted.
func matchBrace(src string, openIdx int) int {
	depth := 0
	i := openIdx
	n := len(src)
	for i < n {
		c := src[i]
		switch {
		case c == '{':
			depth++
			i++
		case c == '}':
			depth--
			i++
			if depth == 0 {
				return i - 1
			}
		case c == '"' || c == '\'' || c == '`':
			i = skipString(src, i, c)
		case c == '/' && i+1 < n && src[i+1] == '/':
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && src[i+1] == '*':
			i += 2
			for i+1 < n && !(src[i] == '*' && src[i+1] == '/') {
				i++
			}
			i += 2
		default:
			i++
		}
	}
	return -1
}

func skipString(src string, i int, quote byte) int {
	i++
	n := len(src)
	for i < n {
		if src[i] == '\\' {
			i += 2
			continue
		}
		if src[i] == quote {
			return i + 1
		}
		i++
	}
	return i
}
