package fieldpath

import (
	"strconv"
	"strings"
)

// ParseDotted parses the dotted form produced by Path.String. Purely numeric
// tokens become index segments and "*" becomes the wildcard.
func ParseDotted(raw string) Path {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Path{}
	}
	return tokens(strings.Split(trimmed, "."), false)
}

// ParsePointer parses an RFC 6901 JSON Pointer. A leading "#" fragment marker
// is accepted. Numeric tokens become index segments.
func ParsePointer(raw string) Path {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "#")
	if trimmed == "" || trimmed == "/" {
		return Path{}
	}
	trimmed = strings.TrimPrefix(trimmed, "/")
	return tokens(strings.Split(trimmed, "/"), true)
}

// Parse accepts the loose path spellings servers and validators emit:
// JSON Pointers (`/a/0/b`, `#/a/0/b`), JSONPath-ish (`$.a[0].b`), bracket
// indices (`a[0].b`) and dotted paths (`a.0.b`).
func Parse(raw string) Path {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return Path{}
	}
	if strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, "#/") {
		return ParsePointer(clean)
	}

	clean = strings.TrimPrefix(clean, "$")
	replacer := strings.NewReplacer("[", ".", "]", "")
	clean = replacer.Replace(clean)
	clean = strings.Trim(clean, ".")
	if clean == "" {
		return Path{}
	}

	parts := strings.Split(clean, ".")
	kept := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return tokens(kept, false)
}

func tokens(parts []string, pointer bool) Path {
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		if pointer {
			part = strings.ReplaceAll(part, "~1", "/")
			part = strings.ReplaceAll(part, "~0", "~")
		}
		out = append(out, token(part))
	}
	return out
}

func token(part string) Segment {
	if part == "*" {
		return Any
	}
	if isIndex(part) {
		if idx, err := strconv.Atoi(part); err == nil {
			return Index(idx)
		}
	}
	return Key(part)
}

func isIndex(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FromTokens builds a path from already split, unescaped tokens such as the
// instance locations validators report. Numeric tokens become indices.
func FromTokens(parts []string) Path {
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		out = append(out, token(part))
	}
	return out
}
