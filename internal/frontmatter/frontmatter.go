package frontmatter

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Separator delimits the front matter header from the body
const Separator = "---"

// Split separates a leading front matter header from the body. The header
// must start on the first line with a separator line and end with another
// separator line. ok is false when text has no header.
func Split(text string) (header, body string, ok bool) {
	text = strings.TrimPrefix(text, "\ufeff")
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	first, rest, found := strings.Cut(normalized, "\n")
	if !found || strings.TrimRight(first, " \t") != Separator {
		return "", text, false
	}

	lines := strings.Split(rest, "\n")
	for i, line := range lines {
		if strings.TrimRight(line, " \t") != Separator {
			continue
		}
		header = strings.Join(lines[:i], "\n")
		body = strings.Join(lines[i+1:], "\n")
		return header, body, true
	}

	return "", text, false
}

// Parse decodes the front matter of text into out and returns the body.
// When text has no header, out is left untouched, found is false and the
// whole text is returned as body.
func Parse(text string, out interface{}) (body string, found bool, err error) {
	header, body, ok := Split(text)
	if !ok {
		return text, false, nil
	}

	if strings.TrimSpace(header) == "" {
		return body, true, nil
	}

	if err := yaml.Unmarshal([]byte(header), out); err != nil {
		return text, false, fmt.Errorf("failed to parse front matter: %w", err)
	}

	return body, true, nil
}

// Render serializes v as a YAML header followed by body.
func Render(v interface{}, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(Separator + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}

	buf.WriteString(Separator + "\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}
