package issues

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelim = "---"

// render produces the file content: YAML frontmatter then the markdown body.
func render(fm *Frontmatter, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(frontmatterDelim + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	buf.WriteString(frontmatterDelim + "\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// parse splits an issue file into its validated frontmatter and body.
func parse(data []byte) (*Frontmatter, string, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, frontmatterDelim+"\n") {
		return nil, "", fmt.Errorf("%w: missing frontmatter", ErrInvalidIssue)
	}
	rest := text[len(frontmatterDelim)+1:]

	var header, body string
	switch {
	case strings.HasPrefix(rest, frontmatterDelim+"\n"):
		body = rest[len(frontmatterDelim)+1:]
	default:
		end := strings.Index(rest, "\n"+frontmatterDelim+"\n")
		if end < 0 {
			if !strings.HasSuffix(rest, "\n"+frontmatterDelim) {
				return nil, "", fmt.Errorf("%w: unterminated frontmatter", ErrInvalidIssue)
			}
			end = len(rest) - len(frontmatterDelim) - 1
			header = rest[:end]
		} else {
			header = rest[:end]
			body = rest[end+len(frontmatterDelim)+2:]
		}
	}

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return nil, "", fmt.Errorf("%w: frontmatter: %v", ErrInvalidIssue, err)
	}
	if err := fm.validate(); err != nil {
		return nil, "", err
	}
	return &fm, body, nil
}

// body lays out the issue sections in their fixed order.
func body(details, agentPrompt, ticket string) string {
	sections := []string{"## Details", "", details, "", "## Agent Prompt", "", agentPrompt}
	if ticket != "" {
		sections = append(sections, "", "## Ticket", "", ticket)
	}
	return strings.Join(sections, "\n")
}
