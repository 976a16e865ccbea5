// Package superpower implements the Superpower Engine from spec §4.7:
// loading markdown-with-frontmatter workflow documents and executing their
// ordered steps against a Router.
package superpower

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Trigger     string `yaml:"trigger"`
	Multimodal  bool   `yaml:"multimodal"`
}

// splitFrontmatter separates a leading `---\n...\n---` YAML block from the
// markdown body, mirroring the reference skills.splitFrontmatter parser.
func splitFrontmatter(data []byte) (front []byte, body []byte, err error) {
	const marker = "---"
	trimmed := bytes.TrimLeft(data, "\r\n\t ")
	if !bytes.HasPrefix(trimmed, []byte(marker)) {
		return nil, data, nil
	}
	rest := trimmed[len(marker):]
	rest = bytes.TrimLeft(rest, "\r")
	if len(rest) > 0 && rest[0] == '\n' {
		rest = rest[1:]
	}

	idx := bytes.Index(rest, []byte("\n"+marker))
	if idx < 0 {
		return nil, nil, fmt.Errorf("unterminated frontmatter block")
	}
	front = rest[:idx]
	remainder := rest[idx+len("\n"+marker):]
	remainder = bytes.TrimLeft(remainder, "\r")
	if len(remainder) > 0 && remainder[0] == '\n' {
		remainder = remainder[1:]
	}
	return front, remainder, nil
}

func parseFrontmatter(data []byte) (frontmatter, []byte, error) {
	front, body, err := splitFrontmatter(data)
	if err != nil {
		return frontmatter{}, nil, err
	}
	var fm frontmatter
	if len(front) > 0 {
		if err := yaml.Unmarshal(front, &fm); err != nil {
			return frontmatter{}, nil, fmt.Errorf("invalid frontmatter: %w", err)
		}
	}
	return fm, body, nil
}
