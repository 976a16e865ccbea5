package superpower

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/tenx-dev/core/internal/types"
)

var stepHeadingRe = regexp.MustCompile(`^Step\s+(\d+):\s*(.+?)(?:\s*\(model:\s*([a-zA-Z]+)\))?\s*$`)
var toolsMarkerRe = regexp.MustCompile(`<!--\s*tools:\s*([^>]*?)\s*-->`)

// parseSteps locates every `## Step N: <name> (model: <tier>)` heading in
// body using goldmark's AST (rather than a hand-rolled line scanner) and
// slices the source between consecutive headings to produce each step's
// prompt template.
func parseSteps(body []byte) ([]types.SuperpowerStep, error) {
	md := goldmark.New()
	reader := text.NewReader(body)
	doc := md.Parser().Parse(reader)

	type headingMark struct {
		offset int
		number int
		name   string
		tier   types.ModelTier
	}
	var marks []headingMark

	err := gast.Walk(doc, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		h, ok := n.(*gast.Heading)
		if !ok || h.Level != 2 {
			return gast.WalkContinue, nil
		}
		title := string(h.Text(body))
		m := stepHeadingRe.FindStringSubmatch(strings.TrimSpace(title))
		if m == nil {
			return gast.WalkContinue, nil
		}
		var num int
		fmt.Sscanf(m[1], "%d", &num)
		tier := types.TierFast
		if m[3] != "" {
			tier = types.ModelTier(strings.ToLower(m[3]))
		}
		lines := h.Lines()
		offset := len(body)
		if lines.Len() > 0 {
			offset = lines.At(0).Start
		}
		marks = append(marks, headingMark{offset: offset, number: num, name: m[2], tier: tier})
		return gast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if len(marks) == 0 {
		return nil, nil
	}

	// headingMark.offset points at the heading's own text; back up to the
	// start of that line (covering the leading "## ") so the next step's
	// slice doesn't include the previous heading line.
	lineStart := func(pos int) int {
		for pos > 0 && body[pos-1] != '\n' {
			pos--
		}
		return pos
	}
	nextLine := func(pos int) int {
		for pos < len(body) && body[pos] != '\n' {
			pos++
		}
		if pos < len(body) {
			pos++
		}
		return pos
	}

	steps := make([]types.SuperpowerStep, 0, len(marks))
	for i, m := range marks {
		bodyStart := nextLine(lineStart(m.offset))
		bodyEnd := len(body)
		if i+1 < len(marks) {
			bodyEnd = lineStart(marks[i+1].offset)
		}
		raw := strings.TrimSpace(string(body[bodyStart:bodyEnd]))

		toolList := parseToolsMarker(raw)
		raw = toolsMarkerRe.ReplaceAllString(raw, "")
		raw = strings.TrimSpace(raw)

		steps = append(steps, types.SuperpowerStep{
			Number:         m.number,
			Name:           m.name,
			ModelTier:      m.tier,
			PromptTemplate: raw,
			UsesPrevious:   strings.Contains(raw, "{{previous}}") || strings.Contains(raw, "{{output}}"),
			Multimodal:     strings.Contains(raw, "{{image}}") || strings.Contains(raw, "{{images}}"),
			Tools:          toolList,
		})
	}
	return steps, nil
}

func parseToolsMarker(raw string) []string {
	m := toolsMarkerRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	var tools []string
	for _, t := range strings.Split(m[1], ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tools = append(tools, t)
		}
	}
	return tools
}
