package router

import (
	"regexp"
	"strings"

	"github.com/tenx-dev/core/internal/types"
)

// complexityPatterns and simpleQueryPatterns are the keyword lists from spec
// §4.2, grounded on the reference's ai.ModelSelector.classifyTask keyword
// matching (simplified to the two-tier vocabulary the spec fixes).
var complexityPatterns = compileAny(
	"implement", "refactor", "debug", "analyze", "design", "architecture", "migrate", "complex", "multi-step",
)

var simpleQueryPatterns = compileAny(
	"what is", "how do", "explain", "define", "list", "show",
)

func compileAny(words ...string) *regexp.Regexp {
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)(` + strings.Join(escaped, "|") + `)`)
}

const shortQueryThreshold = 80

// Classify is a pure function of userText and defaultTier (spec §8
// Round-trip & idempotence: "Router.classify is a pure function of its
// input string and default tier").
func Classify(userText string, defaultTier types.ModelTier) types.ModelTier {
	if complexityPatterns.MatchString(userText) {
		return types.TierSmart
	}
	isSimple := simpleQueryPatterns.MatchString(userText)
	short := len(userText) <= shortQueryThreshold
	switch {
	case isSimple && short:
		return types.TierSuperfast
	case isSimple && !short:
		return types.TierFast
	default:
		return defaultTier
	}
}
