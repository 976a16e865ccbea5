package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tenx-dev/core/internal/types"
)

func TestClassify_ComplexityKeywordWinsSmart(t *testing.T) {
	assert.Equal(t, types.TierSmart, Classify("please implement a new feature for auth", types.TierFast))
}

func TestClassify_ShortSimpleQueryIsSuperfast(t *testing.T) {
	assert.Equal(t, types.TierSuperfast, Classify("what is a goroutine?", types.TierFast))
}

func TestClassify_LongSimpleQueryIsFast(t *testing.T) {
	long := "what is " + strings.Repeat("x", 100)
	assert.Equal(t, types.TierFast, Classify(long, types.TierFast))
}

func TestClassify_FallsBackToDefaultTier(t *testing.T) {
	assert.Equal(t, types.TierSmart, Classify("good morning", types.TierSmart))
}

func TestClassify_ComplexityBeatsSimpleEvenWhenShort(t *testing.T) {
	assert.Equal(t, types.TierSmart, Classify("debug this", types.TierFast))
}

func TestClassify_IsPureAndDeterministic(t *testing.T) {
	a := Classify("refactor the session manager", types.TierFast)
	b := Classify("refactor the session manager", types.TierFast)
	assert.Equal(t, a, b)
}
