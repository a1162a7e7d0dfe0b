package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/recognizer"
	"resume-parser-go/internal/types"
)

func TestNewRecognizer(t *testing.T) {
	ctx := context.Background()

	r, err := NewRecognizer(ctx, config.RecognizerConfig{Backend: config.RecognizerRule}, nil)
	require.NoError(t, err)
	assert.IsType(t, &recognizer.RuleBasedRecognizer{}, r)

	_, err = NewRecognizer(ctx, config.RecognizerConfig{Backend: config.RecognizerQwen}, nil)
	assert.Error(t, err, "缺少 API Key")

	r, err = NewRecognizer(ctx, config.RecognizerConfig{
		Backend: config.RecognizerQwen,
		APIKey:  "sk-test",
		Model:   "qwen-plus",
		APIURL:  "http://127.0.0.1:1/v1/chat/completions",
		QPM:     30,
		Timeout: "5s",
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &recognizer.LLMRecognizer{}, r)

	_, err = NewRecognizer(ctx, config.RecognizerConfig{Backend: "spacy", APIKey: "x"}, nil)
	assert.Error(t, err)
}

func TestScoringConfigFrom(t *testing.T) {
	c := config.DefaultConfig().Scoring
	c.SectionWeights["projects"] = 0.25
	c.MethodReliability["fallback-heuristic"] = 0.2

	out := ScoringConfigFrom(c)
	assert.Equal(t, 0.25, out.SectionWeights[types.SectionProjects])
	assert.Equal(t, 0.2, out.MethodReliability[types.MethodFallback])
	assert.Equal(t, 0.9, out.MethodReliability[types.MethodRuleBased])
	assert.Equal(t, c.CompletenessWeight, out.CompletenessWeight)
	assert.NotEmpty(t, out.RequiredFields)
}

func TestSegmenterConfigFrom(t *testing.T) {
	out := SegmenterConfigFrom(config.ScoringConfig{PartialHeadingConfidence: 0.5})
	assert.Equal(t, 0.5, out.PartialMatchConfidence)
	assert.Equal(t, 1.0, out.ExactMatchConfidence)
	assert.Equal(t, 0.8, out.LeadingConfidence)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	store := newFakeCacheStore()
	p, err := NewFromConfig(context.Background(), cfg, store, nil, nil)
	require.NoError(t, err)

	out, err := p.ProcessDetailed(context.Background(), scenarioDOCX())
	require.NoError(t, err)
	assert.False(t, out.CacheHit)
	assert.Equal(t, 1, store.puts)

	assert.Equal(t, 30*time.Second, ProcessingTimeout(cfg))
}
