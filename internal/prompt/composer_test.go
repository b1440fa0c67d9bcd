package prompt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docent-service/internal/prompt"
)

func TestCompose_NoTags(t *testing.T) {
	c := prompt.NewComposer()

	got := c.Compose("a red car", "", nil, nil)

	assert.Equal(t, "a red car", got.Positive)
	assert.Equal(t, prompt.BaselineNegative, got.Negative)
	assert.Empty(t, got.Unknown)
}

func TestCompose_UnknownPositiveTagDropped(t *testing.T) {
	c := prompt.NewComposer()

	got := c.Compose("a red car", "", []string{"unknown_tag"}, nil)

	assert.Equal(t, "a red car", got.Positive)
	assert.Equal(t, prompt.BaselineNegative, got.Negative)
	assert.Equal(t, []string{"unknown_tag"}, got.Unknown)
}

func TestCompose_PositiveKeepsSelectionOrder(t *testing.T) {
	c := prompt.NewComposerWith(
		prompt.Vocabulary{"a": "alpha", "b": "beta"},
		prompt.Vocabulary{},
		"base",
	)

	got := c.Compose("text", "", []string{"b", "zzz", "a"}, nil)

	assert.Equal(t, "text, beta, alpha", got.Positive)
	assert.Equal(t, []string{"zzz"}, got.Unknown)
}

func TestCompose_EmptyUserTextHasNoLeadingSeparator(t *testing.T) {
	c := prompt.NewComposerWith(prompt.Vocabulary{"a": "alpha"}, nil, "base")

	got := c.Compose("  ", "", []string{"a"}, nil)

	assert.Equal(t, "alpha", got.Positive)
}

func TestCompose_NegativeBaselineFirstAndDeduplicated(t *testing.T) {
	c := prompt.NewComposerWith(
		nil,
		prompt.Vocabulary{"x": "ex", "y": "why", "same": "base"},
		"base",
	)

	got := c.Compose("text", "user neg", nil, []string{"x", "y", "x", "same", "nope"})

	assert.Equal(t, "base, user neg, ex, why", got.Negative)
	assert.Equal(t, []string{"nope"}, got.Unknown)
}

func TestCompose_Deterministic(t *testing.T) {
	c := prompt.NewComposer()
	pos := []string{"impressionist", "soft_light"}
	neg := []string{"bad_anatomy", "text_watermark"}

	first := c.Compose("a harbor at dawn", "", pos, neg)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Compose("a harbor at dawn", "", pos, neg))
	}
}

func TestSplitTags(t *testing.T) {
	got := prompt.SplitTags([]string{"a, b", "c", " ", "d,,e"})

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
}
