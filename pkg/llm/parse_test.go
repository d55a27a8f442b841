package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = MustSchema([]byte(`{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["index"],
		"properties": {"index": {"type": "integer"}}
	}
}`))

type item struct {
	Index int `json:"index"`
}

func TestStripCodeFences(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `[1]`, StripCodeFences("```json\n[1]\n```"))
	assert.Equal(t, `[1]`, StripCodeFences("```\n[1]```"))
	assert.Equal(t, `[1]`, StripCodeFences("  [1]  "))
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	data, err := ExtractJSON(`[{"index": 0}]`)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"index": 0}]`, string(data))

	data, err = ExtractJSON("Sure! Here you go:\n[{\"index\": 1}]\nHope this helps.")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"index": 1}]`, string(data))

	_, err = ExtractJSON("I cannot help with that.")
	require.ErrorIs(t, err, ErrMalformedReply)
}

func TestSchema_Decode(t *testing.T) {
	t.Parallel()

	var items []item

	require.NoError(t, testSchema.Decode("```json\n[{\"index\": 2}, {\"index\": 0}]\n```", &items))
	assert.Equal(t, []item{{Index: 2}, {Index: 0}}, items)
}

func TestSchema_Decode_Invalid(t *testing.T) {
	t.Parallel()

	var items []item

	require.ErrorIs(t, testSchema.Decode(`[{"idx": 2}]`, &items), ErrMalformedReply)
	require.ErrorIs(t, testSchema.Decode(`{"index": 2}`, &items), ErrMalformedReply)
	require.ErrorIs(t, testSchema.Decode(`nothing`, &items), ErrMalformedReply)
}

func TestMustSchema_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustSchema([]byte(`{"type": 12}`)) })
}
