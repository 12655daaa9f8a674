package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-ai-api/internal/domain/entity"
	apperrors "campaign-ai-api/pkg/errors"
)

func TestParseEnvelopeWithSurroundingText(t *testing.T) {
	out := "Sure, here you go:\n```json\n" +
		`{"suggestions":[{"title":"Mira","description":"smuggler","confidence":"High","payload":{"name":"Mira","goals":["escape"]}}]}` +
		"\n```\nAnything else?"

	got, invalid, err := ParseSuggestions(entity.SuggestionTypeCharacter, out)
	require.NoError(t, err)
	assert.Zero(t, invalid)
	require.Len(t, got, 1)
	assert.Equal(t, "Mira", got[0].Title)
	assert.Equal(t, entity.ConfidenceHigh, got[0].Confidence)

	p, ok := got[0].Payload.(*entity.CharacterPayload)
	require.True(t, ok)
	assert.Equal(t, []string{"escape"}, p.Goals)
}

func TestParseBareArrayAndFlattenedPayload(t *testing.T) {
	out := `[{"name":"Saltmarsh","region":"coast","confidence":0.5}]`

	got, _, err := ParseSuggestions(entity.SuggestionTypeLocation, out)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Saltmarsh", got[0].Title)
	assert.Equal(t, entity.ConfidenceMedium, got[0].Confidence)
	assert.Equal(t, "coast", got[0].Payload.(*entity.LocationPayload).Region)
}

func TestParseConfidenceForms(t *testing.T) {
	cases := map[string]entity.Confidence{
		`"low"`:    entity.ConfidenceLow,
		`"0.9"`:    entity.ConfidenceHigh,
		`0.39`:     entity.ConfidenceLow,
		`0.74`:     entity.ConfidenceMedium,
		`80`:       entity.ConfidenceHigh,
		`null`:     entity.ConfidenceLow,
		`"medium"`: entity.ConfidenceMedium,
	}
	for raw, want := range cases {
		got, err := parseConfidence([]byte(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := parseConfidence([]byte(`"certain"`))
	assert.Error(t, err)
	_, err = parseConfidence([]byte(`-1`))
	assert.Error(t, err)
}

func TestParseSkipsInvalidItems(t *testing.T) {
	out := `{"suggestions":[{"title":"no name","payload":{}},{"title":"Bram","payload":{"name":"Bram"}}]}`

	got, invalid, err := ParseSuggestions(entity.SuggestionTypeCharacter, out)
	require.NoError(t, err)
	assert.Equal(t, 1, invalid)
	require.Len(t, got, 1)
	assert.Equal(t, "Bram", got[0].Title)
}

func TestParseFailures(t *testing.T) {
	for name, out := range map[string]string{
		"empty":       "   ",
		"prose":       "I could not find any characters.",
		"all invalid": `{"suggestions":[{"payload":{"name":""}}]}`,
		"wrong shape": `{"suggestions":{"name":"x"}}`,
		"other key":   `{"characters":[{"name":"Mira","confidence":"high"}]}`,
	} {
		_, _, err := ParseSuggestions(entity.SuggestionTypeCharacter, out)
		require.Error(t, err, name)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeParsingFailed), name)
	}
}

func TestParseEmptyListIsNotAnError(t *testing.T) {
	got, invalid, err := ParseSuggestions(entity.SuggestionTypeNote, `{"suggestions":[]}`)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, invalid)
}

func TestParseBareObjectIsSingleSuggestion(t *testing.T) {
	got, invalid, err := ParseSuggestions(entity.SuggestionTypeCharacter, `{"name":"Mira","confidence":"high"}`)
	require.NoError(t, err)
	assert.Zero(t, invalid)
	require.Len(t, got, 1)
	assert.Equal(t, "Mira", got[0].Title)
	assert.Equal(t, entity.ConfidenceHigh, got[0].Confidence)
}
