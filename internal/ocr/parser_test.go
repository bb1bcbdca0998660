package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalyzeResponseBlocks(t *testing.T) {
	raw := []byte(`{
		"Blocks": [
			{"BlockType": "PAGE", "Text": ""},
			{"BlockType": "LINE", "Text": "Paracetamol 500 mg twice daily"},
			{"BlockType": "WORD", "Text": "Paracetamol"},
			{"BlockType": "LINE", "Text": "  Aspirin 75 mg od  "}
		]
	}`)

	lines, err := ParseAnalyzeResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Paracetamol 500 mg twice daily", "Aspirin 75 mg od"}, lines)
}

func TestParseAnalyzeResponseLines(t *testing.T) {
	lines, err := ParseAnalyzeResponse([]byte(`{"lines": ["one", "  two ", ""]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestParseAnalyzeResponseTextBlob(t *testing.T) {
	lines, err := ParseAnalyzeResponse([]byte(`{"text": "one\n\n two \nthree"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, lines)
}

func TestParseAnalyzeResponseBlocksWinOverLines(t *testing.T) {
	raw := []byte(`{
		"Blocks": [{"BlockType": "LINE", "Text": "from blocks"}],
		"lines": ["from lines"]
	}`)

	lines, err := ParseAnalyzeResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"from blocks"}, lines)
}

func TestParseAnalyzeResponseBareArray(t *testing.T) {
	lines, err := ParseAnalyzeResponse([]byte(`["one", " two ", ""]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestParseAnalyzeResponseUnrecognizedShape(t *testing.T) {
	_, err := ParseAnalyzeResponse([]byte(`{"results": ["something else"]}`))
	assert.ErrorIs(t, err, ErrUnrecognizedShape)
}

func TestParseAnalyzeResponseInvalidJSON(t *testing.T) {
	_, err := ParseAnalyzeResponse([]byte(`{broken`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnrecognizedShape)
}

func TestParseEntitiesResponse(t *testing.T) {
	score := 0.91
	raw := []byte(`{
		"Entities": [
			{
				"Text": "Paracetamol",
				"Category": "MEDICATION",
				"Score": 0.91,
				"Attributes": [{"Type": "DOSAGE", "Text": "500 mg"}]
			}
		]
	}`)

	entities, err := ParseEntitiesResponse(raw)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Paracetamol", entities[0].Text)
	assert.Equal(t, "MEDICATION", entities[0].Category)
	require.NotNil(t, entities[0].Score)
	assert.InDelta(t, score, *entities[0].Score, 1e-9)
	require.Len(t, entities[0].Attributes, 1)
	assert.Equal(t, "DOSAGE", entities[0].Attributes[0].Type)
}

func TestParseEntitiesResponseEmpty(t *testing.T) {
	entities, err := ParseEntitiesResponse([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, entities)
}
