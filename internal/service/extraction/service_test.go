package extraction

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediminder/mediminder-api/internal/model"
	"github.com/mediminder/mediminder-api/pkg/logger"
	"github.com/mediminder/mediminder-api/pkg/metrics"
)

// Registered once; promauto panics on duplicate registration.
var testMetrics = metrics.NewMetrics("mediminder_test", "extraction")

type fakeAnalyzer struct {
	lines       []string
	entities    []model.MedicalEntity
	textErr     error
	entitiesErr error
}

func (f *fakeAnalyzer) DetectText(context.Context, []byte) ([]string, error) {
	return f.lines, f.textErr
}

func (f *fakeAnalyzer) DetectEntities(context.Context, string) ([]model.MedicalEntity, error) {
	return f.entities, f.entitiesErr
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func TestExtractFromImage(t *testing.T) {
	analyzer := &fakeAnalyzer{
		lines: []string{
			"Patient Name: John Carter",
			"Paracetamol 500 mg twice daily",
		},
	}
	s := NewService(analyzer, testMetrics, testLogger())

	result, err := s.ExtractFromImage(context.Background(), []byte("img"))
	require.NoError(t, err)

	assert.Equal(t, "John Carter", result.PatientName)
	require.Len(t, result.Medications, 1)
	assert.Equal(t, "Paracetamol", result.Medications[0].Name)
	assert.Equal(t, "1-0-1", result.Medications[0].SuggestedPattern)
	assert.Len(t, result.RawLines, 2)
}

func TestExtractFromImageTextDetectionFails(t *testing.T) {
	s := NewService(&fakeAnalyzer{textErr: errors.New("ocr down")}, testMetrics, testLogger())

	_, err := s.ExtractFromImage(context.Background(), []byte("img"))
	assert.Error(t, err)
}

func TestExtractFromImageEntityFailureFallsBack(t *testing.T) {
	analyzer := &fakeAnalyzer{
		lines:       []string{"Aspirin 75 mg od"},
		entitiesErr: errors.New("entities unavailable"),
	}
	s := NewService(analyzer, testMetrics, testLogger())

	result, err := s.ExtractFromImage(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, result.Medications, 1)
	assert.Equal(t, "Aspirin", result.Medications[0].Name)
}

func TestExtractFromImagePrefersEntities(t *testing.T) {
	score := 0.95
	analyzer := &fakeAnalyzer{
		lines: []string{"Paracetamol 500 mg twice daily"},
		entities: []model.MedicalEntity{
			{Text: "Amoxicillin", Category: model.EntityCategoryMedication, Score: &score},
		},
	}
	s := NewService(analyzer, testMetrics, testLogger())

	result, err := s.ExtractFromImage(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, result.Medications, 1)
	assert.Equal(t, "Amoxicillin", result.Medications[0].Name)
	assert.InDelta(t, score, result.Medications[0].Confidence, 1e-9)
}

func TestExtractFromText(t *testing.T) {
	s := NewService(nil, testMetrics, testLogger())

	result, err := s.ExtractFromText(context.Background(), "Ibuprofen 400 mg tds\n\n  \nDr. Jones")
	require.NoError(t, err)
	require.Len(t, result.Medications, 1)
	assert.Equal(t, "Ibuprofen", result.Medications[0].Name)
	assert.Equal(t, "1-1-1", result.Medications[0].SuggestedPattern)
}

func TestSuggestPattern(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"Paracetamol 500 mg qid", "1-1-1-1"},
		{"Amoxicillin 250 mg three times a day", "1-1-1"},
		{"Paracetamol 500 mg twice daily", "1-0-1"},
		{"Aspirin 75 mg od", "1-0-0"},
		{"Metformin 500 mg once daily", "1-0-0"},
		{"Simvastatin 20 mg at night", "0-0-1"},
		{"Levothyroxine 50 mcg in the morning", "1-0-0"},
		{"Vitamin D 1000 IU", "1-0-1"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, SuggestPattern(tc.line), "line: %s", tc.line)
	}
}
