package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediminder/mediminder-api/internal/model"
)

func floatPtr(f float64) *float64 { return &f }

func TestFromLinesPrimaryPattern(t *testing.T) {
	e := New()
	meds := e.FromLines([]string{"Paracetamol 500 mg twice daily"})

	require.Len(t, meds, 1)
	assert.True(t, strings.HasPrefix(meds[0].Name, "Paracetamol"))
	assert.Contains(t, meds[0].Dose, "500 mg")
	assert.Equal(t, 0.65, meds[0].Confidence)
	assert.Equal(t, "Paracetamol 500 mg twice daily", meds[0].SourceLine)
}

func TestFromLinesSkipsAdministrativeLines(t *testing.T) {
	e := New()
	lines := []string{
		"Dr. Smith, MD",
		"Rx: something",
		"Date: 2024-01-01",
		"Phone 555-0100",
		"Signature",
	}
	assert.Empty(t, e.FromLines(lines))
}

func TestFromLinesSkipsShortLines(t *testing.T) {
	e := New()
	assert.Empty(t, e.FromLines([]string{"", "a", " "}))
}

func TestFromLinesKeywordFallback(t *testing.T) {
	e := New()
	meds := e.FromLines([]string{"take with water before night"})

	require.Len(t, meds, 1)
	assert.Equal(t, "take with water before night", meds[0].Name)
	assert.Empty(t, meds[0].Dose)
	assert.Equal(t, 0.33, meds[0].Confidence)
}

func TestFromLinesUnmatchedLineYieldsNothing(t *testing.T) {
	e := New()
	assert.Empty(t, e.FromLines([]string{"hello there friend"}))
}

func TestFromLinesDedupeByNormalizedName(t *testing.T) {
	e := New()
	meds := e.FromLines([]string{
		"Aspirin 75 mg",
		"aspirin, 75 mg daily",
	})

	require.Len(t, meds, 1)
	assert.Equal(t, "Aspirin", meds[0].Name)
}

func TestFromEntitiesFiltersAndMaps(t *testing.T) {
	e := New()
	entities := []model.MedicalEntity{
		{
			Text:     "Metformin",
			Category: model.EntityCategoryMedication,
			Score:    floatPtr(0.93),
			Attributes: []model.EntityAttribute{
				{Type: "FREQUENCY", Text: "twice daily"},
				{Type: "STRENGTH", Text: "500 mg"},
			},
		},
		{Text: "Diabetes", Category: "MEDICAL_CONDITION", Score: floatPtr(0.99)},
	}

	meds := e.FromEntities(entities)
	require.Len(t, meds, 1)
	assert.Equal(t, "Metformin", meds[0].Name)
	assert.Equal(t, "500 mg", meds[0].Dose)
	assert.Equal(t, 0.93, meds[0].Confidence)
}

func TestFromEntitiesDefaultsWhenScoreMissing(t *testing.T) {
	e := New()
	meds := e.FromEntities([]model.MedicalEntity{
		{Text: "Atorvastatin", Category: model.EntityCategoryMedication},
	})

	require.Len(t, meds, 1)
	assert.Equal(t, 0.7, meds[0].Confidence)
	assert.Empty(t, meds[0].Dose)
}

func TestExtractPrefersEntities(t *testing.T) {
	e := New()
	res := e.Extract(
		[]string{"Paracetamol 500 mg"},
		[]model.MedicalEntity{
			{Text: "Ibuprofen", Category: model.EntityCategoryMedication, Score: floatPtr(0.9)},
		},
	)

	require.Len(t, res.Medications, 1)
	assert.Equal(t, "Ibuprofen", res.Medications[0].Name)
}

func TestExtractFallsBackWhenEntitiesYieldNothing(t *testing.T) {
	e := New()
	res := e.Extract(
		[]string{"Paracetamol 500 mg"},
		[]model.MedicalEntity{
			{Text: "Headache", Category: "MEDICAL_CONDITION"},
		},
	)

	require.Len(t, res.Medications, 1)
	assert.True(t, strings.HasPrefix(res.Medications[0].Name, "Paracetamol"))
}

func TestExtractEmptyInput(t *testing.T) {
	e := New()
	res := e.Extract(nil, nil)
	assert.Empty(t, res.Medications)
	assert.Empty(t, res.PatientName)
}

func TestPatientNameFromLabel(t *testing.T) {
	e := New()
	name := e.PatientName([]string{
		"City Clinic",
		"Patient: Jane Doe",
		"Paracetamol 500 mg",
	})
	assert.Equal(t, "Jane Doe", name)
}

func TestPatientNameFallbackNameLikeLine(t *testing.T) {
	e := New()
	name := e.PatientName([]string{
		"Paracetamol 500mg tablet",
		"John A. Smith",
	})
	assert.Equal(t, "John A. Smith", name)
}

func TestPatientNameRejectsLinesWithDigits(t *testing.T) {
	e := New()
	assert.Empty(t, e.PatientName([]string{"Room 42 Ward B1"}))
}
