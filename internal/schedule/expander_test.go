package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediminder/mediminder-api/internal/model"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, 3, 10, 11, 45, 0, 0, time.Local)
	}
}

func testMed(pattern string) *model.Medication {
	return &model.Medication{MedID: "med-1", Name: "Paracetamol", Pattern: pattern}
}

func TestExpandOneZeroOne(t *testing.T) {
	e := NewExpanderAt(fixedClock())
	doses := e.Expand(testMed("1-0-1"), 1)

	require.Len(t, doses, 2)

	assert.Equal(t, model.SlotMorning, doses[0].Slot)
	assert.Equal(t, 7, doses[0].When.Hour())
	assert.Equal(t, 30, doses[0].When.Minute())

	assert.Equal(t, model.SlotNight, doses[1].Slot)
	assert.Equal(t, 21, doses[1].When.Hour())
	assert.Equal(t, 30, doses[1].When.Minute())

	for _, d := range doses {
		assert.NotEqual(t, model.SlotEvening, d.Slot)
		assert.Equal(t, model.DoseStatusScheduled, d.Status)
		assert.Equal(t, "med-1", d.MedID)
	}
}

func TestExpandThreeSegmentsSkipEvening(t *testing.T) {
	e := NewExpanderAt(fixedClock())
	doses := e.Expand(testMed("1-1-1"), 3)

	require.Len(t, doses, 9)
	for _, d := range doses {
		assert.NotEqual(t, model.SlotEvening, d.Slot)
	}
}

func TestExpandFourSegmentsIncludeEvening(t *testing.T) {
	e := NewExpanderAt(fixedClock())
	doses := e.Expand(testMed("1-1-1-1"), 1)

	require.Len(t, doses, 4)
	assert.Equal(t, model.SlotMorning, doses[0].Slot)
	assert.Equal(t, model.SlotAfternoon, doses[1].Slot)
	assert.Equal(t, model.SlotEvening, doses[2].Slot)
	assert.Equal(t, model.SlotNight, doses[3].Slot)
	assert.Equal(t, 18, doses[2].When.Hour())
	assert.Equal(t, 30, doses[2].When.Minute())
}

func TestExpandStaggersSameSlotDoses(t *testing.T) {
	e := NewExpanderAt(fixedClock())
	doses := e.Expand(testMed("2-0-0-0"), 1)

	require.Len(t, doses, 2)
	assert.Equal(t, 7, doses[0].When.Hour())
	assert.Equal(t, 30, doses[0].When.Minute())
	assert.Equal(t, 8, doses[1].When.Hour())
	assert.Equal(t, 0, doses[1].When.Minute())

	assert.Equal(t, "med-1-2025-03-10-morning-1", doses[0].DoseID)
	assert.Equal(t, "med-1-2025-03-10-morning-2", doses[1].DoseID)
}

func TestExpandDeterministic(t *testing.T) {
	e := NewExpanderAt(fixedClock())
	first := e.Expand(testMed("2-1-0-1"), 7)
	second := e.Expand(testMed("2-1-0-1"), 7)
	assert.Equal(t, first, second)
}

func TestExpandDoseIDsUnique(t *testing.T) {
	e := NewExpanderAt(fixedClock())
	doses := e.Expand(testMed("3-2-1-2"), 7)

	seen := make(map[string]struct{})
	for _, d := range doses {
		_, dup := seen[d.DoseID]
		assert.False(t, dup, "duplicate dose id %s", d.DoseID)
		seen[d.DoseID] = struct{}{}
	}
}

func TestExpandCoversHorizonDays(t *testing.T) {
	e := NewExpanderAt(fixedClock())
	doses := e.Expand(testMed("1-0-0"), 5)

	require.Len(t, doses, 5)
	assert.Equal(t, 10, doses[0].When.Day())
	assert.Equal(t, 14, doses[4].When.Day())
}

func TestExpandMalformedSegmentsDegradeToZero(t *testing.T) {
	e := NewExpanderAt(fixedClock())

	doses := e.Expand(testMed("x-0-1"), 1)
	require.Len(t, doses, 1)
	assert.Equal(t, model.SlotNight, doses[0].Slot)

	assert.Empty(t, e.Expand(testMed("a-b-c"), 1))
	assert.Empty(t, e.Expand(testMed(""), 1))
}

func TestExpandDefaultHorizon(t *testing.T) {
	e := NewExpanderAt(fixedClock())
	doses := e.Expand(testMed("1-0-0"), 0)
	assert.Len(t, doses, DefaultHorizonDays)
}

func TestExpandCustomPatternYieldsNothing(t *testing.T) {
	e := NewExpanderAt(fixedClock())
	assert.Empty(t, e.Expand(testMed(model.PatternCustom), 7))
}
