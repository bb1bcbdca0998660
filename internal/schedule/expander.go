package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mediminder/mediminder-api/internal/model"
)

// DefaultHorizonDays is the generation horizon used when the caller does not
// specify one.
const DefaultHorizonDays = 7

// Slot order is positional and fixed. Patterns with three or fewer segments
// map to morning/afternoon/night and skip the evening slot entirely; only
// four-segment patterns address it.
var (
	threeSlotOrder = []model.DoseSlot{model.SlotMorning, model.SlotAfternoon, model.SlotNight}
	fourSlotOrder  = []model.DoseSlot{model.SlotMorning, model.SlotAfternoon, model.SlotEvening, model.SlotNight}
)

// Expander turns a medication's compact dosing pattern into concrete dose
// instances. The clock is injectable so tests control "today".
type Expander struct {
	now     func() time.Time
	horizon int
}

func NewExpander() *Expander {
	return &Expander{now: time.Now, horizon: DefaultHorizonDays}
}

// NewExpanderAt builds an expander with a fixed clock.
func NewExpanderAt(now func() time.Time) *Expander {
	return &Expander{now: now, horizon: DefaultHorizonDays}
}

// WithHorizon overrides the default generation horizon. Non-positive values
// are ignored.
func (e *Expander) WithHorizon(days int) *Expander {
	if days > 0 {
		e.horizon = days
	}
	return e
}

// Expand generates the ordered dose list covering [today 00:00, today+days)
// in local time. Output is deterministic for the same inputs: dose ids encode
// medication, date, slot and occurrence, so a second run reproduces identical
// doses and downstream merges stay idempotent. Custom-pattern medications are
// never expanded.
func (e *Expander) Expand(med *model.Medication, days int) []model.Dose {
	if med == nil || med.IsCustom() {
		return nil
	}
	if days <= 0 {
		days = e.horizon
	}

	counts := parsePattern(med.Pattern)
	slots := threeSlotOrder
	if len(counts) >= 4 {
		slots = fourSlotOrder
	}

	now := e.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var doses []model.Dose
	for d := 0; d < days; d++ {
		date := today.AddDate(0, 0, d)
		for idx, slot := range slots {
			count := 0
			if idx < len(counts) {
				count = counts[idx]
			}
			st := model.DefaultSlotTimes[slot]
			for k := 0; k < count; k++ {
				when := time.Date(date.Year(), date.Month(), date.Day(), st.Hour, st.Minute, 0, 0, date.Location())
				// Multiple doses in the same slot/day stagger by 30 minutes
				// so timestamps stay unique but clustered.
				when = when.Add(time.Duration(k) * 30 * time.Minute)

				doses = append(doses, model.Dose{
					DoseID: DoseID(med.MedID, date, slot, k+1),
					MedID:  med.MedID,
					When:   when,
					Slot:   slot,
					Status: model.DoseStatusScheduled,
				})
			}
		}
	}
	return doses
}

// DoseID derives the deterministic id for a pattern-generated dose. The
// occurrence index is 1-based.
func DoseID(medID string, date time.Time, slot model.DoseSlot, occurrence int) string {
	return fmt.Sprintf("%s-%s-%s-%d", medID, date.Format("2006-01-02"), slot, occurrence)
}

// CustomDoseID derives the deterministic id for an explicitly timed dose.
func CustomDoseID(medID string, when time.Time) string {
	return fmt.Sprintf("%s-%s", medID, when.Format(time.RFC3339))
}

// parsePattern splits a "-"-separated count code. Malformed or missing
// segments parse as zero; a broken pattern degrades to "no doses for that
// slot" rather than an error.
func parsePattern(pattern string) []int {
	parts := strings.Split(strings.TrimSpace(pattern), "-")
	counts := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			n = 0
		}
		counts[i] = n
	}
	return counts
}
