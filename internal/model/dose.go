package model

import "time"

// DoseSlot is a named time-of-day bucket for a dose.
type DoseSlot string

const (
	SlotMorning   DoseSlot = "morning"
	SlotAfternoon DoseSlot = "afternoon"
	SlotEvening   DoseSlot = "evening"
	SlotNight     DoseSlot = "night"
	SlotCustom    DoseSlot = "custom"
)

// SlotTime is the canonical wall-clock time for a fixed slot.
type SlotTime struct {
	Hour   int
	Minute int
}

// DefaultSlotTimes maps each fixed slot to its default clock time. Custom
// doses carry their own explicit timestamp and have no entry here.
var DefaultSlotTimes = map[DoseSlot]SlotTime{
	SlotMorning:   {Hour: 7, Minute: 30},
	SlotAfternoon: {Hour: 13, Minute: 0},
	SlotEvening:   {Hour: 18, Minute: 30},
	SlotNight:     {Hour: 21, Minute: 30},
}

type DoseStatus string

const (
	DoseStatusScheduled DoseStatus = "scheduled"
	DoseStatusTaken     DoseStatus = "taken"
	DoseStatusMissed    DoseStatus = "missed"
)

// IsTerminal reports whether the status can no longer change. Merges must
// never overwrite a terminal status with a freshly generated dose.
func (s DoseStatus) IsTerminal() bool {
	return s == DoseStatusTaken || s == DoseStatusMissed
}

// Dose is one concrete scheduled administration of a medication. DoseID is
// derived deterministically from the medication, date, slot and occurrence
// (pattern doses) or from the medication and absolute timestamp (custom
// doses), so regenerating the same schedule reproduces the same ids.
type Dose struct {
	DoseID   string     `json:"doseId"`
	MedID    string     `json:"medId"`
	When     time.Time  `json:"whenISO"`
	Slot     DoseSlot   `json:"slot"`
	Status   DoseStatus `json:"status"`
	LoggedAt *time.Time `json:"loggedAt,omitempty"`
}
