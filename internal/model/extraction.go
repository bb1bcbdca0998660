package model

// EntityCategoryMedication is the entity category produced by the medical
// entity collaborator for medication mentions.
const EntityCategoryMedication = "MEDICATION"

// EntityAttribute is a structured attribute attached to an extracted entity,
// e.g. {Type: "DOSAGE", Text: "500 mg"}.
type EntityAttribute struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MedicalEntity is one entity returned by the external medical entity
// extraction collaborator. Score is optional; absent scores degrade to a
// default confidence.
type MedicalEntity struct {
	Text       string            `json:"text"`
	Category   string            `json:"category"`
	Score      *float64          `json:"score,omitempty"`
	Attributes []EntityAttribute `json:"attributes,omitempty"`
}

// MedicationCandidate is an extraction-time draft of a medication, before the
// user confirms it. Confidence reflects the extraction method quality.
type MedicationCandidate struct {
	Name       string            `json:"name"`
	Dose       string            `json:"dose"`
	Confidence float64           `json:"confidence"`
	SourceLine string            `json:"sourceLine"`
	Attributes []EntityAttribute `json:"attributes,omitempty"`
}

// ExtractionResult is the output of a prescription extraction run: candidate
// medications plus a best-effort patient name (empty when none was found).
type ExtractionResult struct {
	PatientName string                `json:"patientName,omitempty"`
	Medications []MedicationCandidate `json:"medications"`
	RawText     string                `json:"rawText,omitempty"`
}
