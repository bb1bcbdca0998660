package extractor

import (
	"regexp"
	"strings"

	"github.com/mediminder/mediminder-api/internal/model"
)

// Confidence levels by extraction method. Entity-based extraction carries the
// collaborator's own score; these cover the heuristic paths.
const (
	confidencePrimary = 0.65
	confidenceSimple  = 0.5
	confidenceKeyword = 0.33

	// Default when an entity arrives without a score.
	confidenceEntityDefault = 0.7
)

var (
	// Primary pattern: name, optional comma, number+unit dose token, trailing
	// text (frequency codes etc).
	medLineRe = regexp.MustCompile(`(?i)([A-Za-z0-9\-\.\s/()]+?)\s*,?\s*(\d+(?:\.\d+)?\s*(?:mg|g|mcg|μg|ml|mL|mls|IU|units|tablets|tablet|tabs|tab|capsule|cap)(?:\s*(?:/\s*\d+)?)?)(.*)`)

	// Simpler fallback: "Name <space> dose" with a narrower unit set.
	simplerRe = regexp.MustCompile(`(?i)([A-Za-z][A-Za-z0-9\-\s/()]+?)\s+(\d+(?:\.\d+)?\s*(?:mg|mcg|g|ml|IU|tablet|tabs|tab|capsule|cap))`)

	// Administrative metadata lines are never medications.
	adminLineRe = regexp.MustCompile(`(?i)^(dr\.|dr |doctor|rx:|rx\s|signature|sig:|date:|dob:|age:|address|phone|tel:)`)

	// Lines containing dosing/frequency keywords, weakest confidence.
	keywordRe = regexp.MustCompile(`(?i)(tablet|tab|capsule|mg|mcg|once daily|twice daily|bd|od|tds|qd|night|morning|prn|syrup|drops)`)

	// Patient name label: "Patient: ...", "Name - ...", "Pt: ...".
	patientLabelRe = regexp.MustCompile(`(?i)(?:Patient Name|Patient|Name|Pt)\s*[:\-]\s*(.+)`)

	nameLikeLineRe = regexp.MustCompile(`^[A-Za-z.\- ]+$`)
	digitRe        = regexp.MustCompile(`\d`)
	nonAlnumRe     = regexp.MustCompile(`[^a-z0-9]+`)
	dosageTypeRe   = regexp.MustCompile(`(?i)DOSAGE|STRENGTH`)
)

// Extractor turns OCR text lines and optional pre-extracted entities into
// medication candidates. It is stateless and safe for concurrent use.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract prefers the structured entity path when it yields candidates and
// falls back to line heuristics otherwise. Empty input is not an error: the
// result simply carries no candidates and no patient name.
func (e *Extractor) Extract(lines []string, entities []model.MedicalEntity) model.ExtractionResult {
	meds := e.FromEntities(entities)
	if len(meds) == 0 {
		meds = e.FromLines(lines)
	}
	return model.ExtractionResult{
		PatientName: e.PatientName(lines),
		Medications: meds,
		RawText:     strings.Join(lines, "\n"),
	}
}

// FromEntities maps medication-category entities to candidates. The dose is
// the first DOSAGE/STRENGTH attribute; a missing score degrades to a default
// confidence rather than failing.
func (e *Extractor) FromEntities(entities []model.MedicalEntity) []model.MedicationCandidate {
	var meds []model.MedicationCandidate
	for _, ent := range entities {
		if ent.Category != model.EntityCategoryMedication {
			continue
		}

		dose := ""
		for _, attr := range ent.Attributes {
			if dosageTypeRe.MatchString(attr.Type) {
				dose = attr.Text
				break
			}
		}

		confidence := confidenceEntityDefault
		if ent.Score != nil {
			confidence = *ent.Score
		}

		meds = append(meds, model.MedicationCandidate{
			Name:       ent.Text,
			Dose:       dose,
			Confidence: confidence,
			SourceLine: ent.Text,
			Attributes: ent.Attributes,
		})
	}
	return dedupe(meds)
}

// FromLines classifies raw text lines with regex heuristics.
func (e *Extractor) FromLines(lines []string) []model.MedicationCandidate {
	var meds []model.MedicationCandidate
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) < 2 {
			continue
		}
		if adminLineRe.MatchString(trimmed) {
			continue
		}

		if m := medLineRe.FindStringSubmatch(trimmed); m != nil {
			meds = append(meds, model.MedicationCandidate{
				Name:       strings.TrimSpace(m[1]),
				Dose:       strings.TrimSpace(m[2]),
				Confidence: confidencePrimary,
				SourceLine: trimmed,
			})
			continue
		}

		if m := simplerRe.FindStringSubmatch(trimmed); m != nil {
			meds = append(meds, model.MedicationCandidate{
				Name:       strings.TrimSpace(m[1]),
				Dose:       strings.TrimSpace(m[2]),
				Confidence: confidenceSimple,
				SourceLine: trimmed,
			})
			continue
		}

		if keywordRe.MatchString(trimmed) {
			meds = append(meds, model.MedicationCandidate{
				Name:       trimmed,
				Dose:       "",
				Confidence: confidenceKeyword,
				SourceLine: trimmed,
			})
		}
	}
	return dedupe(meds)
}

// PatientName scans for an explicit label first, then falls back to the first
// line that looks like a human name: 2-4 words, letters only, no digits,
// under 60 characters. Returns "" when nothing matches.
func (e *Extractor) PatientName(lines []string) string {
	for _, line := range lines {
		if m := patientLabelRe.FindStringSubmatch(line); m != nil {
			if name := strings.TrimSpace(m[1]); name != "" {
				return name
			}
		}
	}
	for _, line := range lines {
		if line == "" {
			continue
		}
		words := strings.Fields(line)
		if len(words) < 2 || len(words) > 4 {
			continue
		}
		if len(line) >= 60 || !nameLikeLineRe.MatchString(line) || digitRe.MatchString(line) {
			continue
		}
		return strings.TrimSpace(line)
	}
	return ""
}

// dedupe drops later candidates whose normalized name was already seen.
// Candidates with empty normalized names are dropped entirely.
func dedupe(meds []model.MedicationCandidate) []model.MedicationCandidate {
	var out []model.MedicationCandidate
	seen := make(map[string]struct{}, len(meds))
	for _, m := range meds {
		key := normalizeKey(m.Name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

func normalizeKey(name string) string {
	key := strings.ToLower(name)
	key = nonAlnumRe.ReplaceAllString(key, " ")
	return strings.TrimSpace(key)
}
