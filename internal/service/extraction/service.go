package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/mediminder/mediminder-api/internal/extractor"
	"github.com/mediminder/mediminder-api/internal/model"
	"github.com/mediminder/mediminder-api/internal/ocr"
	"github.com/mediminder/mediminder-api/pkg/logger"
	"github.com/mediminder/mediminder-api/pkg/metrics"
)

// frequency code and phrase matchers, checked against the candidate's source
// line. The order matters: qid before tds before bd so the longer codes win.
var (
	qidRe     = regexp.MustCompile(`(?i)\b(qid|qds|four times)\b`)
	tdsRe     = regexp.MustCompile(`(?i)\b(tds|tid|three times|thrice)\b`)
	bdRe      = regexp.MustCompile(`(?i)\b(bd|bid|twice)\b`)
	odRe      = regexp.MustCompile(`(?i)\b(od|once daily|once a day|daily|every day)\b`)
	nightRe   = regexp.MustCompile(`(?i)\b(at night|nocte|bedtime|hs)\b`)
	morningRe = regexp.MustCompile(`(?i)\b(in the morning|mane|every morning)\b`)
)

const defaultPattern = "1-0-1"

// Candidate is an extracted medication plus the dose pattern suggested from
// its frequency wording, ready for user confirmation.
type Candidate struct {
	Name             string  `json:"name"`
	Dose             string  `json:"dose,omitempty"`
	Confidence       float64 `json:"confidence"`
	SuggestedPattern string  `json:"suggestedPattern"`
	SourceLine       string  `json:"sourceLine,omitempty"`
}

// Result is the full outcome of analyzing one prescription image.
type Result struct {
	PatientName string      `json:"patientName,omitempty"`
	Medications []Candidate `json:"medications"`
	RawLines    []string    `json:"rawLines"`
}

// Service runs the prescription analysis pipeline: OCR, entity detection,
// heuristic extraction and pattern suggestion.
type Service struct {
	analyzer  ocr.Analyzer
	extractor *extractor.Extractor
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

func NewService(analyzer ocr.Analyzer, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		analyzer:  analyzer,
		extractor: extractor.New(),
		metrics:   m,
		logger:    log.WithComponent("extraction"),
	}
}

// ExtractFromImage OCRs the image and extracts medication candidates. Entity
// detection is best-effort: if it fails the line heuristics still run.
func (s *Service) ExtractFromImage(ctx context.Context, image []byte) (*Result, error) {
	lines, err := s.analyzer.DetectText(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("text detection failed: %w", err)
	}

	var entities []model.MedicalEntity
	if len(lines) > 0 {
		entities, err = s.analyzer.DetectEntities(ctx, strings.Join(lines, "\n"))
		if err != nil {
			s.logger.Warn("entity detection failed, falling back to line heuristics", "error", err.Error())
			entities = nil
		}
	}

	return s.build(lines, entities), nil
}

// ExtractFromText runs extraction on already-recognized text, one line per
// element after splitting on newlines.
func (s *Service) ExtractFromText(ctx context.Context, text string) (*Result, error) {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(l); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	var entities []model.MedicalEntity
	if s.analyzer != nil && len(lines) > 0 {
		var err error
		entities, err = s.analyzer.DetectEntities(ctx, strings.Join(lines, "\n"))
		if err != nil {
			s.logger.Warn("entity detection failed, falling back to line heuristics", "error", err.Error())
			entities = nil
		}
	}

	return s.build(lines, entities), nil
}

func (s *Service) build(lines []string, entities []model.MedicalEntity) *Result {
	source := "entities"
	meds := s.extractor.FromEntities(entities)
	if len(meds) == 0 {
		source = "heuristics"
		meds = s.extractor.FromLines(lines)
	}

	candidates := make([]Candidate, 0, len(meds))
	for _, m := range meds {
		candidates = append(candidates, Candidate{
			Name:             m.Name,
			Dose:             m.Dose,
			Confidence:       m.Confidence,
			SuggestedPattern: SuggestPattern(m.SourceLine),
			SourceLine:       m.SourceLine,
		})
		s.metrics.ExtractionConfidence.Observe(m.Confidence)
	}
	s.metrics.ExtractionRuns.WithLabelValues(source).Inc()
	s.metrics.CandidatesExtracted.Add(float64(len(candidates)))

	s.logger.Info("extraction complete",
		"lines", len(lines), "entities", len(entities),
		"source", source, "candidates", len(candidates))

	return &Result{
		PatientName: s.extractor.PatientName(lines),
		Medications: candidates,
		RawLines:    lines,
	}
}

// SuggestPattern maps the frequency wording of a prescription line to a dose
// pattern. Lines with no recognizable frequency get the twice-daily default.
func SuggestPattern(line string) string {
	switch {
	case qidRe.MatchString(line):
		return "1-1-1-1"
	case tdsRe.MatchString(line):
		return "1-1-1"
	case bdRe.MatchString(line):
		return "1-0-1"
	case nightRe.MatchString(line):
		return "0-0-1"
	case morningRe.MatchString(line):
		return "1-0-0"
	case odRe.MatchString(line):
		return "1-0-0"
	default:
		return defaultPattern
	}
}
