package ocr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mediminder/mediminder-api/internal/model"
)

// ErrUnrecognizedShape signals that the analyzer replied with valid JSON that
// carries none of the supported payload shapes.
var ErrUnrecognizedShape = errors.New("unrecognized analyze response shape")

const blockTypeLine = "LINE"

// analyzeResponse is the union of payload shapes OCR backends reply with:
// Textract-style block lists, a bare lines array, or a single text blob.
type analyzeResponse struct {
	Blocks []textBlock `json:"Blocks"`
	Lines  []string    `json:"lines"`
	Text   string      `json:"text"`
}

type textBlock struct {
	BlockType string `json:"BlockType"`
	Text      string `json:"Text"`
}

type entitiesResponse struct {
	Entities []detectedEntity `json:"Entities"`
}

type detectedEntity struct {
	Text       string              `json:"Text"`
	Category   string              `json:"Category"`
	Score      *float64            `json:"Score"`
	Attributes []detectedAttribute `json:"Attributes"`
}

type detectedAttribute struct {
	Type string `json:"Type"`
	Text string `json:"Text"`
}

// ParseAnalyzeResponse extracts the detected text lines from a raw analyzer
// reply. Shapes are tried in a fixed order: bare string array, block list,
// lines array, text blob. A reply matching none of them returns
// ErrUnrecognizedShape.
func ParseAnalyzeResponse(raw []byte) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var bare []string
		if err := json.Unmarshal(raw, &bare); err != nil {
			return nil, fmt.Errorf("failed to decode analyze response: %w", err)
		}
		var lines []string
		for _, l := range bare {
			if text := strings.TrimSpace(l); text != "" {
				lines = append(lines, text)
			}
		}
		return lines, nil
	}

	var resp analyzeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode analyze response: %w", err)
	}

	if len(resp.Blocks) > 0 {
		var lines []string
		for _, b := range resp.Blocks {
			if b.BlockType != blockTypeLine {
				continue
			}
			if text := strings.TrimSpace(b.Text); text != "" {
				lines = append(lines, text)
			}
		}
		return lines, nil
	}

	if len(resp.Lines) > 0 {
		var lines []string
		for _, l := range resp.Lines {
			if text := strings.TrimSpace(l); text != "" {
				lines = append(lines, text)
			}
		}
		return lines, nil
	}

	if resp.Text != "" {
		var lines []string
		for _, l := range strings.Split(resp.Text, "\n") {
			if text := strings.TrimSpace(l); text != "" {
				lines = append(lines, text)
			}
		}
		return lines, nil
	}

	return nil, ErrUnrecognizedShape
}

// ParseEntitiesResponse extracts medical entities from a raw analyzer reply.
// An absent Entities field is an empty result, not an error: entity detection
// is an optional enrichment.
func ParseEntitiesResponse(raw []byte) ([]model.MedicalEntity, error) {
	var resp entitiesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode entities response: %w", err)
	}

	entities := make([]model.MedicalEntity, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		entity := model.MedicalEntity{
			Text:     e.Text,
			Category: e.Category,
			Score:    e.Score,
		}
		for _, a := range e.Attributes {
			entity.Attributes = append(entity.Attributes, model.EntityAttribute{
				Type: a.Type,
				Text: a.Text,
			})
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
