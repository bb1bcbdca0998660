package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mediminder/mediminder-api/internal/model"
	"github.com/mediminder/mediminder-api/pkg/circuitbreaker"
	"github.com/mediminder/mediminder-api/pkg/logger"
	"github.com/mediminder/mediminder-api/pkg/retry"
)

// Analyzer is the OCR collaborator: text detection on an image, plus optional
// medical entity detection on the recognized text.
type Analyzer interface {
	DetectText(ctx context.Context, image []byte) ([]string, error)
	DetectEntities(ctx context.Context, text string) ([]model.MedicalEntity, error)
}

type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxFailures int
	ResetAfter  time.Duration
}

// Client calls a remote OCR service over HTTP. Calls go through a circuit
// breaker so a dead backend fails fast instead of tying up request handlers,
// and transient 5xx replies get a small retry budget.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	policy     retry.Policy
	logger     *logger.Logger
}

// transientError marks replies worth retrying.
type transientError struct{ status int }

func (e *transientError) Error() string {
	return fmt.Sprintf("ocr service returned status %d", e.status)
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetAfter <= 0 {
		cfg.ResetAfter = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "ocr",
			MaxFailures: cfg.MaxFailures,
			Timeout:     cfg.ResetAfter,
		}),
		policy: retry.Policy{
			MaxAttempts: 3,
			Backoff:     500 * time.Millisecond,
			Retryable: func(err error) bool {
				var te *transientError
				return errors.As(err, &te)
			},
		},
		logger: log.WithComponent("ocr"),
	}
}

func (c *Client) DetectText(ctx context.Context, image []byte) ([]string, error) {
	payload := map[string]string{"image": base64.StdEncoding.EncodeToString(image)}
	raw, err := c.post(ctx, "/v1/detect-text", payload)
	if err != nil {
		return nil, err
	}
	lines, err := ParseAnalyzeResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse detect-text response: %w", err)
	}
	c.logger.Debug("detected text", "lines", len(lines))
	return lines, nil
}

func (c *Client) DetectEntities(ctx context.Context, text string) ([]model.MedicalEntity, error) {
	raw, err := c.post(ctx, "/v1/detect-entities", map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	entities, err := ParseEntitiesResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse detect-entities response: %w", err)
	}
	c.logger.Debug("detected entities", "entities", len(entities))
	return entities, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var raw []byte
	err = c.policy.Do(ctx, func() error {
		return c.breaker.Execute(func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("failed to build request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			if c.cfg.APIKey != "" {
				req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("ocr request failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				return &transientError{status: resp.StatusCode}
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("ocr service returned status %d", resp.StatusCode)
			}

			raw, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("failed to read ocr response: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}
