// Package inference wraps the external ML classification service. The
// response is a loosely-typed bag of optional fields; every field except
// Status is a pointer so "absent" stays distinguishable from a zero value.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Upstream prediction states.
const (
	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
	StatusError    = "ERROR"
)

// ErrUnavailable covers timeouts, transport errors, non-2xx responses and
// malformed bodies. Callers treat all of them as a single recoverable
// "try again later" condition.
var ErrUnavailable = errors.New("inference service unavailable")

// Prediction is the structured result of a classification call.
type Prediction struct {
	Status      string   `json:"status"`
	Diagnosis   *string  `json:"diagnosis,omitempty"`
	Reason      *string  `json:"reason,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Uncertainty *float64 `json:"uncertainty,omitempty"`
	HeatmapURL  *string  `json:"heatmap_url,omitempty"`
	Modality    *string  `json:"modality,omitempty"`
	TriageScore *int     `json:"triage_score,omitempty"`
	ErrorDetail *string  `json:"error,omitempty"`
}

// Client is the classification boundary consumed by the intake pipeline.
type Client interface {
	Predict(ctx context.Context, image []byte, modalityHint string) (*Prediction, error)
}

// HTTPClient calls the ML service's /predict endpoint with a hard timeout.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the given base URL. The timeout bounds
// the whole call including body read; a hung service surfaces as
// ErrUnavailable once the timeout elapses.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Predict(ctx context.Context, image []byte, modalityHint string) (*Prediction, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "scan.bin")
	if err != nil {
		return nil, fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return nil, fmt.Errorf("write multipart image: %w", err)
	}
	if modalityHint != "" {
		if err := mw.WriteField("modality", modalityHint); err != nil {
			return nil, fmt.Errorf("write modality field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, msg)
	}

	var p Prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if p.Status == "" {
		return nil, fmt.Errorf("%w: response missing status", ErrUnavailable)
	}
	return &p, nil
}
