package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CallDeliverer places reminder voice calls through an HTTP call
// gateway. The gateway accepts a JSON payload and handles dialing,
// text-to-speech and retries on its side.
type CallDeliverer struct {
	gatewayURL string
	client     *http.Client
}

func NewCallDeliverer(gatewayURL string, timeout time.Duration) *CallDeliverer {
	return &CallDeliverer{
		gatewayURL: gatewayURL,
		client:     &http.Client{Timeout: timeout},
	}
}

type callRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (d *CallDeliverer) Deliver(ctx context.Context, req Request) error {
	if req.PatientPhone == "" {
		return fmt.Errorf("follow-up %s: patient has no phone number", req.ScanID)
	}

	name := req.PatientName
	if name == "" {
		name = "patient"
	}
	payload := callRequest{
		Phone: req.PatientPhone,
		Message: fmt.Sprintf(
			"Hello %s, this is a reminder from your care team. Your medical scan report is ready. Please check the patient portal for your results.",
			name),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling call request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building call request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call gateway: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("call gateway returned %d: %s: %w", resp.StatusCode, detail, ErrUnavailable)
	}
	return nil
}
