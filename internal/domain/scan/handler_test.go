package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vaidyavision/vaidya/internal/domain/identity"
	"github.com/vaidyavision/vaidya/internal/platform/auth"
)

func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID uuid.UUID, role string) echo.Context {
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID.String())
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{role})
	return e.NewContext(req.WithContext(ctx), rec)
}

func multipartUpload(t *testing.T, modality string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "mri.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("fake-png-bytes")); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteField("modality", modality); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestHandler_SubmitScan(t *testing.T) {
	f := newFixture(acceptedPrediction(), nil)
	h := NewHandler(f.svc)
	e := echo.New()

	body, contentType := multipartUpload(t, ModalityBrain)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uuid.New(), identity.RolePatient)

	if err := h.SubmitScan(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var result SubmitResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", result.Status)
	}
}

func TestHandler_SubmitScan_MissingFile(t *testing.T) {
	f := newFixture(acceptedPrediction(), nil)
	h := NewHandler(f.svc)
	e := echo.New()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("modality", ModalityBrain)
	w.Close()
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uuid.New(), identity.RolePatient)

	err := h.SubmitScan(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_SubmitScan_InvalidModality(t *testing.T) {
	f := newFixture(acceptedPrediction(), nil)
	h := NewHandler(f.svc)
	e := echo.New()

	body, contentType := multipartUpload(t, "xray")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uuid.New(), identity.RolePatient)

	err := h.SubmitScan(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_GetScan_PatientScoping(t *testing.T) {
	f := newFixture(acceptedPrediction(), nil)
	h := NewHandler(f.svc)
	e := echo.New()

	ownerID := uuid.New()
	result, err := f.svc.Submit(context.Background(), submitInput(ownerID))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Owner can read it.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, ownerID, identity.RolePatient)
	c.SetParamNames("id")
	c.SetParamValues(result.ScanID.String())
	if err := h.GetScan(c); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("owner read: expected 200, got %d", rec.Code)
	}

	// Another patient cannot.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	c = authedContext(e, req, rec, uuid.New(), identity.RolePatient)
	c.SetParamNames("id")
	c.SetParamValues(result.ScanID.String())
	err = h.GetScan(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for stranger, got %v", err)
	}

	// A doctor can.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	c = authedContext(e, req, rec, uuid.New(), identity.RoleDoctor)
	c.SetParamNames("id")
	c.SetParamValues(result.ScanID.String())
	if err := h.GetScan(c); err != nil {
		t.Fatalf("doctor read: %v", err)
	}
}

func TestHandler_ListScans_PatientSeesOnlyOwn(t *testing.T) {
	f := newFixture(acceptedPrediction(), nil)
	h := NewHandler(f.svc)
	e := echo.New()

	ownerID := uuid.New()
	if _, err := f.svc.Submit(context.Background(), submitInput(ownerID)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.svc.Submit(context.Background(), submitInput(uuid.New())); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, ownerID, identity.RolePatient)
	if err := h.ListScans(c); err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	var resp struct {
		Data  []*Scan `json:"data"`
		Total int     `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("patient sees %d scans, want only their own 1", resp.Total)
	}
	if resp.Data[0].PatientID != ownerID {
		t.Errorf("listed scan belongs to %s, want %s", resp.Data[0].PatientID, ownerID)
	}
}

func TestHandler_RerunScan_NotFound(t *testing.T) {
	f := newFixture(acceptedPrediction(), nil)
	h := NewHandler(f.svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uuid.New(), identity.RoleDoctor)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	err := h.RerunScan(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}
