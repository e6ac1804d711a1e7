package inference

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPredictParsesResponse(t *testing.T) {
	var gotModality string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart: %v", err)
		}
		gotModality = r.FormValue("modality")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "ACCEPTED",
			"diagnosis": "Glioma detected",
			"confidence": 0.92,
			"uncertainty": 0.08,
			"triage_score": 85,
			"heatmap_url": "/uploads/heatmap.png",
			"modality": "brain"
		}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second)
	pred, err := client.Predict(context.Background(), []byte("image-bytes"), "brain")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if gotModality != "brain" {
		t.Errorf("modality hint = %q", gotModality)
	}
	if pred.Status != StatusAccepted {
		t.Errorf("status = %q", pred.Status)
	}
	if pred.TriageScore == nil || *pred.TriageScore != 85 {
		t.Errorf("triage score = %v", pred.TriageScore)
	}
	if pred.Uncertainty == nil || *pred.Uncertainty != 0.08 {
		t.Errorf("uncertainty = %v", pred.Uncertainty)
	}
}

func TestPredictOmittedFieldsStayNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "REJECTED", "reason": "image quality too low"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second)
	pred, err := client.Predict(context.Background(), []byte("image-bytes"), "")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Status != StatusRejected {
		t.Errorf("status = %q", pred.Status)
	}
	if pred.TriageScore != nil || pred.Confidence != nil || pred.Uncertainty != nil {
		t.Error("absent fields must stay nil, not zero")
	}
	if pred.Reason == nil || *pred.Reason != "image quality too low" {
		t.Errorf("reason = %v", pred.Reason)
	}
}

func TestPredictServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second)
	if _, err := client.Predict(context.Background(), []byte("x"), ""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestPredictConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // guaranteed-dead address

	client := NewHTTPClient(srv.URL, time.Second)
	if _, err := client.Predict(context.Background(), []byte("x"), ""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestPredictMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second)
	if _, err := client.Predict(context.Background(), []byte("x"), ""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
