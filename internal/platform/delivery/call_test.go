package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func callRequestFixture() Request {
	return Request{
		ScanID:       "scan-1",
		PatientName:  "Asha Rao",
		PatientPhone: "+15550001111",
		PortalURL:    "https://portal.example.com/patient/scans/scan-1",
	}
}

func TestCallDelivererPostsGateway(t *testing.T) {
	var got callRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewCallDeliverer(srv.URL, 5*time.Second)
	if err := d.Deliver(context.Background(), callRequestFixture()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got.Phone != "+15550001111" {
		t.Errorf("phone = %q", got.Phone)
	}
	if got.Message == "" {
		t.Error("empty call message")
	}
}

func TestCallDelivererGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "carrier rejected", http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewCallDeliverer(srv.URL, 5*time.Second)
	if err := d.Deliver(context.Background(), callRequestFixture()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestCallDelivererMissingPhone(t *testing.T) {
	d := NewCallDeliverer("http://localhost:0", time.Second)
	req := callRequestFixture()
	req.PatientPhone = ""
	if err := d.Deliver(context.Background(), req); err == nil {
		t.Fatal("expected error for missing phone")
	}
}

func TestRegistryLookup(t *testing.T) {
	mock := &MockDeliverer{}
	r := Registry{"call": mock}

	if d, ok := r.Lookup("call"); !ok || d != Deliverer(mock) {
		t.Error("registered channel not found")
	}
	if _, ok := r.Lookup("pigeon"); ok {
		t.Error("unregistered channel must not resolve")
	}
}
