// Package delivery sends follow-up reminders to patients over
// out-of-band channels. Each channel (email, voice call) implements
// Deliverer; the Registry maps a follow-up type tag to its channel.
// A tag with no registered deliverer is an unsupported channel and the
// caller is expected to skip it.
package delivery

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the downstream provider (SMTP relay, call
// gateway) could not be reached or refused the request.
var ErrUnavailable = errors.New("delivery channel unavailable")

// Request carries everything a channel needs to reach the patient.
// Contact fields may be empty; each deliverer validates the ones it
// depends on.
type Request struct {
	ScanID       string
	PatientName  string
	PatientEmail string
	PatientPhone string
	// PortalURL is the absolute link to the patient's report page.
	PortalURL string
}

// Deliverer sends a single follow-up reminder.
type Deliverer interface {
	Deliver(ctx context.Context, req Request) error
}

// Registry maps follow-up type tags to their channel implementation.
type Registry map[string]Deliverer

// Lookup returns the deliverer for tag, or ok=false when the tag is
// not a supported channel.
func (r Registry) Lookup(tag string) (Deliverer, bool) {
	d, ok := r[tag]
	return d, ok
}
