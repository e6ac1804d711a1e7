package delivery

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// EmailDeliverer sends report-ready reminders over SMTP.
type EmailDeliverer struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailDeliverer configures an SMTP channel. The dialer is lazy; no
// connection is made until the first Deliver call.
func NewEmailDeliverer(server string, port int, email, password string) *EmailDeliverer {
	return &EmailDeliverer{
		dialer: gomail.NewDialer(server, port, email, password),
		from:   email,
	}
}

func (d *EmailDeliverer) Deliver(ctx context.Context, req Request) error {
	if req.PatientEmail == "" {
		return fmt.Errorf("follow-up %s: patient has no email address", req.ScanID)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", req.PatientEmail)
	m.SetHeader("Subject", "Your medical scan report is ready")
	m.SetBody("text/html", reportReadyBody(req))

	if err := d.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w: %v", req.PatientEmail, ErrUnavailable, err)
	}
	return nil
}

func reportReadyBody(req Request) string {
	name := req.PatientName
	if name == "" {
		name = "Patient"
	}
	return fmt.Sprintf(`<p>Dear %s,</p>
<p>Your medical scan report is ready for review. Please log in to the
patient portal to view your results and any notes from your doctor.</p>
<p><a href="%s">View your report</a></p>
<p>If you have questions about your results, contact your care team.</p>`,
		name, req.PortalURL)
}
