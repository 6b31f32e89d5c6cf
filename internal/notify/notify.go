// Package notify renders and delivers transactional email. Delivery is
// best effort: callers log failures and carry on.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Email is a rendered message ready for delivery.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Mailer delivers rendered email.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// Invite describes an invitation email.
type Invite struct {
	StudentEmail string
	StudentName  string
	TeacherName  string
	Token        string
	ValidDays    int
}

// Notifier renders the service's email templates and hands them to a Mailer.
type Notifier struct {
	mailer      Mailer
	frontendURL string
}

// New creates a notifier. frontendURL is the base of invitation links.
func New(mailer Mailer, frontendURL string) *Notifier {
	return &Notifier{mailer: mailer, frontendURL: frontendURL}
}

// Welcome sends the post-signup greeting.
func (n *Notifier) Welcome(ctx context.Context, to, name string) error {
	body, err := render("welcome.html", map[string]any{"Name": name})
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, Email{To: to, Subject: "Welcome to Present Smart!", HTML: body})
}

// Invite sends a student the link that completes registration.
func (n *Notifier) Invite(ctx context.Context, inv Invite) error {
	body, err := render("invite.html", map[string]any{
		"StudentName": inv.StudentName,
		"TeacherName": inv.TeacherName,
		"Link":        InviteLink(n.frontendURL, inv.StudentEmail, inv.Token),
		"ValidDays":   inv.ValidDays,
	})
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, Email{
		To:      inv.StudentEmail,
		Subject: inv.TeacherName + " invited you to Present Smart",
		HTML:    body,
	})
}

// InviteLink builds the front-end signup URL for an invitation.
func InviteLink(frontendURL, email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("type", "student")
	q.Set("token", token)
	return frontendURL + "/auth?" + q.Encode()
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
