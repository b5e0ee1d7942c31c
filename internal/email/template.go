package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

const (
	ActivationSubject = "Account Verification"
	ResetSubject      = "Account Password Reset"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type linkData struct {
	Name      string
	URL       string
	ExpiresIn string
}

// ActivationBody renders the account verification email around confirmURL.
func ActivationBody(name, confirmURL string, ttl time.Duration) (string, error) {
	return render("activation.html", linkData{Name: name, URL: confirmURL, ExpiresIn: humanize(ttl)})
}

// ResetBody renders the password reset email around resetURL.
func ResetBody(resetURL string, ttl time.Duration) (string, error) {
	return render("reset.html", linkData{URL: resetURL, ExpiresIn: humanize(ttl)})
}

func render(name string, data linkData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func humanize(d time.Duration) string {
	if m := int(d.Minutes()); m < 120 {
		return fmt.Sprintf("%d minutes", m)
	}
	return fmt.Sprintf("%d hours", int(d.Hours()))
}
