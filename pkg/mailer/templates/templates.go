package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// EmailData defines standard fields for email templates.
type EmailData struct {
	// Basic info
	Name  string
	Email string
	Type  string

	// Company info
	CompanyName string
	AppName     string
	SupportURL  string

	// One-time code for the recovery flow
	Code string

	// Additional data
	ExpiresAt     time.Time
	ExpiresAtText string
	ExpiresInText string
	IP            string
	Time          string
	UserAgent     string
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback string, value string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

var funcMap = texttpl.FuncMap{
	"upper":   strings.ToUpper,
	"default": defaultFn,
}

// ---- Template names ----

const (
	PasswordOTP     = "password_otp"
	PasswordChanged = "password_changed"
)

func renderFile(filename string, data any) (string, error) {
	var buf bytes.Buffer
	tpl, err := texttpl.New(filename).Funcs(funcMap).ParseFS(FS, filename)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", filename, err)
	}
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return buf.String(), nil
}

// Render loads and renders the subject and text templates for the given base name.
// Expects: <name>.subject.tmpl, <name>.text.tmpl
func Render(name string, data any) (subject string, text string, err error) {
	subject, err = renderFile(name+".subject.tmpl", data)
	if err != nil {
		return "", "", err
	}
	text, err = renderFile(name+".text.tmpl", data)
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(subject), text, nil
}
