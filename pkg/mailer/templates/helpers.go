package templates

import (
	"time"
)

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		d.Time = t.UTC().Format("02 January 2006, 15:04 MST")
	}
}

// WithExpiry records both the absolute expiry and the remaining duration.
func WithExpiry(now time.Time, ttl time.Duration) Option {
	return func(d *EmailData) {
		utc := now.Add(ttl).UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04 MST")
		d.ExpiresInText = ttl.Round(time.Minute).String()
	}
}

// Brand carries the company fields every email shares.
type Brand struct {
	AppName     string
	CompanyName string
	SupportURL  string
}

func newBaseEmailData(b Brand, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:        name,
		Email:       email,
		Type:        typ,
		AppName:     b.AppName,
		CompanyName: b.CompanyName,
		SupportURL:  b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewPasswordOTPData(b Brand, name, email, code string, opts ...Option) EmailData {
	d := newBaseEmailData(b, PasswordOTP, name, email, opts...)
	d.Code = code
	return d
}

func NewPasswordChangedData(b Brand, name, email string, opts ...Option) EmailData {
	return newBaseEmailData(b, PasswordChanged, name, email, opts...)
}
