package notifier

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/user/gunvortv/internal/config"
	"github.com/user/gunvortv/internal/logging"
	gomail "gopkg.in/mail.v2"
)

// Notifier delivers account emails
type Notifier interface {
	SendPasswordReset(to, displayName, link string) error
}

var resetTemplate = template.Must(template.New("reset").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}} - Reset your password</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
    <p>We received a request to reset the password for your {{.SiteName}} account.</p>
    <p><a href="{{.Link}}">Choose a new password</a></p>
    <p>The link expires in {{.TTL}}. If you did not ask for this, you can ignore this email.</p>
</body>
</html>
`))

// EmailNotifier sends mail over SMTP
type EmailNotifier struct {
	from     string
	siteName string
	ttl      string
	send     func(m *gomail.Message) error
}

// NewEmailNotifier returns a LogNotifier when SMTP is not configured
func NewEmailNotifier(cfg *config.Config) Notifier {
	if !cfg.SMTP.Enabled() {
		logging.Warn().Msg("[Notifier] SMTP not configured, reset links will only be logged")
		return LogNotifier{}
	}
	d := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	return &EmailNotifier{
		from:     cfg.SMTP.From,
		siteName: cfg.SiteName,
		ttl:      cfg.ResetTokenTTL.String(),
		send: func(m *gomail.Message) error {
			return d.DialAndSend(m)
		},
	}
}

// SendPasswordReset mails the reset link in plain text and HTML
func (n *EmailNotifier) SendPasswordReset(to, displayName, link string) error {
	data := struct {
		SiteName string
		Name     string
		Link     string
		TTL      string
	}{n.siteName, displayName, link, n.ttl}

	var html bytes.Buffer
	if err := resetTemplate.Execute(&html, data); err != nil {
		return fmt.Errorf("render reset email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("%s: reset your password", n.siteName))
	m.SetBody("text/plain", fmt.Sprintf(
		"We received a request to reset your %s password.\n\n"+
			"Open this link to choose a new one (valid for %s):\n%s\n\n"+
			"If you did not ask for this, ignore this email.",
		n.siteName, n.ttl, link))
	m.AddAlternative("text/html", html.String())

	if err := n.send(m); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	logging.Info().Str("to", to).Msg("[Notifier] password reset email sent")
	return nil
}

// LogNotifier development fallback that logs instead of sending
type LogNotifier struct{}

func (LogNotifier) SendPasswordReset(to, displayName, link string) error {
	logging.Info().Str("to", to).Str("link", link).Msg("[Notifier] password reset requested")
	return nil
}
