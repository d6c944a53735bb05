package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"net/url"
	"strings"
	"time"
)

type IMailService interface {
	SendPaymentFailure(to, plan, reason string) error
	SendPasswordReset(to, token string) error
	SendUnlockNotice(to, token string) error
}

// SMTPConfig holds SMTP + branding config.
type SMTPConfig struct {
	Host     string // e.g. "smtp.gmail.com"
	Port     int    // 587 for STARTTLS
	Username string
	Password string
	From     string
	FromName string

	AppName    string
	AppBaseURL string
}

type smtpMailService struct {
	cfg     SMTPConfig
	tlsCfg  *tls.Config
	htmlTpl *template.Template
	textTpl *template.Template
}

func NewSMTPMailService(cfg SMTPConfig) (IMailService, error) {
	return &smtpMailService{
		cfg:     cfg,
		tlsCfg:  &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
		htmlTpl: template.Must(template.New("html").Parse(baseHTMLTemplate)),
		textTpl: template.Must(template.New("text").Parse(plainTextTemplate)),
	}, nil
}

func (s *smtpMailService) SendPaymentFailure(to, plan, reason string) error {
	subject := "Your subscription payment failed"
	return s.deliver(to, subject, emailData{
		Title: subject,
		Intro: fmt.Sprintf(
			"We could not process the payment for your %s plan (%s). "+
				"Automatic billing has been paused; please update your payment method and re-enable billing.",
			plan, reason),
		ButtonURL: s.link("/settings/billing", ""),
		ButtonTxt: "Update payment method",
	})
}

func (s *smtpMailService) SendPasswordReset(to, token string) error {
	subject := "Reset your password"
	return s.deliver(to, subject, emailData{
		Title:     subject,
		Intro:     "We received a request to reset your password. If you didn't request this, you can ignore this email.",
		ButtonURL: s.link("/reset-password", token),
		ButtonTxt: "Reset password",
	})
}

func (s *smtpMailService) SendUnlockNotice(to, token string) error {
	subject := "Your account has been locked"
	return s.deliver(to, subject, emailData{
		Title:     subject,
		Intro:     "Too many failed login attempts. Use the link below to unlock your account.",
		ButtonURL: s.link("/unlock-account", token),
		ButtonTxt: "Unlock account",
	})
}

type emailData struct {
	Title     string
	Intro     string
	ButtonURL string
	ButtonTxt string
	AppName   string
	Year      int
}

func (s *smtpMailService) link(path, token string) string {
	base := strings.TrimRight(s.cfg.AppBaseURL, "/") + path
	if token == "" {
		return base
	}
	return base + "?token=" + url.QueryEscape(token)
}

func (s *smtpMailService) deliver(to, subject string, data emailData) error {
	data.AppName = s.cfg.AppName
	data.Year = time.Now().Year()

	var hb, tb bytes.Buffer
	if err := s.htmlTpl.Execute(&hb, data); err != nil {
		return err
	}
	if err := s.textTpl.Execute(&tb, data); err != nil {
		return err
	}
	return s.send(to, subject, hb.String(), tb.String())
}

func (s *smtpMailService) send(to, subject, htmlBody, textBody string) error {
	date := time.Now().Format(time.RFC1123Z)
	boundary := fmt.Sprintf("mixed_%d", time.Now().UnixNano())

	var msg bytes.Buffer
	write := func(format string, a ...any) { _, _ = msg.WriteString(fmt.Sprintf(format, a...)) }

	write("From: %s <%s>\r\n", s.cfg.FromName, s.cfg.From)
	write("To: %s\r\n", to)
	write("Subject: %s\r\n", subject)
	write("Date: %s\r\n", date)
	write("MIME-Version: 1.0\r\n")
	write("Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	write("\r\n")

	write("--%s\r\n", boundary)
	write("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	write("%s\r\n\r\n", textBody)

	write("--%s\r\n", boundary)
	write("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	write("%s\r\n\r\n", htmlBody)

	write("--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	// STARTTLS path (port 587)
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Quit()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err = c.StartTLS(s.tlsCfg); err != nil {
			return err
		}
	}
	if err = c.Auth(auth); err != nil {
		return err
	}
	if err = c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err = c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg.Bytes()); err != nil {
		return err
	}
	return w.Close()
}

const baseHTMLTemplate = `<!doctype html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body style="margin:0;padding:24px;background:#f8fafc;font-family:-apple-system,'Segoe UI',Roboto,sans-serif;color:#0f172a">
  <div style="max-width:600px;margin:0 auto;background:#ffffff;border-radius:12px;padding:32px">
    <div style="font-weight:700;font-size:20px;color:#2563eb">{{.AppName}}</div>
    <h1 style="font-size:24px">{{.Title}}</h1>
    <p style="line-height:1.7;color:#475569">{{.Intro}}</p>
    {{if .ButtonURL}}
      <p><a href="{{.ButtonURL}}" style="display:inline-block;padding:14px 28px;background:#2563eb;color:#ffffff;border-radius:8px;text-decoration:none">{{.ButtonTxt}}</a></p>
      <p style="color:#64748b;font-size:13px">If the button doesn't work, open this link: <a href="{{.ButtonURL}}">{{.ButtonURL}}</a></p>
    {{end}}
    <p style="color:#64748b;font-size:13px">&copy; {{.Year}} {{.AppName}}. All rights reserved.</p>
  </div>
</body>
</html>`

const plainTextTemplate = `{{.Title}}

{{.Intro}}

{{if .ButtonURL}}Open this link:
{{.ButtonURL}}
{{end}}

- {{.AppName}} (c) {{.Year}}
`
