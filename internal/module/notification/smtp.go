package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strconv"

	"go.uber.org/zap"
)

// SMTPConfig holds SMTP configuration.
type SMTPConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	FromAddress string
	FromName    string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends emails via SMTP.
type SMTPSender struct {
	config     *SMTPConfig
	tmpl       *template.Template
	verifyTmpl *template.Template
	sendMail   sendMailFunc
	logger     *zap.Logger
}

// NewSMTPSender creates a new SMTP sender.
func NewSMTPSender(config *SMTPConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		config:     config,
		tmpl:       template.Must(template.New("invitation").Parse(invitationEmailTemplate)),
		verifyTmpl: template.Must(template.New("verification").Parse(verificationEmailTemplate)),
		sendMail:   smtp.SendMail,
		logger:     logger,
	}
}

// SendInvitationEmail implements Sender.
func (s *SMTPSender) SendInvitationEmail(ctx context.Context, email InvitationEmail) error {
	subject := fmt.Sprintf("You're invited to invest in %s", email.ProjectName)
	body, err := render(s.tmpl, email)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}
	return s.send(ctx, email.To, subject, body)
}

// SendVerificationEmail implements VerificationSender.
func (s *SMTPSender) SendVerificationEmail(ctx context.Context, email VerificationEmail) error {
	body, err := render(s.verifyTmpl, email)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}
	return s.send(ctx, email.To, "Confirm your email address", body)
}

// send abandons the SMTP exchange when ctx is done; net/smtp has no context
// support of its own.
func (s *SMTPSender) send(ctx context.Context, to, subject, body string) error {
	msg := s.buildMessage(to, subject, body)
	addr := s.config.Host + ":" + strconv.Itoa(s.config.Port)

	var auth smtp.Auth
	if s.config.User != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.sendMail(addr, auth, s.config.FromAddress, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Error("failed to send email",
				zap.String("to", to),
				zap.String("subject", subject),
				zap.Error(err),
			)
			return fmt.Errorf("send email: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}

	s.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func (s *SMTPSender) buildMessage(to, subject, body string) []byte {
	from := s.config.FromAddress
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", headerSafe(s.config.FromName), s.config.FromAddress)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", headerSafe(to))
	fmt.Fprintf(&buf, "Subject: %s\r\n", headerSafe(subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const invitationEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .button { display: inline-block; padding: 12px 24px; background-color: #0F766E; color: white; text-decoration: none; border-radius: 6px; }
        .message { border-left: 3px solid #ccc; padding-left: 12px; color: #555; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Investor invitation</h1>
        <p>{{.InviterName}} has invited you to join <strong>{{.ProjectName}}</strong> as an investor.</p>
        {{if .Message}}<p class="message">{{.Message}}</p>{{end}}
        <p><a href="{{.Link}}" class="button">Accept Invitation</a></p>
        <p>Or copy and paste this link into your browser:</p>
        <p>{{.Link}}</p>
        <div class="footer">
            <p>If you weren't expecting this invitation, you can safely ignore this email.</p>
        </div>
    </div>
</body>
</html>
`

const verificationEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .button { display: inline-block; padding: 12px 24px; background-color: #0F766E; color: white; text-decoration: none; border-radius: 6px; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Confirm your email</h1>
        <p>Hi{{if .Name}} {{.Name}}{{end}}, please confirm this address to finish setting up your account.</p>
        <p><a href="{{.Link}}" class="button">Confirm Email</a></p>
        <p>Or copy and paste this link into your browser:</p>
        <p>{{.Link}}</p>
        <div class="footer">
            <p>If you didn't create an account, you can safely ignore this email.</p>
        </div>
    </div>
</body>
</html>
`
