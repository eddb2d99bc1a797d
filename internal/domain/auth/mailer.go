package auth

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// Mailer delivers the login link to the user.
type Mailer interface {
	SendLoginLink(to, link string) error
}

type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from}
}

func (m *SMTPMailer) SendLoginLink(to, link string) error {
	subject := "Your sign-in link"
	body := fmt.Sprintf("Click the link below to sign in. It expires shortly and works once.\r\n\r\n%s\r\n", link)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s", m.from, to, subject, body))

	addr := m.host + ":" + m.port
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send login mail: %w", err)
	}
	return nil
}

// LogMailer writes the link to the log instead of sending it.
// Used in development when SMTP is not configured.
type LogMailer struct {
	log *zap.SugaredLogger
}

func NewLogMailer(log *zap.SugaredLogger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendLoginLink(to, link string) error {
	m.log.Infow("login link (smtp disabled)", "to", to, "link", link)
	return nil
}
