package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Sender — минимальная способность отправки писем. Вызывающие стороны
// не зависят от SMTP напрямую и в тестах подменяют отправителя фейком.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPMailer отправляет письма через обычный SMTP с PLAIN-аутентификацией.
type SMTPMailer struct {
	host     string
	port     int
	from     string
	username string
	password string
}

// New создаёт SMTP-отправителя. Пустой username отключает аутентификацию
// (локальный relay в разработке).
func New(host string, port int, from, username, password string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		from:     from,
		username: username,
		password: password,
	}
}

// Send синхронно отправляет письмо одному получателю.
func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var msg strings.Builder
	msg.WriteString("From: " + m.from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}
