package common

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPEmail sends mail through a plain SMTP relay.
type SMTPEmail struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Send implements EmailSender.
func (s SMTPEmail) Send(to, subject, html string) error {
	if s.Host == "" || s.From == "" {
		return fmt.Errorf("smtp: sender not configured")
	}
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.WriteString(html)
	return smtp.SendMail(addr, auth, s.From, []string{to}, []byte(msg.String()))
}
