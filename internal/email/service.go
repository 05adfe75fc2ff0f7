package email

import (
	"fmt"
	"net/smtp"
)

// Sender delivers one message. *Service satisfies it.
type Sender interface {
	SendWelcome(to, name string) error
}

// Service handles email sending via SMTP
type Service struct {
	host     string
	port     string
	from     string
	storeURL string
}

// NewService creates a new email service
func NewService(host, port, from, storeURL string) *Service {
	return &Service{
		host:     host,
		port:     port,
		from:     from,
		storeURL: storeURL,
	}
}

// SendWelcome greets a newly registered shopper.
func (s *Service) SendWelcome(to, name string) error {
	subject := "Welcome to the store"
	return s.send(to, subject, BuildWelcomeBody(name, s.storeURL))
}

func (s *Service) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, BuildMessage(s.from, to, subject, body))
}

// BuildMessage renders the raw RFC 5322 message handed to the SMTP server.
func BuildMessage(from, to, subject, body string) []byte {
	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body))
}
