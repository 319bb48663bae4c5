package notify

import (
	"fmt"
	"net/smtp"

	"github.com/example/marketplace/internal/event"
)

// Service sends buyer notifications via SMTP.
type Service struct {
	host string
	port string
	from string
}

func NewService(host, port, from string) *Service {
	return &Service{host: host, port: port, from: from}
}

// SendOrderConfirmation mails the buyer their share of a checkout.
func (s *Service) SendOrderConfirmation(to string, e event.OrderEvent) error {
	subject := fmt.Sprintf("Order %s confirmed", e.FormattedID)
	body := BuildOrderConfirmationBody(e)
	return s.send(to, subject, body)
}

// SendOrderCanceled mails the buyer that a store canceled their order.
func (s *Service) SendOrderCanceled(to string, e event.OrderEvent) error {
	subject := fmt.Sprintf("Order %s canceled", e.FormattedID)
	body := BuildOrderCanceledBody(e)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
