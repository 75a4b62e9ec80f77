package mail

import (
	"context"
	"fmt"
	"mime"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// SMTPConfig настройки SMTP сервера
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender отправляет письма через SMTP
type SMTPSender struct {
	addr     string
	auth     smtp.Auth
	from     string
	fromName string
	sendMail sendMailFunc
}

// NewSMTPSender создает отправителя SMTP
// Без имени пользователя отправка идет без авторизации
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	s := &SMTPSender{
		addr:     net.JoinHostPort(strings.TrimSpace(cfg.Host), strconv.Itoa(cfg.Port)),
		from:     strings.TrimSpace(cfg.From),
		fromName: cfg.FromName,
		sendMail: smtp.SendMail,
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return s
}

// Send отправляет письмо
func (s *SMTPSender) Send(ctx context.Context, msg domain.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body := buildMessage(s.from, s.fromName, msg)
	if err := s.sendMail(s.addr, s.auth, s.from, []string{msg.Recipient}, body); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

func buildMessage(from, fromName string, msg domain.EmailMessage) []byte {
	fromHeader := (&netmail.Address{Name: fromName, Address: from}).String()
	toHeader := (&netmail.Address{Name: msg.RecipientName, Address: msg.Recipient}).String()

	var b strings.Builder
	b.WriteString("From: " + fromHeader + "\r\n")
	b.WriteString("To: " + toHeader + "\r\n")
	b.WriteString("Subject: " + mime.BEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTMLBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}
