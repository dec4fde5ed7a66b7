package email

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/go-mail/mail"
	"github.com/rs/zerolog/log"
)

type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	ReplyTo  string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPSender struct {
	Host string
	Port int
	From string
	User string
	Pass string
	// SSL selects implicit TLS (port 465). Otherwise STARTTLS is negotiated when offered.
	SSL bool
}

func NewSMTPSender(host string, port int, from, user, pass string) *SMTPSender {
	return &SMTPSender{
		Host: host,
		Port: port,
		From: from,
		User: user,
		Pass: pass,
		SSL:  port == 465,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := buildMessage(s.From, msg)

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{ServerName: s.Host}
	d.SSL = s.SSL

	log.Debug().
		Str("host", s.Host).
		Int("port", s.Port).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("sending email")

	if err := d.DialAndSend(m); err != nil {
		log.Error().Err(err).Str("to", msg.To).Msg("smtp send failed")
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildMessage(from string, msg Message) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}

	// multipart/alternative when both bodies are present
	if msg.TextBody != "" {
		m.SetBody("text/plain", msg.TextBody)
	}
	if msg.HTMLBody != "" {
		if msg.TextBody == "" {
			m.SetBody("text/html", msg.HTMLBody)
		} else {
			m.AddAlternative("text/html", msg.HTMLBody)
		}
	}
	return m
}
