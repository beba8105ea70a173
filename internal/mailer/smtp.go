package mailer

import (
	"crypto/tls"
	"fmt"

	"github.com/go-mail/mail/v2"
	"github.com/rs/zerolog"
)

type dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string

	log    zerolog.Logger
	dialer dialer
}

func NewSMTPMailer(host string, port int, user, pass, sender string, log zerolog.Logger) *SMTPMailer {
	d := mail.NewDialer(host, port, user, pass)
	// Port 465 uses implicit TLS; 587 upgrades with STARTTLS.
	d.TLSConfig = &tls.Config{ServerName: host}

	return &SMTPMailer{
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		Sender:   sender,
		log:      log.With().Str("component", "smtp").Logger(),
		dialer:   d,
	}
}

func (m *SMTPMailer) Send(to []string, subject, bodyHTML string) error {
	if len(to) == 0 {
		return nil
	}

	errs := sendErrors{total: len(to)}
	// Send individually to hide recipients from each other
	for _, recipient := range to {
		msg := mail.NewMessage()
		msg.SetHeader("From", fmt.Sprintf("Phonebook <%s>", m.Sender))
		msg.SetHeader("To", recipient)
		msg.SetHeader("Subject", subject)
		msg.SetBody("text/html", bodyHTML)

		if err := m.dialer.DialAndSend(msg); err != nil {
			m.log.Error().Err(err).Str("to", recipient).Msg("Failed to send email")
			errs.add(recipient, err)
			continue
		}
		m.log.Info().Str("to", recipient).Msg("Email sent")
	}
	return errs.err()
}
