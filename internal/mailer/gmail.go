package mailer

import (
	"context"
	"encoding/base64"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

type GmailMailer struct {
	Service *gmail.Service
	Sender  string

	log zerolog.Logger
}

// NewGmailMailer builds a Gmail API client from OAuth client credentials
// and a previously issued token (inline JSON or a token file).
func NewGmailMailer(ctx context.Context, senderEmail string, credentialsJSON, tokenJSON []byte, tokenFile string, log zerolog.Logger) (*GmailMailer, error) {
	config, err := google.ConfigFromJSON(credentialsJSON, gmail.GmailSendScope)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse client secret file to config")
	}

	client, err := getClient(ctx, config, tokenJSON, tokenFile)
	if err != nil {
		return nil, err
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, errors.Wrap(err, "unable to retrieve Gmail client")
	}

	return &GmailMailer{
		Service: srv,
		Sender:  senderEmail,
		log:     log.With().Str("component", "gmail").Logger(),
	}, nil
}

func (m *GmailMailer) Send(to []string, subject, bodyHTML string) error {
	if len(to) == 0 {
		return nil
	}

	errs := sendErrors{total: len(to)}
	for _, recipient := range to {
		message := gmail.Message{
			// Gmail API requires base64url encoding
			Raw: base64.URLEncoding.EncodeToString([]byte(buildMIME(m.Sender, recipient, subject, bodyHTML))),
		}

		if _, err := m.Service.Users.Messages.Send("me", &message).Do(); err != nil {
			m.log.Error().Err(err).Str("to", recipient).Msg("Failed to send email via API")
			errs.add(recipient, err)
			continue
		}
		m.log.Info().Str("to", recipient).Msg("Email sent via API")
	}
	return errs.err()
}
