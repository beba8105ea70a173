package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// ErrNoToken is returned when neither the environment nor the token file
// holds an OAuth token. Tokens must be generated out of band.
var ErrNoToken = errors.New("no Gmail OAuth token found")

// getClient returns an HTTP client authorized with a stored token.
func getClient(ctx context.Context, config *oauth2.Config, tokenJSON []byte, tokenFile string) (*http.Client, error) {
	tok, err := loadToken(tokenJSON, tokenFile)
	if err != nil {
		return nil, err
	}
	return config.Client(ctx, tok), nil
}

// loadToken prefers the inline JSON (deployment friendly) and falls back to
// the token file (local development).
func loadToken(tokenJSON []byte, tokenFile string) (*oauth2.Token, error) {
	if len(tokenJSON) > 0 {
		tok := &oauth2.Token{}
		if err := json.Unmarshal(tokenJSON, tok); err != nil {
			return nil, errors.Wrap(err, "unmarshal Gmail token")
		}
		return tok, nil
	}

	if tokenFile == "" {
		return nil, ErrNoToken
	}
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoToken
		}
		return nil, errors.Wrapf(err, "read token file %s", tokenFile)
	}
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
