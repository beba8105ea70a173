// Package mailer delivers HTML email through SMTP or the Gmail API.
package mailer

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Sender sends one HTML message to each recipient individually.
type Sender interface {
	Send(to []string, subject, bodyHTML string) error
}

// sendErrors collects per-recipient failures so one bad address does not
// stop delivery to the rest.
type sendErrors struct {
	total  int
	failed []string
	first  error
}

func (e *sendErrors) add(recipient string, err error) {
	if e.first == nil {
		e.first = err
	}
	e.failed = append(e.failed, recipient)
}

func (e *sendErrors) err() error {
	if len(e.failed) == 0 {
		return nil
	}
	return errors.Wrapf(e.first, "failed to send to %d of %d recipients (%s)",
		len(e.failed), e.total, strings.Join(e.failed, ", "))
}

// buildMIME renders a single-part HTML message as raw RFC 5322 text.
func buildMIME(from, to, subject, bodyHTML string) string {
	return fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
		"\r\n"+
		"%s", from, to, subject, bodyHTML)
}
