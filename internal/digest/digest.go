// Package digest emails a summary of contacts added since the previous run.
package digest

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/drumil/phonebook/internal/contact"
	"github.com/drumil/phonebook/internal/mailer"
	"github.com/drumil/phonebook/internal/store"
)

type Job struct {
	store   store.Store
	sender  mailer.Sender
	to      []string
	subject string
	log     zerolog.Logger
	md      goldmark.Markdown
	now     func() time.Time

	mu   sync.Mutex
	sent int // number of store entries already covered by a digest
}

func NewJob(s store.Store, sender mailer.Sender, to []string, subject string, log zerolog.Logger) *Job {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
		),
	)

	return &Job{
		store:   s,
		sender:  sender,
		to:      to,
		subject: subject,
		log:     log.With().Str("component", "digest").Logger(),
		md:      md,
		now:     time.Now,
	}
}

// Run sends one digest covering every contact added since the last
// successful run. Nothing is sent when there are no new contacts. The
// cursor only advances after the sender succeeds.
func (j *Job) Run(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	all, err := j.store.All(ctx)
	if err != nil {
		return errors.Wrap(err, "digest: reading contacts")
	}
	if len(all) <= j.sent {
		j.log.Debug().Msg("No new contacts. Skipping.")
		return nil
	}
	fresh := all[j.sent:]

	body, err := j.render(fresh)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s - %s", j.subject, j.now().Format("Jan 02, 2006"))
	j.log.Info().Int("contacts", len(fresh)).Int("recipients", len(j.to)).Msg("Sending digest")
	if err := j.sender.Send(j.to, subject, body); err != nil {
		return errors.Wrap(err, "digest: sending")
	}

	j.sent = len(all)
	return nil
}

// RunLogged is Run for callers with nowhere to return an error, such as
// the scheduler and the manual trigger.
func (j *Job) RunLogged(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.log.Error().Err(err).Msg("Digest failed")
	}
}

func (j *Job) render(contacts []contact.Contact) (string, error) {
	var buf bytes.Buffer
	if err := j.md.Convert([]byte(markdown(contacts)), &buf); err != nil {
		return "", errors.Wrap(err, "digest: markdown conversion failed")
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<style>
	body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }
	h1 { color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px; }
	table { border-collapse: collapse; width: 100%%; }
	th, td { border: 1px solid #ddd; padding: 6px 10px; text-align: left; }
</style>
</head>
<body>
%s
</body>
</html>`, buf.String()), nil
}

func markdown(contacts []contact.Contact) string {
	var b strings.Builder
	noun := "contacts"
	if len(contacts) == 1 {
		noun = "contact"
	}
	fmt.Fprintf(&b, "# %d new %s\n\n", len(contacts), noun)
	b.WriteString("| Name | Phone | Email | Added |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, c := range contacts {
		added := ""
		if !c.AddedAt.IsZero() {
			added = c.AddedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			escapeCell(c.Name), escapeCell(c.Phone), escapeCell(c.Email), added)
	}
	return b.String()
}

var cellEscaper = strings.NewReplacer(
	`\`, `\\`, "|", `\|`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`, "#", `\#`,
	"\r", " ", "\n", " ",
)

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}
