// Package web serves the phonebook page and its form handlers.
package web

import (
	"bytes"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/drumil/phonebook/internal/contact"
	"github.com/drumil/phonebook/internal/store"
)

type Handler struct {
	store   store.Store
	variant contact.Variant
	log     zerolog.Logger
	now     func() time.Time

	trigger      func()
	cronSecret   string
	triggerRoute bool
}

type Option func(*Handler)

// WithTrigger exposes GET /trigger-now, which runs job in the background
// when the request's key matches secret.
func WithTrigger(secret string, job func()) Option {
	return func(h *Handler) {
		h.trigger = job
		h.cronSecret = secret
		h.triggerRoute = true
	}
}

func New(s store.Store, variant contact.Variant, log zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		store:   s,
		variant: variant,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the HTTP handler for the whole application.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("POST /add", h.add)
	if h.triggerRoute {
		mux.HandleFunc("GET /trigger-now", h.triggerNow)
	}
	return withRequestLog(h.log, mux)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	contacts, err := h.store.All(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list contacts")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data := indexData{
		Contacts:  contacts,
		ShowEmail: h.variant.HasEmail(),
	}
	if warning, ok := consumeWarning(w, r).Get(); ok {
		data.Warning = warning.Message()
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		log.Error().Err(err).Msg("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	fields := []string{"name", "phone"}
	if h.variant.HasEmail() {
		fields = append(fields, "email")
	}
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		v, ok := r.PostForm[f]
		if !ok || len(v) == 0 {
			log.Debug().Str("field", f).Msg("Missing form field")
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		values[f] = v[0]
	}

	c := contact.Contact{
		Name:    values["name"],
		Phone:   values["phone"],
		Email:   values["email"],
		AddedAt: h.now(),
	}

	if warning, ok := contact.Validate(h.variant, c); !ok {
		log.Info().Str("warning", string(warning)).Msg("Rejected contact")
		setWarning(w, warning)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if err := h.store.Add(r.Context(), c); err != nil {
		log.Error().Err(err).Msg("Failed to add contact")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Info().Str("name", c.Name).Msg("New contact")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) triggerNow(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	if h.cronSecret == "" {
		log.Error().Msg("CRON_SECRET is not set. Manual trigger disabled.")
		http.Error(w, "Configuration error", http.StatusInternalServerError)
		return
	}
	inputKey := r.URL.Query().Get("key")
	if subtle.ConstantTimeCompare([]byte(inputKey), []byte(h.cronSecret)) != 1 {
		log.Warn().Msg("Auth failed: Invalid key provided")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	go h.trigger()
	log.Info().Msg("Manual trigger received. Starting digest job...")
	_, _ = w.Write([]byte("Job triggered manually"))
}
