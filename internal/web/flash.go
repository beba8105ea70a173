package web

import (
	"net/http"

	"github.com/samber/mo"

	"github.com/drumil/phonebook/internal/contact"
)

const warningCookie = "phonebook_warning"

// setWarning queues w for the next render. The cookie carries only the
// warning code; the text is looked up when rendering.
func setWarning(w http.ResponseWriter, warning contact.Warning) {
	http.SetCookie(w, &http.Cookie{
		Name:     warningCookie,
		Value:    string(warning),
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// consumeWarning returns the pending warning, if any, and clears it so it
// is shown exactly once. Unknown codes are cleared and ignored.
func consumeWarning(w http.ResponseWriter, r *http.Request) mo.Option[contact.Warning] {
	c, err := r.Cookie(warningCookie)
	if err != nil {
		return mo.None[contact.Warning]()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     warningCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	warning, ok := contact.ParseWarning(c.Value)
	if !ok {
		return mo.None[contact.Warning]()
	}
	return mo.Some(warning)
}
