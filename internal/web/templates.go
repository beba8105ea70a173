package web

import (
	"embed"
	"html/template"

	"github.com/drumil/phonebook/internal/contact"
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type indexData struct {
	Contacts  []contact.Contact
	ShowEmail bool
	Warning   string
}
