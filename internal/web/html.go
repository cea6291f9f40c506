package web

import (
	"embed"
	"html/template"

	"github.com/zombor/scanly/internal/receipt"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/app.css
var appCSS []byte

var funcs = template.FuncMap{
	"money":         receipt.FormatMoney,
	"date":          displayDate,
	"hasCategories": receipt.HasCategories,
}

var pages = parsePages(
	"home.html",
	"login.html",
	"signup.html",
	"history.html",
	"receipt.html",
	"notfound.html",
)

// parsePages parses each page together with the shared layout
func parsePages(names ...string) map[string]*template.Template {
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		out[name] = template.Must(template.New(name).Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return out
}

func displayDate(d receipt.Date) string {
	if !d.Valid() {
		return "N/A"
	}
	return d.String()
}
