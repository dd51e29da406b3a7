package email

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"eventrsvp/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// Each email is three files in templates/: <name>_subject.txt, <name>.txt and <name>.html.
// The sets are parsed once; a broken template fails at startup rather than on first send.
var (
	htmlSet = template.Must(template.New("email").
		Funcs(template.FuncMap{"safeURL": safeURL}).
		ParseFS(templateFS, "templates/*.html"))
	textSet = texttemplate.Must(texttemplate.New("email").ParseFS(templateFS, "templates/*.txt"))
)

type templateRenderer struct {
	html *template.Template
	text *texttemplate.Template
}

// NewTemplateRenderer returns an EmailTemplateRenderer backed by the embedded templates.
func NewTemplateRenderer() domain.EmailTemplateRenderer {
	return &templateRenderer{html: htmlSet, text: textSet}
}

// Render executes the subject, html and text parts of the named email.
func (r *templateRenderer) Render(name string, data any) (subject, htmlBody, textBody string, err error) {
	var sb, hb, tb strings.Builder
	if err := r.text.ExecuteTemplate(&sb, name+"_subject.txt", data); err != nil {
		return "", "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := r.html.ExecuteTemplate(&hb, name+".html", data); err != nil {
		return "", "", "", fmt.Errorf("render %s html: %w", name, err)
	}
	if err := r.text.ExecuteTemplate(&tb, name+".txt", data); err != nil {
		return "", "", "", fmt.Errorf("render %s text: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), hb.String(), tb.String(), nil
}

// safeURL admits only PNG data URIs into src attributes.
func safeURL(s string) template.URL {
	if strings.HasPrefix(s, "data:image/png;base64,") {
		return template.URL(s)
	}
	return ""
}
