package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed templates
var templateFS embed.FS

type catalog struct {
	Dir      string `yaml:"dir"`
	Subject  string `yaml:"subject"`
	Greeting string `yaml:"greeting"`
	Body     string `yaml:"body"`
	Listing  string `yaml:"listing"`
	Signoff  string `yaml:"signoff"`
	Team     string `yaml:"team"`
}

// AckData feeds the acknowledgement catalog lines.
type AckData struct {
	Name         string
	ListingTitle string
	ListingURL   string
}

type RenderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

// Localizer picks the acknowledgement language and renders it.
type Localizer struct {
	fallback string
	codes    []string
	matcher  language.Matcher
	catalogs map[string]catalog
	ackHTML  *htmltemplate.Template
	ackText  *texttemplate.Template
}

// NewLocalizer fails when a supported language has no catalog entry, so a
// missing translation is caught at startup rather than at send time.
func NewLocalizer(supported []string, fallback string) (*Localizer, error) {
	raw, err := templateFS.ReadFile("templates/messages.yaml")
	if err != nil {
		return nil, err
	}
	catalogs := map[string]catalog{}
	if err := yaml.Unmarshal(raw, &catalogs); err != nil {
		return nil, fmt.Errorf("parse message catalog: %w", err)
	}

	codes := []string{fallback}
	for _, code := range supported {
		if code != fallback {
			codes = append(codes, code)
		}
	}
	tags := make([]language.Tag, 0, len(codes))
	for _, code := range codes {
		if _, ok := catalogs[code]; !ok {
			return nil, fmt.Errorf("no acknowledgement catalog for language %q", code)
		}
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("language %q: %w", code, err)
		}
		tags = append(tags, tag)
	}

	ackHTML, err := htmltemplate.ParseFS(templateFS, "templates/ack.html")
	if err != nil {
		return nil, err
	}
	ackText, err := texttemplate.ParseFS(templateFS, "templates/ack.txt")
	if err != nil {
		return nil, err
	}

	return &Localizer{
		fallback: fallback,
		codes:    codes,
		matcher:  language.NewMatcher(tags),
		catalogs: catalogs,
		ackHTML:  ackHTML,
		ackText:  ackText,
	}, nil
}

// Match maps a preferred language (a code or an Accept-Language value) to a
// supported one, falling back to the default.
func (l *Localizer) Match(preferred string) string {
	preferred = strings.TrimSpace(preferred)
	if preferred == "" {
		return l.fallback
	}
	tags, _, err := language.ParseAcceptLanguage(preferred)
	if err != nil || len(tags) == 0 {
		return l.fallback
	}
	_, idx, conf := l.matcher.Match(tags...)
	if conf == language.No {
		return l.fallback
	}
	return l.codes[idx]
}

func (l *Localizer) RenderAck(lang string, data AckData) (RenderedEmail, error) {
	c, ok := l.catalogs[lang]
	if !ok {
		c = l.catalogs[l.fallback]
	}

	line := func(s string) (string, error) {
		t, err := texttemplate.New("line").Parse(s)
		if err != nil {
			return "", err
		}
		var b bytes.Buffer
		if err := t.Execute(&b, data); err != nil {
			return "", err
		}
		return b.String(), nil
	}

	subject, err := line(c.Subject)
	if err != nil {
		return RenderedEmail{}, fmt.Errorf("render subject: %w", err)
	}
	greeting, err := line(c.Greeting)
	if err != nil {
		return RenderedEmail{}, fmt.Errorf("render greeting: %w", err)
	}
	var listing string
	if data.ListingTitle != "" {
		if listing, err = line(c.Listing); err != nil {
			return RenderedEmail{}, fmt.Errorf("render listing line: %w", err)
		}
	}

	view := struct {
		Dir, Greeting, Body, Listing, ListingURL, Signoff, Team string
	}{c.Dir, greeting, c.Body, listing, data.ListingURL, c.Signoff, c.Team}

	var html, text bytes.Buffer
	if err := l.ackHTML.Execute(&html, view); err != nil {
		return RenderedEmail{}, fmt.Errorf("render ack html: %w", err)
	}
	if err := l.ackText.Execute(&text, view); err != nil {
		return RenderedEmail{}, fmt.Errorf("render ack text: %w", err)
	}
	return RenderedEmail{Subject: subject, HTML: html.String(), Text: text.String()}, nil
}
