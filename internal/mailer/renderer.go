package mailer

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/template/django/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.django
var templateFS embed.FS

var ErrUnknownTemplate = errors.New("unknown mail template")

// Message is a rendered email ready for a Sender.
type Message struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

// Renderer turns a template name and data into a localized Message.
type Renderer struct {
	from    string
	lang    language.Tag
	printer *message.Printer
	engine  *django.Engine
}

// NewRenderer loads the embedded layouts for the given sender address and language.
func NewRenderer(from, lang string) (*Renderer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("mail templates: %w", err)
	}
	engine := django.NewFileSystem(http.FS(sub), ".django")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load mail templates: %w", err)
	}

	tag := MatchLanguage(lang)
	return &Renderer{
		from:    from,
		lang:    tag,
		printer: message.NewPrinter(tag),
		engine:  engine,
	}, nil
}

// Language returns the language messages are rendered in.
func (r *Renderer) Language() language.Tag {
	return r.lang
}

// Render builds the message for one recipient.
func (r *Renderer) Render(to string, tpl Template, data TemplateData) (Message, error) {
	name, ok := templateFiles[tpl]
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, tpl)
	}

	prefix := "mail." + name + "."
	binding := map[string]interface{}{
		"lang":    r.lang.String(),
		"heading": r.printer.Sprintf(prefix + "heading"),
		"intro":   r.printer.Sprintf(prefix+"intro", to),
		"cta":     r.printer.Sprintf(prefix + "cta"),
		"link":    actionLink(data),
		"footer":  r.printer.Sprintf("mail.footer"),
	}
	if tpl == TemplateResetPassword {
		binding["ignore"] = r.printer.Sprintf(prefix + "ignore")
	}

	var body bytes.Buffer
	if err := r.engine.Render(&body, name, binding); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}

	return Message{
		From:     r.from,
		To:       to,
		Subject:  r.printer.Sprintf(prefix + "subject"),
		HTMLBody: body.String(),
	}, nil
}

func actionLink(data TemplateData) string {
	return strings.TrimRight(data.UIURL, "/") + "/actions/" + url.PathEscape(data.ActionID)
}
