package digest

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"regexp"
	texttemplate "text/template"

	"github.com/russross/blackfriday/v2"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/email.html.tmpl"))
	textTmpl = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/email.txt.tmpl"))
)

// Item is one idea as it appears in the email.
type Item struct {
	Heading string
	Color   string
	Content string
	Link    string
	Body    htmltemplate.HTML
}

type emailData struct {
	Date  string
	Items []Item
}

var cssColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{3,6}$`)

// markdownToHTML renders model output. Raw HTML in the input is dropped so
// generated text cannot inject markup into the email.
func markdownToHTML(md string) htmltemplate.HTML {
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags | blackfriday.SkipHTML | blackfriday.SkipImages,
	})
	out := blackfriday.Run([]byte(md),
		blackfriday.WithRenderer(renderer),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
	)
	return htmltemplate.HTML(out)
}

func render(date string, items []Item) (html, text string, err error) {
	for i := range items {
		items[i].Body = markdownToHTML(items[i].Content)
		if !cssColorRe.MatchString(items[i].Color) {
			items[i].Color = "#2c5aa0"
		}
	}
	data := emailData{Date: date, Items: items}

	var hb, tb bytes.Buffer
	if err := htmlTmpl.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := textTmpl.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
