// Package richtext renders Prismic structured text as HTML and plain text.
package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/a-h/templ"
)

// RichText is an ordered list of blocks as stored by the content service.
type RichText []Block

// Block is a paragraph, heading, list item, preformatted text, image or embed.
type Block struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	Spans      []Span      `json:"spans,omitempty"`
	URL        string      `json:"url,omitempty"`
	Alt        *string     `json:"alt,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	LinkTo     *Link       `json:"linkTo,omitempty"`
	Oembed     *Oembed     `json:"oembed,omitempty"`
}

// Span marks up Text[Start:End]. Offsets count UTF-16 code units.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Type  string `json:"type"`
	Data  *Link  `json:"data,omitempty"`
}

// Link is the payload of hyperlink spans, image links and label spans.
type Link struct {
	LinkType string `json:"link_type,omitempty"` // Web, Document, Media
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
	ID       string `json:"id,omitempty"`
	UID      string `json:"uid,omitempty"`
	Type     string `json:"type,omitempty"`
	Label    string `json:"label,omitempty"`
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Oembed struct {
	Type         string `json:"type"`
	EmbedURL     string `json:"embed_url"`
	ProviderName string `json:"provider_name"`
	HTML         string `json:"html"`
}

// LinkResolver maps a link to an href. It is consulted for Document links;
// Web and Media links use their URL.
type LinkResolver func(l Link) string

// AsText returns the plain text of rt, one block per space-separated chunk.
func AsText(rt RichText) string {
	parts := make([]string, 0, len(rt))
	for _, b := range rt {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, " ")
}

// AsHTML returns the HTML for rt.
func AsHTML(rt RichText, resolve LinkResolver) string {
	var buf bytes.Buffer
	RenderHTML(&buf, rt, resolve)
	return buf.String()
}

// Component returns a templ.Component that renders rt as HTML.
func Component(rt RichText, resolve LinkResolver) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderHTML(&buf, rt, resolve)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// RenderHTML writes the HTML for rt to buf. Consecutive list items are
// grouped into a single <ul> or <ol>.
func RenderHTML(buf *bytes.Buffer, rt RichText, resolve LinkResolver) {
	openList := ""
	flushList := func() {
		if openList != "" {
			buf.WriteString("</" + openList + ">")
			openList = ""
		}
	}

	for _, b := range rt {
		switch b.Type {
		case "list-item", "o-list-item":
			tag := "ul"
			if b.Type == "o-list-item" {
				tag = "ol"
			}
			if openList != tag {
				flushList()
				buf.WriteString("<" + tag + ">")
				openList = tag
			}
			buf.WriteString("<li>")
			writeSpans(buf, b, resolve)
			buf.WriteString("</li>")
			continue
		}

		flushList()
		switch b.Type {
		case "heading1", "heading2", "heading3", "heading4", "heading5", "heading6":
			tag := "h" + b.Type[len("heading"):]
			buf.WriteString("<" + tag + ">")
			writeSpans(buf, b, resolve)
			buf.WriteString("</" + tag + ">")
		case "paragraph":
			buf.WriteString("<p>")
			writeSpans(buf, b, resolve)
			buf.WriteString("</p>")
		case "preformatted":
			buf.WriteString("<pre>")
			writeSpans(buf, b, resolve)
			buf.WriteString("</pre>")
		case "image":
			writeImage(buf, b, resolve)
		case "embed":
			writeEmbed(buf, b)
		}
	}
	flushList()
}

func writeImage(buf *bytes.Buffer, b Block, resolve LinkResolver) {
	src := SafeURL(b.URL)
	if src == "" {
		return
	}
	alt := ""
	if b.Alt != nil {
		alt = *b.Alt
	}
	img := `<img src="` + src + `" alt="` + html.EscapeString(alt) + `"`
	if b.Dimensions != nil {
		img += ` width="` + strconv.Itoa(b.Dimensions.Width) + `" height="` + strconv.Itoa(b.Dimensions.Height) + `"`
	}
	img += ` loading="lazy" decoding="async" />`

	buf.WriteString(`<p class="block-img">`)
	if b.LinkTo != nil {
		if href := linkHref(*b.LinkTo, resolve); href != "" {
			buf.WriteString(`<a href="` + href + `"` + targetAttrs(*b.LinkTo) + `>` + img + `</a>`)
			buf.WriteString("</p>")
			return
		}
	}
	buf.WriteString(img)
	buf.WriteString("</p>")
}

// writeEmbed emits the provider markup as-is; embeds come from trusted editors.
func writeEmbed(buf *bytes.Buffer, b Block) {
	if b.Oembed == nil {
		return
	}
	buf.WriteString(`<div data-oembed="` + html.EscapeString(b.Oembed.EmbedURL) +
		`" data-oembed-type="` + html.EscapeString(b.Oembed.Type) +
		`" data-oembed-provider="` + html.EscapeString(b.Oembed.ProviderName) + `">`)
	buf.WriteString(b.Oembed.HTML)
	buf.WriteString("</div>")
}

func writeSpans(buf *bytes.Buffer, b Block, resolve LinkResolver) {
	units := utf16.Encode([]rune(b.Text))
	spans := make([]Span, 0, len(b.Spans))
	for _, s := range b.Spans {
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > len(units) {
			s.End = len(units)
		}
		if s.Start < s.End {
			spans = append(spans, s)
		}
	}
	serialize(buf, units, 0, len(units), spans, resolve)
}

// serialize writes units[start:end] with spans applied. Every span lies
// within [start, end). A span that crosses the end of an enclosing span is
// split in two at that boundary so the output stays well nested.
func serialize(buf *bytes.Buffer, units []uint16, start, end int, spans []Span, resolve LinkResolver) {
	pos := start
	for len(spans) > 0 {
		sort.SliceStable(spans, func(i, j int) bool {
			if spans[i].Start != spans[j].Start {
				return spans[i].Start < spans[j].Start
			}
			return spans[i].End > spans[j].End
		})
		outer := spans[0]
		var inner, after []Span
		for _, s := range spans[1:] {
			switch {
			case s.Start >= outer.End:
				after = append(after, s)
			case s.End <= outer.End:
				inner = append(inner, s)
			default:
				in, out := s, s
				in.End = outer.End
				out.Start = outer.End
				inner = append(inner, in)
				after = append(after, out)
			}
		}

		writeText(buf, units[pos:outer.Start])
		openTag, closeTag := spanTags(outer, resolve)
		buf.WriteString(openTag)
		serialize(buf, units, outer.Start, outer.End, inner, resolve)
		buf.WriteString(closeTag)

		pos = outer.End
		spans = after
	}
	writeText(buf, units[pos:end])
}

func writeText(buf *bytes.Buffer, units []uint16) {
	if len(units) == 0 {
		return
	}
	s := html.EscapeString(string(utf16.Decode(units)))
	buf.WriteString(strings.ReplaceAll(s, "\n", "<br />"))
}

func spanTags(s Span, resolve LinkResolver) (string, string) {
	switch s.Type {
	case "strong":
		return "<strong>", "</strong>"
	case "em":
		return "<em>", "</em>"
	case "label":
		if s.Data == nil || s.Data.Label == "" {
			return "", ""
		}
		return `<span class="` + html.EscapeString(s.Data.Label) + `">`, "</span>"
	case "hyperlink":
		if s.Data == nil {
			return "", ""
		}
		href := linkHref(*s.Data, resolve)
		if href == "" {
			return "", ""
		}
		return `<a href="` + href + `"` + targetAttrs(*s.Data) + `>`, "</a>"
	}
	return "", ""
}

func linkHref(l Link, resolve LinkResolver) string {
	if l.LinkType == "Document" {
		if resolve == nil {
			return ""
		}
		return SafeURL(resolve(l))
	}
	return SafeURL(l.URL)
}

func targetAttrs(l Link) string {
	if l.Target == "" {
		return ""
	}
	return ` target="` + html.EscapeString(l.Target) + `" rel="noopener noreferrer"`
}

// SafeURL validates raw for use in an HTML attribute and returns it escaped,
// or "" when the scheme is not http, https, mailto or tel.
func SafeURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
