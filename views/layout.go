package views

import (
	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling"
)

// Layout wraps body in the document shell: head metadata, header and the
// preview banner.
func Layout(cfg spacetraveling.SiteConfig, meta spacetraveling.PageMeta, jsonLD string, preview bool, body templ.Component) templ.Component {
	return component(func(h *html) {
		h.raw(`<!DOCTYPE html><html lang="`)
		h.text(cfg.Locale)
		h.raw(`"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(meta.Title)
		h.raw(`</title>`)
		if meta.Description != "" {
			h.raw(`<meta name="description" content="`)
			h.text(meta.Description)
			h.raw(`">`)
		}
		h.raw(`<link rel="canonical" href="`)
		h.text(meta.URL)
		h.raw(`"><meta property="og:title" content="`)
		h.text(meta.Title)
		h.raw(`"><meta property="og:type" content="`)
		h.text(meta.OGType)
		h.raw(`"><meta property="og:url" content="`)
		h.text(meta.URL)
		h.raw(`">`)
		if meta.Image != "" {
			h.raw(`<meta property="og:image" content="`)
			h.text(meta.Image)
			h.raw(`">`)
		}
		h.raw(`<link rel="alternate" type="application/rss+xml" title="`)
		h.text(cfg.Name)
		h.raw(`" href="/feed.xml"><link rel="icon" href="/favicon.svg"><link rel="stylesheet" href="/public/style.css">`)
		if jsonLD != "" {
			h.raw(`<script type="application/ld+json">`)
			h.raw(jsonLD)
			h.raw(`</script>`)
		}
		h.raw(`<script src="/public/feed.js" defer></script></head><body>`)
		h.raw(`<header class="site-header"><a href="/" class="logo">`)
		h.text(cfg.Name)
		h.raw(`</a></header>`)
		h.component(body)
		if preview {
			h.raw(`<aside class="preview-banner"><a href="/api/exit-preview/">Sair do modo Preview</a></aside>`)
		}
		h.raw(`</body></html>`)
	})
}
