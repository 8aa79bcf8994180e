package views

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/richtext"
)

// Funcs returns the default templates for cfg.
func Funcs(cfg spacetraveling.SiteConfig) spacetraveling.ViewFuncs {
	return spacetraveling.ViewFuncs{
		Home:        func(page spacetraveling.ListingPage) templ.Component { return Home(cfg, page) },
		PostCards:   PostCards,
		Post:        func(page spacetraveling.PostPage) templ.Component { return Post(cfg, page) },
		NotFound:    func() templ.Component { return NotFound(cfg) },
		ServerError: func() templ.Component { return ServerError(cfg) },
	}
}

// Home is the post listing.
func Home(cfg spacetraveling.SiteConfig, page spacetraveling.ListingPage) templ.Component {
	meta := spacetraveling.PageMeta{
		Title:       cfg.Name,
		Description: cfg.Description,
		URL:         spacetraveling.BuildURL(cfg.URL),
		OGType:      "website",
	}
	body := component(func(h *html) {
		h.raw(`<main class="container"><section class="posts">`)
		h.component(PostCards(page.Cards, page.MoreURL))
		h.raw(`</section></main>`)
	})
	return Layout(cfg, meta, spacetraveling.WebsiteJsonLD(cfg), page.Preview, body)
}

// PostCards renders listing cards followed by the "load more" button when
// moreURL is set. It is also the fragment returned by /posts/more/; the
// fragment replaces the previous button in place.
func PostCards(cards []spacetraveling.PostCard, moreURL string) templ.Component {
	return component(func(h *html) {
		for _, card := range cards {
			writeCard(h, card)
		}
		if moreURL != "" {
			h.raw(`<div class="load-more" data-load-more-wrapper><button type="button" data-load-more="`)
			h.text(moreURL)
			h.raw(`">Carregar mais posts</button></div>`)
		}
	})
}

func writeCard(h *html, card spacetraveling.PostCard) {
	p := card.Summary
	h.raw(`<article class="post-card"><a href="`)
	h.text(spacetraveling.PostPath(p.UID))
	h.raw(`"><h2>`)
	h.text(p.Title)
	h.raw(`</h2>`)
	if p.Subtitle != "" {
		h.raw(`<p>`)
		h.text(p.Subtitle)
		h.raw(`</p>`)
	}
	h.raw(`</a><ul class="info">`)
	if card.Date != "" {
		h.raw(`<li><time datetime="`)
		h.text(p.PublicationDate.Format("2006-01-02"))
		h.raw(`">`)
		h.text(card.Date)
		h.raw(`</time></li>`)
	}
	if p.Author != "" {
		h.raw(`<li class="author">`)
		h.text(p.Author)
		h.raw(`</li>`)
	}
	h.raw(`</ul></article>`)
}

// Post is a single post page.
func Post(cfg spacetraveling.SiteConfig, page spacetraveling.PostPage) templ.Component {
	post := page.Post
	meta := spacetraveling.PageMeta{
		Title:       post.Title + " | " + cfg.Name,
		Description: post.Subtitle,
		URL:         spacetraveling.BuildURL(cfg.URL, "post", post.UID),
		OGType:      "article",
		Image:       post.BannerURL,
	}
	body := component(func(h *html) {
		h.raw(`<img class="banner" src="`)
		h.text(richtext.SafeURL(post.BannerURL))
		h.raw(`" alt=""><main class="container"><article class="post"><h1>`)
		h.text(post.Title)
		h.raw(`</h1><ul class="info"><li><time datetime="`)
		h.text(post.FirstPublicationDate.Format("2006-01-02"))
		h.raw(`">`)
		h.text(page.PublishedOn)
		h.raw(`</time></li>`)
		if post.Author != "" {
			h.raw(`<li class="author">`)
			h.text(post.Author)
			h.raw(`</li>`)
		}
		h.raw(`<li class="reading-time">`)
		h.text(strconv.Itoa(page.ReadingMinutes) + " min")
		h.raw(`</li></ul>`)
		if page.EditedOn != "" {
			h.raw(`<p class="edited">* editado em `)
			h.text(page.EditedOn)
			h.raw(`</p>`)
		}
		for _, section := range post.Content {
			h.raw(`<section>`)
			if section.Heading != nil {
				h.raw(`<h2>`)
				h.text(*section.Heading)
				h.raw(`</h2>`)
			}
			h.raw(`<div class="body">`)
			h.component(richtext.Component(section.Body, spacetraveling.ResolveLink))
			h.raw(`</div></section>`)
		}
		h.raw(`</article>`)
		if page.Prev != nil || page.Next != nil {
			h.raw(`<nav class="post-nav">`)
			writeAdjacent(h, page.Prev, "prev", "Post anterior")
			writeAdjacent(h, page.Next, "next", "Próximo post")
			h.raw(`</nav>`)
		}
		h.raw(`</main>`)
	})
	return Layout(cfg, meta, spacetraveling.BlogPostingJsonLD(post, cfg), page.Preview, body)
}

func writeAdjacent(h *html, ref *spacetraveling.AdjacentPostRef, rel, label string) {
	if ref == nil {
		h.raw(`<span class="` + rel + `"></span>`)
		return
	}
	h.raw(`<a class="` + rel + `" rel="` + rel + `" href="`)
	h.text(spacetraveling.PostPath(ref.UID))
	h.raw(`"><span class="title">`)
	h.text(ref.Title)
	h.raw(`</span><span class="label">`)
	h.text(label)
	h.raw(`</span></a>`)
}

// NotFound is the 404 page.
func NotFound(cfg spacetraveling.SiteConfig) templ.Component {
	return errorPage(cfg, "Página não encontrada", "O post que você procura não existe ou foi removido.")
}

// ServerError is shown for 5xx responses, including an unreachable CMS.
func ServerError(cfg spacetraveling.SiteConfig) templ.Component {
	return errorPage(cfg, "Algo deu errado", "Não foi possível carregar o conteúdo agora. Tente novamente em instantes.")
}

func errorPage(cfg spacetraveling.SiteConfig, title, message string) templ.Component {
	meta := spacetraveling.PageMeta{
		Title:  title + " | " + cfg.Name,
		URL:    spacetraveling.BuildURL(cfg.URL),
		OGType: "website",
	}
	body := component(func(h *html) {
		h.raw(`<main class="container error"><h1>`)
		h.text(title)
		h.raw(`</h1><p>`)
		h.text(message)
		h.raw(`</p><a href="/">Voltar para o início</a></main>`)
	})
	return Layout(cfg, meta, "", false, body)
}
