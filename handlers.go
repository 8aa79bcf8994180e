package spacetraveling

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/logger"
)

func (a *App) handleHome(c echo.Context) error {
	content, preview := a.contentFor(c)
	first, err := content.ListPosts(c.Request().Context(), a.Config.PageSize, nil)
	if err != nil {
		return err
	}
	feed := NewPostFeed(first, a.Config.PageSize, content)
	moreURL := ""
	if feed.HasMore() {
		moreURL = moreLink(a.Feeds.Add(feed))
		// The page now names a feed owned by this visitor alone.
		c.Response().Header().Set("Cache-Control", "private, no-store")
	}
	return Render(c, a.Views.Home(BuildListingPage(feed.Results(), moreURL, a.Config.Locale, preview)))
}

func (a *App) handleMore(c echo.Context) error {
	id := c.QueryParam("feed")
	feed, ok := a.Feeds.Get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "feed expired")
	}
	added, err := feed.LoadMore(c.Request().Context())
	if err != nil {
		if errors.Is(err, ErrLoadInProgress) {
			return echo.NewHTTPError(http.StatusConflict, "already loading")
		}
		return err
	}
	moreURL := ""
	if feed.HasMore() {
		moreURL = moreLink(id)
	} else {
		a.Feeds.Remove(id)
	}
	return Render(c, a.Views.PostCards(BuildPostCards(added, a.Config.Locale), moreURL))
}

func moreLink(id string) string {
	return "/posts/more/?feed=" + url.QueryEscape(id)
}

func (a *App) handlePost(c echo.Context) error {
	content, preview := a.contentFor(c)
	ctx := c.Request().Context()
	post, err := content.GetPostByUID(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	prev, next, err := content.AdjacentPosts(ctx, post.FirstPublicationDate)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Post(BuildPostPage(post, prev, next, a.Config.Locale, preview)))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Content.AllPosts(c.Request().Context())
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return a.writeSitemap(c.Response(), posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Content.AllPosts(c.Request().Context())
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return a.writeRSS(c.Response(), posts)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(a.staticDir + "/robots.txt")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	case errors.Is(err, ErrUpstreamUnavailable):
		logger.Error("cms unavailable", logger.Fields{"uri": c.Request().RequestURI, "error": err.Error()})
		_ = RenderStatus(c, http.StatusServiceUnavailable, a.Views.ServerError())
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		logger.Error("server error", logger.Fields{"uri": c.Request().RequestURI, "error": err.Error()})
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
