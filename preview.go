package spacetraveling

import (
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	sessionName   = "preview_session"
	previewRefKey = "ref"
)

func (a *App) previewEnabled() bool {
	return a.Config.SessionSecret != ""
}

// contentFor returns the content client for the request: pinned to the
// preview ref when the visitor is in preview mode, the master ref otherwise.
func (a *App) contentFor(c echo.Context) (*ContentClient, bool) {
	if ref := PreviewRef(c); ref != "" {
		return a.Content.WithRef(ref), true
	}
	return a.Content, false
}

// PreviewRef returns the preview ref stored in the session, or "".
func PreviewRef(c echo.Context) string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ""
	}
	ref, _ := sess.Values[previewRefKey].(string)
	return ref
}

func (a *App) handlePreview(c echo.Context) error {
	if !a.previewEnabled() {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if !a.previewLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many preview requests. Try again later.")
	}
	token := c.QueryParam("token")
	if token == "" {
		return c.String(http.StatusBadRequest, "Missing preview token.")
	}
	uid, err := a.Content.WithRef(token).ResolvePreview(c.Request().Context(), c.QueryParam("documentId"))
	if err != nil {
		return err
	}

	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[previewRefKey] = token
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, PostPath(uid))
}

func (a *App) handleExitPreview(c echo.Context) error {
	if a.previewEnabled() {
		sess, err := session.Get(sessionName, c)
		if err != nil {
			return err
		}
		sess.Options.MaxAge = -1
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			return err
		}
	}
	return c.Redirect(http.StatusTemporaryRedirect, "/")
}
