// Package spacetraveling is a blog front-end over a Prismic repository.
// It lists posts newest first with incremental "load more" paging, renders
// post pages with reading time and previous/next navigation, supports
// Prismic previews, and can export the whole site as static files.
//
// Templates are supplied via the ViewFuncs struct; spacetraveling handles
// content retrieval, view models, handlers and middleware.
package spacetraveling

import (
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/logger"
	"github.com/eringen/spacetraveling/prismic"
)

// ViewFuncs holds the templ components the App calls when rendering pages.
type ViewFuncs struct {
	Home        func(page ListingPage) templ.Component
	PostCards   func(cards []PostCard, moreURL string) templ.Component
	Post        func(page PostPage) templ.Component
	NotFound    func() templ.Component
	ServerError func() templ.Component
}

// App wires the content client, feed registry, handlers, middleware and
// user-provided templates together.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Content *ContentClient
	Feeds   *FeedRegistry
	Views   ViewFuncs

	previewLimiter *RequestLimiter
	customRoutes   []func(*App)
	staticDir      string
	source         DocumentSource

	initOnce sync.Once
	initErr  error
}

// New creates an App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		staticDir: "public",
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init builds the content client, middleware and routes. Start and Build
// call it; tests call it directly to drive a.Echo without listening.
func (a *App) Init() error {
	a.initOnce.Do(func() { a.initErr = a.init() })
	return a.initErr
}

func (a *App) init() error {
	logger.Init(a.Config.LogLevel)

	if a.source == nil {
		if a.Config.PrismicEndpoint == "" {
			return fmt.Errorf("spacetraveling: PrismicEndpoint is required")
		}
		client, err := prismic.New(prismic.Config{
			Endpoint:    a.Config.PrismicEndpoint,
			AccessToken: a.Config.PrismicAccessToken,
			Timeout:     a.Config.RequestTimeout,
			MaxTries:    a.Config.MaxRetries,
			RefTTL:      a.Config.RefCacheTTL,
		})
		if err != nil {
			return fmt.Errorf("spacetraveling: init prismic client: %w", err)
		}
		a.source = client
	}

	a.Content = NewContentClient(a.source, ContentConfig{
		DocumentType: a.Config.DocumentType,
		Lang:         a.Config.Lang,
	})
	a.Feeds = NewFeedRegistry(a.Config.FeedTTL, a.Config.MaxFeeds)
	a.previewLimiter = NewRequestLimiter(10, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the App and starts the server.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	logger.Info("listening", logger.Fields{"addr": a.Config.Addr, "preview": a.previewEnabled()})
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework assets are served under /public/ and fall through to the
	// user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/feed.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/posts/more/", a.handleMore)
	e.GET("/post/:slug/", a.handlePost)

	e.GET("/api/preview/", a.handlePreview)
	e.GET("/api/exit-preview/", a.handleExitPreview)
}

// Close releases background resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Feeds != nil {
		a.Feeds.Close()
	}
	if a.previewLimiter != nil {
		a.previewLimiter.Close()
	}
	return nil
}
