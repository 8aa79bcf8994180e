package spacetraveling

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/a-h/templ"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/spacetraveling/logger"
)

// Build renders the whole site into dir as static files: the listing and
// its "load more" fragments, every post page, the 404 page, RSS, sitemap
// and the embedded assets.
func (a *App) Build(ctx context.Context, dir string) error {
	if err := a.Init(); err != nil {
		return err
	}

	first, err := a.Content.ListPosts(ctx, a.Config.PageSize, nil)
	if err != nil {
		return err
	}
	feed := NewPostFeed(first, a.Config.PageSize, a.Content)
	fragmentURL := func(n int) string { return "/posts/more/" + strconv.Itoa(n) + "/" }

	next := ""
	if feed.HasMore() {
		next = fragmentURL(1)
	}
	home := a.Views.Home(BuildListingPage(feed.Results(), next, a.Config.Locale, false))
	if err := writeComponent(ctx, filepath.Join(dir, "index.html"), home); err != nil {
		return err
	}

	for n := 1; feed.HasMore(); n++ {
		added, err := feed.LoadMore(ctx)
		if err != nil {
			return err
		}
		next = ""
		if feed.HasMore() {
			next = fragmentURL(n + 1)
		}
		cards := a.Views.PostCards(BuildPostCards(added, a.Config.Locale), next)
		if err := writeComponent(ctx, filepath.Join(dir, "posts", "more", strconv.Itoa(n), "index.html"), cards); err != nil {
			return err
		}
	}
	posts := feed.Results()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	written := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		if _, ok := written[p.UID]; ok {
			continue
		}
		written[p.UID] = struct{}{}
		g.Go(func() error {
			return a.buildPost(gctx, dir, p.UID)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := writeComponent(ctx, filepath.Join(dir, "404.html"), a.Views.NotFound()); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "feed.xml"), func(w io.Writer) error { return a.writeRSS(w, posts) }); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "sitemap.xml"), func(w io.Writer) error { return a.writeSitemap(w, posts) }); err != nil {
		return err
	}
	script, err := EmbeddedAssets.ReadFile("embedded/feed.js")
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "public", "feed.js"), func(w io.Writer) error {
		_, err := w.Write(script)
		return err
	}); err != nil {
		return err
	}

	logger.Info("site built", logger.Fields{"dir": dir, "posts": len(written), "duplicates": len(feed.Duplicates())})
	return nil
}

func (a *App) buildPost(ctx context.Context, dir, uid string) error {
	if uid != filepath.Base(uid) || uid == "." || uid == ".." {
		return fmt.Errorf("build: unsafe post uid %q", uid)
	}
	post, err := a.Content.GetPostByUID(ctx, uid)
	if err != nil {
		return err
	}
	prev, next, err := a.Content.AdjacentPosts(ctx, post.FirstPublicationDate)
	if err != nil {
		return err
	}
	page := a.Views.Post(BuildPostPage(post, prev, next, a.Config.Locale, false))
	return writeComponent(ctx, filepath.Join(dir, "post", uid, "index.html"), page)
}

func writeComponent(ctx context.Context, path string, cmp templ.Component) error {
	return writeFile(path, func(w io.Writer) error { return cmp.Render(ctx, w) })
}

// writeFile renders into memory first so a failed render leaves no partial file.
func writeFile(path string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	return nil
}
