package spacetraveling

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eringen/spacetraveling/logger"
	"github.com/eringen/spacetraveling/prismic"
)

var (
	// ErrNotFound is returned when no post exists for a slug.
	ErrNotFound = prismic.ErrNotFound

	// ErrUpstreamUnavailable is returned when the CMS cannot be reached or
	// keeps failing after the configured retries.
	ErrUpstreamUnavailable = prismic.ErrUpstreamUnavailable
)

// DocumentSource is the part of the CMS API the content client needs.
// *prismic.Client implements it.
type DocumentSource interface {
	Query(ctx context.Context, q prismic.Query) (prismic.Response, error)
	FetchPage(ctx context.Context, pageURL string) (prismic.Response, error)
}

// ContentConfig selects the documents a ContentClient reads.
type ContentConfig struct {
	DocumentType string // default "posts"
	Lang         string // empty means the repository default
	Ref          string // empty means the master ref
}

// ContentClient reads blog posts from a DocumentSource and maps them to the
// blog's data model.
type ContentClient struct {
	src DocumentSource
	cfg ContentConfig
}

// NewContentClient returns a ContentClient over src.
func NewContentClient(src DocumentSource, cfg ContentConfig) *ContentClient {
	if cfg.DocumentType == "" {
		cfg.DocumentType = "posts"
	}
	return &ContentClient{src: src, cfg: cfg}
}

// WithRef returns a copy of the client pinned to a content ref, used to
// render unpublished changes in preview mode.
func (c *ContentClient) WithRef(ref string) *ContentClient {
	cp := *c
	cp.cfg.Ref = ref
	return &cp
}

// Ref returns the pinned ref, or "" for the master ref.
func (c *ContentClient) Ref() string { return c.cfg.Ref }

func (c *ContentClient) field(name string) string {
	return "my." + c.cfg.DocumentType + "." + name
}

func (c *ContentClient) fetch(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, c.cfg.DocumentType+"."+n)
	}
	return out
}

func (c *ContentClient) query(q prismic.Query) prismic.Query {
	q.Ref = c.cfg.Ref
	q.Lang = c.cfg.Lang
	q.Predicates = append([]prismic.Predicate{prismic.At("document.type", c.cfg.DocumentType)}, q.Predicates...)
	return q
}

// ListPosts returns one page of post summaries, newest first. A nil cursor
// requests the first page; otherwise cursor is the NextPage of a previous
// listing and is followed verbatim.
func (c *ContentClient) ListPosts(ctx context.Context, pageSize int, cursor *string) (PaginatedListing, error) {
	var (
		resp prismic.Response
		err  error
	)
	if cursor != nil {
		resp, err = c.src.FetchPage(ctx, *cursor)
	} else {
		if pageSize <= 0 {
			return PaginatedListing{}, fmt.Errorf("list posts: page size must be positive, got %d", pageSize)
		}
		resp, err = c.src.Query(ctx, c.query(prismic.Query{
			Fetch:     c.fetch("title", "subtitle", "author"),
			Orderings: []prismic.Ordering{{Field: "document.first_publication_date", Desc: true}},
			PageSize:  pageSize,
		}))
	}
	if err != nil {
		return PaginatedListing{}, fmt.Errorf("list posts: %w", err)
	}

	listing := PaginatedListing{
		Results:  make([]PostSummary, 0, len(resp.Results)),
		NextPage: resp.NextPage,
	}
	if listing.NextPage != nil && *listing.NextPage == "" {
		listing.NextPage = nil
	}
	for _, doc := range resp.Results {
		s, err := BuildPostSummary(doc)
		if err != nil {
			logger.Warn("skipping listing entry", logger.Fields{"id": doc.ID, "error": err.Error()})
			continue
		}
		listing.Results = append(listing.Results, s)
	}
	return listing, nil
}

// GetPostByUID returns the full post with the given slug, or ErrNotFound.
func (c *ContentClient) GetPostByUID(ctx context.Context, uid string) (PostDetail, error) {
	if uid == "" {
		return PostDetail{}, ErrNotFound
	}
	resp, err := c.src.Query(ctx, c.query(prismic.Query{
		Predicates: []prismic.Predicate{prismic.At(c.field("uid"), uid)},
		PageSize:   1,
	}))
	if err != nil {
		return PostDetail{}, fmt.Errorf("get post %q: %w", uid, err)
	}
	if len(resp.Results) == 0 {
		return PostDetail{}, fmt.Errorf("get post %q: %w", uid, ErrNotFound)
	}
	return BuildPostDetail(resp.Results[0])
}

// adjacentPageSize is small but above one so documents sharing the
// instant t, or malformed neighbours, do not hide the real neighbour.
const adjacentPageSize = 3

// FindAdjacent returns the post published closest to t in the given
// direction, or nil when there is none. Comparison is strict, so the post
// published at t itself is never returned. Malformed neighbours are skipped.
func (c *ContentClient) FindAdjacent(ctx context.Context, dir Direction, t time.Time) (*AdjacentPostRef, error) {
	q := prismic.Query{
		Fetch:    c.fetch("title"),
		PageSize: adjacentPageSize,
	}
	const dateField = "document.first_publication_date"
	if dir == Before {
		q.Predicates = []prismic.Predicate{prismic.DateBefore(dateField, t)}
		q.Orderings = []prismic.Ordering{{Field: dateField, Desc: true}}
	} else {
		q.Predicates = []prismic.Predicate{prismic.DateAfter(dateField, t)}
		q.Orderings = []prismic.Ordering{{Field: dateField}}
	}

	resp, err := c.src.Query(ctx, c.query(q))
	for {
		if err != nil {
			return nil, fmt.Errorf("find post %s %s: %w", dir, t.Format(time.RFC3339), err)
		}
		for _, doc := range resp.Results {
			s, err := BuildPostSummary(doc)
			if err != nil {
				logger.Warn("skipping adjacent post", logger.Fields{"id": doc.ID, "direction": dir.String(), "error": err.Error()})
				continue
			}
			if s.PublicationDate == nil {
				continue
			}
			if (dir == Before && s.PublicationDate.Before(t)) || (dir == After && s.PublicationDate.After(t)) {
				return &AdjacentPostRef{UID: s.UID, Title: s.Title}, nil
			}
		}
		if resp.NextPage == nil || *resp.NextPage == "" {
			return nil, nil
		}
		resp, err = c.src.FetchPage(ctx, *resp.NextPage)
	}
}

// AdjacentPosts looks up both neighbours of a post concurrently.
func (c *ContentClient) AdjacentPosts(ctx context.Context, t time.Time) (prev, next *AdjacentPostRef, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prev, err = c.FindAdjacent(gctx, Before, t)
		return err
	})
	g.Go(func() error {
		var err error
		next, err = c.FindAdjacent(gctx, After, t)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return prev, next, nil
}

// ResolvePreview returns the slug of the document being previewed.
func (c *ContentClient) ResolvePreview(ctx context.Context, documentID string) (string, error) {
	if documentID == "" {
		return "", ErrNotFound
	}
	resp, err := c.src.Query(ctx, prismic.Query{
		Ref:        c.cfg.Ref,
		Lang:       c.cfg.Lang,
		Predicates: []prismic.Predicate{prismic.At("document.id", documentID)},
		PageSize:   1,
	})
	if err != nil {
		return "", fmt.Errorf("resolve preview %q: %w", documentID, err)
	}
	if len(resp.Results) == 0 || deref(resp.Results[0].UID) == "" {
		return "", fmt.Errorf("resolve preview %q: %w", documentID, ErrNotFound)
	}
	return *resp.Results[0].UID, nil
}

// AllPosts walks every listing page and returns all summaries, newest first.
func (c *ContentClient) AllPosts(ctx context.Context) ([]PostSummary, error) {
	const pageSize = 100
	first, err := c.ListPosts(ctx, pageSize, nil)
	if err != nil {
		return nil, err
	}
	feed := NewPostFeed(first, pageSize, c)
	for feed.HasMore() {
		if _, err := feed.LoadMore(ctx); err != nil {
			return nil, err
		}
	}
	return feed.Results(), nil
}
