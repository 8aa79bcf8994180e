package spacetraveling

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eringen/spacetraveling/prismic"
)

// fakeSource is an in-memory repository that evaluates the predicates,
// orderings and paging of a prismic.Query the way the search API does.
type fakeSource struct {
	mu      sync.Mutex
	docs    []prismic.Document
	queries []prismic.Query
	fetches []string
	cursors map[string]prismic.Query
	err     error

	// inclusiveDates makes date.before/date.after match the boundary
	// instant too, like a server comparing at coarser precision.
	inclusiveDates bool
}

func newFakeSource(docs ...prismic.Document) *fakeSource {
	return &fakeSource{docs: docs, cursors: make(map[string]prismic.Query)}
}

func (f *fakeSource) Query(ctx context.Context, q prismic.Query) (prismic.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return prismic.Response{}, f.err
	}
	return f.run(q), nil
}

func (f *fakeSource) FetchPage(ctx context.Context, pageURL string) (prismic.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, pageURL)
	if f.err != nil {
		return prismic.Response{}, f.err
	}
	q, ok := f.cursors[pageURL]
	if !ok {
		return prismic.Response{}, fmt.Errorf("unknown page url %q", pageURL)
	}
	return f.run(q), nil
}

func (f *fakeSource) lastQuery() prismic.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func (f *fakeSource) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSource) run(q prismic.Query) prismic.Response {
	var hits []prismic.Document
	for _, d := range f.docs {
		if matchesAll(d, q.Predicates, f.inclusiveDates) {
			hits = append(hits, d)
		}
	}
	desc := true
	if len(q.Orderings) > 0 {
		desc = q.Orderings[0].Desc
	}
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i].FirstPublicationDate.Time, hits[j].FirstPublicationDate.Time
		if desc {
			return a.After(b)
		}
		return a.Before(b)
	})

	size := q.PageSize
	if size <= 0 {
		size = 20
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * size
	end := start + size
	if start > len(hits) {
		start = len(hits)
	}
	if end > len(hits) {
		end = len(hits)
	}
	resp := prismic.Response{
		Page:             page,
		ResultsPerPage:   size,
		ResultsSize:      end - start,
		TotalResultsSize: len(hits),
		TotalPages:       (len(hits) + size - 1) / size,
		Results:          hits[start:end],
	}
	if end < len(hits) {
		next := q
		next.Page = page + 1
		u := fmt.Sprintf("https://fake.cdn.prismic.io/api/v2/documents/search?page=%d&pageSize=%d&n=%d", next.Page, size, len(f.cursors))
		f.cursors[u] = next
		resp.NextPage = &u
	}
	return resp
}

func matchesAll(d prismic.Document, ps []prismic.Predicate, inclusive bool) bool {
	for _, p := range ps {
		if !matches(d, p, inclusive) {
			return false
		}
	}
	return true
}

func matches(d prismic.Document, p prismic.Predicate, inclusive bool) bool {
	switch p.Name {
	case "at":
		v, _ := strconv.Unquote(p.Args[0])
		switch {
		case p.Path == "document.type":
			return d.Type == v
		case p.Path == "document.id":
			return d.ID == v
		case strings.HasSuffix(p.Path, ".uid"):
			return d.UID != nil && *d.UID == v
		}
	case "date.before", "date.after":
		ms, _ := strconv.ParseInt(p.Args[0], 10, 64)
		if d.FirstPublicationDate == nil {
			return false
		}
		got := d.FirstPublicationDate.UnixMilli()
		if inclusive && got == ms {
			return true
		}
		if p.Name == "date.before" {
			return got < ms
		}
		return got > ms
	}
	return false
}

type docOpts struct {
	subtitle string
	author   string
	edited   time.Time
	content  []map[string]any
	noBanner bool
	noTitle  bool
}

// postDoc builds a "posts" document the way the search API returns it.
func postDoc(uid, title string, published time.Time, opts ...func(*docOpts)) prismic.Document {
	o := docOpts{subtitle: "Subtitle of " + title, author: "Joseph Oliveira"}
	for _, fn := range opts {
		fn(&o)
	}
	data := map[string]any{
		"subtitle": o.subtitle,
		"author":   o.author,
		"content":  o.content,
	}
	if !o.noTitle {
		data["title"] = title
	}
	if o.noBanner {
		data["banner"] = map[string]any{}
	} else {
		data["banner"] = map[string]any{"url": "https://images.prismic.io/" + uid + ".png"}
	}
	raw, _ := json.Marshal(data)

	u := uid
	doc := prismic.Document{
		ID:                   "id-" + uid,
		UID:                  &u,
		Type:                 "posts",
		FirstPublicationDate: &prismic.Timestamp{Time: published},
		LastPublicationDate:  &prismic.Timestamp{Time: published},
		Data:                 raw,
	}
	if !o.edited.IsZero() {
		doc.LastPublicationDate = &prismic.Timestamp{Time: o.edited}
	}
	return doc
}

func withContent(sections ...map[string]any) func(*docOpts) {
	return func(o *docOpts) { o.content = sections }
}

func withEdited(t time.Time) func(*docOpts) {
	return func(o *docOpts) { o.edited = t }
}

func withoutBanner() func(*docOpts) {
	return func(o *docOpts) { o.noBanner = true }
}

func withoutTitle() func(*docOpts) {
	return func(o *docOpts) { o.noTitle = true }
}

// section is one content group; heading may be nil.
func section(heading any, paragraphs ...string) map[string]any {
	body := make([]map[string]any, 0, len(paragraphs))
	for _, p := range paragraphs {
		body = append(body, map[string]any{"type": "paragraph", "text": p, "spans": []any{}})
	}
	return map[string]any{"heading": heading, "body": body}
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("palavra ", n))
}

func day(d int) time.Time {
	return time.Date(2021, time.March, d, 19, 25, 28, 0, time.UTC)
}
