package spacetraveling

import (
	"time"

	"github.com/eringen/spacetraveling/richtext"
)

// PostSummary is one entry of the post listing.
type PostSummary struct {
	UID             string
	PublicationDate *time.Time
	Title           string
	Subtitle        string
	Author          string
}

// PostDetail is a single post as rendered on its own page.
type PostDetail struct {
	UID                  string
	FirstPublicationDate time.Time
	LastPublicationDate  *time.Time
	Title                string
	Subtitle             string
	BannerURL            string
	Author               string
	Content              []ContentSection
}

// ContentSection is one heading and its rich-text body. Heading is nil when
// the editor left it empty.
type ContentSection struct {
	Heading *string
	Body    richtext.RichText
}

// PaginatedListing is one page of summaries plus the opaque cursor for the
// next page. NextPage is nil when there are no more pages.
type PaginatedListing struct {
	Results  []PostSummary
	NextPage *string
}

// AdjacentPostRef points at the previous or next post in publication order.
type AdjacentPostRef struct {
	UID   string
	Title string
}

// Direction selects which neighbour FindAdjacent looks for.
type Direction int

const (
	Before Direction = iota
	After
)

func (d Direction) String() string {
	if d == After {
		return "after"
	}
	return "before"
}

// PostCard is a listing entry ready for display.
type PostCard struct {
	Summary PostSummary
	Date    string
}

// ListingPage is the view model of the home page.
type ListingPage struct {
	Cards   []PostCard
	MoreURL string // empty when every post is already listed
	Preview bool
}

// PostPage is the view model of a post page.
type PostPage struct {
	Post           PostDetail
	PublishedOn    string
	EditedOn       string // empty unless the post changed after first publication
	ReadingMinutes int
	Prev           *AdjacentPostRef
	Next           *AdjacentPostRef
	Preview        bool
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}
