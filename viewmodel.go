package spacetraveling

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goodsign/monday"

	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/richtext"
)

// WordsPerMinute is the reading speed assumed by EstimateReadingTimeMinutes.
const WordsPerMinute = 200

// ErrMalformedDocument is returned when a document lacks a field the page
// cannot be rendered without.
var ErrMalformedDocument = errors.New("malformed document")

// postData is the data section of a "posts" document. Every field may be
// absent on a loosely filled document.
type postData struct {
	Title    *string `json:"title"`
	Subtitle *string `json:"subtitle"`
	Author   *string `json:"author"`
	Banner   *struct {
		URL *string `json:"url"`
	} `json:"banner"`
	Content []struct {
		Heading *string           `json:"heading"`
		Body    richtext.RichText `json:"body"`
	} `json:"content"`
}

func malformed(uid, field string) error {
	if uid == "" {
		uid = "<no uid>"
	}
	return fmt.Errorf("%w: %s: missing %s", ErrMalformedDocument, uid, field)
}

func decodePostData(doc prismic.Document, uid string) (postData, error) {
	var data postData
	if len(doc.Data) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(doc.Data, &data); err != nil {
		return data, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, uid, err)
	}
	return data, nil
}

// BuildPostSummary maps a raw listing document to a PostSummary.
func BuildPostSummary(doc prismic.Document) (PostSummary, error) {
	uid := deref(doc.UID)
	if uid == "" {
		return PostSummary{}, malformed(doc.ID, "uid")
	}
	data, err := decodePostData(doc, uid)
	if err != nil {
		return PostSummary{}, err
	}
	title := strings.TrimSpace(deref(data.Title))
	if title == "" {
		return PostSummary{}, malformed(uid, "title")
	}
	return PostSummary{
		UID:             uid,
		PublicationDate: timestampPtr(doc.FirstPublicationDate),
		Title:           title,
		Subtitle:        deref(data.Subtitle),
		Author:          deref(data.Author),
	}, nil
}

// BuildPostDetail maps a raw post document to a PostDetail. Title, banner
// and first publication date are required; a blank section heading becomes nil.
func BuildPostDetail(doc prismic.Document) (PostDetail, error) {
	uid := deref(doc.UID)
	if uid == "" {
		return PostDetail{}, malformed(doc.ID, "uid")
	}
	first := timestampPtr(doc.FirstPublicationDate)
	if first == nil {
		return PostDetail{}, malformed(uid, "first_publication_date")
	}
	data, err := decodePostData(doc, uid)
	if err != nil {
		return PostDetail{}, err
	}
	title := strings.TrimSpace(deref(data.Title))
	if title == "" {
		return PostDetail{}, malformed(uid, "title")
	}
	var banner string
	if data.Banner != nil {
		banner = strings.TrimSpace(deref(data.Banner.URL))
	}
	if banner == "" {
		return PostDetail{}, malformed(uid, "banner.url")
	}

	sections := make([]ContentSection, 0, len(data.Content))
	for _, c := range data.Content {
		var heading *string
		if h := strings.TrimSpace(deref(c.Heading)); h != "" {
			heading = &h
		}
		sections = append(sections, ContentSection{Heading: heading, Body: c.Body})
	}

	return PostDetail{
		UID:                  uid,
		FirstPublicationDate: *first,
		LastPublicationDate:  timestampPtr(doc.LastPublicationDate),
		Title:                title,
		Subtitle:             deref(data.Subtitle),
		BannerURL:            banner,
		Author:               deref(data.Author),
		Content:              sections,
	}, nil
}

// EstimateReadingTimeMinutes counts the words in every section body and
// divides by WordsPerMinute, rounding up. Empty content reads in 0 minutes.
func EstimateReadingTimeMinutes(content []ContentSection) int {
	texts := make([]string, 0, len(content))
	for _, c := range content {
		texts = append(texts, richtext.AsText(c.Body))
	}
	words := len(strings.Fields(strings.Join(texts, " ")))
	return (words + WordsPerMinute - 1) / WordsPerMinute
}

// FormatDisplayDate renders t as "d MMM yyyy" with the locale's abbreviated
// month names, e.g. "15 mar 2021" for pt-BR. Unknown locales use English.
func FormatDisplayDate(t time.Time, locale string) string {
	return monday.Format(t, "2 Jan 2006", mondayLocale(locale))
}

// FormatDisplayDateTime is FormatDisplayDate followed by the 24h time.
func FormatDisplayDateTime(t time.Time, locale string) string {
	return FormatDisplayDate(t, locale) + ", " + t.Format("15:04")
}

// mondayLocale turns "pt-br" or "pt_BR" into monday's "pt_BR".
func mondayLocale(locale string) monday.Locale {
	parts := strings.FieldsFunc(locale, func(r rune) bool { return r == '-' || r == '_' })
	switch len(parts) {
	case 0:
		return monday.LocaleEnUS
	case 1:
		return monday.Locale(strings.ToLower(parts[0]))
	default:
		return monday.Locale(strings.ToLower(parts[0]) + "_" + strings.ToUpper(parts[1]))
	}
}

// BuildListingPage prepares listing cards with their display dates.
func BuildListingPage(posts []PostSummary, moreURL, locale string, preview bool) ListingPage {
	return ListingPage{
		Cards:   BuildPostCards(posts, locale),
		MoreURL: moreURL,
		Preview: preview,
	}
}

func BuildPostCards(posts []PostSummary, locale string) []PostCard {
	cards := make([]PostCard, 0, len(posts))
	for _, p := range posts {
		card := PostCard{Summary: p}
		if p.PublicationDate != nil {
			card.Date = FormatDisplayDate(*p.PublicationDate, locale)
		}
		cards = append(cards, card)
	}
	return cards
}

// BuildPostPage computes the display values of a post page.
func BuildPostPage(post PostDetail, prev, next *AdjacentPostRef, locale string, preview bool) PostPage {
	page := PostPage{
		Post:           post,
		PublishedOn:    FormatDisplayDate(post.FirstPublicationDate, locale),
		ReadingMinutes: EstimateReadingTimeMinutes(post.Content),
		Prev:           prev,
		Next:           next,
		Preview:        preview,
	}
	if last := post.LastPublicationDate; last != nil && !last.Equal(post.FirstPublicationDate) {
		page.EditedOn = FormatDisplayDateTime(*last, locale)
	}
	return page
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timestampPtr(ts *prismic.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}
