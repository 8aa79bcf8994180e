package prismic

import (
	"strconv"
	"strings"
	"time"
)

// Predicate is one clause of a document search query, e.g.
// [at(document.type, "posts")].
type Predicate struct {
	Name string
	Path string
	Args []string // already encoded: quoted strings or bare numbers
}

// At matches documents whose field at path equals value.
func At(path, value string) Predicate {
	return Predicate{Name: "at", Path: path, Args: []string{strconv.Quote(value)}}
}

// DateBefore matches documents whose date field at path is strictly before t.
func DateBefore(path string, t time.Time) Predicate {
	return Predicate{Name: "date.before", Path: path, Args: []string{epochMillis(t)}}
}

// DateAfter matches documents whose date field at path is strictly after t.
func DateAfter(path string, t time.Time) Predicate {
	return Predicate{Name: "date.after", Path: path, Args: []string{epochMillis(t)}}
}

func (p Predicate) String() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(p.Name)
	b.WriteString("(")
	b.WriteString(p.Path)
	for _, a := range p.Args {
		b.WriteString(", ")
		b.WriteString(a)
	}
	b.WriteString(")]")
	return b.String()
}

// encodePredicates renders the q parameter: [[p1][p2]...].
func encodePredicates(ps []Predicate) string {
	var b strings.Builder
	b.WriteString("[")
	for _, p := range ps {
		b.WriteString(p.String())
	}
	b.WriteString("]")
	return b.String()
}

func epochMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Ordering sorts search results by a document field.
type Ordering struct {
	Field string
	Desc  bool
}

func encodeOrderings(orderings []Ordering) string {
	parts := make([]string, 0, len(orderings))
	for _, o := range orderings {
		if o.Desc {
			parts = append(parts, o.Field+" desc")
		} else {
			parts = append(parts, o.Field)
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}
