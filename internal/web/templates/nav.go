// Package templates holds the site's templ components. Edit the .templ
// sources and run `templ generate`; the _templ.go files are generated.
package templates

import (
	"net/url"
	"strings"

	"github.com/a-h/templ"
)

// Nav carries what every page needs to build links and the header.
type Nav struct {
	BasePath string
	Datasets []DatasetLink
	IsEditor bool
	Active   string
}

// DatasetLink is one header navigation entry.
type DatasetLink struct {
	Key   string
	Label string
}

// URL joins path segments under the base path, escaping each segment.
func (n Nav) URL(segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(n.BasePath, "/"))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// Href is URL as an attribute value. Segments are path-escaped, so the
// result is always a same-origin path.
func (n Nav) Href(segments ...string) templ.SafeURL {
	return templ.SafeURL(n.URL(segments...))
}
