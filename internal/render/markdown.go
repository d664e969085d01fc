// Package render turns markdown source into the full HTML page served to
// the browser.
package render

import (
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var policy = bluemonday.UGCPolicy()

// Markdown converts markdown source to sanitized HTML. GitHub-flavored
// extensions (tables, fenced code, strikethrough, autolinks, heading IDs)
// come with CommonExtensions; bluemonday then strips anything executable
// while keeping formatting, so raw HTML in the document cannot script the
// preview page.
func Markdown(src []byte) []byte {
	html := blackfriday.Run(src,
		blackfriday.WithExtensions(blackfriday.CommonExtensions|blackfriday.Autolink))
	return policy.SanitizeBytes(html)
}
