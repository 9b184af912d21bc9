package pipeline

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// markupPolicy enforces the render output contract after the fact: no
// scripts, no document shell, no inline event handlers. Utility classes are
// the only styling vocabulary the prompt allows, so class attributes pass
// through untouched.
var markupPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements(
		"div", "span", "section", "article", "header", "footer",
		"main", "nav", "figure", "figcaption",
	)
	p.AllowAttrs("class").Globally()
	p.SkipElementsContent("script", "style")
	return p
}()

// SanitizeMarkup strips everything the render contract forbids from a
// generated fragment. Models mostly comply with the prompt; this is the
// enforcement point for the ones that do not.
func SanitizeMarkup(fragment string) string {
	return strings.TrimSpace(markupPolicy.Sanitize(fragment))
}
