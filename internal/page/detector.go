package page

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// archiveMarker is rendered next to the "last report" link only while the
// sponsor archive view is open.
const archiveMarker = " / Archiv"

// IsArchiveOpened reports whether the page shows the archive view. A page
// without the caption link is treated as a normal inbox.
func (p *Page) IsArchiveOpened() bool {
	link := findFirst(p.doc, func(n *html.Node) bool {
		if !isElement(n, atom.A) {
			return false
		}
		href, _ := attr(n, "href")
		if !strings.Contains(href, "action=showlastreport") {
			return false
		}
		return hasAncestor(n, func(a *html.Node) bool {
			return isElement(a, atom.P) && hasClass(a, "maincaption")
		})
	})
	if link == nil || link.Parent == nil {
		return false
	}
	return strings.Contains(innerHTML(link.Parent), archiveMarker)
}
