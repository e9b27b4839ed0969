package page

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"fakearchive/internal/model"
)

// Capture is a message recovered from the inbox together with the store
// link it was found under.
type Capture struct {
	Message model.Message
	Link    *html.Node
}

// Extractor recovers storable messages from an inbox page.
type Extractor interface {
	Extract(p *Page) ([]Capture, error)
}

var storeIDPattern = regexp.MustCompile(`(?i)store_msg=(\d+)`)

// RegexExtractor scrapes message content from the rendered markup around
// each store link. Timestamps are taken from Now at extraction time, since
// the inbox does not show when a message was sent.
type RegexExtractor struct {
	Now func() time.Time
}

func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{Now: time.Now}
}

// Extract returns every message that could be recovered. Messages whose id
// or content do not match are skipped and reported in the joined error.
func (e *RegexExtractor) Extract(p *Page) ([]Capture, error) {
	links := findAll(p.doc, isStoreLink)

	var (
		captures []Capture
		errs     []error
	)
	for _, link := range links {
		msg, err := e.extractOne(link)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		captures = append(captures, Capture{Message: msg, Link: link})
	}
	return captures, errors.Join(errs...)
}

func (e *RegexExtractor) extractOne(link *html.Node) (model.Message, error) {
	href, _ := attr(link, "href")
	idMatch := storeIDPattern.FindStringSubmatch(href)
	if idMatch == nil {
		return model.Message{}, fmt.Errorf("no message id in store link %q", href)
	}
	id, err := strconv.ParseInt(idMatch[1], 10, 64)
	if err != nil {
		return model.Message{}, fmt.Errorf("message id %q: %w", idMatch[1], err)
	}

	// キャプション <p> の親要素の中身から本文を探す
	container := link.Parent
	if container != nil && container.Parent != nil {
		container = container.Parent
	}
	if container == nil {
		return model.Message{}, fmt.Errorf("message %d: store link has no container", id)
	}

	contentMatch := contentPattern(idMatch[1]).FindStringSubmatch(innerHTML(container))
	if contentMatch == nil {
		return model.Message{}, fmt.Errorf("message %d: content not found", id)
	}

	return model.Message{
		ID:        id,
		Timestamp: e.Now().UnixMilli(),
		Content:   contentMatch[1],
	}, nil
}

// contentPattern matches the text between the store caption of message id
// and whichever comes first of: the next message caption, the "Weiter"
// link, or the read link of the same message.
func contentPattern(id string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)<a.+?href=.*?action=archive.{1,7}mode=store.*?store_msg=` + id +
		`.*?</p><br\s*?/*?>(.+?)<br\s*?/*?><br\s*?/*?>(?:<p.+class=".??maincaption2.??".+?>|` +
		`<a.+?href="main\.php".??>Weiter</a>|` +
		`<a.+href=.*read_msg=` + id + `)`)
}

func isStoreLink(n *html.Node) bool {
	if !isElement(n, atom.A) {
		return false
	}
	href, _ := attr(n, "href")
	if !strings.Contains(href, "action=archive&mode=store") {
		return false
	}
	return hasAncestor(n, func(a *html.Node) bool {
		return isElement(a, atom.P) && hasClass(a, "maincaption2")
	})
}
