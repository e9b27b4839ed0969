package page

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"fakearchive/internal/model"
)

var ErrBackLinkNotFound = errors.New("back link not found")

const backLinkMarkup = `<a href="main.php">Zurück</a>`

// Renderer injects archived messages into the archive view.
type Renderer struct {
	// DeleteURL builds the target of a message's delete control.
	DeleteURL func(id int64) string
	Location  *time.Location
}

// Render inserts the archive after the "Zurück" link, newest message first,
// and repeats the link below the last message. An empty archive leaves the
// page untouched.
func (r Renderer) Render(p *Page, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	back := findFirst(p.doc, func(n *nethtml.Node) bool {
		if !isElement(n, atom.A) {
			return false
		}
		href, _ := attr(n, "href")
		return href == "main.php" && strings.Contains(textContent(n), "Zurück")
	})
	if back == nil || back.Parent == nil {
		return ErrBackLinkNotFound
	}

	// 各ブロックを個別にパースし、閉じていないタグが後続に波及しないようにする
	cursor := back
	var err error
	if cursor, err = insertAfter(cursor, "<br/><br/>"); err != nil {
		return err
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if cursor, err = insertAfter(cursor, r.block(messages[i], i+1)); err != nil {
			return err
		}
	}
	_, err = insertAfter(cursor, backLinkMarkup)
	return err
}

// insertAfter parses markup in the context of cursor's parent, inserts the
// resulting nodes right after cursor and returns the last inserted node.
func insertAfter(cursor *nethtml.Node, markup string) (*nethtml.Node, error) {
	parent := cursor.Parent
	nodes, err := nethtml.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		return nil, fmt.Errorf("parse archive markup: %w", err)
	}
	for _, n := range nodes {
		parent.InsertBefore(n, cursor.NextSibling)
		cursor = n
	}
	return cursor, nil
}

func (r Renderer) block(m model.Message, number int) string {
	deleteURL := "javascript: void(0);"
	if r.DeleteURL != nil {
		deleteURL = r.DeleteURL(m.ID)
	}
	return fmt.Sprintf(`<p class="maincaption2">Nachricht (%d) vom %s: `+
		`<a href="%s" class="removeMessageFromArchive">(löschen)</a></p><br/>%s<br/><br/>`,
		number, r.formatDate(m.Timestamp), html.EscapeString(deleteURL), m.Content)
}

func (r Renderer) formatDate(ts int64) string {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	t := time.UnixMilli(ts).In(loc)
	return fmt.Sprintf("%02d.%02d um %02d:%02d Uhr", t.Day(), int(t.Month()), t.Hour(), t.Minute())
}
