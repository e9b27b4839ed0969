package page

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"fakearchive/internal/model"
)

const inboxPage = `<html><head><title>Freewar</title></head><body>` +
	`<p class="maincaption">Nachrichten <a href="main.php?action=showlastreport">Letzte Nachricht</a></p>` +
	`<div id="messages">` +
	`<p class="maincaption2">Nachricht von Zabuza: <a href="main.php?action=archive&amp;mode=store&amp;store_msg=123" onclick="return confirm('Speichern?');">(Speichern)</a></p><br/>Hallo Welt<br/><br/>` +
	`<p class="maincaption2">Nachricht von Foo: <a href="main.php?action=archive&amp;mode=store&amp;store_msg=124">(Speichern)</a></p><br/>Zweite <b>Nachricht</b><br/><br/>` +
	`<p class="maincaption2">Nachricht von Bar: <a href="main.php?action=archive&amp;mode=store&amp;store_msg=125">(Speichern)</a></p><br/>Dritte<br/><br/><a href="main.php?action=messages&amp;read_msg=125">Antworten</a>` +
	`<br/><a href="main.php">Weiter</a>` +
	`</div></body></html>`

const archivePage = `<html><head></head><body>` +
	`<p class="maincaption">Nachrichten / Archiv <a href="main.php?action=showlastreport">Letzte Nachricht</a></p>` +
	`Diese Funktion steht nur Sponsoren zur Verfügung.<br/>` +
	`<a href="main.php">Zurück</a>` +
	`</body></html>`

func mustParse(t *testing.T, markup string) *Page {
	t.Helper()
	p, err := Parse(markup)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return p
}

func TestIsArchiveOpened(t *testing.T) {
	cases := []struct {
		name   string
		markup string
		want   bool
	}{
		{"inbox", inboxPage, false},
		{"archive", archivePage, true},
		{"no caption", `<html><body><p>Hallo / Archiv</p></body></html>`, false},
		{"marker outside caption", `<html><body><p class="maincaption"><a href="main.php?action=showlastreport">x</a></p><p>Nachrichten / Archiv</p></body></html>`, false},
		{"nested link", `<p class="maincaption">Nachrichten / Archiv <span><a href="main.php?action=showlastreport">x</a></span></p>`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mustParse(t, tc.markup).IsArchiveOpened(); got != tc.want {
				t.Errorf("IsArchiveOpened() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRegexExtractor_Extract(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	e := &RegexExtractor{Now: func() time.Time { return fixed }}

	captures, err := e.Extract(mustParse(t, inboxPage))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	want := []model.Message{
		{ID: 123, Timestamp: 1700000000000, Content: "Hallo Welt"},
		{ID: 124, Timestamp: 1700000000000, Content: "Zweite <b>Nachricht</b>"},
		{ID: 125, Timestamp: 1700000000000, Content: "Dritte"},
	}
	if len(captures) != len(want) {
		t.Fatalf("Expected %d captures, got %d", len(want), len(captures))
	}
	for i, c := range captures {
		if c.Message != want[i] {
			t.Errorf("capture %d: expected %+v, got %+v", i, want[i], c.Message)
		}
		if c.Link == nil {
			t.Errorf("capture %d: missing link node", i)
		}
	}
}

// TestRegexExtractor_PartialFailure 失敗したメッセージだけスキップされる
func TestRegexExtractor_PartialFailure(t *testing.T) {
	markup := `<html><body><div>` +
		`<p class="maincaption2">A: <a href="main.php?action=archive&amp;mode=store&amp;store_msg=x">(Speichern)</a></p><br/>kaputt<br/><br/>` +
		`<p class="maincaption2">B: <a href="main.php?action=archive&amp;mode=store&amp;store_msg=7">(Speichern)</a></p><br/>gut<br/><br/>` +
		`<p class="maincaption2">C: <a href="main.php?action=archive&amp;mode=store&amp;store_msg=8">(Speichern)</a></p><br/>ohne Ende` +
		`</div></body></html>`

	e := NewRegexExtractor()
	captures, err := e.Extract(mustParse(t, markup))
	if err == nil {
		t.Fatal("Expected joined extraction error")
	}
	if !strings.Contains(err.Error(), "no message id") || !strings.Contains(err.Error(), "message 8: content not found") {
		t.Errorf("Unexpected error: %v", err)
	}
	if len(captures) != 1 || captures[0].Message.ID != 7 || captures[0].Message.Content != "gut" {
		t.Errorf("Expected only message 7 captured, got %+v", captures)
	}
}

func TestRegexExtractor_NoStoreLinks(t *testing.T) {
	captures, err := NewRegexExtractor().Extract(mustParse(t, archivePage))
	if err != nil || len(captures) != 0 {
		t.Errorf("Expected no captures, got %+v err=%v", captures, err)
	}
}

func TestRewriteLink(t *testing.T) {
	p := mustParse(t, inboxPage)
	captures, _ := NewRegexExtractor().Extract(p)
	RewriteLink(captures[0].Link, "http://localhost:8080/save/abc")

	out, err := p.String()
	if err != nil {
		t.Fatalf("String failed: %v", err)
	}
	if !strings.Contains(out, `<a href="http://localhost:8080/save/abc">(Speichern)</a>`) {
		t.Errorf("Link not rewritten: %s", out)
	}
	if strings.Contains(out, "onclick") {
		t.Error("onclick should be removed")
	}
}

func TestRenderer_Render(t *testing.T) {
	p := mustParse(t, archivePage)
	r := Renderer{
		DeleteURL: func(id int64) string { return fmt.Sprintf("http://localhost:8080/messages/%d/delete", id) },
		Location:  time.UTC,
	}
	msgs := []model.Message{
		{ID: 1, Timestamp: 0, Content: "erste"},
		{ID: 2, Timestamp: 97440000, Content: "zweite <i>x</i>"},
	}

	if err := r.Render(p, msgs); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out, _ := p.String()

	newest := `<p class="maincaption2">Nachricht (2) vom 02.01 um 03:04 Uhr: <a href="http://localhost:8080/messages/2/delete" class="removeMessageFromArchive">(löschen)</a></p><br/>zweite <i>x</i><br/><br/>`
	oldest := `<p class="maincaption2">Nachricht (1) vom 01.01 um 00:00 Uhr: <a href="http://localhost:8080/messages/1/delete" class="removeMessageFromArchive">(löschen)</a></p><br/>erste<br/><br/>`

	expected := `<a href="main.php">Zurück</a><br/><br/>` + newest + oldest + `<a href="main.php">Zurück</a></body>`
	if !strings.Contains(out, expected) {
		t.Errorf("Unexpected render output:\n%s\nwant substring:\n%s", out, expected)
	}
	if n := strings.Count(out, `<a href="main.php">Zurück</a>`); n != 2 {
		t.Errorf("Expected 2 back links, got %d", n)
	}
}

// TestRenderer_UnbalancedContent 閉じタグの無い本文が後続のブロックを巻き込まないこと
func TestRenderer_UnbalancedContent(t *testing.T) {
	p := mustParse(t, archivePage)
	r := Renderer{Location: time.UTC}
	msgs := []model.Message{
		{ID: 1, Timestamp: 0, Content: "alt"},
		{ID: 2, Timestamp: 0, Content: "<b>neu"},
	}

	if err := r.Render(p, msgs); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out, _ := p.String()

	if !strings.Contains(out, `<b>neu<br/><br/></b><p class="maincaption2">Nachricht (1)`) {
		t.Errorf("Expected the bold run to close before the next block:\n%s", out)
	}
	if !strings.HasSuffix(out, `alt<br/><br/><a href="main.php">Zurück</a></body></html>`) {
		t.Errorf("Expected the back link copy outside the message markup:\n%s", out)
	}
	if strings.Contains(out, "</b></body>") {
		t.Errorf("Bold run leaked to the end of the page:\n%s", out)
	}
}

func TestRenderer_EmptyArchive(t *testing.T) {
	p := mustParse(t, archivePage)
	before, _ := p.String()

	if err := (Renderer{}).Render(p, nil); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	after, _ := p.String()
	if before != after {
		t.Errorf("Empty archive should not modify page:\n%s\n%s", before, after)
	}
}

func TestRenderer_MissingBackLink(t *testing.T) {
	p := mustParse(t, `<html><body><p>nichts</p></body></html>`)
	err := (Renderer{}).Render(p, []model.Message{{ID: 1, Content: "x"}})
	if !errors.Is(err, ErrBackLinkNotFound) {
		t.Errorf("Expected ErrBackLinkNotFound, got %v", err)
	}
}
