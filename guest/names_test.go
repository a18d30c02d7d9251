package guest

import (
	"reflect"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ghframe/page"
)

const mentionsHTML = `<html><head></head><body>
<div class="issues-listing"><a class="author">alice</a><a class="author">bob</a></div>
<p>ping <a class="user-mention">@bobby</a> and <a class="user-mention">@alice</a></p>
<p><a class="user-mention user-name-replaced">Carol C</a></p>
<div class="reaction-summary-item tooltipped" aria-label="alice and bobby reacted"></div>
<div class="reaction-summary-item tooltipped user-name-replaced" aria-label="Alice A reacted"></div>
</body></html>`

func TestGatherUserIDs(t *testing.T) {
	got := GatherUserIDs(Snapshot{HTML: mentionsHTML})
	want := []string{"alice", "bob", "bobby"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestGatherUserIDs_EmptyIsNotNil(t *testing.T) {
	got := GatherUserIDs(Snapshot{HTML: `<p>nobody</p>`})
	if got == nil || len(got) != 0 {
		t.Fatalf("got %#v", got)
	}
}

func TestSubstitutions(t *testing.T) {
	users := page.Users{
		"alice": {Name: "Alice A"},
		"bob":   {Name: "Bob B"},
		"bobby": {Name: "Bobby T"},
	}
	edits := Substitutions(Snapshot{HTML: mentionsHTML}, users)

	var text, labels []Edit
	for _, e := range edits {
		if e.AriaLabel != "" {
			labels = append(labels, e)
		} else {
			text = append(text, e)
		}
	}
	if len(text) != 4 {
		t.Fatalf("text edits = %d, want 4: %+v", len(text), text)
	}
	if text[0].XPath != "/html/body/div[1]/a[1]" || text[0].Text != "Alice A" || text[0].Title != "alice" || text[0].Expect != "alice" {
		t.Errorf("first edit = %+v", text[0])
	}
	if text[2].XPath != "/html/body/p[1]/a[1]" || text[2].Expect != "bobby" {
		t.Errorf("third edit = %+v", text[2])
	}

	if len(labels) != 1 {
		t.Fatalf("label edits = %d, want 1", len(labels))
	}
	if labels[0].AriaLabel != "Alice A and Bobby T reacted" {
		t.Errorf("aria-label = %q", labels[0].AriaLabel)
	}
	if labels[0].Expect != "alice and bobby reacted" {
		t.Errorf("expect = %q", labels[0].Expect)
	}
}

func TestSubstitutions_UnknownUserUntouched(t *testing.T) {
	edits := Substitutions(Snapshot{HTML: `<a class="user-mention">@zed</a>`}, page.Users{"alice": {Name: "A"}})
	if len(edits) != 0 {
		t.Fatalf("got %+v", edits)
	}
}

func TestNodeXPath(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<html><body><div><span>a</span></div><div><span>b</span><span id="x">c</span></div></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	var target *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == "x" {
				target = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if got := nodeXPath(target); got != "/html/body/div[2]/span[2]" {
		t.Fatalf("got %q", got)
	}
}
