package guest

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/ghframe/page"
)

// ReplacedClass marks an element whose user mention was already rewritten.
const ReplacedClass = "user-name-replaced"

var (
	selUserMentions = strings.Join([]string{
		".issues-listing .author:not(." + ReplacedClass + ")",
		".sidebar-assignee .assignee:not(." + ReplacedClass + ")",
		".user-mention:not(." + ReplacedClass + ")",
		"a .discussion-item-entity:not(." + ReplacedClass + "):not(code)",
	}, ", ")
	selUserTooltips = ".reaction-summary-item.tooltipped:not(." + ReplacedClass + ")"
)

func mentionID(s *goquery.Selection) string {
	return strings.Trim(strings.TrimSpace(s.Text()), "@")
}

// GatherUserIDs lists the user ids mentioned on the page, deduplicated, in
// document order. Already rewritten mentions are skipped.
func GatherUserIDs(s Snapshot) []string {
	ids := []string{}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
	if err != nil {
		return ids
	}
	seen := make(map[string]bool)
	doc.Find(selUserMentions).Each(func(_ int, sel *goquery.Selection) {
		id := mentionID(sel)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	})
	return ids
}

// Substitutions computes the edits that replace user ids with display
// names. Mentions with no known name are left alone; reaction tooltips are
// always rewritten and marked. Elements already marked produce no edit, so
// running the edits twice changes nothing.
func Substitutions(s Snapshot, users page.Users) []Edit {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
	if err != nil {
		return nil
	}

	var edits []Edit
	doc.Find(selUserMentions).Each(func(_ int, sel *goquery.Selection) {
		id := mentionID(sel)
		u, ok := users[id]
		if !ok || u.Name == "" {
			return
		}
		edits = append(edits, Edit{
			XPath:  nodeXPath(sel.Get(0)),
			Expect: id,
			Text:   u.Name,
			Title:  id,
		})
	})

	ids := replacementOrder(users)
	doc.Find(selUserTooltips).Each(func(_ int, sel *goquery.Selection) {
		label, _ := sel.Attr("aria-label")
		next := label
		for _, id := range ids {
			next = strings.Replace(next, id, users[id].Name, 1)
		}
		edits = append(edits, Edit{
			XPath:     nodeXPath(sel.Get(0)),
			Expect:    label,
			AriaLabel: next,
		})
	})
	return edits
}

// replacementOrder puts longer ids first so "bob" never rewrites part of
// "bobby".
func replacementOrder(users page.Users) []string {
	ids := make([]string, 0, len(users))
	for id, u := range users {
		if id != "" && u.Name != "" {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) > len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids
}
