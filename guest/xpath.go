package guest

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// nodeXPath computes the element path of n the way document.evaluate
// resolves it: one step per element ancestor, with a 1-based index among
// same-tag siblings whenever there is more than one.
func nodeXPath(n *html.Node) string {
	var steps []string
	for ; n != nil && n.Type == html.ElementNode; n = n.Parent {
		steps = append(steps, xpathStep(n))
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return "/" + strings.Join(steps, "/")
}

func xpathStep(n *html.Node) string {
	name := strings.ToLower(n.Data)
	if n.Parent == nil {
		return name
	}
	idx, total := 0, 0
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode || strings.ToLower(s.Data) != name {
			continue
		}
		total++
		if s == n {
			idx = total
		}
	}
	if total > 1 {
		return fmt.Sprintf("%s[%d]", name, idx)
	}
	return name
}
