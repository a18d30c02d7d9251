package guest

import "strings"

// scrollSlack is how far scrollWidth may exceed offsetWidth before an
// element counts as horizontally scrollable.
const scrollSlack = 5

// Box is one element on the path from a wheel target to the body.
type Box struct {
	Tag         string  `json:"tag"`
	ScrollWidth float64 `json:"scrollWidth"`
	OffsetWidth float64 `json:"offsetWidth"`
}

func (b Box) scrollable() bool {
	return b.ScrollWidth > b.OffsetWidth+scrollSlack
}

// Arbiter decides whether a horizontal swipe belongs to the host (history
// navigation) or to the page (horizontal scrolling). Each swipe is judged
// once, on its first wheel event.
type Arbiter struct {
	swiping bool
	judged  bool
}

// SwipeStart opens a swipe and re-arms the latch.
func (a *Arbiter) SwipeStart() {
	a.swiping = true
	a.judged = false
}

// SwipeEnd closes the swipe.
func (a *Arbiter) SwipeEnd() {
	a.swiping = false
}

// Wheel judges a wheel event given its target chain, target first. It
// reports true when the swipe is free for the host, which happens when no
// element before BODY is scrollable. Outside a swipe, and after the first
// wheel event of a swipe, it reports false.
func (a *Arbiter) Wheel(chain []Box) bool {
	if !a.swiping || a.judged {
		return false
	}
	a.judged = true
	for _, b := range chain {
		if b.Tag == "" || strings.EqualFold(b.Tag, "BODY") {
			break
		}
		if b.scrollable() {
			return false
		}
	}
	return true
}
