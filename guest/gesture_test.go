package guest

import "testing"

var (
	plainChain      = []Box{{Tag: "SPAN", ScrollWidth: 100, OffsetWidth: 100}, {Tag: "DIV", ScrollWidth: 800, OffsetWidth: 800}, {Tag: "BODY", ScrollWidth: 2000, OffsetWidth: 800}}
	scrollableChain = []Box{{Tag: "TD"}, {Tag: "DIV", ScrollWidth: 1200, OffsetWidth: 600}, {Tag: "BODY"}}
	slackChain      = []Box{{Tag: "DIV", ScrollWidth: 805, OffsetWidth: 800}, {Tag: "BODY"}}
)

func TestArbiter_OutsideSwipe(t *testing.T) {
	var a Arbiter
	if a.Wheel(plainChain) {
		t.Fatal("wheel outside a swipe must not be allowed")
	}
}

func TestArbiter_OneShotPerSwipe(t *testing.T) {
	var a Arbiter
	a.SwipeStart()
	if !a.Wheel(plainChain) {
		t.Fatal("first wheel with no scrollable ancestor should be allowed")
	}
	if a.Wheel(plainChain) {
		t.Fatal("second wheel in the same swipe must be ignored")
	}
	a.SwipeEnd()
	a.SwipeStart()
	if !a.Wheel(plainChain) {
		t.Fatal("latch not re-armed by a new swipe")
	}
}

func TestArbiter_ScrollableAncestorKeepsGesture(t *testing.T) {
	var a Arbiter
	a.SwipeStart()
	if a.Wheel(scrollableChain) {
		t.Fatal("scrollable ancestor should keep the gesture in the page")
	}
}

func TestArbiter_SlackAndBody(t *testing.T) {
	var a Arbiter
	a.SwipeStart()
	if !a.Wheel(slackChain) {
		t.Fatal("overflow within slack is not scrollable")
	}
	// BODY itself is never considered, even when it overflows.
	a.SwipeStart()
	if !a.Wheel([]Box{{Tag: "BODY", ScrollWidth: 5000, OffsetWidth: 10}}) {
		t.Fatal("body overflow should not block swipe")
	}
}
