// Package guest implements the content observer that runs alongside one
// embedded page. It watches the page for structural changes, extracts a
// page descriptor once the DOM settles, applies the navigation, gesture and
// context-menu policies to raw page events, and rewrites user mentions on
// request.
//
// The observer never touches host state. Everything it learns leaves as a
// channel.Message on the guest→host queue; everything it is asked to do
// arrives as a channel.Message on the host→guest queue.
package guest

import (
	"github.com/hazyhaar/ghframe/channel"
)

// EventKind enumerates the guest→host messages.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventIsLogged
	EventDomChanged
	EventDocReady
	EventUserIDsGathered
	EventSwipeAllowed
	EventDocumentClicked
	EventLinkClicked
	EventExternalLinkClicked
	EventShowPreview
	EventShowImgMenu
	EventShowLinkMenu
	EventShowSelectionMenu
	EventCSSReady
)

var eventNames = [...]string{
	EventUnknown:             "",
	EventIsLogged:            "isLogged",
	EventDomChanged:          "domChanged",
	EventDocReady:            "docReady",
	EventUserIDsGathered:     "userIdsGathered",
	EventSwipeAllowed:        "swipe-allowed",
	EventDocumentClicked:     "documentClicked",
	EventLinkClicked:         "linkClicked",
	EventExternalLinkClicked: "externalLinkClicked",
	EventShowPreview:         "showPreview",
	EventShowImgMenu:         "showImgMenu",
	EventShowLinkMenu:        "showLinkMenu",
	EventShowSelectionMenu:   "showSelectionMenu",
	EventCSSReady:            "cssReady",
}

// String returns the wire name.
func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return ""
	}
	return eventNames[k]
}

// ParseEvent maps a wire name to its kind. Unknown names yield EventUnknown.
func ParseEvent(name string) EventKind {
	for k, n := range eventNames {
		if n != "" && n == name {
			return EventKind(k)
		}
	}
	return EventUnknown
}

// CommandKind enumerates the host→guest commands.
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdGatherUserIDs
	CmdUserIDsAndNames
	CmdInjectCSS
	CmdZoom
	CmdSwipeStart
	CmdSwipeEnd
)

var commandNames = [...]string{
	CmdUnknown:         "",
	CmdGatherUserIDs:   "gatherUserIds",
	CmdUserIDsAndNames: "userIdsAndNames",
	CmdInjectCSS:       "injectCss",
	CmdZoom:            "zoom",
	CmdSwipeStart:      "swipe-start",
	CmdSwipeEnd:        "swipe-end",
}

func (k CommandKind) String() string {
	if k < 0 || int(k) >= len(commandNames) {
		return ""
	}
	return commandNames[k]
}

// ParseCommand maps a wire name to its kind.
func ParseCommand(name string) CommandKind {
	for k, n := range commandNames {
		if n != "" && n == name {
			return CommandKind(k)
		}
	}
	return CmdUnknown
}

// message builds an outgoing message. Arguments are strings, bools, slices
// or descriptors, none of which can fail to encode.
func message(k EventKind, args ...any) channel.Message {
	m, err := channel.New(k.String(), args...)
	if err != nil {
		return channel.Message{Name: k.String()}
	}
	return m
}
