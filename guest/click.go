package guest

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/hazyhaar/ghframe/channel"
)

// ClickEvent is a click as reported by the shim. Href and ClosestHref are
// resolved absolute URLs; RawHref is the attribute as written.
type ClickEvent struct {
	Location    string `json:"location"`
	Tag         string `json:"tag"`
	Src         string `json:"src"`
	Href        string `json:"href"`
	RawHref     string `json:"rawHref"`
	ClosestHref string `json:"closestHref"`
	Meta        bool   `json:"meta"`
	Ctrl        bool   `json:"ctrl"`
}

// IsExternal reports whether href points at a host other than the one of
// location. An href that does not parse as an absolute URL is not external.
func IsExternal(href, location string) bool {
	u, err := url.Parse(href)
	if err != nil || u.Scheme == "" {
		return false
	}
	loc, err := url.Parse(location)
	if err != nil {
		return u.Host != ""
	}
	return u.Host != loc.Host
}

// Click applies the navigation policy to one click. documentClicked always
// comes first. A meta or ctrl click is a preview request and never
// navigates. An anchor click becomes externalLinkClicked when it leaves the
// page host, linkClicked otherwise.
func Click(ev ClickEvent) []channel.Message {
	out := []channel.Message{message(EventDocumentClicked)}

	if ev.Meta || ev.Ctrl {
		switch {
		case strings.EqualFold(ev.Tag, "IMG"):
			out = append(out, message(EventShowPreview, ev.Src))
		case ev.ClosestHref != "":
			out = append(out, message(EventShowPreview, ev.ClosestHref))
		}
		return out
	}

	if !strings.EqualFold(ev.Tag, "A") {
		return out
	}
	if IsExternal(ev.Href, ev.Location) {
		return append(out, message(EventExternalLinkClicked, ev.Href))
	}
	return append(out, message(EventLinkClicked, ev.Href, ev.RawHref))
}

// ContextEvent is a context-menu event as reported by the shim. Src and
// Href are the raw attributes of the event target. The Active* fields
// describe the focused element; SelStart and SelEnd are its UTF-16
// selection offsets when it exposes them.
type ContextEvent struct {
	Tag             string `json:"tag"`
	Src             string `json:"src"`
	Href            string `json:"href"`
	ActiveTag       string `json:"activeTag"`
	ActiveType      string `json:"activeType"`
	ActiveValue     string `json:"activeValue"`
	SelStart        *int   `json:"selStart"`
	SelEnd          *int   `json:"selEnd"`
	WindowSelection string `json:"windowSelection"`
}

var textInputTypes = regexp.MustCompile(`(?i)^(?:text|search|password|tel|url)$`)

// SelectionText returns the selected text, preferring the selection inside
// a focused text input or textarea over the window selection.
func (ev ContextEvent) SelectionText() string {
	tag := strings.ToLower(ev.ActiveTag)
	isInput := tag == "input" && textInputTypes.MatchString(ev.ActiveType)
	if (tag == "textarea" || isInput) && ev.SelStart != nil {
		end := *ev.SelStart
		if ev.SelEnd != nil {
			end = *ev.SelEnd
		}
		return sliceUTF16(ev.ActiveValue, *ev.SelStart, end)
	}
	return ev.WindowSelection
}

func sliceUTF16(s string, start, end int) string {
	units := utf16.Encode([]rune(s))
	if start < 0 {
		start = 0
	}
	if end > len(units) {
		end = len(units)
	}
	if start >= end {
		return ""
	}
	return string(utf16.Decode(units[start:end]))
}

// ContextMenu picks at most one menu message: image, then link, then
// selection.
func ContextMenu(ev ContextEvent) (channel.Message, bool) {
	switch {
	case strings.EqualFold(ev.Tag, "IMG"):
		return message(EventShowImgMenu, ev.Src), true
	case strings.EqualFold(ev.Tag, "A"):
		return message(EventShowLinkMenu, ev.Href), true
	}
	if text := ev.SelectionText(); text != "" {
		return message(EventShowSelectionMenu, text), true
	}
	return channel.Message{}, false
}
