package guest

import (
	"testing"

	"github.com/hazyhaar/ghframe/channel"
)

func names(msgs []channel.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Name
	}
	return out
}

func arg(t *testing.T, m channel.Message, i int) string {
	t.Helper()
	var s string
	if err := m.Arg(i, &s); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestIsExternal(t *testing.T) {
	loc := "https://github.com/octo/repo"
	tests := []struct {
		href string
		want bool
	}{
		{"https://github.com/other", false},
		{"https://example.com/", true},
		{"https://github.com:8443/", true},
		{"mailto:someone@example.com", true},
		{"/relative/path", false},
		{"", false},
		{"http://[::1", false},
	}
	for _, tt := range tests {
		if got := IsExternal(tt.href, loc); got != tt.want {
			t.Errorf("IsExternal(%q) = %v, want %v", tt.href, got, tt.want)
		}
	}
}

func TestClick_ExternalNeverNavigates(t *testing.T) {
	msgs := Click(ClickEvent{
		Location: "https://github.com/octo/repo",
		Tag:      "A",
		Href:     "https://example.com/docs",
		RawHref:  "https://example.com/docs",
	})
	got := names(msgs)
	if len(got) != 2 || got[0] != "documentClicked" || got[1] != "externalLinkClicked" {
		t.Fatalf("got %v", got)
	}
	if arg(t, msgs[1], 0) != "https://example.com/docs" {
		t.Fatalf("external url = %q", arg(t, msgs[1], 0))
	}
}

func TestClick_SameHostReportsRawHref(t *testing.T) {
	msgs := Click(ClickEvent{
		Location: "https://github.com/octo/repo",
		Tag:      "A",
		Href:     "https://github.com/octo/repo/issues",
		RawHref:  "/octo/repo/issues",
	})
	if got := names(msgs); len(got) != 2 || got[1] != "linkClicked" {
		t.Fatalf("got %v", got)
	}
	if arg(t, msgs[1], 0) != "https://github.com/octo/repo/issues" || arg(t, msgs[1], 1) != "/octo/repo/issues" {
		t.Fatalf("args = %q %q", arg(t, msgs[1], 0), arg(t, msgs[1], 1))
	}
}

func TestClick_ModifierIsPreview(t *testing.T) {
	img := Click(ClickEvent{Tag: "IMG", Src: "https://x/y.png", ClosestHref: "https://example.com/", Meta: true})
	if got := names(img); len(got) != 2 || got[1] != "showPreview" || arg(t, img[1], 0) != "https://x/y.png" {
		t.Fatalf("img: got %v", got)
	}

	link := Click(ClickEvent{Tag: "SPAN", ClosestHref: "https://example.com/", Ctrl: true, Location: "https://github.com/"})
	if got := names(link); len(got) != 2 || got[1] != "showPreview" {
		t.Fatalf("link: got %v", got)
	}

	anchor := Click(ClickEvent{Tag: "A", Href: "https://example.com/", ClosestHref: "https://example.com/", Meta: true, Location: "https://github.com/"})
	for _, n := range names(anchor) {
		if n == "externalLinkClicked" || n == "linkClicked" {
			t.Fatalf("modifier click navigated: %v", names(anchor))
		}
	}
}

func TestClick_NonAnchorOnlyDocumentClicked(t *testing.T) {
	if got := names(Click(ClickEvent{Tag: "DIV"})); len(got) != 1 || got[0] != "documentClicked" {
		t.Fatalf("got %v", got)
	}
}

func intp(v int) *int { return &v }

func TestContextMenu_Priority(t *testing.T) {
	// Image nested in a link with an active selection.
	m, ok := ContextMenu(ContextEvent{
		Tag:             "IMG",
		Src:             "/avatar.png",
		WindowSelection: "selected text",
	})
	if !ok || m.Name != "showImgMenu" || arg(t, m, 0) != "/avatar.png" {
		t.Fatalf("got %v %v", m.Name, ok)
	}

	m, ok = ContextMenu(ContextEvent{Tag: "A", Href: "/octo", WindowSelection: "x"})
	if !ok || m.Name != "showLinkMenu" || arg(t, m, 0) != "/octo" {
		t.Fatalf("got %v %v", m.Name, ok)
	}

	m, ok = ContextMenu(ContextEvent{Tag: "P", WindowSelection: "hello"})
	if !ok || m.Name != "showSelectionMenu" || arg(t, m, 0) != "hello" {
		t.Fatalf("got %v %v", m.Name, ok)
	}

	if _, ok := ContextMenu(ContextEvent{Tag: "P"}); ok {
		t.Fatal("expected no menu")
	}
}

func TestSelectionText_InputOffsets(t *testing.T) {
	tests := []struct {
		name string
		ev   ContextEvent
		want string
	}{
		{"textarea", ContextEvent{ActiveTag: "TEXTAREA", ActiveValue: "hello world", SelStart: intp(6), SelEnd: intp(11), WindowSelection: "other"}, "world"},
		{"search input", ContextEvent{ActiveTag: "INPUT", ActiveType: "search", ActiveValue: "abc", SelStart: intp(0), SelEnd: intp(2)}, "ab"},
		{"checkbox falls back", ContextEvent{ActiveTag: "INPUT", ActiveType: "checkbox", ActiveValue: "on", SelStart: intp(0), SelEnd: intp(2), WindowSelection: "win"}, "win"},
		{"utf16 offsets", ContextEvent{ActiveTag: "TEXTAREA", ActiveValue: "a😀b", SelStart: intp(1), SelEnd: intp(3)}, "😀"},
		{"clamped", ContextEvent{ActiveTag: "TEXTAREA", ActiveValue: "ab", SelStart: intp(1), SelEnd: intp(10)}, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.SelectionText(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
