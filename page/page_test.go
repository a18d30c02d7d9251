package page

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
		ok   bool
	}{
		{"plain page", Descriptor{URL: "https://x", Name: "x", Kind: KindPage}, true},
		{"issue", Descriptor{Name: "bug", ID: "12", RepoPath: "o/r", Kind: KindIssue}, true},
		{"pr", Descriptor{Name: "fix", ID: "13", RepoPath: "o/r", Kind: KindPullRequest}, true},
		{"page with id", Descriptor{ID: "1", RepoPath: "o/r", Kind: KindPage}, false},
		{"issue without id", Descriptor{Kind: KindIssue}, false},
		{"id without repo", Descriptor{ID: "1", Kind: KindIssue}, false},
		{"unknown kind", Descriptor{Kind: "wiki"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidDescriptor) {
				t.Fatalf("Validate: got %v, want ErrInvalidDescriptor", err)
			}
		})
	}
}

func TestDescriptorJSON_NullsForPlainPage(t *testing.T) {
	data, err := json.Marshal(Descriptor{URL: "https://github.com", Name: "GitHub", Kind: KindPage})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"url":"https://github.com","name":"GitHub","id":null,"repoPath":null,"kind":"page"}`
	if string(data) != want {
		t.Fatalf("got %s\nwant %s", data, want)
	}

	var back Descriptor
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.ID != "" || back.RepoPath != "" || back.Kind != KindPage {
		t.Fatalf("unexpected decode: %+v", back)
	}
}

func TestDescriptorJSON_DefaultsKind(t *testing.T) {
	var d Descriptor
	if err := json.Unmarshal([]byte(`{"url":"u","name":"n"}`), &d); err != nil {
		t.Fatal(err)
	}
	if d.Kind != KindPage {
		t.Fatalf("Kind = %q, want page", d.Kind)
	}
}

func TestStripFragment(t *testing.T) {
	tests := map[string]string{
		"https://github.com/o/r/issues/1#issuecomment-9": "https://github.com/o/r/issues/1",
		"https://github.com/o/r#":                        "https://github.com/o/r",
		"https://github.com/o/r":                         "https://github.com/o/r",
		"#only":                                          "",
		"":                                               "",
	}
	for in, want := range tests {
		if got := StripFragment(in); got != want {
			t.Errorf("StripFragment(%q) = %q, want %q", in, got, want)
		}
	}
}
