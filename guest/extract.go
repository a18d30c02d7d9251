package guest

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/ghframe/page"
)

const (
	selIssueContainers = "#discussion_bucket, #files_bucket, #commits_bucket"
	selIssueTitle      = ".js-issue-title"
	selIssueNumber     = ".gh-header-number"
	selRepoNav         = ".js-repo-nav .reponav-item"
	selPRTabs          = ".tabnav-pr"
	selLoggedIn        = "body.logged-in"
)

// Extract classifies the snapshot and builds its descriptor. It is a pure
// function of s.
//
// A URL that does not start with "http" is a network-error page and is
// reported as "". An issue-like page whose number or repository cannot be
// read degrades to a plain page so the descriptor stays valid.
func Extract(s Snapshot) page.Descriptor {
	url := s.URL
	if !strings.HasPrefix(url, "http") {
		url = ""
	}
	url = page.StripFragment(url)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
	if err != nil {
		return page.Descriptor{URL: url, Name: s.Title, Kind: page.KindPage}
	}

	title := s.Title
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	if doc.Find(selIssueContainers).Length() == 0 {
		return page.Descriptor{URL: url, Name: title, Kind: page.KindPage}
	}

	name := strings.TrimSpace(doc.Find(selIssueTitle).First().Text())
	id := strings.TrimLeftFunc(
		strings.TrimSpace(doc.Find(selIssueNumber).First().Text()),
		func(r rune) bool { return !unicode.IsDigit(r) },
	)
	href, _ := doc.Find(selRepoNav).First().Attr("href")
	repo := strings.TrimPrefix(href, "/")

	if id == "" || repo == "" {
		if name == "" {
			name = title
		}
		return page.Descriptor{URL: url, Name: name, Kind: page.KindPage}
	}

	kind := page.KindIssue
	if doc.Find(selPRTabs).Length() > 0 {
		kind = page.KindPullRequest
	}
	return page.Descriptor{URL: url, Name: name, ID: id, RepoPath: repo, Kind: kind}
}

// IsLogged reports whether the body carries the logged-in marker class.
func IsLogged(s Snapshot) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
	if err != nil {
		return false
	}
	return doc.Find(selLoggedIn).Length() > 0
}
