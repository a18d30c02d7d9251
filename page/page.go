// Package page defines the data model shared by the guest observer, the
// frame controller and the history store. These are the wire types: they
// cross the guest/host channel as JSON.
package page

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies the embedded page.
type Kind string

const (
	KindPage        Kind = "page"
	KindIssue       Kind = "issue"
	KindPullRequest Kind = "pull-request"
)

// IsIssueLike reports whether the kind carries an id and a repository path.
func (k Kind) IsIssueLike() bool {
	return k == KindIssue || k == KindPullRequest
}

// Descriptor is the normalised view of the embedded page.
type Descriptor struct {
	URL      string `json:"url"`  // fragment stripped; empty on a network-error page
	Name     string `json:"name"` // page title, or issue/PR title
	ID       string `json:"-"`    // issue/PR number, issue-like only
	RepoPath string `json:"-"`    // owning repository path, issue-like only
	Kind     Kind   `json:"kind"`
}

// ErrInvalidDescriptor is returned by Validate.
var ErrInvalidDescriptor = errors.New("page: invalid descriptor")

// Validate checks that ID and RepoPath are both present or both absent,
// and absent exactly when the kind is KindPage.
func (d Descriptor) Validate() error {
	hasID, hasRepo := d.ID != "", d.RepoPath != ""
	if hasID != hasRepo {
		return fmt.Errorf("%w: id and repoPath must be set together", ErrInvalidDescriptor)
	}
	switch {
	case d.Kind == KindPage:
		if hasID {
			return fmt.Errorf("%w: plain page with id %q", ErrInvalidDescriptor, d.ID)
		}
	case d.Kind.IsIssueLike():
		if !hasID {
			return fmt.Errorf("%w: %s without id", ErrInvalidDescriptor, d.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDescriptor, d.Kind)
	}
	return nil
}

type descriptorJSON struct {
	URL      string  `json:"url"`
	Name     string  `json:"name"`
	ID       *string `json:"id"`
	RepoPath *string `json:"repoPath"`
	Kind     Kind    `json:"kind"`
}

// MarshalJSON encodes absent id/repoPath as null.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	out := descriptorJSON{URL: d.URL, Name: d.Name, Kind: d.Kind}
	if d.ID != "" {
		out.ID = &d.ID
	}
	if d.RepoPath != "" {
		out.RepoPath = &d.RepoPath
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts null or missing id/repoPath.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var in descriptorJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*d = Descriptor{URL: in.URL, Name: in.Name, Kind: in.Kind}
	if in.ID != nil {
		d.ID = *in.ID
	}
	if in.RepoPath != nil {
		d.RepoPath = *in.RepoPath
	}
	if d.Kind == "" {
		d.Kind = KindPage
	}
	return nil
}

// StripFragment removes the fragment identifier and everything after it.
func StripFragment(u string) string {
	if i := strings.IndexByte(u, '#'); i >= 0 {
		return u[:i]
	}
	return u
}

// User is the display information for one user id.
type User struct {
	Name string `json:"name"`
}

// Users maps raw user ids (logins) to display information.
type Users map[string]User
