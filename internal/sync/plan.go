package sync

import (
	"fmt"

	"github.com/schaermu/gistsync/internal/gist"
	"github.com/schaermu/gistsync/internal/post"
)

// Item is a remote gist queued for import
type Item struct {
	Gist *gist.Gist
	// Local is the previously imported post, nil for new gists
	Local *post.Post
	// Post is the post built from the gist content. It stays nil until
	// the content has been fetched.
	Post *post.Post
}

// Plan represents the sync operations to perform. A gist id appears in at
// most one list.
type Plan struct {
	Created []*Item
	Updated []*Item
	Deleted []*post.Post
}

// Empty reports whether the plan changes nothing
func (p *Plan) Empty() bool {
	return len(p.Created) == 0 && len(p.Updated) == 0 && len(p.Deleted) == 0
}

// Result summarizes a sync run
type Result struct {
	Created       int
	Updated       int
	Deleted       int
	SkippedForked int
	DryRun        bool
	Plan          *Plan
}

// Changed returns the number of posts written or removed
func (r *Result) Changed() int {
	return r.Created + r.Updated + r.Deleted
}

func (r *Result) String() string {
	return fmt.Sprintf("%d created, %d updated, %d deleted, %d forked skipped",
		r.Created, r.Updated, r.Deleted, r.SkippedForked)
}

// ApplyError reports the post write or removal that stopped a run. Writes
// done before it are kept.
type ApplyError struct {
	Op   string // create, update or delete
	Path string
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}
