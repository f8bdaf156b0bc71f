package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/schaermu/gistsync/internal/config"
	"github.com/schaermu/gistsync/internal/gist"
	"github.com/schaermu/gistsync/internal/hook"
	"github.com/schaermu/gistsync/internal/post"
)

// Options selects what a single run synchronizes
type Options struct {
	Username    string
	ForceUpdate bool
	SkipForked  bool
}

// Engine orchestrates the sync process
type Engine struct {
	cfg    *config.Config
	source gist.Source
	store  post.Store
	hooks  hook.Runner
	logger *slog.Logger
	dryRun bool
}

// NewEngine creates a new sync engine. hooks may be nil.
func NewEngine(cfg *config.Config, source gist.Source, store post.Store, hooks hook.Runner, logger *slog.Logger, dryRun bool) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		cfg:    cfg,
		source: source,
		store:  store,
		hooks:  hooks,
		logger: logger,
		dryRun: dryRun,
	}
}

// Sync mirrors the user's gists into the local post collection
func (e *Engine) Sync(ctx context.Context, opts Options) (*Result, error) {
	if opts.Username == "" {
		return nil, fmt.Errorf("no gist user given")
	}

	e.logger.Info("starting sync",
		"user", opts.Username,
		"force", opts.ForceUpdate,
		"skip_forked", opts.SkipForked,
		"dry_run", e.dryRun)

	local, err := e.store.FindByGistID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load local posts: %w", err)
	}
	e.logger.Info("loaded local posts", "count", len(local))

	if remaining, err := e.source.RateLimit(ctx); err != nil {
		e.logger.Warn("failed to query rate limit", "error", err)
	} else {
		e.logger.Info("github rate limit", "remaining", remaining)
	}

	remotes, err := e.source.ListGists(ctx, opts.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to list gists: %w", err)
	}
	e.logger.Info("fetched gists", "count", len(remotes))

	plan := e.buildPlan(remotes, local, opts.ForceUpdate)

	if err := e.resolveForks(ctx, plan); err != nil {
		return nil, err
	}

	result := &Result{DryRun: e.dryRun, Plan: plan}
	if opts.SkipForked {
		result.SkippedForked = skipForked(plan)
		if result.SkippedForked > 0 {
			e.logger.Info("skipped forked gists", "count", result.SkippedForked)
		}
	}

	result.Created = len(plan.Created)
	result.Updated = len(plan.Updated)
	result.Deleted = len(plan.Deleted)

	e.logger.Info("sync plan",
		"create", result.Created,
		"update", result.Updated,
		"delete", result.Deleted)

	if e.dryRun {
		e.logPlanDetails(plan)
		e.logger.Info("dry-run complete, no changes applied")
		return result, nil
	}

	if err := e.preparePosts(ctx, plan.Created); err != nil {
		return nil, err
	}
	if err := e.preparePosts(ctx, plan.Updated); err != nil {
		return nil, err
	}

	if err := e.applyPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to apply sync plan: %w", err)
	}

	if result.Changed() > 0 && e.hooks != nil {
		if err := e.hooks.AfterSync(ctx); err != nil {
			e.logger.Warn("after-sync hook failed", "error", err)
		}
	}

	e.logger.Info("sync completed successfully",
		"created", result.Created,
		"updated", result.Updated,
		"deleted", result.Deleted)

	return result, nil
}

// buildPlan computes the diff between the remote gists and the local index
// in a single pass over the remotes.
func (e *Engine) buildPlan(remotes []*gist.Gist, local post.Index, force bool) *Plan {
	plan := &Plan{
		Created: make([]*Item, 0),
		Updated: make([]*Item, 0),
		Deleted: make([]*post.Post, 0),
	}

	seen := make(map[string]bool, len(local))
	for _, g := range remotes {
		if !g.Eligible() {
			e.logger.Debug("skipping gist without a single markdown file", "gist", g.ID, "files", len(g.Files))
			continue
		}

		existing, ok := local[g.ID]
		if !ok {
			plan.Created = append(plan.Created, &Item{Gist: g})
			continue
		}

		seen[g.ID] = true
		if needsUpdate(existing, g, force) {
			g.Forked = existing.Gist.Forked
			plan.Updated = append(plan.Updated, &Item{Gist: g, Local: existing})
		}
	}

	for id, p := range local {
		if !seen[id] {
			plan.Deleted = append(plan.Deleted, p)
		}
	}
	sort.Slice(plan.Deleted, func(i, j int) bool {
		return plan.Deleted[i].Source < plan.Deleted[j].Source
	})

	return plan
}

// needsUpdate reports whether an imported post is stale. Timestamps are
// compared as the exact strings the API returned.
func needsUpdate(existing *post.Post, g *gist.Gist, force bool) bool {
	if force {
		return true
	}
	prov := existing.Gist
	return prov.Format != post.FormatVersion || prov.UpdatedAt != g.UpdatedAt
}

// resolveForks fetches the detail record of every new gist to learn
// whether it is a fork. Updated gists keep the flag stored locally.
func (e *Engine) resolveForks(ctx context.Context, plan *Plan) error {
	for _, item := range plan.Created {
		detail, err := e.source.GetGist(ctx, item.Gist.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch gist details: %w", err)
		}
		item.Gist.Forked = detail.IsFork()
	}
	return nil
}

// skipForked drops forked gists from the created list and returns how many
// were dropped
func skipForked(plan *Plan) int {
	kept := plan.Created[:0]
	skipped := 0
	for _, item := range plan.Created {
		if item.Gist.Forked {
			skipped++
			continue
		}
		kept = append(kept, item)
	}
	plan.Created = kept
	return skipped
}

// preparePosts downloads the Markdown content of each item and builds its
// post
func (e *Engine) preparePosts(ctx context.Context, items []*Item) error {
	for _, item := range items {
		file, ok := item.Gist.MarkdownFile()
		if !ok {
			return fmt.Errorf("gist %s has no single markdown file", item.Gist.ID)
		}

		content, err := e.source.FetchRaw(ctx, file.RawURL)
		if err != nil {
			return fmt.Errorf("failed to fetch content of gist %s: %w", item.Gist.ID, err)
		}

		p := e.newPost(item.Gist, content)
		if err := post.Build(p); err != nil {
			e.logger.Warn("ignoring invalid front matter", "gist", item.Gist.ID, "error", err)
		}
		item.Post = p
	}
	return nil
}

// newPost derives the post fields of a gist
func (e *Engine) newPost(g *gist.Gist, content string) *post.Post {
	category := e.cfg.Posts.Category
	tags := []string{e.cfg.Posts.Tag}
	if g.Forked {
		category = e.cfg.Posts.ForkedCategory
		tags = append(tags, e.cfg.Posts.ForkedTag)
	}

	return &post.Post{
		Path:       category + "/" + g.ID,
		Content:    content,
		Title:      g.Title(),
		Date:       g.CreatedAt,
		Categories: post.StringList{category},
		Tags:       tags,
		Gist: &post.Provenance{
			ID:          g.ID,
			Format:      post.FormatVersion,
			Forked:      g.Forked,
			CreatedAt:   g.CreatedAt,
			UpdatedAt:   g.UpdatedAt,
			URLAPI:      g.URL,
			URLHTML:     g.HTMLURL,
			URLForks:    g.ForksURL,
			URLComments: g.CommentsURL,
		},
	}
}

// applyPlan writes created and updated posts and removes deleted ones. The
// first failure stops the run.
func (e *Engine) applyPlan(ctx context.Context, plan *Plan) error {
	for _, item := range plan.Created {
		dst, err := e.store.CreateOrUpdate(ctx, item.Post, true)
		if err != nil {
			return &ApplyError{Op: "create", Path: item.Post.Path, Err: err}
		}
		e.logger.Info("created post", "gist", item.Gist.ID, "path", dst)
	}

	for _, item := range plan.Updated {
		dst, err := e.store.CreateOrUpdate(ctx, item.Post, true)
		if err != nil {
			return &ApplyError{Op: "update", Path: item.Post.Path, Err: err}
		}
		e.logger.Info("updated post", "gist", item.Gist.ID, "path", dst)

		// The post moved, e.g. after a category change
		if old := item.Local.Source; old != "" && old != dst {
			if err := e.store.DeleteFile(ctx, old); err != nil && !errors.Is(err, post.ErrNotFound) {
				return &ApplyError{Op: "delete", Path: old, Err: err}
			}
			e.logger.Info("removed previous post location", "gist", item.Gist.ID, "path", old)
		}
	}

	for _, p := range plan.Deleted {
		if err := e.store.DeleteFile(ctx, p.Source); err != nil {
			if errors.Is(err, post.ErrNotFound) {
				e.logger.Warn("post already removed", "gist", p.GistID(), "path", p.Source)
				continue
			}
			return &ApplyError{Op: "delete", Path: p.Source, Err: err}
		}
		e.logger.Info("deleted post", "gist", p.GistID(), "path", p.Source)
	}

	return nil
}

// logPlanDetails logs detailed plan information for dry-run
func (e *Engine) logPlanDetails(plan *Plan) {
	for _, item := range plan.Created {
		e.logger.Info("[dry-run] would create", "gist", item.Gist.ID, "title", item.Gist.Title(), "forked", item.Gist.Forked)
	}
	for _, item := range plan.Updated {
		e.logger.Info("[dry-run] would update", "gist", item.Gist.ID, "path", item.Local.Source)
	}
	for _, p := range plan.Deleted {
		e.logger.Info("[dry-run] would delete", "gist", p.GistID(), "path", p.Source)
	}
}
