package post

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FormatVersion tags the provenance layout written by this version. Posts
// carrying a different tag are re-imported on the next sync.
const FormatVersion = "1.0.0"

// Provenance records which gist produced a post and when it was synced.
// It is stored as the nested "gist" front matter record.
type Provenance struct {
	ID          string `yaml:"id"`
	Format      string `yaml:"format"`
	Forked      bool   `yaml:"forked"`
	CreatedAt   string `yaml:"created_at"`
	UpdatedAt   string `yaml:"updated_at"`
	URLAPI      string `yaml:"url_api,omitempty"`
	URLHTML     string `yaml:"url_html,omitempty"`
	URLForks    string `yaml:"url_forks,omitempty"`
	URLComments string `yaml:"url_comments,omitempty"`
}

// Post is the field set of a single site post
type Post struct {
	// Path is the post location relative to the posts directory, without
	// extension (e.g. "gists/abc123").
	Path string `yaml:"-"`
	// Source is the backing file relative to the site source directory.
	// It is only set on posts read from the store.
	Source string `yaml:"-"`
	// Content is the Markdown body below the front matter.
	Content string `yaml:"-"`

	Title      string      `yaml:"title"`
	Date       string      `yaml:"date,omitempty"`
	Categories StringList  `yaml:"categories,omitempty"`
	Tags       StringList  `yaml:"tags,omitempty"`
	Gist       *Provenance `yaml:"gist,omitempty"`

	// Extra holds every other front matter field, including named blocks
	// extracted from gist annotations.
	Extra map[string]interface{} `yaml:",inline"`
}

// Index maps gist ids to the local posts imported from them
type Index map[string]*Post

// GistID returns the provenance gist id, or "" for posts not imported
// from a gist.
func (p *Post) GistID() string {
	if p.Gist == nil {
		return ""
	}
	return p.Gist.ID
}

// Has reports whether the named field carries a value
func (p *Post) Has(name string) bool {
	switch name {
	case "title":
		return p.Title != ""
	case "date":
		return p.Date != ""
	case "categories":
		return len(p.Categories) > 0
	case "tags":
		return len(p.Tags) > 0
	case "gist":
		return p.Gist != nil
	case "content":
		return p.Content != ""
	case "path":
		return p.Path != ""
	}
	_, ok := p.Extra[name]
	return ok
}

// reserved names are struct fields and can never live in Extra
var reserved = map[string]bool{
	"title":      true,
	"date":       true,
	"categories": true,
	"tags":       true,
	"gist":       true,
}

// Set assigns an extra field. Names backed by struct fields are ignored.
func (p *Post) Set(name string, value interface{}) {
	if reserved[name] {
		return
	}
	if p.Extra == nil {
		p.Extra = make(map[string]interface{})
	}
	p.Extra[name] = value
}

// StringList is a list of strings that also accepts a single scalar in
// YAML, as site generators allow "tags: foo".
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}

// Union returns the items of a followed by the items of b that are not
// yet present, preserving order.
func Union(a, b []string) StringList {
	seen := make(map[string]bool, len(a)+len(b))
	out := make(StringList, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, item := range list {
			if seen[item] {
				continue
			}
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
