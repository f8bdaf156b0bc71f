package post

import (
	"reflect"
	"strings"

	"github.com/schaermu/gistsync/internal/annotate"
	"github.com/schaermu/gistsync/internal/frontmatter"
)

// Build finalizes a gist-derived post. A front matter header at the top of
// p.Content is merged into p (list fields are unioned, scalar fields are
// overridden, provenance and private "_" keys are left alone), then
// annotation markers in the remaining body are processed.
//
// Build always produces a usable post. The returned error only reports a
// front matter header that could not be parsed and was therefore kept as
// part of the content.
func Build(p *Post) error {
	var fm Post
	body, found, err := frontmatter.Parse(p.Content, &fm)
	if found {
		p.Content = body
		mergeMatter(p, &fm)
	}

	defaults := map[string]bool{"content": true, "path": true}
	for name := range reserved {
		if p.Has(name) {
			defaults[name] = true
		}
	}
	for name := range p.Extra {
		defaults[name] = true
	}

	content, fields := annotate.Apply(p.Content, defaults)
	p.Content = content
	for name, value := range fields {
		p.Set(name, value)
	}

	return err
}

func mergeMatter(p, fm *Post) {
	p.Categories = Union(fm.Categories, p.Categories)
	p.Tags = Union(fm.Tags, p.Tags)

	if fm.Title != "" {
		p.Title = fm.Title
	}
	if fm.Date != "" {
		p.Date = fm.Date
	}

	for name, value := range fm.Extra {
		if strings.HasPrefix(name, "_") || name == "path" {
			continue
		}
		if existing, ok := p.Extra[name].([]interface{}); ok {
			if list, ok := value.([]interface{}); ok {
				p.Set(name, unionValues(list, existing))
				continue
			}
		}
		p.Set(name, value)
	}
}

func unionValues(a, b []interface{}) []interface{} {
	out := make([]interface{}, 0, len(a)+len(b))
	for _, list := range [][]interface{}{a, b} {
		for _, item := range list {
			if containsValue(out, item) {
				continue
			}
			out = append(out, item)
		}
	}
	return out
}

func containsValue(list []interface{}, v interface{}) bool {
	for _, item := range list {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}
