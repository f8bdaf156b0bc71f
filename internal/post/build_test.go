package post

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gistPost(content string) *Post {
	return &Post{
		Path:       "gists/abc",
		Title:      "gist_abc",
		Date:       "2020-01-01T00:00:00Z",
		Categories: StringList{"gists"},
		Tags:       StringList{"gist"},
		Content:    content,
		Gist: &Provenance{
			ID:        "abc",
			Format:    FormatVersion,
			CreatedAt: "2020-01-01T00:00:00Z",
			UpdatedAt: "2020-01-02T00:00:00Z",
		},
	}
}

func TestBuild_NoFrontMatter(t *testing.T) {
	p := gistPost("# Hello\n<!-- @Gist(hide) -->\nsecret\n<!-- @Gist(hide) -->\nworld")

	require.NoError(t, Build(p))

	assert.Equal(t, "# Hello\nworld", p.Content)
	assert.Equal(t, "gist_abc", p.Title)
	assert.Equal(t, StringList{"gists"}, p.Categories)
	assert.Empty(t, p.Extra)
}

func TestBuild_FrontMatterOverridesScalarsAndUnionsLists(t *testing.T) {
	p := gistPost("---\ntitle: Real Title\ndate: 2019-05-05\ncategories: [notes, gists]\ntags: go\nlayout: post\n_private: x\n---\nbody")

	require.NoError(t, Build(p))

	assert.Equal(t, "body", p.Content)
	assert.Equal(t, "Real Title", p.Title)
	assert.Equal(t, "2019-05-05", p.Date)
	assert.Equal(t, StringList{"notes", "gists"}, p.Categories)
	assert.Equal(t, StringList{"go", "gist"}, p.Tags)
	assert.Equal(t, "post", p.Extra["layout"])
	_, hasPrivate := p.Extra["_private"]
	assert.False(t, hasPrivate)
}

func TestBuild_FrontMatterCannotReplaceProvenance(t *testing.T) {
	p := gistPost("---\ngist:\n  id: other\npath: elsewhere\n---\nbody")

	require.NoError(t, Build(p))

	assert.Equal(t, "abc", p.Gist.ID)
	assert.Equal(t, "gists/abc", p.Path)
	_, hasPath := p.Extra["path"]
	assert.False(t, hasPath)
}

func TestBuild_FrontMatterFieldWinsOverAnnotation(t *testing.T) {
	p := gistPost("---\nexcerpt: from matter\n---\n<!-- @Gist(excerpt) -->\nfrom block\n<!-- @Gist(excerpt) -->\nbody")

	require.NoError(t, Build(p))

	assert.Equal(t, "body", p.Content)
	assert.Equal(t, "from matter", p.Extra["excerpt"])
}

func TestBuild_AnnotationFieldsBecomeExtra(t *testing.T) {
	p := gistPost("<!-- @Gist(excerpt) -->\nhello\n<!-- @Gist(excerpt) -->\nworld")

	require.NoError(t, Build(p))

	assert.Equal(t, "world", p.Content)
	assert.Equal(t, "hello", p.Extra["excerpt"])
}

func TestBuild_AnnotationCannotOverrideReservedFields(t *testing.T) {
	p := gistPost("<!-- @Gist(title) -->\nnew title\n<!-- @Gist(title) -->\nbody")

	require.NoError(t, Build(p))

	assert.Equal(t, "gist_abc", p.Title)
	assert.Equal(t, "body", p.Content)
	assert.Empty(t, p.Extra)
}

func TestBuild_InvalidFrontMatterIsKept(t *testing.T) {
	content := "---\ntitle: [broken\n---\nbody"
	p := gistPost(content)

	err := Build(p)
	require.Error(t, err)

	assert.Equal(t, content, p.Content)
	assert.Equal(t, "gist_abc", p.Title)
}

func TestBuild_ExtraListsAreUnioned(t *testing.T) {
	p := gistPost("---\nkeywords: [a, b]\n---\nbody")
	p.Set("keywords", []interface{}{"b", "c"})

	require.NoError(t, Build(p))

	assert.Equal(t, []interface{}{"a", "b", "c"}, p.Extra["keywords"])
}

func TestUnion(t *testing.T) {
	assert.Equal(t, StringList{"a", "b", "c"}, Union([]string{"a", "b"}, []string{"b", "c", "a"}))
	assert.Equal(t, StringList{}, Union(nil, nil))
}

func TestPost_Has(t *testing.T) {
	p := &Post{Title: "t"}
	assert.True(t, p.Has("title"))
	assert.False(t, p.Has("date"))
	assert.False(t, p.Has("excerpt"))

	p.Set("excerpt", "x")
	assert.True(t, p.Has("excerpt"))

	p.Set("title", "ignored")
	assert.Equal(t, "t", p.Title)
	_, ok := p.Extra["title"]
	assert.False(t, ok)
}
