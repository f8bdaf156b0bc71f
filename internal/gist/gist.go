package gist

// MarkdownLanguage is the language tag GitHub assigns to Markdown files
const MarkdownLanguage = "Markdown"

// Gist is a gist as returned by the list endpoint. Timestamps are kept as
// the exact strings the API returned so they can be compared verbatim with
// the values stored on local posts.
type Gist struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
	Files       map[string]File `json:"files"`
	URL         string          `json:"url"`
	HTMLURL     string          `json:"html_url"`
	ForksURL    string          `json:"forks_url"`
	CommentsURL string          `json:"comments_url"`

	// Forked is not part of the list payload. It is resolved from the
	// detail endpoint for new gists and inherited from the local post
	// for known ones.
	Forked bool `json:"-"`
}

// File is a single file of a gist
type File struct {
	Filename string `json:"filename"`
	Language string `json:"language"`
	Type     string `json:"type"`
	RawURL   string `json:"raw_url"`
	Size     int    `json:"size"`
}

// Detail is the subset of the single-gist payload needed for sync
type Detail struct {
	ID     string      `json:"id"`
	ForkOf *ForkSource `json:"fork_of"`
}

// ForkSource references the gist a fork was created from
type ForkSource struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	HTMLURL string `json:"html_url"`
}

// IsFork returns true if the detail references a fork source
func (d *Detail) IsFork() bool {
	return d != nil && d.ForkOf != nil
}

// IsMarkdown returns true if the file is tagged as Markdown
func (f File) IsMarkdown() bool {
	return f.Language == MarkdownLanguage
}

// MarkdownFiles returns every Markdown file of the gist
func (g *Gist) MarkdownFiles() []File {
	var files []File
	for _, f := range g.Files {
		if f.IsMarkdown() {
			files = append(files, f)
		}
	}
	return files
}

// MarkdownFile returns the gist's only Markdown file. ok is false when the
// gist has none or more than one.
func (g *Gist) MarkdownFile() (File, bool) {
	files := g.MarkdownFiles()
	if len(files) != 1 {
		return File{}, false
	}
	return files[0], true
}

// Eligible reports whether the gist can become a post: it must contain
// exactly one Markdown file.
func (g *Gist) Eligible() bool {
	_, ok := g.MarkdownFile()
	return ok
}

// Title returns the description, falling back to "gist_<id>"
func (g *Gist) Title() string {
	if g.Description != "" {
		return g.Description
	}
	return "gist_" + g.ID
}
