package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// FakeGitHub serves the parts of the GitHub REST API used for gists:
// paginated user listings, gist details, raw file content and the rate
// limit.
type FakeGitHub struct {
	srv *httptest.Server

	mu    sync.Mutex
	user  string
	gists    map[string]*fakeGist
	requests map[string]int
}

type fakeGist struct {
	id          string
	description string
	createdAt   string
	updatedAt   string
	filename    string
	language    string
	content     string
	forkOf      string
}

// NewFakeGitHub starts a fake API serving the gists of user
func NewFakeGitHub(t testing.TB, user string) *FakeGitHub {
	t.Helper()

	f := &FakeGitHub{
		user:     user,
		gists:    make(map[string]*fakeGist),
		requests: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/rate_limit", f.handleRateLimit)
	mux.HandleFunc("/users/", f.handleList)
	mux.HandleFunc("/gists/", f.handleDetail)
	mux.HandleFunc("/raw/", f.handleRaw)

	f.srv = httptest.NewServer(f.count(mux))
	t.Cleanup(f.srv.Close)
	return f
}

// URL returns the API base URL
func (f *FakeGitHub) URL() string {
	return f.srv.URL
}

// AddMarkdown publishes a gist with a single Markdown file
func (f *FakeGitHub) AddMarkdown(id, description, updatedAt, content string) {
	f.put(&fakeGist{
		id:          id,
		description: description,
		createdAt:   "2020-01-01T00:00:00Z",
		updatedAt:   updatedAt,
		filename:    id + ".md",
		language:    "Markdown",
		content:     content,
	})
}

// AddFork publishes a Markdown gist forked from upstream
func (f *FakeGitHub) AddFork(id, upstream, updatedAt, content string) {
	f.put(&fakeGist{
		id:        id,
		createdAt: "2020-01-01T00:00:00Z",
		updatedAt: updatedAt,
		filename:  id + ".md",
		language:  "Markdown",
		content:   content,
		forkOf:    upstream,
	})
}

// AddFile publishes a gist with a single non-Markdown file
func (f *FakeGitHub) AddFile(id, filename, language, content string) {
	f.put(&fakeGist{
		id:        id,
		createdAt: "2020-01-01T00:00:00Z",
		updatedAt: "2020-01-01T00:00:00Z",
		filename:  filename,
		language:  language,
		content:   content,
	})
}

// Update changes the content and timestamp of a gist
func (f *FakeGitHub) Update(id, updatedAt, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.gists[id]; ok {
		g.updatedAt = updatedAt
		g.content = content
	}
}

// Remove deletes a gist
func (f *FakeGitHub) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.gists, id)
}

// RequestCount returns how often path was requested
func (f *FakeGitHub) RequestCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func (f *FakeGitHub) put(g *fakeGist) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gists[g.id] = g
}

func (f *FakeGitHub) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests[r.URL.Path]++
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeGitHub) handleRateLimit(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]interface{}{
		"resources": map[string]interface{}{
			"core": map[string]interface{}{"limit": 60, "remaining": 59, "reset": 1700000000},
		},
	})
}

func (f *FakeGitHub) handleList(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/users/"+f.user+"/gists" {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		return
	}

	perPage := queryInt(r, "per_page", 30)
	page := queryInt(r, "page", 1)

	f.mu.Lock()
	ids := make([]string, 0, len(f.gists))
	for id := range f.gists {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(ids) {
		start = len(ids)
	}
	if end > len(ids) {
		end = len(ids)
	}

	items := make([]map[string]interface{}, 0, end-start)
	for _, id := range ids[start:end] {
		items = append(items, f.summary(f.gists[id]))
	}
	hasNext := end < len(ids)
	f.mu.Unlock()

	if hasNext {
		w.Header().Set("Link", fmt.Sprintf(`<%s%s?per_page=%d&page=%d>; rel="next"`, f.srv.URL, r.URL.Path, perPage, page+1))
	}
	writeJSON(w, items)
}

func (f *FakeGitHub) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/gists/")

	f.mu.Lock()
	g, ok := f.gists[id]
	var body map[string]interface{}
	if ok {
		body = f.summary(g)
		if g.forkOf != "" {
			body["fork_of"] = map[string]interface{}{
				"id":       g.forkOf,
				"url":      f.srv.URL + "/gists/" + g.forkOf,
				"html_url": "https://gist.github.com/" + g.forkOf,
			}
		}
	}
	f.mu.Unlock()

	if !ok {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, body)
}

func (f *FakeGitHub) handleRaw(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/raw/")

	f.mu.Lock()
	g, ok := f.gists[id]
	content := ""
	if ok {
		content = g.content
	}
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprint(w, content)
}

// summary renders the list representation of g. Callers hold mu.
func (f *FakeGitHub) summary(g *fakeGist) map[string]interface{} {
	return map[string]interface{}{
		"id":           g.id,
		"description":  g.description,
		"created_at":   g.createdAt,
		"updated_at":   g.updatedAt,
		"url":          f.srv.URL + "/gists/" + g.id,
		"html_url":     "https://gist.github.com/" + g.id,
		"forks_url":    f.srv.URL + "/gists/" + g.id + "/forks",
		"comments_url": f.srv.URL + "/gists/" + g.id + "/comments",
		"files": map[string]interface{}{
			g.filename: map[string]interface{}{
				"filename": g.filename,
				"language": g.language,
				"raw_url":  f.srv.URL + "/raw/" + g.id,
				"size":     len(g.content),
			},
		},
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
