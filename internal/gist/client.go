package gist

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// DefaultPerPage is the page size used when listing gists
const DefaultPerPage = 100

// Source provides read access to a user's gists
type Source interface {
	// ListGists returns every public gist of username, following
	// pagination to the last page
	ListGists(ctx context.Context, username string) ([]*Gist, error)
	// GetGist fetches the detail record of a single gist
	GetGist(ctx context.Context, id string) (*Detail, error)
	// FetchRaw downloads raw file content
	FetchRaw(ctx context.Context, rawURL string) (string, error)
	// RateLimit reports the remaining core API requests
	RateLimit(ctx context.Context) (int, error)
}

// FetchError reports a failed call to the gist API
type FetchError struct {
	Op     string // list, detail, raw or rate_limit
	Target string // username, gist id or URL
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("gist %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options configures the GitHub client
type Options struct {
	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise
	// ("https://ghe.example.com/api/v3/").
	BaseURL string
	// Token authenticates with a personal access token
	Token string
	// Username and Password authenticate with basic auth when no token
	// is set
	Username string
	Password string
	// PerPage is the list page size
	PerPage   int
	UserAgent string
	// HTTPClient is the base client; authentication wraps its transport
	HTTPClient *http.Client
}

// Client implements Source on top of the GitHub REST API
type Client struct {
	gh      *github.Client
	perPage int
}

// NewClient creates a GitHub gist client
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient

	switch {
	case opts.Token != "":
		ctx := context.Background()
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}))
	case opts.Password != "":
		transport := &github.BasicAuthTransport{
			Username: opts.Username,
			Password: opts.Password,
		}
		if httpClient != nil {
			transport.Transport = httpClient.Transport
		}
		httpClient = transport.Client()
	}

	gh := github.NewClient(httpClient)

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
		}
		gh.BaseURL = u
	}

	if opts.UserAgent != "" {
		gh.UserAgent = opts.UserAgent
	}

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	return &Client{gh: gh, perPage: perPage}, nil
}

// ListGists walks the user's gist pages one after another until GitHub
// stops advertising a next page.
func (c *Client) ListGists(ctx context.Context, username string) ([]*Gist, error) {
	var all []*Gist

	page := 1
	for {
		u := fmt.Sprintf("users/%s/gists?per_page=%d&page=%d", url.PathEscape(username), c.perPage, page)
		req, err := c.gh.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, &FetchError{Op: "list", Target: username, Err: err}
		}

		var gists []*Gist
		resp, err := c.gh.Do(ctx, req, &gists)
		if err != nil {
			return nil, &FetchError{Op: "list", Target: username, Err: err}
		}

		all = append(all, gists...)

		if resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	return all, nil
}

// GetGist fetches a single gist's detail record
func (c *Client) GetGist(ctx context.Context, id string) (*Detail, error) {
	req, err := c.gh.NewRequest(http.MethodGet, "gists/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, &FetchError{Op: "detail", Target: id, Err: err}
	}

	var detail Detail
	if _, err := c.gh.Do(ctx, req, &detail); err != nil {
		return nil, &FetchError{Op: "detail", Target: id, Err: err}
	}

	return &detail, nil
}

// FetchRaw downloads the raw content behind a gist file URL
func (c *Client) FetchRaw(ctx context.Context, rawURL string) (string, error) {
	req, err := c.gh.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{Op: "raw", Target: rawURL, Err: err}
	}

	var buf strings.Builder
	if _, err := c.gh.Do(ctx, req, &buf); err != nil {
		return "", &FetchError{Op: "raw", Target: rawURL, Err: err}
	}

	return buf.String(), nil
}

// RateLimit returns the remaining core API requests
func (c *Client) RateLimit(ctx context.Context) (int, error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return 0, &FetchError{Op: "rate_limit", Target: "core", Err: err}
	}
	if limits == nil || limits.Core == nil {
		return 0, &FetchError{Op: "rate_limit", Target: "core", Err: fmt.Errorf("no core rate in response")}
	}
	return limits.Core.Remaining, nil
}
