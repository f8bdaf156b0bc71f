package post

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/schaermu/gistsync/internal/frontmatter"
)

var (
	// ErrExists is returned when a post would overwrite an existing file
	// without replace being requested.
	ErrExists = errors.New("post already exists")

	// ErrNotFound is returned when deleting a file that does not exist
	ErrNotFound = errors.New("post file not found")
)

// Store reads and writes the site's post collection
type Store interface {
	// FindByGistID indexes every post that carries gist provenance
	FindByGistID(ctx context.Context) (Index, error)
	// CreateOrUpdate writes p and returns its source path
	CreateOrUpdate(ctx context.Context, p *Post, replace bool) (string, error)
	// DeleteFile removes the post file at the given source path
	DeleteFile(ctx context.Context, source string) error
}

// Extensions are the file extensions recognized as posts
var Extensions = []string{".md", ".markdown"}

// FileStore implements Store on a filesystem rooted at the site source
// directory. Posts live below postsDir as "<path>.md".
type FileStore struct {
	fs       billy.Filesystem
	postsDir string
	logger   *slog.Logger
}

// NewFileStore creates a store on top of an existing filesystem
func NewFileStore(fs billy.Filesystem, postsDir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FileStore{
		fs:       fs,
		postsDir: path.Clean(postsDir),
		logger:   logger,
	}
}

// NewOSStore creates a store backed by the site source directory on disk
func NewOSStore(sourceDir, postsDir string, logger *slog.Logger) *FileStore {
	return NewFileStore(osfs.New(sourceDir), postsDir, logger)
}

// IsPostFile returns true if the file has a post extension
func IsPostFile(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, valid := range Extensions {
		if ext == valid {
			return true
		}
	}
	return false
}

// FindByGistID walks the posts directory and indexes posts by gist id.
// Hidden files and directories are skipped, as are files whose front
// matter cannot be parsed.
func (s *FileStore) FindByGistID(ctx context.Context) (Index, error) {
	index := make(Index)

	if _, err := s.fs.Stat(s.postsDir); err != nil {
		if os.IsNotExist(err) {
			return index, nil
		}
		return nil, fmt.Errorf("failed to stat posts directory: %w", err)
	}

	err := util.Walk(s.fs, s.postsDir, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if name != s.postsDir && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() || !IsPostFile(name) {
			return nil
		}

		p, err := s.read(name)
		if err != nil {
			s.logger.Warn("skipping unreadable post", "source", name, "error", err)
			return nil
		}

		id := p.GistID()
		if id == "" {
			return nil
		}

		if prev, dup := index[id]; dup {
			s.logger.Warn("gist imported more than once, keeping first post",
				"gist", id, "kept", prev.Source, "ignored", p.Source)
			return nil
		}
		index[id] = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan posts: %w", err)
	}

	return index, nil
}

func (s *FileStore) read(name string) (*Post, error) {
	data, err := util.ReadFile(s.fs, name)
	if err != nil {
		return nil, err
	}

	var p Post
	body, _, err := frontmatter.Parse(string(data), &p)
	if err != nil {
		return nil, err
	}

	p.Source = name
	p.Content = body
	p.Path = strings.TrimSuffix(strings.TrimPrefix(name, s.postsDir+"/"), path.Ext(name))
	return &p, nil
}

// SourcePath returns the source path a post with the given path is written to
func (s *FileStore) SourcePath(postPath string) string {
	return path.Join(s.postsDir, postPath+".md")
}

// CreateOrUpdate renders p and writes it atomically. Without replace an
// existing file is left alone and ErrExists is returned.
func (s *FileStore) CreateOrUpdate(ctx context.Context, p *Post, replace bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.Path == "" {
		return "", fmt.Errorf("post has no path")
	}

	dst := s.SourcePath(p.Path)

	if !replace {
		if _, err := s.fs.Stat(dst); err == nil {
			return "", fmt.Errorf("%s: %w", dst, ErrExists)
		}
	}

	data, err := frontmatter.Render(p, p.Content)
	if err != nil {
		return "", err
	}

	if err := s.writeFile(dst, data); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dst, err)
	}

	return dst, nil
}

// writeFile writes data to dst through a temp file and rename
func (s *FileStore) writeFile(dst string, data []byte) error {
	dir := path.Dir(dst)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := util.TempFile(s.fs, dir, ".gistsync-tmp-")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpPath)
		return err
	}

	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpPath)
		return err
	}

	if ch, ok := s.fs.(billy.Change); ok {
		if err := ch.Chmod(tmpPath, 0644); err != nil {
			_ = s.fs.Remove(tmpPath)
			return err
		}
	}

	if err := s.fs.Rename(tmpPath, dst); err != nil {
		_ = s.fs.Remove(tmpPath)
		return err
	}

	return nil
}

// DeleteFile removes the post file at source
func (s *FileStore) DeleteFile(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.Remove(source); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", source, ErrNotFound)
		}
		return err
	}
	return nil
}
