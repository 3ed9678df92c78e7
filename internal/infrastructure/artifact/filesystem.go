package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

// FileSystemStoreConfig contains configuration for file system storage
type FileSystemStoreConfig struct {
	// BasePath is the root directory for documents
	// Default: ./data/maps
	BasePath string
	// BaseURL is the URL prefix documents are downloaded from
	// Default: /artifacts
	BaseURL string
	// Extension restricts cleanup to documents of this type
	// Default: .kml
	Extension string
	// Mirror is optional
	Mirror Mirror
	// MirrorPrefix is prepended to object keys
	MirrorPrefix string
	// Logger for operations
	Logger *zap.Logger
}

// FileSystemStore stores documents on the local file system
type FileSystemStore struct {
	config *FileSystemStoreConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewFileSystemStore creates a file system store, creating BasePath if needed
func NewFileSystemStore(config *FileSystemStoreConfig) (*FileSystemStore, error) {
	if config == nil {
		config = &FileSystemStoreConfig{}
	}

	if config.BasePath == "" {
		config.BasePath = "./data/maps"
	}
	if config.BaseURL == "" {
		config.BaseURL = "/artifacts"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Extension == "" {
		config.Extension = ".kml"
	}

	if err := os.MkdirAll(config.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create storage directory %s: %v", ErrStorage, config.BasePath, err)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FileSystemStore{
		config: config,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Store saves a document under {base}/{yyyy}/{mm}/{name}. An existing file
// with the same name is replaced.
func (s *FileSystemStore) Store(ctx context.Context, req *StoreRequest) (*StoreResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request is nil", ErrInvalidRequest)
	}
	if !validName(req.Name) {
		return nil, fmt.Errorf("%w: bad file name %q", ErrInvalidRequest, req.Name)
	}
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrInvalidRequest)
	}

	now := s.now()
	relDir := path.Join(fmt.Sprintf("%d", now.Year()), fmt.Sprintf("%02d", now.Month()))
	dirPath := filepath.Join(s.config.BasePath, filepath.FromSlash(relDir))
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create directory: %v", ErrStorage, err)
	}

	filePath := filepath.Join(dirPath, req.Name)
	if err := writeFileAtomic(filePath, req.Data); err != nil {
		return nil, fmt.Errorf("%w: failed to write %s: %v", ErrStorage, req.Name, err)
	}

	relativePath := path.Join(relDir, req.Name)
	result := &StoreResult{
		Name:        req.Name,
		Path:        relativePath,
		URL:         s.GetURL(relativePath),
		Size:        int64(len(req.Data)),
		ContentType: req.ContentType,
	}

	s.logger.Info("artifact stored",
		zap.String("path", filePath),
		zap.Int("size", len(req.Data)),
		zap.String("url", result.URL))

	if s.config.Mirror != nil {
		key := path.Join(s.config.MirrorPrefix, relativePath)
		if err := s.config.Mirror.Upload(ctx, key, req.Data, req.ContentType); err != nil {
			s.logger.Warn("artifact mirror upload failed",
				zap.String("key", key),
				zap.Error(err))
		} else {
			result.ObjectKey = key
		}
	}

	return result, nil
}

// writeFileAtomic writes through a temp file so readers never see a partial document
func writeFileAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}

// Open returns a stored document by its relative path
func (s *FileSystemStore) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
		}
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrStorage, relPath, err)
	}

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}
	return file, nil
}

// Delete removes a stored document. Deleting a missing document is not an error.
func (s *FileSystemStore) Delete(ctx context.Context, relPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := s.resolve(relPath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: failed to delete %s: %v", ErrStorage, relPath, err)
	}

	s.logger.Info("artifact deleted", zap.String("path", relPath))
	return nil
}

// CleanupOlderThan removes documents whose modification time is older than age
func (s *FileSystemStore) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := s.now().Add(-age)
	deleted := 0

	err := filepath.WalkDir(s.config.BasePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(p) != s.config.Extension {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(p); err == nil {
				deleted++
				s.logger.Debug("deleted old artifact", zap.String("path", p))
			}
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return deleted, fmt.Errorf("%w: cleanup walk failed: %v", ErrStorage, err)
	}

	s.logger.Info("artifact cleanup completed",
		zap.Int("deleted", deleted),
		zap.Duration("age", age))

	return deleted, nil
}

// GetURL returns the download URL for a relative path
func (s *FileSystemStore) GetURL(relPath string) string {
	cleanPath := strings.TrimPrefix(path.Clean(filepath.ToSlash(relPath)), "/")
	return s.config.BaseURL + "/" + cleanPath
}

// resolve maps a relative path to a file under BasePath, rejecting traversal
func (s *FileSystemStore) resolve(relPath string) (string, error) {
	relPath = strings.TrimPrefix(relPath, "/")
	if relPath == "" || containsDotDot(relPath) {
		s.logger.Warn("blocked potentially malicious path", zap.String("path", relPath))
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}

	cleanPath := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}

	absBase, err := filepath.Abs(s.config.BasePath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to resolve base path: %v", ErrStorage, err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.config.BasePath, cleanPath))
	if err != nil {
		return "", fmt.Errorf("%w: failed to resolve path: %v", ErrStorage, err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		s.logger.Warn("path escape attempt blocked",
			zap.String("path", relPath),
			zap.String("absPath", absPath),
			zap.String("absBase", absBase))
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}
	return absPath, nil
}

// containsDotDot checks if a path contains ".." components
func containsDotDot(p string) bool {
	parts := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}

var _ Store = (*FileSystemStore)(nil)
