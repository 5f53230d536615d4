package filestorage

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cshum/pixbright"
	"github.com/cshum/pixbright/storage"
)

var dotFileRegex = regexp.MustCompile("/\\.")

// FileStorage local file system storage implements pixbright.Storage interface
type FileStorage struct {
	BaseDir         string
	PathPrefix      string
	Blacklists      []*regexp.Regexp
	MkdirPermission os.FileMode
	WritePermission os.FileMode
	SaveErrIfExists bool
	SafeChars       string
	Expiration      time.Duration

	safeChars storage.SafeChars
}

// New creates FileStorage
func New(baseDir string, options ...Option) *FileStorage {
	s := &FileStorage{
		BaseDir:         baseDir,
		PathPrefix:      "/",
		Blacklists:      []*regexp.Regexp{dotFileRegex},
		MkdirPermission: 0755,
		WritePermission: 0666,
	}
	for _, option := range options {
		option(s)
	}
	s.safeChars = storage.NewSafeChars(s.SafeChars)
	return s
}

// Path transforms and validates image key for storage path
func (s *FileStorage) Path(key string) (string, bool) {
	key = "/" + storage.Normalize(key, s.safeChars)
	for _, blacklist := range s.Blacklists {
		if blacklist.MatchString(key) {
			return "", false
		}
	}
	if !strings.HasPrefix(key, s.PathPrefix) {
		return "", false
	}
	return filepath.Join(s.BaseDir, strings.TrimPrefix(key, s.PathPrefix)), true
}

// Get implements pixbright.Storage interface
func (s *FileStorage) Get(_ *http.Request, key string) (blob *pixbright.Blob, err error) {
	defer func(start time.Time) { storage.Observe("file", "get", start, err) }(time.Now())
	key, ok := s.Path(key)
	if !ok {
		return nil, pixbright.ErrPass
	}
	stats, err := os.Stat(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, pixbright.ErrNotFound
		}
		return nil, err
	}
	if s.Expiration > 0 && time.Since(stats.ModTime()) > s.Expiration {
		return nil, pixbright.ErrExpired
	}
	blob = pixbright.NewBlobFromPath(key)
	blob.Stat = &pixbright.Stat{
		Size:         stats.Size(),
		ModifiedTime: stats.ModTime(),
	}
	return blob, nil
}

// Put implements pixbright.Storage interface
func (s *FileStorage) Put(_ context.Context, key string, blob *pixbright.Blob) (err error) {
	defer func(start time.Time) { storage.Observe("file", "put", start, err) }(time.Now())
	key, ok := s.Path(key)
	if !ok {
		return pixbright.ErrPass
	}
	if err = os.MkdirAll(filepath.Dir(key), s.MkdirPermission); err != nil {
		return
	}
	buf, err := blob.ReadAll()
	if err != nil {
		return err
	}
	flag := os.O_RDWR | os.O_CREATE | os.O_TRUNC
	if s.SaveErrIfExists {
		flag = os.O_RDWR | os.O_CREATE | os.O_EXCL
	}
	w, err := os.OpenFile(key, flag, s.WritePermission)
	if err != nil {
		return
	}
	defer func() {
		_ = w.Close()
	}()
	_, err = w.Write(buf)
	return
}

// Delete implements pixbright.Storage interface
func (s *FileStorage) Delete(_ context.Context, key string) error {
	key, ok := s.Path(key)
	if !ok {
		return pixbright.ErrPass
	}
	return os.Remove(key)
}

// Stat implements pixbright.Storage interface
func (s *FileStorage) Stat(_ context.Context, key string) (*pixbright.Stat, error) {
	key, ok := s.Path(key)
	if !ok {
		return nil, pixbright.ErrPass
	}
	stats, err := os.Stat(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, pixbright.ErrNotFound
		}
		return nil, err
	}
	if s.Expiration > 0 && time.Since(stats.ModTime()) > s.Expiration {
		return nil, pixbright.ErrExpired
	}
	return &pixbright.Stat{
		Size:         stats.Size(),
		ModifiedTime: stats.ModTime(),
	}, nil
}
