package cache

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultDirPerm = 0o755
	stagingPrefix  = "_"
	stagingRandLen = 16
)

// Store reads and writes cache entries under a single directory.
//
// Layout:
//
//	<dir>/<name>.<format>                  # published entry, mtime = expiry
//	<dir>/_<name>_<32 hex chars>.<format>  # staging file, renamed on success
//	<dir>/index.html                       # empty placeholder
//
// A Store holds no locks: concurrent writers of the same name each stage under
// their own random name and the last rename wins.
type Store struct {
	dir     string
	dirPerm os.FileMode
	index   string
	now     func() time.Time
	logger  logrus.FieldLogger

	// filesystem hooks, replaced in tests to fail individual publish steps
	openStaging func(path string) (*os.File, error)
	chtimes     func(path string, atime, mtime time.Time) error

	resolveOnce sync.Once
	resolved    string
	resolveErr  error
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the source of "now" for stamping and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger used for debug and orphaned staging file messages.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithDirPerm sets the permissions used when creating the cache directory.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = mode
	}
}

// WithIndexFile sets the placeholder file name. Empty disables the placeholder.
func WithIndexFile(name string) Option {
	return func(s *Store) {
		s.index = name
	}
}

// NewStore returns a Store rooted at dir. Nothing touches the filesystem until
// the first Set; the absolute path of dir is resolved once on first use.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache dir required")
	}

	s := &Store{
		dir:     dir,
		dirPerm: defaultDirPerm,
		index:   DefaultIndexFile,
		now:     time.Now,

		openStaging: createStaging,
		chtimes:     os.Chtimes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = discardLogger()
	}
	if s.index != "" && (strings.ContainsAny(s.index, `/\`) || s.index == "." || s.index == "..") {
		return nil, fmt.Errorf("invalid index file name %q", s.index)
	}
	return s, nil
}

// Set encodes value with the codec registered for format and publishes it as
// <name>.<format>, expiring ttl from now. A ttl <= 0 writes nothing. A failed
// Set may leave its staging file behind.
func (s *Store) Set(name string, value any, ttl time.Duration, format string) error {
	codec, err := s.codecFor(name, format)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		s.logger.WithFields(entryFields(name, format)).Debug("cache set skipped, ttl not positive")
		return nil
	}

	data, err := codec.Encode(value)
	if err != nil {
		return err
	}

	dir, err := s.Dir()
	if err != nil {
		return err
	}
	if err := EnsureDir(dir, s.dirPerm, s.index); err != nil {
		return err
	}

	staging, err := stagingPath(dir, name, format)
	if err != nil {
		return &StoreError{Step: StepStage, Path: dir, Err: err}
	}
	if err := s.writeStaging(staging, data); err != nil {
		s.warnOrphan(name, format, staging, err)
		return err
	}

	expiresAt := s.now().Add(ttl)
	if err := s.chtimes(staging, expiresAt, expiresAt); err != nil {
		err = &StoreError{Step: StepTouch, Path: staging, Err: err}
		s.warnOrphan(name, format, staging, err)
		return err
	}

	target := filepath.Join(dir, entryFileName(name, format))
	if err := os.Rename(staging, target); err != nil {
		err = &StoreError{Step: StepRename, Path: staging, Target: target, Err: err}
		s.warnOrphan(name, format, staging, err)
		return err
	}

	fields := entryFields(name, format)
	fields["path"] = target
	fields["expires_at"] = expiresAt.Format(time.RFC3339)
	fields["size_bytes"] = len(data)
	s.logger.WithFields(fields).Debug("cache entry published")
	return nil
}

// Get decodes the live entry for name into dst, which must be a pointer. It
// reports false with a nil error when the entry is missing or expired; a file
// that exists but cannot be decoded is an error.
func (s *Store) Get(name, format string, dst any) (bool, error) {
	codec, err := s.codecFor(name, format)
	if err != nil {
		return false, err
	}
	target, err := s.Path(name, format)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &StoreError{Step: StepStat, Path: target, Err: err}
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}
	if !info.ModTime().After(s.now()) {
		fields := entryFields(name, format)
		fields["expired_at"] = info.ModTime().Format(time.RFC3339)
		s.logger.WithFields(fields).Debug("cache entry expired")
		return false, nil
	}

	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &StoreError{Step: StepRead, Path: target, Err: err}
	}
	if err := codec.Decode(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Entry describes the file backing a cache entry, live or expired.
type Entry struct {
	Name      string    `json:"name"`
	Format    string    `json:"format"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
	// TTL is the time left before expiry by the store's clock, zero once expired.
	TTL time.Duration `json:"ttl"`
}

// Inspect reports the on-disk state of an entry without decoding it. Expired
// entries are returned with Expired set; ErrNotFound means no file exists.
func (s *Store) Inspect(name, format string) (Entry, error) {
	if _, err := s.codecFor(name, format); err != nil {
		return Entry{}, err
	}
	target, err := s.Path(name, format)
	if err != nil {
		return Entry{}, err
	}

	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, &StoreError{Step: StepStat, Path: target, Err: err}
	}
	if !info.Mode().IsRegular() {
		return Entry{}, ErrNotFound
	}

	entry := Entry{
		Name:      name,
		Format:    format,
		Path:      target,
		SizeBytes: info.Size(),
		ExpiresAt: info.ModTime(),
	}
	if left := info.ModTime().Sub(s.now()); left > 0 {
		entry.TTL = left
	} else {
		entry.Expired = true
	}
	return entry, nil
}

// Path returns the canonical file path of an entry.
func (s *Store) Path(name, format string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	dir, err := s.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, entryFileName(name, format)), nil
}

// Dir returns the absolute cache directory, resolving it on first call.
func (s *Store) Dir() (string, error) {
	s.resolveOnce.Do(func() {
		abs, err := filepath.Abs(s.dir)
		if err != nil {
			s.resolveErr = &StoreError{Step: StepResolve, Path: s.dir, Err: err}
			return
		}
		s.resolved = abs
	})
	return s.resolved, s.resolveErr
}

// ValidateName rejects names that are empty or could escape the cache
// directory.
func ValidateName(name string) error {
	if name == "" || name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (s *Store) codecFor(name, format string) (Codec, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return LookupCodec(format)
}

func (s *Store) warnOrphan(name, format, staging string, err error) {
	fields := entryFields(name, format)
	fields["staging_path"] = staging
	s.logger.WithFields(fields).WithError(err).Warn("cache set failed, staging file left in place")
}

func entryFileName(name, format string) string {
	return name + "." + format
}

// stagingPath builds _<name>_<hex>.<format> in dir from 16 random bytes.
func stagingPath(dir, name, format string) (string, error) {
	buf := make([]byte, stagingRandLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return filepath.Join(dir, stagingPrefix+name+"_"+hex.EncodeToString(buf)+"."+format), nil
}

func createStaging(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

func (s *Store) writeStaging(path string, data []byte) error {
	f, err := s.openStaging(path)
	if err != nil {
		return &StoreError{Step: StepStage, Path: path, Err: err}
	}
	_, err = f.Write(data)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return &StoreError{Step: StepWrite, Path: path, Err: err}
	}
	return nil
}

func entryFields(name, format string) logrus.Fields {
	return logrus.Fields{
		"action": "cache",
		"name":   name,
		"format": format,
	}
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
