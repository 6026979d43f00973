// Package archive implements the log-archive indexing and
// session-normalization engine: a sandboxed tree index over a root
// directory of JSONL conversation logs, with per-line session
// addressing and canonicalization of historical record shapes.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Service exposes archive operations over a fixed root directory. It
// holds no state beyond the root path: every call re-reads the live
// filesystem, so concurrent requests are never serialized and a
// delete racing a listing may observe either outcome.
type Service struct {
	root string
	log  zerolog.Logger
}

// NewService creates a Service rooted at root. The directory is
// created if absent so the archive is usable immediately after
// startup.
func NewService(root string, logger zerolog.Logger) (*Service, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving archive root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive root: %w", err)
	}
	return &Service{root: abs, log: logger}, nil
}

// Root returns the absolute archive root path.
func (s *Service) Root() string {
	return s.root
}

// ListTree returns the archive index, recomputed from the live
// filesystem on every call. A missing root yields an empty listing,
// not an error. Files whose lines cannot be read or parsed appear
// without the affected sessions; those failures only surface when a
// specific session is requested.
func (s *Service) ListTree() ([]TreeNode, error) {
	tree, err := BuildTree(s.root, s.log)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []TreeNode{}, nil
		}
		return nil, err
	}
	if tree == nil {
		tree = []TreeNode{}
	}
	return tree, nil
}

// GetSession fetches one session of a .jsonl file and normalizes it
// to the canonical conversation shape. index addresses the 0-based
// ordinal among non-blank lines. A missing file, a directory, or an
// out-of-range index is ErrNotFound; a malformed line is a
// *ParseError — here, unlike in ListTree, the failure is fatal to the
// request.
func (s *Service) GetSession(userPath string, index int) (Conversation, error) {
	abs, err := ResolvePath(s.root, userPath)
	if err != nil {
		return Conversation{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("stat %s: %w", userPath, err)
	}
	if !info.Mode().IsRegular() {
		return Conversation{}, ErrNotFound
	}

	lines, err := ReadLines(abs)
	if err != nil {
		return Conversation{}, err
	}
	if index < 0 || index >= len(lines) {
		return Conversation{}, ErrNotFound
	}

	record, err := ParseRecord(index, lines[index].Text)
	if err != nil {
		return Conversation{}, err
	}
	return Normalize(record), nil
}

// DeleteEntry removes a file, or a directory recursively. The
// filesystem operation is the unit of atomicity: a recursive removal
// failing partway is reported as-is with no cleanup attempt. The root
// itself cannot be deleted.
func (s *Service) DeleteEntry(userPath string) error {
	abs, err := ResolvePath(s.root, userPath)
	if err != nil {
		return err
	}
	if abs == s.root {
		// Deleting the root would tear down the sandbox itself.
		return &SecurityError{Path: userPath}
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("stat %s: %w", userPath, err)
	}

	if info.IsDir() {
		if err := os.RemoveAll(abs); err != nil {
			return fmt.Errorf("removing directory %s: %w", userPath, err)
		}
		s.log.Debug().Str("path", userPath).Msg("removed directory")
		return nil
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("removing file %s: %w", userPath, err)
	}
	s.log.Debug().Str("path", userPath).Msg("removed file")
	return nil
}

// StoreFile writes one uploaded file under the archive root at the
// given relative name, creating parent directories as needed so the
// uploaded folder hierarchy is preserved verbatim. Any name carrying
// a ".." segment is rejected outright, before resolution.
func (s *Service) StoreFile(relName string, src io.Reader) error {
	if relName == "" || hasDotDot(relName) {
		return &SecurityError{Path: relName}
	}
	abs, err := ResolvePath(s.root, relName)
	if err != nil {
		return err
	}
	if abs == s.root {
		return &SecurityError{Path: relName}
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("creating upload directory: %w", err)
	}
	dest, err := os.Create(abs)
	if err != nil {
		return fmt.Errorf("saving uploaded file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		return fmt.Errorf("writing uploaded file: %w", err)
	}
	return nil
}
