package archive

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// NodeKind discriminates the three tree node variants.
type NodeKind string

const (
	KindFolder  NodeKind = "folder"
	KindFile    NodeKind = "file"
	KindSession NodeKind = "session"
)

// TreeNode is one entry of the archive index: a folder, a .jsonl
// file, or a single session (one non-blank line of a file). Path is
// always /-separated and relative to the archive root; ID is unique
// within a snapshot ("<path>" for folders and files,
// "<path>:<lineIndex>" for sessions).
type TreeNode struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Path         string     `json:"path"`
	Kind         NodeKind   `json:"kind"`
	SessionIndex *int       `json:"sessionIndex,omitempty"`
	Children     []TreeNode `json:"children,omitempty"`
}

// BuildTree walks root depth-first and returns the archive index.
// Directory entries come back in os.ReadDir's lexical order, which is
// the ordering contract of the listing. Hidden entries (dot-prefixed)
// are excluded recursively; folders whose recursive result is empty
// are omitted entirely; only non-hidden *.jsonl files are indexed.
// Per-file read failures leave that file's session list empty rather
// than aborting the walk; swallowed failures are logged at debug.
func BuildTree(root string, log zerolog.Logger) ([]TreeNode, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading archive root: %w", err)
	}
	return walkEntries(root, "", entries, log), nil
}

func walkEntries(root, rel string, entries []os.DirEntry, log zerolog.Logger) []TreeNode {
	var nodes []TreeNode
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		childRel := path.Join(rel, name)

		if entry.IsDir() {
			sub, err := os.ReadDir(
				filepath.Join(root, filepath.FromSlash(childRel)),
			)
			if err != nil {
				log.Debug().Str("path", childRel).Err(err).
					Msg("skipping unreadable directory")
				continue
			}
			children := walkEntries(root, childRel, sub, log)
			if len(children) == 0 {
				// Empty folders are invisible.
				continue
			}
			nodes = append(nodes, TreeNode{
				ID:       childRel,
				Name:     name,
				Path:     childRel,
				Kind:     KindFolder,
				Children: children,
			})
			continue
		}

		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		nodes = append(nodes, TreeNode{
			ID:       childRel,
			Name:     name,
			Path:     childRel,
			Kind:     KindFile,
			Children: sessionNodes(root, childRel, log),
		})
	}
	return nodes
}

// sessionNodes builds one session node per non-blank line. JSON
// validity is deliberately not checked here: a session exists in the
// index as long as its line is non-blank, and a malformed line only
// surfaces an error when that session is explicitly fetched.
func sessionNodes(root, rel string, log zerolog.Logger) []TreeNode {
	lines, err := ReadLines(
		filepath.Join(root, filepath.FromSlash(rel)),
	)
	if err != nil {
		log.Debug().Str("path", rel).Err(err).
			Msg("skipping unreadable sessions")
		return nil
	}
	nodes := make([]TreeNode, 0, len(lines))
	for _, line := range lines {
		idx := line.Index
		nodes = append(nodes, TreeNode{
			ID:           fmt.Sprintf("%s:%d", rel, idx),
			Name:         fmt.Sprintf("session %d", idx),
			Path:         rel,
			Kind:         KindSession,
			SessionIndex: &idx,
		})
	}
	return nodes
}
