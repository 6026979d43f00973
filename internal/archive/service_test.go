package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkessler/logvault/internal/testjsonl"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(
		filepath.Join(t.TempDir(), "archive"), zerolog.Nop(),
	)
	require.NoError(t, err)
	return svc
}

func (s *Service) writeFile(t *testing.T, rel, content string) {
	t.Helper()
	writeArchiveFile(t, s.Root(), rel, content)
}

func TestNewServiceCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "deep", "archive")
	svc, err := NewService(root, zerolog.Nop())
	require.NoError(t, err)

	info, err := os.Stat(svc.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListTreeMissingRootIsEmpty(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, os.RemoveAll(svc.Root()))

	tree, err := svc.ListTree()
	require.NoError(t, err)
	assert.NotNil(t, tree)
	assert.Empty(t, tree)
}

func TestGetSession(t *testing.T) {
	svc := newTestService(t)
	svc.writeFile(t, "logs/chat.jsonl", testjsonl.JoinJSONL(
		testjsonl.ParallelJSON([]any{"Q1", "Q2"}, []string{"A1"}),
		"",
		testjsonl.TurnsJSON(
			[]map[string]any{testjsonl.Turn("user", "hi")}, nil,
		),
	))

	conv, err := svc.GetSession("logs/chat.jsonl", 0)
	require.NoError(t, err)
	out, err := json.Marshal(conv)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"role":"user","content":"Q1"},
		{"role":"assistant","content":"A1"},
		{"role":"user","content":"Q2"}
	]`, string(out))

	// The blank line between records does not shift indices.
	conv, err = svc.GetSession("logs/chat.jsonl", 1)
	require.NoError(t, err)
	out, err = json.Marshal(conv)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"role":"user","content":"hi"}]`, string(out))
}

func TestGetSessionNotFound(t *testing.T) {
	svc := newTestService(t)
	svc.writeFile(t, "chat.jsonl", "{\"conversation\":[\"Q\"]}\n")

	t.Run("missing file", func(t *testing.T) {
		_, err := svc.GetSession("absent.jsonl", 0)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("directory instead of file", func(t *testing.T) {
		svc.writeFile(t, "dir/x.jsonl", "{}\n")
		_, err := svc.GetSession("dir", 0)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("index past non-blank line count", func(t *testing.T) {
		_, err := svc.GetSession("chat.jsonl", 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("negative index", func(t *testing.T) {
		_, err := svc.GetSession("chat.jsonl", -1)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetSessionParseErrorIsFatalAndDistinct(t *testing.T) {
	svc := newTestService(t)
	svc.writeFile(t, "chat.jsonl", "{\"ok\":1}\nbroken line\n")

	_, err := svc.GetSession("chat.jsonl", 1)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 1, parseErr.Line)
	assert.Contains(t, parseErr.Excerpt, "broken line")
	assert.NotErrorIs(t, err, ErrNotFound)

	// The same file still lists both sessions.
	tree, err := svc.ListTree()
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Len(t, tree[0].Children, 2)
}

func TestGetSessionRejectsEscape(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetSession("../../etc/passwd", 0)
	var secErr *SecurityError
	assert.ErrorAs(t, err, &secErr)
}

func TestDeleteEntry(t *testing.T) {
	svc := newTestService(t)
	svc.writeFile(t, "a.jsonl", "{}\n")
	svc.writeFile(t, "dir/b.jsonl", "{}\n")
	svc.writeFile(t, "dir/sub/c.jsonl", "{}\n")

	t.Run("file", func(t *testing.T) {
		require.NoError(t, svc.DeleteEntry("a.jsonl"))
		_, err := os.Stat(filepath.Join(svc.Root(), "a.jsonl"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("directory recursively", func(t *testing.T) {
		require.NoError(t, svc.DeleteEntry("dir"))
		_, err := os.Stat(filepath.Join(svc.Root(), "dir"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing entry", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteEntry("gone"), ErrNotFound)
	})

	t.Run("escape rejected", func(t *testing.T) {
		var secErr *SecurityError
		assert.ErrorAs(t, svc.DeleteEntry("../outside"), &secErr)
	})

	t.Run("root itself rejected", func(t *testing.T) {
		var secErr *SecurityError
		assert.ErrorAs(t, svc.DeleteEntry(""), &secErr)
		assert.ErrorAs(t, svc.DeleteEntry("."), &secErr)
	})
}

func TestStoreFile(t *testing.T) {
	svc := newTestService(t)

	err := svc.StoreFile(
		"uploads/2024/chat.jsonl",
		strings.NewReader("{\"conversation\":[\"Q\"]}\n"),
	)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(
		svc.Root(), "uploads", "2024", "chat.jsonl",
	))
	require.NoError(t, err)
	assert.Equal(t, "{\"conversation\":[\"Q\"]}\n", string(data))
}

func TestStoreFileRejectsDotDot(t *testing.T) {
	svc := newTestService(t)
	var secErr *SecurityError

	for _, name := range []string{
		"../evil.jsonl", "a/../../evil.jsonl", "..", "",
	} {
		err := svc.StoreFile(name, strings.NewReader("{}"))
		assert.ErrorAs(t, err, &secErr, "name %q", name)
	}
}
