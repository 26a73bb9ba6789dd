package gitrepo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"axon/internal/config"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture is a throwaway origin repository the manager clones from.
type fixture struct {
	dir  string
	repo *git.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return &fixture{dir: dir, repo: repo}
}

func (f *fixture) write(t *testing.T, path, content string) {
	t.Helper()
	full := filepath.Join(f.dir, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	wt, err := f.repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(path)
	require.NoError(t, err)
}

func (f *fixture) remove(t *testing.T, path string) {
	t.Helper()
	wt, err := f.repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Remove(path)
	require.NoError(t, err)
}

func (f *fixture) commit(t *testing.T, msg string) string {
	t.Helper()
	wt, err := f.repo.Worktree()
	require.NoError(t, err)
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func (f *fixture) repoConfig(name string) config.Repository {
	return config.Repository{
		Name:      name,
		URL:       f.dir,
		Branch:    "master",
		LocalPath: name,
		Enabled:   true,
		Languages: []string{"csharp"},
	}
}

func acquire(t *testing.T, f *fixture) *Workspace {
	t.Helper()
	mgr := NewManager(filepath.Join(t.TempDir(), "checkouts"), "", zerolog.Nop())
	ws, err := mgr.Acquire(context.Background(), f.repoConfig("fix"))
	require.NoError(t, err)
	return ws
}

func TestAcquireClonesAndReads(t *testing.T) {
	f := newFixture(t)
	f.write(t, "src/App.cs", "class App { }")
	f.write(t, "README.md", "# readme")
	head := f.commit(t, "initial")

	ws := acquire(t, f)

	got, err := ws.Head()
	require.NoError(t, err)
	assert.Equal(t, head, got)

	content, err := ws.Read("src/App.cs")
	require.NoError(t, err)
	assert.Equal(t, "class App { }", content)

	paths, err := ws.ListPaths(NewAdmission([]string{"csharp"}, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/App.cs"}, paths)
}

func TestAcquireReopensExistingCheckout(t *testing.T) {
	f := newFixture(t)
	f.write(t, "src/App.cs", "class App { }")
	head := f.commit(t, "initial")

	base := filepath.Join(t.TempDir(), "checkouts")
	mgr := NewManager(base, "", zerolog.Nop())

	_, err := mgr.Acquire(context.Background(), f.repoConfig("fix"))
	require.NoError(t, err)

	ws, err := mgr.Acquire(context.Background(), f.repoConfig("fix"))
	require.NoError(t, err)
	got, err := ws.Head()
	require.NoError(t, err)
	assert.Equal(t, head, got)
}

func TestAcquireReclonesCorruptCheckout(t *testing.T) {
	f := newFixture(t)
	f.write(t, "src/App.cs", "class App { }")
	head := f.commit(t, "initial")

	base := filepath.Join(t.TempDir(), "checkouts")
	mgr := NewManager(base, "", zerolog.Nop())

	_, err := mgr.Acquire(context.Background(), f.repoConfig("fix"))
	require.NoError(t, err)

	// Wreck the checkout so it no longer opens as a repository.
	require.NoError(t, os.RemoveAll(filepath.Join(base, "fix", ".git")))

	ws, err := mgr.Acquire(context.Background(), f.repoConfig("fix"))
	require.NoError(t, err)
	got, err := ws.Head()
	require.NoError(t, err)
	assert.Equal(t, head, got)
}

func TestChangesFullTreeWithoutOldCommit(t *testing.T) {
	f := newFixture(t)
	f.write(t, "src/A.cs", "class A { }")
	f.write(t, "src/B.cs", "class B { }")
	f.write(t, "notes.txt", "ignore me")
	f.commit(t, "initial")

	ws := acquire(t, f)

	ch, err := ws.Changes("", NewAdmission([]string{"csharp"}, nil))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/A.cs", "src/B.cs"}, ch.Added)
	assert.Empty(t, ch.Modified)
	assert.Empty(t, ch.Deleted)
}

func TestAdvanceAndDiff(t *testing.T) {
	f := newFixture(t)
	f.write(t, "src/App.cs", "class App { }")
	f.write(t, "src/Old.cs", "class Old { }")
	oldHead := f.commit(t, "initial")

	ws := acquire(t, f)

	// Nothing new yet.
	moved, err := ws.Advance(context.Background())
	require.NoError(t, err)
	assert.False(t, moved)

	// Advance the origin: modify one file, add one, delete one.
	f.write(t, "src/App.cs", "class App { int x; }")
	f.write(t, "src/New.cs", "class New { }")
	f.remove(t, "src/Old.cs")
	newHead := f.commit(t, "second")

	moved, err = ws.Advance(context.Background())
	require.NoError(t, err)
	assert.True(t, moved)

	got, err := ws.Head()
	require.NoError(t, err)
	assert.Equal(t, newHead, got)

	// The working tree follows the reset.
	content, err := ws.Read("src/App.cs")
	require.NoError(t, err)
	assert.Equal(t, "class App { int x; }", content)

	ch, err := ws.Changes(oldHead, NewAdmission([]string{"csharp"}, nil))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/New.cs"}, ch.Added)
	assert.ElementsMatch(t, []string{"src/App.cs"}, ch.Modified)
	assert.ElementsMatch(t, []string{"src/Old.cs"}, ch.Deleted)
}

func TestChangesRenameSplitsIntoDeleteAndAdd(t *testing.T) {
	f := newFixture(t)
	f.write(t, "src/Before.cs", "class Before { public void M() { } }")
	oldHead := f.commit(t, "initial")

	ws := acquire(t, f)

	f.remove(t, "src/Before.cs")
	f.write(t, "src/After.cs", "class Before { public void M() { } }")
	f.commit(t, "rename")

	_, err := ws.Advance(context.Background())
	require.NoError(t, err)

	ch, err := ws.Changes(oldHead, NewAdmission([]string{"csharp"}, nil))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/After.cs"}, ch.Added)
	assert.ElementsMatch(t, []string{"src/Before.cs"}, ch.Deleted)
	assert.Empty(t, ch.Modified)
}

func TestChangesUnknownOldCommitFallsBack(t *testing.T) {
	f := newFixture(t)
	f.write(t, "src/A.cs", "class A { }")
	f.commit(t, "initial")

	ws := acquire(t, f)

	bogus := strings.Repeat("ab", 20)
	ch, err := ws.Changes(bogus, NewAdmission([]string{"csharp"}, nil))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/A.cs"}, ch.Added)
}

func TestAdmission(t *testing.T) {
	t.Run("extension filter", func(t *testing.T) {
		adm := NewAdmission([]string{"csharp", "python"}, nil)
		assert.True(t, adm.Admit("src/App.cs"))
		assert.True(t, adm.Admit("src/APP.CS"))
		assert.True(t, adm.Admit("scripts/run.py"))
		assert.False(t, adm.Admit("web/app.js"))
		assert.False(t, adm.Admit("README.md"))
	})

	t.Run("exclusion patterns", func(t *testing.T) {
		adm := NewAdmission([]string{"csharp"}, []string{"*/tests/*", "*/obj/*"})
		assert.True(t, adm.Admit("src/App.cs"))
		assert.False(t, adm.Admit("src/tests/AppTests.cs"))
		assert.False(t, adm.Admit("src/obj/Debug/App.cs"))
	})

	t.Run("unknown language admits nothing", func(t *testing.T) {
		adm := NewAdmission([]string{"cobol"}, nil)
		assert.False(t, adm.Admit("src/App.cs"))
	})
}
