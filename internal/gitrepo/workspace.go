package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/rs/zerolog"
)

// Workspace is the local checkout of one configured repository.
type Workspace struct {
	name   string
	branch string
	path   string
	repo   *git.Repository
	auth   transport.AuthMethod
	log    zerolog.Logger
}

// Changes lists paths that differ between two commits, split by change type.
// A rename shows up as a delete of the old path and an add of the new one.
type Changes struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// Head returns the commit hash the checkout currently points at.
func (w *Workspace) Head() (string, error) {
	ref, err := w.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// Advance fetches the remote branch and hard-resets the checkout to its head.
// It reports whether the head moved.
func (w *Workspace) Advance(ctx context.Context) (bool, error) {
	oldHead, err := w.Head()
	if err != nil {
		return false, err
	}

	err = w.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		Auth:       w.auth,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return false, fmt.Errorf("fetch %s: %w", w.name, err)
	}

	remoteRef, err := w.repo.Reference(plumbing.NewRemoteReferenceName("origin", w.branch), true)
	if err != nil {
		return false, fmt.Errorf("resolve origin/%s: %w", w.branch, err)
	}

	if remoteRef.Hash().String() == oldHead {
		w.log.Info().Msg("repository up to date")
		return false, nil
	}

	wt, err := w.repo.Worktree()
	if err != nil {
		return false, err
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
		return false, fmt.Errorf("reset to origin/%s: %w", w.branch, err)
	}
	w.log.Info().
		Str("from", shortHash(oldHead)).
		Str("to", shortHash(remoteRef.Hash().String())).
		Msg("repository updated")
	return true, nil
}

// Changes computes the admitted paths that changed between oldCommit and the
// current head. An empty oldCommit, or a diff failure, yields the full tree
// as added.
func (w *Workspace) Changes(oldCommit string, adm *Admission) (Changes, error) {
	headTree, err := w.headTree()
	if err != nil {
		return Changes{}, err
	}

	if oldCommit == "" {
		added, err := listTree(headTree, adm)
		return Changes{Added: added}, err
	}

	oldObj, err := w.repo.CommitObject(plumbing.NewHash(oldCommit))
	if err != nil {
		w.log.Error().Err(err).Str("commit", shortHash(oldCommit)).Msg("diff base unavailable, reindexing full tree")
		added, err := listTree(headTree, adm)
		return Changes{Added: added}, err
	}
	oldTree, err := oldObj.Tree()
	if err != nil {
		w.log.Error().Err(err).Str("commit", shortHash(oldCommit)).Msg("diff base unreadable, reindexing full tree")
		added, err := listTree(headTree, adm)
		return Changes{Added: added}, err
	}

	diffs, err := oldTree.Diff(headTree)
	if err != nil {
		w.log.Error().Err(err).Msg("tree diff failed, reindexing full tree")
		added, err := listTree(headTree, adm)
		return Changes{Added: added}, err
	}

	var ch Changes
	for _, d := range diffs {
		action, err := d.Action()
		if err != nil {
			w.log.Warn().Err(err).Msg("skipping malformed tree change")
			continue
		}
		switch action {
		case merkletrie.Insert:
			if adm.Admit(d.To.Name) {
				ch.Added = append(ch.Added, d.To.Name)
			}
		case merkletrie.Delete:
			if adm.Admit(d.From.Name) {
				ch.Deleted = append(ch.Deleted, d.From.Name)
			}
		case merkletrie.Modify:
			if d.From.Name != d.To.Name {
				if adm.Admit(d.From.Name) {
					ch.Deleted = append(ch.Deleted, d.From.Name)
				}
				if adm.Admit(d.To.Name) {
					ch.Added = append(ch.Added, d.To.Name)
				}
			} else if adm.Admit(d.To.Name) {
				ch.Modified = append(ch.Modified, d.To.Name)
			}
		}
	}
	w.log.Info().
		Int("added", len(ch.Added)).
		Int("modified", len(ch.Modified)).
		Int("deleted", len(ch.Deleted)).
		Msg("tree changes")
	return ch, nil
}

// ListPaths returns every admitted path in the tree at the current head.
func (w *Workspace) ListPaths(adm *Admission) ([]string, error) {
	headTree, err := w.headTree()
	if err != nil {
		return nil, err
	}
	return listTree(headTree, adm)
}

// Read returns the file's content from the working tree.
func (w *Workspace) Read(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(w.path, path))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (w *Workspace) headTree() (*object.Tree, error) {
	ref, err := w.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := w.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("resolve head commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("resolve head tree: %w", err)
	}
	return tree, nil
}

func listTree(tree *object.Tree, adm *Admission) ([]string, error) {
	var paths []string
	err := tree.Files().ForEach(func(f *object.File) error {
		if adm.Admit(f.Name) {
			paths = append(paths, f.Name)
		}
		return nil
	})
	return paths, err
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
