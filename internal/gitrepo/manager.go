// Package gitrepo maintains local checkouts of the configured repositories
// and reports how their trees change between ingestion runs.
package gitrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/rs/zerolog"

	"axon/internal/config"
)

// Manager acquires and refreshes checkouts under a base directory.
type Manager struct {
	basePath string
	token    string
	log      zerolog.Logger
}

// NewManager creates a manager that stores checkouts under basePath. The
// token, when set, authenticates HTTPS remotes.
func NewManager(basePath, token string, log zerolog.Logger) *Manager {
	return &Manager{basePath: basePath, token: token, log: log}
}

// Acquire opens the checkout for a repository, cloning it when missing. A
// checkout that can no longer be opened is removed and cloned again.
func (m *Manager) Acquire(ctx context.Context, rc config.Repository) (*Workspace, error) {
	path := filepath.Join(m.basePath, rc.LocalPath)
	ws := &Workspace{
		name:   rc.Name,
		branch: rc.Branch,
		path:   path,
		auth:   m.authFor(rc.URL),
		log:    m.log.With().Str("repo", rc.Name).Logger(),
	}

	if _, err := os.Stat(path); err == nil {
		repo, err := git.PlainOpen(path)
		if err == nil {
			ws.repo = repo
			return ws, nil
		}
		ws.log.Warn().Err(err).Msg("failed to open checkout, re-cloning")
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("remove corrupt checkout: %w", err)
		}
	}

	opts := &git.CloneOptions{
		URL:           rc.URL,
		Auth:          ws.auth,
		ReferenceName: plumbing.NewBranchReferenceName(rc.Branch),
		SingleBranch:  true,
	}
	// The file transport cannot serve shallow clones, so only remote
	// origins are cloned with a depth cut.
	if !isLocalPath(rc.URL) {
		opts.Depth = 1
	}

	ws.log.Info().Str("branch", rc.Branch).Msg("cloning repository")
	repo, err := git.PlainCloneContext(ctx, path, false, opts)
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", rc.Name, err)
	}
	ws.repo = repo
	return ws, nil
}

// authFor returns token auth for HTTPS remotes. The token never appears in
// the remote URL, so it cannot leak through logs or git config.
func (m *Manager) authFor(url string) transport.AuthMethod {
	if m.token != "" && strings.HasPrefix(url, "https://") {
		return &githttp.BasicAuth{Username: "git", Password: m.token}
	}
	return nil
}

func isLocalPath(url string) bool {
	return strings.HasPrefix(url, "/") || strings.HasPrefix(url, ".") || strings.HasPrefix(url, "file://")
}
