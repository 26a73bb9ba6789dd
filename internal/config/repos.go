package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	giturls "github.com/whilp/git-urls"
)

// Repository describes one tracked code source. The list is immutable
// during a run; values are normalized by LoadRepositories.
type Repository struct {
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Branch          string   `json:"branch"`
	LocalPath       string   `json:"local_path"`
	Enabled         bool     `json:"enabled"`
	Languages       []string `json:"languages"`
	ExcludePatterns []string `json:"exclude_patterns"`
}

// UnmarshalJSON applies field defaults before decoding.
func (r *Repository) UnmarshalJSON(data []byte) error {
	type repository Repository
	raw := repository{
		Branch:    "master",
		Enabled:   true,
		Languages: []string{"csharp"},
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Repository(raw)
	return nil
}

type repositoriesFile struct {
	Repositories []Repository `json:"repositories"`
}

// LoadRepositories reads the repository list from a JSON file of the
// form {"repositories": [...]}. Names must be unique, URLs must parse
// (https or scp-like ssh), and a missing local_path defaults to the
// repository's base name derived from its URL.
func LoadRepositories(path string) ([]Repository, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read repositories config: %w", err)
	}

	var f repositoriesFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse repositories config %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Repositories))
	for i := range f.Repositories {
		r := &f.Repositories[i]
		if r.Name == "" {
			return nil, fmt.Errorf("repository %d: name is required", i)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("repository %q: duplicate name", r.Name)
		}
		seen[r.Name] = true
		if r.URL == "" {
			return nil, fmt.Errorf("repository %q: url is required", r.Name)
		}
		u, err := giturls.Parse(r.URL)
		if err != nil {
			return nil, fmt.Errorf("repository %q: parse url: %w", r.Name, err)
		}
		if r.LocalPath == "" {
			r.LocalPath = localDirName(u.Path, r.Name)
		}
	}

	return f.Repositories, nil
}

// FindRepository returns the named repository from the list.
func FindRepository(repos []Repository, name string) (Repository, bool) {
	for _, r := range repos {
		if r.Name == name {
			return r, true
		}
	}
	return Repository{}, false
}

func localDirName(urlPath, fallback string) string {
	base := path.Base(strings.TrimSuffix(urlPath, ".git"))
	if base == "" || base == "." || base == "/" {
		return fallback
	}
	return base
}
