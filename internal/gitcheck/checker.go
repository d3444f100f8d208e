// Package gitcheck verifies that the tags recorded in a versions manifest
// exist in the local working copies and point at the pinned commits.
package gitcheck

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/bitcommons/repover/internal/manifest"
	"github.com/bitcommons/repover/internal/utils"
)

// Result is the outcome of checking one repository's tag.
type Result struct {
	Repo        string
	Tag         string
	Commit      string // commit the tag resolves to, empty if not found
	TagFound    bool
	CommitMatch bool
	Err         error // repository could not be inspected at all
}

// OK reports whether the repository passed every applicable check.
func (r Result) OK() bool {
	return r.Err == nil && r.TagFound && r.CommitMatch
}

// Checker inspects local clones under a workspace directory. Each repository
// named in the manifest is expected at <workspace>/<name>.
type Checker struct {
	workspace string
	log       *utils.Logger
}

// NewChecker creates a Checker rooted at workspace.
func NewChecker(workspace string, log *utils.Logger) *Checker {
	return &Checker{
		workspace: workspace,
		log:       log.WithComponent("gitcheck"),
	}
}

// CheckAll verifies every repository in the manifest and returns the results
// sorted by repository name. A failed check is reported in its Result, never
// as an error from CheckAll; only context cancellation aborts the sweep.
func (c *Checker) CheckAll(ctx context.Context, m *manifest.VersionsManifest) ([]Result, error) {
	results := make([]Result, 0, len(m.Versions))
	for name, rv := range m.Versions {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		results = append(results, c.Check(name, rv))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Repo < results[j].Repo })
	return results, nil
}

// Check verifies a single repository's tag against its version record.
func (c *Checker) Check(name string, rv manifest.RepoVersion) Result {
	result := Result{Repo: name, Tag: rv.GitTag}
	log := c.log.WithRepo(name)

	repo, err := git.PlainOpen(filepath.Join(c.workspace, name))
	if err != nil {
		result.Err = fmt.Errorf("failed to open repository: %w", err)
		log.Debug().Err(err).Msg("repository not accessible")
		return result
	}

	ref, err := repo.Reference(plumbing.NewTagReferenceName(rv.GitTag), true)
	if err != nil {
		log.Debug().Str("tag", rv.GitTag).Msg("tag not found")
		return result
	}
	result.TagFound = true

	commit, err := resolveTag(repo, ref.Hash())
	if err != nil {
		result.Err = fmt.Errorf("failed to resolve tag %s: %w", rv.GitTag, err)
		return result
	}
	result.Commit = commit.String()

	// An unpinned record only asserts the tag exists.
	if rv.GitCommit == "" {
		result.CommitMatch = true
		return result
	}
	result.CommitMatch = strings.HasPrefix(result.Commit, rv.GitCommit)
	if !result.CommitMatch {
		log.Warn().
			Str("tag", rv.GitTag).
			Str("expected", rv.GitCommit).
			Str("actual", result.Commit).
			Msg("tag points at unexpected commit")
	}
	return result
}

// resolveTag maps a tag reference hash to the commit it designates,
// dereferencing annotated tag objects.
func resolveTag(repo *git.Repository, hash plumbing.Hash) (plumbing.Hash, error) {
	tag, err := repo.TagObject(hash)
	if err == plumbing.ErrObjectNotFound {
		// Lightweight tag, the reference points at the commit directly.
		return hash, nil
	}
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return tag.Target, nil
}
