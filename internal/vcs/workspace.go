// Package vcs provides the isolated git workspace the polish loop edits in.
// Every session gets its own clone on a fresh branch so the user's working
// tree is never touched until the branch is published back for review.
package vcs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	commitAuthorName  = "burnish"
	commitAuthorEmail = "burnish@localhost"
)

// ErrNoChanges is returned by CommitChange when the working tree is clean.
var ErrNoChanges = errors.New("no changes to commit")

// Error wraps any git failure. The controller treats these as session-fatal:
// a broken working tree invalidates every subsequent measurement.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("vcs %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Workspace is an isolated clone of the base repository, checked out on its
// own polish branch. Exclusively owned by one session for its lifetime.
type Workspace struct {
	Path       string
	BranchName string

	repo *git.Repository
}

// CreateIsolatedWorkspace clones basePath into a temp directory and checks
// out branchName there. A dirty base tree aborts the whole session before
// any agent work: isolation is a precondition, not best-effort.
func CreateIsolatedWorkspace(basePath, baseBranch, branchName string) (*Workspace, error) {
	base, err := git.PlainOpen(basePath)
	if err != nil {
		return nil, &Error{Op: "open base repository", Err: err}
	}

	baseTree, err := base.Worktree()
	if err != nil {
		return nil, &Error{Op: "open base worktree", Err: err}
	}
	status, err := baseTree.Status()
	if err != nil {
		return nil, &Error{Op: "check base status", Err: err}
	}
	if modifiedTracked(status) {
		return nil, &Error{Op: "create workspace", Err: errors.New("base working tree has uncommitted changes; commit or stash first")}
	}

	dir, err := os.MkdirTemp("", "burnish-*")
	if err != nil {
		return nil, &Error{Op: "create workspace dir", Err: err}
	}

	cloneOpts := &git.CloneOptions{URL: basePath}
	if baseBranch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(baseBranch)
		cloneOpts.SingleBranch = true
	}

	repo, err := git.PlainClone(dir, false, cloneOpts)
	if err != nil {
		os.RemoveAll(dir) //nolint:errcheck
		return nil, &Error{Op: "clone base repository", Err: err}
	}

	wt, err := repo.Worktree()
	if err != nil {
		os.RemoveAll(dir) //nolint:errcheck
		return nil, &Error{Op: "open worktree", Err: err}
	}

	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branchName),
		Create: true,
	})
	if err != nil {
		os.RemoveAll(dir) //nolint:errcheck
		return nil, &Error{Op: "create branch", Err: err}
	}

	slog.Debug("isolated workspace created", "path", dir, "branch", branchName)

	return &Workspace{
		Path:       dir,
		BranchName: branchName,
		repo:       repo,
	}, nil
}

// modifiedTracked reports whether any tracked file has uncommitted changes.
// Untracked files (session results, editor droppings) are fine: the clone
// takes committed content only, so they cannot leak into the workspace.
func modifiedTracked(status git.Status) bool {
	for _, fs := range status {
		if fs.Worktree == git.Untracked && fs.Staging == git.Untracked {
			continue
		}
		if fs.Worktree != git.Unmodified || fs.Staging != git.Unmodified {
			return true
		}
	}
	return false
}

// DefaultBranchName produces a unique polish branch name.
func DefaultBranchName(now time.Time) string {
	return "burnish/polish-" + now.UTC().Format("20060102-150405")
}

// CommitChange stages everything (including new files) and commits. Returns
// ErrNoChanges when the tree is clean.
func (w *Workspace) CommitChange(message string) (string, error) {
	wt, err := w.repo.Worktree()
	if err != nil {
		return "", &Error{Op: "open worktree", Err: err}
	}

	status, err := wt.Status()
	if err != nil {
		return "", &Error{Op: "check status", Err: err}
	}
	if status.IsClean() {
		return "", ErrNoChanges
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", &Error{Op: "stage changes", Err: err}
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  commitAuthorName,
			Email: commitAuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", &Error{Op: "commit", Err: err}
	}

	return hash.String(), nil
}

// RollbackChange discards all uncommitted changes, tracked and untracked.
// After a rollback the tree is byte-identical to the last commit; calling it
// again on a clean tree is a no-op.
func (w *Workspace) RollbackChange() error {
	wt, err := w.repo.Worktree()
	if err != nil {
		return &Error{Op: "open worktree", Err: err}
	}

	if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset}); err != nil {
		return &Error{Op: "hard reset", Err: err}
	}
	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return &Error{Op: "clean untracked", Err: err}
	}
	return nil
}

// Finalize pushes the polish branch back to the base repository so it can be
// reviewed and merged there.
func (w *Workspace) Finalize() error {
	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", w.BranchName, w.BranchName))

	err := w.repo.Push(&git.PushOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return &Error{Op: "publish branch", Err: err}
	}
	return nil
}

// Destroy removes the workspace directory. Safe to call after Finalize.
func (w *Workspace) Destroy() error {
	if w.Path == "" {
		return nil
	}
	if err := os.RemoveAll(w.Path); err != nil {
		return &Error{Op: "remove workspace", Err: err}
	}
	w.Path = ""
	return nil
}

// Head returns the current commit hash of the workspace.
func (w *Workspace) Head() (string, error) {
	ref, err := w.repo.Head()
	if err != nil {
		return "", &Error{Op: "resolve head", Err: err}
	}
	return ref.Hash().String(), nil
}
