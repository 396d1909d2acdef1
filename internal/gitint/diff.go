package gitint

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// pathChange is one file's change within a single commit, after
// rename resolution (but before path filtering, which the caller
// applies).
type pathChange struct {
	Path    string // destination path; the one change events are filed under.
	OldPath string // non-empty for renames.
}

// commitChanges computes the set of paths touched by c, diffing
// against its first parent only. Merge commits are therefore recorded
// against the first-parent diff exclusively, matching spec.md §4.2's
// rename-resolution rule. A rename is resolved to a single entry on
// the destination path; the origin path is not separately recorded
// for that commit.
func commitChanges(c *object.Commit) ([]pathChange, error) {
	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, err
		}
	}

	commitTree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	// Tree.Diff (and the bare DiffTree helper) never detects renames:
	// go-git only pairs them up when explicitly asked to, via
	// DiffTreeWithOptions. Without this, a rename surfaces as an
	// unpaired delete plus an unpaired add and the fromName != toName
	// branch below is never reached.
	changes, err := object.DiffTreeWithOptions(context.Background(), parentTree, commitTree, &object.DiffTreeOptions{
		DetectRenames: true,
	})
	if err != nil {
		return nil, err
	}

	paths := make([]pathChange, 0, len(changes))
	for _, change := range changes {
		fromName := change.From.Name
		toName := change.To.Name

		switch {
		case fromName == "" && toName != "":
			paths = append(paths, pathChange{Path: toName})
		case fromName != "" && toName == "":
			// Deletion: nothing to index going forward (the data model
			// only tracks paths that still exist to be coupled with).
		case fromName != toName:
			paths = append(paths, pathChange{Path: toName, OldPath: fromName})
		default:
			paths = append(paths, pathChange{Path: toName})
		}
	}

	return paths, nil
}

// touchesPath reports whether c's tree differs from its first
// parent's tree at targetPath, without computing a full diff. Used by
// the adaptive path-filtered walk to skip the expensive full-tree
// diff on commits that provably didn't touch the path of interest.
func touchesPath(c *object.Commit, targetPath string) (bool, error) {
	commitTree, err := c.Tree()
	if err != nil {
		return false, err
	}
	commitEntry, commitErr := commitTree.FindEntry(targetPath)

	if c.NumParents() == 0 {
		return commitErr == nil, nil
	}

	parent, err := c.Parent(0)
	if err != nil {
		return false, err
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return false, err
	}
	parentEntry, parentErr := parentTree.FindEntry(targetPath)

	switch {
	case commitErr != nil && parentErr != nil:
		return false, nil
	case commitErr != nil || parentErr != nil:
		return true, nil
	default:
		return commitEntry.Hash != parentEntry.Hash, nil
	}
}
