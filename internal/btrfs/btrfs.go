// Package btrfs drives the btrfs command line tooling through an
// executor and parses its tabular output into subvolume records.
package btrfs

import (
	"fmt"
	"path/filepath"

	"github.com/blackwell-systems/btrbak/internal/executor"
)

// restrictedSubvolumes may never be deleted, whatever the retention
// policy says. A misconfigured snapshot directory must not be able to
// take a system subvolume with it.
var restrictedSubvolumes = map[string]bool{
	"home":  true,
	"/home": true,
	"root":  true,
	"/":     true,
}

// NotFoundError reports a subvolume that is absent from a listing.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("subvolume %s not found", e.Path)
}

// Client issues btrfs commands through an executor.
type Client struct {
	exec executor.Executor
}

// New creates a Client on top of the given executor.
func New(exec executor.Executor) *Client {
	return &Client{exec: exec}
}

// Subvolumes lists every subvolume below path in the given context.
func (c *Client) Subvolumes(ctx executor.Context, path string) ([]Subvolume, error) {
	output, err := c.exec.Run(ctx, "btrfs", "subvolume", "list", "-tupqR", "--sort=rootid", path)
	if err != nil {
		return nil, fmt.Errorf("failed to list subvolumes under %s: %w", path, err)
	}
	return ParseSubvolumeList(output)
}

// SubvolumeInfo looks up the single subvolume at the given OS path.
func (c *Client) SubvolumeInfo(ctx executor.Context, path string) (SubvolumeInfo, error) {
	output, err := c.exec.Run(ctx, "btrfs", "subvolume", "show", path)
	if err != nil {
		return SubvolumeInfo{}, fmt.Errorf("failed to query subvolume %s: %w", path, err)
	}
	return ParseSubvolumeShow(path, output)
}

// CreateSnapshot creates a read-only snapshot of subvolumePath at
// snapshotPath.
func (c *Client) CreateSnapshot(ctx executor.Context, subvolumePath, snapshotPath string) error {
	_, err := c.exec.Run(ctx, "btrfs", "subvolume", "snapshot", "-r", subvolumePath, snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to snapshot %s: %w", subvolumePath, err)
	}
	return nil
}

// DeleteSubvolume deletes the subvolume at the given OS path. Local
// paths are canonicalized first; paths on the restricted list are
// refused outright.
func (c *Client) DeleteSubvolume(ctx executor.Context, path string) error {
	target := path
	if _, local := ctx.(executor.Local); local {
		abs, err := filepath.Abs(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("failed to canonicalize %s: %w", path, err)
		}
		target = abs
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			target = resolved
		}
	}

	if restrictedSubvolumes[target] {
		return fmt.Errorf("refusing to delete restricted subvolume %s", target)
	}

	if _, err := c.exec.Run(ctx, "btrfs", "subvolume", "delete", target); err != nil {
		return fmt.Errorf("failed to delete subvolume %s: %w", target, err)
	}
	return nil
}

// SendSnapshot streams the snapshot at snapshotPath into backupPath on
// the remote side. A non-empty parentPath makes the transfer
// incremental against that previously transferred snapshot.
func (c *Client) SendSnapshot(snapshotPath, parentPath string, local executor.Context, backupPath string, remote executor.Context) error {
	args := []string{"send"}
	if parentPath != "" {
		args = append(args, "-p", parentPath)
	}
	args = append(args, snapshotPath)

	_, err := c.exec.RunPiped([]executor.Stage{
		{Context: local, Program: "btrfs", Args: args},
		{Context: remote, Program: "btrfs", Args: []string{"receive", backupPath}},
	})
	if err != nil {
		return fmt.Errorf("failed to send snapshot %s: %w", snapshotPath, err)
	}
	return nil
}

// SubvolumeByPath finds the subvolume with the given btrfs path in a
// listing.
func SubvolumeByPath(subvolumes []Subvolume, path string) (*Subvolume, error) {
	for i := range subvolumes {
		if subvolumes[i].BtrfsPath == path {
			return &subvolumes[i], nil
		}
	}
	return nil, &NotFoundError{Path: path}
}
