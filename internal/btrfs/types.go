package btrfs

import "github.com/google/uuid"

// Subvolume is one node of the btrfs subvolume tree as reported by a
// full listing. BtrfsPath is the path inside the volume, which is not
// necessarily a path the OS has mounted anywhere.
type Subvolume struct {
	BtrfsPath string
	UUID      uuid.UUID

	// ParentUUID is set when this subvolume was snapshotted from
	// another subvolume in the same listing.
	ParentUUID *uuid.UUID

	// ReceivedUUID is set when this subvolume was created by
	// receiving a send stream; it equals the uuid the subvolume had
	// on the sending side.
	ReceivedUUID *uuid.UUID
}

// SubvolumeInfo identifies a single subvolume found by a point lookup.
// FsPath is the OS path the lookup was addressed with, which pins the
// subvolume independent of listing order.
type SubvolumeInfo struct {
	FsPath    string
	BtrfsPath string
	UUID      uuid.UUID
}
