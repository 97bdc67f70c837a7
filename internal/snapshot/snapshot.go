package snapshot

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/btrbak/internal/btrfs"
)

// Local is a snapshot taken from a source subvolume on this machine.
type Local struct {
	Path       string
	Timestamp  time.Time
	UUID       uuid.UUID
	ParentUUID uuid.UUID
	Suffix     string
}

// Remote is a snapshot that arrived on the backup host through
// send/receive. ReceivedUUID is the identity its local counterpart had
// at send time.
type Remote struct {
	Path         string
	Timestamp    time.Time
	UUID         uuid.UUID
	ReceivedUUID uuid.UUID
	Suffix       string
}

// LocalFromSubvolume converts a listed subvolume into a local snapshot
// record. The subvolume must carry a parent uuid and follow the
// snapshot naming convention.
func LocalFromSubvolume(sv btrfs.Subvolume) (Local, error) {
	if sv.ParentUUID == nil {
		return Local{}, fmt.Errorf("subvolume %s has no parent uuid", sv.BtrfsPath)
	}
	timestamp, suffix, err := DecodeName(sv.BtrfsPath)
	if err != nil {
		return Local{}, err
	}

	return Local{
		Path:       sv.BtrfsPath,
		Timestamp:  timestamp,
		UUID:       sv.UUID,
		ParentUUID: *sv.ParentUUID,
		Suffix:     suffix,
	}, nil
}

// RemoteFromSubvolume converts a listed subvolume into a remote
// snapshot record. The subvolume must carry a received uuid and follow
// the snapshot naming convention.
func RemoteFromSubvolume(sv btrfs.Subvolume) (Remote, error) {
	if sv.ReceivedUUID == nil {
		return Remote{}, fmt.Errorf("subvolume %s has no received uuid", sv.BtrfsPath)
	}
	timestamp, suffix, err := DecodeName(sv.BtrfsPath)
	if err != nil {
		return Remote{}, err
	}

	return Remote{
		Path:         sv.BtrfsPath,
		Timestamp:    timestamp,
		UUID:         sv.UUID,
		ReceivedUUID: *sv.ReceivedUUID,
		Suffix:       suffix,
	}, nil
}

// LocalsOf returns the snapshots of the given source subvolume, in
// listing order.
func LocalsOf(source btrfs.Subvolume, subvolumes []btrfs.Subvolume) ([]Local, error) {
	var snapshots []Local
	for _, sv := range subvolumes {
		if sv.ParentUUID == nil || *sv.ParentUUID != source.UUID {
			continue
		}
		snap, err := LocalFromSubvolume(sv)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// RemotesOf returns every received snapshot in the listing.
func RemotesOf(subvolumes []btrfs.Subvolume) ([]Remote, error) {
	var snapshots []Remote
	for _, sv := range subvolumes {
		if sv.ReceivedUUID == nil {
			continue
		}
		snap, err := RemoteFromSubvolume(sv)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// CommonParent picks the local snapshot to use as the parent of an
// incremental send: among the remote snapshots whose received uuid
// still matches a local snapshot, the one with the greatest btrfs path
// wins and its local counterpart is returned. Nil means no shared
// ancestor exists and the caller must do a full send.
//
// Snapshot names sort chronologically as long as all snapshots share a
// suffix, which makes the path ordering a timestamp ordering. With
// mixed suffixes in one backup directory that no longer holds; the
// path tie-break is kept regardless because it is what the remote side
// was built up with.
func CommonParent(locals []Local, remotes []Remote) *Local {
	byUUID := make(map[uuid.UUID]*Local, len(locals))
	for i := range locals {
		byUUID[locals[i].UUID] = &locals[i]
	}

	var candidates []Remote
	for _, r := range remotes {
		if _, ok := byUUID[r.ReceivedUUID]; ok {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Path < candidates[j].Path
	})
	return byUUID[candidates[len(candidates)-1].ReceivedUUID]
}
