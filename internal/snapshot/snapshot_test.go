package snapshot

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/btrbak/internal/btrfs"
)

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	u, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("uuid.Parse(%q): %v", s, err)
	}
	return u
}

func uuidPtr(u uuid.UUID) *uuid.UUID { return &u }

func TestLocalFromSubvolume(t *testing.T) {
	parent := uuid.MustParse("5f0b151b-52e4-4445-aa94-d07056733a1f")
	sv := btrfs.Subvolume{
		BtrfsPath:  "/snapshots/2020-01-02T09:15:00Z_hourly",
		UUID:       uuid.MustParse("dc4e1039-9241-cd47-9c10-a5d1ce15ba20"),
		ParentUUID: &parent,
	}

	snap, err := LocalFromSubvolume(sv)
	if err != nil {
		t.Fatalf("LocalFromSubvolume() error = %v", err)
	}
	if snap.Path != sv.BtrfsPath {
		t.Errorf("Path = %q, want %q", snap.Path, sv.BtrfsPath)
	}
	if want := time.Date(2020, 1, 2, 9, 15, 0, 0, time.UTC); !snap.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", snap.Timestamp, want)
	}
	if snap.Suffix != "hourly" {
		t.Errorf("Suffix = %q, want %q", snap.Suffix, "hourly")
	}
	if snap.ParentUUID != parent {
		t.Errorf("ParentUUID = %v, want %v", snap.ParentUUID, parent)
	}
}

func TestLocalFromSubvolumeMissingParent(t *testing.T) {
	sv := btrfs.Subvolume{
		BtrfsPath: "/snapshots/2020-01-02T09:15:00Z_hourly",
		UUID:      uuid.MustParse("dc4e1039-9241-cd47-9c10-a5d1ce15ba20"),
	}
	if _, err := LocalFromSubvolume(sv); err == nil {
		t.Error("LocalFromSubvolume() expected error for missing parent uuid")
	}
}

func TestRemoteFromSubvolumeMissingReceived(t *testing.T) {
	sv := btrfs.Subvolume{
		BtrfsPath: "/backups/2020-01-02T09:15:00Z_hourly",
		UUID:      uuid.MustParse("dc4e1039-9241-cd47-9c10-a5d1ce15ba20"),
	}
	if _, err := RemoteFromSubvolume(sv); err == nil {
		t.Error("RemoteFromSubvolume() expected error for missing received uuid")
	}
}

func TestLocalsOf(t *testing.T) {
	source := btrfs.Subvolume{
		BtrfsPath: "/root",
		UUID:      mustUUID(t, "11111111-1111-1111-1111-111111111111"),
	}
	other := mustUUID(t, "22222222-2222-2222-2222-222222222222")

	subvolumes := []btrfs.Subvolume{
		source,
		{
			BtrfsPath:  "/snapshots/2020-01-02T09:00:00Z_hourly",
			UUID:       mustUUID(t, "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"),
			ParentUUID: uuidPtr(source.UUID),
		},
		{
			BtrfsPath:  "/snapshots/2020-01-02T10:00:00Z_hourly",
			UUID:       mustUUID(t, "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"),
			ParentUUID: uuidPtr(source.UUID),
		},
		{
			BtrfsPath:  "/elsewhere/2020-01-02T11:00:00Z_hourly",
			UUID:       mustUUID(t, "cccccccc-cccc-cccc-cccc-cccccccccccc"),
			ParentUUID: &other,
		},
	}

	snapshots, err := LocalsOf(source, subvolumes)
	if err != nil {
		t.Fatalf("LocalsOf() error = %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("LocalsOf() returned %d snapshots, want 2", len(snapshots))
	}
	if snapshots[0].Path != "/snapshots/2020-01-02T09:00:00Z_hourly" {
		t.Errorf("snapshots[0].Path = %q", snapshots[0].Path)
	}
	if snapshots[1].Path != "/snapshots/2020-01-02T10:00:00Z_hourly" {
		t.Errorf("snapshots[1].Path = %q", snapshots[1].Path)
	}
}

func TestLocalsOfBadName(t *testing.T) {
	source := btrfs.Subvolume{
		BtrfsPath: "/root",
		UUID:      mustUUID(t, "11111111-1111-1111-1111-111111111111"),
	}
	subvolumes := []btrfs.Subvolume{
		{
			BtrfsPath:  "/snapshots/not-a-snapshot",
			UUID:       mustUUID(t, "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"),
			ParentUUID: uuidPtr(source.UUID),
		},
	}
	if _, err := LocalsOf(source, subvolumes); err == nil {
		t.Error("LocalsOf() expected error for malformed snapshot name")
	}
}

func TestRemotesOf(t *testing.T) {
	received := mustUUID(t, "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	subvolumes := []btrfs.Subvolume{
		{
			BtrfsPath: "/backups",
			UUID:      mustUUID(t, "11111111-1111-1111-1111-111111111111"),
		},
		{
			BtrfsPath:    "/backups/2020-01-02T09:00:00Z_hourly",
			UUID:         mustUUID(t, "22222222-2222-2222-2222-222222222222"),
			ReceivedUUID: &received,
		},
	}

	snapshots, err := RemotesOf(subvolumes)
	if err != nil {
		t.Fatalf("RemotesOf() error = %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("RemotesOf() returned %d snapshots, want 1", len(snapshots))
	}
	if snapshots[0].ReceivedUUID != received {
		t.Errorf("ReceivedUUID = %v, want %v", snapshots[0].ReceivedUUID, received)
	}
}

func commonParentFixture(t *testing.T) ([]Local, []Remote) {
	t.Helper()
	parent := mustUUID(t, "5f0b151b-52e4-4445-aa94-d07056733a1f")

	locals := []Local{
		{
			Path:       "/snapshots/2020-01-02T09:00:00Z_hourly",
			Timestamp:  time.Date(2020, 1, 2, 9, 0, 0, 0, time.UTC),
			UUID:       mustUUID(t, "aaaaaaaa-0000-0000-0000-000000000001"),
			ParentUUID: parent,
			Suffix:     "hourly",
		},
		{
			Path:       "/snapshots/2020-01-02T10:00:00Z_hourly",
			Timestamp:  time.Date(2020, 1, 2, 10, 0, 0, 0, time.UTC),
			UUID:       mustUUID(t, "aaaaaaaa-0000-0000-0000-000000000002"),
			ParentUUID: parent,
			Suffix:     "hourly",
		},
		{
			Path:       "/snapshots/2020-01-02T11:00:00Z_hourly",
			Timestamp:  time.Date(2020, 1, 2, 11, 0, 0, 0, time.UTC),
			UUID:       mustUUID(t, "aaaaaaaa-0000-0000-0000-000000000003"),
			ParentUUID: parent,
			Suffix:     "hourly",
		},
	}
	remotes := []Remote{
		{
			Path:         "/backups/2020-01-02T09:00:00Z_hourly",
			Timestamp:    time.Date(2020, 1, 2, 9, 0, 0, 0, time.UTC),
			UUID:         mustUUID(t, "bbbbbbbb-0000-0000-0000-000000000001"),
			ReceivedUUID: locals[0].UUID,
			Suffix:       "hourly",
		},
		{
			Path:         "/backups/2020-01-02T10:00:00Z_hourly",
			Timestamp:    time.Date(2020, 1, 2, 10, 0, 0, 0, time.UTC),
			UUID:         mustUUID(t, "bbbbbbbb-0000-0000-0000-000000000002"),
			ReceivedUUID: locals[1].UUID,
			Suffix:       "hourly",
		},
	}
	return locals, remotes
}

func TestCommonParentNewestShared(t *testing.T) {
	locals, remotes := commonParentFixture(t)

	got := CommonParent(locals, remotes)
	if got == nil {
		t.Fatal("CommonParent() = nil, want a snapshot")
	}
	if got.UUID != locals[1].UUID {
		t.Errorf("CommonParent() = %s, want %s", got.Path, locals[1].Path)
	}
}

func TestCommonParentSkipsPrunedLocals(t *testing.T) {
	locals, remotes := commonParentFixture(t)

	// The newest remote's counterpart was pruned locally; the older
	// shared snapshot must win.
	locals = []Local{locals[0], locals[2]}

	got := CommonParent(locals, remotes)
	if got == nil {
		t.Fatal("CommonParent() = nil, want a snapshot")
	}
	if got.UUID != locals[0].UUID {
		t.Errorf("CommonParent() = %s, want %s", got.Path, locals[0].Path)
	}
}

func TestCommonParentNoneShared(t *testing.T) {
	locals, remotes := commonParentFixture(t)
	for i := range remotes {
		remotes[i].ReceivedUUID = mustUUID(t, "cccccccc-0000-0000-0000-000000000009")
	}

	if got := CommonParent(locals, remotes); got != nil {
		t.Errorf("CommonParent() = %s, want nil", got.Path)
	}
}

func TestCommonParentEmpty(t *testing.T) {
	if got := CommonParent(nil, nil); got != nil {
		t.Errorf("CommonParent() = %s, want nil", got.Path)
	}
	locals, _ := commonParentFixture(t)
	if got := CommonParent(locals, nil); got != nil {
		t.Errorf("CommonParent() = %s, want nil", got.Path)
	}
}

func TestCommonParentUnsortedRemotes(t *testing.T) {
	locals, remotes := commonParentFixture(t)
	remotes[0], remotes[1] = remotes[1], remotes[0]

	got := CommonParent(locals, remotes)
	if got == nil {
		t.Fatal("CommonParent() = nil, want a snapshot")
	}
	if got.UUID != locals[1].UUID {
		t.Errorf("CommonParent() = %s, want %s", got.Path, locals[1].Path)
	}
}
