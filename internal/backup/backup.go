// Package backup orchestrates a full backup cycle: snapshot the source
// subvolume, send it to the backup host, then police both sides against
// their retention policies.
package backup

import (
	"fmt"
	"path"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/btrbak/internal/btrfs"
	"github.com/blackwell-systems/btrbak/internal/config"
	"github.com/blackwell-systems/btrbak/internal/executor"
	"github.com/blackwell-systems/btrbak/internal/mount"
	"github.com/blackwell-systems/btrbak/internal/retention"
	"github.com/blackwell-systems/btrbak/internal/snapshot"
	"github.com/blackwell-systems/btrbak/internal/store"
)

// Client is the btrfs surface the runner drives.
type Client interface {
	Subvolumes(ctx executor.Context, path string) ([]btrfs.Subvolume, error)
	SubvolumeInfo(ctx executor.Context, path string) (btrfs.SubvolumeInfo, error)
	CreateSnapshot(ctx executor.Context, subvolumePath, snapshotPath string) error
	DeleteSubvolume(ctx executor.Context, path string) error
	SendSnapshot(snapshotPath, parentPath string, local executor.Context, backupPath string, remote executor.Context) error
}

// Runner executes backup cycles for one configured subvolume.
type Runner struct {
	Config *config.Config
	Btrfs  Client
	Exec   executor.Executor
	Store  *store.Store
	Log    *logrus.Entry
	Now    func() time.Time
	DryRun bool
}

// New creates a Runner that drives real commands through exec. The
// store may be nil, in which case no run history is recorded.
func New(cfg *config.Config, exec executor.Executor, st *store.Store, log *logrus.Entry) *Runner {
	return &Runner{
		Config: cfg,
		Btrfs:  btrfs.New(exec),
		Exec:   exec,
		Store:  st,
		Log:    log,
		Now:    time.Now,
	}
}

func (r *Runner) localContext() executor.Context {
	return executor.Local{User: r.Config.UserLocal}
}

func (r *Runner) remoteContext() executor.Context {
	return executor.Remote{
		User:     r.Config.SSH.User,
		Host:     r.Config.SSH.Host,
		Identity: r.Config.SSH.IdentityFile,
	}
}

// CreateSnapshot takes a read-only snapshot of the source subvolume and
// returns its subvolume info. In dry-run mode no snapshot is taken; the
// info carries the path the snapshot would have had, so the rest of a
// dry cycle can refer to it.
func (r *Runner) CreateSnapshot() (btrfs.SubvolumeInfo, error) {
	name := snapshot.EncodeName(r.Now(), r.Config.SnapshotSuffix)
	target := path.Join(r.Config.SnapshotPath, name)

	if r.DryRun {
		r.Log.WithFields(logrus.Fields{
			"snapshot": target,
			"source":   r.Config.SourceSubvolumePath,
		}).Info("would create snapshot")
		return btrfs.SubvolumeInfo{FsPath: target}, nil
	}

	if err := r.Btrfs.CreateSnapshot(r.localContext(), r.Config.SourceSubvolumePath, target); err != nil {
		return btrfs.SubvolumeInfo{}, err
	}

	info, err := r.Btrfs.SubvolumeInfo(r.localContext(), target)
	if err != nil {
		return btrfs.SubvolumeInfo{}, fmt.Errorf("snapshot created but not queryable: %w", err)
	}

	r.Log.WithFields(logrus.Fields{
		"snapshot": info.FsPath,
		"source":   r.Config.SourceSubvolumePath,
	}).Info("created snapshot")

	return info, nil
}

// Send transfers the latest local snapshot to the backup host,
// incrementally when a common parent exists. It returns the OS path of
// the parent used, or an empty string for a full transfer.
func (r *Runner) Send() (string, error) {
	localCtx, remoteCtx := r.localContext(), r.remoteContext()

	subvolumes, err := r.Btrfs.Subvolumes(localCtx, r.Config.SnapshotSubvolumePath)
	if err != nil {
		return "", err
	}
	source, err := btrfs.SubvolumeByPath(subvolumes, r.Config.SourceSubvolumePath)
	if err != nil {
		return "", err
	}
	locals, err := snapshot.LocalsOf(*source, subvolumes)
	if err != nil {
		return "", err
	}
	if len(locals) == 0 {
		return "", fmt.Errorf("no snapshot of %s to send", r.Config.SourceSubvolumePath)
	}
	latest := locals[len(locals)-1]

	remoteSubvolumes, err := r.Btrfs.Subvolumes(remoteCtx, r.Config.BackupSubvolumePath)
	if err != nil {
		return "", err
	}
	remotes, err := snapshot.RemotesOf(remoteSubvolumes)
	if err != nil {
		return "", err
	}

	parent := snapshot.CommonParent(locals, remotes)

	devices, err := executor.ReadLink(r.Exec, localCtx, r.Config.SnapshotDevice)
	if err != nil {
		return "", err
	}
	mounts, err := mount.List(r.Exec, localCtx)
	if err != nil {
		return "", err
	}

	snapshotPath, err := mount.Resolve(mounts, devices, latest.Path)
	if err != nil {
		return "", err
	}
	parentPath := ""
	if parent != nil {
		parentPath, err = mount.Resolve(mounts, devices, parent.Path)
		if err != nil {
			return "", err
		}
	}

	log := r.Log.WithField("snapshot", snapshotPath)
	if parentPath != "" {
		log.WithField("parent", parentPath).Info("sending incremental snapshot")
	} else {
		log.Info("no common parent found, sending full snapshot")
	}

	if r.DryRun {
		return parentPath, nil
	}
	if err := r.Btrfs.SendSnapshot(snapshotPath, parentPath, localCtx, r.Config.BackupPath, remoteCtx); err != nil {
		return "", err
	}
	return parentPath, nil
}

// Police deletes the snapshots on the given side that fall outside the
// side's retention policy. keepName is the base name of a snapshot that
// must survive no matter what, normally the one created this cycle;
// pass an empty string to protect nothing extra. Deletion failures are
// collected so one stuck subvolume does not shield the rest.
func (r *Runner) Police(side, keepName string, runID int64) ([]string, error) {
	var ctx executor.Context
	var root, device string
	var policy []time.Duration
	switch side {
	case store.SideLocal:
		ctx = r.localContext()
		root = r.Config.SnapshotSubvolumePath
		device = r.Config.SnapshotDevice
		policy = r.Config.LocalPolicy()
	case store.SideRemote:
		ctx = r.remoteContext()
		root = r.Config.BackupSubvolumePath
		device = r.Config.BackupDevice
		policy = r.Config.RemotePolicy()
	default:
		return nil, fmt.Errorf("unknown side %q", side)
	}

	subvolumes, err := r.Btrfs.Subvolumes(ctx, root)
	if err != nil {
		return nil, err
	}

	var records []retention.Record
	for _, sv := range subvolumes {
		timestamp, suffix, err := snapshot.DecodeName(sv.BtrfsPath)
		if err != nil {
			// Not a snapshot of ours.
			continue
		}
		records = append(records, retention.Record{
			Path:      sv.BtrfsPath,
			Timestamp: timestamp,
			Suffix:    suffix,
		})
	}

	expired := retention.Expired(r.Now(), policy, records, r.Config.SnapshotSuffix)

	var doomed []retention.Record
	for _, rec := range expired {
		if keepName != "" && path.Base(rec.Path) == keepName {
			continue
		}
		doomed = append(doomed, rec)
	}
	if len(doomed) == 0 {
		r.Log.WithField("side", side).Info("nothing to prune")
		return nil, nil
	}

	devices, err := executor.ReadLink(r.Exec, ctx, device)
	if err != nil {
		return nil, err
	}
	mounts, err := mount.List(r.Exec, ctx)
	if err != nil {
		return nil, err
	}

	var errs *multierror.Error
	var pruned []string
	for _, rec := range doomed {
		target, err := mount.Resolve(mounts, devices, rec.Path)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		log := r.Log.WithFields(logrus.Fields{"side": side, "snapshot": target})
		if r.DryRun {
			log.Info("would prune snapshot")
			pruned = append(pruned, target)
			continue
		}

		if err := r.Btrfs.DeleteSubvolume(ctx, target); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		log.Info("pruned snapshot")
		pruned = append(pruned, target)

		if r.Store != nil && runID != 0 {
			if err := r.Store.RecordPruned(runID, side, target, r.Now()); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	return pruned, errs.ErrorOrNil()
}

// Run executes one full backup cycle and records it in the run history.
func (r *Runner) Run() error {
	var runID int64
	if r.Store != nil {
		id, err := r.Store.BeginRun(r.Now())
		if err != nil {
			return err
		}
		runID = id
	}

	err := r.cycle(runID)

	if r.Store != nil {
		if finishErr := r.Store.FinishRun(runID, r.Now(), err); finishErr != nil && err == nil {
			err = finishErr
		}
	}
	if err == nil {
		r.Log.Info("backup completed")
	}
	return err
}

func (r *Runner) cycle(runID int64) error {
	info, err := r.CreateSnapshot()
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	parentPath, err := r.Send()
	if err != nil {
		return fmt.Errorf("send snapshot: %w", err)
	}

	if r.Store != nil && runID != 0 {
		if err := r.Store.SetRunSnapshot(runID, info.FsPath, parentPath); err != nil {
			return err
		}
	}

	keepName := path.Base(info.FsPath)
	if _, err := r.Police(store.SideLocal, keepName, runID); err != nil {
		return fmt.Errorf("police local snapshots: %w", err)
	}
	if _, err := r.Police(store.SideRemote, keepName, runID); err != nil {
		return fmt.Errorf("police remote snapshots: %w", err)
	}
	return nil
}
