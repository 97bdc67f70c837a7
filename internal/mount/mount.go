// Package mount reads the btrfs mount table and translates paths
// internal to a volume into the OS paths they are reachable under.
package mount

import (
	"fmt"
	"path"
	"strings"

	"github.com/blackwell-systems/btrbak/internal/executor"
)

const fsTypeBtrfs = "btrfs"

// Info describes one mounted instance of a filesystem. The same device
// may appear several times when nested or bind mounts expose different
// roots of one volume.
type Info struct {
	Device     string
	Root       string
	MountPoint string
	FSType     string

	// Properties maps mount option names to their values; flag-only
	// options map to nil.
	Properties map[string]*string
}

// ParseError reports a mount table line with a missing field.
type ParseError struct {
	Field string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mount table parse error: could not find %s", e.Field)
}

// PathConversionError reports an internal path with no matching mount.
type PathConversionError struct {
	Path    string
	Devices []string
}

func (e *PathConversionError) Error() string {
	return fmt.Sprintf("no mount found for internal path %s on %s", e.Path, strings.Join(e.Devices, ", "))
}

// fieldNames, in the order findmnt emits them.
var fieldNames = []string{"root", "mount point", "fs type", "device", "options"}

// ParseTable parses `findmnt -lnv -o FSROOT,TARGET,FSTYPE,SOURCE,OPTIONS`
// output: one mount per line, five whitespace-separated fields, the
// last being a comma-separated option list of `key` or `key=value`
// entries. Empty lines are skipped; a line missing a field is a
// ParseError naming the first missing one.
func ParseTable(raw string) ([]Info, error) {
	var mounts []Info
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < len(fieldNames) {
			return nil, &ParseError{Field: fieldNames[len(fields)]}
		}

		mounts = append(mounts, Info{
			Root:       fields[0],
			MountPoint: fields[1],
			FSType:     fields[2],
			Device:     fields[3],
			Properties: parseOptions(fields[4]),
		})
	}
	return mounts, nil
}

func parseOptions(raw string) map[string]*string {
	properties := make(map[string]*string)
	for _, option := range strings.Split(raw, ",") {
		if key, value, found := strings.Cut(option, "="); found {
			v := value
			properties[key] = &v
		} else {
			properties[option] = nil
		}
	}
	return properties
}

// List returns the btrfs mount table in the given context.
func List(e executor.Executor, ctx executor.Context) ([]Info, error) {
	output, err := e.Run(ctx, "findmnt", "-lnvt", "btrfs", "-o", "FSROOT,TARGET,FSTYPE,SOURCE,OPTIONS")
	if err != nil {
		return nil, fmt.Errorf("failed to list mounts: %w", err)
	}
	return ParseTable(output)
}

// Resolve translates a path internal to the btrfs volume on one of the
// given devices into the OS path it is reachable under. Candidates are
// btrfs mounts of a matching device whose root is a prefix of
// internalPath; with nested bind mounts several roots can match, and
// the longest one is authoritative, as in longest-prefix routing.
func Resolve(mounts []Info, devices []string, internalPath string) (string, error) {
	var best *Info
	for i := range mounts {
		m := &mounts[i]
		if m.FSType != fsTypeBtrfs || !matchesDevice(devices, m.Device) {
			continue
		}
		if !hasPathPrefix(internalPath, m.Root) {
			continue
		}
		if best == nil || len(m.Root) > len(best.Root) {
			best = m
		}
	}

	if best == nil {
		return "", &PathConversionError{Path: internalPath, Devices: devices}
	}
	return path.Join(best.MountPoint, strings.TrimPrefix(internalPath, best.Root)), nil
}

func matchesDevice(devices []string, device string) bool {
	for _, d := range devices {
		if d == device {
			return true
		}
	}
	return false
}

// hasPathPrefix reports whether root is a whole-component prefix of p.
func hasPathPrefix(p, root string) bool {
	if root == "/" || root == p {
		return true
	}
	return strings.HasPrefix(p, strings.TrimSuffix(root, "/")+"/")
}
