package btrfs

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ParseError reports listing output that does not match the format the
// btrfs tooling is expected to emit.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return "btrfs parse error: " + e.Msg
}

// subvolumeListHeader is the header of `btrfs subvolume list -tupqR`.
// A header mismatch means the tool's output format changed underneath
// us and nothing after it can be trusted.
var subvolumeListHeader = []string{
	"ID", "gen", "parent", "top", "level", "parent_uuid", "received_uuid", "uuid", "path",
}

// ParseSubvolumeList parses the tabular output of
// `btrfs subvolume list -tupqR --sort=rootid <path>`.
//
// The header line must match exactly. The separator line after it is
// skipped, as is every line that does not split into the eight data
// columns (which tolerates trailing blank lines). The uuid column must
// parse; parent_uuid and received_uuid are optional and any non-UUID
// token there, typically "-", means absent. The result preserves
// listing order, which the --sort=rootid flag makes creation order.
func ParseSubvolumeList(raw string) ([]Subvolume, error) {
	lines := strings.Split(raw, "\n")

	header := strings.Fields(lines[0])
	if len(header) != len(subvolumeListHeader) {
		return nil, &ParseError{Msg: "unexpected subvolume list header"}
	}
	for i, token := range header {
		if token != subvolumeListHeader[i] {
			return nil, &ParseError{Msg: "unexpected subvolume list header"}
		}
	}

	var subvolumes []Subvolume
	for i := 2; i < len(lines); i++ {
		tokens := strings.Fields(lines[i])
		if len(tokens) != 8 {
			continue
		}

		id, err := uuid.Parse(tokens[6])
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("invalid subvolume uuid %q", tokens[6])}
		}

		sv := Subvolume{
			BtrfsPath: ensureLeadingSlash(tokens[7]),
			UUID:      id,
		}
		if parent, err := uuid.Parse(tokens[4]); err == nil {
			sv.ParentUUID = &parent
		}
		if received, err := uuid.Parse(tokens[5]); err == nil {
			sv.ReceivedUUID = &received
		}
		subvolumes = append(subvolumes, sv)
	}

	return subvolumes, nil
}

// ParseSubvolumeShow parses the output of `btrfs subvolume show
// <fsPath>`: the first line is the btrfs path of the subvolume and the
// `UUID:` field line carries its identity.
func ParseSubvolumeShow(fsPath, raw string) (SubvolumeInfo, error) {
	lines := strings.Split(raw, "\n")
	if strings.TrimSpace(lines[0]) == "" {
		return SubvolumeInfo{}, &ParseError{Msg: "missing subvolume path line"}
	}

	info := SubvolumeInfo{
		FsPath:    fsPath,
		BtrfsPath: ensureLeadingSlash(strings.TrimSpace(lines[0])),
	}

	for _, line := range lines[1:] {
		key, value, found := strings.Cut(line, ":")
		if !found || strings.TrimSpace(key) != "UUID" {
			continue
		}
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return SubvolumeInfo{}, &ParseError{Msg: fmt.Sprintf("invalid subvolume uuid %q", strings.TrimSpace(value))}
		}
		info.UUID = id
		return info, nil
	}

	return SubvolumeInfo{}, &ParseError{Msg: "could not find UUID of subvolume"}
}

func ensureLeadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}
