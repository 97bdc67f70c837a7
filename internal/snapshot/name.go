// Package snapshot models the snapshots btrbak creates: their
// `<timestamp>_<suffix>` naming convention, their lineage on the local
// and remote side, and the resolution of a shared ancestor for
// incremental transfers.
package snapshot

import (
	"path"
	"strings"
	"time"
)

// ExtractionError reports a path whose final component does not follow
// the `<timestamp>_<suffix>` snapshot naming convention.
type ExtractionError struct {
	Name string
	Msg  string
}

func (e *ExtractionError) Error() string {
	return "cannot extract snapshot name from " + e.Name + ": " + e.Msg
}

// EncodeName returns the snapshot name for a timestamp and suffix:
// the RFC3339 timestamp in UTC at second precision, an underscore, and
// the suffix verbatim.
func EncodeName(t time.Time, suffix string) string {
	return t.UTC().Format(time.RFC3339) + "_" + suffix
}

// DecodeName splits the final component of a snapshot path back into
// its timestamp and suffix. The suffix is everything after the first
// underscore and may itself contain underscores.
func DecodeName(p string) (time.Time, string, error) {
	name := path.Base(p)

	stamp, suffix, found := strings.Cut(name, "_")
	if !found {
		return time.Time{}, "", &ExtractionError{Name: name, Msg: "no suffix separator"}
	}

	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return time.Time{}, "", &ExtractionError{Name: name, Msg: "invalid timestamp " + stamp}
	}

	return t, suffix, nil
}
