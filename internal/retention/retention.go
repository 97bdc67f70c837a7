// Package retention decides which snapshots have outlived their
// tiered retention policy.
//
// A policy is an ascending list of durations measured backward from
// now. Each duration bounds one bucket; within a finite bucket only
// the snapshot closest to the older edge survives. Snapshots older
// than every configured duration fall into an unbounded tail bucket
// that keeps its single newest member.
package retention

import (
	"sort"
	"time"
)

// Record is the minimal view of a snapshot the engine needs.
type Record struct {
	Path      string
	Timestamp time.Time
	Suffix    string
}

// Expired returns the snapshots the policy no longer retains. Only
// records matching the given suffix participate; the rest are ignored
// and never appear in the result. The input does not have to be
// sorted.
func Expired(now time.Time, policy []time.Duration, records []Record, suffix string) []Record {
	var matching []Record
	for _, r := range records {
		if r.Suffix == suffix {
			matching = append(matching, r)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].Timestamp.Before(matching[j].Timestamp)
	})

	var expired []Record
	var bucket []Record
	cursor := 0

	for i := len(matching) - 1; i >= 0; i-- {
		r := matching[i]
		if cursor < len(policy) && now.Sub(r.Timestamp) > policy[cursor] {
			// The snapshot falls past the current window. Close the
			// bucket, keeping its last-added member (the oldest seen),
			// and start the next window with this snapshot.
			if len(bucket) > 0 {
				expired = append(expired, bucket[:len(bucket)-1]...)
			}
			bucket = []Record{r}
			cursor++
			continue
		}
		bucket = append(bucket, r)
	}

	if len(bucket) > 0 {
		if cursor >= len(policy) {
			// Unbounded tail bucket: keep the newest member.
			expired = append(expired, bucket[1:]...)
		} else {
			expired = append(expired, bucket[:len(bucket)-1]...)
		}
	}
	return expired
}
