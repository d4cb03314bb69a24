package scurry

import (
	"fmt"

	"github.com/scurrydb/scurry/database"
)

// verifyCommonHistory walks the available versions and the applied history in lockstep and
// reports the first position where they disagree. A history longer than the catalog is an error;
// a shorter one is fine, the remainder is what there is left to apply.
func verifyCommonHistory(catalog []*Version, history []*database.HistoryEntry) error {
	for i, entry := range history {
		if i >= len(catalog) {
			return consistencyError("verify history",
				fmt.Errorf("%w %s", ErrUnknownVersion, entry.ScriptVersion))
		}
		v := catalog[i]
		if v.Version != entry.ScriptVersion {
			return consistencyError("verify history",
				fmt.Errorf("%w: expected %s, schema has %s", ErrVersionMismatch, v.Version, entry.ScriptVersion))
		}
		if v.Hash != entry.ScriptHash {
			return consistencyError("verify history",
				fmt.Errorf("%w for version %s: script is %s, schema has %s",
					ErrHashMismatch, v.Version, v.Hash, entry.ScriptHash))
		}
	}
	return nil
}

// upgradePath returns the versions left to apply, in ascending order: those above the watermark
// (all of them when watermark is nil) and, for a specific target, not above it. A target below
// the watermark yields an empty path.
func upgradePath(catalog []*Version, watermark *database.HistoryEntry, target Target) []*Version {
	path := make([]*Version, 0, len(catalog))
	for _, v := range catalog {
		if watermark != nil && v.Version <= watermark.ScriptVersion {
			continue
		}
		if !target.IsLatest() && v.Version > target.Version() {
			continue
		}
		path = append(path, v)
	}
	return path
}

// historyDifferences reports, for every available version, how it disagrees with the history
// entry at the same position. Versions that agree are omitted.
func historyDifferences(catalog []*Version, history []*database.HistoryEntry) []*Difference {
	var diffs []*Difference
	for i, v := range catalog {
		switch {
		case i >= len(history):
			diffs = append(diffs, &Difference{Kind: Missing, Version: v})
		case history[i].ScriptVersion != v.Version:
			diffs = append(diffs, &Difference{Kind: VersionMismatch, Version: v})
		case history[i].ScriptHash != v.Hash:
			diffs = append(diffs, &Difference{Kind: HashMismatch, Version: v})
		}
	}
	return diffs
}

func lastEntry(history []*database.HistoryEntry) *database.HistoryEntry {
	if len(history) == 0 {
		return nil
	}
	return history[len(history)-1]
}
