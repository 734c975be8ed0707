package snapshot

import (
	"errors"
	"fmt"

	"github.com/marmotdata/icemeta/internal/metadata"
)

// ErrInvalidV3PositionDelete is returned when a format-version-3 manifest
// adds a position-delete entry that is not a deletion vector.
var ErrInvalidV3PositionDelete = errors.New("snapshot: format-version 3 requires added position deletes to be deletion vectors")

// ErrTooManyDeletionVectors is returned when a single data file would be
// covered by more than one added deletion vector in the same snapshot.
var ErrTooManyDeletionVectors = errors.New("snapshot: data file referenced by more than one added deletion vector")

// ValidateDeletionVectorRules checks the format-version-3 deletion-vector
// rules against the entries one snapshot adds (across all of its new
// manifests):
//   - an ADDED position-delete entry must be a deletion vector (error);
//   - an EXISTING position-delete entry that is not a deletion vector is
//     legal (carried over from a v2 table) but worth a warning;
//   - a data file may not be referenced by more than one ADDED deletion
//     vector among entries (error).
//
// For format versions below 3 this is a no-op: legacy position-delete files
// are always legal there.
func ValidateDeletionVectorRules(formatVersion int, entries []metadata.ManifestEntry) (warnings []string, err error) {
	if formatVersion < 3 {
		return nil, nil
	}

	refCounts := make(map[string]int)
	for _, e := range entries {
		if e.DataFile.Content != metadata.ContentPositionDeletes {
			continue
		}
		isDV := metadata.IsDeletionVector(e.DataFile)

		switch e.Status {
		case metadata.StatusAdded:
			if !isDV {
				return warnings, fmt.Errorf("%w: file %s", ErrInvalidV3PositionDelete, e.DataFile.FilePath)
			}
			refCounts[e.DataFile.ReferencedDataFile]++
		case metadata.StatusExisting:
			if !isDV {
				warnings = append(warnings, fmt.Sprintf("existing legacy position-delete file %s carried over into a v3 table", e.DataFile.FilePath))
			}
		}
	}

	for file, count := range refCounts {
		if count > 1 {
			return warnings, fmt.Errorf("%w: %s referenced by %d added deletion vectors", ErrTooManyDeletionVectors, file, count)
		}
	}

	return warnings, nil
}
