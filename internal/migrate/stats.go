package migrate

import (
	"fmt"
	"log/slog"
)

// Stats counts what happened to the records of one entity. A phase returns
// its own Stats; callers merge them at phase boundaries.
type Stats struct {
	Seen     int // records materialized from the export
	Excluded int // records filtered out before any create was attempted

	Created          int
	SkippedDuplicate int
	SkippedNoParent  int
	ErroredOther     int
}

// Merge returns the field-wise sum of s and o.
func (s Stats) Merge(o Stats) Stats {
	return Stats{
		Seen:             s.Seen + o.Seen,
		Excluded:         s.Excluded + o.Excluded,
		Created:          s.Created + o.Created,
		SkippedDuplicate: s.SkippedDuplicate + o.SkippedDuplicate,
		SkippedNoParent:  s.SkippedNoParent + o.SkippedNoParent,
		ErroredOther:     s.ErroredOther + o.ErroredOther,
	}
}

// Processed is the number of records that reached an outcome counter.
func (s Stats) Processed() int {
	return s.Created + s.SkippedDuplicate + s.SkippedNoParent + s.ErroredOther
}

// count folds one create outcome into s.
func (s *Stats) count(kind Kind) {
	switch kind {
	case KindNone:
		s.Created++
	case KindConflict:
		s.SkippedDuplicate++
	default:
		s.ErroredOther++
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("created=%d duplicate=%d no_parent=%d errored=%d seen=%d",
		s.Created, s.SkippedDuplicate, s.SkippedNoParent, s.ErroredOther, s.Seen)
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("created", s.Created),
		slog.Int("skipped_duplicate", s.SkippedDuplicate),
		slog.Int("skipped_no_parent", s.SkippedNoParent),
		slog.Int("errored", s.ErroredOther),
		slog.Int("seen", s.Seen),
	)
}
