package migrate

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/JonMunkholm/crmmigrate/internal/dump"
	"github.com/JonMunkholm/crmmigrate/internal/logging"
)

// SourceSummary describes what was parsed out of one export.
type SourceSummary struct {
	Table       string
	HeaderFound bool
	Tuples      int
	Dropped     int
}

func summarize(res dump.Result) SourceSummary {
	return SourceSummary{
		Table:       res.Table,
		HeaderFound: res.HeaderFound,
		Tuples:      res.Tuples,
		Dropped:     res.Dropped,
	}
}

// EntityReport is the outcome for one entity.
type EntityReport struct {
	Name   string
	Source SourceSummary
	Stats  Stats
}

// WipeResult is the outcome of deleting one table.
type WipeResult struct {
	Table string
	Rows  int64
	Err   error
}

// Report summarizes a run. Entities not part of the run are nil.
type Report struct {
	RunID    string
	Phase    Phase
	Started  time.Time
	Finished time.Time
	Err      error

	Clients   *EntityReport
	Devis     *EntityReport
	Wiped     []WipeResult
	RemapSize int
}

func newReport(ctx context.Context) *Report {
	return &Report{
		RunID:   logging.RunID(ctx),
		Started: time.Now(),
	}
}

func (r *Report) finish(phase Phase, err error) {
	r.Phase = phase
	r.Err = err
	r.Finished = time.Now()
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// WriteSummary prints the per-entity counters and the wipe results.
// TUPLES is every row found in the export; SEEN excludes the DROPPED ones.
func (r *Report) WriteSummary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "run %s: %s in %s\n", r.RunID, r.Phase, r.Duration().Round(time.Millisecond))
	if r.Err != nil {
		msg := Describe(Classify(r.Err))
		fmt.Fprintf(tw, "error: %v\n%s\n", r.Err, msg)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "ENTITY\tTUPLES\tDROPPED\tSEEN\tEXCLUDED\tCREATED\tDUPLICATE\tNO PARENT\tERRORED\t")
	for _, e := range []*EntityReport{r.Clients, r.Devis} {
		if e == nil {
			continue
		}
		s := e.Stats
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
			e.Name, e.Source.Tuples, e.Source.Dropped, s.Seen, s.Excluded,
			s.Created, s.SkippedDuplicate, s.SkippedNoParent, s.ErroredOther)
	}

	if len(r.Wiped) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "TABLE\tDELETED\t")
		for _, wr := range r.Wiped {
			if wr.Err != nil {
				fmt.Fprintf(tw, "%s\terror: %v\t\n", wr.Table, wr.Err)
				continue
			}
			fmt.Fprintf(tw, "%s\t%d\t\n", wr.Table, wr.Rows)
		}
	}

	return tw.Flush()
}
