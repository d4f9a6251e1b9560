package migrate

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/JonMunkholm/crmmigrate/internal/store"
)

// Check reads the row counts a migration is verified against.
func Check(ctx context.Context, st store.Store) (store.Counts, error) {
	counts, err := st.Counts(ctx)
	if err != nil {
		return store.Counts{}, fmt.Errorf("check: %w", err)
	}
	return counts, nil
}

// WriteCounts prints the verification counts.
func WriteCounts(w io.Writer, c store.Counts) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "clients\t%d\t\n", c.Clients)
	fmt.Fprintf(tw, "  with crm id\t%d\t\n", c.ClientsWithCrmID)
	fmt.Fprintf(tw, "  without crm id\t%d\t\n", c.ClientsWithoutCrmID)
	fmt.Fprintf(tw, "devis\t%d\t\n", c.DevisRefs)
	return tw.Flush()
}
