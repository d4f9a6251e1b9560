package main

import (
	"github.com/JonMunkholm/crmmigrate/internal/migrate"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Wipe migrated data, then import referenced clients and their devis",
	Long: `Run the full migration.

Every previously migrated table is emptied first, children before parents.
Only clients referenced by at least one devis, and not deleted in the
legacy CRM, are imported. Devis whose client was not imported are skipped.

Missing reference data (the default country) or an unreadable export
aborts the run before anything is deleted.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Import every non-deleted client without wiping",
	Args:  cobra.NoArgs,
	RunE:  runClients,
}

var devisCmd = &cobra.Command{
	Use:   "devis",
	Short: "Import devis against the clients already in the database",
	Args:  cobra.NoArgs,
	RunE:  runDevis,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	s, err := open(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	m := s.cfg.Migrate
	clients, err := migrate.ReadExport(s.ctx, m.ClientsFile, m.ClientsTable, m.ReadOptions())
	if err != nil {
		return err
	}
	devis, err := migrate.ReadExport(s.ctx, m.DevisFile, m.DevisTable, m.ReadOptions())
	if err != nil {
		return err
	}

	rep, err := s.loader().Run(s.ctx, migrate.Input{Clients: clients, Devis: devis})
	if werr := rep.WriteSummary(cmd.OutOrStdout()); werr != nil && err == nil {
		err = werr
	}
	return err
}

func runClients(cmd *cobra.Command, args []string) error {
	return runPartial(cmd, func(s *session) (*migrate.Report, error) {
		m := s.cfg.Migrate
		res, err := migrate.ReadExport(s.ctx, m.ClientsFile, m.ClientsTable, m.ReadOptions())
		if err != nil {
			return nil, err
		}
		return s.loader().ImportClients(s.ctx, res)
	})
}

func runDevis(cmd *cobra.Command, args []string) error {
	return runPartial(cmd, func(s *session) (*migrate.Report, error) {
		m := s.cfg.Migrate
		res, err := migrate.ReadExport(s.ctx, m.DevisFile, m.DevisTable, m.ReadOptions())
		if err != nil {
			return nil, err
		}
		return s.loader().ImportDevis(s.ctx, res)
	})
}

func runPartial(cmd *cobra.Command, load func(*session) (*migrate.Report, error)) error {
	s, err := open(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	rep, err := load(s)
	if rep != nil {
		if werr := rep.WriteSummary(cmd.OutOrStdout()); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}
