package main

import (
	"github.com/JonMunkholm/crmmigrate/internal/logging"
	"github.com/JonMunkholm/crmmigrate/internal/migrate"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Print migrated client and devis counts",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := open(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	counts, err := migrate.Check(s.ctx, s.store)
	if err != nil {
		return err
	}
	logging.FromContext(s.ctx).Info("migration check", "counts", counts.String())
	return migrate.WriteCounts(cmd.OutOrStdout(), counts)
}
