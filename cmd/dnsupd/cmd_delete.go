package main

import (
	"context"

	"github.com/spf13/cobra"

	"gitlab.bluewillows.net/root/dnsupd/internal/record"
	"gitlab.bluewillows.net/root/dnsupd/internal/updater"
)

func newCmdDelete(a *app) *cobra.Command {
	var target targetFlags

	cmd := &cobra.Command{
		Use:   "delete NAME [VALUE...]",
		Short: "Delete records and their reverse PTR records",
		Long: `Delete records of a name.

Without values and without --type every record of the name is deleted.
With --type only records of that type are deleted; with values only those
values are. PTR records of deleted A and AAAA records are removed as well.`,
		Example: `  dnsupd delete www.example.com
  dnsupd delete -t AAAA www.example.com
  dnsupd delete www.example.com 192.0.2.10`,
		Args: minimumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rtype, err := record.ParseType(target.recordType)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), func(ctx context.Context, u *updater.Updater) (*updater.Result, error) {
				return u.Delete(ctx, updater.DeleteRequest{
					Name:   args[0],
					Values: args[1:],
					Type:   rtype,
					DryRun: target.dryRun,
					Target: target.options(),
				})
			})
		},
	}

	target.register(cmd.Flags())
	return cmd
}
