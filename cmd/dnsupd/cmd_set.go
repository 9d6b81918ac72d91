package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gitlab.bluewillows.net/root/dnsupd/internal/record"
	"gitlab.bluewillows.net/root/dnsupd/internal/updater"
)

// targetFlags are shared by set and delete.
type targetFlags struct {
	recordType string
	zone       string
	server     string
	authKey    string
	dryRun     bool
}

func (f *targetFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.recordType, "type", "t", "", "Record type (A|AAAA|NS|CNAME|PTR); inferred from the values when omitted")
	flags.StringVarP(&f.zone, "zone", "z", "", "Zone to update instead of the longest configured match")
	flags.StringVar(&f.server, "server", "", "Update server instead of the configured one")
	flags.StringVar(&f.authKey, "auth-key", "", "TSIG key reference (ALG:NAME:SECRET, NAME:SECRET, file path or ssh:// URL)")
	flags.BoolVarP(&f.dryRun, "dry-run", "n", false, "Show what would be changed without sending updates")
}

func (f *targetFlags) options() updater.TargetOptions {
	return updater.TargetOptions{Zone: f.zone, Server: f.server, AuthKey: f.authKey}
}

func newCmdSet(a *app) *cobra.Command {
	var (
		target  targetFlags
		ttl     int
		add     bool
		replace bool
	)

	cmd := &cobra.Command{
		Use:   "set NAME VALUE...",
		Short: "Create or replace records and their reverse PTR records",
		Example: `  dnsupd set www.example.com 192.0.2.10
  dnsupd set --add www.example.com 2001:db8::10
  dnsupd set -t CNAME ftp.example.com www.example.com`,
		Args: minimumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rtype, err := record.ParseType(target.recordType)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), func(ctx context.Context, u *updater.Updater) (*updater.Result, error) {
				if !cmd.Flags().Changed("ttl") {
					ttl = a.cfg.DefaultTTL
				}
				if ttl < 1 || ttl > 1<<31-1 {
					return nil, fmt.Errorf("%w: invalid --ttl %d", errUsage, ttl)
				}
				return u.Set(ctx, updater.SetRequest{
					Name:   args[0],
					Values: args[1:],
					Type:   rtype,
					TTL:    uint32(ttl),
					Add:    add,
					DryRun: target.dryRun,
					Target: target.options(),
				})
			})
		},
	}

	target.register(cmd.Flags())
	cmd.Flags().IntVar(&ttl, "ttl", updater.DefaultTTL, "TTL of the new records (default from defaults.ttl)")
	cmd.Flags().BoolVar(&add, "add", false, "Add the values to the existing records")
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace the existing records of the same type (default)")
	cmd.MarkFlagsMutuallyExclusive("add", "replace")

	return cmd
}
