package main

import (
	"fmt"

	"soulforge/internal/domain/integrity"

	"github.com/spf13/cobra"
)

type seedFlags struct {
	identity      string
	slotID        string
	startedAt     string
	configVersion string
	actionID      string
}

func (f *seedFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.identity, "identity", "", "player identity (required)")
	fl.StringVar(&f.slotID, "slot", "", "slot id")
	fl.StringVar(&f.startedAt, "started-at", "", "task start, RFC 3339 or unix seconds (required)")
	fl.StringVar(&f.configVersion, "config-version", "", "config version (default: version of the loaded tuning)")
	fl.StringVar(&f.actionID, "action-id", "", "action id")
	_ = cmd.MarkFlagRequired("identity")
	_ = cmd.MarkFlagRequired("started-at")
}

func (f *seedFlags) parts(g *globalFlags) (integrity.SeedParts, error) {
	started, err := parseStarted(f.startedAt)
	if err != nil {
		return integrity.SeedParts{}, err
	}
	version := f.configVersion
	if version == "" {
		cfg, err := g.tuning()
		if err != nil {
			return integrity.SeedParts{}, err
		}
		version = cfg.Version
	}
	return integrity.SeedParts{
		Identity:      f.identity,
		SlotID:        f.slotID,
		StartedAt:     started,
		ConfigVersion: version,
		ActionID:      f.actionID,
	}, nil
}

func newSeedCmd(g *globalFlags) *cobra.Command {
	f := &seedFlags{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Derive the outcome and anti-cheat seeds for an action",
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyring, err := g.keyring()
			if err != nil {
				return err
			}
			parts, err := f.parts(g)
			if err != nil {
				return err
			}
			seed, err := keyring.ComputeSeed(parts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "message:          %s\n", integrity.SeedMessage(parts))
			fmt.Fprintf(out, "outcome seed:     %d\n", seed)
			fmt.Fprintf(out, "anti-cheat seed:  %d\n", keyring.AntiCheatSeed(parts.Identity, parts.ActionID, parts.StartedAt))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
