package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"soulforge/internal/domain/integrity"

	"github.com/spf13/cobra"
)

var errInvalidSignature = errors.New("signature does not verify")

type signFlags struct {
	identity  string
	actionID  string
	startedAt string
	outcome   string
	signature string
}

func (f *signFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.identity, "identity", "", "player identity (required)")
	fl.StringVar(&f.actionID, "action-id", "", "action id (required)")
	fl.StringVar(&f.startedAt, "started-at", "", "task start, RFC 3339 or unix seconds (required)")
	fl.StringVar(&f.outcome, "outcome", "-", "signed outcome fields as JSON, or - for stdin")
	_ = cmd.MarkFlagRequired("identity")
	_ = cmd.MarkFlagRequired("action-id")
	_ = cmd.MarkFlagRequired("started-at")
}

func (f *signFlags) load(stdin io.Reader) (time.Time, integrity.SignedOutcome, error) {
	started, err := parseStarted(f.startedAt)
	if err != nil {
		return time.Time{}, integrity.SignedOutcome{}, err
	}
	raw := []byte(f.outcome)
	if f.outcome == "-" {
		if raw, err = io.ReadAll(stdin); err != nil {
			return time.Time{}, integrity.SignedOutcome{}, fmt.Errorf("read outcome: %w", err)
		}
	}
	var out integrity.SignedOutcome
	if err := json.Unmarshal(raw, &out); err != nil {
		return time.Time{}, integrity.SignedOutcome{}, fmt.Errorf("decode outcome: %w", err)
	}
	return started, out, nil
}

func newSignCmd(g *globalFlags) *cobra.Command {
	f := &signFlags{}
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign outcome fields",
		Example: `  outcomectl sign --identity ash --action-id a1 --started-at 1700000000.5 \
    --outcome '{"result":"success","entity_id":"c1","subtype":"salvage","loot":{"scrap":4},"xp_gained":12,"survived":true}'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyring, err := g.keyring()
			if err != nil {
				return err
			}
			started, out, err := f.load(cmd.InOrStdin())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), keyring.Sign(f.identity, f.actionID, started, out))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newVerifyCmd(g *globalFlags) *cobra.Command {
	f := &signFlags{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a signature against outcome fields",
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyring, err := g.keyring()
			if err != nil {
				return err
			}
			started, out, err := f.load(cmd.InOrStdin())
			if err != nil {
				return err
			}
			ok, msg := keyring.Verify(f.identity, f.actionID, started, out, f.signature)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "invalid: %s\n", msg)
				return errInvalidSignature
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.signature, "signature", "", "hex signature (required)")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}
