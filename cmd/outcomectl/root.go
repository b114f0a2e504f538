package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"soulforge/internal/adapter/tuning/yamlfile"
	"soulforge/internal/domain/integrity"
	"soulforge/internal/domain/tuning"

	"github.com/spf13/cobra"
)

const secretEnv = "SOULFORGE_HMAC_SECRET"

type globalFlags struct {
	secret     string
	tuningFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:          "outcomectl",
		Short:        "Inspect and replay soulforge outcome resolution",
		Long:         "outcomectl derives seeds, signs and verifies outcomes, prints the\ngrow cost curve and runs resolution simulations offline.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.secret, "secret", "", "HMAC secret (default $"+secretEnv+")")
	pf.StringVar(&g.tuningFile, "tuning", "", "tuning YAML file (default built-in tuning)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(newSeedCmd(g))
	root.AddCommand(newSignCmd(g))
	root.AddCommand(newVerifyCmd(g))
	root.AddCommand(newCurveCmd(g))
	root.AddCommand(newSimulateCmd(g))
	return root
}

func (g *globalFlags) keyring() (integrity.Keyring, error) {
	secret := g.secret
	if secret == "" {
		secret = os.Getenv(secretEnv)
	}
	if secret == "" {
		return integrity.Keyring{}, errors.New("no secret: pass --secret or set " + secretEnv)
	}
	return integrity.NewKeyring([]byte(secret))
}

func (g *globalFlags) tuning() (tuning.Config, error) {
	return yamlfile.Load(g.tuningFile)
}

func (g *globalFlags) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// parseStarted accepts RFC 3339 or unix seconds with an optional fraction.
func parseStarted(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("started-at %q: want RFC 3339 or unix seconds", raw)
	}
	whole := math.Floor(secs)
	micros := math.Round((secs - whole) * 1e6)
	return time.Unix(int64(whole), int64(micros)*int64(time.Microsecond)).UTC(), nil
}
