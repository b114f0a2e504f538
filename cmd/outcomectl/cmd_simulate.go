package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"soulforge/internal/domain/integrity"
	"soulforge/internal/domain/outcome"
	"soulforge/internal/domain/tuning"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type simulateFlags struct {
	action      string
	count       int
	workers     int
	identity    string
	kind        string
	entityKind  string
	entityXP    float64
	level       int
	attention   float64
	soulPercent float64
	activeSlots int
}

// simulation tallies outcomes across runs.
type simulation struct {
	mu      sync.Mutex
	runs    int
	results map[outcome.Result]int
	ferals  int
	loot    map[string]int
	xp      float64
}

func newSimulation() *simulation {
	return &simulation{results: map[outcome.Result]int{}, loot: map[string]int{}}
}

func (s *simulation) add(out outcome.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.results[out.Result]++
	if out.Feral != nil {
		s.ferals++
	}
	for k, n := range out.Loot {
		s.loot[k] += n
	}
	s.xp += out.TotalXPGained()
}

func (f *simulateFlags) context(cfg *tuning.Config, i int, started time.Time) outcome.Context {
	ctx := outcome.Context{
		Action:      outcome.ActionKind(f.action),
		Level:       f.level,
		Attention:   f.attention,
		SoulPercent: f.soulPercent,
		ActiveSlots: f.activeSlots,
		Config:      cfg,
		Seed: integrity.SeedParts{
			Identity:      f.identity,
			SlotID:        "sim",
			StartedAt:     started,
			ConfigVersion: cfg.Version,
			ActionID:      fmt.Sprintf("sim-%06d", i),
		},
	}
	switch ctx.Action {
	case outcome.ActionExpedition:
		ctx.ExpeditionKind = f.kind
	case outcome.ActionGather:
		ctx.GatherResource = f.kind
	case outcome.ActionGrow:
		ctx.CloneKind = f.kind
	}
	if ctx.Action == outcome.ActionExpedition || ctx.Action == outcome.ActionUpload {
		ctx.Entity = &outcome.Entity{
			ID:        fmt.Sprintf("sim-entity-%06d", i),
			Kind:      f.entityKind,
			XP:        map[string]float64{"self": f.entityXP},
			CreatedAt: started.Add(-72 * time.Hour),
		}
	}
	return ctx
}

func newSimulateCmd(g *globalFlags) *cobra.Command {
	f := &simulateFlags{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Resolve an action many times and print the outcome distribution",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.count < 1 || f.workers < 1 {
				return errors.New("count and workers must be positive")
			}
			keyring, err := g.keyring()
			if err != nil {
				return err
			}
			cfg, err := g.tuning()
			if err != nil {
				return err
			}
			log := g.logger(cmd)
			engine := outcome.NewEngine(keyring)
			started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

			log.Info("simulation starting", "action", f.action, "kind", f.kind, "runs", f.count, "workers", f.workers, "config_version", cfg.Version)
			sim, err := runSimulation(cmd.Context(), engine, f, &cfg, started)
			if err != nil {
				return err
			}
			log.Info("simulation finished", "runs", sim.runs)
			return sim.print(cmd)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.action, "action", "expedition", "expedition, gather, grow or upload")
	fl.IntVar(&f.count, "count", 1000, "number of resolutions")
	fl.IntVar(&f.workers, "workers", 8, "concurrent resolvers")
	fl.StringVar(&f.identity, "identity", "simulator", "identity used in every seed")
	fl.StringVar(&f.kind, "kind", "salvage", "expedition kind, gather resource or clone kind")
	fl.StringVar(&f.entityKind, "entity-kind", "basic", "clone kind of the simulated entity")
	fl.Float64Var(&f.entityXP, "xp", 0, "entity xp")
	fl.IntVar(&f.level, "level", 1, "player level")
	fl.Float64Var(&f.attention, "attention", 0, "attention value")
	fl.Float64Var(&f.soulPercent, "soul", 100, "available soul percent")
	fl.IntVar(&f.activeSlots, "active-slots", 1, "active slots")
	return cmd
}

func runSimulation(ctx context.Context, engine *outcome.Engine, f *simulateFlags, cfg *tuning.Config, started time.Time) (*simulation, error) {
	sim := newSimulation()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i := 0; i < f.count; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out, err := engine.Resolve(f.context(cfg, i, started))
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			sim.add(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sim, nil
}

func (s *simulation) print(cmd *cobra.Command) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "runs\t%d\n", s.runs)
	results := make([]string, 0, len(s.results))
	for r := range s.results {
		results = append(results, string(r))
	}
	sort.Strings(results)
	for _, r := range results {
		n := s.results[outcome.Result(r)]
		fmt.Fprintf(tw, "%s\t%d\t%.2f%%\n", r, n, 100*float64(n)/float64(s.runs))
	}
	fmt.Fprintf(tw, "feral attacks\t%d\n", s.ferals)
	fmt.Fprintf(tw, "mean xp\t%.3f\n", s.xp/float64(s.runs))
	keys := make([]string, 0, len(s.loot))
	for k := range s.loot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(tw, "mean %s\t%.3f\n", k, float64(s.loot[k])/float64(s.runs))
	}
	return tw.Flush()
}
