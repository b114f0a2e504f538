package outcome

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"soulforge/internal/domain/integrity"
	"soulforge/internal/domain/tuning"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	k, err := integrity.NewKeyring([]byte("engine-test-secret"))
	if err != nil {
		t.Fatalf("NewKeyring: %v", err)
	}
	e := NewEngine(k)
	e.Entropy = func() float64 { return 0.5 }
	return e
}

func testConfig() *tuning.Config {
	cfg := tuning.Default()
	cfg.Normalize()
	return &cfg
}

func seedFor(actionID string) integrity.SeedParts {
	return integrity.SeedParts{
		Identity:      "player@example.com",
		SlotID:        "slot-1",
		StartedAt:     testStart,
		ConfigVersion: "test-v1",
		ActionID:      actionID,
	}
}

func veteran() *Entity {
	return &Entity{
		ID:           "clone-1",
		Kind:         "basic",
		XP:           map[string]float64{"salvage": 100},
		CreatedAt:    testStart.Add(-24 * time.Hour),
		AssignedSlot: "slot-1",
	}
}

func findRoll(t *testing.T, out Outcome, name string) float64 {
	t.Helper()
	for _, r := range out.Rolls {
		if r.Name == name {
			return r.Value
		}
	}
	t.Fatalf("roll %q not recorded: %+v", name, out.Rolls)
	return 0
}

func TestExpedition_ExperienceScenario(t *testing.T) {
	e := newTestEngine(t)
	cfg := testConfig()

	ctx := Context{Action: ActionExpedition, Entity: veteran(), Level: 1, ExpeditionKind: "salvage", Config: cfg, Seed: seedFor("x")}
	pre, err := DeathChanceBeforeClamp(ctx)
	if err != nil {
		t.Fatalf("DeathChanceBeforeClamp: %v", err)
	}
	if math.Abs(pre-0.10) > 1e-12 {
		t.Fatalf("expected 0.12 - min(0.10, 0.02) = 0.10, got %v", pre)
	}

	deaths, survivals := 0, 0
	for i := 0; i < 200; i++ {
		ctx.Seed = seedFor(fmt.Sprintf("exp-%d", i))
		out, err := e.Resolve(ctx)
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if math.Abs(out.Stats.DeathChance-0.10) > 1e-12 {
			t.Fatalf("expected death_chance 0.10, got %v", out.Stats.DeathChance)
		}
		roll := findRoll(t, out, "survival")
		if (roll < out.Stats.DeathChance) != (out.Result == ResultDeath) {
			t.Fatalf("roll %v vs death %v gave %s", roll, out.Stats.DeathChance, out.Result)
		}
		switch out.Result {
		case ResultDeath:
			deaths++
			if out.EntityDelta == nil || !out.EntityDelta.Dead || !out.EntityDelta.ClearAssignment {
				t.Fatalf("death must mark entity dead and clear assignment: %+v", out.EntityDelta)
			}
			if got := out.EntityDelta.XPAfter["salvage"]; math.Abs(got-50) > 1e-9 {
				t.Fatalf("expected half the XP to remain with entropy 0.5, got %v", got)
			}
			if len(out.Loot) != 0 || len(out.XPGained) != 0 {
				t.Fatalf("death must not award loot or xp: %+v", out)
			}
		case ResultSuccess:
			survivals++
			if out.XPGained["salvage"] != 10 {
				t.Fatalf("expected 10 xp, got %v", out.XPGained)
			}
			if out.Loot["scrap"] < 3 || out.Loot["scrap"] > 8 {
				t.Fatalf("scrap outside configured range: %v", out.Loot)
			}
		}
	}
	if deaths == 0 || survivals == 0 {
		t.Fatalf("expected both outcomes over 200 seeds, got %d deaths %d survivals", deaths, survivals)
	}
}

func TestExpedition_AgePenaltyAndBounds(t *testing.T) {
	cfg := testConfig()
	old := veteran()
	old.XP = nil
	old.CreatedAt = testStart.Add(-30 * 24 * time.Hour)
	ctx := Context{Action: ActionExpedition, Entity: old, ExpeditionKind: "salvage", Config: cfg, Seed: seedFor("age")}
	got, err := DeathChanceBeforeClamp(ctx)
	if err != nil {
		t.Fatalf("DeathChanceBeforeClamp: %v", err)
	}
	if want := 0.12 + 0.08; math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected age penalty to give %v, got %v", want, got)
	}

	cfg.Expedition.BaseDeathProb = 0.95
	out, err := newTestEngine(t).Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Stats.DeathChance != cfg.Expedition.DeathCeiling {
		t.Fatalf("expected death ceiling %v, got %v", cfg.Expedition.DeathCeiling, out.Stats.DeathChance)
	}
}

func TestExpedition_Deterministic(t *testing.T) {
	e := newTestEngine(t)
	ctx := Context{
		Action:         ActionExpedition,
		Entity:         veteran(),
		Level:          4,
		Attention:      60,
		ExpeditionKind: "deep_dive",
		Config:         testConfig(),
		Seed:           seedFor("repeat"),
		Debug:          true,
	}
	first, err := e.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := e.Resolve(ctx)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("outcome changed between runs (-first +again):\n%s", diff)
		}
	}
	if first.Explanation == nil || len(first.Explanation.Channels) == 0 {
		t.Fatalf("debug resolution must carry an explanation")
	}
}

func TestGather_SingleUnitResource(t *testing.T) {
	e := newTestEngine(t)
	cfg := testConfig()
	for i := 0; i < 100; i++ {
		out, err := e.Resolve(Context{
			Action:         ActionGather,
			GatherResource: cfg.Gather.SingleUnitResource,
			Practice:       map[string]int{"gather": 20},
			Config:         cfg,
			Seed:           seedFor(fmt.Sprintf("g-%d", i)),
		})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if out.Result != ResultSuccess {
			t.Fatalf("gather must always succeed, got %s", out.Result)
		}
		if out.Loot[cfg.Gather.SingleUnitResource] != 1 {
			t.Fatalf("expected exactly one unit, got %v", out.Loot)
		}
		if out.TimeSeconds == nil || *out.TimeSeconds < 1 || *out.TimeSeconds > 300 {
			t.Fatalf("gather time outside [1,300]: %v", out.TimeSeconds)
		}
	}
}

func TestGather_AmountWithinScaledRange(t *testing.T) {
	e := newTestEngine(t)
	cfg := testConfig()
	for i := 0; i < 50; i++ {
		out, err := e.ResolveGather(Context{GatherResource: "biomass", Config: cfg, Seed: seedFor(fmt.Sprintf("b-%d", i))})
		if err != nil {
			t.Fatalf("ResolveGather: %v", err)
		}
		n := out.Loot["biomass"]
		if n < 2 || n > 6 {
			t.Fatalf("biomass outside configured range: %d", n)
		}
		if got := findRoll(t, out, "amount"); int(got) != n {
			t.Fatalf("neutral reward_mult must keep the drawn amount: roll %v, loot %d", got, n)
		}
	}
}

func TestGrow_InsufficientSoulFails(t *testing.T) {
	e := newTestEngine(t)
	out, err := e.Resolve(Context{Action: ActionGrow, Level: 1, CloneKind: "basic", SoulPercent: 0, Config: testConfig(), Seed: seedFor("grow-poor")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Result != ResultFailure {
		t.Fatalf("expected failure, got %s", out.Result)
	}
	if out.TimeSeconds != nil || out.SpawnKind != "" {
		t.Fatalf("failed grow must not compute time or spawn: %+v", out)
	}
	if out.SoulSplit == nil || out.CostMultiplier == nil || len(out.Cost) == 0 {
		t.Fatalf("failed grow must still report cost and split: %+v", out)
	}
	if len(out.Rolls) != 1 || out.Rolls[0].Name != "soul_split" {
		t.Fatalf("failed grow must only draw the split: %+v", out.Rolls)
	}
}

func TestGrow_Success(t *testing.T) {
	e := newTestEngine(t)
	cfg := testConfig()
	out, err := e.Resolve(Context{Action: ActionGrow, Level: 1, CloneKind: "basic", SoulPercent: 100, Config: cfg, Seed: seedFor("grow-rich")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Result != ResultSuccess || out.SpawnKind != "basic" {
		t.Fatalf("expected success spawning basic, got %s %q", out.Result, out.SpawnKind)
	}
	if math.Abs(*out.CostMultiplier-1.02) > 1e-12 {
		t.Fatalf("expected level 1 cost multiplier 1.02, got %v", *out.CostMultiplier)
	}
	if diff := cmp.Diff(map[string]int{"biomass": 10, "minerals": 4}, out.Cost); diff != "" {
		t.Fatalf("unexpected cost (-want +got):\n%s", diff)
	}
	if split := *out.SoulSplit; split < 4 || split > 6 {
		t.Fatalf("soul split outside base±variance: %v", split)
	}
	if secs := *out.TimeSeconds; secs < 60 || secs > 180 {
		t.Fatalf("grow time outside configured range: %v", secs)
	}
}

func TestUpload_Formulas(t *testing.T) {
	e := newTestEngine(t)
	clone := &Entity{
		ID:        "clone-9",
		XP:        map[string]float64{"salvage": 150, "hunt": 50},
		CreatedAt: testStart.Add(-10 * 24 * time.Hour),
	}
	out, err := e.Resolve(Context{Action: ActionUpload, Entity: clone, Config: testConfig(), Seed: seedFor("up")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	retain := findRoll(t, out, "retain")
	if retain < 0.6 || retain >= 0.9 {
		t.Fatalf("retain outside [0.6, 0.9): %v", retain)
	}
	if math.Abs(*out.SoulXP-200*retain) > 1e-9 {
		t.Fatalf("expected soul xp %v, got %v", 200*retain, *out.SoulXP)
	}
	if math.Abs(*out.SoulRestore-3.0) > 1e-9 {
		t.Fatalf("expected restore 2 + age bonus 1, got %v", *out.SoulRestore)
	}
	if len(out.Mods) != 0 {
		t.Fatalf("upload must apply no mods: %+v", out.Mods)
	}
	if !out.EntityDelta.Uploaded {
		t.Fatalf("expected uploaded delta")
	}
}

func TestFeral_ForcedAttack(t *testing.T) {
	e := newTestEngine(t)
	cfg := testConfig()
	cfg.Feral.AttackChance[tuning.BandRed] = 1

	calm := testConfig()
	calm.Feral.AttackChance[tuning.BandRed] = 0

	base := Context{Action: ActionExpedition, Entity: veteran(), Level: 1, Attention: 90, ExpeditionKind: "salvage", Seed: seedFor("feral")}

	quiet := base
	quiet.Config = calm
	before, err := e.Resolve(quiet)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if before.Feral != nil {
		t.Fatalf("zero chance must not attack: %+v", before.Feral)
	}

	attacked := base
	attacked.Config = cfg
	after, err := e.Resolve(attacked)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if after.Feral == nil || after.Feral.Band != tuning.BandRed || len(after.Feral.Effects) != 1 {
		t.Fatalf("expected red feral attack with one effect, got %+v", after.Feral)
	}
	if got, want := after.Stats.DeathChance, before.Stats.DeathChance+0.15; math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected feral to add 0.15 death, got %v want %v", got, want)
	}
	if findRoll(t, after, "survival") != findRoll(t, before, "survival") {
		t.Fatalf("feral must not shift the survival draw")
	}

	upload := Context{Action: ActionUpload, Entity: veteran(), Attention: 90, Config: cfg, Seed: seedFor("feral-up")}
	up, err := e.Resolve(upload)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if up.Feral == nil || up.Feral.Warning == "" || len(up.Feral.Effects) != 0 {
		t.Fatalf("upload feral must be a warning only: %+v", up.Feral)
	}

	gather := Context{Action: ActionGather, GatherResource: "scrap", Attention: 90, Config: cfg, Seed: seedFor("feral-g")}
	g, err := e.Resolve(gather)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := 1.25 * 1.5; math.Abs(g.Stats.TimeMult-want) > 1e-9 {
		t.Fatalf("expected ambient and feral time penalties %v, got %v", want, g.Stats.TimeMult)
	}
	if last := g.Rolls[len(g.Rolls)-1]; last.Name != "feral" {
		t.Fatalf("feral must follow the gather draws: %+v", g.Rolls)
	}

	grow := Context{Action: ActionGrow, Level: 1, CloneKind: "basic", SoulPercent: 100, Attention: 90, Config: cfg, Seed: seedFor("feral-grow")}
	gr, err := e.Resolve(grow)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if gr.Feral == nil || len(gr.Feral.Effects) != 1 || gr.Feral.Effects[0].Target != ChannelCostMult {
		t.Fatalf("expected grow feral cost penalty, got %+v", gr.Feral)
	}
	wantMult := CostMultiplier(1, cfg.Grow.CostCurve) * 1.1 * 1.3
	if gr.CostMultiplier == nil || math.Abs(*gr.CostMultiplier-wantMult) > 1e-9 {
		t.Fatalf("expected curve, ambient and feral cost multiplier %v, got %v", wantMult, gr.CostMultiplier)
	}
	if diff := cmp.Diff(ScaleCost(cfg.Grow.Kinds["basic"].Cost, wantMult), gr.Cost); diff != "" {
		t.Fatalf("unexpected cost (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"biomass": 15, "minerals": 6}, gr.Cost); diff != "" {
		t.Fatalf("unexpected rounded cost (-want +got):\n%s", diff)
	}
	names := make([]string, 0, len(gr.Rolls))
	for _, r := range gr.Rolls {
		names = append(names, r.Name)
	}
	if diff := cmp.Diff([]string{"soul_split", "success", "seconds", "feral"}, names); diff != "" {
		t.Fatalf("unexpected grow draw order (-want +got):\n%s", diff)
	}
}

func TestResolve_NonExpeditionKeepsDeathMods(t *testing.T) {
	e := newTestEngine(t)
	cfg := testConfig()
	cfg.Attention.Ambient[tuning.BandRed]["gather"] = append(cfg.Attention.Ambient[tuning.BandRed]["gather"],
		tuning.ModSpec{Target: "death_chance", Op: "add", Value: 0.2})

	out, err := e.Resolve(Context{Action: ActionGather, GatherResource: "scrap", Attention: 90, Config: cfg, Seed: seedFor("gather-death")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if math.Abs(out.Stats.DeathChance-0.2) > 1e-12 {
		t.Fatalf("expected configured death mod to survive, got %v", out.Stats.DeathChance)
	}
	if term, ok := out.Terms[ChannelDeathChance]; !ok || math.Abs(term.Final-0.2) > 1e-12 {
		t.Fatalf("expected death term with final 0.2, got %+v", out.Terms[ChannelDeathChance])
	}
	if out.Result != ResultSuccess {
		t.Fatalf("gather must still succeed, got %s", out.Result)
	}
}

func TestResolve_MissingSecretIsNotValidation(t *testing.T) {
	e := &Engine{}
	_, err := e.Resolve(Context{Action: ActionGather, GatherResource: "scrap", Config: testConfig(), Seed: seedFor("no-secret")})
	if !errors.Is(err, integrity.ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("missing secret must not read as a validation error: %v", err)
	}
}

func TestResolve_ValidationBeforeDraws(t *testing.T) {
	e := newTestEngine(t)
	cfg := testConfig()
	cases := []struct {
		name  string
		ctx   Context
		field string
	}{
		{"expedition without entity", Context{Action: ActionExpedition, ExpeditionKind: "salvage", Config: cfg, Seed: seedFor("v")}, "entity"},
		{"expedition without kind", Context{Action: ActionExpedition, Entity: veteran(), Config: cfg, Seed: seedFor("v")}, "expedition_kind"},
		{"gather without resource", Context{Action: ActionGather, Config: cfg, Seed: seedFor("v")}, "gather_resource"},
		{"grow without kind", Context{Action: ActionGrow, Level: 1, Config: cfg, Seed: seedFor("v")}, "clone_kind"},
		{"grow without level", Context{Action: ActionGrow, CloneKind: "basic", Config: cfg, Seed: seedFor("v")}, "level"},
		{"grow level above max", Context{Action: ActionGrow, Level: 2_000_000_000, CloneKind: "basic", SoulPercent: 100, Config: cfg, Seed: seedFor("v")}, "level"},
		{"upload without entity", Context{Action: ActionUpload, Config: cfg, Seed: seedFor("v")}, "entity"},
		{"missing config", Context{Action: ActionGather, GatherResource: "scrap", Seed: seedFor("v")}, "config"},
		{"missing config version", Context{Action: ActionGather, GatherResource: "scrap", Config: cfg, Seed: integrity.SeedParts{Identity: "p"}}, "config_version"},
		{"missing identity", Context{Action: ActionGather, GatherResource: "scrap", Config: cfg, Seed: integrity.SeedParts{ConfigVersion: "v"}}, "seed"},
		{"unknown action", Context{Action: "dance", Config: cfg, Seed: seedFor("v")}, "action"},
	}
	for _, tc := range cases {
		_, err := e.Resolve(tc.ctx)
		var verr *ValidationError
		if !errors.As(err, &verr) || !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
		if verr.Field != tc.field {
			t.Fatalf("%s: expected field %q, got %q", tc.name, tc.field, verr.Field)
		}
	}

	_, err := e.Resolve(Context{Action: ActionGather, GatherResource: "unobtainium", Config: cfg, Seed: seedFor("v")})
	var lerr *ConfigLookupError
	if !errors.As(err, &lerr) || !errors.Is(err, ErrConfigLookup) || lerr.Key != "unobtainium" {
		t.Fatalf("expected config lookup error, got %v", err)
	}
}

func TestOutcome_SignedRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	ctx := Context{Action: ActionExpedition, Entity: veteran(), Level: 1, ExpeditionKind: "salvage", Config: testConfig(), Seed: seedFor("sig")}
	out, err := e.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	sig := e.Keyring.Sign(ctx.Seed.Identity, ctx.Seed.ActionID, ctx.Seed.StartedAt, out.Signed())
	if ok, msg := e.Keyring.Verify(ctx.Seed.Identity, ctx.Seed.ActionID, ctx.Seed.StartedAt, out.Signed(), sig); !ok {
		t.Fatalf("verify: %s", msg)
	}
	if out.Signed().Survived != (out.Result != ResultDeath) {
		t.Fatalf("survived flag mismatch")
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(testConfig()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	cfg := testConfig()
	cfg.Feral.Penalties["gather"][tuning.BandRed] = tuning.ModSpec{Target: "luck", Op: "mult", Value: 2}
	if err := ValidateConfig(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}
