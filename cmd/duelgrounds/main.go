// Package main provides the Duelgrounds terminal client: a thin
// presentation layer that drives the battle engine and replays its event
// stream as text. All pacing and prompting lives here; the engine only
// resolves.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"duelgrounds/internal/config"
	"duelgrounds/internal/game/battle"
	"duelgrounds/internal/game/rng"
	"duelgrounds/internal/game/roster"
	"duelgrounds/internal/observability"
	"duelgrounds/internal/progress"
	"duelgrounds/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	useMemory := flag.Bool("memory", false, "play without a database; progress is lost on exit")
	seed := flag.Int64("seed", 0, "seed for a reproducible run (0 = secure random)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	var store progress.Store
	if *useMemory {
		store = progress.NewMemoryStore()
		logger.Info("using in-memory progress store")
	} else {
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		store = postgres.NewProgressStore(pool.DB())
	}

	var src rng.Source
	if *seed != 0 {
		src = rng.NewSeededSource(*seed)
		logger.Info("using seeded rng", zap.Int64("seed", *seed))
	} else {
		src = rng.NewCryptoSource()
	}
	src = rng.NewLoggedSource(src, logger)

	var ros *roster.Roster
	if cfg.Game.RosterPath != "" {
		ros, err = roster.LoadFromFile(cfg.Game.RosterPath)
		if err != nil {
			logger.Warn("loading roster; falling back to configured enemy name", zap.Error(err))
			ros = nil
		}
	}

	in := bufio.NewScanner(os.Stdin)
	for {
		if quit := playMatch(ctx, cfg, ros, src, store, logger, in); quit {
			return
		}
	}
}

// playMatch runs a single match to its terminal state and the post-match
// menu. Returns true when the player wants to stop playing.
func playMatch(ctx context.Context, cfg config.Config, ros *roster.Roster, src rng.Source, store progress.Store, logger *zap.Logger, in *bufio.Scanner) bool {
	enemyName := pickEnemyName(ctx, ros, src, store, logger)

	m := battle.NewMatch(cfg.Game, enemyName, src, store, logger)
	events, err := m.Start(ctx)
	if err != nil {
		if !errors.Is(err, progress.ErrStore) {
			logger.Error("starting match", zap.Error(err))
			return true
		}
		fmt.Println("(warning: progress could not be saved)")
	}
	renderEvents(events)
	printStatus(m)

	for !m.Phase().Terminal() {
		fmt.Print("[a]ttack  [h]eal  [d]efend  [q]uit > ")
		if !in.Scan() {
			return true
		}
		choice := strings.TrimSpace(strings.ToLower(in.Text()))

		var evs []battle.Event
		var actionErr error
		switch choice {
		case "a", "attack":
			evs, actionErr = m.ChooseAttack(ctx)
		case "h", "heal":
			evs, actionErr = m.ChooseHeal(ctx)
			if len(evs) == 0 && actionErr == nil && m.Player().CurrentHP >= m.Player().MaxHP {
				fmt.Printf("%s is already at full health. Choose again.\n", m.Player().Name)
				continue
			}
		case "d", "defend":
			evs, actionErr = m.ChooseDefend(ctx)
		case "q", "quit":
			return true
		default:
			fmt.Printf("unrecognized choice %q\n", choice)
			continue
		}

		if actionErr != nil {
			if errors.Is(actionErr, battle.ErrMatchEnded) {
				break
			}
			if errors.Is(actionErr, progress.ErrStore) {
				fmt.Println("(warning: progress could not be saved)")
			} else {
				logger.Error("resolving action", zap.Error(actionErr))
			}
		}
		renderEvents(evs)
		printStatus(m)
	}

	if best, err := store.BestLevel(ctx); err == nil {
		fmt.Printf("Best level so far: %d\n", best)
	}

	return postMatchMenu(ctx, m, store, in)
}

// pickEnemyName picks a roster name by the persisted player level, so the
// opponent's flavor tracks run progress. Falls back to the configured
// enemy name when the roster is absent or has no covering band.
func pickEnemyName(ctx context.Context, ros *roster.Roster, src rng.Source, store progress.Store, logger *zap.Logger) string {
	if ros == nil {
		return ""
	}
	level, err := store.PlayerLevel(ctx)
	if err != nil {
		return ""
	}
	name, err := ros.PickFor(level, src)
	if err != nil {
		logger.Debug("roster pick failed", zap.Int("level", level), zap.Error(err))
		return ""
	}
	return name
}

func postMatchMenu(ctx context.Context, m *battle.Match, store progress.Store, in *bufio.Scanner) bool {
	for {
		if m.Result() == battle.ResultLost {
			fmt.Print("[r]ematch  [x] reset progress and quit  [q]uit > ")
		} else {
			fmt.Print("[r]ematch  [q]uit > ")
		}
		if !in.Scan() {
			return true
		}
		switch strings.TrimSpace(strings.ToLower(in.Text())) {
		case "r", "rematch":
			return false
		case "x", "reset":
			if m.Result() != battle.ResultLost {
				fmt.Println("reset is only offered after a loss")
				continue
			}
			if err := store.Reset(ctx); err != nil {
				fmt.Println("(warning: progress could not be reset)")
			} else {
				fmt.Println("Progress reset. The pit awaits your return.")
			}
			return true
		case "q", "quit":
			return true
		default:
			fmt.Println("unrecognized choice")
		}
	}
}

func renderEvents(events []battle.Event) {
	for _, ev := range events {
		if ev.Type == battle.EventTurnChanged {
			continue
		}
		fmt.Println(ev.Narrative)
	}
}

func printStatus(m *battle.Match) {
	p, e := m.Player(), m.Enemy()
	if p == nil || e == nil {
		return
	}
	fmt.Printf("%s (lv %d): %d/%d HP   %s (lv %d): %d/%d HP\n",
		p.Name, p.Level, p.CurrentHP, p.MaxHP,
		e.Name, e.Level, e.CurrentHP, e.MaxHP,
	)
}
