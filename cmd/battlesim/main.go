package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/opcg/rules-engine-go/internal/config"
	"github.com/opcg/rules-engine-go/internal/game/battle"
	"github.com/opcg/rules-engine-go/internal/game/decision"
	"github.com/opcg/rules-engine-go/internal/game/engine"
	"github.com/opcg/rules-engine-go/internal/game/rules"
	"github.com/opcg/rules-engine-go/internal/game/scenario"
	"github.com/opcg/rules-engine-go/internal/game/script"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath   = flag.String("config", "configs/config.yaml", "path to configuration file")
	scenarioPath = flag.String("scenario", "", "scenario file (overrides scenario.path)")
	recordPath   = flag.String("record", "", "write the decisions taken to this YAML file")
	version      = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *scenarioPath != "" {
		cfg.Scenario.Path = *scenarioPath
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting battle simulator",
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.String("scenario", cfg.Scenario.Path),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *recordPath, logger); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		os.Exit(1)
	}
}

// run plays every attack of the configured scenario in order.
func run(ctx context.Context, cfg *config.Config, recordPath string, logger *zap.Logger) error {
	if cfg.Scenario.Path == "" {
		return errors.New("no scenario given")
	}
	sc, err := scenario.Load(cfg.Scenario.Path)
	if err != nil {
		return err
	}
	st, err := sc.Build(cfg.Engine.ResourceBonus)
	if err != nil {
		return fmt.Errorf("build scenario: %w", err)
	}

	recorder := decision.NewRecorder(sc.Provider())
	eng := engine.New(engine.Options{
		Logger:        logger.Named("engine"),
		Decisions:     recorder,
		MaxChainDepth: cfg.Engine.MaxChainDepth,
	})
	handle := eng.Bus().Subscribe(func(evt rules.Event) {
		logger.Debug("event",
			zap.String("type", string(evt.Type)),
			zap.String("player", evt.PlayerID),
			zap.String("card", evt.CardID),
			zap.String("target", evt.TargetID),
			zap.String("reason", string(evt.Reason)),
			zap.Int("amount", evt.Amount),
		)
	})
	defer eng.Bus().Unsubscribe(handle)

	if cfg.Scripts.Dir != "" {
		scripts, err := script.LoadDir(cfg.Scripts.Dir)
		if err != nil {
			return fmt.Errorf("load scripts: %w", err)
		}
		if err := script.RegisterAll(eng, scripts); err != nil {
			return err
		}
		logger.Info("scripts loaded", zap.Int("count", len(scripts)), zap.String("dir", cfg.Scripts.Dir))
	}

	machine := battle.NewMachine(logger.Named("battle"), eng)
	for i, atk := range sc.Attacks {
		if st.GameOver() {
			logger.Info("game over, skipping remaining attacks", zap.Int("remaining", len(sc.Attacks)-i))
			break
		}
		next, out, err := machine.ExecuteAttack(ctx, st, atk.Attacker, atk.Target)
		if err != nil {
			return fmt.Errorf("attack %d (%s -> %s): %w", i, atk.Attacker, atk.Target, err)
		}
		st = next
		logOutcome(logger, out)
	}
	summarize(logger, st)

	if recordPath != "" {
		if err := writeRecording(recordPath, recorder.Recording()); err != nil {
			return err
		}
		logger.Info("decisions recorded", zap.String("path", recordPath))
	}
	return nil
}

func logOutcome(logger *zap.Logger, out battle.Outcome) {
	logger.Info("attack resolved",
		zap.String("attacker", out.AttackerID),
		zap.String("target", out.TargetID),
		zap.String("blocker", out.BlockerID),
		zap.Int("attacker_power", out.AttackerPower),
		zap.Int("defender_power", out.DefenderPower),
		zap.Int("damage", out.DamageDealt),
		zap.Bool("knocked_out", out.DefenderKnockedOut),
		zap.Bool("defender_lost", out.DefenderLost),
		zap.Strings("counters", out.CountersPlayed),
	)
}

func summarize(logger *zap.Logger, st *state.State) {
	for _, p := range st.Players() {
		logger.Info("final board",
			zap.String("player", p),
			zap.Int("life", st.Life(p)),
			zap.Int("hand", st.ZoneSize(p, state.ZoneHand)),
			zap.Int("field", st.ZoneSize(p, state.ZoneField)),
			zap.Int("trash", st.ZoneSize(p, state.ZoneTrash)),
		)
	}
	if st.GameOver() {
		logger.Info("game over", zap.String("loser", st.Loser()))
	}
}

func writeRecording(path string, rec decision.Recording) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	if err := rec.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
