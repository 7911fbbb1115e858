// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bodytrack/coachd/internal/api"
	"github.com/bodytrack/coachd/internal/coaching/errors"
	"github.com/bodytrack/coachd/internal/coaching/feedback"
	"github.com/bodytrack/coachd/internal/coaching/history"
	"github.com/bodytrack/coachd/internal/coaching/joints"
	"github.com/bodytrack/coachd/internal/coaching/model"
	"github.com/bodytrack/coachd/internal/coaching/phase"
	"github.com/bodytrack/coachd/internal/coaching/pipeline"
	"github.com/bodytrack/coachd/internal/coaching/pose"
	"github.com/bodytrack/coachd/internal/coaching/session"
	"github.com/bodytrack/coachd/internal/coaching/summary"
	"github.com/bodytrack/coachd/internal/config"
	coachlog "github.com/bodytrack/coachd/internal/log"
	"github.com/bodytrack/coachd/internal/pose/mediapipe"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "config.yaml", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	coachlog.Configure(coachlog.Config{Level: "info", Service: "coachd", Version: version})
	logger := coachlog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fileCfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *configPath).Msg("failed to load configuration")
	}
	coachlog.Configure(coachlog.Config{Level: fileCfg.Log.Level, Service: "coachd", Version: version})

	runtimes, err := buildExerciseRuntimes(fileCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build exercise runtimes")
	}

	extractor := mediapipe.NewExtractor(fileCfg.Frame.ExtractorEndpoint, fileCfg.Frame.Width, fileCfg.Frame.Height)
	orchestrator := pipeline.New(pipelineConfig(fileCfg), extractor, runtimes)

	supported := make(map[model.ExerciseType]bool, len(fileCfg.Session.SupportedExercises))
	for _, name := range fileCfg.Session.SupportedExercises {
		exercise, ok := model.ParseExerciseType(name)
		if !ok {
			logger.Fatal().Str("exercise", name).Msg("session.supported_exercises references an unknown exercise")
		}
		supported[exercise] = true
	}

	sessions := session.NewManager(session.Config{
		SupportedExercises:         supported,
		MaxClients:                 fileCfg.Session.MaximumClients,
		CleanupInterval:            time.Duration(fileCfg.Tasks.CleanupIntervalMinutes) * time.Minute,
		MaxRegistration:            time.Duration(fileCfg.Tasks.MaxRegistrationMinutes) * time.Minute,
		MaxInactive:                time.Duration(fileCfg.Tasks.MaxInactiveMinutes) * time.Minute,
		MaxPause:                   time.Duration(fileCfg.Tasks.MaxPauseMinutes) * time.Minute,
		MaxEndedRetention:          time.Duration(fileCfg.Tasks.MaxEndedRetentionMinutes) * time.Minute,
		RetrieveConfigurationEvery: time.Duration(fileCfg.Tasks.RetrieveConfigurationMinutes) * time.Minute,
		HistoryLimits: history.Limits{
			FramesWindow: fileCfg.History.FramesRollingWindowSize,
			BadFrameLog:  fileCfg.History.BadFrameLogSize,
		},
	}, orchestrator)
	sessions.StartCleanupTask(ctx)
	defer sessions.Stop()

	watcher := config.NewWatcher(*configPath)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("config watcher exited")
		}
	}()

	server := api.New(api.Config{
		RateLimitEnabled:       true,
		RateLimitGlobalRPS:     200,
		RateLimitBurst:         400,
		AdminTerminatePassword: fileCfg.Admin.TerminatePassword,
		Summary: summary.Config{
			NumberOfTopErrors: fileCfg.Summary.NumberOfTopErrors,
			PenaltyPerError:   fileCfg.Summary.PenaltyPerError,
			MaxGrade:          fileCfg.Summary.MaxGrade,
		},
	}, sessions, watcher)

	httpServer := &http.Server{
		Addr:              fileCfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	server.SetShutdownFunc(func(context.Context) error {
		stop()
		return nil
	})

	go func() {
		logger.Info().Str("addr", fileCfg.Listen).Msg("coachd listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func pipelineConfig(cfg *config.FileConfig) pipeline.Config {
	return pipeline.Config{
		Quality: pose.QualityConfig{
			StabilityThreshold:      cfg.Pose.StabilityThreshold,
			BboxTooFar:              cfg.Pose.BboxTooFar,
			MinimumBboxArea:         cfg.Pose.MinimumBboxArea,
			VisibilityGoodThreshold: cfg.Pose.VisibilityGoodThreshold,
			RequiredVisibilityRatio: cfg.Pose.RequiredVisibilityRatio,
		},
		Side: pose.SideConfig{
			LandmarkVisibilityThreshold: cfg.PositionSide.LandmarkVisibilityThreshold,
			DominanceRatioThreshold:     cfg.PositionSide.DominanceRatioThreshold,
			FrontSymmetryThreshold:      cfg.PositionSide.FrontSymmetryThreshold,
			MinRequiredLandmarkRatio:    cfg.PositionSide.MinRequiredLandmarkRatio,
		},
		Joints: joints.AnalyzerConfig{
			VisibilityThreshold: cfg.Joints.VisibilityThreshold,
			MinValidJointRatio:  cfg.Joints.MinValidJointRatio,
		},
		Feedback: feedback.Config{
			PoseQualityFeedbackThreshold: cfg.Feedback.PoseQualityFeedbackThreshold,
			BioFeedbackThreshold:         cfg.Feedback.BioFeedbackThreshold,
			CooldownFrames:               cfg.Feedback.CooldownFrames,
		},
		NumMinInitOKFrames:               cfg.Session.NumOfMinInitOKFrames,
		NumMinInitCorrectPhaseFrames:     cfg.Session.NumOfMinInitCorrectPhaseFrames,
		MaxConsecutiveInvalidBeforeAbort: cfg.History.MaxConsecutiveInvalidBeforeAbort,
		PhaseLowMotionThreshold:          cfg.Phase.PhaseLowMotionThreshold,
		LowMotionAngleDegreesThreshold:   cfg.History.LowMotionAngleDegreesThreshold,
	}
}

// buildExerciseRuntimes loads every supported exercise's phase and
// error detector configuration once at startup, so a malformed rule
// file aborts the process instead of surfacing mid-session (spec.md
// §7's "internal configuration" error kind).
func buildExerciseRuntimes(cfg *config.FileConfig) (map[model.ExerciseType]pipeline.ExerciseRuntime, error) {
	runtimes := make(map[model.ExerciseType]pipeline.ExerciseRuntime, len(cfg.Session.SupportedExercises))
	for _, name := range cfg.Session.SupportedExercises {
		exercise, ok := model.ParseExerciseType(name)
		if !ok {
			return nil, fmt.Errorf("unknown exercise %q in session.supported_exercises", name)
		}
		schema, ok := joints.SchemaFor(exercise)
		if !ok {
			return nil, fmt.Errorf("no joint schema registered for exercise %q", exercise)
		}
		phaseCfg, err := config.LoadPhaseConfig(cfg.Phase.PhaseDetectorConfigDir, exercise)
		if err != nil {
			return nil, err
		}
		errorCfg, err := config.LoadErrorConfig(cfg.Error.ErrorDetectorConfigDir, exercise)
		if err != nil {
			return nil, err
		}
		runtimes[exercise] = pipeline.ExerciseRuntime{
			Exercise:      exercise,
			Schema:        schema,
			PhaseDetector: phase.NewDetector(phaseCfg, nil),
			ErrorDetector: errors.NewDetector(errorCfg),
		}
	}
	return runtimes, nil
}
