// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the coaching server's YAML configuration into
// a typed struct tree, one sub-struct per spec.md §6 configuration
// section.
//
// Grounded on the nested-struct-with-yaml-tags pattern of the
// teacher's internal/config/config.go, adapted from the
// OpenWebIF/Enigma2/EPG domain to the coaching domain's own sections.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the full on-disk configuration shape.
type FileConfig struct {
	Listen string `yaml:"listen"`

	Frame        FrameConfig        `yaml:"frame"`
	Session      SessionConfig      `yaml:"session"`
	Tasks        TasksConfig        `yaml:"tasks"`
	Pose         PoseConfig         `yaml:"pose"`
	PositionSide PositionSideConfig `yaml:"position_side"`
	Joints       JointsConfig       `yaml:"joints"`
	Phase        PhaseConfig        `yaml:"phase"`
	Error        ErrorConfig        `yaml:"error"`
	History      HistoryConfig      `yaml:"history"`
	Feedback     FeedbackConfig     `yaml:"feedback"`
	Summary      SummaryConfig      `yaml:"summary"`

	Admin AdminConfig `yaml:"admin"`
	Log   LogConfig   `yaml:"log"`
}

type FrameConfig struct {
	Width             int    `yaml:"width"`
	Height            int    `yaml:"height"`
	ExtractorEndpoint string `yaml:"extractor_endpoint"`
}

type SessionConfig struct {
	SupportedExercises          []string `yaml:"supported_exercises"`
	MaximumClients              int      `yaml:"maximum_clients"`
	NumOfMinInitOKFrames        int      `yaml:"num_of_min_init_ok_frames"`
	NumOfMinInitCorrectPhaseFrames int   `yaml:"num_of_min_init_correct_phase_frames"`
}

type TasksConfig struct {
	CleanupIntervalMinutes      int `yaml:"cleanup_interval_minutes"`
	MaxRegistrationMinutes      int `yaml:"max_registration_minutes"`
	MaxInactiveMinutes          int `yaml:"max_inactive_minutes"`
	MaxPauseMinutes             int `yaml:"max_pause_minutes"`
	MaxEndedRetentionMinutes    int `yaml:"max_ended_retention"`
	RetrieveConfigurationMinutes int `yaml:"retrieve_configuration_minutes"`
}

type PoseConfig struct {
	StabilityThreshold      float64 `yaml:"stability_threshold"`
	BboxTooFar              float64 `yaml:"bbox_too_far"`
	MinimumBboxArea         float64 `yaml:"minimum_bbox_area"`
	VisibilityGoodThreshold float64 `yaml:"visibility_good_threshold"`
	RequiredVisibilityRatio float64 `yaml:"required_visibility_ratio"`
}

type PositionSideConfig struct {
	LandmarkVisibilityThreshold float64 `yaml:"landmark_visibility_threshold"`
	DominanceRatioThreshold     float64 `yaml:"dominance_ratio_threshold"`
	FrontSymmetryThreshold      float64 `yaml:"front_symmetry_threshold"`
	MinRequiredLandmarkRatio    float64 `yaml:"min_required_landmark_ratio"`
}

type JointsConfig struct {
	VisibilityThreshold float64 `yaml:"visibility_threshold"`
	MinValidJointRatio  float64 `yaml:"min_valid_joint_ratio"`
}

type PhaseConfig struct {
	PhaseLowMotionThreshold int    `yaml:"phase_low_motion_threshold"`
	PhaseDetectorConfigDir  string `yaml:"phase_detector_config_dir"`
}

type ErrorConfig struct {
	ErrorDetectorConfigDir string `yaml:"error_detector_config_dir"`
}

type HistoryConfig struct {
	FramesRollingWindowSize          int     `yaml:"frames_rolling_window_size"`
	BadFrameLogSize                  int     `yaml:"bad_frame_log_size"`
	RecoveryOKThreshold              int     `yaml:"recovery_ok_threshold"`
	BadStabilityLimit                int     `yaml:"bad_stability_limit"`
	MaxConsecutiveInvalidBeforeAbort int     `yaml:"max_consecutive_invalid_before_abort"`
	LowMotionAngleDegreesThreshold   float64 `yaml:"low_motion_angle_degrees_threshold"`
}

type FeedbackConfig struct {
	PoseQualityFeedbackThreshold int `yaml:"pose_quality_feedback_threshold"`
	BioFeedbackThreshold         int `yaml:"bio_feedback_threshold"`
	CooldownFrames               int `yaml:"cooldown_frames"`
}

type SummaryConfig struct {
	NumberOfTopErrors int     `yaml:"number_of_top_errors"`
	PenaltyPerError   float64 `yaml:"penalty_per_error"`
	MaxGrade          float64 `yaml:"max_grade"`
}

// AdminConfig holds the shared secret gating /terminate/server.
type AdminConfig struct {
	TerminatePassword string `yaml:"terminate_password"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses path into a FileConfig.
func Load(path string) (*FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate enforces the minimal set of invariants a malformed
// configuration would otherwise violate silently (spec.md §7's
// "internal configuration" error kind: abort on startup).
func (c *FileConfig) Validate() error {
	if len(c.Session.SupportedExercises) == 0 {
		return fmt.Errorf("session.supported_exercises must be non-empty")
	}
	if c.Session.MaximumClients <= 0 {
		return fmt.Errorf("session.maximum_clients must be positive")
	}
	if c.Phase.PhaseDetectorConfigDir == "" {
		return fmt.Errorf("phase.phase_detector_config_dir is required")
	}
	if c.Error.ErrorDetectorConfigDir == "" {
		return fmt.Errorf("error.error_detector_config_dir is required")
	}
	if c.Frame.ExtractorEndpoint == "" {
		return fmt.Errorf("frame.extractor_endpoint is required")
	}
	return nil
}
