// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package joints defines per-exercise joint schemas and the angle math
// used to turn a landmark matrix into named joint angles.
//
// Grounded on original_source/Server/Data/Joints/JointAngle.py and
// original_source/Server/Pipeline/JointAnalyzer.py.
package joints

import (
	"sort"

	"github.com/bodytrack/coachd/internal/coaching/model"
)

// Joint is a single named angle definition: either a 3-point joint
// (computed with the interior angle at the middle landmark) or a
// 2-point joint (computed as the angle of the line against the
// horizontal axis).
type Joint struct {
	Name      string
	Landmarks []model.PoseLandmark
}

// Schema is the full joint set for one exercise.
type Schema struct {
	Core     []Joint
	Extended []Joint
}

func j3(name string, a, b, c model.PoseLandmark) Joint {
	return Joint{Name: name, Landmarks: []model.PoseLandmark{a, b, c}}
}

func j2(name string, a, b model.PoseLandmark) Joint {
	return Joint{Name: name, Landmarks: []model.PoseLandmark{a, b}}
}

var squat = Schema{
	Core: []Joint{
		j3("left_knee_angle", model.LeftHip, model.LeftKnee, model.LeftAnkle),
		j3("right_knee_angle", model.RightHip, model.RightKnee, model.RightAnkle),
		j3("left_hip_angle", model.LeftShoulder, model.LeftHip, model.LeftKnee),
		j3("right_hip_angle", model.RightShoulder, model.RightHip, model.RightKnee),
		j3("trunk_tilt_angle", model.LeftHip, model.LeftShoulder, model.LeftEar),
	},
	Extended: []Joint{
		j3("left_ankle_angle", model.LeftKnee, model.LeftAnkle, model.LeftFootIndex),
		j3("right_ankle_angle", model.RightKnee, model.RightAnkle, model.RightFootIndex),
		j3("knee_valgus_angle", model.LeftHip, model.LeftKnee, model.LeftAnkle),
		j2("hip_line_angle", model.LeftHip, model.RightHip),
	},
}

var bicepsCurl = Schema{
	Core: []Joint{
		j3("left_elbow_angle", model.LeftShoulder, model.LeftElbow, model.LeftWrist),
		j3("right_elbow_angle", model.RightShoulder, model.RightElbow, model.RightWrist),
		j3("left_shoulder_flexion_angle", model.LeftHip, model.LeftShoulder, model.LeftElbow),
		j3("right_shoulder_flexion_angle", model.RightHip, model.RightShoulder, model.RightElbow),
	},
	Extended: []Joint{
		j3("left_shoulder_torso_angle", model.LeftHip, model.LeftShoulder, model.LeftEar),
		j3("right_shoulder_torso_angle", model.RightHip, model.RightShoulder, model.RightEar),
		j3("left_wrist_angle", model.LeftElbow, model.LeftWrist, model.LeftIndex),
		j3("right_wrist_angle", model.RightElbow, model.RightWrist, model.RightIndex),
	},
}

var lateralRaise = Schema{
	Core: []Joint{
		j3("left_shoulder_abduction_angle", model.LeftHip, model.LeftShoulder, model.LeftElbow),
		j3("right_shoulder_abduction_angle", model.RightHip, model.RightShoulder, model.RightElbow),
		j3("left_elbow_set_angle", model.LeftShoulder, model.LeftElbow, model.LeftWrist),
		j3("right_elbow_set_angle", model.RightShoulder, model.RightElbow, model.RightWrist),
	},
	Extended: []Joint{
		j3("torso_lateral_tilt_angle", model.LeftHip, model.LeftShoulder, model.LeftEar),
		j2("shoulder_line_angle", model.LeftShoulder, model.RightShoulder),
	},
}

// SchemaFor returns the joint schema for an exercise, or false if the
// exercise is unknown.
func SchemaFor(exercise model.ExerciseType) (Schema, bool) {
	switch exercise {
	case model.ExerciseSquat:
		return squat, true
	case model.ExerciseBicepsCurl:
		return bicepsCurl, true
	case model.ExerciseLateralRaise:
		return lateralRaise, true
	default:
		return Schema{}, false
	}
}

// AllJoints returns CORE, plus EXTENDED when extended is requested.
//
// JointAnalyzer.calculate_joints (original_source/Server/Pipeline/
// JointAnalyzer.py) computes exercise_type.CORE + exercise_type.EXTENDED
// unconditionally on position_side, gating only on extended_evaluation —
// side never narrows the joint set itself. AllJoints matches that: the
// side parameter is accepted (the caller always has one in hand) but,
// per the original, does not affect the result.
func AllJoints(schema Schema, _ model.PositionSide, extended bool) []Joint {
	if !extended {
		out := make([]Joint, len(schema.Core))
		copy(out, schema.Core)
		return out
	}
	out := make([]Joint, 0, len(schema.Core)+len(schema.Extended))
	out = append(out, schema.Core...)
	out = append(out, schema.Extended...)
	return out
}

// RequiredLandmarks returns the deduplicated set of landmark indices
// referenced by AllJoints(schema, side, extended), in ascending index
// order. This is PoseQualityManager._required_landmark_indices
// (original_source/Server/Pipeline/PoseQualityManager.py): the union of
// every joint's landmarks for the given (exercise, side, extended)
// combination, not the full 33-landmark set — a biceps-curl session
// never requires leg landmarks to be visible, for instance.
func RequiredLandmarks(schema Schema, side model.PositionSide, extended bool) []model.PoseLandmark {
	seen := make(map[model.PoseLandmark]bool)
	for _, j := range AllJoints(schema, side, extended) {
		for _, lm := range j.Landmarks {
			seen[lm] = true
		}
	}
	out := make([]model.PoseLandmark, 0, len(seen))
	for lm := range seen {
		out = append(out, lm)
	}
	sort.Slice(out, func(i, k int) bool { return out[i] < out[k] })
	return out
}

// Names returns just the joint names of a list, used to validate
// config-referenced joint names against a schema.
func Names(js []Joint) []string {
	names := make([]string, len(js))
	for i, j := range js {
		names[i] = j.Name
	}
	return names
}
