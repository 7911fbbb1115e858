// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// PoseLandmark indexes into the 33-keypoint pose matrix produced by the
// injected pose extractor. Naming and ordering follow the BlazePose
// topology used by the original system's extractor.
type PoseLandmark int

const (
	Nose PoseLandmark = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	NumLandmarks = 33
)

// Landmark is a single (x, y, z, visibility) pose keypoint. x and y are
// normalized frame coordinates; z is relative depth; visibility is in
// [0, 1].
type Landmark struct {
	X, Y, Z, Visibility float64
}

// LandmarkMatrix is the 33x4 output of the pose extractor.
type LandmarkMatrix [NumLandmarks]Landmark

// LeftSideLandmarks and RightSideLandmarks are the subsets consulted by
// the position-side detector to judge which side of the body is most
// visible to the camera.
var (
	LeftSideLandmarks = []PoseLandmark{
		LeftShoulder, LeftElbow, LeftWrist, LeftHip, LeftKnee, LeftAnkle, LeftEar,
	}
	RightSideLandmarks = []PoseLandmark{
		RightShoulder, RightElbow, RightWrist, RightHip, RightKnee, RightAnkle, RightEar,
	}
)
