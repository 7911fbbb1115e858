// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// ManagementCode enumerates every possible outcome of a session
// lifecycle operation (register/unregister/start/pause/resume/end/status).
type ManagementCode string

const (
	ClientRegisteredSuccessfully ManagementCode = "CLIENT_REGISTERED_SUCCESSFULLY"
	ClientSessionIsUnregistered  ManagementCode = "CLIENT_SESSION_IS_UNREGISTERED"
	ClientSessionIsRegistered    ManagementCode = "CLIENT_SESSION_IS_REGISTERED"
	ClientSessionIsActive        ManagementCode = "CLIENT_SESSION_IS_ACTIVE"
	ClientSessionIsPaused        ManagementCode = "CLIENT_SESSION_IS_PAUSED"
	ClientSessionIsEnded         ManagementCode = "CLIENT_SESSION_IS_ENDED"

	ClientIsAlreadyRegistered ManagementCode = "CLIENT_IS_ALREADY_REGISTERED"
	ClientIsAlreadyActive     ManagementCode = "CLIENT_IS_ALREADY_ACTIVE"
	ClientIsAlreadyPaused     ManagementCode = "CLIENT_IS_ALREADY_PAUSED"
	ClientIsAlreadyEnded      ManagementCode = "CLIENT_IS_ALREADY_ENDED"
	ClientIsNotRegistered     ManagementCode = "CLIENT_IS_NOT_REGISTERED"
	ClientIsNotActive         ManagementCode = "CLIENT_IS_NOT_ACTIVE"

	InvalidSessionID     ManagementCode = "INVALID_SESSION_ID"
	UnsupportedExercise  ManagementCode = "UNSUPPORTED_EXERCISE"
	MaxClientReached     ManagementCode = "MAX_CLIENT_REACHED"
	ConfigurationReloaded ManagementCode = "CONFIGURATION_RELOADED"
	ServerTerminating    ManagementCode = "SERVER_TERMINATING"
	WrongPassword        ManagementCode = "WRONG_PASSWORD"
)

// CalibrationCode enumerates the INIT/READY responses.
type CalibrationCode string

const (
	UserVisibilityIsUnderChecking   CalibrationCode = "USER_VISIBILITY_IS_UNDER_CHECKING"
	UserVisibilityIsValid           CalibrationCode = "USER_VISIBILITY_IS_VALID"
	UserPositioningIsUnderChecking  CalibrationCode = "USER_POSITIONING_IS_UNDER_CHECKING"
	UserPositioningIsValid          CalibrationCode = "USER_POSITIONING_IS_VALID"
)

// ServerErrorCode enumerates server-side faults and quality-domain
// signals surfaced to the client as part of the error taxonomy of
// spec.md §7.
type ServerErrorCode string

const (
	FrameDecodingFailed            ServerErrorCode = "FRAME_DECODING_FAILED"
	FrameInitialValidationFailed   ServerErrorCode = "FRAME_INITIAL_VALIDATION_FAILED"
	WrongExercisePosition          ServerErrorCode = "WRONG_EXERCISE_POSITION"
	TooManyInvalidAngles           ServerErrorCode = "TOO_MANY_INVALID_ANGLES"
	SessionShouldAbort             ServerErrorCode = "SESSION_SHOULD_ABORT"
	TryingToAnalyzeFrameWhenDone   ServerErrorCode = "TRYING_TO_ANALYZE_FRAME_WHEN_DONE"
	TryingToAnalyzeFrameWhenFailed ServerErrorCode = "TRYING_TO_ANALYZE_FRAME_WHEN_FAILED"
	PhaseUndeterminedInFrame       ServerErrorCode = "PHASE_UNDETERMINED_IN_FRAME"
	ErrorDetectorMappingNotFound   ServerErrorCode = "ERROR_DETECTOR_MAPPING_NOT_FOUND"
	InternalServerError            ServerErrorCode = "INTERNAL_SERVER_ERROR"
	InvalidConfiguration           ServerErrorCode = "INVALID_CONFIGURATION"
)

// QualityToServerErrorCode maps a non-OK pose-quality verdict to the
// server error code of the same name, surfaced during INIT calibration.
func QualityToServerErrorCode(q Quality) ServerErrorCode {
	return ServerErrorCode(q)
}
