// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bodytrack/coachd/internal/coaching/model"
	"github.com/bodytrack/coachd/internal/coaching/session"
	"github.com/bodytrack/coachd/internal/coaching/summary"
	"github.com/bodytrack/coachd/internal/ratelimit"
)

// calibrationCodes distinguishes INIT/READY responses from the
// feedback/server-signal codes ACTIVE produces, per spec.md §6's
// "calibration OR feedback response".
var calibrationCodes = map[string]bool{
	string(model.UserVisibilityIsUnderChecking):  true,
	string(model.UserVisibilityIsValid):          true,
	string(model.UserPositioningIsUnderChecking): true,
	string(model.UserPositioningIsValid):         true,
}

func decodeJSON(r *http.Request, v any) *model.CoachError {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &model.CoachError{
			Code:        "MALFORMED_REQUEST_BODY",
			Status:      http.StatusBadRequest,
			Description: "request body is missing or not valid JSON",
		}
	}
	return nil
}

func writeCoachErr(w http.ResponseWriter, cerr *model.CoachError, extra map[string]any) {
	if len(extra) == 0 {
		extra = cerr.ExtraInfo
	}
	writeCoachError(w, cerr.Status, cerr.Code, cerr.Description, extra)
}

func writeManagement(w http.ResponseWriter, code model.ManagementCode, extra map[string]any) {
	writeEnvelope(w, http.StatusOK, ResponseManagement, string(code), describe(string(code)), extra)
}

func parseSessionID(raw string) (model.SessionId, *model.CoachError) {
	if raw == "" {
		return model.SessionId{}, model.ErrInvalidSessionID
	}
	id, err := model.ParseSessionId(raw)
	if err != nil {
		return model.SessionId{}, model.ErrInvalidSessionID
	}
	return id, nil
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeEnvelope(w, http.StatusOK, ResponsePing, "", "", nil)
}

type registerRequest struct {
	ExerciseType string `json:"exercise_type"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if cerr := decodeJSON(r, &req); cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}

	client := session.ClientInfo{
		IP:        ratelimit.GetClientIP(r),
		UserAgent: r.UserAgent(),
	}

	id, code, cerr := s.sessions.Register(req.ExerciseType, client)
	extra := map[string]any{}
	if !id.IsZero() {
		extra["session_id"] = id.String()
	}
	if cerr != nil {
		writeCoachErr(w, cerr, extra)
		return
	}
	writeManagement(w, code, extra)
}

type sessionIDRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	var req sessionIDRequest
	if cerr := decodeJSON(r, &req); cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	id, cerr := parseSessionID(req.SessionID)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	code, cerr := s.sessions.Unregister(id)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	writeManagement(w, code, nil)
}

type startRequest struct {
	SessionID          string `json:"session_id"`
	ExtendedEvaluation bool   `json:"extended_evaluation"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if cerr := decodeJSON(r, &req); cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	id, cerr := parseSessionID(req.SessionID)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	code, cerr := s.sessions.Start(id, req.ExtendedEvaluation)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	writeManagement(w, code, nil)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req sessionIDRequest
	if cerr := decodeJSON(r, &req); cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	id, cerr := parseSessionID(req.SessionID)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	code, cerr := s.sessions.Pause(id)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	writeManagement(w, code, nil)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req sessionIDRequest
	if cerr := decodeJSON(r, &req); cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	id, cerr := parseSessionID(req.SessionID)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	code, cerr := s.sessions.Resume(id)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	writeManagement(w, code, nil)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req sessionIDRequest
	if cerr := decodeJSON(r, &req); cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	id, cerr := parseSessionID(req.SessionID)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	code, cerr := s.sessions.End(id)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	writeManagement(w, code, nil)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var req sessionIDRequest
	if cerr := decodeJSON(r, &req); cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	id, cerr := parseSessionID(req.SessionID)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	code, cerr := s.sessions.GetStatus(id)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	writeManagement(w, code, nil)
}

type analyzeRequest struct {
	SessionID    string `json:"session_id"`
	FrameID      string `json:"frame_id"`
	FrameContent string `json:"frame_content"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if cerr := decodeJSON(r, &req); cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	id, cerr := parseSessionID(req.SessionID)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.FrameContent)
	if err != nil {
		writeEnvelope(w, http.StatusOK, ResponseFeedback, string(model.FrameDecodingFailed), describe(string(model.FrameDecodingFailed)), nil)
		return
	}

	outcome, cerr := s.sessions.AnalyzeFrame(id, req.FrameID, image)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}

	responseType := ResponseFeedback
	if calibrationCodes[outcome.Code] {
		responseType = ResponseCalibration
	}
	writeEnvelope(w, http.StatusOK, responseType, outcome.Code, describe(outcome.Code), nil)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req sessionIDRequest
	if cerr := decodeJSON(r, &req); cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	id, cerr := parseSessionID(req.SessionID)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	data, cerr := s.sessions.Summary(id)
	if cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	resp := summary.Build(id.String(), data.Exercise, data.History, s.summaryConfig)
	writeJSON(w, http.StatusOK, resp)
}

type telemetrySnapshot struct {
	ActiveSessions int     `json:"active_sessions"`
	TotalSessions  int     `json:"total_sessions"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

func (s *Server) handleTelemetry(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, telemetrySnapshot{
		ActiveSessions: s.sessions.ActiveCount(),
		TotalSessions:  s.sessions.SessionCount(),
		UptimeSeconds:  time.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) handleRefreshConfigurations(w http.ResponseWriter, _ *http.Request) {
	if s.reloader == nil {
		writeManagement(w, model.ConfigurationReloaded, nil)
		return
	}
	if err := s.reloader.Reload(); err != nil {
		writeCoachError(w, http.StatusInternalServerError, string(model.InvalidConfiguration), err.Error(), nil)
		return
	}
	writeManagement(w, model.ConfigurationReloaded, nil)
}

type terminateRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	var req terminateRequest
	if cerr := decodeJSON(r, &req); cerr != nil {
		writeCoachErr(w, cerr, nil)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.AdminTerminatePassword)) != 1 {
		writeCoachError(w, http.StatusUnauthorized, string(model.WrongPassword), describe(string(model.WrongPassword)), nil)
		return
	}
	writeManagement(w, model.ServerTerminating, nil)
	go s.requestShutdown(r.Context())
}
