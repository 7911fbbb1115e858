// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package mediapipe implements the production pose extractor: an HTTP
// client calling out to an external landmark-inference service and
// decoding its response into model.LandmarkMatrix.
//
// spec.md §9 treats the extractor as an injected capability
// (`bytes -> 33x4 matrix`) and deliberately leaves the inference
// engine itself out of scope; this package supplies the one concrete
// wiring a production deployment needs, grounded on the teacher's
// internal/openwebif HTTP client (context-aware, bounded timeout,
// circuit-breaker-wrapped) adapted from a receiver-control client to a
// landmark-inference client.
package mediapipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bodytrack/coachd/internal/coaching/model"
	"github.com/bodytrack/coachd/internal/log"
	"github.com/bodytrack/coachd/internal/resilience"
	"golang.org/x/time/rate"
)

// maxErrBody caps how much of a non-200 response body is read for
// error reporting, mirroring the teacher client's drain discipline.
const maxErrBody = 4096

// wireLandmark is the on-wire JSON shape of a single landmark.
type wireLandmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

type inferenceResponse struct {
	Landmarks []wireLandmark `json:"landmarks"`
}

// Extractor implements pipeline.Extractor by POSTing the raw frame
// bytes to an external landmark-inference endpoint.
type Extractor struct {
	endpoint string
	http     *http.Client
	breaker  *resilience.CircuitBreaker
	limiter  *rate.Limiter

	frameWidth, frameHeight int
}

// NewExtractor constructs a client bound to an inference endpoint.
// frameWidth/frameHeight are attached to the request so the inference
// service can validate the decoded image dimensions against what the
// session configured.
func NewExtractor(endpoint string, frameWidth, frameHeight int) *Extractor {
	return &Extractor{
		endpoint:     endpoint,
		frameWidth:   frameWidth,
		frameHeight:  frameHeight,
		http:         &http.Client{Timeout: 2 * time.Second},
		breaker:      resilience.NewCircuitBreaker("pose_extractor", 5, 10, 30*time.Second, 15*time.Second),
		limiter:      rate.NewLimiter(rate.Limit(50), 100),
	}
}

// ExtractPose implements pipeline.Extractor.
func (e *Extractor) ExtractPose(image []byte) (model.LandmarkMatrix, error) {
	if !e.limiter.Allow() {
		return model.LandmarkMatrix{}, fmt.Errorf("mediapipe: extractor call rate exceeded")
	}

	var out model.LandmarkMatrix
	err := e.breaker.Execute(func() error {
		decoded, err := e.call(image)
		if err != nil {
			return err
		}
		out = decoded
		return nil
	})
	if err != nil {
		log.WithComponent("mediapipe").Warn().Err(err).Msg("pose extraction failed")
		return model.LandmarkMatrix{}, err
	}
	return out, nil
}

func (e *Extractor) call(image []byte) (model.LandmarkMatrix, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s?width=%d&height=%d", e.endpoint, e.frameWidth, e.frameHeight)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return model.LandmarkMatrix{}, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.http.Do(req)
	if err != nil {
		return model.LandmarkMatrix{}, fmt.Errorf("mediapipe: request failed: %w", err)
	}
	defer func() {
		_, _ = io.CopyN(io.Discard, resp.Body, maxErrBody)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return model.LandmarkMatrix{}, fmt.Errorf("mediapipe: inference service returned %d: %s", resp.StatusCode, body)
	}

	var wire inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return model.LandmarkMatrix{}, fmt.Errorf("mediapipe: decode response: %w", err)
	}
	if len(wire.Landmarks) != model.NumLandmarks {
		return model.LandmarkMatrix{}, fmt.Errorf("mediapipe: expected %d landmarks, got %d", model.NumLandmarks, len(wire.Landmarks))
	}

	var matrix model.LandmarkMatrix
	for i, l := range wire.Landmarks {
		matrix[i] = model.Landmark{X: l.X, Y: l.Y, Z: l.Z, Visibility: l.Visibility}
	}
	return matrix, nil
}
