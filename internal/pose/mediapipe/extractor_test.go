// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mediapipe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bodytrack/coachd/internal/coaching/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func landmarksJSON(n int) []byte {
	landmarks := make([]wireLandmark, n)
	for i := range landmarks {
		landmarks[i] = wireLandmark{X: 0.1, Y: 0.2, Z: 0.0, Visibility: 0.9}
	}
	body, _ := json.Marshal(inferenceResponse{Landmarks: landmarks})
	return body
}

func TestExtractor_ExtractPose_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(landmarksJSON(model.NumLandmarks))
	}))
	defer srv.Close()

	e := NewExtractor(srv.URL, 640, 480)
	lm, err := e.ExtractPose([]byte("fake-jpeg-bytes"))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, lm[0].X, 1e-9)
	assert.InDelta(t, 0.9, lm[0].Visibility, 1e-9)
}

func TestExtractor_ExtractPose_WrongLandmarkCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(landmarksJSON(10))
	}))
	defer srv.Close()

	e := NewExtractor(srv.URL, 640, 480)
	_, err := e.ExtractPose([]byte("fake-jpeg-bytes"))
	assert.Error(t, err)
}

func TestExtractor_ExtractPose_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	e := NewExtractor(srv.URL, 640, 480)
	_, err := e.ExtractPose([]byte("fake-jpeg-bytes"))
	assert.Error(t, err)
}
