// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package errors

import "errors"

// ErrMappingNotFound wraps every exhaustiveness gap in a Config: an
// (exercise, phase, joint, direction) combination with no configured
// error code is a configuration defect, not a runtime fault, and is
// surfaced to the client as ERROR_DETECTOR_MAPPING_NOT_FOUND.
var ErrMappingNotFound = errors.New("error detector mapping not found")
