// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/podscale/podscale/internal/errs"
	"github.com/podscale/podscale/internal/logging"
	"github.com/podscale/podscale/internal/models"
	"github.com/podscale/podscale/internal/validation"
)

// sanitizeLogValue removes control characters from strings to prevent log
// injection: newlines and other control characters could otherwise forge
// log entries.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Vary", "Accept-Encoding")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", generateETag(data))
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// generateETag creates a simple ETag from data using FNV-1a hash.
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return strconv.FormatUint(uint64(hash), 16)
}

// respondData sends a success envelope with query timing metadata.
func respondData(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: &models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondError maps a pipeline error onto its HTTP status and error code.
// This is the only place error kinds become status codes.
func respondError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := kindStatus(kind)
	if status >= http.StatusInternalServerError {
		logging.Error().Str("error", sanitizeLogValue(err.Error())).Msg("API Error")
	} else {
		logging.Debug().Str("error", sanitizeLogValue(err.Error())).Msg("API request rejected")
	}

	respondJSON(w, status, &models.APIResponse{
		Status: "error",
		Metadata: &models.Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &models.APIError{
			Code:    kind.String(),
			Message: err.Error(),
		},
	})
}

// kindStatus maps error kinds to HTTP status codes.
func kindStatus(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindInsufficientData:
		return http.StatusUnprocessableEntity
	case errs.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeAndValidate decodes the JSON request body into v and checks its
// validate tags. An empty body is allowed and leaves v at its zero value.
func decodeAndValidate(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return validation.ValidateStruct(v)
		}
		return errs.Wrap(errs.KindValidation, err, "malformed request body")
	}
	return validation.ValidateStruct(v)
}

// parseDates converts yyyy-mm-dd strings to midnight UTC dates.
func parseDates(raw []string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, errs.Validation("unparseable date %q, want YYYY-MM-DD", s)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
