// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package validation

import (
	"strings"
	"testing"

	"github.com/podscale/podscale/internal/errs"
)

type samplePayload struct {
	URL     string `validate:"omitempty,url"`
	Horizon int    `validate:"omitempty,min=1,max=365"`
	Mode    string `validate:"omitempty,oneof=strict resample"`
}

func TestValidateStructPasses(t *testing.T) {
	if err := ValidateStruct(samplePayload{URL: "https://example.com/feed", Horizon: 60, Mode: "strict"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateStruct(samplePayload{}); err != nil {
		t.Fatalf("zero value with omitempty tags should pass: %v", err)
	}
}

func TestValidateStructReportsAllFailures(t *testing.T) {
	err := ValidateStruct(samplePayload{URL: "not-a-url", Horizon: 9000, Mode: "loose"})
	if !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("error = %v, want validation kind", err)
	}
	msg := err.Error()
	for _, field := range []string{"URL", "Horizon", "Mode"} {
		if !strings.Contains(msg, field) {
			t.Errorf("message %q missing field %s", msg, field)
		}
	}
}
