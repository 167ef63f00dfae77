// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package validation

import (
	"strings"
	"testing"
)

type reactRequest struct {
	ItemID   string `validate:"required"`
	Reaction string `validate:"required,reaction"`
}

type trackerSettings struct {
	Threshold float64 `validate:"ratio"`
	Margin    int     `validate:"min=0,max=5000"`
	Surface   string  `validate:"omitempty,oneof=feed profile"`
}

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()

	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil || v1 != v2 {
		t.Error("GetValidator() should return one non-nil instance")
	}
}

func TestValidateStruct_Reaction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reaction string
		valid    bool
	}{
		{"LIKE", true},
		{"THUMBS_UP", true},
		{"FIRE2", true},
		{"like", false},
		{"_LIKE", false},
		{"LI KE", false},
		{strings.Repeat("A", 33), false},
	}
	for _, tt := range tests {
		err := ValidateStruct(&reactRequest{ItemID: "A", Reaction: tt.reaction})
		if (err == nil) != tt.valid {
			t.Errorf("ValidateStruct(reaction=%q) error = %v, want valid=%v", tt.reaction, err, tt.valid)
		}
	}
}

func TestValidateStruct_Ratio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		threshold float64
		valid     bool
	}{
		{0, true},
		{0.6, true},
		{1, true},
		{-0.1, false},
		{1.01, false},
	}
	for _, tt := range tests {
		err := ValidateStruct(&trackerSettings{Threshold: tt.threshold})
		if (err == nil) != tt.valid {
			t.Errorf("ValidateStruct(threshold=%v) error = %v, want valid=%v", tt.threshold, err, tt.valid)
		}
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	t.Parallel()

	verr := ValidateStruct(&reactRequest{ItemID: "A"})
	if verr == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}
	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Message != "Reaction is required" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "Reaction is required")
	}
	if apiErr.Details["field"] != "Reaction" {
		t.Errorf("Details[field] = %v, want Reaction", apiErr.Details["field"])
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	t.Parallel()

	verr := ValidateStruct(&trackerSettings{Threshold: 2, Margin: -1, Surface: "grid"})
	if verr == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}
	if n := len(verr.Errors()); n != 3 {
		t.Errorf("len(Errors()) = %d, want 3", n)
	}

	apiErr := verr.ToAPIError()
	for _, want := range []string{
		"Threshold: Threshold must be between 0 and 1",
		"Margin: Margin must be at least 0",
		"Surface: Surface must be one of: feed profile",
	} {
		if !strings.Contains(apiErr.Message, want) {
			t.Errorf("Message = %q, want to contain %q", apiErr.Message, want)
		}
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("Details missing fields")
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	type lengths struct {
		Name string `validate:"min=3,max=5"`
	}
	tests := []struct {
		in   lengths
		want string
	}{
		{lengths{Name: "ab"}, "Name must be at least 3 characters"},
		{lengths{Name: "abcdef"}, "Name must be at most 5 characters"},
	}
	for _, tt := range tests {
		verr := ValidateStruct(&tt.in)
		if verr == nil {
			t.Fatalf("ValidateStruct(%+v) = nil, want error", tt.in)
		}
		if got := verr.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
