package domain

import (
	"testing"
)

func TestResourceDetailOptionalFields(t *testing.T) {
	r := ResourceDetail{ID: "r1", Title: "Intro"}
	if r.TypeOrEmpty() != "" || r.LanguageOrEmpty() != "" {
		t.Errorf("Expected empty optional fields, got %q/%q", r.TypeOrEmpty(), r.LanguageOrEmpty())
	}

	video, en := "video", "en"
	r.Type, r.Language = &video, &en
	if r.TypeOrEmpty() != "video" {
		t.Errorf("Expected type 'video', got '%s'", r.TypeOrEmpty())
	}
	if r.LanguageOrEmpty() != "en" {
		t.Errorf("Expected language 'en', got '%s'", r.LanguageOrEmpty())
	}
}

func TestSnapshotID(t *testing.T) {
	testCases := []struct {
		snap     Snapshot
		expected string
	}{
		{nil, ""},
		{Snapshot{}, ""},
		{Snapshot{"id": "abc"}, "abc"},
		{Snapshot{"id": float64(42)}, "42"},
		{Snapshot{"id": true}, ""},
	}

	for _, tc := range testCases {
		if got := tc.snap.ID(); got != tc.expected {
			t.Errorf("Snapshot(%v).ID() = %q; expected %q", tc.snap, got, tc.expected)
		}
	}
}
