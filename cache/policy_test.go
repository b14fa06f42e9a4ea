package cache

import (
	"testing"
	"time"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.TTL != 5*time.Minute {
		t.Errorf("TTL = %v, want 5m", p.TTL)
	}
	if !p.StaleWhileRevalidate {
		t.Error("StaleWhileRevalidate should be on by default")
	}
	if !p.ShouldCache() {
		t.Error("ShouldCache() = false, want true")
	}
	if NoCachePolicy().ShouldCache() {
		t.Error("NoCachePolicy().ShouldCache() = true, want false")
	}
}

func TestDefaultSkipRule(t *testing.T) {
	tests := []struct {
		op   string
		want bool
	}{
		{"getProjects", false},
		{"getTestCases", false},
		{"createTestCase", true},
		{"UploadAttachment", true},
		{"deleteFolder", true},
		{"listFolders", false},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			if got := DefaultSkipRule(tt.op); got != tt.want {
				t.Errorf("DefaultSkipRule(%q) = %v, want %v", tt.op, got, tt.want)
			}
		})
	}
}
