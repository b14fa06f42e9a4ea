package batch

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/assetmigrate/attachment"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		total, success, failed int
		want                   Status
	}{
		{10, 10, 0, StatusCompleted},
		{3, 0, 3, StatusFailed},
		{5, 2, 3, StatusPartial},
		{0, 0, 0, StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			if got := DeriveStatus(tt.total, tt.success, tt.failed); got != tt.want {
				t.Errorf("DeriveStatus(%d, %d, %d) = %q, want %q", tt.total, tt.success, tt.failed, got, tt.want)
			}
		})
	}
}

func TestJob_RecordsOnce(t *testing.T) {
	j := newJob("b1", "acme", []string{"a", "b", "c", "d"}, time.Now(), true)

	j.record(report{id: "a", format: attachment.FormatText, mediaType: "text/plain", provider: "zephyr", bytesIn: 10, bytesOutput: 9, warnings: 1})
	j.record(report{id: "a", err: errors.New("late duplicate")})
	if !j.record(report{id: "b", err: errors.New("boom")}) {
		t.Error("record() should report failures")
	}
	j.record(report{id: "c", excluded: true})
	j.finish(ReasonTimeout)

	res := j.result(time.Now())
	if res.Total != 3 || res.Processed != 1 || res.Failed != 2 {
		t.Fatalf("counters = total %d processed %d failed %d", res.Total, res.Processed, res.Failed)
	}
	if res.Status != StatusPartial {
		t.Errorf("Status = %q, want partial", res.Status)
	}
	if res.FailedAttachments["b"] != "boom" || res.FailedAttachments["d"] != ReasonTimeout {
		t.Errorf("FailedAttachments = %v", res.FailedAttachments)
	}
	if len(res.Excluded) != 1 || res.Excluded[0] != "c" {
		t.Errorf("Excluded = %v", res.Excluded)
	}
	s := res.DetailedStats
	if s.TextConversions != 1 || s.BytesProcessed != 10 || s.BytesWritten != 9 || s.ByProvider["zephyr"] != 1 || s.ByContentType["text/plain"] != 1 {
		t.Errorf("DetailedStats = %+v", s)
	}
	if res.Warnings != 1 {
		t.Errorf("Warnings = %d, want 1", res.Warnings)
	}
}

func TestResult_WireShape(t *testing.T) {
	j := newJob("b1", "acme", []string{"a", "b"}, time.Now(), false)
	j.record(report{id: "a"})
	j.record(report{id: "b", err: errors.New("not found")})

	data, err := json.Marshal(j.result(time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"batchId", "status", "processed", "failed", "total", "processedAttachments", "failedAttachments", "elapsedTime", "warnings"} {
		if _, ok := wire[key]; !ok {
			t.Errorf("response is missing %q: %s", key, data)
		}
	}
	for _, key := range []string{"detailedStats", "OwnerID", "Elapsed", "Excluded"} {
		if _, ok := wire[key]; ok {
			t.Errorf("response must not contain %q", key)
		}
	}
	if wire["status"] != "partial" {
		t.Errorf("status = %v", wire["status"])
	}
}
