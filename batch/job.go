package batch

import (
	"time"

	"github.com/jonwraymond/assetmigrate/attachment"
)

// report is what a worker submits for one item.
type report struct {
	id       string
	excluded bool
	err      error

	format      attachment.Format
	mediaType   string
	provider    string
	warnings    int
	stats       attachment.ConversionStats
	bytesIn     int64
	bytesOutput int64
}

// job is the mutable batch state. Only the aggregator goroutine touches it.
type job struct {
	id      string
	ownerID string
	items   []string
	started time.Time

	outcomes map[string]Outcome
	excluded map[string]bool
	success  int
	failed   int
	warnings int
	stats    *DetailedStats
}

func newJob(id, ownerID string, items []string, started time.Time, detailed bool) *job {
	j := &job{
		id:       id,
		ownerID:  ownerID,
		items:    items,
		started:  started,
		outcomes: make(map[string]Outcome, len(items)),
		excluded: make(map[string]bool),
	}
	if detailed {
		j.stats = &DetailedStats{
			ByContentType: make(map[string]int),
			ByProvider:    make(map[string]int),
		}
	}
	return j
}

// record stores r unless the item already has an outcome. It reports
// whether r was a failure.
func (j *job) record(r report) bool {
	if _, done := j.outcomes[r.id]; done || j.excluded[r.id] {
		return false
	}
	if r.excluded {
		j.excluded[r.id] = true
		return false
	}
	if r.err != nil {
		j.outcomes[r.id] = Outcome{Reason: r.err.Error()}
		j.failed++
		return true
	}

	j.outcomes[r.id] = Outcome{Success: true}
	j.success++
	j.warnings += r.warnings
	if s := j.stats; s != nil {
		s.BytesProcessed += r.bytesIn
		s.BytesWritten += r.bytesOutput
		s.ConverterChanges += r.stats.Changes
		switch r.format {
		case attachment.FormatText:
			s.TextConversions++
		case attachment.FormatJSON:
			s.JSONConversions++
		case attachment.FormatXML:
			s.XMLConversions++
		default:
			s.BinaryConversions++
		}
		s.ByContentType[r.mediaType]++
		if r.provider != "" {
			s.ByProvider[r.provider]++
		}
	}
	return false
}

// finish marks every item without an outcome as failed with reason.
func (j *job) finish(reason string) {
	for _, id := range j.items {
		if _, done := j.outcomes[id]; done || j.excluded[id] {
			continue
		}
		j.outcomes[id] = Outcome{Reason: reason}
		j.failed++
	}
}

func (j *job) result(now time.Time) *Result {
	elapsed := now.Sub(j.started)
	res := &Result{
		BatchID:       j.id,
		OwnerID:       j.ownerID,
		Processed:     j.success,
		Failed:        j.failed,
		Total:         j.success + j.failed,
		ElapsedTime:   elapsed.Round(time.Millisecond).String(),
		Elapsed:       elapsed,
		Warnings:      j.warnings,
		DetailedStats: j.stats,
	}
	res.Status = DeriveStatus(res.Total, res.Processed, res.Failed)

	for _, id := range j.items {
		if j.excluded[id] {
			res.Excluded = append(res.Excluded, id)
			continue
		}
		o := j.outcomes[id]
		if o.Success {
			res.ProcessedAttachments = append(res.ProcessedAttachments, id)
			continue
		}
		if res.FailedAttachments == nil {
			res.FailedAttachments = make(map[string]string)
		}
		res.FailedAttachments[id] = o.Reason
	}
	return res
}
