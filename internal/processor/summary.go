package processor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sells-group/itr-cli/internal/model"
)

func nowUTC() time.Time { return time.Now().UTC() }

// summarize computes overall and per-type status counts for a set of
// records belonging to one subsystem.
func summarize(records []model.Record) *model.StatusBreakdown {
	b := &model.StatusBreakdown{
		Total:  len(records),
		ByType: make(map[string]model.TypeBreakdown),
	}

	for _, rec := range records {
		status := model.Classify(rec.CertStatusRaw)
		tb := b.ByType[rec.RecordType]
		tb.Total++
		switch status {
		case model.StatusNotStarted:
			b.NotStarted++
			tb.NotStarted++
		case model.StatusOngoing:
			b.Ongoing++
			tb.Ongoing++
		case model.StatusCompleted:
			b.Completed++
			tb.Completed++
		}
		if status.Open() {
			b.Open++
			tb.Open++
		}
		b.ByType[rec.RecordType] = tb
	}

	b.CompletionRate = completionRate(b.Completed, b.Total)
	for typ, tb := range b.ByType {
		tb.CompletionRate = completionRate(tb.Completed, tb.Total)
		b.ByType[typ] = tb
	}

	return b
}

// completionRate returns completed/total as a percentage rounded to
// one decimal, 0 when total is zero.
func completionRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*1000) / 10
}

// guidance builds the next-action hint attached to a breakdown so the
// agent can relay it verbatim.
func guidance(b *model.StatusBreakdown) string {
	if b.Open == 0 {
		return "All ITRs completed. Ask about other subsystems or search for related ones"
	}

	msg := fmt.Sprintf("Found %d open ITRs", b.Open)
	if top, count := topOpenType(b.ByType); top != "" {
		msg += fmt.Sprintf(". Most open ITRs are %s (%d open)", top, count)
	}
	return msg + ". Ask about specific ITR types, compare with other subsystems, or search for related subsystems"
}

// topOpenType returns the record type with the most open ITRs,
// breaking ties lexicographically for deterministic output.
func topOpenType(byType map[string]model.TypeBreakdown) (string, int) {
	types := make([]string, 0, len(byType))
	for typ := range byType {
		types = append(types, typ)
	}
	sort.Strings(types)

	var (
		top   string
		count int
	)
	for _, typ := range types {
		if byType[typ].Open > count {
			top = typ
			count = byType[typ].Open
		}
	}
	return top, count
}
