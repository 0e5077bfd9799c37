package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewLogSink(zap.New(core))

	sink.DuplicatesFound(DuplicatesFoundEvent{Accession: "P12345", Members: []RecordID{1, 2}, Reference: 1})
	sink.ProcessError(newProcessError(KindDeadParent, &LocalRecord{ID: 3}, "parent %d gone", 9))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "Duplicates found", entries[0].Message)
	assert.Equal(t, "P12345", entries[0].ContextMap()["accession"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "dead_parent", entries[1].ContextMap()["kind"])
}

func TestRecorder_FeedsReportAndSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	report := &Report{}
	rec := newRecorder(MultiSink{NopSink{}, NewLogSink(zap.New(core))}, report)

	f := &Feature{ID: 4}
	rec.invalid(InvalidRange{FeatureID: 4, Message: "out of bounds", PreExisting: true, feature: f})
	rec.invalid(InvalidRange{FeatureID: 5, Message: "moved away", feature: &Feature{ID: 5}})
	rec.deleted(7, "no active links")

	assert.Len(t, report.InvalidRanges, 2)
	assert.Len(t, report.Deleted, 1)
	assert.Len(t, f.Annotations, 2, "pre-existing invalid ranges are annotated")
	assert.Equal(t, 3, logs.Len())

	s := report.Summary()
	assert.Equal(t, 2, s.InvalidRanges)
	assert.Equal(t, 1, s.Deleted)
}
