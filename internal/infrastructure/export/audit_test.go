package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
)

func TestWriteAudit(t *testing.T) {
	records := []numbering.AuditRecord{
		{
			ID:             id.New(),
			SubmissionID:   id.New(),
			SeriesID:       id.New(),
			DocumentNumber: "ACMECO-20250517-0007",
			Template:       "{PROJECT}-{YYYY}{MM}{DD}-{SEQ}",
			PeriodKey:      "20250517",
			SequenceNumber: 7,
			Trigger:        numbering.TriggerSubmit,
			GeneratedBy:    "alice",
			GeneratedAt:    time.Date(2025, 5, 17, 9, 30, 0, 0, time.UTC),
		},
		{
			DocumentNumber: "ACMECO-20250517-0008",
			SequenceNumber: 8,
			Trigger:        numbering.TriggerApproval,
			GeneratedBy:    "system",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAudit(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(auditSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, auditHeaders, rows[0])
	assert.Equal(t, "ACMECO-20250517-0007", rows[1][0])
	assert.Equal(t, "7", rows[1][1])
	assert.Equal(t, "20250517", rows[1][2])
	assert.Equal(t, "Submit", rows[1][4])
	assert.Equal(t, "alice", rows[1][5])
	assert.Equal(t, "2025-05-17 09:30:00", rows[1][6])
	assert.Equal(t, records[0].SubmissionID.String(), rows[1][7])
	assert.Equal(t, "Approval", rows[2][4])
}

func TestWriteAudit_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAudit(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(auditSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
