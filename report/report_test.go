package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/student-ledger/academics"
	"github.com/warp/student-ledger/fees"
	"github.com/warp/student-ledger/generic"
	"github.com/warp/student-ledger/insights"
	"github.com/warp/student-ledger/report"
	"github.com/xuri/excelize/v2"
)

func readSheet(t *testing.T, buf *bytes.Buffer, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestWriteInvoices(t *testing.T) {
	due := generic.NewDate(2026, time.March, 1)
	asOf := generic.NewDate(2026, time.March, 10)
	views := fees.EnrichInvoices([]fees.InvoiceRow{
		{Invoice: fees.Invoice{ID: 7, StudentID: 2, StudentName: "Ada", Amount: generic.NewMoney(150000), DueDate: &due, Description: "Boarding"}, PaidTotal: generic.NewMoney(50000)},
	}, asOf)

	var buf bytes.Buffer
	require.NoError(t, report.WriteInvoices(&buf, views))

	rows := readSheet(t, &buf, report.InvoicesSheet)
	require.Len(t, rows, 2)
	assert.Equal(t, "Invoice", rows[0][0])
	assert.Equal(t, []string{"7", "2", "Ada", "Boarding", "150000", "50000", "100000", "2026-03-01", "overdue"}, rows[1])
}

func TestWriteInsights(t *testing.T) {
	at := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	in := insights.Compute(
		[]academics.Student{{ID: 1, Name: "Ada", Course: "Math"}},
		[]academics.AttendanceRecord{{StudentID: 1, Status: academics.Absent}},
		[]academics.Result{
			{StudentID: 1, Subject: "Math", Term: "Term 1", Marks: 30, CreatedAt: at},
			{StudentID: 1, Subject: "Art", Term: "Term 2", Marks: 60, CreatedAt: at.Add(-time.Hour)},
		},
	)

	var buf bytes.Buffer
	require.NoError(t, report.WriteInsights(&buf, in))
	raw := buf.Bytes()

	heat := readSheet(t, bytes.NewBuffer(raw), report.HeatmapSheet)
	require.Len(t, heat, 3)
	assert.Equal(t, []string{"Term", "Art", "Math"}, heat[0])
	assert.Equal(t, []string{"Term 1", "", "30"}, heat[1], "empty cell stays blank")
	assert.Equal(t, "60", heat[2][1])

	risk := readSheet(t, bytes.NewBuffer(raw), report.AtRiskSheet)
	require.Len(t, risk, 2)
	assert.Equal(t, []string{"1", "Ada", "Math", "0", "30", "yes"}, risk[1])
}
