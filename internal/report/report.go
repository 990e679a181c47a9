// Package report renders the performance trend as an XLSX workbook and
// optionally archives it.
package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dealflow/dealflow-api/internal/analytics"
	"github.com/dealflow/dealflow-api/pkg/logger"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	trendSheet      = "Performance Trend"
)

// Archiver stores a rendered report and returns a URL it can be fetched from.
type Archiver interface {
	Archive(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// TrendWorkbook lays the series out one month per row with a totals row last.
func TrendWorkbook(tr analytics.Trend) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(trendSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headers := []string{"Month", "Actual", "Forecast"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(trendSheet, cell, h); err != nil {
			return nil, err
		}
	}
	row := 2
	for _, p := range tr.Series {
		if err := f.SetSheetRow(trendSheet, fmt.Sprintf("A%d", row), &[]interface{}{p.Month, p.Actual, p.Forecast}); err != nil {
			return nil, err
		}
		row++
	}
	if err := f.SetSheetRow(trendSheet, fmt.Sprintf("A%d", row), &[]interface{}{"Total", tr.Totals.Actual, tr.Totals.Forecast}); err != nil {
		return nil, err
	}
	return f, nil
}

// FileName is the download name of a trend export.
func FileName(tr analytics.Trend) string {
	if len(tr.Series) == 0 {
		return "performance_trend.xlsx"
	}
	return fmt.Sprintf("performance_trend_%s_%s.xlsx", tr.Series[0].Month, tr.Series[len(tr.Series)-1].Month)
}

// Exporter renders trend workbooks and archives them when an Archiver is set.
type Exporter struct {
	archiver Archiver
	now      func() time.Time
}

func NewExporter(archiver Archiver) *Exporter {
	return &Exporter{archiver: archiver, now: time.Now}
}

// Export is a rendered workbook plus the archive URL, empty when not archived.
type Export struct {
	FileName string
	Data     []byte
	URL      string
}

// Trend renders tr. An archive failure is logged and the export is still returned.
func (e *Exporter) Trend(ctx context.Context, scopeKey string, tr analytics.Trend) (*Export, error) {
	f, err := TrendWorkbook(tr)
	if err != nil {
		return nil, fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	out := &Export{FileName: FileName(tr), Data: buf.Bytes()}
	if e.archiver == nil {
		return out, nil
	}
	key := fmt.Sprintf("reports/%s/%s_%s", scopeKey, e.now().UTC().Format("20060102T150405Z"), out.FileName)
	url, err := e.archiver.Archive(ctx, key, out.Data, ContentTypeXLSX)
	if err != nil {
		logger.With("key", key).Warnf("report archive failed: %v", err)
		return out, nil
	}
	out.URL = url
	return out, nil
}
