// Package export serializes analysis reports to CSV and uploads them to blob
// storage.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/alanyoungcy/fillscope/internal/domain"
)

// multipartThreshold is the payload size above which uploads switch to the
// multipart path.
const multipartThreshold = 5 * 1024 * 1024

// Exporter uploads the three CSV artifacts of a report (fills, groups,
// summary) under "<prefix>/<slug>/<run-id>/".
type Exporter struct {
	writer domain.BlobWriter
	prefix string
	logger *slog.Logger
}

// NewExporter creates an Exporter writing under the given key prefix,
// e.g. "exports".
func NewExporter(writer domain.BlobWriter, prefix string, logger *slog.Logger) *Exporter {
	return &Exporter{
		writer: writer,
		prefix: prefix,
		logger: logger.With(slog.String("component", "export")),
	}
}

// Export serializes and uploads all artifacts of the report.
func (e *Exporter) Export(ctx context.Context, report *domain.MarketReport) error {
	base := fmt.Sprintf("%s/%s/%s", e.prefix, report.Slug, report.RunID)

	artifacts := []struct {
		name   string
		encode func() ([]byte, error)
	}{
		{"fills.csv", func() ([]byte, error) { return FillsToCSV(report.Fills) }},
		{"groups.csv", func() ([]byte, error) { return GroupsToCSV(report.Groups) }},
		{"summary.csv", func() ([]byte, error) { return SummariesToCSV(report.Summaries) }},
	}

	for _, a := range artifacts {
		data, err := a.encode()
		if err != nil {
			return fmt.Errorf("export: encode %s: %w", a.name, err)
		}
		path := base + "/" + a.name
		if err := e.upload(ctx, path, data); err != nil {
			return fmt.Errorf("export: upload %s: %w", path, err)
		}
	}

	e.logger.Info("report exported",
		slog.String("slug", report.Slug),
		slog.String("run_id", report.RunID),
		slog.String("path", base),
	)

	return nil
}

// upload picks the single-shot or multipart path based on payload size.
func (e *Exporter) upload(ctx context.Context, path string, data []byte) error {
	if len(data) > multipartThreshold {
		return e.writer.PutMultipart(ctx, path, bytes.NewReader(data), multipartThreshold)
	}
	return e.writer.Put(ctx, path, bytes.NewReader(data), "text/csv")
}

// FillsToCSV encodes processed fills with a header row.
func FillsToCSV(fills []domain.ProcessedFill) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"outcome", "token_id", "timestamp_unix", "timestamp_pst",
		"price", "amount", "side",
		"transaction_hash", "order_hash", "maker", "taker",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, f := range fills {
		row := []string{
			f.Outcome,
			f.TokenID,
			strconv.FormatInt(f.TimestampUnix, 10),
			f.TimestampPST,
			strconv.FormatFloat(f.Price, 'f', 6, 64),
			strconv.FormatFloat(f.Amount, 'f', 2, 64),
			string(f.Side),
			f.TransactionHash,
			f.OrderHash,
			f.Maker,
			f.Taker,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// GroupsToCSV encodes market groups as one row per fill, annotated with the
// group base name, binarity, and the fill's net action.
func GroupsToCSV(groups []domain.MarketGroup) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"base_name", "is_binary", "outcome", "net_action",
		"side", "price", "amount", "timestamp_unix", "timestamp_pst",
		"transaction_hash",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, g := range groups {
		for _, f := range g.Fills {
			row := []string{
				g.BaseName,
				strconv.FormatBool(g.IsBinary),
				f.Outcome,
				f.NetAction,
				string(f.Side),
				strconv.FormatFloat(f.Price, 'f', 6, 64),
				strconv.FormatFloat(f.Amount, 'f', 2, 64),
				strconv.FormatInt(f.TimestampUnix, 10),
				f.TimestampPST,
				f.TransactionHash,
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// SummariesToCSV encodes summary rows with a header row.
func SummariesToCSV(summaries []domain.MarketSummary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"base_name", "is_binary", "total_fills", "total_volume", "avg_volume",
		"min_price", "max_price", "avg_price", "current_price",
		"earliest_unix", "latest_unix",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, s := range summaries {
		row := []string{
			s.BaseName,
			strconv.FormatBool(s.IsBinary),
			strconv.FormatFloat(s.TotalFills, 'f', 1, 64),
			strconv.FormatFloat(s.TotalVolume, 'f', 2, 64),
			strconv.FormatFloat(s.AvgVolume, 'f', 2, 64),
			strconv.FormatFloat(s.MinPrice, 'f', 6, 64),
			strconv.FormatFloat(s.MaxPrice, 'f', 6, 64),
			strconv.FormatFloat(s.AvgPrice, 'f', 6, 64),
			strconv.FormatFloat(s.CurrentPrice, 'f', 6, 64),
			strconv.FormatInt(s.EarliestUnix, 10),
			strconv.FormatInt(s.LatestUnix, 10),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
