package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SDARS-2025/discipline-service/internal/repositories"
)

const exportSheetName = "Disciplinary Records"

// ExportService renders the active record set as a spreadsheet for the
// case office's offline workflows.
type ExportService interface {
	ExportActiveRecords(ctx context.Context, filters repositories.RecordFilters) (*ExportResult, error)
}

type ExportResult struct {
	FileName string
	Content  []byte
}

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var exportHeaders = []string{
	"S/N", "Student Name", "Matric Number", "Level", "Department",
	"Offense", "Punishment", "Status", "Date", "Offense Count",
	"Punishment Duration", "Resumption Period",
}

func (s *exportService) ExportActiveRecords(ctx context.Context, filters repositories.RecordFilters) (*ExportResult, error) {
	// Exports are unpaginated snapshots of whatever the filters match.
	filters.Limit = 0
	filters.Offset = 0

	records, _, err := s.repo.Record().ListActive(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load records for export: %w", err)
	}

	file := excelize.NewFile()
	defer file.Close()

	sheet, err := file.NewSheet(exportSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create export sheet: %w", err)
	}
	file.SetActiveSheet(sheet)
	file.DeleteSheet("Sheet1")

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(exportSheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		file.SetCellStyle(exportSheetName, cell, cell, headerStyle)
	}

	for i, record := range records {
		row := i + 2
		values := []interface{}{
			i + 1,
			record.StudentName,
			record.MatricNumber.String(),
			record.Level,
			record.Department,
			record.Offense,
			record.Punishment,
			record.Status,
			record.Date.Format("2006-01-02"),
			record.OffenseCount,
			record.PunishmentDuration,
			record.ResumptionPeriod,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := file.SetCellValue(exportSheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize export: %w", err)
	}

	result := &ExportResult{
		FileName: fmt.Sprintf("disciplinary-records-%s.xlsx", time.Now().Format("2006-01-02")),
		Content:  buf.Bytes(),
	}

	s.logger.Info("records exported", "count", len(records), "file", result.FileName)
	return result, nil
}
