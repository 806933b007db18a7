package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
	xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var resultsHeader = []interface{}{
	"Result ID", "User ID", "Full Name", "Email", "Department",
	"Score", "Passed", "Time Spent (s)", "Completed At", "Outcome",
}

type exportService struct {
	results ResultService
	logger  *slog.Logger
}

// NewExportService exports exactly the rows GetAssessmentResults would return,
// so the same visibility rules apply
func NewExportService(results ResultService, logger *slog.Logger) ExportService {
	return &exportService{results: results, logger: logger}
}

func (s *exportService) ExportAssessmentResults(ctx context.Context, assessmentID uint, requester models.Requester, filters repositories.ResultFilters) (*ExportFile, error) {
	listing, err := s.results.GetAssessmentResults(ctx, assessmentID, requester, filters)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("failed to name results sheet: %w", err)
	}
	if err := writeResultRows(f, listing.Results); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeSummary(f, listing.Stats); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Results exported",
		"assessment_id", assessmentID,
		"requester_id", requester.UserID,
		"rows", len(listing.Results))

	return &ExportFile{
		FileName:    fmt.Sprintf("assessment-%d-results-%s.xlsx", assessmentID, time.Now().UTC().Format("20060102")),
		ContentType: xlsxMimeType,
		Data:        buf.Bytes(),
	}, nil
}

func writeResultRows(f *excelize.File, rows []*ResultRow) error {
	if err := f.SetSheetRow(resultsSheet, "A1", &resultsHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		var score interface{}
		if r.Score != nil {
			score = *r.Score
		}
		var timeSpent interface{}
		if r.TimeSpent != nil {
			timeSpent = *r.TimeSpent
		}

		values := []interface{}{
			r.ResultID, r.UserID, r.FullName, r.Email, r.DepartmentName,
			score, r.IsPassed, timeSpent, r.CompletedAt.UTC().Format(time.RFC3339), outcomeText(r.Payload),
		}
		if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, stats ResultStats) error {
	rows := [][]interface{}{
		{"Total Participants", stats.TotalParticipants},
		{"Average Score", stats.AverageScore},
		{"Average Time (s)", stats.AverageTime},
		{"Pass Rate (%)", stats.PassRate},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}

// outcomeText flattens a payload into one cell
func outcomeText(p *models.ResultPayload) string {
	if p == nil {
		return ""
	}
	if p.Kind == models.PayloadTypeTag {
		return p.TypeTag
	}
	if tag, ok := p.Data["type"].(string); ok && tag != "" {
		return tag
	}
	data, err := json.Marshal(p.Data)
	if err != nil {
		return ""
	}
	return string(data)
}
