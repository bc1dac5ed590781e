// Package export renders finished extraction jobs as a spreadsheet.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/claims-extractor/internal/entity"
	"github.com/joseph-ayodele/claims-extractor/internal/record"
)

const sheet = "Claims"

// DoneLister is the slice of the job store the export reads.
type DoneLister interface {
	ListDone(ctx context.Context, limit int) ([]*entity.ExtractJob, error)
}

// Service produces XLSX bytes for exports.
type Service struct {
	jobs   DoneLister
	logger *slog.Logger
}

func NewService(jobs DoneLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

var headers = []string{
	"Source Path",
	"Finished At",
	"Last Name",
	"First Name",
	"ID Number",
	"Gender",
	"Date of Birth",
	"Address",
	"Landline Phone",
	"Mobile Phone",
	"Job Type",
	"Date of Injury",
	"Time of Injury",
	"Accident Location",
	"Accident Address",
	"Accident Description",
	"Injured Body Part",
	"Signature",
	"Form Filling Date",
	"Form Received at Clinic",
	"Health Fund",
	"Nature of Accident",
	"Medical Diagnoses",
	"Issues",
}

// ExportRecordsXLSX returns a workbook with one row per DONE job, oldest first.
// Jobs whose stored record cannot be decoded are skipped and logged.
func (s *Service) ExportRecordsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobs.ListDone(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, job := range jobs {
		var form record.Form
		if err := json.Unmarshal(job.RecordJSON, &form); err != nil {
			s.logger.Warn("export.row.skipped", "job_id", job.ID, "error", err)
			continue
		}
		finished := ""
		if job.FinishedAt != nil {
			finished = job.FinishedAt.UTC().Format(time.DateTime)
		}
		values := []any{
			job.SourcePath,
			finished,
			form.LastName,
			form.FirstName,
			form.IDNumber,
			form.Gender,
			formatDate(form.DateOfBirth),
			formatAddress(form.Address),
			form.LandlinePhone,
			form.MobilePhone,
			form.JobType,
			formatDate(form.DateOfInjury),
			form.TimeOfInjury,
			form.AccidentLocation,
			form.AccidentAddress,
			truncate(form.AccidentDescription, 500),
			form.InjuredBodyPart,
			form.Signature,
			formatDate(form.FormFillingDate),
			formatDate(form.FormReceiptDateAtClinic),
			form.MedicalInstitutionFields.HealthFundMember,
			form.MedicalInstitutionFields.NatureOfAccident,
			form.MedicalInstitutionFields.MedicalDiagnoses,
			len(job.Issues),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 48) // path
	_ = f.SetColWidth(sheet, "B", "B", 20)
	_ = f.SetColWidth(sheet, "C", "G", 14)
	_ = f.SetColWidth(sheet, "H", "H", 36) // address
	_ = f.SetColWidth(sheet, "P", "P", 60) // description

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// formatDate renders DD/MM/YYYY when every part is numeric, otherwise the
// parts as extracted.
func formatDate(d record.Date) string {
	day, errD := strconv.Atoi(d.Day)
	month, errM := strconv.Atoi(d.Month)
	year, errY := strconv.Atoi(d.Year)
	if errD != nil || errM != nil || errY != nil {
		return d.String()
	}
	return fmt.Sprintf("%02d/%02d/%04d", day, month, year)
}

func formatAddress(a record.Address) string {
	var parts []string
	street := strings.TrimSpace(strings.Join(nonEmpty(a.Street, a.HouseNumber), " "))
	if street != "" {
		parts = append(parts, street)
	}
	if a.Entrance != "" {
		parts = append(parts, "entrance "+a.Entrance)
	}
	if a.Apartment != "" {
		parts = append(parts, "apt "+a.Apartment)
	}
	parts = append(parts, nonEmpty(a.City, a.PostalCode)...)
	if a.POBox != "" {
		parts = append(parts, "P.O.B "+a.POBox)
	}
	return strings.Join(parts, ", ")
}

func nonEmpty(vals ...string) []string {
	var out []string
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
