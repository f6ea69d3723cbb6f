package payout

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// TotalsSource aggregates cleared commission per affiliate
type TotalsSource interface {
	ClearedTotals(ctx context.Context) ([]store.ClearedTotal, error)
}

// Preview is a validated payout batch ready for admin review
type Preview struct {
	Method      models.PayoutMethod           `json:"payout_method"`
	GeneratedAt time.Time                     `json:"generated_at"`
	Candidates  []models.PayoutBatchCandidate `json:"candidates"`
	Batch       BatchValidationResult         `json:"batch"`
	TotalAmount decimal.Decimal               `json:"total_amount"`
}

// Service builds payout batches from cleared conversions
type Service struct {
	totals    TotalsSource
	validator *Validator
	now       func() time.Time
}

// NewService creates a payout batch service
func NewService(totals TotalsSource, validator *Validator) *Service {
	return &Service{
		totals:    totals,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Validator returns the eligibility validator the service uses
func (s *Service) Validator() *Validator {
	return s.validator
}

// PreviewBatch validates every affiliate with cleared commission for method.
// Amounts come from cleared conversions only. TotalAmount sums the eligible candidates.
func (s *Service) PreviewBatch(ctx context.Context, method models.PayoutMethod) (*Preview, error) {
	totals, err := s.totals.ClearedTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cleared totals: %w", err)
	}

	batch := make([]BatchAffiliate, 0, len(totals))
	for _, t := range totals {
		batch = append(batch, BatchAffiliate{ID: t.AffiliateID, Name: t.Name, Email: t.Email, TotalAmount: t.TotalAmount})
	}
	result, checks := s.validator.validateBatch(ctx, batch, method)

	preview := &Preview{
		Method:      method,
		GeneratedAt: s.now(),
		Candidates:  make([]models.PayoutBatchCandidate, 0, len(totals)),
		Batch:       result,
		TotalAmount: decimal.Zero,
	}
	for i, t := range totals {
		preview.Candidates = append(preview.Candidates, models.PayoutBatchCandidate{
			AffiliateID:   t.AffiliateID,
			AffiliateName: t.Name,
			Email:         t.Email,
			TotalAmount:   t.TotalAmount,
			ClearedCount:  t.ClearedCount,
			Validation:    checks[i],
		})
		if checks[i].IsValid {
			preview.TotalAmount = preview.TotalAmount.Add(t.TotalAmount)
		}
	}

	return preview, nil
}

// ExportXLSX renders the preview as a spreadsheet
func (s *Service) ExportXLSX(p *Preview) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Payout Preview"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	headers := []string{"Affiliate ID", "Name", "Email", "Cleared Conversions", "Total Amount (PHP)", "Eligible", "Reasons"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, c := range p.Candidates {
		row := rowIdx + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), c.AffiliateID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), c.AffiliateName)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), c.Email)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), c.ClearedCount)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), c.TotalAmount.InexactFloat64())
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), c.Validation.IsValid)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), strings.Join(c.Validation.Errors, "; "))
	}

	for i := 0; i < len(headers); i++ {
		col := string(rune('A' + i))
		f.SetColWidth(sheetName, col, col, 20)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}
