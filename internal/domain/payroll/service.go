package payroll

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"

	"payrollcore/internal/domain/audit"
	"payrollcore/internal/domain/directory"
	cryptoutil "payrollcore/internal/platform/crypto"
)

// PayslipService renders a stored computation into a payslip PDF.
// With an encryption key configured, the file is encrypted at rest.
type PayslipService struct {
	store     *Store
	directory directory.Client
	auditLog  *audit.Logger
	crypto    *cryptoutil.Service
	outputDir string
}

func NewPayslipService(store *Store, dir directory.Client, auditLog *audit.Logger, crypto *cryptoutil.Service, outputDir string) *PayslipService {
	return &PayslipService{store: store, directory: dir, auditLog: auditLog, crypto: crypto, outputDir: outputDir}
}

func (s *PayslipService) Generate(ctx context.Context, computationID, actor string) (string, error) {
	comp, err := s.store.ComputationByID(ctx, computationID)
	if err != nil {
		return "", err
	}

	employee, err := s.directory.EmployeeByID(ctx, comp.EmployeeID)
	if err != nil {
		return "", err
	}
	if employee == nil {
		return "", fmt.Errorf("employee %s: %w", comp.EmployeeID, directory.ErrNotFound)
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", err
	}
	payslipID := uuid.NewString()
	filePath := filepath.Join(s.outputDir, payslipID+".pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s %s", employee.FirstName, employee.LastName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Position: %s", employee.Position))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s",
		comp.PeriodStart.Format("2006-01-02"), comp.PeriodEnd.Format("2006-01-02")))
	pdf.Ln(10)
	pdf.Cell(0, 8, fmt.Sprintf("Base salary: %s", comp.Gross.BaseSalary.StringFixed(2)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Overtime: %s", comp.Gross.OvertimeAmount.StringFixed(2)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Night differential: %s", comp.Gross.NightDifferentialAmount.StringFixed(2)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Holiday pay: %s",
		comp.Gross.HolidayPayRegular.Add(comp.Gross.HolidayPaySpecial).StringFixed(2)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Hazard pay: %s", comp.Gross.HazardPay.StringFixed(2)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Allowances: %s", comp.Gross.Allowances.StringFixed(2)))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Gross: %s", comp.Gross.GrossPay.StringFixed(2)))
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range comp.Deductions.Contributions {
		pdf.Cell(0, 8, fmt.Sprintf("%s: %s", line.Type, line.Amount.StringFixed(2)))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Withholding tax: %s", comp.Deductions.WithholdingTax.StringFixed(2)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Total deductions: %s", comp.Deductions.Total.StringFixed(2)))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Net pay: %s", comp.NetPay.StringFixed(2)))

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", err
	}

	if s.crypto != nil && s.crypto.Configured() {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		encrypted, err := s.crypto.Encrypt(data)
		if err != nil {
			return "", err
		}
		encryptedPath := filePath + ".enc"
		if err := os.WriteFile(encryptedPath, encrypted, 0o600); err != nil {
			return "", err
		}
		if err := os.Remove(filePath); err != nil {
			return "", err
		}
		filePath = encryptedPath
	}

	entry, err := audit.PayslipGenerated(payslipID, comp.EmployeeID, actor, map[string]string{
		"computationId": comp.ID,
		"file":          filePath,
	})
	if err != nil {
		return "", err
	}
	if err := s.auditLog.Record(ctx, entry); err != nil {
		return "", fmt.Errorf("payslip written but audit entry failed: %w", err)
	}

	return filePath, nil
}
