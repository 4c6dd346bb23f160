package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
)

type ReportService struct {
	connectionRepo     repository.ConnectionRepository
	monthlyPaymentRepo repository.MonthlyPaymentRepository
	planRepo           repository.PlanRepository
	otherPaymentRepo   repository.OtherPaymentRepository
	statusSvc          *PaymentStatusService
	policySvc          *BillingPolicyService
}

func NewReportService(
	connectionRepo repository.ConnectionRepository,
	monthlyPaymentRepo repository.MonthlyPaymentRepository,
	planRepo repository.PlanRepository,
	otherPaymentRepo repository.OtherPaymentRepository,
	statusSvc *PaymentStatusService,
	policySvc *BillingPolicyService,
) *ReportService {
	return &ReportService{
		connectionRepo:     connectionRepo,
		monthlyPaymentRepo: monthlyPaymentRepo,
		planRepo:           planRepo,
		otherPaymentRepo:   otherPaymentRepo,
		statusSvc:          statusSvc,
		policySvc:          policySvc,
	}
}

// DelinquencyRow is one delinquent connection in the mora report
type DelinquencyRow struct {
	ConnectionID  uint
	OwnerName     string
	OwnerIdentity string
	Phone         string
	Community     string
	Statuses      models.StatusSet
	OwedMonths    []models.PaidMonth
	OwedAmount    decimal.Decimal
}

// DelinquentRows collects every connection whose status set carries any
// delinquency flag, with its unpaid months priced at the current fee.
func (s *ReportService) DelinquentRows(ctx context.Context) ([]DelinquencyRow, error) {
	policy, err := s.policySvc.Policy(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := s.connectionRepo.FindAllIDs(ctx)
	if err != nil {
		return nil, err
	}

	var rows []DelinquencyRow
	for _, id := range ids {
		connection, err := s.connectionRepo.FindByIDWithOwner(ctx, id)
		if err != nil {
			return nil, err
		}
		if connection.PaymentStatus.IsCurrent() {
			continue
		}

		owed, err := s.statusSvc.OwedMonths(ctx, id)
		if err != nil {
			return nil, err
		}

		phone := ""
		if connection.Owner.Phone != nil {
			phone = *connection.Owner.Phone
		}

		rows = append(rows, DelinquencyRow{
			ConnectionID:  id,
			OwnerName:     connection.Owner.FullName,
			OwnerIdentity: connection.Owner.Identity,
			Phone:         phone,
			Community:     connection.Community,
			Statuses:      connection.PaymentStatus,
			OwedMonths:    owed,
			OwedAmount:    policy.MonthlyFee.Mul(decimal.NewFromInt(int64(len(owed)))),
		})
	}
	return rows, nil
}

// GenerateDelinquencyCSV generates the mora report as CSV
func (s *ReportService) GenerateDelinquencyCSV(ctx context.Context) (*bytes.Buffer, error) {
	rows, err := s.DelinquentRows(ctx)
	if err != nil {
		return nil, err
	}

	statusTranslations := map[string]string{
		models.StatusDelinquent:             "Mora mensual",
		models.StatusDelinquentMeter:        "Mora contador",
		models.StatusDelinquentInstallation: "Mora instalación",
	}

	b := &bytes.Buffer{}
	w := csv.NewWriter(b)

	header := []string{"Paja", "Propietario", "Identidad", "Teléfono", "Comunidad", "Estado", "Meses Adeudados", "Monto Adeudado"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, row := range rows {
		var statuses []string
		for _, token := range row.Statuses {
			if label, ok := statusTranslations[token]; ok {
				statuses = append(statuses, label)
			}
		}

		var months []string
		for _, m := range row.OwedMonths {
			months = append(months, m.String())
		}

		record := []string{
			fmt.Sprintf("%d", row.ConnectionID),
			row.OwnerName,
			row.OwnerIdentity,
			row.Phone,
			row.Community,
			strings.Join(statuses, ", "),
			strings.Join(months, " "),
			row.OwedAmount.StringFixed(2),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return b, nil
}

// GenerateMonthlyIncomeXLSX generates the income report of one calendar
// month as a spreadsheet with one section per payment kind.
func (s *ReportService) GenerateMonthlyIncomeXLSX(ctx context.Context, year, month int) ([]byte, string, error) {
	from := fmt.Sprintf("%04d-%02d-01", year, month)
	firstOfNext := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	to := firstOfNext.AddDate(0, 0, -1).Format("2006-01-02")

	monthlyPayments, err := s.monthlyPaymentRepo.FindByDateRange(ctx, from, to)
	if err != nil {
		return nil, "", err
	}
	planPayments, err := s.planRepo.FindPaymentsByDateRange(ctx, from, to)
	if err != nil {
		return nil, "", err
	}
	otherPayments, err := s.otherPaymentRepo.FindByDateRange(ctx, from, to)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Ingresos"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Ingresos %04d-%02d", year, month))
	_ = f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	row := 3
	cell := func(col string, v interface{}) {
		_ = f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
	}

	grandTotal := decimal.Zero

	// Monthly fee payments
	cell("A", "Cuotas Mensuales")
	row++
	cell("A", "Recibo")
	cell("B", "Fecha")
	cell("C", "Pagador")
	cell("D", "Meses")
	cell("E", "Total")
	row++
	monthlyTotal := decimal.Zero
	for i := range monthlyPayments {
		p := &monthlyPayments[i]
		var months []string
		for _, m := range p.CoveredMonths() {
			months = append(months, m.String())
		}
		cell("A", p.ReceiptNumber)
		cell("B", p.PaymentDate.Format("2006-01-02"))
		cell("C", p.PayerName)
		cell("D", strings.Join(months, " "))
		cell("E", p.TotalAmount.InexactFloat64())
		row++
		monthlyTotal = monthlyTotal.Add(p.TotalAmount)
	}
	cell("D", "Subtotal")
	cell("E", monthlyTotal.InexactFloat64())
	row += 2
	grandTotal = grandTotal.Add(monthlyTotal)

	// Installment plan payments
	cell("A", "Cuotas de Planes")
	row++
	cell("A", "Recibo")
	cell("B", "Fecha")
	cell("C", "Pagador")
	cell("D", "Cuota")
	cell("E", "Total")
	row++
	planTotal := decimal.Zero
	for i := range planPayments {
		p := &planPayments[i]
		cell("A", p.ReceiptNumber)
		cell("B", p.PaymentDate.Format("2006-01-02"))
		cell("C", p.PayerName)
		cell("D", fmt.Sprintf("%d/%d", p.InstallmentNumber, p.Plan.InstallmentCount))
		cell("E", p.AmountPaid.InexactFloat64())
		row++
		planTotal = planTotal.Add(p.AmountPaid)
	}
	cell("D", "Subtotal")
	cell("E", planTotal.InexactFloat64())
	row += 2
	grandTotal = grandTotal.Add(planTotal)

	// Other payments
	cell("A", "Otros Pagos")
	row++
	cell("A", "Recibo")
	cell("B", "Fecha")
	cell("C", "Pagador")
	cell("D", "Concepto")
	cell("E", "Total")
	row++
	otherTotal := decimal.Zero
	for i := range otherPayments {
		p := &otherPayments[i]
		cell("A", p.ReceiptNumber)
		cell("B", p.PaymentDate.Format("2006-01-02"))
		cell("C", p.PayerName)
		cell("D", p.Concept)
		cell("E", p.Amount.InexactFloat64())
		row++
		otherTotal = otherTotal.Add(p.Amount)
	}
	cell("D", "Subtotal")
	cell("E", otherTotal.InexactFloat64())
	row += 2
	grandTotal = grandTotal.Add(otherTotal)

	cell("D", "Total General")
	cell("E", grandTotal.InexactFloat64())

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("ingresos_%04d-%02d.xlsx", year, month)
	return buf.Bytes(), filename, nil
}

// receiptData is the kind-independent content of a printed receipt
type receiptData struct {
	ReceiptNumber string
	PaymentDate   time.Time
	PayerName     string
	PayerIdentity string
	Concept       string
	Detail        string
	Amount        decimal.Decimal
}

// GenerateMonthlyReceiptPDF renders the receipt of a monthly payment
func (s *ReportService) GenerateMonthlyReceiptPDF(ctx context.Context, paymentID uint) ([]byte, string, error) {
	payment, err := s.monthlyPaymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, "", ErrNotFound
	}

	var months []string
	for _, m := range payment.CoveredMonths() {
		months = append(months, m.String())
	}

	return s.renderReceipt(receiptData{
		ReceiptNumber: payment.ReceiptNumber,
		PaymentDate:   payment.PaymentDate,
		PayerName:     payment.PayerName,
		PayerIdentity: payment.PayerIdentity,
		Concept:       "Cuota mensual de agua",
		Detail:        "Meses: " + strings.Join(months, ", "),
		Amount:        payment.TotalAmount,
	})
}

// GeneratePlanReceiptPDF renders the receipt of an installment payment
func (s *ReportService) GeneratePlanReceiptPDF(ctx context.Context, paymentID uint) ([]byte, string, error) {
	payment, err := s.planRepo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, "", ErrNotFound
	}
	plan, err := s.planRepo.FindByID(ctx, payment.PlanID)
	if err != nil {
		return nil, "", err
	}

	concept := "Cuota de plan de instalación"
	if plan.PlanType == models.PlanTypeMeter {
		concept = "Cuota de plan de contador"
	}

	return s.renderReceipt(receiptData{
		ReceiptNumber: payment.ReceiptNumber,
		PaymentDate:   payment.PaymentDate,
		PayerName:     payment.PayerName,
		PayerIdentity: payment.PayerIdentity,
		Concept:       concept,
		Detail:        fmt.Sprintf("Cuota %d de %d", payment.InstallmentNumber, plan.InstallmentCount),
		Amount:        payment.AmountPaid,
	})
}

// GenerateOtherReceiptPDF renders the receipt of an ad-hoc payment
func (s *ReportService) GenerateOtherReceiptPDF(ctx context.Context, paymentID uint) ([]byte, string, error) {
	payment, err := s.otherPaymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, "", ErrNotFound
	}

	return s.renderReceipt(receiptData{
		ReceiptNumber: payment.ReceiptNumber,
		PaymentDate:   payment.PaymentDate,
		PayerName:     payment.PayerName,
		PayerIdentity: payment.PayerIdentity,
		Concept:       payment.Concept,
		Detail:        "",
		Amount:        payment.Amount,
	})
}

func (s *ReportService) renderReceipt(data receiptData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(90, 10, "Junta de Agua")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(90, 6, "Recibo de pago")
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Recibo No.:")
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(50, 8, data.ReceiptNumber)
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Fecha:")
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(50, 8, data.PaymentDate.Format("02/01/2006"))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Pagador:")
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(50, 8, data.PayerName)
	pdf.Ln(8)

	if data.PayerIdentity != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(40, 8, "Identidad:")
		pdf.SetFont("Arial", "", 12)
		pdf.Cell(50, 8, data.PayerIdentity)
		pdf.Ln(8)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Concepto:")
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(50, 8, data.Concept)
	pdf.Ln(8)

	if data.Detail != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(90, 6, data.Detail)
		pdf.Ln(10)
	}

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Total:")
	pdf.Cell(50, 10, "L "+data.Amount.StringFixed(2))

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("recibo_%s.pdf", strings.ReplaceAll(data.ReceiptNumber, "-", "_"))
	return buf.Bytes(), filename, nil
}
