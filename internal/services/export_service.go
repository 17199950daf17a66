package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/sjperalta/finops-api/internal/models"
	"github.com/sjperalta/finops-api/internal/repository"
	"github.com/xuri/excelize/v2"
)

// maxExportRows caps a single audit export
const maxExportRows = 10000

var auditExportHeader = []string{"ID", "Fecha", "Tabla", "Registro", "Acción", "Usuario", "Campos", "Motivo", "IP"}

type ExportService struct {
	audit        *AuditService
	transactions *TransactionService
	now          func() time.Time
}

func NewExportService(audit *AuditService, transactions *TransactionService) *ExportService {
	return &ExportService{audit: audit, transactions: transactions, now: time.Now}
}

// auditRows loads the filtered trail, up to maxExportRows entries
func (s *ExportService) auditRows(ctx context.Context, query *repository.AuditQuery, actor models.Actor) ([][]string, error) {
	if query.ListQuery == nil {
		query.ListQuery = repository.NewListQuery()
	}
	query.Page = 1
	query.PerPage = 200

	var rows [][]string
	for len(rows) < maxExportRows {
		logs, total, err := s.audit.List(ctx, query, actor)
		if err != nil {
			return nil, err
		}
		for _, l := range logs {
			rows = append(rows, auditRow(l))
		}
		if int64(query.Page*query.PerPage) >= total || len(logs) == 0 {
			break
		}
		query.Page++
	}
	return rows, nil
}

func auditRow(l models.AuditLog) []string {
	user := strconv.FormatUint(uint64(l.UserID), 10)
	if l.User != nil && l.User.Email != "" {
		user = l.User.Email
	}
	fields := ""
	if len(l.Changes) > 0 {
		b, _ := json.Marshal(l.Changes.Fields())
		fields = string(b)
	}
	reason := ""
	if l.Reason != nil {
		reason = *l.Reason
	}
	return []string{
		strconv.FormatUint(uint64(l.ID), 10),
		l.CreatedAt.Format("2006-01-02 15:04:05"),
		l.Entity,
		l.RecordID,
		string(l.Action),
		user,
		fields,
		reason,
		l.IPAddress,
	}
}

// ExportAuditCSV renders the filtered audit trail as CSV
func (s *ExportService) ExportAuditCSV(ctx context.Context, query *repository.AuditQuery, actor models.Actor) ([]byte, string, error) {
	rows, err := s.auditRows(ctx, query, actor)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)
	_ = writer.Write(auditExportHeader)
	for _, row := range rows {
		_ = writer.Write(row)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("audit_trail_%s.csv", s.now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportAuditXLSX renders the filtered audit trail as a spreadsheet
func (s *ExportService) ExportAuditXLSX(ctx context.Context, query *repository.AuditQuery, actor models.Actor) ([]byte, string, error) {
	rows, err := s.auditRows(ctx, query, actor)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Auditoria"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for col, title := range auditExportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, title)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(auditExportHeader), 1)
	_ = f.SetCellStyle(sheet, "A1", lastHeader, headerStyle)

	for i, row := range rows {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}
	_ = f.SetColWidth(sheet, "B", "B", 20)
	_ = f.SetColWidth(sheet, "G", "G", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("audit_trail_%s.xlsx", s.now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// TransactionVoucherPDF renders a one-page voucher for transaction id
func (s *ExportService) TransactionVoucherPDF(ctx context.Context, id uint, actor models.Actor) ([]byte, string, error) {
	tx, err := s.transactions.FindByID(ctx, id, actor)
	if err != nil {
		return nil, "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, tr("Comprobante de transaccion"))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, tx.TransactionCode)
	pdf.Ln(10)

	line := func(label, value string) {
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(60, 8, tr(label))
		pdf.Cell(100, 8, tr(value))
		pdf.Ln(6)
	}

	line("Tipo:", string(tx.TransactionType))
	line("Fecha:", tx.TransactionDate.Format("2006-01-02"))
	line("Monto:", tx.Amount.StringFixed(2))
	line("Son:", AmountInWords(tx.Amount, voucherCurrency))
	line("Unidad de negocio:", strconv.FormatUint(uint64(tx.BusinessUnitID), 10))
	line("Asignacion de costo:", string(tx.CostAllocation))
	line("Estado de aprobacion:", string(tx.ApprovalStatus))
	line("Estado de pago:", string(tx.PaymentStatus))
	if tx.Description != nil {
		line("Descripcion:", *tx.Description)
	}
	if tx.RejectionReason != nil {
		line("Motivo de rechazo:", *tx.RejectionReason)
	}
	if tx.ApprovedAt != nil {
		line("Aprobado el:", tx.ApprovedAt.Format("2006-01-02 15:04"))
	}
	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 8)
	pdf.Cell(40, 8, fmt.Sprintf("Generado %s", s.now().Format("2006-01-02 15:04")))

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("voucher_%s.pdf", tx.TransactionCode)
	return buf.Bytes(), filename, nil
}
