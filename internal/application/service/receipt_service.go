package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/pkg/apperror"
	"github.com/sangkips/investify-till/pkg/email"
	"github.com/sangkips/investify-till/pkg/money"
	"github.com/sangkips/investify-till/pkg/printer"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReceiptService handles receipt formatting, thermal printing and sending
// receipts to customers.
type ReceiptService struct {
	printer     printer.Printer
	printerType string
	storeName   string
	width       int
	journal     repository.SettlementRepository
	sales       repository.SalesGateway
	mailer      *email.EmailService
	logger      *zap.Logger
}

// ReceiptOptions configures the printed header and paper width.
type ReceiptOptions struct {
	PrinterType string
	StoreName   string
	Width       int
}

// NewReceiptService creates a new receipt service.
func NewReceiptService(
	p printer.Printer,
	journal repository.SettlementRepository,
	sales repository.SalesGateway,
	mailer *email.EmailService,
	opts ReceiptOptions,
	logger *zap.Logger,
) *ReceiptService {
	if p == nil {
		p = printer.NewNullPrinter()
	}
	if opts.Width <= 0 {
		opts.Width = 32 // 58mm paper
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{
		printer:     p,
		printerType: opts.PrinterType,
		storeName:   opts.StoreName,
		width:       opts.Width,
		journal:     journal,
		sales:       sales,
		mailer:      mailer,
		logger:      logger,
	}
}

// PrinterStatus returns the current printer status information.
type PrinterStatus struct {
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Type       string `json:"type"`
}

// GetStatus returns printer connection status.
func (s *ReceiptService) GetStatus() *PrinterStatus {
	return &PrinterStatus{
		Configured: s.printerType != "none" && s.printerType != "",
		Connected:  s.printer.IsConnected(),
		Type:       s.printerType,
	}
}

// TestPrint sends a test page to the printer.
// Returns the receipt data so the handler can return it as JSON when printer is disabled.
func (s *ReceiptService) TestPrint() (*entity.Receipt, error) {
	receipt := &entity.Receipt{
		Header: entity.ReceiptHeader{
			StoreName: "PRINTER TEST",
			Address:   "Test Address",
			Phone:     "+254 000 000 000",
		},
		SalesID: "TEST-001",
		Date:    time.Now().Format("2006-01-02 15:04"),
		Items: []entity.ReceiptItem{
			{Name: "Test Item 1", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10), Total: decimal.NewFromInt(10)},
			{Name: "Test Item 2", Quantity: decimal.NewFromFloat(1.5), UnitPrice: decimal.NewFromInt(10), Total: decimal.NewFromInt(15)},
		},
		Total: decimal.NewFromInt(25),
		Paid:  decimal.NewFromInt(25),
		Due:   decimal.Zero,
	}

	data := FormatReceipt(receipt, s.width)
	if err := s.printer.Print(data); err != nil {
		return receipt, fmt.Errorf("test print failed: %w", err)
	}

	return receipt, nil
}

// Print reprints the receipt of a settlement recorded on this till.
func (s *ReceiptService) Print(ctx context.Context, salesID string) (*entity.Receipt, error) {
	record, err := s.record(ctx, salesID)
	if err != nil {
		return nil, err
	}
	return s.PrintRecord(record)
}

// PrintRecord prints the receipt for a journal record.
func (s *ReceiptService) PrintRecord(record *entity.SettlementRecord) (*entity.Receipt, error) {
	receipt := s.BuildReceipt(record)

	data := FormatReceipt(receipt, s.width)
	if err := s.printer.Print(data); err != nil {
		s.logger.Warn("printer error", zap.String("sales_id", record.SalesID), zap.Error(err))
		return receipt, fmt.Errorf("failed to print receipt: %w", err)
	}

	return receipt, nil
}

// Send delivers the receipt of a recorded settlement to the customer.
func (s *ReceiptService) Send(ctx context.Context, salesID, mobile string) error {
	record, err := s.record(ctx, salesID)
	if err != nil {
		return err
	}
	return s.SendRecord(ctx, record, mobile)
}

// SendRecord asks the backend to message the receipt to mobile (or the
// sale's mobile) and mails it when the customer has an email on file. It
// fails only if no channel succeeded.
func (s *ReceiptService) SendRecord(ctx context.Context, record *entity.SettlementRecord, mobile string) error {
	mobile = firstNonEmpty(mobile, record.Mobile)
	canMail := record.CustomerEmail != "" && s.mailer.Enabled()
	if mobile == "" && !canMail {
		return apperror.NewFieldError("mobile", "No mobile number or email to send the receipt to")
	}

	var firstErr error
	sent := false

	if mobile != "" {
		err := s.sales.SendReceipt(ctx, record.SalesID, &entity.SendReceiptRequest{MobileNumber: mobile})
		if err != nil {
			s.logger.Warn("receipt message failed", zap.String("sales_id", record.SalesID), zap.Error(err))
			firstErr = err
		} else {
			sent = true
		}
	}

	if canMail {
		if err := s.mailer.SendReceiptEmail(record.CustomerEmail, s.receiptEmail(s.BuildReceipt(record))); err != nil {
			s.logger.Warn("receipt email failed", zap.String("sales_id", record.SalesID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		} else {
			sent = true
		}
	}

	if !sent {
		return firstErr
	}
	return nil
}

// BuildReceipt composes a printable receipt from a journal record.
func (s *ReceiptService) BuildReceipt(record *entity.SettlementRecord) *entity.Receipt {
	receipt := &entity.Receipt{
		Header: entity.ReceiptHeader{
			StoreName: s.storeName,
		},
		SalesID:        record.SalesID,
		Date:           record.SalesDate.Format("2006-01-02 15:04"),
		Till:           record.TillID,
		Customer:       record.CustomerName,
		Total:          record.Total,
		CreditUsed:     record.CreditUsed,
		PointsRedeemed: record.PointsRedeemed,
		Paid:           record.Paid,
		Due:            record.Due,
	}

	for _, item := range record.Items {
		name := item.ItemName
		if name == "" {
			name = item.ItemCode
		}
		receipt.Items = append(receipt.Items, entity.ReceiptItem{
			Name:      name,
			Quantity:  item.Qty,
			Unit:      item.UOM,
			UnitPrice: item.Rate,
			Total:     item.Amount,
		})
	}
	for _, p := range record.Payments {
		receipt.Payments = append(receipt.Payments, entity.ReceiptPayment{
			Mode:      p.ModeOfPayment,
			Amount:    p.Amount,
			Reference: p.Reference,
		})
	}

	return receipt
}

func (s *ReceiptService) record(ctx context.Context, salesID string) (*entity.SettlementRecord, error) {
	record, err := s.journal.GetBySalesID(ctx, salesID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperror.NewNotFoundError("Sale")
	}
	return record, nil
}

func (s *ReceiptService) receiptEmail(r *entity.Receipt) email.ReceiptEmail {
	out := email.ReceiptEmail{
		StoreName: r.Header.StoreName,
		SalesID:   r.SalesID,
		Date:      r.Date,
		Customer:  r.Customer,
		Total:     money.Format(r.Total),
		Paid:      money.Format(r.Paid),
		Due:       money.Format(r.Due),
	}
	for _, item := range r.Items {
		out.Lines = append(out.Lines, email.ReceiptLine{
			Name:     item.Name,
			Quantity: item.Quantity.String(),
			Total:    money.Format(item.Total),
		})
	}
	return out
}

// FormatReceipt converts a Receipt into ESC/POS bytes.
func FormatReceipt(r *entity.Receipt, width int) []byte {
	doc := printer.NewDocument(width)

	// Header
	doc.SetAlign(printer.AlignCenter).
		SetBold(true).
		SetFontSize(printer.FontDouble).
		Text(r.Header.StoreName).
		SetFontSize(printer.FontNormal).
		SetBold(false)

	if r.Header.Address != "" {
		doc.Text(r.Header.Address)
	}
	if r.Header.Phone != "" {
		doc.Text(r.Header.Phone)
	}

	doc.SetAlign(printer.AlignLeft).
		Separator('-')

	doc.KeyValue("Receipt:", r.SalesID).
		KeyValue("Date:", r.Date)

	if r.Till != "" {
		doc.KeyValue("Till:", r.Till)
	}
	if r.Customer != "" {
		doc.KeyValue("Customer:", r.Customer)
	}

	doc.Separator('-')

	// Items
	one := decimal.NewFromInt(1)
	for _, item := range r.Items {
		doc.ItemLine(item.Quantity.String(), item.Name, money.Format(item.Total))
		if !item.Quantity.Equal(one) {
			if item.Unit != "" {
				doc.TextF("  @ %s / %s", money.Format(item.UnitPrice), item.Unit)
			} else {
				doc.TextF("  @ %s each", money.Format(item.UnitPrice))
			}
		}
	}

	doc.Separator('-')

	// Totals
	doc.SetBold(true).
		KeyValue("TOTAL:", money.Format(r.Total)).
		SetBold(false)

	for _, p := range r.Payments {
		doc.KeyValue(p.Mode+":", money.Format(p.Amount))
		if p.Reference != "" {
			doc.TextF("  Ref: %s", p.Reference)
		}
	}
	if r.CreditUsed.IsPositive() {
		doc.KeyValue("Credit:", money.Format(r.CreditUsed))
	}
	if r.PointsRedeemed.IsPositive() {
		doc.KeyValue("Points:", r.PointsRedeemed.String())
	}
	if r.Paid.IsPositive() {
		doc.KeyValue("Paid:", money.Format(r.Paid))
	}
	if r.Due.IsPositive() {
		doc.KeyValue("Due:", money.Format(r.Due))
	}

	doc.Separator('-')

	// Footer
	doc.SetAlign(printer.AlignCenter).
		LineFeed().
		Text("Thank you for your business!").
		LineFeed().
		SetAlign(printer.AlignLeft)

	doc.FeedLines(3).
		PartialCut()

	return doc.Bytes()
}
