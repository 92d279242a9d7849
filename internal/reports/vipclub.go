// Package reports строит Excel-отчёты VIP-клуба для администратора барбершопа.
package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/barber-club/internal/domain/subscriptions"
)

const (
	MonthLayout = "2006-01"

	SheetTransactions = "Transactions"
	SheetUsage        = "Usage"
)

var ErrInvalidMonth = errors.New("reports: month must be YYYY-MM")

// Source — *subscriptions.Repo.
type Source interface {
	ListTransactions(ctx context.Context, barbershopID uuid.UUID, from, to time.Time) ([]subscriptions.TransactionRow, error)
	ListUsage(ctx context.Context, barbershopID uuid.UUID, from, to time.Time) ([]subscriptions.UsageRow, error)
}

// Archiver — *storage.S3.
type Archiver interface {
	PutXLSX(ctx context.Context, key string, data []byte) error
}

type Report struct {
	FileName string
	Data     []byte
}

type VIPClub struct {
	src     Source
	archive Archiver // nil — не архивируем
	loc     *time.Location
	log     *slog.Logger
}

func NewVIPClub(src Source, archive Archiver, loc *time.Location, log *slog.Logger) *VIPClub {
	if loc == nil {
		loc = time.Local
	}
	return &VIPClub{src: src, archive: archive, loc: loc, log: log}
}

// ParseMonth превращает "2025-03" в полуинтервал [1 марта, 1 апреля) в зоне loc.
func ParseMonth(month string, loc *time.Location) (from, to time.Time, err error) {
	t, err := time.ParseInLocation(MonthLayout, month, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	from, to = subscriptions.MonthWindow(t, loc)
	return from, to, nil
}

func (r *VIPClub) Build(ctx context.Context, barbershopID uuid.UUID, month string) (*Report, error) {
	from, to, err := ParseMonth(month, r.loc)
	if err != nil {
		return nil, err
	}

	txs, err := r.src.ListTransactions(ctx, barbershopID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	usage, err := r.src.ListUsage(ctx, barbershopID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}

	data, err := r.render(txs, usage)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		FileName: fmt.Sprintf("clube_vip_%s.xlsx", month),
		Data:     data,
	}

	if r.archive != nil {
		key := fmt.Sprintf("reports/%s/%s.xlsx", barbershopID, month)
		if err := r.archive.PutXLSX(ctx, key, data); err != nil {
			r.log.Warn("report archive failed", "barbershop_id", barbershopID, "month", month, "err", err)
		}
	}
	return rep, nil
}

func (r *VIPClub) render(txs []subscriptions.TransactionRow, usage []subscriptions.UsageRow) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// переименовываем дефолтный Sheet1
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetTransactions); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetUsage); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}

	txRows := make([][]any, 0, len(txs))
	total := 0.0
	for _, t := range txs {
		txRows = append(txRows, []any{
			t.CreatedAt.In(r.loc).Format(subscriptions.LabelLayout),
			t.ClientName,
			t.Amount,
			paymentMethodPT(t.PaymentMethod),
			t.Status,
		})
		total += t.Amount
	}
	if len(txRows) > 0 {
		txRows = append(txRows, []any{"Total", "", total, "", ""})
	}
	if err := writeSheet(f, SheetTransactions,
		[]any{"Data", "Cliente", "Valor (R$)", "Forma de pagamento", "Status"}, txRows); err != nil {
		return nil, err
	}

	usageRows := make([][]any, 0, len(usage))
	for _, u := range usage {
		var limit any = u.QuantityLimit
		if u.QuantityLimit == 0 {
			limit = "ilimitado"
		}
		usageRows = append(usageRows, []any{u.ClientName, u.ServiceName, u.Used, limit})
	}
	if err := writeSheet(f, SheetUsage,
		[]any{"Cliente", "Serviço", "Usado", "Limite"}, usageRows); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func paymentMethodPT(m string) string {
	switch m {
	case subscriptions.PaymentMethodCash:
		return "dinheiro"
	case "credit_card":
		return "cartão de crédito"
	case "pix":
		return "pix"
	case "boleto":
		return "boleto"
	}
	return m
}
