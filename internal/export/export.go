// Package export writes rate cards (a fixed list of sats amounts priced in every
// display currency) to spreadsheets.
package export

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/wallet/internal/conversion"
	"github.com/mtlprog/wallet/internal/domain"
	"github.com/mtlprog/wallet/internal/price"
)

// DefaultAmounts are the rows of a rate card when none are configured.
var DefaultAmounts = []domain.Sats{1_000, 10_000, 100_000, 1_000_000, 10_000_000, 100_000_000}

// RateRow is one amount expressed in every display currency.
type RateRow struct {
	Sats domain.Sats
	BTC  decimal.Decimal
	USD  decimal.Decimal
	// Text holds the formatted value per currency, as the amount field would show it.
	Text map[domain.DisplayCurrency]string
}

// RateCard is a priced set of rows.
type RateCard struct {
	PerBTC    decimal.Decimal
	Source    string
	FetchedAt time.Time
	Rows      []RateRow
}

// SheetWriter writes a rate card to a spreadsheet destination.
type SheetWriter interface {
	Write(ctx context.Context, card RateCard) error
}

// BuildRateCard prices amounts at q. Amounts are deduplicated and sorted ascending.
func BuildRateCard(q price.Quote, amounts []domain.Sats) RateCard {
	amounts = lo.Uniq(amounts)
	slices.Sort(amounts)

	table := conversion.NewTable(q.Price)
	rows := lo.Map(amounts, func(a domain.Sats, _ int) RateRow {
		text := make(map[domain.DisplayCurrency]string, len(domain.DisplayCurrencies))
		for _, c := range domain.DisplayCurrencies {
			text[c] = table.For(c).Format(a)
		}
		return RateRow{
			Sats: a,
			BTC:  a.BTC(),
			USD:  table.For(domain.CurrencySats).SecondaryAmount(a),
			Text: text,
		}
	})

	return RateCard{
		PerBTC:    q.Price.PerBTC(),
		Source:    q.Source,
		FetchedAt: q.FetchedAt,
		Rows:      rows,
	}
}

// Service builds rate cards and delegates writing to a SheetWriter.
type Service struct {
	writer  SheetWriter
	amounts []domain.Sats
}

// NewService creates a new export Service. Empty amounts select DefaultAmounts.
func NewService(writer SheetWriter, amounts []domain.Sats) *Service {
	if len(amounts) == 0 {
		amounts = DefaultAmounts
	}
	return &Service{writer: writer, amounts: slices.Clone(amounts)}
}

// Export writes the rate card for q.
func (s *Service) Export(ctx context.Context, q price.Quote) error {
	if q.Price.IsZero() {
		return fmt.Errorf("exporting rate card: %w", domain.ErrInvalidPrice)
	}
	card := BuildRateCard(q, s.amounts)
	if err := s.writer.Write(ctx, card); err != nil {
		return fmt.Errorf("writing rate card: %w", err)
	}
	return nil
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// rateValues lays out the rate card as header plus one row per amount.
// Columns: Sats | BTC | USD
func rateValues(card RateCard) [][]any {
	data := make([][]any, 0, len(card.Rows)+1)
	data = append(data, []any{"Sats", "BTC", "USD"})
	for _, row := range card.Rows {
		data = append(data, []any{int64(row.Sats), toFloat(row.BTC), toFloat(row.USD.Round(2))})
	}
	return data
}

var historyHeader = []any{"Date", "USD per BTC", "Source"}

// historyRow is the single line appended per export.
// Columns: Date | USD per BTC | Source
func historyRow(card RateCard) []any {
	at := card.FetchedAt
	if at.IsZero() {
		at = time.Now()
	}
	return []any{at.UTC().Format("02.01.2006 15:04"), toFloat(card.PerBTC), card.Source}
}
