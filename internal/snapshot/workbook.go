package snapshot

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/edvin/mptclone/internal/mpt"
)

// mpnProgramID identifies the partner program whose certificate carries the
// reseller MPN.
const mpnProgramID = "PRG-0742-8320"

var workbookHeaders = []string{
	"ID", "Vendor Sub ID", "Client Sub ID", "Name", "Status", "Agreement ID",
	"Agreement CCO", "Agreement Client ID", "Agreement Name", "Agreement Vendor ID",
	"Agreement Authorization ID", "Buyer ID", "Buyer SCU", "Buyer Name", "Seller ID",
	"Seller Nav", "Seller Name", "Item Name", "Item ID", "Item MS ID", "billing period",
	"Commitment period", "Markup", "Margin", "Currency", "Unit SP", "Unit PP", "Quantity",
	"AutoRenew", "Start date", "Commitment date", "Original domain", "From Migrated Data",
	"Tier 2/Resell", "MPN",
}

// MarkupRow is one workbook line of the markup request: a subscription line
// item with its desired markup and, when present, an overridden purchase
// price.
type MarkupRow struct {
	SubscriptionID string
	VendorSubID    string
	ItemID         string
	Markup         float64
	UnitPP         *float64
}

// WriteWorkbook renders the subscription report. One row per active line;
// subscriptions without active lines are skipped and logged.
func (s *Store) WriteWorkbook(subscriptions []mpt.Document, logger zerolog.Logger) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := f.SetSheetRow(sheet, "A1", &workbookHeaders); err != nil {
		return fmt.Errorf("write workbook headers: %w", err)
	}
	for i, header := range workbookHeaders {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(len(header)+7)); err != nil {
			return err
		}
	}

	row := 2
	processed, skipped := 0, 0
	for _, sub := range subscriptions {
		if sub.ID() == "" || sub.Str("name") == "" {
			logger.Error().Str("subscription", sub.ID()).Msg("missing basic subscription data, skipping")
			skipped++
			continue
		}

		lines := sub.Docs("lines")
		if len(lines) == 0 {
			logger.Warn().Str("subscription", sub.ID()).Msg("subscription has no lines, skipping")
			skipped++
			continue
		}

		wrote := false
		for _, line := range lines {
			if !strings.EqualFold(line.Str("status"), "active") {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := subscriptionRow(sub, line)
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return fmt.Errorf("write workbook row %d: %w", row, err)
			}
			row++
			processed++
			wrote = true
		}
		if !wrote {
			logger.Warn().Str("subscription", sub.ID()).Msg("no active lines, skipping")
			skipped++
		}
	}

	if err := os.MkdirAll(s.Dir(), 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := f.SaveAs(s.WorkbookPath()); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	logger.Info().Int("rows", processed).Int("skipped", skipped).Str("path", s.WorkbookPath()).
		Msg("subscription workbook written")
	return nil
}

func subscriptionRow(sub, line mpt.Document) []any {
	markup := round2(line.Float("price", "markup"))
	if markup == 0 {
		markup = round2(sub.Float("price", "defaultMarkup"))
	}
	margin := round2(line.Float("price", "margin"))
	if margin == 0 {
		dm := sub.Float("price", "defaultMarkup")
		margin = round2((dm / 100) / (1 + dm/100) * 100)
	}

	autoRenew := "Disabled"
	if sub.Bool("autoRenew") {
		autoRenew = "Enabled"
	}

	isReseller := sub.Bool("licensee", "eligibility", "partner")
	mpn := "-"
	if isReseller {
		mpn = certificateMPN(sub.Docs("agreement", "certificates"))
	}

	quantity := line["quantity"]
	if quantity == nil {
		quantity = "1"
	}

	return []any{
		sub.ID(),
		sub.Str("externalIds", "vendor"),
		sub.Str("externalIds", "client"),
		sub.Str("name"),
		sub.Str("status"),
		sub.Str("agreement", "id"),
		sub.Str("agreement", "externalIds", "operations"),
		sub.Str("agreement", "externalIds", "client"),
		sub.Str("agreement", "name"),
		sub.Str("agreement", "externalIds", "vendor"),
		sub.Str("agreement", "authorization", "externalIds", "operations"),
		sub.Str("buyer", "externalIds", "erpCustomer"),
		sub.Str("buyer", "id"),
		sub.Str("buyer", "name"),
		sub.Str("seller", "id"),
		sub.Str("seller", "externalId"),
		sub.Str("seller", "name"),
		line.Str("item", "name"),
		line.Str("item", "id"),
		line.Str("item", "externalIds", "vendor"),
		sub.Str("terms", "period"),
		sub.Str("terms", "commitment"),
		markup,
		margin,
		line.Str("price", "currency"),
		line.Float("price", "unitSP"),
		line.Float("price", "unitPP"),
		quantity,
		autoRenew,
		cleanDate(sub.Str("startDate")),
		cleanDate(sub.Str("commitmentDate")),
		orderingParameter(sub.Docs("agreement", "parameters", "ordering"), "ExistingDomainName"),
		"No",
		isReseller,
		mpn,
	}
}

func certificateMPN(certificates []mpt.Document) string {
	for _, cert := range certificates {
		if cert.Str("program", "id") == mpnProgramID {
			if v := cert.Str("externalIds", "vendor"); v != "" {
				return v
			}
			return "-"
		}
	}
	return "-"
}

func orderingParameter(params []mpt.Document, externalID string) string {
	for _, p := range params {
		if strings.EqualFold(p.Str("externalId"), externalID) {
			return p.Str("displayValue")
		}
	}
	return ""
}

func cleanDate(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "T", " "), "Z", "")
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// ReadSubscriptionIDs returns the values of the ID column, deduplicated in
// workbook order. Editing the workbook down to a subset of rows scopes the
// create stage to those subscriptions.
func (s *Store) ReadSubscriptionIDs() ([]string, error) {
	rows, err := s.workbookRows()
	if err != nil {
		return nil, err
	}
	headers := headerIndex(rows)
	idCol, ok := headers["ID"]
	if !ok {
		return nil, fmt.Errorf("workbook %s has no ID column", s.WorkbookPath())
	}

	seen := make(map[string]bool)
	var ids []string
	for _, row := range rows[1:] {
		if idCol >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[idCol])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// ReadMarkupRows parses the markup request out of the workbook. Rows with an
// empty ID, vendor subscription ID, item ID or markup are skipped.
func (s *Store) ReadMarkupRows() ([]MarkupRow, error) {
	rows, err := s.workbookRows()
	if err != nil {
		return nil, err
	}
	headers := headerIndex(rows)
	for _, required := range []string{"ID", "Vendor Sub ID", "Item ID", "Markup"} {
		if _, ok := headers[required]; !ok {
			return nil, fmt.Errorf("workbook %s is missing required column %q", s.WorkbookPath(), required)
		}
	}

	cell := func(row []string, name string) string {
		col, ok := headers[name]
		if !ok || col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	var out []MarkupRow
	for _, row := range rows[1:] {
		markupRaw := cell(row, "Markup")
		r := MarkupRow{
			SubscriptionID: cell(row, "ID"),
			VendorSubID:    cell(row, "Vendor Sub ID"),
			ItemID:         cell(row, "Item ID"),
		}
		if r.SubscriptionID == "" || r.VendorSubID == "" || r.ItemID == "" || markupRaw == "" {
			continue
		}
		markup, err := strconv.ParseFloat(markupRaw, 64)
		if err != nil {
			continue
		}
		r.Markup = markup
		if raw := cell(row, "Unit PP"); raw != "" {
			if pp, err := strconv.ParseFloat(raw, 64); err == nil {
				r.UnitPP = &pp
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) workbookRows() ([][]string, error) {
	f, err := excelize.OpenFile(s.WorkbookPath())
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read workbook rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook %s is empty", s.WorkbookPath())
	}
	return rows, nil
}

func headerIndex(rows [][]string) map[string]int {
	headers := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		if h = strings.TrimSpace(h); h != "" {
			headers[h] = i
		}
	}
	return headers
}
