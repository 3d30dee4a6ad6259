package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pulseboard/internal/client/actiongw"
	"pulseboard/internal/config"
	"pulseboard/internal/jsonscan"
	"pulseboard/internal/models"
	"pulseboard/internal/normalize"
	"pulseboard/internal/repository"
)

const salesBatchSize = 50

// SalesSyncService reads the sales sheet through the action gateway,
// normalizes rows, and replaces the sales table wholesale.
type SalesSyncService struct {
	Gateway *actiongw.Client
	Repo    repository.Repository
	Config  config.SalesConfig
	Account string
	Logger  *zap.Logger
}

func (s *SalesSyncService) Name() string { return "sales" }

func (s *SalesSyncService) Sync(ctx context.Context, runID string) TaskOutcome {
	if s.Gateway == nil || strings.TrimSpace(s.Gateway.APIKey) == "" {
		return TaskOutcome{Name: s.Name(), Status: TaskSkipped, Detail: "gateway api key not configured"}
	}
	if strings.TrimSpace(s.Config.SpreadsheetID) == "" {
		return TaskOutcome{Name: s.Name(), Status: TaskSkipped, Detail: "spreadsheet id not configured"}
	}

	detail, err := s.sync(ctx, runID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("sales sync failed", zap.String("run_id", runID), zap.Error(err))
		}
		return TaskOutcome{Name: s.Name(), Status: TaskError, Detail: err.Error()}
	}
	return TaskOutcome{Name: s.Name(), Status: TaskOK, Detail: detail}
}

func (s *SalesSyncService) sync(ctx context.Context, runID string) (string, error) {
	payload, err := s.Gateway.Execute(ctx, "GOOGLESHEETS_BATCH_GET", map[string]any{
		"spreadsheet_id":       s.Config.SpreadsheetID,
		"ranges":               []string{s.Config.EffectiveRange()},
		"valueRenderOption":    "UNFORMATTED_VALUE",
		"dateTimeRenderOption": "FORMATTED_STRING",
	}, s.Account)
	if err != nil {
		return "", err
	}

	matrix := extractSheetMatrix(payload)
	if len(matrix) < 2 {
		if err := s.Repo.ReplaceSalesRows(ctx, nil, salesBatchSize); err != nil {
			return "", err
		}
		return "no sales rows found in source sheet", nil
	}

	roles, err := resolveColumns(matrix[0], s.Config)
	if err != nil {
		return "", err
	}

	currency := strings.TrimSpace(s.Config.Currency)
	if currency == "" {
		currency = "USD"
	}

	rows := make([]models.SalesRow, 0, len(matrix)-1)
	for i, raw := range matrix[1:] {
		// Spreadsheet row addressing counts the header, so the first data
		// row is 2.
		rowNumber := i + 2
		row, ok := buildSalesRow(raw, roles, rowNumber, currency, runID)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}

	if err := s.Repo.ReplaceSalesRows(ctx, rows, salesBatchSize); err != nil {
		return "", err
	}
	return fmt.Sprintf("loaded %d sales rows", len(rows)), nil
}

// buildSalesRow normalizes one sheet row. Rows missing a parseable date,
// a product name, a positive quantity, or any money figure are dropped.
func buildSalesRow(raw []any, roles columnRoles, rowNumber int, currency, runID string) (models.SalesRow, bool) {
	saleDate, ok := normalize.NormalizeDate(cellString(cellAt(raw, roles.date)))
	if !ok {
		return models.SalesRow{}, false
	}
	product := strings.TrimSpace(cellString(cellAt(raw, roles.product)))
	if product == "" {
		return models.SalesRow{}, false
	}

	qtyNum, _ := normalize.NumberFrom(cellAt(raw, roles.quantity))
	quantity := int(math.Round(qtyNum))
	if quantity <= 0 {
		return models.SalesRow{}, false
	}

	amount := numberAt(raw, roles.amount)
	unitPrice := numberAt(raw, roles.price)
	if amount <= 0 && unitPrice <= 0 {
		return models.SalesRow{}, false
	}
	if amount <= 0 {
		amount = unitPrice * float64(quantity)
	}
	if unitPrice <= 0 {
		unitPrice = amount / float64(quantity)
	}

	hash := normalize.ContentHash(
		saleDate,
		product,
		strconv.Itoa(quantity),
		strconv.FormatFloat(amount, 'f', 2, 64),
		strconv.Itoa(rowNumber),
	)

	rawJSON, _ := json.Marshal(raw)
	return models.SalesRow{
		ID:          uuid.NewString(),
		RunID:       runID,
		RowIndex:    rowNumber,
		SaleDate:    saleDate,
		ProductName: product,
		Quantity:    quantity,
		UnitPrice:   decimal.NewFromFloat(unitPrice).Round(2),
		Amount:      decimal.NewFromFloat(amount).Round(2),
		Currency:    currency,
		RecordHash:  hash,
		RawJSON:     datatypes.JSON(rawJSON),
	}, true
}

// --- header resolution -------------------------------------------------------

type columnRoles struct {
	date     int
	product  int
	quantity int
	amount   int
	price    int
}

var (
	dateSynonyms    = []string{"Date", "Дата"}
	productSynonyms = []string{"Title", "Product", "Name", "Товар", "Наименование"}
	qtySynonyms     = []string{"Count", "Quantity", "Qty", "Кол-во", "Количество"}
	amountSynonyms  = []string{"Amount", "Sum", "Revenue", "Сумма", "Выручка"}
	priceSynonyms   = []string{"Cost", "Price", "Unit Price", "Цена"}
)

func resolveColumns(header []any, cfg config.SalesConfig) (columnRoles, error) {
	names := make([]string, len(header))
	for i, cell := range header {
		names[i] = strings.ToLower(strings.TrimSpace(cellString(cell)))
	}

	roles := columnRoles{
		date:     findHeaderIndex(names, cfg.ColDate, dateSynonyms),
		product:  findHeaderIndex(names, cfg.ColProduct, productSynonyms),
		quantity: findHeaderIndex(names, cfg.ColQuantity, qtySynonyms),
		amount:   findHeaderIndex(names, cfg.ColAmount, amountSynonyms),
		price:    findHeaderIndex(names, cfg.ColUnitPrice, priceSynonyms),
	}

	var missing []string
	if roles.date < 0 {
		missing = append(missing, "date")
	}
	if roles.product < 0 {
		missing = append(missing, "product")
	}
	if roles.quantity < 0 {
		missing = append(missing, "quantity")
	}
	if roles.amount < 0 && roles.price < 0 {
		missing = append(missing, "amount or unit price")
	}
	if len(missing) > 0 {
		return columnRoles{}, fmt.Errorf("sheet header is missing required columns: %s", strings.Join(missing, ", "))
	}
	return roles, nil
}

// findHeaderIndex tries the operator override first, then the synonym list.
func findHeaderIndex(names []string, override string, synonyms []string) int {
	candidates := make([]string, 0, len(synonyms)+1)
	if strings.TrimSpace(override) != "" {
		candidates = append(candidates, override)
	}
	candidates = append(candidates, synonyms...)
	for _, candidate := range candidates {
		want := strings.ToLower(strings.TrimSpace(candidate))
		for i, name := range names {
			if name == want {
				return i
			}
		}
	}
	return -1
}

// --- payload extraction ------------------------------------------------------

// extractSheetMatrix digs the [][]cell value grid out of the gateway payload,
// which nests it at varying depths depending on the upstream wrapper.
func extractSheetMatrix(payload any) [][]any {
	if matrix := asMatrix(payload); matrix != nil {
		return matrix
	}

	candidates := []any{payload}
	if obj := jsonscan.AsObject(payload); obj != nil {
		candidates = append(candidates, obj["values"], obj["valueRanges"])
		if data := jsonscan.AsObject(obj["data"]); data != nil {
			candidates = append(candidates, data["values"], data["valueRanges"])
		}
	}
	for _, candidate := range candidates {
		if matrix := asMatrix(candidate); matrix != nil {
			return matrix
		}
		// valueRanges style: a list of objects each holding a values grid.
		for _, item := range jsonscan.AsArray(candidate) {
			if obj := jsonscan.AsObject(item); obj != nil {
				if matrix := asMatrix(obj["values"]); matrix != nil {
					return matrix
				}
			}
		}
	}
	return nil
}

func asMatrix(value any) [][]any {
	arr := jsonscan.AsArray(value)
	if len(arr) == 0 {
		return nil
	}
	matrix := make([][]any, 0, len(arr))
	for _, row := range arr {
		cells := jsonscan.AsArray(row)
		if cells == nil {
			return nil
		}
		matrix = append(matrix, cells)
	}
	return matrix
}

// --- cell helpers ------------------------------------------------------------

func cellAt(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func numberAt(row []any, idx int) float64 {
	num, ok := normalize.NumberFrom(cellAt(row, idx))
	if !ok || num < 0 {
		return 0
	}
	return num
}

func cellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", v)
	}
}
