package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"pulseboard/internal/config"
	"pulseboard/internal/models"
)

func TestSalesSync_EndToEnd(t *testing.T) {
	gateway, closeFn := gatewayFor(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"valueRanges":[{"range":"Sales!A:Z","values":[
			["Дата","Товар","Кол-во","Сумма"],
			["2026-03-01","Widget",2,"1 200,50"],
			["2026-03-02","Gadget",0,"10"],
			["2026-03-02","Gizmo","3","99.90"]
		]}]}}`)
	})
	defer closeFn()

	repo := newStubRepo()
	svc := &SalesSyncService{
		Gateway: gateway,
		Repo:    repo,
		Config:  config.SalesConfig{SpreadsheetID: "sheet-1", Currency: "USD"},
	}

	outcome := svc.Sync(context.Background(), "run-1")
	if outcome.Status != TaskOK {
		t.Fatalf("outcome=%+v", outcome)
	}
	if outcome.Detail != "loaded 2 sales rows" {
		t.Fatalf("detail=%q", outcome.Detail)
	}
	if len(repo.salesRows) != 2 {
		t.Fatalf("rows=%d want 2 (zero-quantity row dropped)", len(repo.salesRows))
	}
	first := repo.salesRows[0]
	if first.ProductName != "Widget" || first.Amount.String() != "1200.5" {
		t.Fatalf("first row=%+v", first)
	}
	if first.Currency != "USD" || first.RunID != "run-1" {
		t.Fatalf("first row meta=%+v", first)
	}
	// Row addressing counts the header row, so the first data row is 2.
	if first.RowIndex != 2 {
		t.Fatalf("rowIndex=%d want 2", first.RowIndex)
	}
	if repo.salesRows[1].RowIndex != 4 {
		t.Fatalf("rowIndex=%d want 4 (dropped row keeps its sheet position)", repo.salesRows[1].RowIndex)
	}
}

func TestSalesSync_SkipsWithoutSpreadsheet(t *testing.T) {
	gateway, closeFn := gatewayFor(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("gateway should not be called")
	})
	defer closeFn()

	svc := &SalesSyncService{Gateway: gateway, Repo: newStubRepo()}
	outcome := svc.Sync(context.Background(), "run-1")
	if outcome.Status != TaskSkipped {
		t.Fatalf("outcome=%+v", outcome)
	}
}

func TestSalesSync_EmptySheetClearsTable(t *testing.T) {
	gateway, closeFn := gatewayFor(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"values":[["Date","Product","Qty","Amount"]]}}`)
	})
	defer closeFn()

	repo := newStubRepo()
	repo.salesRows = []models.SalesRow{{ProductName: "stale"}}
	svc := &SalesSyncService{
		Gateway: gateway,
		Repo:    repo,
		Config:  config.SalesConfig{SpreadsheetID: "sheet-1"},
	}

	outcome := svc.Sync(context.Background(), "run-1")
	if outcome.Status != TaskOK {
		t.Fatalf("outcome=%+v", outcome)
	}
	if len(repo.salesRows) != 0 {
		t.Fatalf("rows=%d want 0", len(repo.salesRows))
	}
}

func TestResolveColumns_RussianHeaders(t *testing.T) {
	header := []any{"Дата", "Товар", "Кол-во", "Сумма"}
	roles, err := resolveColumns(header, config.SalesConfig{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if roles.date != 0 || roles.product != 1 || roles.quantity != 2 || roles.amount != 3 {
		t.Fatalf("roles=%+v", roles)
	}
	if roles.price != -1 {
		t.Fatalf("price=%d want -1", roles.price)
	}
}

func TestResolveColumns_OverrideWins(t *testing.T) {
	header := []any{"Date", "Product", "Qty", "Amount", "Custom"}
	roles, err := resolveColumns(header, config.SalesConfig{ColAmount: "Custom"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if roles.amount != 4 {
		t.Fatalf("amount=%d want 4 (override column)", roles.amount)
	}
}

func TestResolveColumns_MissingRequired(t *testing.T) {
	header := []any{"Date", "Product"}
	if _, err := resolveColumns(header, config.SalesConfig{}); err == nil {
		t.Fatalf("expected error for missing quantity and money columns")
	}
}

func TestResolveColumns_PriceOnlyIsEnough(t *testing.T) {
	header := []any{"Date", "Product", "Qty", "Price"}
	roles, err := resolveColumns(header, config.SalesConfig{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if roles.amount != -1 || roles.price != 3 {
		t.Fatalf("roles=%+v", roles)
	}
}

func TestBuildSalesRow_AmountFromUnitPrice(t *testing.T) {
	roles := columnRoles{date: 0, product: 1, quantity: 2, amount: -1, price: 3}
	row, ok := buildSalesRow([]any{"05.03.2026", "Widget", float64(3), "1 200,50"}, roles, 1, "USD", "run-1")
	if !ok {
		t.Fatalf("row rejected")
	}
	if row.SaleDate != "2026-03-05" {
		t.Fatalf("saleDate=%q", row.SaleDate)
	}
	if got := row.Amount.String(); got != "3601.5" {
		t.Fatalf("amount=%s want 3601.5", got)
	}
	if got := row.UnitPrice.String(); got != "1200.5" {
		t.Fatalf("unitPrice=%s want 1200.5", got)
	}
}

func TestBuildSalesRow_RejectsInvalid(t *testing.T) {
	roles := columnRoles{date: 0, product: 1, quantity: 2, amount: 3, price: -1}
	cases := []struct {
		name string
		row  []any
	}{
		{"no date", []any{"garbage", "Widget", float64(1), float64(10)}},
		{"no product", []any{"2026-03-05", "  ", float64(1), float64(10)}},
		{"zero quantity", []any{"2026-03-05", "Widget", float64(0), float64(10)}},
		{"no money", []any{"2026-03-05", "Widget", float64(1), float64(0)}},
	}
	for _, tc := range cases {
		if _, ok := buildSalesRow(tc.row, roles, 1, "USD", "run-1"); ok {
			t.Fatalf("%s: row accepted", tc.name)
		}
	}
}

func TestBuildSalesRow_HashDependsOnPosition(t *testing.T) {
	roles := columnRoles{date: 0, product: 1, quantity: 2, amount: 3, price: -1}
	cells := []any{"2026-03-05", "Widget", float64(2), float64(100)}

	first, ok := buildSalesRow(cells, roles, 1, "USD", "run-1")
	if !ok {
		t.Fatalf("row rejected")
	}
	second, ok := buildSalesRow(cells, roles, 2, "USD", "run-1")
	if !ok {
		t.Fatalf("row rejected")
	}
	if first.RecordHash == second.RecordHash {
		t.Fatalf("hash should differ by row position")
	}
	again, _ := buildSalesRow(cells, roles, 1, "USD", "run-2")
	if first.RecordHash != again.RecordHash {
		t.Fatalf("hash should not depend on run id")
	}
}

func TestExtractSheetMatrix_Shapes(t *testing.T) {
	header := []any{"Date", "Amount"}
	row := []any{"2026-01-01", float64(5)}

	flat := []any{header, row}
	if got := extractSheetMatrix(flat); len(got) != 2 {
		t.Fatalf("flat: got %d rows", len(got))
	}

	wrapped := map[string]any{"values": flat}
	if got := extractSheetMatrix(wrapped); len(got) != 2 {
		t.Fatalf("values: got %d rows", len(got))
	}

	nested := map[string]any{"data": map[string]any{"values": flat}}
	if got := extractSheetMatrix(nested); len(got) != 2 {
		t.Fatalf("data.values: got %d rows", len(got))
	}

	valueRanges := map[string]any{
		"valueRanges": []any{
			map[string]any{"range": "Sales!A:Z", "values": flat},
		},
	}
	if got := extractSheetMatrix(valueRanges); len(got) != 2 {
		t.Fatalf("valueRanges: got %d rows", len(got))
	}

	if got := extractSheetMatrix(map[string]any{"foo": "bar"}); got != nil {
		t.Fatalf("unexpected matrix from junk payload: %v", got)
	}
}

func TestCellString_Numbers(t *testing.T) {
	if got := cellString(float64(1500000)); got != "1500000" {
		t.Fatalf("got %q", got)
	}
	if got := cellString(float64(12.5)); got != "12.5" {
		t.Fatalf("got %q", got)
	}
	if got := cellString(nil); got != "" {
		t.Fatalf("got %q", got)
	}
}
