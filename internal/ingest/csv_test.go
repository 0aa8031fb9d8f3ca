package ingest

import (
	"strings"
	"testing"
)

func TestRead_BasicExport(t *testing.T) {
	csvData := `Symbol,Description,Quantity,Last Price,Beta
AAPL,APPLE INC,100,"$150.00",1.20
TSLA,TESLA INC,-50,"$200.00",1.50
-AAPL250117C150,CALL (AAPL) APPLE INC JAN 17 25 $150,2,"$5.25",
SPAXX,FIDELITY GOVERNMENT MONEY MARKET,"1,500","$1.00",0.01
Account Total,,,"$25,000.00",
`
	rows, err := Read(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows (total row skipped), got %d", len(rows))
	}

	if rows[0].Symbol != "AAPL" || rows[0].Quantity != 100 || rows[0].LastPrice != 150.0 {
		t.Errorf("row 0 wrong: %+v", rows[0])
	}
	if !rows[0].HasBeta || rows[0].Beta != 1.2 {
		t.Errorf("row 0 beta wrong: %+v", rows[0])
	}
	if rows[1].Quantity != -50 {
		t.Errorf("short quantity: expected -50, got %d", rows[1].Quantity)
	}
	if rows[2].Symbol != "-AAPL250117C150" {
		t.Errorf("option symbol mangled: %q", rows[2].Symbol)
	}
	if rows[2].HasBeta {
		t.Error("blank beta cell must not set HasBeta")
	}
	if rows[3].Quantity != 1500 {
		t.Errorf("thousands-comma quantity: expected 1500, got %d", rows[3].Quantity)
	}
}

func TestRead_HeaderAliasesAndParens(t *testing.T) {
	csvData := `Ticker,Name,Qty,Price
MSFT,MICROSOFT CORP,10,400.50
XOM,EXXON MOBIL,(25),110.00
`
	rows, err := Read(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].LastPrice != 400.5 {
		t.Errorf("price: expected 400.5, got %g", rows[0].LastPrice)
	}
	if rows[1].Quantity != -25 {
		t.Errorf("accounting negative: expected -25, got %d", rows[1].Quantity)
	}
}

func TestRead_DisclaimerFooterSkipped(t *testing.T) {
	csvData := `Symbol,Description,Quantity,Last Price
AAPL,APPLE INC,100,150.00

"Brokerage services are provided by Example Securities LLC."
"Data as of market close."
`
	rows, err := Read(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, footer not skipped: got %d", len(rows))
	}
}

func TestRead_MissingRequiredColumns(t *testing.T) {
	csvData := `Foo,Bar
a,b
`
	if _, err := Read(strings.NewReader(csvData)); err == nil {
		t.Fatal("expected error for missing required columns")
	}
}
