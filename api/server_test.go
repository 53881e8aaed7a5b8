package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/xuri/excelize/v2"

	"github.com/seenimoa/investorfolio/internal/config"
	"github.com/seenimoa/investorfolio/internal/logging"
	"github.com/seenimoa/investorfolio/pkg/models"
	"github.com/seenimoa/investorfolio/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

// fakeSource records the requested quarter and returns canned rows.
type fakeSource struct {
	rows     []models.PortfolioRow
	err      error
	got      *models.Quarter
	unscoped int // calls without a quarter
}

func (f *fakeSource) Fetch(_ context.Context, q *models.Quarter) ([]models.PortfolioRow, error) {
	if q == nil {
		f.unscoped++
	} else {
		cp := *q
		f.got = &cp
	}
	return f.rows, f.err
}

// fixedNow is 10 Aug 2025 IST, inside Q2 FY2025.
func fixedNow() time.Time {
	return time.Date(2025, time.August, 10, 11, 0, 0, 0, utils.IST)
}

func testConfig() *config.Config {
	return &config.Config{
		Source: config.SourceConfig{BaseURL: "http://rows.test", TimeoutSec: 5},
		View:   config.ViewConfig{HistoryQuarters: 8},
	}
}

func testServer(t *testing.T, src *fakeSource) *Server {
	t.Helper()
	return NewServer(testConfig(), src, logging.Discard(), fixedNow)
}

func sampleRows() []models.PortfolioRow {
	return []models.PortfolioRow{
		models.RowFromValues(1, "Acme", "1,000", "New", "-", "1.0%", "end"),
		models.RowFromValues(2, "Acme", "50", "Old", "", "", "end"),
		models.RowFromValues(3, "Beta", "200", "New", "", "0.2%", "end"),
		models.RowFromValues(4, "Beta", "999", "New", "", "9.9%", "end"),
	}
}

func do(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
	return APIResponse{Success: raw.Success, Error: raw.Error}
}

// ════════════════════════════════════════════════════════════════════
// Health / quarters
// ════════════════════════════════════════════════════════════════════

func TestHandleHealth(t *testing.T) {
	srv := testServer(t, &fakeSource{})
	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := do(t, srv, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		var data map[string]interface{}
		resp := decodeResponse(t, rec, &data)
		if !resp.Success || data["status"] != "ok" {
			t.Errorf("%s: resp=%+v data=%v", path, resp, data)
		}
	}
}

func TestHandleQuarters(t *testing.T) {
	srv := testServer(t, &fakeSource{})
	rec := do(t, srv, "/api/v1/quarters")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var data QuartersResponse
	decodeResponse(t, rec, &data)

	if data.Current != (models.Quarter{Quarter: models.Q2, FinancialYear: 2025}) {
		t.Errorf("Current = %v", data.Current)
	}
	if len(data.Previous) != 8 {
		t.Fatalf("Previous len = %d, want 8", len(data.Previous))
	}
	if data.Previous[1] != (models.Quarter{Quarter: models.Q4, FinancialYear: 2024}) {
		t.Errorf("Previous[1] = %v, want Q4 2024", data.Previous[1])
	}
	if len(data.Headers) != 13 || data.Headers[5] != "Q1 2025" {
		t.Errorf("Headers = %v", data.Headers)
	}
}

// ════════════════════════════════════════════════════════════════════
// Rows
// ════════════════════════════════════════════════════════════════════

func TestHandleRows(t *testing.T) {
	src := &fakeSource{rows: sampleRows()}
	srv := testServer(t, src)

	rec := do(t, srv, "/api/v1/rows?quarter=Q1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var data RowsResponse
	decodeResponse(t, rec, &data)

	if src.got == nil || *src.got != (models.Quarter{Quarter: models.Q1, FinancialYear: 2025}) {
		t.Errorf("fetched quarter = %v, want Q1 2025", src.got)
	}
	if len(data.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(data.Rows))
	}
	if got := strings.Join(data.Rows[0].Cells, "|"); got != "1|Acme|1,000|New|-|1.0%" {
		t.Errorf("row 0 = %q", got)
	}
	if !data.Rows[0].Repeat || data.Rows[0].Color != "#cfffe3" {
		t.Errorf("Acme should be a repeat holder: %+v", data.Rows[0])
	}
	// Beta's second filing is dropped, but it still counts as a repeat.
	if !data.Rows[1].Repeat {
		t.Errorf("Beta should be a repeat holder: %+v", data.Rows[1])
	}
	if data.Occurrences["Acme"] != 2 || data.Occurrences["Beta"] != 2 {
		t.Errorf("occurrences = %v", data.Occurrences)
	}
	if data.Summary.TotalRows != 4 || data.Summary.NewFilings != 2 {
		t.Errorf("summary = %+v", data.Summary)
	}
	if data.Summary.SharesHeld.String() != "1200" {
		t.Errorf("shares held = %s, want 1200", data.Summary.SharesHeld)
	}
}

func TestHandleRowsDefaultQuarter(t *testing.T) {
	src := &fakeSource{rows: sampleRows()}
	srv := testServer(t, src)
	if rec := do(t, srv, "/api/v1/rows"); rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if src.got == nil || *src.got != (models.Quarter{Quarter: models.Q2, FinancialYear: 2025}) {
		t.Errorf("fetched quarter = %v, want current Q2 2025", src.got)
	}
}

func TestHandleRowsBadQuarter(t *testing.T) {
	srv := testServer(t, &fakeSource{})
	rec := do(t, srv, "/api/v1/rows?quarter=Q9")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	resp := decodeResponse(t, rec, nil)
	if resp.Success || resp.Error == "" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandleRowsFetchFailureIsEmpty(t *testing.T) {
	srv := testServer(t, &fakeSource{err: errors.New("connection refused")})
	rec := do(t, srv, "/api/v1/rows")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var data RowsResponse
	decodeResponse(t, rec, &data)
	if len(data.Rows) != 0 || data.Summary.TotalRows != 0 {
		t.Errorf("expected empty data, got %+v", data)
	}
}

// ════════════════════════════════════════════════════════════════════
// Page / export
// ════════════════════════════════════════════════════════════════════

func TestHandlePage(t *testing.T) {
	srv := testServer(t, &fakeSource{rows: sampleRows()})
	rec := do(t, srv, "/?quarter=Q3")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse HTML: %v", err)
	}
	if n := doc.Find("#portfolio tbody tr").Length(); n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}
	if href, _ := doc.Find("#download").Attr("href"); href != "/export?quarter=Q3" {
		t.Errorf("download href = %q", href)
	}
}

func TestHandlePageNoData(t *testing.T) {
	srv := testServer(t, &fakeSource{err: errors.New("boom")})
	rec := do(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No data found.") {
		t.Error("expected the no-data state")
	}
}

func TestHandlePageBadQuarter(t *testing.T) {
	srv := testServer(t, &fakeSource{})
	if rec := do(t, srv, "/?quarter=H2"); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// The page and the workbook must lay out the same rows the same way.
func TestPageAndExportAgree(t *testing.T) {
	srv := testServer(t, &fakeSource{rows: sampleRows()})

	page := do(t, srv, "/?quarter=Q2")
	doc, err := goquery.NewDocumentFromReader(page.Body)
	if err != nil {
		t.Fatalf("parse HTML: %v", err)
	}
	var screen [][]string
	doc.Find("#portfolio tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, td.Text())
		})
		screen = append(screen, cells)
	})

	rec := do(t, srv, "/export?quarter=Q2")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Portfolio_Q2_2025.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	sheet := "Portfolio_Q2_2025"
	book, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(book)-1 != len(screen) {
		t.Fatalf("workbook rows = %d, screen rows = %d", len(book)-1, len(screen))
	}
	for i, cells := range screen {
		for j, want := range cells {
			got, _ := f.GetCellValue(sheet, cellName(j+1, i+2))
			if got != want && !(want == "-" && got == "") {
				t.Errorf("row %d col %d: workbook %q, screen %q", i, j, got, want)
			}
		}
	}
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func TestHandleGetConfig(t *testing.T) {
	srv := testServer(t, &fakeSource{})
	rec := do(t, srv, "/api/v1/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var data config.Config
	decodeResponse(t, rec, &data)
	if data.Source.BaseURL != "http://rows.test" {
		t.Errorf("Source.BaseURL = %q", data.Source.BaseURL)
	}
}

func TestWriteError(t *testing.T) {
	srv := testServer(t, &fakeSource{})
	rec := httptest.NewRecorder()
	srv.writeError(rec, http.StatusBadRequest, "bad input")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec, nil)
	if resp.Success || resp.Error != "bad input" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestWriteJSONLogsThroughServerLogger(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	srv := NewServer(testConfig(), &fakeSource{}, logger, fixedNow)

	rec := httptest.NewRecorder()
	srv.writeJSON(rec, http.StatusOK, APIResponse{Success: true, Data: math.Inf(1)})

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("encode failure was not logged on the server logger")
	}
	if entry.Level != logrus.ErrorLevel {
		t.Errorf("level = %v, want error", entry.Level)
	}
	if _, ok := entry.Data[logrus.ErrorKey]; !ok {
		t.Errorf("entry fields = %v, want an error field", entry.Data)
	}
}

func TestHandleRawRows(t *testing.T) {
	src := &fakeSource{rows: sampleRows()}
	srv := testServer(t, src)

	rec := do(t, srv, "/api/v1/rows/raw")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if src.unscoped != 1 || src.got != nil {
		t.Errorf("raw rows must be fetched without a quarter: unscoped=%d got=%v", src.unscoped, src.got)
	}

	var rows [][]interface{}
	decodeResponse(t, rec, &rows)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want all 4 fetched rows", len(rows))
	}
	if rows[1][1] != "Acme" || rows[1][3] != "Old" {
		t.Errorf("row 1 = %v, want the unfiltered Old filing", rows[1])
	}
}

func TestHandleRawRowsFetchFailure(t *testing.T) {
	srv := testServer(t, &fakeSource{err: errors.New("connection refused")})
	rec := do(t, srv, "/api/v1/rows/raw")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if resp := decodeResponse(t, rec, nil); resp.Success {
		t.Errorf("resp = %+v", resp)
	}
}

// A clock reporting UTC still selects quarters by the Indian date.
func TestQuartersUseISTForUTCClock(t *testing.T) {
	utcNow := func() time.Time {
		// 31 Mar 2025 20:00 UTC is 1 Apr 2025 01:30 IST.
		return time.Date(2025, time.March, 31, 20, 0, 0, 0, time.UTC)
	}
	srv := NewServer(testConfig(), &fakeSource{}, logging.Discard(), utcNow)

	rec := do(t, srv, "/api/v1/quarters")
	var data QuartersResponse
	decodeResponse(t, rec, &data)
	if data.Current != (models.Quarter{Quarter: models.Q1, FinancialYear: 2025}) {
		t.Errorf("Current = %v, want Q1 2025", data.Current)
	}
}

func TestBadHistoryIsServerError(t *testing.T) {
	cfg := testConfig()
	cfg.View.HistoryQuarters = -1
	srv := NewServer(cfg, &fakeSource{}, logging.Discard(), fixedNow)
	for _, path := range []string{"/api/v1/quarters", "/api/v1/rows", "/", "/export"} {
		if rec := do(t, srv, path); rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: status = %d, want 500", path, rec.Code)
		}
	}
}
