package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/DRSN-tech/catalog-backend/internal/cfg"
	"github.com/DRSN-tech/catalog-backend/internal/domain"
	"github.com/DRSN-tech/catalog-backend/internal/infrastructure/excel"
	"github.com/DRSN-tech/catalog-backend/internal/infrastructure/upload"
	fileRepo "github.com/DRSN-tech/catalog-backend/internal/repository/file"
	"github.com/DRSN-tech/catalog-backend/internal/usecase"
	"github.com/DRSN-tech/catalog-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
)

type testApp struct {
	mux       *chi.Mux
	publicDir string
	storePath string
}

type createResp struct {
	Message string         `json:"message"`
	Product domain.Product `json:"product"`
}

type importResp struct {
	Message  string           `json:"message"`
	Count    int              `json:"count"`
	Products []domain.Product `json:"products"`
}

func setupApp(t *testing.T, fallback bool) *testApp {
	t.Helper()

	root := t.TempDir()
	publicDir := filepath.Join(root, "public")
	uploadsDir := filepath.Join(publicDir, cfg.UploadsSubdir)
	storePath := filepath.Join(root, "products.json")

	uploader := upload.NewUploader(uploadsDir, cfg.UploadsSubdir)
	if err := uploader.EnsureDir(); err != nil {
		t.Fatalf("ensure uploads dir: %v", err)
	}
	writeFile(t, filepath.Join(publicDir, indexPage), "<h1>catalog</h1>")
	writeFile(t, filepath.Join(publicDir, adminPage), "<h1>admin</h1>")

	log := logger.NewDiscard()
	uc := usecase.NewProductUC(
		fileRepo.NewProductRepo(storePath),
		nil,
		uploader,
		nil,
		nil,
		excel.NewSheetParser(),
		&cfg.CatalogCfg{DeleteIndexFallback: fallback},
		log,
	)

	mux := chi.NewRouter()
	NewRouter(mux, log).Init(uc, publicDir)

	return &testApp{mux: mux, publicDir: publicDir, storePath: storePath}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.mux.ServeHTTP(rr, req)
	return rr
}

func (a *testApp) list(t *testing.T, query string) []domain.Product {
	t.Helper()
	rr := a.do(httptest.NewRequest(http.MethodGet, "/api/products"+query, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var products []domain.Product
	if err := json.Unmarshal(rr.Body.Bytes(), &products); err != nil {
		t.Fatalf("list: decode: %v", err)
	}
	return products
}

func (a *testApp) createJSON(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return a.do(req)
}

func decodeMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode message: %v (%s)", err, rr.Body.String())
	}
	return resp.Message
}

type formFile struct {
	field, name, content string
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte(f.content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateListDeleteScenario(t *testing.T) {
	app := setupApp(t, true)

	rr := app.createJSON(t, `{"name":"Fan","price":"10"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created createResp
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Message != msgProductCreated {
		t.Fatalf("unexpected message %q", created.Message)
	}
	pr := created.Product
	if pr.ID <= 0 || pr.Name != "Fan" || pr.Price != "10" || pr.ImageURL != "" || pr.Category != "" {
		t.Fatalf("unexpected product %+v", pr)
	}

	products := app.list(t, "")
	if len(products) != 1 || products[0] != pr {
		t.Fatalf("created product must be listed, got %+v", products)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/products/"+strconv.FormatInt(pr.ID, 10), nil)
	rr = app.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if msg := decodeMessage(t, rr); msg != msgProductDeleted {
		t.Fatalf("unexpected message %q", msg)
	}

	if products := app.list(t, ""); len(products) != 0 {
		t.Fatalf("deleted product must be gone, got %+v", products)
	}
}

func TestCreateJSONScalarsAndNull(t *testing.T) {
	app := setupApp(t, true)

	rr := app.createJSON(t, `{"name":null,"price":10.5,"power":2000,"category":true}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created createResp
	_ = json.Unmarshal(rr.Body.Bytes(), &created)
	pr := created.Product
	if pr.Name != "" || pr.Price != "10.5" || pr.Power != "2000" || pr.Category != "true" {
		t.Fatalf("unexpected product %+v", pr)
	}
}

func TestCreateEmptyJSONBodyUsesDefaults(t *testing.T) {
	app := setupApp(t, true)

	rr := app.createJSON(t, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateMalformedJSON(t *testing.T) {
	app := setupApp(t, true)

	for _, body := range []string{`{"name":`, `{"name":{"nested":1}}`, `[1,2]`} {
		rr := app.createJSON(t, body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rr.Code)
		}
	}
	if products := app.list(t, ""); len(products) != 0 {
		t.Fatalf("nothing must be stored, got %+v", products)
	}
}

func TestCreateURLEncoded(t *testing.T) {
	app := setupApp(t, true)

	req := httptest.NewRequest(http.MethodPost, "/api/products",
		strings.NewReader("name=Heater&category=heaters&imageUrl=https%3A%2F%2Fcdn.example%2Fh.png"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := app.do(req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var created createResp
	_ = json.Unmarshal(rr.Body.Bytes(), &created)
	if created.Product.Name != "Heater" || created.Product.ImageURL != "https://cdn.example/h.png" {
		t.Fatalf("unexpected product %+v", created.Product)
	}
}

func TestCreateWithImageUpload(t *testing.T) {
	app := setupApp(t, true)

	req := multipartRequest(t, "/api/products",
		map[string]string{"name": "Lamp", "imageUrl": "ignored.png"},
		formFile{field: imageFileField, name: "my photo.png", content: "png-bytes"},
	)
	rr := app.do(req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var created createResp
	_ = json.Unmarshal(rr.Body.Bytes(), &created)
	if !strings.HasPrefix(created.Product.ImageURL, "uploads/") {
		t.Fatalf("imageUrl must point to uploads/, got %q", created.Product.ImageURL)
	}

	stored := strings.TrimPrefix(created.Product.ImageURL, "uploads/")
	if !regexp.MustCompile(`^\d+-my-photo\.png$`).MatchString(stored) {
		t.Fatalf("unexpected stored name %q", stored)
	}

	data, err := os.ReadFile(filepath.Join(app.publicDir, "uploads", stored))
	if err != nil || string(data) != "png-bytes" {
		t.Fatalf("uploaded file not stored: %v", err)
	}

	rr = app.do(httptest.NewRequest(http.MethodGet, "/"+created.Product.ImageURL, nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "png-bytes" {
		t.Fatalf("uploaded file must be served, got %d", rr.Code)
	}
}

func TestCreateMultipartWithoutFileKeepsImageURL(t *testing.T) {
	app := setupApp(t, true)

	req := multipartRequest(t, "/api/products", map[string]string{"name": "Lamp", "imageUrl": "https://cdn.example/l.png"})
	rr := app.do(req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}

	var created createResp
	_ = json.Unmarshal(rr.Body.Bytes(), &created)
	if created.Product.ImageURL != "https://cdn.example/l.png" {
		t.Fatalf("unexpected imageUrl %q", created.Product.ImageURL)
	}
}

func TestCreateRejectsSeveralImages(t *testing.T) {
	app := setupApp(t, true)

	req := multipartRequest(t, "/api/products", map[string]string{"name": "Lamp"},
		formFile{field: imageFileField, name: "a.png", content: "a"},
		formFile{field: imageFileField, name: "b.png", content: "b"},
	)
	rr := app.do(req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	entries, _ := os.ReadDir(filepath.Join(app.publicDir, "uploads"))
	if len(entries) != 0 {
		t.Fatalf("no file must be stored, got %d", len(entries))
	}
}

func TestDeleteNotFound(t *testing.T) {
	app := setupApp(t, true)
	writeFile(t, app.storePath, `[{"id": 100, "name": "A"}]`)

	for _, id := range []string{"999", "abc", "5"} {
		rr := app.do(httptest.NewRequest(http.MethodDelete, "/api/products/"+id, nil))
		if rr.Code != http.StatusNotFound {
			t.Fatalf("id %s: expected 404, got %d", id, rr.Code)
		}
		if msg := decodeMessage(t, rr); msg != msgProductNotFound {
			t.Fatalf("unexpected message %q", msg)
		}
	}

	if products := app.list(t, ""); len(products) != 1 {
		t.Fatalf("collection must stay unchanged, got %+v", products)
	}
}

func TestDeleteByPositionFallback(t *testing.T) {
	app := setupApp(t, true)
	writeFile(t, app.storePath, `[{"id": 100, "name": "A"}, {"id": 200, "name": "B"}]`)

	rr := app.do(httptest.NewRequest(http.MethodDelete, "/api/products/1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	products := app.list(t, "")
	if len(products) != 1 || products[0].ID != 100 {
		t.Fatalf("expected only A to remain, got %+v", products)
	}
}

func TestDeleteByPositionDisabled(t *testing.T) {
	app := setupApp(t, false)
	writeFile(t, app.storePath, `[{"id": 100, "name": "A"}, {"id": 200, "name": "B"}]`)

	rr := app.do(httptest.NewRequest(http.MethodDelete, "/api/products/1", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestListCorruptStoreIsEmpty(t *testing.T) {
	app := setupApp(t, true)
	writeFile(t, app.storePath, `{not json`)

	if products := app.list(t, ""); len(products) != 0 {
		t.Fatalf("expected empty list, got %+v", products)
	}
}

func TestLegacyStoreKeptAcrossCreate(t *testing.T) {
	app := setupApp(t, true)
	writeFile(t, app.storePath, `[{"id":1700000000000,"name":"Fan","price":10,"category":"cooling"}]`)

	if products := app.list(t, ""); len(products) != 1 || products[0].Price != "10" {
		t.Fatalf("legacy record must be listed, got %+v", products)
	}

	if rr := app.createJSON(t, `{"name":"New"}`); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}

	products := app.list(t, "")
	if len(products) != 2 || products[0].Name != "Fan" || products[1].Name != "New" {
		t.Fatalf("legacy record lost after create: %+v", products)
	}
}

func TestListFilters(t *testing.T) {
	app := setupApp(t, true)
	writeFile(t, app.storePath, `[
		{"id": 1, "name": "Small heater", "category": "Heaters", "price": "10"},
		{"id": 2, "name": "Big heater", "category": "heaters", "price": "99.90"},
		{"id": 3, "name": "Fan", "category": "fans", "price": "25"}
	]`)

	if got := app.list(t, "?category=HEATERS"); len(got) != 2 {
		t.Fatalf("category filter: got %+v", got)
	}
	if got := app.list(t, "?q=big"); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("query filter: got %+v", got)
	}
	if got := app.list(t, "?minPrice=20&maxPrice=50"); len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("price filter: got %+v", got)
	}

	rr := app.do(httptest.NewRequest(http.MethodGet, "/api/products?minPrice=cheap", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid bound: expected 400, got %d", rr.Code)
	}
}

func TestImportProducts(t *testing.T) {
	app := setupApp(t, true)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"name", "description", "price", "category", "power", "imageUrl"},
		{"Heater", "warm", "120", "heaters", "2000W", ""},
		{"", "skipped"},
		{"Fan", "", "30"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	req := multipartRequest(t, "/api/products/import", nil,
		formFile{field: importFileField, name: "products.xlsx", content: buf.String()})
	rr := app.do(req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp importResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != msgProductsImported || resp.Count != 2 || len(resp.Products) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Products[1].ID != resp.Products[0].ID+1 {
		t.Fatalf("imported ids must be consecutive, got %+v", resp.Products)
	}

	products := app.list(t, "")
	if len(products) != 2 || products[0].Name != "Heater" || products[1].Price != "30" {
		t.Fatalf("unexpected stored products %+v", products)
	}
}

func TestImportRejectsBadInput(t *testing.T) {
	app := setupApp(t, true)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{
			name: "not multipart",
			req:  httptest.NewRequest(http.MethodPost, "/api/products/import", strings.NewReader("{}")),
		},
		{
			name: "missing file",
			req:  multipartRequest(t, "/api/products/import", map[string]string{"x": "y"}),
		},
		{
			name: "not a workbook",
			req: multipartRequest(t, "/api/products/import", nil,
				formFile{field: importFileField, name: "products.xlsx", content: "plain text"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := app.do(tt.req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestPages(t *testing.T) {
	app := setupApp(t, true)

	for path, want := range map[string]string{"/": "catalog", "/admin": "admin"} {
		rr := app.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), want) {
			t.Fatalf("%s: expected 200 with %q, got %d", path, want, rr.Code)
		}
	}

	if err := os.Remove(filepath.Join(app.publicDir, adminPage)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	rr := app.do(httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing page: expected 404, got %d", rr.Code)
	}
}

func TestStaticRefusesDirectoryListing(t *testing.T) {
	app := setupApp(t, true)
	writeFile(t, filepath.Join(app.publicDir, "uploads", "a.png"), "a")

	rr := app.do(httptest.NewRequest(http.MethodGet, "/uploads/", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = app.do(httptest.NewRequest(http.MethodGet, "/uploads/a.png", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestHealthzAndRequestID(t *testing.T) {
	app := setupApp(t, true)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "test-req-1")
	rr := app.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get(requestIDHeader); got != "test-req-1" {
		t.Fatalf("request id must be echoed, got %q", got)
	}

	rr = app.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Header().Get(requestIDHeader) == "" {
		t.Fatalf("request id must be generated")
	}
}

func TestSwaggerDocServed(t *testing.T) {
	app := setupApp(t, true)

	rr := app.do(httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "/api/products/import") {
		t.Fatalf("doc must describe the import route")
	}
}
