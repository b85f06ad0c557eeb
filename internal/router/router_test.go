package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicestore/internal/config"
	"invoicestore/internal/handler"
	"invoicestore/internal/infrastructure"
	"invoicestore/internal/router"
	"invoicestore/internal/storage/memory"
)

const origin = "http://localhost:3000"

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	store := memory.New(0)
	app := infrastructure.Wire(store, &config.Config{
		Storage: config.StorageConfig{
			Backend:        "memory",
			CollectionKey:  "invoices",
			FilterStateKey: "invoice_filters",
		},
		Attachments: config.DefaultAttachmentConfig(),
	}, zerolog.Nop())

	r := router.Setup(router.Handlers{
		Invoice:    handler.NewInvoiceHandler(app.Invoices),
		Attachment: handler.NewAttachmentHandler(app.Attachments),
		Filter:     handler.NewFilterHandler(app.Filters),
		Export:     handler.NewExportHandler(app.Invoices),
		Health:     handler.NewHealthHandler(app.Store),
	}, []string{origin}, zerolog.Nop())
	return r, store
}

func do(r http.Handler, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func invoiceJSON(t *testing.T, number string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"invoiceNumber": number,
		"date":          time.Now().UTC().Format(time.RFC3339),
		"customerName":  "Acme Corporation",
		"lineItems": []map[string]any{
			{"description": "Consulting", "quantity": 2, "unitPrice": 50, "total": 100},
		},
		"subtotal":      100,
		"tax":           10,
		"total":         110,
		"paymentStatus": "Unpaid",
	})
	require.NoError(t, err)
	return b
}

func createInvoice(t *testing.T, r http.Handler, number string) string {
	t.Helper()
	w := do(r, http.MethodPost, "/api/v1/invoices", invoiceJSON(t, number), "application/json")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["data"].(map[string]any)["id"].(string)
}

func TestInvoiceLifecycle(t *testing.T) {
	r, _ := newServer(t)
	id := createInvoice(t, r, "INV-001")

	w := do(r, http.MethodPost, "/api/v1/invoices", invoiceJSON(t, "INV-001"), "application/json")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPatch, "/api/v1/invoices/"+id, []byte(`{"paymentStatus":"Paid"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Paid", decode(t, w)["data"].(map[string]any)["paymentStatus"])

	w = do(r, http.MethodGet, "/api/v1/invoices?status=Paid&q=acme", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)

	w = do(r, http.MethodGet, "/api/v1/invoices/stats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 110, decode(t, w)["data"].(map[string]any)["totalAmount"])

	w = do(r, http.MethodDelete, "/api/v1/invoices/"+id, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodGet, "/api/v1/invoices/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "INVOICE_NOT_FOUND", decode(t, w)["error"].(map[string]any)["code"])
}

func TestAttachmentLifecycle(t *testing.T) {
	r, _ := newServer(t)
	id := createInvoice(t, r, "INV-001")
	content := "%PDF-1.4 receipt"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="receipt.pdf"`)
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	base := fmt.Sprintf("/api/v1/invoices/%s/attachments", id)
	w := do(r, http.MethodPost, base, buf.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	attID := decode(t, w)["data"].(map[string]any)["id"].(string)

	w = do(r, http.MethodGet, "/api/v1/invoices/"+id, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	atts := decode(t, w)["data"].(map[string]any)["attachments"].([]any)
	require.Len(t, atts, 1)
	assert.NotContains(t, atts[0], "data")

	w = do(r, http.MethodGet, base+"/"+attID+"/download", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	w = do(r, http.MethodGet, base+"/stats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["data"].(map[string]any)["remainingSlots"])

	w = do(r, http.MethodDelete, base+"/"+attID, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodGet, base+"/"+attID+"/download", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFiltersAndExport(t *testing.T) {
	r, store := newServer(t)
	createInvoice(t, r, "INV-001")

	w := do(r, http.MethodPut, "/api/v1/filters", []byte(`{"searchTerm":"acme","sortBy":"total"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, saved, err := store.Get(t.Context(), "invoice_filters")
	require.NoError(t, err)
	assert.True(t, saved)

	w = do(r, http.MethodGet, "/api/v1/filters", nil, "")
	assert.Equal(t, "total", decode(t, w)["data"].(map[string]any)["sortBy"])

	w = do(r, http.MethodGet, "/api/v1/export.csv?status=Unpaid", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "INV-001")
}

func TestHealthAndCORS(t *testing.T) {
	r, store := newServer(t)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", nil, "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/readyz", nil, "").Code)
	store.SetDisabled(true)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/readyz", nil, "").Code)
	w := do(r, http.MethodGet, "/api/v1/invoices", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["data"])
	w = do(r, http.MethodPost, "/api/v1/invoices", invoiceJSON(t, "INV-001"), "application/json")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/invoices", http.NoBody)
	req.Header.Set("Origin", origin)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))
}
