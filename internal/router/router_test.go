package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cafe_pos/internal/config"
	"cafe_pos/internal/logger"
	"cafe_pos/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

const testAdminToken = "test-admin-token"

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := model.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.AppConfig{
		AdminToken:      testAdminToken,
		OrderRateLimit:  1000,
		OrderRateWindow: time.Second,
		TableLockTTL:    time.Second,
	}
	r := gin.New()
	Setup(r, db, nil, cfg, logger.New("cafe-pos-test"))
	return r, db
}

func do(t *testing.T, r *gin.Engine, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-Admin-Token", testAdminToken)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out struct {
		Code int            `json:"code"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out.Data
}

func seedMenuAndTable(t *testing.T, r *gin.Engine) {
	t.Helper()
	if w := do(t, r, http.MethodPost, "/api/menu",
		map[string]any{"name": "flat white", "price": 5000}, true); w.Code != http.StatusOK {
		t.Fatalf("seed menu: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodPost, "/api/tables",
		map[string]any{"label": "T01"}, true); w.Code != http.StatusOK {
		t.Fatalf("seed table: %d %s", w.Code, w.Body.String())
	}
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/tables", map[string]any{"label": "T01"}, false)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", w.Code)
	}
}

func TestOrderFlowOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)
	seedMenuAndTable(t, r)

	// 建单：product 1 × 2 → 总额 10000 分
	orderBody := map[string]any{
		"table_label": "T01",
		"items":       []map[string]any{{"product_id": 1, "quantity": 2}},
	}
	w := do(t, r, http.MethodPost, "/api/orders", orderBody, false)
	if w.Code != http.StatusOK {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if data["total_amount"].(float64) != 10000 {
		t.Errorf("total_amount = %v, want 10000", data["total_amount"])
	}
	orderID := int(data["order_id"].(float64))

	// 同桌二次建单 → 409
	w = do(t, r, http.MethodPost, "/api/orders", orderBody, false)
	if w.Code != http.StatusConflict {
		t.Fatalf("conflicting create: %d %s", w.Code, w.Body.String())
	}

	// 查桌：T01 Occupied
	w = do(t, r, http.MethodGet, "/api/tables", nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("list tables: %d", w.Code)
	}
	var tbl struct {
		Data []model.TableOption `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &tbl)
	if len(tbl.Data) != 1 || tbl.Data[0].Status != model.TableOccupied {
		t.Fatalf("tables = %+v, want T01 Occupied", tbl.Data)
	}

	// 结账 → 钩子开票
	w = do(t, r, http.MethodPost, fmt.Sprintf("/api/orders/%d/payment", orderID),
		map[string]any{"payment_status": "Paid"}, false)
	if w.Code != http.StatusOK {
		t.Fatalf("pay: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/orders/%d/receipt", orderID), nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("receipt: %d %s", w.Code, w.Body.String())
	}
	rec := decodeData(t, w)
	if rec["amount_paid"].(float64) != 10000 {
		t.Errorf("amount_paid = %v, want 10000", rec["amount_paid"])
	}

	// 结账后桌位释放
	w = do(t, r, http.MethodGet, "/api/tables", nil, false)
	_ = json.Unmarshal(w.Body.Bytes(), &tbl)
	if tbl.Data[0].Status != model.TableAvailable {
		t.Errorf("T01 = %+v after payment, want Available", tbl.Data[0])
	}
}

func TestCreateOrderValidation(t *testing.T) {
	r, _ := newTestRouter(t)
	seedMenuAndTable(t, r)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing table", map[string]any{
			"items": []map[string]any{{"product_id": 1, "quantity": 1}},
		}, http.StatusBadRequest},
		{"no items", map[string]any{
			"table_label": "T01",
			"items":       []map[string]any{},
		}, http.StatusBadRequest},
		{"unknown product", map[string]any{
			"table_label": "T01",
			"items":       []map[string]any{{"product_id": 404, "quantity": 1}},
		}, http.StatusBadRequest},
		{"zero quantity", map[string]any{
			"table_label": "T01",
			"items":       []map[string]any{{"product_id": 1, "quantity": 0}},
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/orders", tt.body, false)
			if w.Code != tt.want {
				t.Errorf("code = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestUpdateReplacesItemsOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)
	seedMenuAndTable(t, r)
	if w := do(t, r, http.MethodPost, "/api/menu",
		map[string]any{"name": "muffin", "price": 900}, true); w.Code != http.StatusOK {
		t.Fatalf("seed second item: %d", w.Code)
	}

	w := do(t, r, http.MethodPost, "/api/orders", map[string]any{
		"table_label": "T01",
		"items":       []map[string]any{{"product_id": 1, "quantity": 2}},
	}, false)
	orderID := int(decodeData(t, w)["order_id"].(float64))

	// 整单替换成另一个商品
	w = do(t, r, http.MethodPut, fmt.Sprintf("/api/orders/%d", orderID), map[string]any{
		"table_label": "T01",
		"items":       []map[string]any{{"product_id": 2, "quantity": 3}},
	}, false)
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/orders/%d/items", orderID), nil, false)
	var items struct {
		Data []model.OrderItem `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &items)
	if len(items.Data) != 1 || items.Data[0].ProductID != 2 || items.Data[0].UnitPrice != 900 {
		t.Fatalf("items after replace = %+v", items.Data)
	}
}

func TestDeleteAndNotFoundOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)
	seedMenuAndTable(t, r)

	w := do(t, r, http.MethodPost, "/api/orders", map[string]any{
		"table_label": "T01",
		"items":       []map[string]any{{"product_id": 1, "quantity": 1}},
	}, false)
	orderID := int(decodeData(t, w)["order_id"].(float64))

	if w := do(t, r, http.MethodDelete, fmt.Sprintf("/api/orders/%d", orderID), nil, false); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := do(t, r, http.MethodDelete, fmt.Sprintf("/api/orders/%d", orderID), nil, false); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d, want 404", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/orders/9999", nil, false); w.Code != http.StatusNotFound {
		t.Fatalf("get missing order: %d, want 404", w.Code)
	}
}

func TestManualOverrideOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)
	seedMenuAndTable(t, r)

	w := do(t, r, http.MethodPut, "/api/tables/T01/override",
		map[string]any{"status": "Occupied"}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("override: %d %s", w.Code, w.Body.String())
	}

	var tbl struct {
		Data []model.TableOption `json:"data"`
	}
	w = do(t, r, http.MethodGet, "/api/tables", nil, false)
	_ = json.Unmarshal(w.Body.Bytes(), &tbl)
	if tbl.Data[0].Status != model.TableOccupied || tbl.Data[0].Selectable {
		t.Fatalf("overridden table = %+v", tbl.Data[0])
	}

	// 清除覆盖
	w = do(t, r, http.MethodPut, "/api/tables/T01/override",
		map[string]any{"status": ""}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("clear override: %d %s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodGet, "/api/tables", nil, false)
	_ = json.Unmarshal(w.Body.Bytes(), &tbl)
	if tbl.Data[0].Status != model.TableAvailable {
		t.Fatalf("table after clear = %+v", tbl.Data[0])
	}
}

func TestReconcileOverHTTP(t *testing.T) {
	r, db := newTestRouter(t)
	seedMenuAndTable(t, r)

	// 直接塞一张已付无票订单，模拟漏同步的存量数据
	paid := model.Order{
		TableLabel:    ptr("T09"),
		TotalAmount:   4200,
		PaymentStatus: model.PaymentPaid,
		OrderStatus:   model.OrderServed,
	}
	if err := db.Create(&paid).Error; err != nil {
		t.Fatalf("seed paid order: %v", err)
	}

	w := do(t, r, http.MethodPost, "/api/receipts/reconcile", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("reconcile: %d %s", w.Code, w.Body.String())
	}
	if got := decodeData(t, w)["created"].(float64); got != 1 {
		t.Errorf("created = %v, want 1", got)
	}

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/orders/%d/receipt", paid.ID), nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("receipt after reconcile: %d", w.Code)
	}
	if got := decodeData(t, w)["amount_paid"].(float64); got != 4200 {
		t.Errorf("amount_paid = %v, want 4200", got)
	}
}

func ptr(s string) *string { return &s }
