package router

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"cafe_pos/internal/catalog"
	"cafe_pos/internal/config"
	"cafe_pos/internal/middleware"
	"cafe_pos/internal/model"
	"cafe_pos/internal/pos"
	rediskey "cafe_pos/pkg/redis"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Setup 注册全部 HTTP 路由并完成核心部件的装配。
// rdb 可为 nil：此时不启用限流与桌位锁，占桌正确性仍由
// 事务检查 + 部分唯一索引保证。
func Setup(r *gin.Engine, db *gorm.DB, rdb *rd.Client, cfg config.AppConfig, log *slog.Logger) {
	lookup := catalog.NewGormLookup(db)
	resolver := pos.NewResolver(db)
	syncer := pos.NewSyncer(db)

	var locker pos.TableLocker
	if rdb != nil {
		locker = rediskey.NewTableLock(rdb, cfg.TableLockTTL)
	}
	writer := pos.NewWriter(db, locker)

	// 提交后钩子：支付状态一变，小票立刻对齐。
	// 同步失败只记日志，绝不反过来影响已提交的订单；
	// 残留不一致靠 /api/receipts/reconcile 兜底修复。
	writer.OnPaymentChange(func(ctx context.Context, orderID uint) {
		if err := syncer.SyncForOrder(ctx, orderID); err != nil {
			log.Error("receipt sync failed",
				slog.Uint64("order_id", uint64(orderID)),
				slog.String("error", err.Error()))
			return
		}
		log.Debug("receipt synced", slog.Uint64("order_id", uint64(orderID)))
	})

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	// Tables
	r.GET("/api/tables", listTables(resolver))
	r.POST("/api/tables", requireAdmin(cfg.AdminToken), registerTable(db))
	r.PUT("/api/tables/:label/override", requireAdmin(cfg.AdminToken), overrideTable(db))

	// Menu（外部协作方的最小表面：订单需要能解析商品）
	r.GET("/api/menu", listMenu(db))
	r.POST("/api/menu", requireAdmin(cfg.AdminToken), createMenuItem(db))

	// Orders
	createHandlers := []gin.HandlerFunc{}
	if rdb != nil {
		createHandlers = append(createHandlers,
			middleware.RedisRateLimit(rdb, cfg.OrderRateLimit, cfg.OrderRateWindow))
	}
	createHandlers = append(createHandlers, createOrder(writer, lookup))
	r.POST("/api/orders", createHandlers...)
	r.GET("/api/orders/:id", getOrder(writer))
	r.PUT("/api/orders/:id", updateOrder(writer, lookup))
	r.DELETE("/api/orders/:id", deleteOrder(writer))
	r.GET("/api/orders/:id/items", getOrderItems(writer))
	r.POST("/api/orders/:id/payment", setPaymentStatus(writer))
	r.POST("/api/orders/:id/status", setOrderStatus(writer))

	// Receipts
	r.GET("/api/orders/:id/receipt", getReceipt(syncer))
	r.POST("/api/receipts/reconcile", requireAdmin(cfg.AdminToken), reconcileReceipts(syncer))
}

// requireAdmin 简单管理员令牌保护（桌位登记、人工覆盖、对账）。
func requireAdmin(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-Token") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "invalid admin token"})
			return
		}
		c.Next()
	}
}

// writeError 把核心错误类型映射为可区分的 HTTP 响应：
// 冲突和校验失败是常态，必须和存储故障区分开。
func writeError(c *gin.Context, err error) {
	var ve *pos.ValidationError
	var ce *pos.TableConflictError
	var ne *pos.NotFoundError
	switch {
	case errors.As(err, &ve), errors.Is(err, catalog.ErrUnknownProduct):
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
	case errors.As(err, &ce):
		c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": err.Error(), "table": ce.Table})
	case errors.As(err, &ne):
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid order id"})
		return 0, false
	}
	return uint(id), true
}

// listTables 查桌位及派生状态；编辑订单时带 ignore_order_id 排除自己。
func listTables(resolver *pos.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ignore *uint
		if raw := c.Query("ignore_order_id"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid ignore_order_id"})
				return
			}
			v := uint(id)
			ignore = &v
		}
		opts, err := resolver.ListTables(c.Request.Context(), ignore)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": opts})
	}
}

func registerTable(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Label string `json:"label" binding:"required,max=16"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		t := &model.Table{Label: req.Label}
		if err := db.Create(t).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": t})
	}
}

// overrideTable 人工覆盖桌位状态（运维逃生口，绕过派生不变量）。
// status 传空串清除覆盖，恢复派生逻辑。
func overrideTable(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		label := c.Param("label")
		var req struct {
			Status string `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		var value any
		switch model.TableStatus(req.Status) {
		case model.TableAvailable, model.TableOccupied:
			value = req.Status
		case "":
			value = nil
		default:
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "status must be Available, Occupied or empty"})
			return
		}

		res := db.Model(&model.Table{}).Where("label = ?", label).Update("manual_status", value)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": res.Error.Error()})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "table not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "override updated"})
	}
}

func listMenu(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []model.MenuItem
		if err := db.Find(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list})
	}
}

func createMenuItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name  string `json:"name" binding:"required"`
			Price int64  `json:"price" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		m := &model.MenuItem{Name: req.Name, Price: req.Price, Available: true}
		if err := db.Create(m).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": m})
	}
}

type orderItemInput struct {
	ProductID uint `json:"product_id" binding:"required,min=1"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
	// UnitPrice 编辑场景回传冻结价；缺省时按菜单现价冻结。单位分。
	UnitPrice *int64 `json:"unit_price"`
}

type orderInput struct {
	TableLabel      string           `json:"table_label" binding:"required"`
	CustomerID      *uint            `json:"customer_id"`
	CashRegisterID  *uint            `json:"cash_register_id"`
	OrderedByUserID *uint            `json:"ordered_by_user_id"`
	PaymentStatus   string           `json:"payment_status"`
	OrderStatus     string           `json:"order_status"`
	Items           []orderItemInput `json:"items" binding:"required,min=1,dive"`
}

// buildItems 把输入明细转成模型行：逐条解析商品，冻结单价。
func buildItems(ctx context.Context, lookup catalog.Lookup, in []orderItemInput) ([]model.OrderItem, error) {
	items := make([]model.OrderItem, 0, len(in))
	for _, it := range in {
		price := int64(0)
		if it.UnitPrice != nil {
			price = *it.UnitPrice
		} else {
			resolved, err := lookup.Resolve(ctx, it.ProductID)
			if err != nil {
				return nil, err
			}
			price = resolved.Price
		}
		items = append(items, model.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: price,
		})
	}
	return items, nil
}

// createOrder 建单：解析菜单价 → 重算总额 → 交给事务写入器。
func createOrder(writer *pos.Writer, lookup catalog.Lookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req orderInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		items, err := buildItems(c.Request.Context(), lookup, req.Items)
		if err != nil {
			writeError(c, err)
			return
		}

		order := &model.Order{
			TableLabel:      &req.TableLabel,
			CustomerID:      req.CustomerID,
			CashRegisterID:  req.CashRegisterID,
			OrderedByUserID: req.OrderedByUserID,
			PaymentStatus:   model.ParsePaymentStatus(req.PaymentStatus),
			OrderStatus:     model.ParseOrderStatus(req.OrderStatus),
			Items:           items,
		}
		order.RecalcTotal()

		id, err := writer.Create(c.Request.Context(), order)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"order_id":     id,
			"total_amount": order.TotalAmount,
		}})
	}
}

func getOrder(writer *pos.Writer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		order, err := writer.Get(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": order})
	}
}

// updateOrder 整单更新：明细整体替换，总额重算后落库。
func updateOrder(writer *pos.Writer, lookup catalog.Lookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req orderInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		items, err := buildItems(c.Request.Context(), lookup, req.Items)
		if err != nil {
			writeError(c, err)
			return
		}

		order := &model.Order{
			ID:              id,
			TableLabel:      &req.TableLabel,
			CustomerID:      req.CustomerID,
			CashRegisterID:  req.CashRegisterID,
			OrderedByUserID: req.OrderedByUserID,
			PaymentStatus:   model.ParsePaymentStatus(req.PaymentStatus),
			OrderStatus:     model.ParseOrderStatus(req.OrderStatus),
			Items:           items,
		}
		order.RecalcTotal()

		if err := writer.Update(c.Request.Context(), order); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"order_id":     id,
			"total_amount": order.TotalAmount,
		}})
	}
}

func deleteOrder(writer *pos.Writer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		if err := writer.Delete(c.Request.Context(), id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "order deleted"})
	}
}

func getOrderItems(writer *pos.Writer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		items, err := writer.GetItems(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": items})
	}
}

// setPaymentStatus 结账/撤销结账。走 Update 以复用占桌校验与提交后钩子。
func setPaymentStatus(writer *pos.Writer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req struct {
			PaymentStatus string `json:"payment_status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		order, err := writer.Get(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		order.PaymentStatus = model.ParsePaymentStatus(req.PaymentStatus)
		if err := writer.Update(c.Request.Context(), order); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"order_id":       id,
			"payment_status": order.PaymentStatus,
		}})
	}
}

// setOrderStatus 流转订单状态（Pending/Preparing/Served/Cancelled）。
// 取消不会自动退款：支付状态是独立字段。
func setOrderStatus(writer *pos.Writer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req struct {
			OrderStatus string `json:"order_status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		order, err := writer.Get(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		order.OrderStatus = model.ParseOrderStatus(req.OrderStatus)
		if err := writer.Update(c.Request.Context(), order); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"order_id":     id,
			"order_status": order.OrderStatus,
		}})
	}
}

func getReceipt(syncer *pos.Syncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		rec, err := syncer.GetForOrder(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": rec})
	}
}

// reconcileReceipts 兜底对账：给所有已付但缺票的订单补票。
func reconcileReceipts(syncer *pos.Syncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		created, err := syncer.EnsureAllForPaidOrders(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"created": created}})
	}
}
