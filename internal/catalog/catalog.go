// Package catalog 是菜单服务的窄接口：订单只用它做
// 商品 id → 名称/现价 的解析，菜单的增删改查不在核心范围内。
package catalog

import (
	"context"
	"errors"
	"fmt"

	"cafe_pos/internal/model"

	"gorm.io/gorm"
)

// ErrUnknownProduct 商品不存在或已下架。
var ErrUnknownProduct = errors.New("catalog: unknown product")

// Item 解析结果。Price 单位分，调用方在下单瞬间把它冻结进明细。
type Item struct {
	ID    uint
	Name  string
	Price int64
}

// Lookup resolves a product id against the menu.
type Lookup interface {
	Resolve(ctx context.Context, productID uint) (Item, error)
}

// GormLookup 基于 menu_items 表的默认实现。
type GormLookup struct {
	db *gorm.DB
}

func NewGormLookup(db *gorm.DB) *GormLookup {
	return &GormLookup{db: db}
}

func (g *GormLookup) Resolve(ctx context.Context, productID uint) (Item, error) {
	var m model.MenuItem
	err := g.db.WithContext(ctx).First(&m, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Item{}, fmt.Errorf("%w: id=%d", ErrUnknownProduct, productID)
		}
		return Item{}, err
	}
	if !m.Available {
		return Item{}, fmt.Errorf("%w: id=%d (unavailable)", ErrUnknownProduct, productID)
	}
	return Item{ID: m.ID, Name: m.Name, Price: m.Price}, nil
}
