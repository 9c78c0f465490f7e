package main

import (
	"log"
	"log/slog"

	"cafe_pos/internal/config"
	"cafe_pos/internal/logger"
	"cafe_pos/internal/model"
	"cafe_pos/internal/router"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg := logger.New("cafe-pos")

	// 1. 连库 + 自动建表（含 open 订单部分唯一索引）
	db, err := openDB(cfg)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := model.Migrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	if err := seedTables(db, cfg.TableLabels); err != nil {
		log.Fatalf("seed tables: %v", err)
	}

	// 2. Redis 可选：缺席时限流与桌位锁自动关闭
	var rdb *rd.Client
	if cfg.RedisEnabled {
		rdb = rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	}

	r := gin.Default()
	router.Setup(r, db, rdb, cfg, lg)

	lg.Info("server starting", slog.String("addr", cfg.HTTPAddr), slog.String("db", cfg.DBDriver))
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func openDB(cfg config.AppConfig) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
	default:
		return gorm.Open(sqlite.Open(cfg.DBDSN), &gorm.Config{})
	}
}

// seedTables 登记配置里的桌号，已存在的跳过。
func seedTables(db *gorm.DB, labels []string) error {
	for _, l := range labels {
		t := model.Table{Label: l}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&t).Error; err != nil {
			return err
		}
	}
	return nil
}
