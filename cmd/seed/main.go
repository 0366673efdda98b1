// Seed 工具
// 功能：迁移数据库、导入示例商品目录并创建或提升管理员账户
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	catalogapp "github.com/wyfcoding/storefront/internal/catalog/application"
	catalogpersistence "github.com/wyfcoding/storefront/internal/catalog/infrastructure/persistence"
	userapp "github.com/wyfcoding/storefront/internal/user/application"
	userpersistence "github.com/wyfcoding/storefront/internal/user/infrastructure/persistence"
	"github.com/wyfcoding/storefront/pkg/config"
	"github.com/wyfcoding/storefront/pkg/db"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/mq"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to the TOML config file")
	adminEmail := flag.String("admin-email", "", "email of the staff account to create or promote")
	adminPassword := flag.String("admin-password", "", "password for the staff account")
	adminName := flag.String("admin-name", "Admin", "first name for the staff account")
	skipCatalog := flag.Bool("skip-catalog", false, "do not load the sample catalog")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	if err := logger.Init(logger.Config{Level: cfg.Logger.Level, Format: "text", Output: "stdout"}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()

	// 3. 初始化数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	var tables []any
	tables = append(tables, catalogpersistence.Models()...)
	tables = append(tables, userpersistence.Models()...)
	tables = append(tables, &mq.OutboxMessage{})
	if err := database.AutoMigrate(tables...); err != nil {
		logger.Fatal(ctx, "Failed to migrate database", "error", err)
	}

	// 4. 导入示例目录；补货事件写入 outbox，由服务进程投递
	if !*skipCatalog {
		gormDB := database.DB
		products := catalogpersistence.NewProductRepository(gormDB)
		cmd := catalogapp.NewCatalogCommandService(
			database,
			products,
			catalogpersistence.NewCategoryRepository(gormDB),
			catalogpersistence.NewHeroRepository(gormDB),
			catalogapp.NewRestockHandler(mq.NewOutboxPublisher(gormDB)),
			nil,
		)
		sample, err := catalogapp.DefaultSampleCatalog()
		if err != nil {
			logger.Fatal(ctx, "Failed to decode sample catalog", "error", err)
		}
		res, err := cmd.Seed(ctx, sample)
		if err != nil {
			logger.Fatal(ctx, "Failed to seed catalog", "error", err)
		}
		fmt.Printf("catalog: %d categories, %d products created, %d updated\n", res.Categories, res.Created, res.Updated)
	}

	// 5. 管理员账户
	if *adminEmail != "" {
		accounts := userapp.NewAccountService(database, userpersistence.NewUserRepository(database.DB), cfg.Auth.BcryptCost)
		u, err := accounts.EnsureStaff(ctx, *adminEmail, *adminPassword, *adminName)
		if err != nil {
			logger.Fatal(ctx, "Failed to create staff account", "error", err)
		}
		fmt.Printf("staff account ready: %s (id %d)\n", u.Email, u.ID)
	}
}
