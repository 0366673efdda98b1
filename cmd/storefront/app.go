package main

import (
	"context"
	"time"

	authapp "github.com/wyfcoding/storefront/internal/auth/application"
	authclient "github.com/wyfcoding/storefront/internal/auth/infrastructure/client"
	authpersistence "github.com/wyfcoding/storefront/internal/auth/infrastructure/persistence"
	authhttp "github.com/wyfcoding/storefront/internal/auth/interfaces/http"
	cartapp "github.com/wyfcoding/storefront/internal/cart/application"
	cartclient "github.com/wyfcoding/storefront/internal/cart/infrastructure/client"
	cartpersistence "github.com/wyfcoding/storefront/internal/cart/infrastructure/persistence"
	carthttp "github.com/wyfcoding/storefront/internal/cart/interfaces/http"
	catalogapp "github.com/wyfcoding/storefront/internal/catalog/application"
	catalogpersistence "github.com/wyfcoding/storefront/internal/catalog/infrastructure/persistence"
	cataloghttp "github.com/wyfcoding/storefront/internal/catalog/interfaces/http"
	notificationapp "github.com/wyfcoding/storefront/internal/notification/application"
	notificationdomain "github.com/wyfcoding/storefront/internal/notification/domain"
	notificationclient "github.com/wyfcoding/storefront/internal/notification/infrastructure/client"
	notificationpersistence "github.com/wyfcoding/storefront/internal/notification/infrastructure/persistence"
	"github.com/wyfcoding/storefront/internal/notification/infrastructure/sender"
	notificationhttp "github.com/wyfcoding/storefront/internal/notification/interfaces/http"
	orderapp "github.com/wyfcoding/storefront/internal/order/application"
	orderclient "github.com/wyfcoding/storefront/internal/order/infrastructure/client"
	orderpersistence "github.com/wyfcoding/storefront/internal/order/infrastructure/persistence"
	orderhttp "github.com/wyfcoding/storefront/internal/order/interfaces/http"
	"github.com/wyfcoding/storefront/internal/payment/infrastructure/razorpay"
	userapp "github.com/wyfcoding/storefront/internal/user/application"
	userclient "github.com/wyfcoding/storefront/internal/user/infrastructure/client"
	userpersistence "github.com/wyfcoding/storefront/internal/user/infrastructure/persistence"
	userhttp "github.com/wyfcoding/storefront/internal/user/interfaces/http"
	"github.com/wyfcoding/storefront/pkg/cache"
	"github.com/wyfcoding/storefront/pkg/config"
	"github.com/wyfcoding/storefront/pkg/db"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/metrics"
	"github.com/wyfcoding/storefront/pkg/mq"
)

// app 进程内装配好的各上下文
type app struct {
	catalogCmd   *catalogapp.CatalogCommandService
	catalogQuery *catalogapp.CatalogQueryService
	carts        *cartapp.CartApplicationService
	orderCmd     *orderapp.OrderCommandService
	orderQuery   *orderapp.OrderQueryService
	registration *userapp.RegistrationService
	accounts     *userapp.AccountService
	tokens       *authapp.TokenService
	auth         *authapp.AuthService
	dispatcher   *notificationapp.Dispatcher
	alerts       *notificationapp.StockAlertService
	history      *notificationapp.NotificationQueryService
	relay        *mq.Relay
}

// models 需要自动迁移的全部表
func models() []any {
	var all []any
	all = append(all, catalogpersistence.Models()...)
	all = append(all, cartpersistence.Models()...)
	all = append(all, orderpersistence.Models()...)
	all = append(all, userpersistence.Models()...)
	all = append(all, notificationpersistence.Models()...)
	all = append(all, &mq.OutboxMessage{})
	return all
}

// buildApp 装配仓储、应用服务与跨上下文适配器；sink 为 nil 时 outbox 直接投递给通知分发器
func buildApp(cfg *config.Config, database *db.DB, store cache.Cache, m *metrics.Metrics, sink mq.Handler) (*app, error) {
	gormDB := database.DB
	publisher := mq.NewOutboxPublisher(gormDB)

	// 商品目录
	products := catalogpersistence.NewProductRepository(gormDB)
	categories := catalogpersistence.NewCategoryRepository(gormDB)
	hero := catalogpersistence.NewHeroRepository(gormDB)
	restock := catalogapp.NewRestockHandler(publisher)
	catalogCmd := catalogapp.NewCatalogCommandService(database, products, categories, hero, restock, store)
	catalogQuery := catalogapp.NewCatalogQueryService(products, categories, hero, store, config.Seconds(cfg.Cache.ProductTTL))
	inventory := catalogapp.NewInventoryService(products, restock, store, m)

	// 购物车
	carts := cartapp.NewCartApplicationService(
		cartpersistence.NewCartRepository(gormDB),
		cartclient.NewCatalogClient(catalogQuery),
	)

	// 用户与账户
	users := userpersistence.NewUserRepository(gormDB)
	accounts := userapp.NewAccountService(database, users, cfg.Auth.BcryptCost)

	// 支付网关
	gateway := razorpay.New(razorpay.Config{
		Enabled:   cfg.Payment.Configured(),
		BaseURL:   cfg.Payment.BaseURL,
		KeyID:     cfg.Payment.KeyID,
		KeySecret: cfg.Payment.KeySecret,
		Currency:  cfg.Payment.Currency,
		Timeout:   config.Seconds(cfg.Payment.Timeout),
	})

	// 订单
	orderRepo := orderpersistence.NewOrderRepository(gormDB)
	orderCmd := orderapp.NewOrderCommandService(
		database,
		orderRepo,
		orderclient.NewCartClient(carts),
		orderclient.NewInventoryClient(inventory),
		gateway,
		publisher,
		m,
	)
	orderQuery := orderapp.NewOrderQueryService(orderRepo, accounts)

	// 通知
	composer, err := notificationapp.NewComposer(notificationapp.Site{Name: cfg.Site.Name, BaseURL: cfg.Site.BaseURL})
	if err != nil {
		return nil, err
	}
	records := notificationpersistence.NewNotificationRepository(gormDB)
	alertRepo := notificationpersistence.NewStockAlertRepository(gormDB)
	recipients := notificationclient.NewRecipientClient(accounts)
	dispatcher := notificationapp.NewDispatcher(records, alertRepo, recipients, composer, m, senders(cfg)...)
	alerts := notificationapp.NewStockAlertService(alertRepo, notificationclient.NewProductClient(catalogQuery), recipients)

	// 注册
	registration := userapp.NewRegistrationService(database, userpersistence.NewPendingUserRepository(gormDB), users, dispatcher,
		userapp.RegistrationConfig{
			Secret:     cfg.Auth.Secret,
			OTPTTL:     config.Seconds(cfg.Registration.OTPTTL),
			BcryptCost: cfg.Auth.BcryptCost,
			BaseURL:    cfg.Site.BaseURL,
		})

	// 认证
	tokens := authapp.NewTokenService(authapp.TokenConfig{
		Secret:     cfg.Auth.Secret,
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  config.Seconds(cfg.Auth.AccessTTL),
		RefreshTTL: config.Seconds(cfg.Auth.RefreshTTL),
	}, authpersistence.NewRevocationRepository(store))
	auth := authapp.NewAuthService(authclient.NewUserClient(accounts), tokens)

	if sink == nil {
		sink = dispatcher
	}
	relay := mq.NewRelay(gormDB, sink, cfg.Outbox.BatchSize, cfg.Outbox.MaxAttempts, m)

	return &app{
		catalogCmd:   catalogCmd,
		catalogQuery: catalogQuery,
		carts:        carts,
		orderCmd:     orderCmd,
		orderQuery:   orderQuery,
		registration: registration,
		accounts:     accounts,
		tokens:       tokens,
		auth:         auth,
		dispatcher:   dispatcher,
		alerts:       alerts,
		history:      notificationapp.NewNotificationQueryService(records),
		relay:        relay,
	}, nil
}

// senders 按配置创建发送渠道，未启用的渠道只记录不发送
func senders(cfg *config.Config) []notificationdomain.Sender {
	var out []notificationdomain.Sender
	if cfg.Mail.Enabled {
		out = append(out, sender.NewSMTPSender(sender.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}))
	} else {
		out = append(out, sender.NewDisabled(notificationdomain.ChannelEmail))
	}
	if cfg.WhatsApp.Enabled {
		out = append(out, sender.NewWhatsAppSender(sender.WhatsAppConfig{
			BaseURL:            cfg.WhatsApp.BaseURL,
			AccountSID:         cfg.WhatsApp.AccountSID,
			AuthToken:          cfg.WhatsApp.AuthToken,
			From:               cfg.WhatsApp.From,
			DefaultCountryCode: cfg.WhatsApp.DefaultCountryCode,
			Timeout:            10 * time.Second,
		}))
	} else {
		out = append(out, sender.NewDisabled(notificationdomain.ChannelWhatsApp))
	}
	return out
}

// handlers 各上下文的 HTTP 处理器
type handlers struct {
	catalog      *cataloghttp.CatalogHandler
	cart         *carthttp.CartHandler
	order        *orderhttp.OrderHandler
	user         *userhttp.UserHandler
	auth         *authhttp.AuthHandler
	notification *notificationhttp.NotificationHandler
}

func (a *app) handlers(cfg *config.Config) handlers {
	return handlers{
		catalog:      cataloghttp.NewCatalogHandler(a.catalogCmd, a.catalogQuery, a.carts),
		cart:         carthttp.NewCartHandler(a.carts),
		order:        orderhttp.NewOrderHandler(a.orderCmd, a.orderQuery, a.carts, a.accounts),
		user:         userhttp.NewUserHandler(a.registration, a.accounts, userclient.NewOrderClient(a.orderQuery)),
		auth:         authhttp.NewAuthHandler(a.auth, a.tokens, authhttp.CookieConfig{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure}),
		notification: notificationhttp.NewNotificationHandler(a.alerts, a.history),
	}
}

// cleanupOutbox 定期清理已投递的 outbox 消息
func (a *app) cleanupOutbox(ctx context.Context, retention time.Duration) error {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := a.relay.Cleanup(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Warn(ctx, "outbox cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info(ctx, "outbox cleaned", "deleted", n)
			}
		}
	}
}
