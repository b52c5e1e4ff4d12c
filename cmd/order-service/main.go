// cmd/order-service/main.go
package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"ecommerce/internal/pkg/config"
	"ecommerce/internal/pkg/lock"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/pkg/mq"
	"ecommerce/internal/pkg/redis"
	"ecommerce/internal/service/cart"
	"ecommerce/internal/service/catalog"
	orderapp "ecommerce/internal/service/order/application"
	orderinfra "ecommerce/internal/service/order/infrastructure"
	"ecommerce/internal/service/order/infrastructure/adapter"
	"ecommerce/internal/service/order/interfaces"
	pointapp "ecommerce/internal/service/point/application"
	pointinfra "ecommerce/internal/service/point/infrastructure"
	promotionapp "ecommerce/internal/service/promotion/application"
	promotioninfra "ecommerce/internal/service/promotion/infrastructure"
	"ecommerce/internal/service/stock"
	"ecommerce/internal/service/user"
	"ecommerce/internal/tracing"
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger.Init(cfg.ServiceName)
	log := logger.Ctx(context.Background())

	// 1. 初始化核心技术组件
	tp, err := tracing.InitTracerProvider(cfg.ServiceName, cfg.JaegerEndpoint, cfg.TraceSampleRatio)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}
	defer tp.Shutdown(context.Background())

	db, err := gorm.Open(mysql.Open(cfg.MySQLDSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect mysql")
	}

	redisClient, err := redis.NewClient(cfg.RedisAddrs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize redis client")
	}
	defer redisClient.Close()

	brokers := strings.Split(cfg.KafkaBrokers, ",")
	stockSyncWriter := mq.NewKafkaWriter(brokers, cfg.StockSyncTopic)
	defer stockSyncWriter.Close()
	notificationWriter := mq.NewKafkaWriter(brokers, cfg.NotificationTopic)
	defer notificationWriter.Close()

	// 2. 组装库存台账与异步落库链路
	stockLedger, err := stock.NewLedger(redisClient, stock.NewKafkaPublisher(stockSyncWriter))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize stock ledger")
	}

	stockSyncReader := mq.NewKafkaReader(cfg.KafkaBrokers, cfg.StockSyncTopic, cfg.ConsumerGroupID)
	syncConsumer := stock.NewSyncConsumer(stockSyncReader, db)

	reconciler := stock.NewReconciler(stockLedger, stock.NewGormDurableReader(db))

	// 3. 组装各限界上下文的应用服务
	pointRepo := pointinfra.NewGormPointRepository(db)
	pointService := pointapp.NewPointService(pointRepo, pointinfra.NewBalanceCache(redisClient))

	couponRepo := promotioninfra.NewGormCouponRepository(db)
	userCouponRepo := promotioninfra.NewGormUserCouponRepository(db)
	allocator, err := buildAllocator(cfg, redisClient, couponRepo, userCouponRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize coupon allocator")
	}
	couponService := promotionapp.NewCouponService(db, couponRepo, userCouponRepo, allocator)

	catalogService := catalog.NewService(db, redisClient)
	userService := user.NewService(db)
	cartService := cart.NewService(db)

	// 4. 订单上下文：仓储、结算单元、补偿与 Saga 编排
	orderRepo := orderinfra.NewGormOrderRepository(db)
	settlementUnit := orderinfra.NewGormSettlementUnit(db)
	commitUnit := orderinfra.NewGormCommitUnit(db, couponService, pointService)

	couponPort := adapter.NewCouponAdapter(couponService)
	compensation := orderapp.NewCompensationService(stockLedger, couponPort, pointService)

	orderService := orderapp.NewOrderApplicationService(
		orderRepo,
		settlementUnit,
		compensation,
		adapter.NewCatalogAdapter(catalogService),
		adapter.NewUserAdapter(userService),
		adapter.NewCartAdapter(cartService),
		stockLedger,
		couponPort,
		pointService,
		commitUnit,
		adapter.NewNotificationKafkaAdapter(notificationWriter),
	)

	sweeper := orderapp.NewExpirationSweeper(orderRepo, settlementUnit, compensation, cfg.PaymentTimeout, cfg.SweepDelay)

	// 5. 启动后台任务
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 先同步补灌一轮库存键，冷启动的第一个下单请求不会撞到缺键
	if err := reconciler.GapFillOnce(ctx); err != nil {
		log.Error().Err(err).Msg("initial stock gap-fill failed")
	}

	go syncConsumer.Start(ctx)
	go reconciler.RunConsistencyLoop(ctx, cfg.ReconcileInterval)
	go reconciler.RunGapFillLoop(ctx, cfg.GapFillInterval)
	go sweeper.Run(ctx)

	// 6. HTTP 入口
	mux := http.NewServeMux()
	interfaces.NewOrderHandler(orderService, couponService, pointService).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("order service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server exited")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	syncConsumer.Stop()
	log.Info().Msg("order service stopped")
}

// buildAllocator 选择发券的并发控制策略：
// 配置了 ZooKeeper 则用分布式锁保护的发放器，否则用 Redis 先到先得队列。
func buildAllocator(cfg *config.Config, redisClient *redis.Client,
	coupons *promotioninfra.GormCouponRepository, userCoupons *promotioninfra.GormUserCouponRepository,
) (promotionapp.Allocator, error) {
	if len(cfg.ZKServers) > 0 {
		locker, err := lock.NewZKLocker(cfg.ZKServers, 5*time.Second)
		if err != nil {
			return nil, err
		}
		return promotionapp.NewLockedAllocator(locker, coupons, userCoupons), nil
	}
	queue, err := promotioninfra.NewFCFSQueue(redisClient)
	if err != nil {
		return nil, err
	}
	return promotionapp.NewFCFSAllocator(queue), nil
}
