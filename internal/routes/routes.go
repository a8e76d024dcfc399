package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"equipment-compliance/internal/controllers"
	"equipment-compliance/internal/listeners"
	"equipment-compliance/internal/repositories"
	"equipment-compliance/internal/scheduler"
	"equipment-compliance/internal/services"
	"equipment-compliance/pkg/config"
	"equipment-compliance/pkg/constants"
	"equipment-compliance/pkg/eventbus"
	"equipment-compliance/pkg/metrics"
	"equipment-compliance/pkg/middleware"
	"equipment-compliance/pkg/service"
	"equipment-compliance/pkg/telegram"
	"equipment-compliance/pkg/websocket"
)

// Dependencies - всё, что создаётся в main и нужно для сборки приложения.
type Dependencies struct {
	DB       *pgxpool.Pool
	Redis    *redis.Client
	JWT      service.JWTService
	Hub      *websocket.Hub
	Bus      *eventbus.Bus
	Registry *prometheus.Registry
	Config   *config.Config
	Logger   *zap.Logger
}

// Background - фоновые компоненты, которые main запускает вместе с HTTP-сервером.
type Background struct {
	Scheduler *scheduler.Scheduler
}

func InitRouter(e *echo.Echo, deps Dependencies) *Background {
	logger := deps.Logger
	cfg := deps.Config
	logger.Info("InitRouter: Начало создания маршрутов")

	// --- 0. ОБЩИЕ КОМПОНЕНТЫ ---
	appMetrics := metrics.New(deps.Registry)
	authMW := middleware.NewAuthMiddleware(deps.JWT, logger.Named("auth"))
	txManager := repositories.NewTxManager(deps.DB)

	// --- 1. РЕПОЗИТОРИИ ---
	equipmentRepo := repositories.NewEquipmentRepository(deps.DB, logger)
	ticketRepo := repositories.NewTicketRepository(deps.DB, logger)
	reminderRepo := repositories.NewReminderRepository(deps.DB, logger)
	dependencyRepo := repositories.NewDependencyRepository(deps.DB, logger)
	partyRepo := repositories.NewPartyRepository(deps.DB, logger)
	notificationRepo := repositories.NewNotificationRepository(deps.DB, logger)
	cacheRepo := repositories.NewRedisCacheRepository(deps.Redis)

	// --- 2. УВЕДОМЛЕНИЯ ---
	telegramService := telegram.NewService(cfg.Notification.TelegramBotToken, logger.Named("telegram"))
	wsNotificationService := services.NewWebSocketNotificationService(deps.Hub, logger)
	inAppNotifier := services.NewInAppNotifier(notificationRepo, wsNotificationService, logger)
	sender := services.NewMultiChannelSender(logger,
		services.Channel{Name: constants.ChannelEmail, Sender: services.NewMockEmailSender(cfg.Notification.EmailFrom, logger)},
		services.Channel{Name: constants.ChannelInApp, Sender: inAppNotifier},
		services.Channel{Name: constants.ChannelTelegram, Sender: services.NewTelegramSender(telegramService)},
	)

	listener := listeners.NewNotificationListener(inAppNotifier, telegramService, partyRepo, cfg.Frontend, logger.Named("listener"))
	listener.Register(deps.Bus)

	// --- 3. СЕРВИСЫ ---
	reminderLogger := logger.Named("reminders")
	locker := services.NewRedisRunLocker(cacheRepo, cfg.Reminder.RunLockTTL, reminderLogger)
	ticketService := services.NewTicketService(txManager, ticketRepo, equipmentRepo, deps.Bus, appMetrics, logger.Named("tickets"))
	reminderService := services.NewReminderService(equipmentRepo, reminderRepo, locker, sender, cfg.Reminder, appMetrics, reminderLogger)
	complianceService := services.NewComplianceService(equipmentRepo, appMetrics, logger)
	deletionService := services.NewDeletionService(txManager, dependencyRepo, logger)
	importService := services.NewScheduleImportService(txManager, equipmentRepo, logger)

	// --- 4. КОНТРОЛЛЕРЫ ---
	ticketCtrl := controllers.NewTicketController(ticketService, logger)
	equipmentCtrl := controllers.NewEquipmentController(complianceService, importService, logger)
	reminderCtrl := controllers.NewReminderController(reminderService, complianceService, logger)
	deletionCtrl := controllers.NewDeletionController(deletionService, logger)
	notificationCtrl := controllers.NewNotificationController(logger)
	wsCtrl := controllers.NewWebSocketController(deps.Hub, deps.JWT, cfg.Frontend.BaseURL, logger)

	// --- 5. РОУТЕРЫ ---
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	e.GET("/ws", wsCtrl.ServeWs)

	api := e.Group("/api")
	secureGroup := api.Group("", authMW.Auth)

	runTicketRouter(secureGroup, ticketCtrl, authMW)
	runEquipmentRouter(secureGroup, equipmentCtrl, authMW)
	runDeletionRouter(secureGroup, deletionCtrl, authMW)
	runAdminRouter(secureGroup, reminderCtrl, authMW)
	secureGroup.GET("/notifications/route", notificationCtrl.GetRoute)

	logger.Info("INIT_ROUTER: Создание маршрутов завершено")

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(cfg.Scheduler, reminderService, complianceService, logger.Named("scheduler"))
	}
	return &Background{Scheduler: sched}
}

func runTicketRouter(g *echo.Group, ctrl *controllers.TicketController, authMW *middleware.AuthMiddleware) {
	tickets := g.Group("/tickets")
	tickets.POST("", ctrl.CreateTicket)
	tickets.GET("/:id", ctrl.FindTicket)

	staff := authMW.RequireRole(constants.RoleAdmin, constants.RoleVendor)
	tickets.POST("/:id/resolve", ctrl.ResolveTicket, staff)
	tickets.POST("/:id/close", ctrl.CloseTicket, staff)
}

func runEquipmentRouter(g *echo.Group, ctrl *controllers.EquipmentController, authMW *middleware.AuthMiddleware) {
	equipment := g.Group("/equipment")
	equipment.GET("/:id/compliance", ctrl.GetCompliance)
	equipment.POST("/schedules/import", ctrl.ImportSchedules, authMW.RequireRole(constants.RoleAdmin, constants.RoleVendor))
}

func runDeletionRouter(g *echo.Group, ctrl *controllers.DeletionController, authMW *middleware.AuthMiddleware) {
	deletion := g.Group("/deletion", authMW.RequireRole(constants.RoleAdmin, constants.RoleVendor))
	deletion.GET("/:entity/:id", ctrl.CheckDeletion)
	deletion.DELETE("/:entity/:id", ctrl.Delete)
}

func runAdminRouter(g *echo.Group, ctrl *controllers.ReminderController, authMW *middleware.AuthMiddleware) {
	admin := g.Group("/admin", authMW.RequireRole(constants.RoleAdmin))
	admin.POST("/reminders/maintenance", ctrl.TriggerMaintenanceReminders)
	admin.POST("/reminders/expiration", ctrl.TriggerExpirationAlerts)
	admin.POST("/compliance/refresh", ctrl.RefreshCompliance)
}
