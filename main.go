package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"agripress/api"
	"agripress/config"
	"agripress/db"
	_ "agripress/docs" // Import for side effect: registers swagger spec via init()
	"agripress/models"
	"agripress/utils"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           AgriPress API
// @version         1.0.0

// @description     ## AgriPress API
// @description
// @description     Backend for an agricultural publisher: articles and blog posts with an
// @description     editorial review queue, magazine issues, a small store, subscription plans
// @description     with manually verified payments, and the site furniture an admin console
// @description     needs (news, rosters, pages, coupons, settings).
// @description
// @description     All state lives in a single JSON file persisted atomically in the
// @description     background. Admin consoles can subscribe to live collection snapshots
// @description     over the `/ws/{collection}` websocket.
// @description
// @description     **Roles:** USER < EDITOR < ADMIN < SUPER_ADMIN. Editorial endpoints need
// @description     EDITOR or above, console endpoints ADMIN or above, and role assignment
// @description     SUPER_ADMIN.
// @description
// @description     **Record filtering (`filter` parameter):**
// @description     `GET /admin/records/{collection}` accepts repeated `filter` parameters
// @description     alternating `path operator value` clauses with `and`/`or`, for example
// @description     `?filter=status equals PUBLISHED&filter=or&filter=type equals BLOG`.
// @description     Strings may be double-quoted; bare numbers, booleans, and `null` are typed
// @description     automatically. String operators accept an `-insensitive` suffix.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.jwt BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL: Failed to load configuration: %v", err)
	}

	// --- Store ---
	store, err := db.NewStore(cfg)
	if err != nil {
		// NewStore logs specifics, including critical parse errors
		log.Fatalf("CRITICAL: Failed to initialize store: %v", err)
	}

	// --- Gin Router Setup ---
	router := gin.Default()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// --- Public Routes (No Auth Required) ---
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", func(c *gin.Context) {
			api.SignupHandler(c, store, cfg)
		})
		authGroup.POST("/login", func(c *gin.Context) {
			api.LoginHandler(c, store, cfg)
		})
	}

	router.GET("/articles", func(c *gin.Context) {
		api.ListPublishedArticlesHandler(c, store, cfg)
	})
	router.GET("/articles/:id", func(c *gin.Context) {
		api.GetPublishedArticleHandler(c, store, cfg)
	})
	router.GET("/magazines", func(c *gin.Context) {
		api.ListMagazinesHandler(c, store, cfg)
	})
	router.GET("/magazines/:id", func(c *gin.Context) {
		api.GetMagazineHandler(c, store, cfg)
	})
	router.GET("/products", func(c *gin.Context) {
		api.ListProductsHandler(c, store, cfg)
	})
	router.GET("/products/:id", func(c *gin.Context) {
		api.GetProductHandler(c, store, cfg)
	})
	router.GET("/news", func(c *gin.Context) {
		api.ListNewsHandler(c, store, cfg)
	})
	router.GET("/editorial-board", func(c *gin.Context) {
		api.ListEditorialBoardHandler(c, store, cfg)
	})
	router.GET("/leadership", func(c *gin.Context) {
		api.ListLeadershipHandler(c, store, cfg)
	})
	router.GET("/pages/:slug", func(c *gin.Context) {
		api.GetPageHandler(c, store, cfg)
	})
	router.GET("/plans", func(c *gin.Context) {
		api.ListPlansHandler(c, store, cfg)
	})
	router.GET("/settings", func(c *gin.Context) {
		api.GetSettingsHandler(c, store, cfg)
	})
	router.POST("/inquiries", func(c *gin.Context) {
		api.SubmitInquiryHandler(c, store, cfg)
	})

	// --- Protected Routes (Auth Required) ---
	authMiddleware := utils.AuthMiddleware(cfg)

	router.POST("/auth/logout", authMiddleware, func(c *gin.Context) {
		api.LogoutHandler(c, store, cfg)
	})

	meGroup := router.Group("/me")
	meGroup.Use(authMiddleware)
	{
		meGroup.GET("", func(c *gin.Context) {
			api.GetMyProfileHandler(c, store, cfg)
		})
		meGroup.PUT("", func(c *gin.Context) {
			api.UpdateMyProfileHandler(c, store, cfg)
		})
		meGroup.DELETE("", func(c *gin.Context) {
			api.DeleteMyProfileHandler(c, store, cfg)
		})
	}

	router.POST("/articles", authMiddleware, func(c *gin.Context) {
		api.SubmitArticleHandler(c, store, cfg)
	})
	router.GET("/articles/mine", authMiddleware, func(c *gin.Context) {
		api.ListMyArticlesHandler(c, store, cfg)
	})
	router.GET("/articles/:id/download", authMiddleware, func(c *gin.Context) {
		api.DownloadArticleHandler(c, store, cfg)
	})
	router.GET("/magazines/:id/download", authMiddleware, func(c *gin.Context) {
		api.DownloadMagazineHandler(c, store, cfg)
	})
	router.GET("/coupons/:code", authMiddleware, func(c *gin.Context) {
		api.ValidateCouponHandler(c, store, cfg)
	})
	router.POST("/payments", authMiddleware, func(c *gin.Context) {
		api.CreatePaymentHandler(c, store, cfg)
	})
	router.GET("/payments/mine", authMiddleware, func(c *gin.Context) {
		api.ListMyPaymentsHandler(c, store, cfg)
	})
	router.GET("/notifications", authMiddleware, func(c *gin.Context) {
		api.ListMyNotificationsHandler(c, store, cfg)
	})
	router.POST("/notifications/:id/read", authMiddleware, func(c *gin.Context) {
		api.MarkNotificationReadHandler(c, store, cfg)
	})

	// --- Editorial Routes (EDITOR and above) ---
	editorGroup := router.Group("/admin/articles")
	editorGroup.Use(authMiddleware, utils.RequireRole(store, models.RoleEditor))
	{
		editorGroup.GET("", func(c *gin.Context) {
			api.ListAllArticlesHandler(c, store, cfg)
		})
		editorGroup.PUT("/:id", func(c *gin.Context) {
			api.UpdateArticleHandler(c, store, cfg)
		})
		editorGroup.PATCH("/:id/status", func(c *gin.Context) {
			api.UpdateArticleStatusHandler(c, store, cfg)
		})
		editorGroup.DELETE("/:id", func(c *gin.Context) {
			api.DeleteArticleHandler(c, store, cfg)
		})
	}

	// --- Console Routes (ADMIN and above) ---
	adminGroup := router.Group("/admin")
	adminGroup.Use(authMiddleware, utils.RequireRole(store, models.RoleAdmin))
	{
		adminGroup.POST("/magazines", func(c *gin.Context) {
			api.CreateMagazineHandler(c, store, cfg)
		})
		adminGroup.PUT("/magazines/:id", func(c *gin.Context) {
			api.UpdateMagazineHandler(c, store, cfg)
		})
		adminGroup.DELETE("/magazines/:id", func(c *gin.Context) {
			api.DeleteMagazineHandler(c, store, cfg)
		})

		adminGroup.POST("/news", func(c *gin.Context) {
			api.CreateNewsHandler(c, store, cfg)
		})
		adminGroup.PUT("/news/:id", func(c *gin.Context) {
			api.UpdateNewsHandler(c, store, cfg)
		})
		adminGroup.DELETE("/news/:id", func(c *gin.Context) {
			api.DeleteNewsHandler(c, store, cfg)
		})

		adminGroup.POST("/editorial-board", func(c *gin.Context) {
			api.CreateEditorialMemberHandler(c, store, cfg)
		})
		adminGroup.PUT("/editorial-board/:id", func(c *gin.Context) {
			api.UpdateEditorialMemberHandler(c, store, cfg)
		})
		adminGroup.DELETE("/editorial-board/:id", func(c *gin.Context) {
			api.DeleteEditorialMemberHandler(c, store, cfg)
		})

		adminGroup.POST("/leadership", func(c *gin.Context) {
			api.CreateLeadershipMemberHandler(c, store, cfg)
		})
		adminGroup.PUT("/leadership/:id", func(c *gin.Context) {
			api.UpdateLeadershipMemberHandler(c, store, cfg)
		})
		adminGroup.DELETE("/leadership/:id", func(c *gin.Context) {
			api.DeleteLeadershipMemberHandler(c, store, cfg)
		})

		adminGroup.POST("/pages", func(c *gin.Context) {
			api.CreateStaticPageHandler(c, store, cfg)
		})
		adminGroup.GET("/pages", func(c *gin.Context) {
			api.ListStaticPagesHandler(c, store, cfg)
		})
		adminGroup.PUT("/pages/:id", func(c *gin.Context) {
			api.UpdateStaticPageHandler(c, store, cfg)
		})
		adminGroup.DELETE("/pages/:id", func(c *gin.Context) {
			api.DeleteStaticPageHandler(c, store, cfg)
		})

		adminGroup.POST("/products", func(c *gin.Context) {
			api.CreateProductHandler(c, store, cfg)
		})
		adminGroup.PUT("/products/:id", func(c *gin.Context) {
			api.UpdateProductHandler(c, store, cfg)
		})
		adminGroup.DELETE("/products/:id", func(c *gin.Context) {
			api.DeleteProductHandler(c, store, cfg)
		})

		adminGroup.GET("/coupons", func(c *gin.Context) {
			api.ListCouponsHandler(c, store, cfg)
		})
		adminGroup.POST("/coupons", func(c *gin.Context) {
			api.CreateCouponHandler(c, store, cfg)
		})
		adminGroup.PUT("/coupons/:id", func(c *gin.Context) {
			api.UpdateCouponHandler(c, store, cfg)
		})
		adminGroup.DELETE("/coupons/:id", func(c *gin.Context) {
			api.DeleteCouponHandler(c, store, cfg)
		})

		adminGroup.POST("/plans", func(c *gin.Context) {
			api.CreatePlanHandler(c, store, cfg)
		})
		adminGroup.PUT("/plans/:id", func(c *gin.Context) {
			api.UpdatePlanHandler(c, store, cfg)
		})
		adminGroup.DELETE("/plans/:id", func(c *gin.Context) {
			api.DeletePlanHandler(c, store, cfg)
		})

		adminGroup.GET("/payments", func(c *gin.Context) {
			api.ListPaymentsHandler(c, store, cfg)
		})
		adminGroup.POST("/payments/:id/verify", func(c *gin.Context) {
			api.VerifyPaymentHandler(c, store, cfg)
		})
		adminGroup.POST("/payments/:id/reject", func(c *gin.Context) {
			api.RejectPaymentHandler(c, store, cfg)
		})

		adminGroup.GET("/inquiries", func(c *gin.Context) {
			api.ListInquiriesHandler(c, store, cfg)
		})
		adminGroup.POST("/inquiries/:id/resolve", func(c *gin.Context) {
			api.ResolveInquiryHandler(c, store, cfg)
		})
		adminGroup.DELETE("/inquiries/:id", func(c *gin.Context) {
			api.DeleteInquiryHandler(c, store, cfg)
		})

		adminGroup.POST("/notifications", func(c *gin.Context) {
			api.CreateNotificationHandler(c, store, cfg)
		})

		adminGroup.GET("/email-templates", func(c *gin.Context) {
			api.ListEmailTemplatesHandler(c, store, cfg)
		})
		adminGroup.POST("/email-templates", func(c *gin.Context) {
			api.CreateEmailTemplateHandler(c, store, cfg)
		})
		adminGroup.PUT("/email-templates/:id", func(c *gin.Context) {
			api.UpdateEmailTemplateHandler(c, store, cfg)
		})
		adminGroup.DELETE("/email-templates/:id", func(c *gin.Context) {
			api.DeleteEmailTemplateHandler(c, store, cfg)
		})

		adminGroup.PUT("/settings", func(c *gin.Context) {
			api.UpdateSettingsHandler(c, store, cfg)
		})

		adminGroup.GET("/users", func(c *gin.Context) {
			api.ListUsersHandler(c, store, cfg)
		})
		adminGroup.DELETE("/users/:id", func(c *gin.Context) {
			api.DeleteUserHandler(c, store, cfg)
		})

		adminGroup.GET("/records/:collection", func(c *gin.Context) {
			api.QueryRecordsHandler(c, store, cfg)
		})
	}

	// Live collection snapshots for the admin console.
	router.GET("/ws/:collection", authMiddleware, utils.RequireRole(store, models.RoleAdmin), func(c *gin.Context) {
		api.StreamCollectionHandler(c, store, cfg)
	})

	// --- Super Admin Routes ---
	router.PATCH("/admin/users/:id/role",
		authMiddleware, utils.RequireRole(store, models.RoleSuperAdmin),
		func(c *gin.Context) {
			api.UpdateUserRoleHandler(c, store, cfg)
		})

	// --- Swagger Route ---
	router.StaticFS("/docs", http.Dir("docs"))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))

	// --- Start Server ---
	listenAddr := fmt.Sprintf("%s:%s", cfg.ListenAddress, cfg.ListenPort)
	log.Printf("INFO: Starting server on %s", listenAddr)

	server := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	// Flush pending writes on SIGINT/SIGTERM before exiting.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Printf("INFO: Shutting down, flushing store")
		if err := store.Close(); err != nil {
			log.Printf("WARN: Final store flush failed: %v", err)
		}
		server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("CRITICAL: Server failed to start: %v", err)
	}
}
