package routes

import (
	"fmt"
	"net/http"
	"time"

	"paylio/config"
	"paylio/controllers"
	"paylio/database"
	"paylio/middleware"
	"paylio/services"
	"paylio/utils"
	"paylio/web"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"
)

// Ограничение попыток входа с одного IP
const (
	signInAttempts = 10
	signInWindow   = time.Minute
)

// NewRouter собирает HTTP-обработчик приложения: JSON API на mux под /api,
// все остальные пути обслуживает gin с HTML-шаблонами.
func NewRouter(cfg *config.Config, db *database.Database, metrics *utils.Metrics) (http.Handler, error) {
	// Сервисы
	emailService := services.NewEmailService(cfg)
	userService := services.NewUserService(db)
	accountService := services.NewAccountService(db, emailService)
	cardService := services.NewCardService(db, cfg)
	adminService := services.NewAdminService(db)
	tokenService := services.NewTokenService(cfg)

	// Контроллеры
	webController := controllers.NewWebController(userService, accountService, cardService, tokenService, cfg.SiteURL)
	authController := controllers.NewAuthController(userService, tokenService)
	adminController := controllers.NewAdminController(adminService, accountService, metrics)

	engine, err := newEngine(webController, userService, tokenService, metrics)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()

	// Публичные маршруты API
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.LoggingMiddleware(metrics))
	api.Use(middleware.CORS)
	api.HandleFunc("/auth/signUp", authController.SignUp).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/signIn", authController.SignIn).Methods(http.MethodPost, http.MethodOptions)

	// Маршруты для сотрудников
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AuthMiddleware(tokenService, userService))
	admin.Use(middleware.StaffOnly)
	admin.HandleFunc("/accounts", adminController.ListAccounts).Methods(http.MethodGet)
	admin.HandleFunc("/accounts/export.xml", adminController.ExportAccounts).Methods(http.MethodGet)
	admin.HandleFunc("/accounts/{id:[0-9]+}", adminController.UpdateAccount).Methods(http.MethodPatch)
	admin.HandleFunc("/transactions", adminController.ListTransactions).Methods(http.MethodGet)
	admin.HandleFunc("/transactions/{id:[0-9]+}", adminController.UpdateTransaction).Methods(http.MethodPatch)
	admin.HandleFunc("/notifications", adminController.ListNotifications).Methods(http.MethodGet)
	admin.HandleFunc("/kyc", adminController.ListKYC).Methods(http.MethodGet)
	admin.HandleFunc("/metrics", adminController.Metrics).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id:[0-9]+}/dashboard", adminController.UserDashboard).Methods(http.MethodGet)

	// Сайт
	router.PathPrefix("/").Handler(engine)

	return router, nil
}

func newEngine(wc *controllers.WebController, users *services.UserService, tokens *services.TokenService, metrics *utils.Metrics) (*gin.Engine, error) {
	templates, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки шаблонов: %v", err)
	}

	engine := gin.New()
	engine.SetHTMLTemplate(templates)
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger(metrics))
	engine.Use(middleware.CurrentUser(tokens, users))

	engine.GET("/", wc.Index)
	engine.GET("/about/", wc.About)
	engine.GET("/contact/", wc.Contact)
	engine.GET("/sitemap.xml", wc.Sitemap)

	signInLimiter := utils.NewRateLimiter(signInAttempts, signInWindow)
	user := engine.Group("/user")
	user.GET("/sign-up/", wc.SignUpPage)
	user.POST("/sign-up/", wc.SignUp)
	user.GET("/sign-in/", wc.SignInPage)
	user.POST("/sign-in/", middleware.RateLimit(signInLimiter), wc.SignIn)
	user.GET("/sign-out/", wc.SignOut)

	// Для всех, кроме суперпользователя, страница отвечает 404, в том числе анонимам
	engine.GET("/account/admin/view-user/:id/", wc.AdminViewUser)

	account := engine.Group("/account", middleware.RequireLogin())
	account.GET("/", wc.Dashboard)
	account.POST("/", wc.AddCard)
	account.GET("/account/", wc.Account)
	account.GET("/kyc-reg/", wc.KYCPage)
	account.POST("/kyc-reg/", wc.KYCSubmit)

	engine.NoRoute(wc.NotFound)
	return engine, nil
}
