package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/config"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/handler"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/middleware"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/service"
)

// Deps are the infrastructure clients built by the caller. Metrics and ANAF
// may be nil.
type Deps struct {
	ANAF    *infra.ANAFClient
	Storage infra.Storage
	Metrics *infra.Metrics
	Jobs    service.JobQueue
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMinute))

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	partnerRepo := repository.NewPartnerRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	bankRepo := repository.NewBankRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	efacturaRepo := repository.NewEFacturaRepository(db)
	saftRepo := repository.NewSAFTRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	companySvc := service.NewCompanyService(companyRepo, userRepo, rdb)
	partnerSvc := service.NewPartnerService(partnerRepo)
	periodSvc := service.NewPeriodService(periodRepo)
	efacturaSvc := service.NewEFacturaService(efacturaRepo, invoiceRepo, companyRepo, deps.Storage, deps.Jobs)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, partnerRepo, companyRepo, periodSvc, efacturaSvc, deps.Jobs)
	expenseSvc := service.NewExpenseService(expenseRepo, periodSvc, deps.Storage)
	bankSvc := service.NewBankService(bankRepo, invoiceRepo)
	reportSvc := service.NewReportService(invoiceRepo, expenseRepo, bankRepo)
	taxSvc := service.NewTaxService(rdb)
	ocrSvc := service.NewOCRService(expenseSvc)
	saftSvc := service.NewSAFTService(saftRepo, userRepo, companyRepo, invoiceRepo, bankRepo, deps.Storage)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	companiesH := handler.NewCompaniesHandler(companySvc)
	partnersH := handler.NewPartnersHandler(partnerSvc)
	invoicesH := handler.NewInvoicesHandler(invoiceSvc)
	expensesH := handler.NewExpensesHandler(expenseSvc)
	bankH := handler.NewBankHandler(bankSvc)
	periodsH := handler.NewPeriodsHandler(periodSvc)
	taxH := handler.NewTaxHandler(taxSvc)
	reportsH := handler.NewReportsHandler(reportSvc)
	ocrH := handler.NewOCRHandler(ocrSvc)
	adminH := handler.NewAdminHandler(rdb)
	efacturaH := handler.NewEFacturaHandler(efacturaSvc)
	saftH := handler.NewSAFTHandler(saftSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, deps.ANAF))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/register", authH.Register)
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		v1.GET("/auth/me", authH.Me)

		tax := v1.Group("/tax")
		{
			tax.GET("/rates", taxH.ListRates)
			tax.GET("/rates/:country", taxH.CountryRates)
			tax.POST("/calculate", taxH.Calculate)
			tax.POST("/treatment", taxH.Treatment)
		}
		v1.POST("/ocr/enhance", ocrH.Enhance)

		admin := v1.Group("/admin", middleware.RequireRole(service.RoleAdmin))
		{
			admin.GET("/dlq/:queue", adminH.DLQ)
			admin.POST("/dlq/:queue/requeue", adminH.Requeue)
		}

		v1.POST("/companies", companiesH.Create)
		v1.GET("/companies", companiesH.List)

		// Everything below is tenant scoped. Viewers are read-only; the
		// management routes are narrowed per endpoint.
		co := v1.Group("/companies/:companyId", middleware.CompanyAccess(companySvc))
		manage := middleware.RequireMemberRole(model.MemberOwner, model.MemberAdmin)
		{
			co.GET("", companiesH.Get)
			co.PUT("", manage, companiesH.Update)
			co.GET("/members", companiesH.ListMembers)
			co.POST("/members", manage, companiesH.AddMember)

			partners := co.Group("/partners")
			{
				partners.POST("", partnersH.Create)
				partners.GET("", partnersH.List)
				partners.GET("/:id", partnersH.Get)
				partners.PUT("/:id", partnersH.Update)
				partners.DELETE("/:id", partnersH.Delete)
			}

			invoices := co.Group("/invoices")
			{
				invoices.POST("", invoicesH.Create)
				invoices.GET("", invoicesH.List)
				invoices.GET("/:id", invoicesH.Get)
				invoices.PUT("/:id", invoicesH.Update)
				invoices.DELETE("/:id", invoicesH.Delete)
				invoices.POST("/:id/issue", invoicesH.Issue)
				invoices.POST("/:id/cancel", invoicesH.Cancel)
				invoices.POST("/:id/pay", invoicesH.Pay)
				invoices.GET("/:id/pdf", invoicesH.PDF)
				invoices.POST("/:id/send", invoicesH.Send)
			}

			expenses := co.Group("/expenses")
			{
				expenses.POST("", expensesH.Create)
				expenses.GET("", expensesH.List)
				expenses.GET("/:id", expensesH.Get)
				expenses.PUT("/:id", expensesH.Update)
				expenses.DELETE("/:id", expensesH.Delete)
				expenses.POST("/:id/approve", expensesH.Approve)
				expenses.POST("/:id/reject", expensesH.Reject)
				expenses.POST("/:id/document", expensesH.UploadDocument)
				expenses.GET("/:id/document", expensesH.Document)
			}
			co.POST("/ocr/expense", ocrH.CreateExpense)

			bank := co.Group("/bank")
			{
				bank.POST("/accounts", bankH.CreateAccount)
				bank.GET("/accounts", bankH.ListAccounts)
				bank.GET("/accounts/:id", bankH.GetAccount)
				bank.PUT("/accounts/:id", bankH.UpdateAccount)
				bank.DELETE("/accounts/:id", bankH.DeleteAccount)
				bank.POST("/accounts/:id/import", bankH.Import)
				bank.GET("/accounts/:id/balance", bankH.Balance)
				bank.GET("/transactions", bankH.ListTransactions)
				bank.POST("/transactions/:id/match", bankH.Match)
			}

			periods := co.Group("/periods")
			{
				periods.GET("", periodsH.List)
				periods.POST("/:period/close", manage, periodsH.Close)
				periods.POST("/:period/reopen", manage, periodsH.Reopen)
			}

			reports := co.Group("/reports")
			{
				reports.GET("/monthly", reportsH.Monthly)
				reports.GET("/expenses-by-category", reportsH.ExpensesByCategory)
				reports.GET("/profit-loss", reportsH.ProfitLoss)
				reports.GET("/vat", reportsH.VAT)
				reports.GET("/dashboard", reportsH.Dashboard)
			}

			ef := co.Group("/efactura")
			{
				ef.GET("/config", efacturaH.GetConfig)
				ef.PUT("/config", manage, efacturaH.UpdateConfig)
				ef.GET("/submissions", efacturaH.Submissions)
				ef.GET("/logs", efacturaH.Logs)
				ef.GET("/invoices/:invoiceId/validate", efacturaH.Validate)
				ef.GET("/invoices/:invoiceId/xml", efacturaH.XML)
				ef.POST("/invoices/:invoiceId/submit", efacturaH.Submit)
				ef.GET("/invoices/:invoiceId/status", efacturaH.Status)
			}

			saft := co.Group("/saft")
			{
				saft.POST("/d406", saftH.Generate)
				saft.GET("/exports", saftH.List)
				saft.GET("/exports/:id/download", saftH.Download)
			}
		}
	}

	// Swagger UI, outside production only
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
