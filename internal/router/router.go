package router

import (
	"time"

	"nakl/internal/config"
	"nakl/internal/handler"
	"nakl/internal/infra"
	"nakl/internal/middleware"
	"nakl/internal/repository"
	"nakl/internal/service"
	"nakl/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Deps are the process-level collaborators built in cmd/server.
// Every field except DB may be nil.
type Deps struct {
	DB         *gorm.DB
	Redis      *redis.Client
	LedgerCB   *infra.CircuitBreaker
	Events     service.EventPublisher
	Dispatcher *worker.Dispatcher
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()...))
	r.Use(middleware.ErrorHandler())
	if cfg.RateLimit > 0 {
		r.Use(middleware.RateLimiter(cfg.RateLimit, time.Minute))
	}

	db := deps.DB

	// ── Repositories ─────────────────────────────────────────────────────────
	seqRepo := repository.NewSequenceRepository(db)
	tenderRepo := repository.NewTenderRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	bidRepo := repository.NewBidRepository(db)
	letterRepo := repository.NewAwardLetterRepository(db)
	workOrderRepo := repository.NewWorkOrderRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	postingRepo := repository.NewLedgerPostingRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	alloc := service.NewAllocator(seqRepo, cfg.SequenceMaxAttempts)

	tenderSvc := service.NewTenderService(tenderRepo, alloc, deps.Events, cfg.DefaultCurrency)
	documentSvc := service.NewDocumentService(tenderRepo, purchaseRepo, postingRepo, alloc, deps.Dispatcher, deps.Events)
	bidSvc := service.NewBidService(tenderRepo, purchaseRepo, bidRepo, alloc, deps.Events)
	awardSvc := service.NewAwardService(tenderRepo, bidRepo, letterRepo, workOrderRepo, postingRepo, alloc, deps.Dispatcher, deps.Events, cfg.PDFStoragePath)
	assignmentSvc := service.NewAssignmentService(tenderRepo, bidRepo, letterRepo, workOrderRepo, postingRepo, assignmentRepo, alloc, deps.Dispatcher, deps.Events)
	reportSvc := service.NewReportService(tenderRepo, bidRepo, deps.Redis, time.Duration(cfg.ReportCacheTTLSeconds)*time.Second)

	// ── Handlers ─────────────────────────────────────────────────────────────
	tendersH := handler.NewTendersHandler(tenderSvc, documentSvc, bidSvc, awardSvc)
	reportsH := handler.NewReportsHandler(reportSvc)
	lettersH := handler.NewAwardLettersHandler(awardSvc)
	assignmentsH := handler.NewAssignmentsHandler(assignmentSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, deps.Redis, deps.LedgerCB))

	const (
		admin       = middleware.RoleAdmin
		procurement = middleware.RoleProcurement
		evaluator   = middleware.RoleEvaluator
		finance     = middleware.RoleFinance
	)
	anyRole := middleware.RequireRole(procurement, evaluator, finance)

	api := r.Group("/api", middleware.JWTAuth(cfg.JWTSecret))

	tenders := api.Group("/tenders")
	{
		// Static segments first; gin resolves /reports before /:id.
		reports := tenders.Group("/reports", anyRole)
		{
			reports.GET("/summary", reportsH.Summary)
			reports.GET("/bid-analysis", reportsH.BidAnalysis)
			reports.GET("/vendor-performance", reportsH.VendorPerformance)
			reports.GET("/milestone-progress", reportsH.MilestoneProgress)
			reports.GET("/financial-summary", reportsH.FinancialSummary)
		}
		tenders.GET("/stats", anyRole, tendersH.Stats)

		tenders.GET("", anyRole, tendersH.List)
		tenders.POST("", middleware.RequireRole(procurement), tendersH.Create)
		tenders.GET("/:id", anyRole, tendersH.Get)
		tenders.PUT("/:id", middleware.RequireRole(procurement), tendersH.Update)
		tenders.DELETE("/:id", middleware.RequireRole(admin), tendersH.Delete)
		tenders.POST("/:id/transition", middleware.RequireRole(procurement), tendersH.Transition)
		tenders.GET("/:id/report", anyRole, reportsH.TenderReport)

		tenders.POST("/:id/items", middleware.RequireRole(procurement), tendersH.AddItems)
		tenders.POST("/:id/milestones", middleware.RequireRole(procurement), tendersH.AddMilestones)
		tenders.PUT("/:id/milestones/:milestoneId", middleware.RequireRole(procurement), tendersH.UpdateMilestone)

		tenders.POST("/:id/purchase-documents", middleware.RequireRole(procurement, finance), tendersH.PurchaseDocuments)
		tenders.POST("/:id/purchases/:purchaseId/void", middleware.RequireRole(admin), tendersH.VoidPurchase)
		tenders.GET("/:id/access", anyRole, tendersH.Access)

		tenders.POST("/:id/submit-bid", middleware.RequireRole(procurement), tendersH.SubmitBid)
		tenders.POST("/:id/bids/:bidId/score", middleware.RequireRole(evaluator), tendersH.ScoreBid)
		tenders.POST("/:id/bids/:bidId/reject", middleware.RequireRole(procurement, evaluator), tendersH.RejectBid)
		tenders.POST("/:id/evaluate", middleware.RequireRole(evaluator), tendersH.Evaluate)

		tenders.POST("/:id/award", middleware.RequireRole(procurement), tendersH.Award)
		tenders.POST("/:id/create-work-order", middleware.RequireRole(procurement), tendersH.CreateWorkOrder)
	}

	letters := api.Group("/award-letters")
	{
		letters.GET("", anyRole, lettersH.List)
		letters.POST("", middleware.RequireRole(procurement), lettersH.Create)
		letters.GET("/:id", anyRole, lettersH.Get)
		letters.GET("/:id/pdf", anyRole, lettersH.PDF)
		letters.POST("/:id/issue", middleware.RequireRole(procurement), lettersH.Issue)
		letters.POST("/:id/accept", middleware.RequireRole(procurement), lettersH.Accept)
		letters.POST("/:id/reject", middleware.RequireRole(procurement), lettersH.Reject)
	}

	assignments := api.Group("/assignments")
	{
		assignments.GET("", anyRole, assignmentsH.List)
		assignments.POST("", middleware.RequireRole(procurement), assignmentsH.Create)
		assignments.GET("/:id", anyRole, assignmentsH.Get)
		assignments.POST("/:id/status", middleware.RequireRole(procurement), assignmentsH.UpdateStatus)
		assignments.POST("/:id/payments/:index/paid", middleware.RequireRole(finance), assignmentsH.MarkPaid)
	}

	// Swagger UI, only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
