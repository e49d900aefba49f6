package http

import (
	"net/http"
	"time"

	"perfreport/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterOptions struct {
	Logger *zap.Logger
	// RequestTimeout bounds every request. Chat and comparison calls wait on
	// the agent, so it should exceed the agent timeout.
	RequestTimeout time.Duration
}

func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger(log.Named("http")))
	r.Use(Recoverer(log))
	r.Use(Timeout(opts.RequestTimeout))
	r.Use(CORS)

	r.Get("/healthz", handler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload/crm", handler.uploadHandler(service.KindCRM))
		r.Post("/upload/erp/sales", handler.uploadHandler(service.KindERP))
		r.Post("/upload/datacode", handler.uploadHandler(service.KindDataCode))

		r.Get("/uploads/{kind}", handler.ListUploads)
		r.Get("/uploads/{kind}/{id}", handler.GetUpload)
		r.Get("/latest_uploads", handler.LatestUploads)

		r.Post("/generate_report", handler.GenerateReport)
		r.Post("/generate_latest_report", handler.GenerateLatestReport)
		r.Get("/reports", handler.ListReports)
		r.Get("/report/{id}", handler.GetReport)
		r.Get("/report/{id}/export", handler.ExportReport)
		r.Get("/latest_report", handler.LatestReport)

		r.Post("/chat", handler.ChatReport)
		r.Post("/compare_reports", handler.CompareReports)
		r.Post("/comparison/follow_up", handler.FollowUp)
		r.Get("/comparison/{id}", handler.GetComparison)
		r.Get("/comparisons", handler.ListComparisons)
		r.Get("/comparisons/session/{id}", handler.ListSessionComparisons)
	})

	return r
}
