package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/payroll-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	Env            string
	AllowedOrigins []string
	LogLevel       slog.Level
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, payrollHandler PayrollHandler, benefitHandler BenefitHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-cmlabs"),
		slog.String("version", "v1.0.0"),
		slog.String("env", opts.Env),
	)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/payroll-runs", func(r chi.Router) {
				r.Post("/", payrollHandler.CreateRun)
				r.Get("/", payrollHandler.ListRuns)

				r.Route("/{runID}", func(r chi.Router) {
					r.Get("/", payrollHandler.GetRun)
					r.Get("/export", payrollHandler.ExportRun)

					r.Post("/submit", payrollHandler.SubmitForReview)
					r.Post("/approve-review", payrollHandler.ApproveReview)
					r.Post("/approve-finance", payrollHandler.ApproveFinance)
					r.Post("/lock", payrollHandler.Lock)
					r.Post("/unlock", payrollHandler.Unlock)
					r.Post("/reject", payrollHandler.Reject)
					r.Post("/edit", payrollHandler.EditRejected)

					r.Get("/details", payrollHandler.ListDetails)
					r.Get("/payslips/{employeeID}", payrollHandler.GetPayslip)

					r.Route("/details/{detailID}/irregularities/{irregularityID}", func(r chi.Router) {
						r.Post("/escalate", payrollHandler.EscalateIrregularity)
						r.Post("/resolve", payrollHandler.ResolveIrregularity)
					})
				})
			})

			r.Route("/benefits", func(r chi.Router) {
				r.Post("/", benefitHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", benefitHandler.Get)
					r.Post("/approve", benefitHandler.Approve)
					r.Post("/reject", benefitHandler.Reject)
				})
			})
		})
	})
	return r
}
