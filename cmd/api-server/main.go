package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"procurement/db"
	"procurement/db/migrations"
	"procurement/internal/blob"
	"procurement/internal/config"
	"procurement/internal/handlers"
	"procurement/internal/notify"
	"procurement/models"
)

func main() {
	root := &cobra.Command{
		Use:   "api-server",
		Short: "Procurement workflow service",
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if err := migrations.Up(cfg.PostgresConn, cfg.MigrationsDir); err != nil {
				return err
			}

			dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
			if err != nil {
				return err
			}
			defer dbConn.Close()

			store := db.NewStorage(dbConn)
			fs := blob.NewFSStore(cfg.BlobRoot, cfg.BlobBaseURL, []byte(cfg.BlobSigningKey))

			var pub notify.Publisher = notify.Noop{}
			if cfg.NATSUrl != "" {
				np, err := notify.Connect(cfg.NATSUrl)
				if err != nil {
					return err
				}
				defer np.Close()
				pub = np
			}

			h := handlers.NewHandler(store, fs, fs, pub, cfg)
			r := newRouter(h)

			log.Printf("Starting server on %s", cfg.ServerAddress)
			return http.ListenAndServe(cfg.ServerAddress, r)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				return migrations.Up(cfg.PostgresConn, cfg.MigrationsDir)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				return migrations.Status(cfg.PostgresConn, cfg.MigrationsDir)
			},
		},
	)
	return cmd
}

func newRouter(h *handlers.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/files/{bucket}/*", h.ServeFileHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			// tenders
			r.Get("/tenders", h.GetTendersHandler)
			r.Get("/tenders/{tenderId}", h.GetTenderHandler)
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(models.RoleAdmin))
				r.Post("/tenders", h.CreateTenderHandler)
				r.Put("/tenders/{tenderId}", h.UpdateTenderHandler)
				r.Post("/tenders/{tenderId}/documents", h.AttachTenderDocumentHandler)
				r.Delete("/tenders/{tenderId}", h.DeleteTenderHandler)
			})

			// bids
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(models.RoleSupplier))
				r.Post("/bids/submit", h.SubmitBidHandler)
				r.Get("/bids/my-status/{tenderId}", h.GetMyBidStatusHandler)
			})
			r.With(h.RequireRole(models.RoleAdmin)).
				Get("/bids/tender/{tenderId}", h.GetBidsForTenderHandler)

			// evaluations
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(models.RoleAdmin))
				r.Post("/evaluations/score-tech", h.ScoreTechnicalHandler)
				r.Get("/evaluations/bid/{bidId}", h.GetEvaluationsHandler)
				r.Get("/evaluations/view-tech/{bidId}", h.ViewTechnicalHandler)
				r.Get("/evaluations/download-tech/{bidId}", h.DownloadTechnicalHandler)
				r.Get("/evaluations/view-fin/{bidId}", h.ViewFinancialHandler)
				r.Get("/evaluations/download-fin/{bidId}", h.DownloadFinancialHandler)
			})

			// awards
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(models.RoleAdmin))
				r.Post("/awards/award-winner", h.AwardWinnerHandler)
				r.Put("/awards/finalize/{awardId}", h.FinalizeAwardHandler)
			})
			r.Get("/awards/tender/{tenderId}", h.GetAwardForTenderHandler)

			// carnivals
			r.Get("/carnivals", h.GetCarnivalsHandler)
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(models.RoleAdmin))
				r.Post("/carnivals", h.CreateCarnivalHandler)
				r.Put("/carnivals/update-status", h.UpdateCarnivalBidStatusHandler)
			})
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(models.RoleSupplier))
				r.Post("/carnivals/submit-bid", h.SubmitCarnivalBidHandler)
				r.Get("/carnivals/my-bid/{carnivalId}", h.GetMyCarnivalBidHandler)
			})
		})
	})

	return r
}
