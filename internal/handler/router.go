package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handlers — полный набор HTTP-обработчиков сервиса
type Handlers struct {
	Directory *DirectoryHandler
	File      *FileHandler
	Trash     *TrashHandler
	Share     *ShareHandler
	Quota     *QuotaHandler
}

// NewRouter собирает маршруты API
func NewRouter(h Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/directories", func(r chi.Router) {
			r.Post("/", h.Directory.Create)
			r.Get("/root", h.Directory.GetRoot)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Directory.Get)
				r.Put("/rename", h.Directory.Rename)
				r.Put("/move", h.Directory.Move)
				r.Delete("/", h.Directory.Delete)
			})
		})

		r.Route("/files", func(r chi.Router) {
			r.Post("/uploads", h.File.RequestUpload)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Post("/complete", h.File.CompleteUpload)
				r.Get("/download", h.File.DownloadURL)
				r.Put("/rename", h.File.Rename)
				r.Put("/move", h.File.Move)
				r.Delete("/", h.File.HardDelete)
				r.Post("/trash", h.Trash.Trash)
				r.Post("/restore", h.Trash.Restore)
			})
		})

		r.Route("/trash", func(r chi.Router) {
			r.Get("/", h.Trash.List)
			r.Delete("/", h.Trash.Empty)
		})

		r.Route("/shares", func(r chi.Router) {
			r.Post("/", h.Share.Create)

			r.Route("/{token}", func(r chi.Router) {
				r.Get("/", h.Share.Get)
				r.Delete("/", h.Share.Revoke)
				r.Get("/access", h.Share.Access)
			})
		})

		r.Get("/quota", h.Quota.Usage)
	})

	return r
}
