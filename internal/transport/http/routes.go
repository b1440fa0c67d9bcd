package httptransport

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouteOptions struct {
	// MediaRoot is served under MediaURL when set (filesystem storage).
	MediaRoot string
	MediaURL  string
}

func Routes(h *Handler, log zerolog.Logger, opts RouteOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate-image", h.GenerateImage)
		r.Get("/tasks/{job_id}/status", h.TaskStatus)
		r.Get("/task-status/{job_id}", h.TaskStatus)

		r.Post("/chat", h.Chat)
		r.Get("/conversations", h.Conversations)
		r.Get("/conversations/{session_id}/messages", h.Messages)

		r.Route("/gallery", func(r chi.Router) {
			r.Get("/", h.Gallery)
			r.Get("/{id}", h.GalleryItem)
			r.Post("/{id}/like", h.Like)
			r.Post("/{id}/publish", h.Publish)
		})
	})

	if opts.MediaRoot != "" {
		prefix := "/" + strings.Trim(opts.MediaURL, "/")
		if prefix == "/" {
			prefix = "/media"
		}
		fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(opts.MediaRoot)))
		r.Get(prefix+"/*", fs.ServeHTTP)
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return otelhttp.NewHandler(r, "docent-api")
}
