package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sstoianov/liblend/internal/logging"
	"github.com/sstoianov/liblend/internal/server/config"
	"github.com/sstoianov/liblend/internal/server/services"
)

// Server bundles the services behind the HTTP surface.
type Server struct {
	users     *services.UserService
	libraries *services.LibraryService
	books     *services.BookService
	lendings  *services.LendingService
	backup    *services.BackupService
	config    *config.Config
	log       logging.Logger
}

func NewServer(
	users *services.UserService,
	libraries *services.LibraryService,
	books *services.BookService,
	lendings *services.LendingService,
	backup *services.BackupService,
	cfg *config.Config,
	log logging.Logger,
) *Server {
	return &Server{
		users:     users,
		libraries: libraries,
		books:     books,
		lendings:  lendings,
		backup:    backup,
		config:    cfg,
		log:       log,
	}
}

// Router mounts every route. Sign-up, sign-in and refresh are public;
// everything else sits behind the identity middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(requestLogging(s.log))

	r.Post("/auth/signup", s.handleSignUp)
	r.Post("/auth/signin", s.handleSignIn)
	r.Post("/auth/refresh", s.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(s.identity)

		r.Get("/auth/me", s.handleMe)
		r.Put("/auth/me", s.handleUpdateMe)
		r.Get("/auth/users", s.handleListUsers)

		r.Route("/libraries", func(r chi.Router) {
			r.Get("/", s.handleListLibraries)
			r.Post("/", s.handleCreateLibrary)
			r.Get("/mine", s.handleMyLibraries)
			r.Get("/{library_id}", s.handleGetLibrary)
			r.Put("/{library_id}", s.handleUpdateLibrary)
			r.Delete("/{library_id}", s.handleDeleteLibrary)

			r.Route("/{library_id}/books", func(r chi.Router) {
				r.Get("/", s.handleListBooks)
				r.Post("/", s.handleAddBook)
				r.Get("/{book_id}", s.handleGetBook)
				r.Put("/{book_id}", s.handleUpdateBook)
				r.Delete("/{book_id}", s.handleDeleteBook)
			})
		})

		r.Route("/lendings", func(r chi.Router) {
			r.Post("/new", s.handleLend)
			r.Post("/return", s.handleReturn)
			r.Get("/{library_id}/pending", s.handlePending)
		})

		r.Post("/backup", s.handleBackup)
	})

	return r
}
