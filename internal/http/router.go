package http

import (
	"net/http"

	"github.com/ballotbox/server/internal/auth"
	"github.com/ballotbox/server/internal/election"
	"github.com/ballotbox/server/internal/http/handlers"
	"github.com/ballotbox/server/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterDeps bundles everything the router wires together
type RouterDeps struct {
	Verify      *handlers.VerifyHandler
	Voting      *handlers.VotingHandler
	Nominations *handlers.NominationHandler
	Positions   *handlers.PositionHandler
	Issuer      *election.TokenIssuer
	JWT         *auth.JWTService

	// DocumentDir, when set, serves filesystem-stored nomination documents
	// under /documents/. Empty when an object store handles URLs itself.
	DocumentDir string
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", handlers.NewHealthHandler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Route("/verify", func(r chi.Router) {
			r.Post("/request-otp", deps.Verify.HandleRequestOTP)
			r.Post("/confirm", deps.Verify.HandleConfirm)
		})

		// Voter flow: the single-use ballot token is the bearer credential.
		r.Group(func(r chi.Router) {
			r.Use(middleware.BallotTokenMiddleware(deps.Issuer))
			r.Get("/voting/ballot", deps.Voting.HandleGetBallot)
			r.Post("/voting/cast", deps.Voting.HandleCast)
		})

		r.Get("/positions", deps.Positions.HandleList)

		r.Route("/candidate", func(r chi.Router) {
			r.Post("/nominate", deps.Nominations.HandleNominate)

			// Officer flow: separately issued officer credential.
			r.Group(func(r chi.Router) {
				r.Use(middleware.OfficerMiddleware(deps.JWT))
				r.Get("/", deps.Nominations.HandleList)
				r.Patch("/{id}/decision", deps.Nominations.HandleDecision)
			})
		})
	})

	if deps.DocumentDir != "" {
		fileServer := http.StripPrefix("/documents/", http.FileServer(http.Dir(deps.DocumentDir)))
		r.Get("/documents/*", fileServer.ServeHTTP)
	}

	return r
}
