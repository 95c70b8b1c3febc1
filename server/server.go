// Package server is a development stand-in for the dashboard backend: the
// Identity Service endpoints the session client talks to plus the goals,
// habits and notes collections.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/jrsteele09/dashboard-session/api"
	"github.com/jrsteele09/dashboard-session/internal/config"
	"github.com/jrsteele09/dashboard-session/server/resourcerepo"
	"github.com/jrsteele09/dashboard-session/token"
	"github.com/jrsteele09/dashboard-session/token/refresh"
	refreshrepofake "github.com/jrsteele09/dashboard-session/token/refresh/repofake"
	"github.com/jrsteele09/dashboard-session/users"
	fakeuserrepo "github.com/jrsteele09/dashboard-session/users/repofake"
	"github.com/rs/zerolog"
)

// Deps are the repositories and collaborators of the Server. Nil fields get
// in-memory defaults.
type Deps struct {
	Users         users.UserRepo
	RefreshTokens refresh.Repo
	Tokens        *token.Manager
	Goals         resourcerepo.Repo[api.Goal]
	Habits        resourcerepo.Repo[api.Habit]
	Notes         resourcerepo.Repo[api.Note]
	// Social overrides the verifiers built from config, keyed by provider name.
	Social map[string]SocialVerifier
	Logger *zerolog.Logger
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	log       zerolog.Logger
	validator *Validator

	users   users.UserRepo
	tokens  *token.Manager
	refresh *refresh.Manager
	goals   resourcerepo.Repo[api.Goal]
	habits  resourcerepo.Repo[api.Habit]
	notes   resourcerepo.Repo[api.Note]

	social     map[string]SocialVerifier
	socialLock sync.RWMutex
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("[Server New] config is required")
	}

	s := &Server{
		mux:       http.NewServeMux(),
		config:    cfg,
		env:       cfg.GetEnv(),
		log:       zerolog.Nop(),
		validator: NewValidator(),
		users:     deps.Users,
		tokens:    deps.Tokens,
		goals:     deps.Goals,
		habits:    deps.Habits,
		notes:     deps.Notes,
		social:    make(map[string]SocialVerifier),
	}
	if deps.Logger != nil {
		s.log = *deps.Logger
	}
	if s.users == nil {
		s.users = fakeuserrepo.NewFakeUserRepo()
	}
	if s.tokens == nil {
		s.tokens = token.New(
			token.NewHMACSigner(cfg.GetTokenSecret()),
			token.WithIssuer(cfg.GetIssuer()),
			token.WithAccessTokenExpiry(cfg.GetAccessTokenExpiry()),
		)
	}
	refreshRepo := deps.RefreshTokens
	if refreshRepo == nil {
		refreshRepo = refreshrepofake.NewFakeRefreshTokenRepo()
	}
	s.refresh = refresh.NewManager(refreshRepo, cfg)
	if s.goals == nil {
		s.goals = resourcerepo.NewInMemoryRepo[api.Goal]()
	}
	if s.habits == nil {
		s.habits = resourcerepo.NewInMemoryRepo[api.Habit]()
	}
	if s.notes == nil {
		s.notes = resourcerepo.NewInMemoryRepo[api.Note]()
	}
	for name, v := range deps.Social {
		s.social[strings.ToLower(name)] = v
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	s.log.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
