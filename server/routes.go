package server

import "net/http"

// exact anchors a trailing-slash route so it does not match its subtree.
func exact(route string) string {
	return route + "{$}"
}

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	// Identity Service
	s.RegisterRouteHandler("POST "+exact(RouteLogin), ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+exact(RouteRefresh), ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSocialCallback, ChainMiddleware(s.SocialCallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+exact(RoutePersonalInfo), ChainMiddleware(s.PersonalInfoHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+exact(RouteRevoke), ChainMiddleware(s.RevokeHandler(), s.APIMiddleware(s.RequireAuth())...))

	// Resource collections (require a valid access token)
	goals := goalsCollection(s)
	s.RegisterRouteHandler("GET "+exact(RouteGoals), ChainMiddleware(goals.List(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+exact(RouteGoals), ChainMiddleware(goals.Create(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+exact(RouteGoal), ChainMiddleware(goals.Get(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("PUT "+exact(RouteGoal), ChainMiddleware(goals.Update(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("DELETE "+exact(RouteGoal), ChainMiddleware(goals.Delete(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("PUT "+exact(RouteGoalProgress), ChainMiddleware(s.GoalProgressHandler(), s.APIMiddleware(s.RequireAuth())...))

	habits := habitsCollection(s)
	s.RegisterRouteHandler("GET "+exact(RouteHabits), ChainMiddleware(habits.List(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+exact(RouteHabits), ChainMiddleware(habits.Create(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+exact(RouteHabit), ChainMiddleware(habits.Get(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("PUT "+exact(RouteHabit), ChainMiddleware(habits.Update(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("DELETE "+exact(RouteHabit), ChainMiddleware(habits.Delete(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+exact(RouteHabitLog), ChainMiddleware(s.HabitLogHandler(), s.APIMiddleware(s.RequireAuth())...))

	notes := notesCollection(s)
	s.RegisterRouteHandler("GET "+exact(RouteNotes), ChainMiddleware(notes.List(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+exact(RouteNotes), ChainMiddleware(notes.Create(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+exact(RouteNote), ChainMiddleware(notes.Get(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("PUT "+exact(RouteNote), ChainMiddleware(notes.Update(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("DELETE "+exact(RouteNote), ChainMiddleware(notes.Delete(), s.APIMiddleware(s.RequireAuth())...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS "+RouteAPIPreflight, ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))
}
