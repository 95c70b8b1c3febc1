package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHealth = "/health"

	// Identity Service routes
	RouteLogin          = "/api/login/"
	RouteRefresh        = "/api/auth/refresh/"
	RoutePersonalInfo   = "/api/personal-info/"
	RouteSocialCallback = "/api/auth/{provider}/callback"
	RouteRevoke         = "/api/auth/revoke/"

	// Resource collections
	RouteGoals        = "/api/goals/"
	RouteGoal         = "/api/goals/{id}/"
	RouteGoalProgress = "/api/goals/{id}/progress/"
	RouteHabits       = "/api/habits/"
	RouteHabit        = "/api/habits/{id}/"
	RouteHabitLog     = "/api/habits/{id}/log/"
	RouteNotes        = "/api/notes/"
	RouteNote         = "/api/notes/{id}/"
	RouteAPIPreflight = "/api/"
)
