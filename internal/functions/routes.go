package functions

import "net/http"

// Route binds a function to its HTTP API route.
type Route struct {
	Name    string
	Method  string
	Path    string // {param} placeholders as in API Gateway
	Handler Handler
}

// Routes lists every function of the app.
func (a *App) Routes() []Route {
	return []Route{
		{"create-my-tree", http.MethodPost, "/my/trees", a.CreateMyTree},
		{"get-my-trees", http.MethodGet, "/my/trees", a.GetMyTrees},
		{"remove-all-my-trees", http.MethodDelete, "/my/trees", a.RemoveAllMyTrees},
		{"get-my-tree", http.MethodGet, "/my/trees/{id}", a.GetMyTree},
		{"remove-my-tree", http.MethodDelete, "/my/trees/{id}", a.RemoveMyTree},
		{"remove-my-data", http.MethodDelete, "/my/data", a.RemoveMyData},
		{"get-my-hash", http.MethodGet, "/my/hash", a.GetMyHash},
		{"create-leaderboard-entry", http.MethodPost, "/my/leaderboard", a.CreateLeaderboardEntry},
		{"get-my-leaderboard-entry", http.MethodGet, "/my/leaderboard", a.GetMyLeaderboardEntry},
		{"remove-my-leaderboard-entry", http.MethodDelete, "/my/leaderboard", a.RemoveMyLeaderboardEntry},
		{"increment-leaderboard-points", http.MethodPost, "/my/leaderboard/points", a.IncrementLeaderboardPoints},
		{"get-leaderboard-entries", http.MethodGet, "/leaderboard", a.GetLeaderboardEntries},
		{"get-all-trees", http.MethodGet, "/trees", a.GetAllTrees},
		{"get-tree", http.MethodGet, "/trees/{id}", a.GetTree},
		{"dicts", http.MethodGet, "/dicts/{type}", a.ListDicts},
	}
}
