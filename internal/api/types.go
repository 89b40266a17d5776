// Package api contains types for the API requests and responses.
package api

import "github.com/greengliwice/trees-backend/internal/models"

// Created is returned by create-my-tree.
type Created struct {
	ID string `json:"id"`
}

// DictEntry is one item of a dictionary listing.
type DictEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TreeDetail is a tree whose blob URLs are presigned for ExpiresIn seconds.
type TreeDetail struct {
	models.Tree
	ExpiresIn int `json:"expiresIn"`
}

// TreeSummary is the list view of a tree.
type TreeSummary struct {
	ID               string `json:"id"`
	TreeThumbnailURL string `json:"treeThumbnailUrl"`
}

// TreeSummaries is returned by get-my-trees.
type TreeSummaries struct {
	Trees     []TreeSummary `json:"trees"`
	ExpiresIn int           `json:"expiresIn,omitempty"`
}

// TreeDetails is returned by get-all-trees.
type TreeDetails struct {
	Trees     []models.Tree `json:"trees"`
	ExpiresIn int           `json:"expiresIn,omitempty"`
}

// LeaderboardEntry is the public view of a score.
type LeaderboardEntry struct {
	UserName string `json:"userName"`
	Points   int    `json:"points"`
}

// Leaderboard wraps entry listings.
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// Removed reports a bulk deletion.
type Removed struct {
	Trees int `json:"trees"`
}
