// Package userhash derives the short public hash of a user id.
package userhash

import (
	"encoding/hex"
	"sort"

	"golang.org/x/crypto/sha3"

	"github.com/greengliwice/trees-backend/internal/models"
)

// Size is the digest length in bytes.
const Size = 5

// Of returns the hex SHAKE256 digest of userID truncated to Size bytes.
func Of(userID string) string {
	out := make([]byte, Size)
	sha3.ShakeSum256(out, []byte(userID))
	return hex.EncodeToString(out)
}

// UserTrees is how many trees one user added.
type UserTrees struct {
	UserID     string `yaml:"userId" json:"userId"`
	AddedTrees int    `yaml:"addedTrees" json:"addedTrees"`
}

// Hashed is UserTrees with the id replaced by its public hash.
type Hashed struct {
	Hash       string `yaml:"hash" json:"hash"`
	AddedTrees int    `yaml:"addedTrees" json:"addedTrees"`
}

// Anonymize hashes every user id, keeping the order.
func Anonymize(users []UserTrees) []Hashed {
	out := make([]Hashed, 0, len(users))
	for _, u := range users {
		out = append(out, Hashed{Hash: Of(u.UserID), AddedTrees: u.AddedTrees})
	}
	return out
}

// Count groups trees by owner, ordered by user id.
func Count(trees []models.Tree) []UserTrees {
	counts := map[string]int{}
	for _, t := range trees {
		counts[t.UserID]++
	}
	out := make([]UserTrees, 0, len(counts))
	for id, n := range counts {
		out = append(out, UserTrees{UserID: id, AddedTrees: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
