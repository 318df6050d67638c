package models

import (
	"time"

	"github.com/google/uuid"
)

// Neighbor is another user selected as behaviorally similar to a target user.
type Neighbor struct {
	UserID      string  `json:"user_id"`
	Similarity  float64 `json:"similarity"`
	CommonItems int     `json:"common_items"`
}

// CollaborativeProfile is the neighbor-derived view of a user. Neighbors are ordered by
// descending similarity; CandidateItems never contains an item the user already touched.
type CollaborativeProfile struct {
	UserID          string           `json:"user_id"`
	Neighbors       []Neighbor       `json:"neighbors"`
	CandidateItems  []string         `json:"candidate_items"`
	CandidateScores []float64        `json:"candidate_scores"`
	BehaviorHistory []BehaviorRecord `json:"behavior_history"`
}

// SimilarUsers returns the neighbor ids in similarity order.
func (p *CollaborativeProfile) SimilarUsers() []string {
	ids := make([]string, len(p.Neighbors))
	for i, n := range p.Neighbors {
		ids[i] = n.UserID
	}
	return ids
}

// SimilarityScores returns the neighbor similarities aligned with SimilarUsers.
func (p *CollaborativeProfile) SimilarityScores() []float64 {
	scores := make([]float64, len(p.Neighbors))
	for i, n := range p.Neighbors {
		scores[i] = n.Similarity
	}
	return scores
}

// ProfileExport is the record handed to external sinks for one user.
type ProfileExport struct {
	ID          uuid.UUID             `json:"id"`
	Profile     *CollaborativeProfile `json:"profile"`
	Summary     *PreferenceSummary    `json:"summary"`
	Description string                `json:"description"`
	GeneratedAt time.Time             `json:"generated_at"`
}
