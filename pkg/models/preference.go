package models

import (
	"fmt"
	"strings"
)

// PriceBand buckets the mean price of items liked by similar users.
type PriceBand string

const (
	PriceBandUnknown PriceBand = ""
	PriceBandLow     PriceBand = "low"
	PriceBandMid     PriceBand = "mid"
	PriceBandHigh    PriceBand = "high"
)

// PriceBandFor buckets a price: low below 50, mid from 50 to 200, high above 200.
func PriceBandFor(price float64) PriceBand {
	switch {
	case price < 50:
		return PriceBandLow
	case price <= 200:
		return PriceBandMid
	default:
		return PriceBandHigh
	}
}

func (b PriceBand) describe() string {
	switch b {
	case PriceBandLow:
		return "low-priced items"
	case PriceBandMid:
		return "mid-priced items"
	case PriceBandHigh:
		return "high-priced items"
	default:
		return "no clear price preference"
	}
}

// PreferenceSummary is the structured preference view of a user derived from their neighbors.
type PreferenceSummary struct {
	UserID        string          `json:"user_id"`
	NeighborCount int             `json:"neighbor_count"`
	Categories    []string        `json:"categories,omitempty"`
	Brands        []string        `json:"brands,omitempty"`
	PriceBand     PriceBand       `json:"price_band,omitempty"`
	BehaviorMix   []BehaviorCount `json:"behavior_mix,omitempty"`
	EndorsedItems []string        `json:"endorsed_items,omitempty"`
}

// Text renders the summary with a fixed template, one statement per line.
func (s *PreferenceSummary) Text() string {
	if s == nil || s.NeighborCount == 0 {
		userID := ""
		if s != nil {
			userID = s.UserID
		}
		return fmt.Sprintf("No clear preference: user %s has no similar users with enough shared behavior.", userID)
	}

	lines := []string{
		fmt.Sprintf("Preference analysis for user %s based on %d similar users:", s.UserID, s.NeighborCount),
	}

	if len(s.Categories) > 0 {
		lines = append(lines, "Preferred categories: "+strings.Join(s.Categories, ", "))
	}
	if len(s.Brands) > 0 {
		lines = append(lines, "Preferred brands: "+strings.Join(s.Brands, ", "))
	}
	if s.PriceBand != PriceBandUnknown {
		lines = append(lines, "Price preference: "+s.PriceBand.describe())
	}
	if len(s.BehaviorMix) > 0 {
		parts := make([]string, len(s.BehaviorMix))
		for i, bc := range s.BehaviorMix {
			parts[i] = fmt.Sprintf("%s (%d)", bc.BehaviorType, bc.Count)
		}
		lines = append(lines, "Behavior pattern: "+strings.Join(parts, ", "))
	}
	if len(s.EndorsedItems) > 0 {
		lines = append(lines, "Recommended by similar users: "+strings.Join(s.EndorsedItems, ", "))
	}

	return strings.Join(lines, "\n")
}
