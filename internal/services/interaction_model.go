package services

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/temcen/affinity/pkg/models"
)

// InteractionModel is the per-user aggregation of a batch of behavior records.
// It is read-only once built; a changed behavior set requires a new model.
type InteractionModel struct {
	userItems      map[string]map[string]float64
	behaviorCounts map[string]map[models.BehaviorType]int
	history        map[string][]models.BehaviorRecord
	users          []string
	recordCount    int
}

var recordValidator = validator.New()

// BuildInteractionModel aggregates records into per-user item weights and behavior counts.
// Weights of repeated (user, item) pairs accumulate. Any invalid record rejects the batch.
func BuildInteractionModel(records []models.BehaviorRecord) (*InteractionModel, error) {
	m := &InteractionModel{
		userItems:      make(map[string]map[string]float64),
		behaviorCounts: make(map[string]map[models.BehaviorType]int),
		history:        make(map[string][]models.BehaviorRecord),
		recordCount:    len(records),
	}

	for i, record := range records {
		if err := recordValidator.Struct(record); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", models.ErrDataIntegrity, i, err)
		}

		items, ok := m.userItems[record.UserID]
		if !ok {
			items = make(map[string]float64)
			m.userItems[record.UserID] = items
			m.behaviorCounts[record.UserID] = make(map[models.BehaviorType]int)
			m.users = append(m.users, record.UserID)
		}

		items[record.ItemID] += record.EffectiveWeight()
		m.behaviorCounts[record.UserID][record.BehaviorType]++
		m.history[record.UserID] = append(m.history[record.UserID], record)
	}

	sort.Strings(m.users)

	return m, nil
}

// Users returns every user with at least one record, sorted by id.
func (m *InteractionModel) Users() []string {
	users := make([]string, len(m.users))
	copy(users, m.users)
	return users
}

func (m *InteractionModel) HasUser(userID string) bool {
	_, ok := m.userItems[userID]
	return ok
}

// Items returns the item weight map of a user. The map is shared and must not be modified.
func (m *InteractionModel) Items(userID string) map[string]float64 {
	return m.userItems[userID]
}

// BehaviorCounts returns the behavior type tallies of a user. The map must not be modified.
func (m *InteractionModel) BehaviorCounts(userID string) map[models.BehaviorType]int {
	return m.behaviorCounts[userID]
}

// History returns a copy of the user's records in input order.
func (m *InteractionModel) History(userID string) []models.BehaviorRecord {
	records := m.history[userID]
	out := make([]models.BehaviorRecord, len(records))
	copy(out, records)
	return out
}

// CommonItemCount returns how many distinct items both users interacted with.
func (m *InteractionModel) CommonItemCount(a, b string) int {
	itemsA, itemsB := m.userItems[a], m.userItems[b]
	if len(itemsA) > len(itemsB) {
		itemsA, itemsB = itemsB, itemsA
	}

	count := 0
	for itemID := range itemsA {
		if _, ok := itemsB[itemID]; ok {
			count++
		}
	}
	return count
}

func (m *InteractionModel) UserCount() int {
	return len(m.users)
}

func (m *InteractionModel) RecordCount() int {
	return m.recordCount
}

// ItemCount returns the number of distinct items across all users.
func (m *InteractionModel) ItemCount() int {
	seen := make(map[string]struct{})
	for _, items := range m.userItems {
		for itemID := range items {
			seen[itemID] = struct{}{}
		}
	}
	return len(seen)
}
