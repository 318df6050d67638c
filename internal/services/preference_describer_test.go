package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/affinity/pkg/models"
)

// countingLookup records how often each item is looked up.
type countingLookup struct {
	next  FeatureLookup
	mu    sync.Mutex
	calls map[string]int
}

func newCountingLookup(next FeatureLookup) *countingLookup {
	return &countingLookup{next: next, calls: make(map[string]int)}
}

func (c *countingLookup) Features(ctx context.Context, itemID string) (*models.ItemFeatures, error) {
	c.mu.Lock()
	c.calls[itemID]++
	c.mu.Unlock()
	return c.next.Features(ctx, itemID)
}

var describerFeatures = staticFeatures{
	"a": {ItemID: "a", Category: "Electronics", Brand: "BrandA", Price: 30, Popularity: 80, QualityScore: 0.9},
	"b": {ItemID: "b", Category: " electronics ", Brand: "BrandB", Price: 60, Popularity: 40, QualityScore: 0.5},
	"c": {ItemID: "c", Category: "Books", Brand: "BRANDA", Price: 0, Popularity: 10, QualityScore: 0.2},
	// "d" is missing from the catalog
}

func describerFixture(t *testing.T) (*InteractionModel, *models.CollaborativeProfile) {
	t.Helper()
	model := buildModel(t,
		behavior("me", "a", models.BehaviorClick),
		behavior("n1", "a", models.BehaviorClick),
		behavior("n1", "b", models.BehaviorOrder),
		behavior("n1", "c", models.BehaviorCart),
		behavior("n2", "a", models.BehaviorView),
		behavior("n2", "d", models.BehaviorOrder),
	)
	profile := &models.CollaborativeProfile{
		UserID: "me",
		Neighbors: []models.Neighbor{
			{UserID: "n1", Similarity: 0.9, CommonItems: 1},
			{UserID: "n2", Similarity: 0.4, CommonItems: 1},
		},
		CandidateItems:  []string{"b", "c", "d", "e", "f", "g"},
		CandidateScores: []float64{6, 5, 4, 3, 2, 1},
	}
	return model, profile
}

func TestPreferenceDescriber_Summarize(t *testing.T) {
	model, profile := describerFixture(t)
	lookup := newCountingLookup(describerFeatures)
	describer := NewPreferenceDescriber(model, lookup, 4, quietLogger())

	summary := describer.Summarize(context.Background(), profile)

	assert.Equal(t, "me", summary.UserID)
	assert.Equal(t, 2, summary.NeighborCount)
	assert.Equal(t, []string{"Electronics", "Books"}, summary.Categories)
	assert.Equal(t, []string{"BrandA", "BrandB"}, summary.Brands)
	assert.Equal(t, models.PriceBandLow, summary.PriceBand)
	assert.Equal(t, []models.BehaviorCount{
		{BehaviorType: models.BehaviorOrder, Count: 2},
		{BehaviorType: models.BehaviorClick, Count: 1},
		{BehaviorType: models.BehaviorView, Count: 1},
	}, summary.BehaviorMix)
	assert.Equal(t, []string{"b", "c", "d", "e", "f"}, summary.EndorsedItems)

	assert.Equal(t, 1, lookup.calls["a"], "features are looked up once per item")
	assert.Equal(t, 1, lookup.calls["d"])
	assert.Zero(t, lookup.calls["e"], "endorsed items are not looked up")
}

// gatedLookup holds every call until want calls are in flight at once, so a lookup made
// strictly one after another times out instead of resolving.
type gatedLookup struct {
	next     FeatureLookup
	want     int32
	inFlight atomic.Int32
	release  chan struct{}
	once     sync.Once
}

func (g *gatedLookup) Features(ctx context.Context, itemID string) (*models.ItemFeatures, error) {
	if g.inFlight.Add(1) >= g.want {
		g.once.Do(func() { close(g.release) })
	}
	select {
	case <-g.release:
		return g.next.Features(ctx, itemID)
	case <-time.After(2 * time.Second):
		return nil, errors.New("lookup was never joined by a concurrent one")
	}
}

func TestPreferenceDescriber_ConcurrentLookups(t *testing.T) {
	model, profile := describerFixture(t)
	lookup := &gatedLookup{next: describerFeatures, want: 4, release: make(chan struct{})}
	describer := NewPreferenceDescriber(model, lookup, 4, quietLogger())

	summary := describer.Summarize(context.Background(), profile)

	assert.Equal(t, int32(4), lookup.inFlight.Load(), "each distinct neighbor item is looked up once")
	assert.Equal(t, []string{"Electronics", "Books"}, summary.Categories)
	assert.Equal(t, models.PriceBandLow, summary.PriceBand)
}

func TestPreferenceDescriber_Describe(t *testing.T) {
	t.Run("renders every section", func(t *testing.T) {
		model, profile := describerFixture(t)
		describer := NewPreferenceDescriber(model, describerFeatures, 4, quietLogger())

		text := describer.Describe(context.Background(), profile)
		lines := strings.Split(text, "\n")

		require.Len(t, lines, 6)
		assert.Equal(t, "Preference analysis for user me based on 2 similar users:", lines[0])
		assert.Equal(t, "Preferred categories: Electronics, Books", lines[1])
		assert.Equal(t, "Preferred brands: BrandA, BrandB", lines[2])
		assert.Equal(t, "Price preference: low-priced items", lines[3])
		assert.Equal(t, "Behavior pattern: order (2), click (1), view (1)", lines[4])
		assert.Equal(t, "Recommended by similar users: b, c, d, e, f", lines[5])
	})

	t.Run("no neighbors", func(t *testing.T) {
		model := buildModel(t)
		describer := NewPreferenceDescriber(model, describerFeatures, 4, quietLogger())

		text := describer.Describe(context.Background(), &models.CollaborativeProfile{UserID: "ghost"})
		assert.True(t, strings.HasPrefix(text, "No clear preference"))
		assert.Contains(t, text, "ghost")
	})

	t.Run("failing lookup still describes behavior", func(t *testing.T) {
		model, profile := describerFixture(t)
		describer := NewPreferenceDescriber(model, staticFeatures{}, 4, quietLogger())

		summary := describer.Summarize(context.Background(), profile)
		assert.Empty(t, summary.Categories)
		assert.Empty(t, summary.Brands)
		assert.Equal(t, models.PriceBandUnknown, summary.PriceBand)
		assert.Len(t, summary.BehaviorMix, 3)
		assert.NotContains(t, summary.Text(), "Price preference")
	})
}

func TestPriceBandFor(t *testing.T) {
	tests := []struct {
		price float64
		band  models.PriceBand
	}{
		{0.5, models.PriceBandLow},
		{49.99, models.PriceBandLow},
		{50, models.PriceBandMid},
		{200, models.PriceBandMid},
		{200.01, models.PriceBandHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.band, models.PriceBandFor(tt.price), "price %v", tt.price)
	}
}

func TestFoldLabel(t *testing.T) {
	assert.Equal(t, foldLabel("Electronics"), foldLabel("  ELECTRONICS "))
	assert.Equal(t, foldLabel("Straße"), foldLabel("STRASSE"))
	assert.Equal(t, foldLabel("ｂｒａｎｄ"), foldLabel("brand"))
	assert.Empty(t, foldLabel("   "))
}
