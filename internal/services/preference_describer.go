package services

import (
	"context"
	"runtime"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/temcen/affinity/pkg/models"
)

const (
	topPreferenceLabels = 3
	topBehaviorTypes    = 3
	topEndorsedItems    = 5
)

// PreferenceDescriber summarizes what a user's neighbors engage with. It keeps no state
// between calls.
type PreferenceDescriber struct {
	model    *InteractionModel
	features FeatureLookup
	workers  int
	logger   *logrus.Logger
}

// NewPreferenceDescriber looks up neighbor item features with at most workers concurrent
// calls; workers <= 0 uses GOMAXPROCS.
func NewPreferenceDescriber(model *InteractionModel, features FeatureLookup, workers int, logger *logrus.Logger) *PreferenceDescriber {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &PreferenceDescriber{
		model:    model,
		features: features,
		workers:  workers,
		logger:   logger,
	}
}

// Describe renders the preference summary of profile as text.
func (d *PreferenceDescriber) Describe(ctx context.Context, profile *models.CollaborativeProfile) string {
	return d.Summarize(ctx, profile).Text()
}

// Summarize tallies categories, brands, prices and behavior types over every behavior
// record of the profile's neighbors.
func (d *PreferenceDescriber) Summarize(ctx context.Context, profile *models.CollaborativeProfile) *models.PreferenceSummary {
	summary := &models.PreferenceSummary{
		UserID:        profile.UserID,
		NeighborCount: len(profile.Neighbors),
	}
	if len(profile.Neighbors) == 0 {
		return summary
	}

	resolved := d.resolveFeatures(ctx, profile.Neighbors)

	var (
		categories = newLabelTally()
		brands     = newLabelTally()
		behaviors  = make(map[models.BehaviorType]int)
		priceSum   float64
		priceCount int
	)

	for _, n := range profile.Neighbors {
		for _, record := range d.model.History(n.UserID) {
			behaviors[record.BehaviorType]++

			f := resolved[record.ItemID]
			if f == nil {
				continue
			}

			categories.add(f.Category)
			brands.add(f.Brand)
			if f.Price > 0 {
				priceSum += f.Price
				priceCount++
			}
		}
	}

	summary.Categories = categories.top(topPreferenceLabels)
	summary.Brands = brands.top(topPreferenceLabels)
	if priceCount > 0 {
		summary.PriceBand = models.PriceBandFor(priceSum / float64(priceCount))
	}
	summary.BehaviorMix = topBehaviors(behaviors, topBehaviorTypes)

	endorsed := profile.CandidateItems
	if len(endorsed) > topEndorsedItems {
		endorsed = endorsed[:topEndorsedItems]
	}
	summary.EndorsedItems = append([]string(nil), endorsed...)

	return summary
}

// resolveFeatures looks up every distinct item of the neighbors once. Items whose lookup
// fails are absent from the result.
func (d *PreferenceDescriber) resolveFeatures(ctx context.Context, neighbors []models.Neighbor) map[string]*models.ItemFeatures {
	var items []string
	seen := make(map[string]struct{})
	for _, n := range neighbors {
		for itemID := range d.model.Items(n.UserID) {
			if _, ok := seen[itemID]; !ok {
				seen[itemID] = struct{}{}
				items = append(items, itemID)
			}
		}
	}

	found := make([]*models.ItemFeatures, len(items))
	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, itemID := range items {
		i, itemID := i, itemID
		g.Go(func() error {
			f, err := lookupFeatures(ctx, d.features, itemID)
			if err != nil {
				d.logger.WithError(err).WithField("item_id", itemID).Debug("Skipping item without features")
				return nil
			}
			found[i] = f
			return nil
		})
	}
	_ = g.Wait()

	resolved := make(map[string]*models.ItemFeatures, len(items))
	for i, f := range found {
		if f != nil {
			resolved[items[i]] = f
		}
	}
	return resolved
}

// foldLabel normalizes a category or brand label for comparison.
func foldLabel(label string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(label)))
}

type labelCount struct {
	display string
	key     string
	count   int
}

// labelTally counts labels by folded key, keeping the first spelling seen for display.
type labelTally struct {
	counts map[string]*labelCount
}

func newLabelTally() *labelTally {
	return &labelTally{counts: make(map[string]*labelCount)}
}

func (t *labelTally) add(label string) {
	key := foldLabel(label)
	if key == "" {
		return
	}
	if lc, ok := t.counts[key]; ok {
		lc.count++
		return
	}
	t.counts[key] = &labelCount{display: strings.TrimSpace(label), key: key, count: 1}
}

// top returns up to n labels by descending count, ties by folded key.
func (t *labelTally) top(n int) []string {
	all := make([]*labelCount, 0, len(t.counts))
	for _, lc := range t.counts {
		all = append(all, lc)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].key < all[j].key
	})
	if len(all) > n {
		all = all[:n]
	}

	labels := make([]string, len(all))
	for i, lc := range all {
		labels[i] = lc.display
	}
	return labels
}

func topBehaviors(counts map[models.BehaviorType]int, n int) []models.BehaviorCount {
	mix := make([]models.BehaviorCount, 0, len(models.BehaviorTypes))
	for _, bt := range models.BehaviorTypes {
		if c := counts[bt]; c > 0 {
			mix = append(mix, models.BehaviorCount{BehaviorType: bt, Count: c})
		}
	}
	sort.SliceStable(mix, func(i, j int) bool {
		return mix[i].Count > mix[j].Count
	})
	if len(mix) > n {
		mix = mix[:n]
	}
	return mix
}
