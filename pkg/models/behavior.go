package models

import "time"

// BehaviorType is the kind of user-item interaction carried by a BehaviorRecord.
type BehaviorType string

const (
	BehaviorClick BehaviorType = "click"
	BehaviorView  BehaviorType = "view"
	BehaviorCart  BehaviorType = "cart"
	BehaviorOrder BehaviorType = "order"
)

// BehaviorTypes lists every behavior type in the fixed order used for pattern vectors.
var BehaviorTypes = []BehaviorType{BehaviorClick, BehaviorView, BehaviorCart, BehaviorOrder}

var defaultBehaviorWeights = map[BehaviorType]float64{
	BehaviorClick: 1.0,
	BehaviorView:  0.5,
	BehaviorCart:  3.0,
	BehaviorOrder: 5.0,
}

// DefaultWeight returns the implied weight of a behavior type, or 0 for unknown types.
func (t BehaviorType) DefaultWeight() float64 {
	return defaultBehaviorWeights[t]
}

// Valid reports whether t is one of the known behavior types.
func (t BehaviorType) Valid() bool {
	_, ok := defaultBehaviorWeights[t]
	return ok
}

// BehaviorRecord is one timestamped user-item interaction. Records are values and
// are never modified once created.
type BehaviorRecord struct {
	UserID       string       `json:"user_id" validate:"required"`
	ItemID       string       `json:"item_id" validate:"required"`
	BehaviorType BehaviorType `json:"behavior_type" validate:"required,oneof=click view cart order"`
	Timestamp    time.Time    `json:"timestamp" validate:"required"`
	Weight       *float64     `json:"weight,omitempty" validate:"omitempty,gte=0"`
}

// EffectiveWeight returns the explicit weight when present, otherwise the behavior type default.
func (r BehaviorRecord) EffectiveWeight() float64 {
	if r.Weight != nil {
		return *r.Weight
	}
	return r.BehaviorType.DefaultWeight()
}

// BehaviorCount is a tally of one behavior type.
type BehaviorCount struct {
	BehaviorType BehaviorType `json:"behavior_type"`
	Count        int          `json:"count"`
}
