// Package wheel defines the reward wheel segments and the weighted draw.
package wheel

import (
	"errors"
	"math/rand"
)

// Reward types.
const (
	RewardTrophies  = "trophies"
	RewardExtraSpin = "extra_spin"
	RewardAccessory = "accessory"
)

// ErrEmptyWheel is returned when a wheel has no positive weight.
var ErrEmptyWheel = errors.New("wheel has no segments")

// Segment is one slice of the wheel.
type Segment struct {
	Label      string `json:"label"`
	RewardType string `json:"reward_type"`
	Value      int64  `json:"value"`
	Weight     int    `json:"weight"`
}

// ExtraSpin reports whether landing here grants an immediate re-spin.
func (s Segment) ExtraSpin() bool {
	return s.RewardType == RewardExtraSpin
}

// DefaultSegments is the standard wheel.
var DefaultSegments = []Segment{
	{Label: "5 Trophies", RewardType: RewardTrophies, Value: 5, Weight: 30},
	{Label: "10 Trophies", RewardType: RewardTrophies, Value: 10, Weight: 25},
	{Label: "25 Trophies", RewardType: RewardTrophies, Value: 25, Weight: 12},
	{Label: "50 Trophies", RewardType: RewardTrophies, Value: 50, Weight: 5},
	{Label: "Extra Spin", RewardType: RewardExtraSpin, Weight: 10},
	{Label: "Party Hat", RewardType: RewardAccessory, Weight: 6},
	{Label: "Sunglasses", RewardType: RewardAccessory, Weight: 6},
	{Label: "Bow Tie", RewardType: RewardAccessory, Weight: 6},
}

// Wheel draws segments in proportion to their weight.
type Wheel struct {
	segments []Segment
	total    int
	intn     func(n int) int
}

// New creates a wheel. Segments with non-positive weight are never drawn.
// A nil intn uses math/rand.
func New(segments []Segment, intn func(n int) int) (*Wheel, error) {
	total := 0
	kept := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if s.Weight <= 0 {
			continue
		}
		total += s.Weight
		kept = append(kept, s)
	}
	if total == 0 {
		return nil, ErrEmptyWheel
	}
	if intn == nil {
		intn = rand.Intn
	}
	return &Wheel{segments: kept, total: total, intn: intn}, nil
}

// Segments returns a copy of the drawable segments.
func (w *Wheel) Segments() []Segment {
	out := make([]Segment, len(w.segments))
	copy(out, w.segments)
	return out
}

// Draw picks a segment.
func (w *Wheel) Draw() Segment {
	return w.pick(w.intn(w.total))
}

// pick maps a roll in [0, total) to its segment.
func (w *Wheel) pick(roll int) Segment {
	for _, s := range w.segments {
		if roll < s.Weight {
			return s
		}
		roll -= s.Weight
	}
	return w.segments[len(w.segments)-1]
}
