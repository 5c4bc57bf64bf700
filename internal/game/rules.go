// internal/game/rules.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/oldskool/internal/engine"
)

// maxHandSize keeps four full hands plus a starter inside one deck.
const maxHandSize = 12

// fixedRules are the rules every table plays the same way; updates naming them are refused.
var fixedRules = map[string]int{
	"dirtyFinishPenalty": engine.DirtyFinishPenalty,
	"powerFinishPenalty": engine.PowerFinishPenalty,
}

// HouseRules are the per-lobby table settings. The embedded engine.Rules are handed to the
// engine unchanged; the rest is enforced by the match session.
type HouseRules struct {
	engine.Rules
	ForfeitOnDisconnect bool `json:"forfeitOnDisconnect"` // a disconnect mid-match abandons it
	TurnTimerSec        int  `json:"turnTimerSec"`        // seconds before an idle player auto-draws; 0 disables
}

// DefaultHouseRules returns the standard table: seven cards, forfeit on disconnect and a
// 30 second turn timer.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		Rules:               engine.DefaultRules(),
		ForfeitOnDisconnect: true,
		TurnTimerSec:        30,
	}
}

// Update will update the house rules with the new rules provided.
// If a rule is not set or defined, it will be ignored, and the old value will persist.
// On error the receiver is left unchanged.
func (rules *HouseRules) Update(newRules map[string]interface{}) error {
	next := *rules

	assignBool := func(field *bool, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	assignInt := func(field *int, key string, minVal, maxVal int) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		var n int
		switch v := val.(type) {
		case float64:
			// JSON numbers decode as float64
			n = int(v)
		case int:
			n = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if n < minVal || (maxVal > 0 && n > maxVal) {
			return fmt.Errorf("%s must be between %d and %d", key, minVal, maxVal)
		}
		*field = n
		return nil
	}

	if err := assignInt(&next.HandSize, "handSize", 1, maxHandSize); err != nil {
		return err
	}
	for key, fixed := range fixedRules {
		if _, exists := newRules[key]; exists {
			return fmt.Errorf("%s is fixed at %d and cannot be changed", key, fixed)
		}
	}
	if err := assignBool(&next.ForfeitOnDisconnect, "forfeitOnDisconnect"); err != nil {
		return err
	}
	if err := assignInt(&next.TurnTimerSec, "turnTimerSec", 0, 600); err != nil {
		return err
	}

	*rules = next
	return nil
}

// ParseRules applies rules on top of current and returns the result.
func ParseRules(rules map[string]interface{}, current HouseRules) (HouseRules, error) {
	houseRules := current
	err := houseRules.Update(rules)
	return houseRules, err
}
