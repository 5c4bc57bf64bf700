package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// IntentKind tags the closed set of player intents.
type IntentKind string

const (
	IntentPlay        IntentKind = "play"
	IntentDraw        IntentKind = "draw"
	IntentDeclareLast IntentKind = "declare_last"
	IntentChooseSuit  IntentKind = "choose_suit"
)

// Intent is a validated player request. Only the types in this file implement it.
type Intent interface {
	Kind() IntentKind
}

// Play plays CardIDs in order. SuitChoice optionally resolves a terminal Ace.
type Play struct {
	CardIDs    []uuid.UUID
	SuitChoice *Suit
}

// Draw draws a card or absorbs the pending obligation.
type Draw struct{}

// DeclareLast announces "LAST" before playing out.
type DeclareLast struct{}

// ChooseSuit resolves a pending Ace.
type ChooseSuit struct {
	Suit Suit
}

func (Play) Kind() IntentKind        { return IntentPlay }
func (Draw) Kind() IntentKind        { return IntentDraw }
func (DeclareLast) Kind() IntentKind { return IntentDeclareLast }
func (ChooseSuit) Kind() IntentKind  { return IntentChooseSuit }

// Result is the outcome of ApplyIntent. Reason and Err are set only when OK is false.
type Result struct {
	OK     bool
	Events []Event
	Reason Reason
	Err    error
}

// ApplyIntent is the single entry point for player intents. It never partially applies.
func ApplyIntent(t *Table, playerID uuid.UUID, in Intent) Result {
	var (
		events []Event
		err    error
	)
	switch v := in.(type) {
	case Play:
		events, err = t.Play(playerID, v.CardIDs, v.SuitChoice)
	case *Play:
		events, err = t.Play(playerID, v.CardIDs, v.SuitChoice)
	case Draw, *Draw:
		events, err = t.Draw(playerID)
	case DeclareLast, *DeclareLast:
		events, err = t.DeclareLast(playerID)
	case ChooseSuit:
		events, err = t.ChooseSuit(playerID, v.Suit)
	case *ChooseSuit:
		events, err = t.ChooseSuit(playerID, v.Suit)
	default:
		err = reject(ReasonIllegalPlay, "unsupported intent %s", describe(in))
	}
	if err != nil {
		return Result{Reason: ReasonOf(err), Err: err}
	}
	return Result{OK: true, Events: events}
}

func describe(in Intent) string {
	if in == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", in)
}
