package engine

import (
	"errors"
	"fmt"
)

// Reason is the machine-readable rejection category returned to the originating player.
type Reason string

const (
	ReasonNotYourTurn        Reason = "not_your_turn"
	ReasonCardsNotInHand     Reason = "cards_not_in_hand"
	ReasonIllegalPlay        Reason = "illegal_play"
	ReasonInvalidSuitChoice  Reason = "invalid_suit_choice"
	ReasonAwaitingSuitChoice Reason = "awaiting_suit_choice"
	ReasonMatchEnded         Reason = "match_ended"
)

// Sentinel errors, one per Reason. RejectError unwraps to these.
var (
	ErrNotYourTurn        = errors.New("not your turn")
	ErrCardsNotInHand     = errors.New("cards not in hand")
	ErrIllegalPlay        = errors.New("illegal play")
	ErrInvalidSuitChoice  = errors.New("invalid suit choice")
	ErrAwaitingSuitChoice = errors.New("awaiting suit choice")
	ErrMatchEnded         = errors.New("match ended")
)

var reasonErrors = map[Reason]error{
	ReasonNotYourTurn:        ErrNotYourTurn,
	ReasonCardsNotInHand:     ErrCardsNotInHand,
	ReasonIllegalPlay:        ErrIllegalPlay,
	ReasonInvalidSuitChoice:  ErrInvalidSuitChoice,
	ReasonAwaitingSuitChoice: ErrAwaitingSuitChoice,
	ReasonMatchEnded:         ErrMatchEnded,
}

// RejectError describes why an intent was refused. The table is never modified when one
// is returned.
type RejectError struct {
	Reason Reason
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return reasonErrors[e.Reason].Error()
	}
	return fmt.Sprintf("%s: %s", reasonErrors[e.Reason], e.Detail)
}

func (e *RejectError) Unwrap() error {
	return reasonErrors[e.Reason]
}

func reject(reason Reason, format string, args ...interface{}) error {
	return &RejectError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the rejection reason from err, or "" if err is not a rejection.
func ReasonOf(err error) Reason {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}
