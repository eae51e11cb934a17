// Package engine implements the Cinco card game rules.
//
// The engine owns the authoritative state of a single two-seat game:
// both hands, the draw and discard piles, the turn machine and every
// active card effect. It is deliberately free of I/O and third-party
// dependencies; the UI layer and the multiplayer sync bridge consume
// it through action methods, snapshots and callbacks.
package engine

// Color identifies a card's color. ColorWild marks colorless cards.
type Color uint8

const (
	ColorNone Color = iota
	ColorRed
	ColorBlue
	ColorGreen
	ColorYellow
	ColorWild
)

// PlayColors lists the four playable colors in deterministic order.
var PlayColors = [4]Color{ColorRed, ColorBlue, ColorGreen, ColorYellow}

func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorBlue:
		return "blue"
	case ColorGreen:
		return "green"
	case ColorYellow:
		return "yellow"
	case ColorWild:
		return "wild"
	}
	return "none"
}

// Kind classifies cards into the four deck families.
type Kind uint8

const (
	KindNumber Kind = iota
	KindAction
	KindPower
	KindWild
)

func (k Kind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindPower:
		return "power"
	case KindWild:
		return "wild"
	}
	return "number"
}

// Card value identifiers for non-number cards.
const (
	ValueSkip     = "skip"
	ValueReverse  = "reverse"
	ValueDrain    = "drain"    // +2
	ValueOverload = "overload" // +3
	ValueWipe     = "wipe"     // hand wipe
	ValueBlock    = "block"    // shield / reactive block
	ValueLock     = "lock"     // color lock
	ValueWild     = "wild"
	ValueBigDraw  = "bigdraw" // +4, unblockable
	ValueSteal    = "steal"   // extra turn
	ValueSwap     = "swap"    // swap two random cards
	ValueCopy     = "copy"    // repeat last power/wild effect
)

// Card is an immutable card value. Wild-colored cards always have
// Kind == KindWild.
type Card struct {
	Color Color  `json:"color"`
	Value string `json:"value"`
	Kind  Kind   `json:"kind"`
}

// Effect is the closed set of special-card effect classes. Number cards
// resolve to EffectNone.
type Effect uint8

const (
	EffectNone Effect = iota
	EffectSkip
	EffectReverse
	EffectDrain
	EffectOverload
	EffectBigDraw
	EffectWipe
	EffectBlock
	EffectLock
	EffectSteal
	EffectCopy
	EffectSwap
	EffectWild
)

// Effect maps the card's value identifier to its effect class.
func (c Card) Effect() Effect {
	switch c.Value {
	case ValueSkip:
		return EffectSkip
	case ValueReverse:
		return EffectReverse
	case ValueDrain:
		return EffectDrain
	case ValueOverload:
		return EffectOverload
	case ValueBigDraw:
		return EffectBigDraw
	case ValueWipe:
		return EffectWipe
	case ValueBlock:
		return EffectBlock
	case ValueLock:
		return EffectLock
	case ValueSteal:
		return EffectSteal
	case ValueCopy:
		return EffectCopy
	case ValueSwap:
		return EffectSwap
	case ValueWild:
		return EffectWild
	}
	return EffectNone
}

// DrawCount returns how many cards the targeted seat draws when the
// effect lands, or 0 for non-draw effects.
func (e Effect) DrawCount() int {
	switch e {
	case EffectDrain:
		return 2
	case EffectOverload:
		return 3
	case EffectBigDraw:
		return 4
	}
	return 0
}

// Blockable reports whether a held block card (or an active shield)
// can cancel this effect. BigDraw is never blockable.
func (e Effect) Blockable() bool {
	switch e {
	case EffectDrain, EffectOverload, EffectWipe:
		return true
	}
	return false
}

// Copyable reports whether a copy card may re-execute this effect.
// Steal, wipe and copy itself are excluded to prevent runaway turns
// and self-referential copies.
func (e Effect) Copyable() bool {
	switch e {
	case EffectSteal, EffectWipe, EffectCopy, EffectNone:
		return false
	}
	return true
}

// Seat identifies one of the two participants.
type Seat uint8

const (
	SeatPlayer Seat = iota
	SeatOpponent
)

// Other returns the opposing seat.
func (s Seat) Other() Seat { return 1 - s }

func (s Seat) String() string {
	if s == SeatOpponent {
		return "opponent"
	}
	return "player"
}

// Mode selects who controls the opponent seat and which policies apply.
type Mode uint8

const (
	ModeAI Mode = iota
	ModeLocal
	ModeOnline
)

func (m Mode) String() string {
	switch m {
	case ModeLocal:
		return "local"
	case ModeOnline:
		return "online"
	}
	return "ai"
}
