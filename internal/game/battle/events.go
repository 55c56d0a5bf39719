package battle

// EventType identifies what a single resolved step did.
// The zero value (EventUnknown) is intentionally invalid.
type EventType int

const (
	EventUnknown EventType = iota
	EventTurnChanged
	EventMissed
	EventHit
	EventHealed
	EventDefended
	EventDefeated
	EventLeveledUp
	EventMatchEnded
)

// String returns the human-readable name of the EventType.
func (t EventType) String() string {
	switch t {
	case EventTurnChanged:
		return "turn_changed"
	case EventMissed:
		return "missed"
	case EventHit:
		return "hit"
	case EventHealed:
		return "healed"
	case EventDefended:
		return "defended"
	case EventDefeated:
		return "defeated"
	case EventLeveledUp:
		return "leveled_up"
	case EventMatchEnded:
		return "match_ended"
	default:
		return "unknown"
	}
}

// Result is the terminal outcome of a match, from the player's point of view.
type Result int

const (
	ResultNone Result = iota // match not yet decided
	ResultWon
	ResultLost
)

// String returns a human-readable result label.
func (r Result) String() string {
	switch r {
	case ResultWon:
		return "won"
	case ResultLost:
		return "lost"
	default:
		return "undecided"
	}
}

// Event records one discrete thing that happened while an action resolved.
// The engine emits events in resolution order; the presentation layer
// replays them with its own pacing. Field meaning depends on Type:
//
//   - EventTurnChanged: Side is the side whose turn begins.
//   - EventMissed: Side is the attacker that missed.
//   - EventHit: Side is the attacker; Amount is the damage dealt after
//     any mitigation; Crit marks a critical.
//   - EventHealed: Side is the healer; Amount is the HP actually restored.
//   - EventDefended: Side raised its defend stance.
//   - EventDefeated: Side is the fallen combatant.
//   - EventLeveledUp: Side leveled; NewLevel is the resulting level.
//   - EventMatchEnded: Result is the final outcome.
type Event struct {
	Type      EventType
	Side      Side
	Amount    int
	Crit      bool
	NewLevel  int
	Result    Result
	Narrative string
}
