package domain

import "fmt"

// Phase is a named stage in the scripted dialogue sequence.
type Phase string

const (
	PhaseOpener            Phase = "opener"
	PhaseDiscovery         Phase = "discovery"
	PhasePainPoint         Phase = "pain-point"
	PhaseQuantification    Phase = "quantification"
	PhaseObjectionHandling Phase = "objection-handling"
	PhaseQualification     Phase = "qualification"
	PhaseClose             Phase = "close"

	// Terminal phases.
	PhaseQualifiedClose    Phase = "qualified-close"
	PhaseDisqualifiedClose Phase = "disqualified-close"
)

// phaseOrder assigns each non-terminal phase its position in the forward-only
// sequence. Terminal phases sit past the end.
var phaseOrder = map[Phase]int{
	PhaseOpener:            0,
	PhaseDiscovery:         1,
	PhasePainPoint:         2,
	PhaseQuantification:    3,
	PhaseObjectionHandling: 4,
	PhaseQualification:     5,
	PhaseClose:             6,
	PhaseQualifiedClose:    7,
	PhaseDisqualifiedClose: 7,
}

// ErrUnknownPhase reports a phase identifier outside the known set. The
// conversation holds its previous phase when this is returned.
type ErrUnknownPhase struct {
	Value string
}

func (e *ErrUnknownPhase) Error() string {
	return fmt.Sprintf("unknown conversation phase %q", e.Value)
}

// ParsePhase validates an externally supplied phase identifier against the
// known set. Gateway replies are trusted but validated: anything outside the
// enumeration is an explicit error, never a silent pass-through.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if _, ok := phaseOrder[p]; !ok {
		return "", &ErrUnknownPhase{Value: s}
	}
	return p, nil
}

// IsTerminal reports whether the phase ends the conversation.
func (p Phase) IsTerminal() bool {
	return p == PhaseQualifiedClose || p == PhaseDisqualifiedClose
}

// Known reports whether the phase is part of the fixed enumeration.
func (p Phase) Known() bool {
	_, ok := phaseOrder[p]
	return ok
}

// Advance validates a gateway-proposed transition from the current phase.
// Transitions are forward-only: a proposal that is unknown, or would move
// backward, returns the current phase unchanged along with the error so the
// caller can degrade gracefully instead of crashing the conversation. The
// only sanctioned backward move is an explicit restart to the opener,
// reserved as an extension point for future scripted flows.
func Advance(current Phase, proposed string) (Phase, error) {
	next, err := ParsePhase(proposed)
	if err != nil {
		return current, err
	}
	if next == current {
		return current, nil
	}
	if phaseOrder[next] < phaseOrder[current] {
		return current, fmt.Errorf("phase %q cannot move backward to %q", current, next)
	}
	return next, nil
}

// Restart is the explicit backward input that returns a conversation to the
// opener. Unused by the current scripted flow.
func Restart() Phase {
	return PhaseOpener
}
