// Package script holds the static phase-to-prompt lookup used for opener
// messages and gateway-failure fallbacks. The mapping is deterministic and
// independent of the extraction engine.
package script

import "github.com/mwhitford/leadchat/internal/domain"

// Prompt is a scripted bot utterance with optional quick-reply options.
type Prompt struct {
	Text        string
	Options     []string
	MultiSelect bool
}

// FallbackText is rendered when a dialogue turn fails. The conversation
// holds its phase and the visitor can simply try again.
const FallbackText = "Sorry, I hit a snag there. Mind sending that one more time?"

var prompts = map[domain.Phase]Prompt{
	domain.PhaseOpener: {
		Text: "Hey! Quick question while you're here: who answers the phone when your crew is out on a job?",
		Options: []string{
			"I answer everything myself",
			"Office staff handles it",
			"An answering service",
			"Mostly goes to voicemail",
		},
	},
	domain.PhaseDiscovery: {
		Text: "Got it. What kind of work does your business do?",
		Options: []string{
			"HVAC",
			"Plumbing",
			"Electrical",
			"Roofing",
			"Something else",
		},
	},
	domain.PhasePainPoint: {
		Text: "How often do calls slip through the cracks on a busy day?",
	},
	domain.PhaseQuantification: {
		Text: "Roughly how many calls come in on a typical day?",
		Options: []string{
			"Under 5 calls",
			"5-10 calls",
			"10-20 calls",
			"20+ calls",
		},
	},
	domain.PhaseObjectionHandling: {
		Text: "Fair enough. What's the biggest thing holding you back from fixing that today?",
	},
	domain.PhaseQualification: {
		Text: "I can put some real numbers against those missed calls. What's the best email to send them to?",
	},
	domain.PhaseClose: {
		Text: "That's everything I need. Anything else you'd like us to know?",
	},
	domain.PhaseQualifiedClose: {
		Text: "You're all set. Someone from our team will reach out with your missed-call breakdown shortly.",
	},
	domain.PhaseDisqualifiedClose: {
		Text: "Thanks for chatting! Feel free to come back any time.",
	},
}

// For returns the scripted prompt for a phase. Unknown phases fall back to
// the opener so a conversation can always start.
func For(phase domain.Phase) Prompt {
	if p, ok := prompts[phase]; ok {
		return p
	}
	return prompts[domain.PhaseOpener]
}

// Opener returns the opening prompt emitted when the widget is first opened.
func Opener() Prompt {
	return prompts[domain.PhaseOpener]
}

// Fallback returns the recoverable-error prompt for a failed turn.
func Fallback() Prompt {
	return Prompt{Text: FallbackText}
}
