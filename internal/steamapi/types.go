package steamapi

import "strings"

// MessageKind identifies the event carried by a poll entry or the type
// of an outgoing message.
type MessageKind int

const (
	KindSayText MessageKind = iota
	KindEmote
	KindLeftConversation
	KindRelationship
	KindState
	KindTyping
	KindUnknown
)

var messageKindStrings = map[MessageKind]string{
	KindSayText:          "saytext",
	KindEmote:            "emote",
	KindLeftConversation: "leftconversation",
	KindRelationship:     "personarelationship",
	KindState:            "personastate",
	KindTyping:           "typing",
}

// String returns the wire name of the kind, or "" for unknown kinds.
func (k MessageKind) String() string {
	return messageKindStrings[k]
}

// MessageKindFromString maps a wire event-type string, case-insensitively.
func MessageKindFromString(s string) MessageKind {
	for kind, name := range messageKindStrings {
		if strings.EqualFold(s, name) {
			return kind
		}
	}
	return KindUnknown
}

// PersonaState is the numeric presence state attached to state-change
// and relationship events and to profile summaries.
type PersonaState int

const (
	StateOffline PersonaState = iota
	StateOnline
	StateBusy
	StateAway
	StateSnooze
)

var personaStateStrings = map[PersonaState]string{
	StateOffline: "Offline",
	StateOnline:  "Online",
	StateBusy:    "Busy",
	StateAway:    "Away",
	StateSnooze:  "Snooze",
}

func (s PersonaState) String() string {
	return personaStateStrings[s]
}

// PersonaStateFromString maps a state name case-insensitively; anything
// unrecognized reads as offline.
func PersonaStateFromString(s string) PersonaState {
	for state, name := range personaStateStrings {
		if strings.EqualFold(s, name) {
			return state
		}
	}
	return StateOffline
}

// Message is a single chat event, either decoded from a poll response
// or handed to SendMessage for delivery. Which fields are meaningful
// depends on Kind: SayText and Emote carry Text, State carries Nick and
// State, Relationship carries State.
type Message struct {
	SteamID string
	Kind    MessageKind
	Text    string
	Nick    string
	State   PersonaState
}

// Summary is a profile snapshot for one user. Optional fields are empty
// when the server omitted them.
type Summary struct {
	SteamID  string
	Game     string
	Server   string
	Nick     string
	Profile  string
	FullName string
	State    PersonaState
}
