package parse

import (
	"encoding/json"
	"time"
)

// Opt is a value that may be absent from the source file.
type Opt[T any] struct {
	Value T
	Valid bool
}

func Some[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Valid: true}
}

// Get returns the value and whether it was present.
func (o Opt[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

// Or returns the value, or fallback when absent.
func (o Opt[T]) Or(fallback T) T {
	if !o.Valid {
		return fallback
	}
	return o.Value
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Defaults for chat metadata fields missing from the header.
const (
	DefaultNoteValue     = -1
	DefaultLastInContext = -1
)

type ChatDocument struct {
	Header   Header          `json:"header"`
	Messages []MessageRecord `json:"messages"`
}

// Span returns the send dates of the first and last message.
func (d *ChatDocument) Span() (first, last time.Time) {
	if len(d.Messages) == 0 {
		return time.Time{}, time.Time{}
	}
	return d.Messages[0].Metadata.SendDate, d.Messages[len(d.Messages)-1].Metadata.SendDate
}

type Header struct {
	UserName      string         `json:"userName"`
	CharacterName string         `json:"characterName"`
	CreationDate  Opt[time.Time] `json:"creationDate"`
	LineCount     int            `json:"lineCount"` // accepted lines, set after the whole file is read
	Metadata      ChatMetadata   `json:"chatMetadata"`
}

type ChatMetadata struct {
	Integrity              string                     `json:"integrity"`
	ChatIDHash             Opt[int64]                 `json:"chatIdHash"`
	Attachments            []json.RawMessage          `json:"attachments,omitempty"`
	Variables              map[string]json.RawMessage `json:"variables,omitempty"`
	NotePrompt             string                     `json:"notePrompt"`
	NoteInterval           int                        `json:"noteInterval"`
	NotePosition           int                        `json:"notePosition"`
	NoteDepth              int                        `json:"noteDepth"`
	NoteRole               int                        `json:"noteRole"`
	TimedWorldInfo         map[string]json.RawMessage `json:"timedWorldInfo,omitempty"`
	Tainted                bool                       `json:"tainted"`
	LastInContextMessageID int                        `json:"lastInContextMessageId"`

	// Extra keeps keys this model does not name (quickReply and friends).
	Extra map[string]json.RawMessage `json:"extra,omitempty"`
}

// DefaultChatMetadata is the metadata of a header with no chat_metadata object.
func DefaultChatMetadata() ChatMetadata {
	return ChatMetadata{
		NoteInterval:           DefaultNoteValue,
		NotePosition:           DefaultNoteValue,
		NoteDepth:              DefaultNoteValue,
		NoteRole:               DefaultNoteValue,
		LastInContextMessageID: DefaultLastInContext,
	}
}

type MessageRecord struct {
	Name       string          `json:"name"`
	IsUser     bool            `json:"isUser"`
	Message    string          `json:"message"`
	FileLine   int             `json:"fileLine"`   // logical index among accepted lines
	SourceLine int             `json:"sourceLine"` // physical 1-based line in the file
	Metadata   MessageMetadata `json:"metadata"`

	IsSystem      Opt[bool]         `json:"isSystem"`
	SwipeID       Opt[int]          `json:"swipeId"`
	Swipes        []string          `json:"swipes,omitempty"`
	SwipeMetadata []MessageMetadata `json:"swipeMetadata,omitempty"`
}

// ActiveText returns the selected swipe when SwipeID points into Swipes,
// otherwise the message body.
func (m *MessageRecord) ActiveText() string {
	if id, ok := m.SwipeID.Get(); ok && id >= 0 && id < len(m.Swipes) {
		return m.Swipes[id]
	}
	return m.Message
}

// Role is "user", "system" or "char".
func (m *MessageRecord) Role() string {
	switch {
	case m.IsSystem.Or(false):
		return "system"
	case m.IsUser:
		return "user"
	default:
		return "char"
	}
}

// MessageMetadata describes how one turn or one swipe was produced.
// Generation fields are absent on plain user turns.
type MessageMetadata struct {
	SendDate          time.Time      `json:"sendDate"`
	Reasoning         Opt[string]    `json:"reasoning"`
	TokenCount        Opt[int]       `json:"tokenCount"`
	GenStarted        Opt[time.Time] `json:"genStarted"`
	GenFinished       Opt[time.Time] `json:"genFinished"`
	API               Opt[string]    `json:"api"`
	Model             Opt[string]    `json:"model"`
	ReasoningDuration Opt[int]       `json:"reasoningDuration"`
	TimeToFirstToken  Opt[int]       `json:"timeToFirstToken"`
	ReasoningType     Opt[string]    `json:"reasoningType"`
	IsSmallSys        Opt[bool]      `json:"isSmallSys"`

	// Only set on a message's own metadata, never on a swipe's.
	ForceAvatar Opt[string] `json:"forceAvatar"`
	Title       Opt[string] `json:"title"`
}

// Generated reports whether any generation detail is present.
func (md *MessageMetadata) Generated() bool {
	return md.API.Valid || md.Model.Valid || md.GenStarted.Valid || md.TokenCount.Valid
}
