package parse

import "encoding/json"

// chat_metadata keys with a home in ChatMetadata; anything else lands in Extra.
var knownMetadataKeys = map[string]bool{
	"integrity":              true,
	"chat_id_hash":           true,
	"attachments":            true,
	"variables":              true,
	"note_prompt":            true,
	"note_interval":          true,
	"note_position":          true,
	"note_depth":             true,
	"note_role":              true,
	"timedWorldInfo":         true,
	"tainted":                true,
	"lastInContextMessageId": true,
}

// MapHeader maps the first accepted line of a chat file. LineCount is left
// zero; the assembler sets it once the whole file has been read.
func MapHeader(raw json.RawMessage, opts Options) (Header, error) {
	obj, err := decodeObject("", raw)
	if err != nil {
		return Header{}, err
	}

	userName, ok := obj.text("user_name")
	if !ok || userName == "" {
		return Header{}, missing("user_name")
	}
	characterName, ok := obj.text("character_name")
	if !ok || characterName == "" {
		return Header{}, missing("character_name")
	}

	h := Header{
		UserName:      userName,
		CharacterName: characterName,
		Metadata:      DefaultChatMetadata(),
	}

	if text, ok := obj.text("create_date"); ok {
		t, err := opts.dates().Parse("create_date", text)
		if err != nil {
			return Header{}, err
		}
		h.CreationDate = Some(t)
	} else if opts.RequireCreateDate {
		return Header{}, missing("create_date")
	}

	if meta, ok, err := obj.child("chat_metadata"); err == nil && ok {
		h.Metadata = mapChatMetadata(meta)
	}
	return h, nil
}

// mapChatMetadata never fails: absent or wrong-shaped fields get defaults.
func mapChatMetadata(meta object) ChatMetadata {
	md := ChatMetadata{
		Integrity:              meta.strOr("integrity", ""),
		Attachments:            meta.arrayOrNil("attachments"),
		Variables:              meta.mapOrNil("variables"),
		NotePrompt:             meta.strOr("note_prompt", ""),
		NoteInterval:           meta.intOr("note_interval", DefaultNoteValue),
		NotePosition:           meta.intOr("note_position", DefaultNoteValue),
		NoteDepth:              meta.intOr("note_depth", DefaultNoteValue),
		NoteRole:               meta.intOr("note_role", DefaultNoteValue),
		TimedWorldInfo:         meta.mapOrNil("timedWorldInfo"),
		Tainted:                meta.boolOr("tainted", false),
		LastInContextMessageID: meta.intOr("lastInContextMessageId", DefaultLastInContext),
	}
	if hash, err := meta.integer64("chat_id_hash"); err == nil {
		md.ChatIDHash = hash
	}

	for k, v := range meta.fields {
		if knownMetadataKeys[k] {
			continue
		}
		if md.Extra == nil {
			md.Extra = make(map[string]json.RawMessage)
		}
		md.Extra[k] = v
	}
	return md
}
