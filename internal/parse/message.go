package parse

import (
	"encoding/json"
	"fmt"
)

// MapMessage maps one message line. fileLine is the record's logical index
// and becomes MessageRecord.FileLine. Any error leaves no partial record.
func MapMessage(raw json.RawMessage, fileLine int, opts Options) (MessageRecord, error) {
	obj, err := decodeObject("", raw)
	if err != nil {
		return MessageRecord{}, err
	}
	dates := opts.dates()

	name, err := obj.requireStr("name")
	if err != nil {
		return MessageRecord{}, err
	}
	isUser, err := obj.requireBool("is_user")
	if err != nil {
		return MessageRecord{}, err
	}
	mes, err := obj.requireStr("mes")
	if err != nil {
		return MessageRecord{}, err
	}
	isSystem, err := obj.boolean("is_system")
	if err != nil {
		return MessageRecord{}, err
	}

	md, err := mapMetadata(obj, dates)
	if err != nil {
		return MessageRecord{}, err
	}
	if md.ForceAvatar, err = obj.str("force_avatar"); err != nil {
		return MessageRecord{}, err
	}
	if md.Title, err = obj.str("title"); err != nil {
		return MessageRecord{}, err
	}

	swipeID, err := obj.integer("swipe_id")
	if err != nil {
		return MessageRecord{}, err
	}
	swipes, err := mapSwipes(obj)
	if err != nil {
		return MessageRecord{}, err
	}
	swipeMeta, err := mapSwipeInfo(obj, dates)
	if err != nil {
		return MessageRecord{}, err
	}

	return MessageRecord{
		Name:          name,
		IsUser:        isUser,
		Message:       mes,
		FileLine:      fileLine,
		Metadata:      md,
		IsSystem:      isSystem,
		SwipeID:       swipeID,
		Swipes:        swipes,
		SwipeMetadata: swipeMeta,
	}, nil
}

// mapMetadata reads send_date, gen_started/gen_finished and the extra block
// of a message or of one swipe_info element.
func mapMetadata(obj object, dates DateNormalizer) (MessageMetadata, error) {
	var md MessageMetadata

	sendDate, err := obj.date("send_date", dates)
	if err != nil {
		return md, err
	}
	if !sendDate.Valid {
		return md, missing(obj.at("send_date"))
	}
	md.SendDate = sendDate.Value

	if md.GenStarted, err = obj.date("gen_started", dates); err != nil {
		return md, err
	}
	if md.GenFinished, err = obj.date("gen_finished", dates); err != nil {
		return md, err
	}

	extra, ok, err := obj.child("extra")
	if err != nil || !ok {
		return md, err
	}
	if md.Reasoning, err = extra.str("reasoning"); err != nil {
		return md, err
	}
	if md.TokenCount, err = extra.integer("token_count"); err != nil {
		return md, err
	}
	if md.API, err = extra.str("api"); err != nil {
		return md, err
	}
	if md.Model, err = extra.str("model"); err != nil {
		return md, err
	}
	if md.ReasoningDuration, err = extra.integer("reasoning_duration"); err != nil {
		return md, err
	}
	if md.TimeToFirstToken, err = extra.integer("time_to_first_token"); err != nil {
		return md, err
	}
	if md.ReasoningType, err = extra.str("reasoning_type"); err != nil {
		return md, err
	}
	if md.IsSmallSys, err = extra.boolean("isSmallSys"); err != nil {
		return md, err
	}
	return md, nil
}

// mapSwipes keeps the alternates in order; a non-string element becomes "".
func mapSwipes(obj object) ([]string, error) {
	items, ok, err := obj.array("swipes")
	if err != nil || !ok {
		return nil, err
	}
	swipes := make([]string, len(items))
	for i, item := range items {
		if kindOf(item) != kindString {
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			swipes[i] = s
		}
	}
	return swipes, nil
}

// mapSwipeInfo is all or nothing: one bad element fails the message.
func mapSwipeInfo(obj object, dates DateNormalizer) ([]MessageMetadata, error) {
	items, ok, err := obj.array("swipe_info")
	if err != nil || !ok {
		return nil, err
	}
	out := make([]MessageMetadata, 0, len(items))
	for i, item := range items {
		elem, err := decodeObject(fmt.Sprintf("%s[%d]", obj.at("swipe_info"), i), item)
		if err != nil {
			return nil, err
		}
		md, err := mapMetadata(elem, dates)
		if err != nil {
			return nil, err
		}
		out = append(out, md)
	}
	return out, nil
}
