package channel

import (
	"encoding/json"

	"github.com/pixelcast/viewer/internal/domain"
)

// Event is one inbound occurrence on the realtime channel: a parsed
// server frame or a connection state transition. The view consumes all
// events from a single stream and applies them in arrival order.
type Event interface {
	isEvent()
}

// StatusChanged reports a connection state transition.
type StatusChanged struct {
	Status    Status
	Attempt   int
	Exhausted bool
}

// ChatAppended carries a chat or system entry to append.
type ChatAppended struct {
	Message domain.ChatMessage
}

// MessageDeleted removes a chat entry by id.
type MessageDeleted struct {
	ID string
}

// PollStarted opens a new poll, replacing any running one.
type PollStarted struct {
	Poll domain.PollPayload
}

// PollVoteIncremented adds one vote to an option of the running poll.
type PollVoteIncremented struct {
	OptionIndex int
}

// PollEnded closes the running poll with final results.
type PollEnded struct {
	Poll domain.PollPayload
}

// LivenessChanged flips the broadcast live state ahead of the next poll.
type LivenessChanged struct {
	IsLive bool
}

// PresenceToggled marks the broadcaster stepping away ("be right back").
type PresenceToggled struct {
	Away bool
}

// SlowModeChanged toggles the room's chat cooldown indicator.
type SlowModeChanged struct {
	Enabled bool
}

// ViewerListChanged replaces the active viewer roster.
type ViewerListChanged struct {
	Viewers []string
	Count   int
}

// ActivityReceived carries a like/subscribe alert.
type ActivityReceived struct {
	Entry domain.ActivityEntry
}

// ServerNotice is the server rejecting an outbound frame.
type ServerNotice struct {
	Text string
}

func (StatusChanged) isEvent()       {}
func (ChatAppended) isEvent()        {}
func (MessageDeleted) isEvent()      {}
func (PollStarted) isEvent()         {}
func (PollVoteIncremented) isEvent() {}
func (PollEnded) isEvent()           {}
func (LivenessChanged) isEvent()     {}
func (PresenceToggled) isEvent()     {}
func (SlowModeChanged) isEvent()     {}
func (ViewerListChanged) isEvent()   {}
func (ActivityReceived) isEvent()    {}
func (ServerNotice) isEvent()        {}

// parseFrame turns one raw frame into an event. Malformed frames and
// unrecognized types yield (nil, false) and are dropped by the caller;
// a bad frame never disturbs the connection.
func parseFrame(data []byte) (Event, bool) {
	var base domain.BaseFrame
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, false
	}

	switch base.Type {
	case domain.FrameTypeChat, domain.FrameTypeSystem:
		var f domain.ChatFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		kind := domain.KindChat
		if base.Type == domain.FrameTypeSystem {
			kind = domain.KindSystem
		}
		return ChatAppended{Message: domain.ChatMessage{
			ID:          f.ID,
			Kind:        kind,
			User:        f.User,
			Text:        f.Text,
			Timestamp:   f.Timestamp,
			IsModerator: f.IsMod,
		}}, true

	case domain.FrameTypeMessageDeleted:
		var f domain.MessageDeletedFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		return MessageDeleted{ID: f.MsgID}, true

	case domain.FrameTypePollStart:
		var f domain.PollStartFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		return PollStarted{Poll: f.Data}, true

	case domain.FrameTypePollUpdate:
		// Snapshot replayed to late joiners; same effect as a start.
		var f domain.PollUpdateFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		return PollStarted{Poll: domain.PollPayload{
			Question: f.Question,
			Options:  f.Options,
			Duration: f.Duration,
		}}, true

	case domain.FrameTypePollVote:
		var f domain.PollVoteFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		return PollVoteIncremented{OptionIndex: f.OptionIndex}, true

	case domain.FrameTypePollEnd:
		var f domain.PollEndFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		return PollEnded{Poll: f.Data}, true

	case domain.FrameTypeStatusUpdate:
		var f domain.StatusUpdateFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		return LivenessChanged{IsLive: f.IsLive}, true

	case domain.FrameTypeBRB:
		var f domain.BRBFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		return PresenceToggled{Away: f.Enabled}, true

	case domain.FrameTypeSlowMode:
		var f domain.SlowModeFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		return SlowModeChanged{Enabled: f.Enabled}, true

	case domain.FrameTypeViewerList:
		var f domain.ViewerListFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		return ViewerListChanged{Viewers: f.Viewers, Count: f.Count}, true

	case domain.FrameTypeActivity:
		var f domain.ActivityFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		return ActivityReceived{Entry: domain.ActivityEntry{
			Type:      f.ActivityType,
			User:      f.User,
			Timestamp: f.Timestamp,
		}}, true

	case domain.FrameTypeError:
		var f domain.ErrorFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		return ServerNotice{Text: f.Text}, true
	}

	return nil, false
}
