package domain

// Frame types from server.
const (
	FrameTypeChat           = "chat"
	FrameTypeSystem         = "system"
	FrameTypeMessageDeleted = "message_deleted"
	FrameTypePollStart      = "POLL_START"
	FrameTypePollVote       = "POLL_VOTE"
	FrameTypePollEnd        = "POLL_END"
	FrameTypePollUpdate     = "poll_update"
	FrameTypeStatusUpdate   = "status_update"
	FrameTypeBRB            = "brb"
	FrameTypeSlowMode       = "slow_mode"
	FrameTypeViewerList     = "viewer_list"
	FrameTypeActivity       = "activity"
	FrameTypeError          = "error"
)

// BaseFrame is the discriminator shared by every frame.
type BaseFrame struct {
	Type string `json:"type"`
}

// Server -> Client frames

type ChatFrame struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	IsMod     bool   `json:"isMod"`
}

type MessageDeletedFrame struct {
	Type  string `json:"type"`
	MsgID string `json:"msg_id"`
}

// PollPayload carries a poll snapshot inside POLL_START and POLL_END
// frames. The poll_update frame sends the same fields at the top level.
type PollPayload struct {
	Question string       `json:"question"`
	Options  []PollOption `json:"options"`
	Duration int          `json:"duration"`
}

type PollStartFrame struct {
	Type string      `json:"type"`
	Data PollPayload `json:"data"`
}

type PollVoteFrame struct {
	Type        string `json:"type"`
	OptionIndex int    `json:"optionIndex"`
}

type PollEndFrame struct {
	Type string      `json:"type"`
	Data PollPayload `json:"data"`
}

type PollUpdateFrame struct {
	Type     string       `json:"type"`
	Question string       `json:"question"`
	Options  []PollOption `json:"options"`
	Duration int          `json:"duration"`
}

type StatusUpdateFrame struct {
	Type      string `json:"type"`
	IsLive    bool   `json:"is_live"`
	Timestamp int64  `json:"timestamp"`
}

type BRBFrame struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

type SlowModeFrame struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

type ViewerListFrame struct {
	Type    string   `json:"type"`
	Viewers []string `json:"viewers"`
	Count   int      `json:"count"`
}

type ActivityFrame struct {
	Type         string `json:"type"`
	ActivityType string `json:"activity_type"`
	User         string `json:"user"`
	Timestamp    int64  `json:"timestamp"`
}

type ErrorFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Client -> Server frames

// ChatSendFrame carries an outbound chat message. The server infers the
// sender from the handshake token, so only the text travels.
type ChatSendFrame struct {
	Text string `json:"text"`
}

type VoteSendFrame struct {
	Type        string `json:"type"`
	OptionIndex int    `json:"optionIndex"`
}

// MaxChatLength mirrors the server-side truncation limit.
const MaxChatLength = 500
