package domain

// StreamSession is the broadcast metadata for one channel, as reported
// by the status endpoint. StreamKey is empty while the channel is offline.
type StreamSession struct {
	Username        string
	IsLive          bool
	StreamKey       string
	Title           string
	Category        string
	Thumbnail       string
	ProfileImage    string
	SubscriberCount int
}

// MessageKind distinguishes viewer chat from system notices.
type MessageKind string

const (
	KindChat   MessageKind = "chat"
	KindSystem MessageKind = "system"
)

// ChatMessage is one entry in the append-only chat log.
type ChatMessage struct {
	ID          string
	Kind        MessageKind
	User        string
	Text        string
	Timestamp   int64
	IsModerator bool
}

// PollOption is one choice in a running poll with its current tally.
type PollOption struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// ActivityEntry is a like/subscribe alert shown in the activity ticker.
type ActivityEntry struct {
	ID        string
	Type      string
	User      string
	Timestamp int64
}

// Video is a catalog entry from the recommendations endpoint, shown on
// the offline endscreen.
type Video struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Username  string `json:"username"`
	Views     int    `json:"views"`
}
