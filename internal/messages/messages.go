package messages

import "omnichat/rtc"

// RuntimeEventMsg carries one inbound session event (phase change or bot
// message) onto the tea loop.
type RuntimeEventMsg struct {
	Event rtc.Event
}

// EventStreamClosedMsg signals that the session event stream ended.
type EventStreamClosedMsg struct{}

// ChatSentMsg reports the settle of a sent chat message.
type ChatSentMsg struct {
	Err error
}

// ToggleResultMsg reports the settle of a feature toggle.
type ToggleResultMsg struct {
	Feature rtc.Feature
	Enabled bool
	Err     error
}

// UploadResultMsg reports the settle of a resource submission.
type UploadResultMsg struct {
	Name     string
	Resource *rtc.Resource
	Err      error
}

// ConnectFailedMsg reports a failed connect request.
type ConnectFailedMsg struct {
	Err error
}
