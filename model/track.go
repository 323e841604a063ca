package model

import "strings"

// StreamType selects the media flags used when playing a track.
type StreamType string

const (
	StreamAudio StreamType = "audio"
	StreamVideo StreamType = "video"
)

// Source markers embedded in Track.File. A live_/vid_/index_ prefix selects
// the resolution path during a queue advance; the telegram/soundcloud
// sentinels in Track.VidID only pick the announce template.
const (
	MarkerLive  = "live_"
	MarkerVideo = "vid_"
	MarkerIndex = "index_"

	SentinelTelegram   = "telegram"
	SentinelSoundcloud = "soundcloud"
)

// Track is one entry in a chat's play queue. The head of the queue is always
// the currently playing track; Played/Dur/Seconds are mutated in place by
// skip and speed changes.
type Track struct {
	File       string
	Title      string
	By         string
	ChatID     int64 // original announce chat, may differ from the voice chat
	StreamType StreamType
	VidID      string

	Played  int
	Dur     string
	Seconds int

	// Speed-change snapshot. OldDur/OldSeconds hold the pre-change values so
	// a queue advance can restore them; SpeedPath is the transcoded file.
	OldDur     string
	OldSeconds int
	Speed      float64
	SpeedPath  string

	// Mystic is the now-playing status message handle returned by the
	// messenger, kept for later edits. Markup records which caption
	// template announced it.
	Mystic MessageRef
	Markup string
}

// MessageRef identifies a sent Telegram message.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Zero reports whether the ref points at no message.
func (r MessageRef) Zero() bool {
	return r.ChatID == 0 && r.MessageID == 0
}

// IsLive reports whether the track's file carries the live marker.
func (t *Track) IsLive() bool {
	return strings.Contains(t.File, MarkerLive)
}

// NeedsDownload reports whether the track's file carries the on-demand
// download marker.
func (t *Track) NeedsDownload() bool {
	return strings.Contains(t.File, MarkerVideo)
}

// IsIndexed reports whether the track's file carries the index marker,
// meaning VidID is already an engine-native source.
func (t *Track) IsIndexed() bool {
	return strings.Contains(t.File, MarkerIndex)
}

// IsVideo reports whether the track should be played with video flags.
func (t *Track) IsVideo() bool {
	return t.StreamType == StreamVideo
}
