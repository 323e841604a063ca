// Package lang holds the user-facing message catalog, keyed the way the
// playback code looks messages up. Only English ships for now; unknown
// languages fall back to it.
package lang

var catalog = map[string]map[string]string{
	"en": {
		"call_6":   "Failed to resolve a playable stream for this track. Use /skip to move past it.",
		"call_7":   "Downloading the next track, hold on...",
		"call_8":   "There is no active voice chat here. Start one and try again.",
		"call_9":   "The assistant is already in this voice chat.",
		"call_10":  "Something went wrong while joining the voice chat.",
		"stream_1": "Now playing\n\nTitle: %s\nDuration: %s\nRequested by: %s",
		"stream_2": "Now streaming a live index source.\n\nRequested by: %s",
		"queue_1":  "Added to queue at position %d:\n\nTitle: %s\nDuration: %s\nRequested by: %s",
		"queue_2":  "Queue is empty. Nothing is playing.",
		"play_1":   "Nothing found for that query.",
		"admin_1":  "Paused the stream.",
		"admin_2":  "Resumed the stream.",
		"admin_3":  "Stopped the stream and cleared the queue.",
		"admin_4":  "Skipped to the next track.",
	},
}

// GetString returns the message for a key in the given language, falling
// back to English and then to the key itself.
func GetString(langCode, key string) string {
	if m, ok := catalog[langCode]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	if s, ok := catalog["en"][key]; ok {
		return s
	}
	return key
}
