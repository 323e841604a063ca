package call

import (
	"context"
	"fmt"
	"time"

	"AviaxMusic/core/autoclean"
	"AviaxMusic/core/engine"
	"AviaxMusic/lang"
	"AviaxMusic/logger"
	"AviaxMusic/model"

	"github.com/google/uuid"
)

// ChangeStream advances a chat's queue after a stream ends. With a zero
// loop counter the finished head is popped; otherwise the counter is
// decremented and the head repeats. An empty queue tears the chat down and
// leaves the call. Otherwise the new head is resolved by its file marker,
// played, and announced.
//
// Resolution or play failures notify the announce chat and leave the head
// in place: the queue stays wedged until a manual skip. That mirrors the
// historical behavior deliberately; auto-skipping could spin forever on a
// permanently dead source.
func (c *Caller) ChangeStream(ctx context.Context, eng engine.VoiceEngine, chatID int64) error {
	lock := c.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	loop, err := c.chats.GetLoop(ctx, chatID)
	if err != nil {
		logger.Warn("loop lookup failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
		loop = 0
	}

	var popped *model.Track
	if loop == 0 {
		popped = c.queues.PopHead(chatID)
	} else {
		if err := c.chats.SetLoop(ctx, chatID, loop-1); err != nil {
			logger.Warn("loop update failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
		}
	}

	if popped != nil {
		go autoclean.Clean(popped)
	}

	head := c.queues.Head(chatID)
	if head == nil {
		c.clearChat(ctx, chatID)
		return eng.LeaveCall(ctx, chatID)
	}

	langCode := c.chats.GetLang(ctx, chatID)
	originalChatID := head.ChatID
	video := head.IsVideo()

	var source string
	var announceRef model.MessageRef
	switch {
	case head.IsLive():
		link, err := c.resolver.Video(ctx, head.VidID)
		if err != nil {
			logger.Warn("live resolution failed", logger.String("vidid", head.VidID), logger.ErrorField(err))
			c.notify(ctx, originalChatID, lang.GetString(langCode, "call_6"))
			return nil
		}
		source = link

	case head.NeedsDownload():
		ref, err := c.msg.SendText(ctx, originalChatID, lang.GetString(langCode, "call_7"))
		if err == nil {
			announceRef = ref
		}
		path, err := c.resolver.Download(ctx, head.VidID, video)
		if err != nil {
			logger.Warn("download failed", logger.String("vidid", head.VidID), logger.ErrorField(err))
			if !announceRef.Zero() {
				if err := c.msg.EditText(ctx, announceRef, lang.GetString(langCode, "call_6")); err == nil {
					return nil
				}
			}
			c.notify(ctx, originalChatID, lang.GetString(langCode, "call_6"))
			return nil
		}
		source = path

	case head.IsIndexed():
		source = head.VidID

	default:
		source = head.File
	}

	head.Played = 0
	if head.OldDur != "" {
		// Speed settings never carry across a track transition.
		head.Dur = head.OldDur
		head.Seconds = head.OldSeconds
		head.OldDur = ""
		head.OldSeconds = 0
		head.SpeedPath = ""
		head.Speed = 1.0
	}

	stream := engine.MediaStream{Source: source}
	if video {
		stream.Video = engine.VideoHD720p
	}
	if err := eng.Play(ctx, chatID, stream); err != nil {
		logger.Error("play failed during advance", logger.Int64("chatId", chatID), logger.ErrorField(err))
		c.notify(ctx, originalChatID, lang.GetString(langCode, "call_6"))
		return nil
	}

	if !announceRef.Zero() {
		if err := c.msg.Delete(ctx, announceRef); err != nil {
			logger.Debug("delete download notice failed", logger.ErrorField(err))
		}
	}

	c.announce(ctx, chatID, head, langCode)
	c.record(ctx, head)
	c.publish(head)

	return nil
}

// notify sends a plain message to the original announce chat, logging on
// failure. Used on the abort paths, which must never themselves fail.
func (c *Caller) notify(ctx context.Context, chatID int64, text string) {
	if _, err := c.msg.SendText(ctx, chatID, text); err != nil {
		logger.Warn("notify failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
	}
}

// thumbURL is the standard thumbnail location for a YouTube video ID.
func thumbURL(vidID string) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hq720.jpg", vidID)
}

// truncateTitle caps a title for captions the way the announce templates
// expect.
func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) > 23 {
		return string(runes[:23])
	}
	return title
}

// announce sends the now-playing message and records its handle on the
// track for later edits. The photo and template follow the source markers.
func (c *Caller) announce(ctx context.Context, chatID int64, head *model.Track, langCode string) {
	var photo, caption, markup string

	switch {
	case head.IsIndexed():
		photo = c.cfg.StreamImgURL
		caption = fmt.Sprintf(lang.GetString(langCode, "stream_2"), head.By)
		markup = "tg"
	case head.VidID == model.SentinelTelegram:
		if head.StreamType == model.StreamAudio {
			photo = c.cfg.TelegramAudioURL
		} else {
			photo = c.cfg.TelegramVideoURL
		}
		caption = fmt.Sprintf(lang.GetString(langCode, "stream_1"), truncateTitle(head.Title), head.Dur, head.By)
		markup = "tg"
	case head.VidID == model.SentinelSoundcloud:
		photo = c.cfg.SoundcloudImgURL
		caption = fmt.Sprintf(lang.GetString(langCode, "stream_1"), truncateTitle(head.Title), head.Dur, head.By)
		markup = "tg"
	case head.IsLive():
		photo = thumbURL(head.VidID)
		caption = fmt.Sprintf(lang.GetString(langCode, "stream_1"), truncateTitle(head.Title), head.Dur, head.By)
		markup = "tg"
	default:
		photo = thumbURL(head.VidID)
		caption = fmt.Sprintf(lang.GetString(langCode, "stream_1"), truncateTitle(head.Title), head.Dur, head.By)
		markup = "stream"
	}

	ref, err := c.msg.SendPhoto(ctx, head.ChatID, photo, caption, chatID)
	if err != nil {
		logger.Warn("announce failed", logger.Int64("chatId", head.ChatID), logger.ErrorField(err))
		return
	}
	head.Mystic = ref
	head.Markup = markup
}

func (c *Caller) record(ctx context.Context, head *model.Track) {
	if c.history == nil {
		return
	}
	h := &model.PlayHistory{
		ChatID:     head.ChatID,
		VidID:      head.VidID,
		Title:      head.Title,
		By:         head.By,
		StreamType: head.StreamType,
		Duration:   head.Seconds,
	}
	if err := c.history.Record(ctx, h); err != nil {
		logger.Warn("history record failed", logger.ErrorField(err))
	}
}

func (c *Caller) publish(head *model.Track) {
	if c.feed == nil {
		return
	}
	c.feed.Publish(NowPlayingEvent{
		Token:      uuid.NewString(),
		ChatID:     head.ChatID,
		VidID:      head.VidID,
		Title:      head.Title,
		By:         head.By,
		StreamType: head.StreamType,
		At:         time.Now(),
	})
}
