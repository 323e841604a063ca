// Package bot is the Telegram command surface: the update loop, the
// playback commands and the inline YouTube search.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"AviaxMusic/cache"
	"AviaxMusic/config"
	"AviaxMusic/core/audio"
	"AviaxMusic/core/call"
	"AviaxMusic/core/ytres"
	"AviaxMusic/lang"
	"AviaxMusic/logger"
	"AviaxMusic/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wires the Bot API to the caller.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	caller   *call.Caller
	chats    *cache.ChatCache
	resolver *ytres.Resolver
	msg      *TelegramMessenger
}

// New authorizes against the Bot API and builds the command surface.
func New(cfg *config.Config, caller *call.Caller, chats *cache.ChatCache, resolver *ytres.Resolver) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("bot authorization failed: %w", err)
	}
	api.Debug = cfg.BotDebug
	logger.Info("bot authorized", logger.String("username", api.Self.UserName))

	return &Bot{
		api:      api,
		cfg:      cfg,
		caller:   caller,
		chats:    chats,
		resolver: resolver,
		msg:      NewTelegramMessenger(api),
	}, nil
}

// Messenger returns the messenger built on this bot's API client.
func (b *Bot) Messenger() *TelegramMessenger {
	return b.msg
}

// Run consumes updates until ctx is done.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.InlineQuery != nil:
		b.handleInline(ctx, update.InlineQuery)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Warn("reply failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
	}
}

func (b *Bot) handleCommand(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	langCode := b.chats.GetLang(ctx, chatID)

	switch m.Command() {
	case "play":
		b.handlePlay(ctx, m, false)
	case "vplay":
		b.handlePlay(ctx, m, true)
	case "pause":
		if err := b.caller.PauseStream(ctx, chatID); err != nil {
			b.reply(chatID, userMessage(err))
			return
		}
		b.reply(chatID, lang.GetString(langCode, "admin_1"))
	case "resume":
		if err := b.caller.ResumeStream(ctx, chatID); err != nil {
			b.reply(chatID, userMessage(err))
			return
		}
		b.reply(chatID, lang.GetString(langCode, "admin_2"))
	case "stop", "end":
		b.caller.StopStream(ctx, chatID)
		b.reply(chatID, lang.GetString(langCode, "admin_3"))
	case "skip":
		b.handleSkip(ctx, chatID, langCode)
	case "loop":
		b.handleLoop(ctx, m)
	case "speed":
		b.handleSpeed(ctx, m)
	case "seek":
		b.handleSeek(ctx, m)
	case "queue":
		b.handleQueue(ctx, chatID, langCode)
	case "ping":
		b.reply(chatID, fmt.Sprintf("Pong! %s ms", b.caller.Ping()))
	}
}

// handleSkip triggers the same advance transition a natural stream end
// would, after zeroing the loop counter so the head cannot repeat.
func (b *Bot) handleSkip(ctx context.Context, chatID int64, langCode string) {
	eng, err := b.caller.GroupAssistant(ctx, chatID)
	if err != nil {
		b.reply(chatID, userMessage(err))
		return
	}
	if err := b.chats.SetLoop(ctx, chatID, 0); err != nil {
		logger.Warn("loop reset failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
	}
	if err := b.caller.ChangeStream(ctx, eng, chatID); err != nil {
		logger.Warn("skip advance failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
	}
	b.reply(chatID, lang.GetString(langCode, "admin_4"))
}

func (b *Bot) handleLoop(ctx context.Context, m *tgbotapi.Message) {
	n, err := strconv.Atoi(strings.TrimSpace(m.CommandArguments()))
	if err != nil || n < 0 {
		b.reply(m.Chat.ID, "Usage: /loop <count>")
		return
	}
	if err := b.chats.SetLoop(ctx, m.Chat.ID, n); err != nil {
		b.reply(m.Chat.ID, "Failed to set the loop count.")
		return
	}
	b.reply(m.Chat.ID, fmt.Sprintf("Looping the current track %d more time(s).", n))
}

func (b *Bot) handleSpeed(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	speed, err := strconv.ParseFloat(strings.TrimSpace(m.CommandArguments()), 64)
	if err != nil || speed < 0.5 || speed > 2.0 {
		b.reply(chatID, "Usage: /speed <0.5|0.75|1.0|1.5|2.0>")
		return
	}
	head := b.caller.Queues().Head(chatID)
	if head == nil {
		b.reply(chatID, lang.GetString(b.chats.GetLang(ctx, chatID), "queue_2"))
		return
	}
	if err := b.caller.SpeedupStream(ctx, chatID, head.File, speed); err != nil {
		b.reply(chatID, userMessage(err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Playback speed set to %s.", audio.FormatSpeed(speed)))
}

func (b *Bot) handleSeek(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	toSeek, err := strconv.Atoi(strings.TrimSpace(m.CommandArguments()))
	if err != nil || toSeek < 0 {
		b.reply(chatID, "Usage: /seek <seconds>")
		return
	}
	head := b.caller.Queues().Head(chatID)
	if head == nil {
		b.reply(chatID, lang.GetString(b.chats.GetLang(ctx, chatID), "queue_2"))
		return
	}
	if err := b.caller.SeekStream(ctx, chatID, head.File, toSeek, head.Seconds, head.IsVideo()); err != nil {
		b.reply(chatID, userMessage(err))
		return
	}
	// No native seek in the engine: the source restarts from the top.
	b.reply(chatID, "Restarted the track from the beginning.")
}

func (b *Bot) handleQueue(ctx context.Context, chatID int64, langCode string) {
	tracks := b.caller.Queues().Tracks(chatID)
	if len(tracks) == 0 {
		b.reply(chatID, lang.GetString(langCode, "queue_2"))
		return
	}
	var sb strings.Builder
	for i, tr := range tracks {
		if i == 0 {
			fmt.Fprintf(&sb, "▶️ %s (%s) — %s\n", tr.Title, tr.Dur, tr.By)
			continue
		}
		fmt.Fprintf(&sb, "%d. %s (%s) — %s\n", i, tr.Title, tr.Dur, tr.By)
	}
	b.reply(chatID, sb.String())
}

// handlePlay resolves the query, queues a descriptor, and joins the call
// when the queue was empty.
func (b *Bot) handlePlay(ctx context.Context, m *tgbotapi.Message, video bool) {
	chatID := m.Chat.ID
	langCode := b.chats.GetLang(ctx, chatID)
	query := strings.TrimSpace(m.CommandArguments())
	if query == "" {
		b.reply(chatID, "Usage: /play <song name or link>")
		return
	}

	vidID, title, err := b.lookup(ctx, query)
	if err != nil {
		b.reply(chatID, lang.GetString(langCode, "play_1"))
		return
	}

	streamType := model.StreamAudio
	if video {
		streamType = model.StreamVideo
	}
	requester := m.From.FirstName
	if m.From.UserName != "" {
		requester = "@" + m.From.UserName
	}

	if b.caller.Queues().Len(chatID) > 0 {
		track := &model.Track{
			File:       model.MarkerVideo + vidID,
			Title:      title,
			By:         requester,
			ChatID:     chatID,
			StreamType: streamType,
			VidID:      vidID,
		}
		pos := b.caller.Queues().Append(chatID, track)
		b.reply(chatID, fmt.Sprintf(lang.GetString(langCode, "queue_1"), pos, title, track.Dur, requester))
		return
	}

	notice, _ := b.msg.SendText(ctx, chatID, lang.GetString(langCode, "call_7"))
	path, err := b.resolver.Download(ctx, vidID, video)
	if err != nil {
		logger.Warn("play download failed", logger.String("vidid", vidID), logger.ErrorField(err))
		if !notice.Zero() {
			_ = b.msg.EditText(ctx, notice, lang.GetString(langCode, "call_6"))
		}
		return
	}
	if !notice.Zero() {
		_ = b.msg.Delete(ctx, notice)
	}

	track := &model.Track{
		File:       path,
		Title:      title,
		By:         requester,
		ChatID:     chatID,
		StreamType: streamType,
		VidID:      vidID,
	}
	b.caller.Queues().Append(chatID, track)

	if err := b.caller.JoinCall(ctx, chatID, chatID, path, video); err != nil {
		b.caller.Queues().Clear(chatID)
		b.reply(chatID, userMessage(err))
		return
	}

	caption := fmt.Sprintf(lang.GetString(langCode, "stream_1"), title, track.Dur, requester)
	ref, err := b.msg.SendPhoto(ctx, chatID, thumbnailURL(vidID), caption, chatID)
	if err != nil {
		logger.Warn("announce failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
		return
	}
	track.Mystic = ref
	track.Markup = "stream"
}

// lookup accepts either a YouTube link or a free-text query.
func (b *Bot) lookup(ctx context.Context, query string) (vidID, title string, err error) {
	if id, ok := extractVideoID(query); ok {
		return id, query, nil
	}
	results, err := b.resolver.Search(ctx, query, 1)
	if err != nil {
		return "", "", err
	}
	if len(results) == 0 {
		return "", "", errors.New("no results")
	}
	return results[0].VidID, results[0].Title, nil
}

func thumbnailURL(vidID string) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hq720.jpg", vidID)
}

// userMessage extracts the localized text of a UserError, or a generic
// fallback for anything else.
func userMessage(err error) string {
	var uerr *call.UserError
	if errors.As(err, &uerr) {
		return uerr.Msg
	}
	return "Something went wrong. Try again."
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			logger.Debug("callback ack failed", logger.ErrorField(err))
		}
	}()

	parts := strings.SplitN(cb.Data, "|", 2)
	if len(parts) != 2 {
		return
	}
	chatID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return
	}
	langCode := b.chats.GetLang(ctx, chatID)

	switch parts[0] {
	case "cb_pause":
		if err := b.caller.PauseStream(ctx, chatID); err == nil {
			b.reply(cb.Message.Chat.ID, lang.GetString(langCode, "admin_1"))
		}
	case "cb_resume":
		if err := b.caller.ResumeStream(ctx, chatID); err == nil {
			b.reply(cb.Message.Chat.ID, lang.GetString(langCode, "admin_2"))
		}
	case "cb_skip":
		b.handleSkip(ctx, chatID, langCode)
	case "cb_stop":
		b.caller.StopStream(ctx, chatID)
		b.reply(cb.Message.Chat.ID, lang.GetString(langCode, "admin_3"))
	}
}
