// Package call drives the voice-chat call lifecycle: it owns the assistant
// pool, the per-chat play queues and the stream transitions between tracks.
package call

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"AviaxMusic/config"
	"AviaxMusic/core/engine"
	"AviaxMusic/core/queue"
	"AviaxMusic/logger"
	"AviaxMusic/model"
)

// ChatState is the persistent per-chat call state (loop counters, active
// flags, language, assistant assignment). Backed by redis in production.
type ChatState interface {
	GetLoop(ctx context.Context, chatID int64) (int, error)
	SetLoop(ctx context.Context, chatID int64, loop int) error
	AddActiveChat(ctx context.Context, chatID int64) error
	RemoveActiveChat(ctx context.Context, chatID int64) error
	AddActiveVideoChat(ctx context.Context, chatID int64) error
	RemoveActiveVideoChat(ctx context.Context, chatID int64) error
	MusicOn(ctx context.Context, chatID int64) error
	GetLang(ctx context.Context, chatID int64) string
	GetAssistant(ctx context.Context, chatID int64) (int, error)
	SetAssistant(ctx context.Context, chatID int64, slot int) error
	AutoendEnabled(ctx context.Context) (bool, error)
}

// Resolver turns marker-tagged track identifiers into playable sources.
type Resolver interface {
	Video(ctx context.Context, vidID string) (string, error)
	Download(ctx context.Context, vidID string, video bool) (string, error)
}

// Messenger sends and edits announce messages. Only the returned handle is
// kept; keyboard construction is the messenger's business.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) (model.MessageRef, error)
	EditText(ctx context.Context, ref model.MessageRef, text string) error
	Delete(ctx context.Context, ref model.MessageRef) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, voiceChatID int64) (model.MessageRef, error)
}

// Transcoder produces speed-adjusted copies of local files and probes
// durations.
type Transcoder interface {
	SpeedTranscode(ctx context.Context, inputFile string, speed float64) (string, error)
	Duration(ctx context.Context, inputFile string) (int, error)
}

// Recorder persists successful stream starts. Optional.
type Recorder interface {
	Record(ctx context.Context, h *model.PlayHistory) error
}

// NowPlayingEvent is published to the feed on every successful stream start.
type NowPlayingEvent struct {
	Token      string           `json:"token"`
	ChatID     int64            `json:"chatId"`
	VidID      string           `json:"vidId"`
	Title      string           `json:"title"`
	By         string           `json:"by"`
	StreamType model.StreamType `json:"streamType"`
	At         time.Time        `json:"at"`
}

// Feed receives now-playing events. Optional.
type Feed interface {
	Publish(ev NowPlayingEvent)
}

// UserError carries a localized message meant for the chat that triggered
// the operation.
type UserError struct {
	Msg string
}

func (e *UserError) Error() string {
	return e.Msg
}

// Assistant is one slot of the pool: a pre-authenticated session paired
// with its voice-engine handle. Unconfigured slots have a nil engine.
type Assistant struct {
	Slot   int
	Name   string
	Engine engine.VoiceEngine
}

// Configured reports whether the slot can serve calls.
func (a *Assistant) Configured() bool {
	return a != nil && a.Engine != nil
}

// Deps are the collaborators a Caller needs. History and Feed may be nil.
type Deps struct {
	Engines    [config.MaxAssistants]engine.VoiceEngine
	Queues     *queue.Store
	Chats      ChatState
	Resolver   Resolver
	Messenger  Messenger
	Transcoder Transcoder
	History    Recorder
	Feed       Feed
}

// Caller multiplexes up to five assistants across chats and owns every
// per-chat stream transition. Construct one at process start and share it.
type Caller struct {
	cfg        *config.Config
	assistants [config.MaxAssistants]*Assistant
	queues     *queue.Store
	chats      ChatState
	resolver   Resolver
	msg        Messenger
	transcoder Transcoder
	history    Recorder
	feed       Feed

	mu      sync.Mutex
	autoend map[int64]time.Time
	chatMus map[int64]*sync.Mutex
	rr      int
}

// NewCaller builds the caller. Slots whose session string or engine is
// missing stay unconfigured and only reduce capacity.
func NewCaller(cfg *config.Config, deps Deps) *Caller {
	c := &Caller{
		cfg:        cfg,
		queues:     deps.Queues,
		chats:      deps.Chats,
		resolver:   deps.Resolver,
		msg:        deps.Messenger,
		transcoder: deps.Transcoder,
		history:    deps.History,
		feed:       deps.Feed,
		autoend:    make(map[int64]time.Time),
		chatMus:    make(map[int64]*sync.Mutex),
	}
	for i := 0; i < config.MaxAssistants; i++ {
		if cfg.SessionStrings[i] == "" || deps.Engines[i] == nil {
			continue
		}
		c.assistants[i] = &Assistant{
			Slot:   i,
			Name:   "Assistant " + strconv.Itoa(i+1),
			Engine: deps.Engines[i],
		}
	}
	return c
}

// Queues exposes the queue store for the command surface.
func (c *Caller) Queues() *queue.Store {
	return c.queues
}

// SetMessenger installs the announce messenger. The bot client that provides
// it is constructed after the caller, so this runs once during wiring,
// before Start.
func (c *Caller) SetMessenger(m Messenger) {
	c.msg = m
}

// GroupAssistant resolves the engine serving a chat. Exposed for the
// command surface, which triggers advances on manual skips.
func (c *Caller) GroupAssistant(ctx context.Context, chatID int64) (engine.VoiceEngine, error) {
	ast, err := c.groupAssistant(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return ast.Engine, nil
}

// chatLock returns the per-chat mutex serializing advance transitions.
func (c *Caller) chatLock(chatID int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.chatMus[chatID]
	if !ok {
		m = &sync.Mutex{}
		c.chatMus[chatID] = m
	}
	return m
}

// groupAssistant resolves which assistant serves a chat: a sticky assignment
// from the chat state when present, otherwise the next configured slot in
// round-robin order, which is then persisted.
func (c *Caller) groupAssistant(ctx context.Context, chatID int64) (*Assistant, error) {
	slot, err := c.chats.GetAssistant(ctx, chatID)
	if err != nil {
		logger.Warn("assistant lookup failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
	}
	if slot >= 0 && slot < config.MaxAssistants && c.assistants[slot].Configured() {
		return c.assistants[slot], nil
	}

	c.mu.Lock()
	var picked *Assistant
	for i := 0; i < config.MaxAssistants; i++ {
		cand := c.assistants[(c.rr+i)%config.MaxAssistants]
		if cand.Configured() {
			picked = cand
			c.rr = (cand.Slot + 1) % config.MaxAssistants
			break
		}
	}
	c.mu.Unlock()

	if picked == nil {
		return nil, &UserError{Msg: "no assistants are configured"}
	}
	if err := c.chats.SetAssistant(ctx, chatID, picked.Slot); err != nil {
		logger.Warn("assistant assignment failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
	}
	return picked, nil
}

// Start brings up every configured assistant. A failed start is logged and
// skipped; partial capacity beats no capacity.
func (c *Caller) Start(ctx context.Context) {
	logger.Info("starting assistant clients")
	for _, ast := range c.assistants {
		if !ast.Configured() {
			continue
		}
		if err := ast.Engine.Start(ctx); err != nil {
			logger.Error("failed to start "+ast.Name, logger.ErrorField(err))
			continue
		}
		logger.Info(ast.Name + " started successfully")
	}
}

// Ping averages the positive ping samples of all configured assistants and
// renders them the way the status command expects. "0.0" when nothing
// answers.
func (c *Caller) Ping() string {
	var pings []float64
	for _, ast := range c.assistants {
		if !ast.Configured() {
			continue
		}
		if p := ast.Engine.Ping(); p > 0 {
			pings = append(pings, p)
		}
	}
	if len(pings) == 0 {
		return "0.0"
	}
	var sum float64
	for _, p := range pings {
		sum += p
	}
	return formatPing(math.Round(sum/float64(len(pings))*1000) / 1000)
}

func formatPing(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// clearChat drops every piece of derived per-chat state: the queue and both
// active flags.
func (c *Caller) clearChat(ctx context.Context, chatID int64) {
	c.queues.Clear(chatID)
	if err := c.chats.RemoveActiveVideoChat(ctx, chatID); err != nil {
		logger.Warn("clear video flag failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
	}
	if err := c.chats.RemoveActiveChat(ctx, chatID); err != nil {
		logger.Warn("clear active flag failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
	}
}
