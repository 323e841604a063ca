package call

import (
	"context"
	"time"

	"AviaxMusic/core/audio"
	"AviaxMusic/core/engine"
	"AviaxMusic/lang"
	"AviaxMusic/logger"
)

// PauseStream pauses playback. State tracking stays with the engine.
func (c *Caller) PauseStream(ctx context.Context, chatID int64) error {
	ast, err := c.groupAssistant(ctx, chatID)
	if err != nil {
		return err
	}
	return ast.Engine.PauseStream(ctx, chatID)
}

// ResumeStream resumes a paused playback.
func (c *Caller) ResumeStream(ctx context.Context, chatID int64) error {
	ast, err := c.groupAssistant(ctx, chatID)
	if err != nil {
		return err
	}
	return ast.Engine.ResumeStream(ctx, chatID)
}

// StopStream clears the chat's derived state and leaves the call. Stopping
// is best-effort; failures are logged, not returned.
func (c *Caller) StopStream(ctx context.Context, chatID int64) {
	ast, err := c.groupAssistant(ctx, chatID)
	if err != nil {
		logger.Error("error stopping stream", logger.Int64("chatId", chatID), logger.ErrorField(err))
		return
	}
	c.clearChat(ctx, chatID)
	if err := ast.Engine.LeaveCall(ctx, chatID); err != nil {
		logger.Error("error stopping stream", logger.Int64("chatId", chatID), logger.ErrorField(err))
	}
}

// StopStreamForce attempts a leave on every configured assistant, covering
// the case where the tracked assignment is wrong, then clears chat state.
// Each failure is logged independently; the loop never aborts.
func (c *Caller) StopStreamForce(ctx context.Context, chatID int64) {
	for _, ast := range c.assistants {
		if !ast.Configured() {
			continue
		}
		if err := ast.Engine.LeaveCall(ctx, chatID); err != nil {
			logger.Error("error in force stop", logger.String("assistant", ast.Name), logger.ErrorField(err))
		}
	}
	c.clearChat(ctx, chatID)
}

// ForceStopStream removes only the queue head and the active flags, then
// leaves the call. Used as a clean kill when state is inconsistent.
func (c *Caller) ForceStopStream(ctx context.Context, chatID int64) {
	ast, err := c.groupAssistant(ctx, chatID)
	if err != nil {
		logger.Error("error in force_stop_stream", logger.Int64("chatId", chatID), logger.ErrorField(err))
		return
	}

	c.queues.PopHead(chatID)

	if err := c.chats.RemoveActiveVideoChat(ctx, chatID); err != nil {
		logger.Warn("clear video flag failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
	}
	if err := c.chats.RemoveActiveChat(ctx, chatID); err != nil {
		logger.Warn("clear active flag failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
	}

	if err := ast.Engine.LeaveCall(ctx, chatID); err != nil {
		logger.Error("error leaving call", logger.Int64("chatId", chatID), logger.ErrorField(err))
	}
}

// SkipStream plays a caller-supplied source with no queue bookkeeping. The
// queue-driven advance builds on this same engine call but is separate.
func (c *Caller) SkipStream(ctx context.Context, chatID int64, link string, video bool) error {
	ast, err := c.groupAssistant(ctx, chatID)
	if err != nil {
		return err
	}
	stream := engine.MediaStream{Source: link}
	if video {
		stream.Video = engine.VideoHD720p
	}
	return ast.Engine.Play(ctx, chatID, stream)
}

// SpeedupStream replays the current head at a new speed, transcoding into
// the per-speed cache on first use and preserving the apparent playback
// position. The change is only legal while the head still matches the file
// the caller saw; a mismatch means the request raced a track change.
func (c *Caller) SpeedupStream(ctx context.Context, chatID int64, filePath string, speed float64) error {
	ast, err := c.groupAssistant(ctx, chatID)
	if err != nil {
		return err
	}

	lock := c.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	head := c.queues.Head(chatID)
	if head == nil || head.File != filePath {
		return &UserError{Msg: "Umm"}
	}

	out, err := c.transcoder.SpeedTranscode(ctx, filePath, speed)
	if err != nil {
		return err
	}

	dur, err := c.transcoder.Duration(ctx, out)
	if err != nil {
		return err
	}
	durText := audio.SecondsToMin(dur)
	_, conSeconds := audio.SpeedPosition(head.Played, speed)

	// Re-check after the transcode; a natural advance may have raced it.
	head = c.queues.Head(chatID)
	if head == nil || head.File != filePath {
		return &UserError{Msg: "Umm"}
	}

	if err := ast.Engine.Play(ctx, chatID, engine.MediaStream{Source: out}); err != nil {
		return err
	}

	if head.OldDur == "" {
		head.OldDur = head.Dur
		head.OldSeconds = head.Seconds
	}
	head.Played = conSeconds
	head.Dur = durText
	head.Seconds = dur
	head.SpeedPath = out
	head.Speed = speed

	return nil
}

// SeekStream restarts the source from the beginning. The engine has no
// native seek; offset-accurate seeking is not implemented and toSeek is
// accepted only for contract compatibility.
func (c *Caller) SeekStream(ctx context.Context, chatID int64, filePath string, toSeek, duration int, video bool) error {
	ast, err := c.groupAssistant(ctx, chatID)
	if err != nil {
		return err
	}
	_ = toSeek
	_ = duration
	stream := engine.MediaStream{Source: filePath}
	if video {
		stream.Video = engine.VideoHD720p
	}
	return ast.Engine.Play(ctx, chatID, stream)
}

// StreamCall probes the engine by briefly playing a link in the log group
// and leaving again. Used as a boot-time health check.
func (c *Caller) StreamCall(ctx context.Context, link string) error {
	chatID := c.cfg.LogGroupID
	ast, err := c.groupAssistant(ctx, chatID)
	if err != nil {
		return err
	}
	if err := ast.Engine.Play(ctx, chatID, engine.MediaStream{Source: link}); err != nil {
		return err
	}
	time.Sleep(200 * time.Millisecond)
	return ast.Engine.LeaveCall(ctx, chatID)
}

// JoinCall issues the initial play for a chat. Video adds HD video and
// studio audio constraints. Engine failures come back as localized user
// errors; on success the chat is flagged active and, with autoend enabled
// and a solo listener, an auto-leave deadline is scheduled a minute out.
func (c *Caller) JoinCall(ctx context.Context, chatID, originalChatID int64, link string, video bool) error {
	ast, err := c.groupAssistant(ctx, chatID)
	if err != nil {
		return err
	}
	langCode := c.chats.GetLang(ctx, originalChatID)

	stream := engine.MediaStream{Source: link}
	if video {
		stream.Video = engine.VideoHD720p
		stream.Audio = engine.AudioStudio
	}

	if err := ast.Engine.Play(ctx, chatID, stream); err != nil {
		switch engine.ClassifyJoinError(err) {
		case engine.ErrNoActiveCall:
			return &UserError{Msg: lang.GetString(langCode, "call_8")}
		case engine.ErrAlreadyJoined:
			return &UserError{Msg: lang.GetString(langCode, "call_9")}
		default:
			return &UserError{Msg: lang.GetString(langCode, "call_10")}
		}
	}

	if err := c.chats.AddActiveChat(ctx, chatID); err != nil {
		logger.Warn("set active flag failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
	}
	if err := c.chats.MusicOn(ctx, chatID); err != nil {
		logger.Warn("set music-on failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
	}
	if video {
		if err := c.chats.AddActiveVideoChat(ctx, chatID); err != nil {
			logger.Warn("set video flag failed", logger.Int64("chatId", chatID), logger.ErrorField(err))
		}
	}

	if on, err := c.chats.AutoendEnabled(ctx); err == nil && on {
		users, err := ast.Engine.Participants(ctx, chatID)
		if err != nil {
			logger.Error("error getting participants", logger.Int64("chatId", chatID), logger.ErrorField(err))
		} else if users == 1 {
			c.mu.Lock()
			c.autoend[chatID] = time.Now().Add(time.Minute)
			c.mu.Unlock()
		}
	}

	return nil
}

// AutoendDeadline returns the scheduled auto-leave time for a chat.
func (c *Caller) AutoendDeadline(chatID int64) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.autoend[chatID]
	return t, ok
}

// ClearAutoend drops a chat's auto-leave deadline, e.g. when a second
// listener shows up.
func (c *Caller) ClearAutoend(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.autoend, chatID)
}

// RunAutoendSweep leaves calls whose deadline has passed. Blocks until ctx
// is done; run it on its own goroutine.
func (c *Caller) RunAutoendSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			var due []int64
			for chatID, deadline := range c.autoend {
				if now.After(deadline) {
					due = append(due, chatID)
					delete(c.autoend, chatID)
				}
			}
			c.mu.Unlock()
			for _, chatID := range due {
				logger.Info("autoend leaving idle call", logger.Int64("chatId", chatID))
				c.StopStream(ctx, chatID)
			}
		}
	}
}
