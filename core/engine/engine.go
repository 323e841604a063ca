// Package engine abstracts the external voice-chat engine. The wire protocol
// and media transport live outside this module; callers inject an
// implementation per assistant.
package engine

import (
	"context"
	"errors"
	"strings"
)

// VideoQuality constrains the video stream of a call.
type VideoQuality int

const (
	VideoNone VideoQuality = iota
	VideoHD720p
)

// AudioQuality constrains the audio stream of a call.
type AudioQuality int

const (
	AudioDefault AudioQuality = iota
	AudioStudio
)

// MediaStream describes a playable source handed to the engine.
type MediaStream struct {
	Source string
	Video  VideoQuality
	Audio  AudioQuality
}

// Typed join failures. Engines should return these directly; ClassifyJoinError
// maps free-text errors from foreign engines onto them.
var (
	ErrNoActiveCall  = errors.New("no active voice chat in this chat")
	ErrAlreadyJoined = errors.New("assistant already joined this voice chat")
)

// VoiceEngine is the per-assistant handle into the voice-chat engine.
type VoiceEngine interface {
	Start(ctx context.Context) error
	Play(ctx context.Context, chatID int64, stream MediaStream) error
	LeaveCall(ctx context.Context, chatID int64) error
	PauseStream(ctx context.Context, chatID int64) error
	ResumeStream(ctx context.Context, chatID int64) error
	// Participants returns the number of members currently in the voice chat.
	Participants(ctx context.Context, chatID int64) (int, error)
	// Ping is the engine round-trip in milliseconds, 0 when unknown.
	Ping() float64
}

// NewEngine builds the concrete engine for one assistant session string.
// The default build links no engine; a binary that embeds one replaces this
// in an init function before the pool is constructed.
var NewEngine = func(session string) (VoiceEngine, error) {
	return nil, errors.New("no voice engine linked into this build")
}

// ClassifyJoinError folds an arbitrary engine error into one of the typed
// join failures where its message allows, otherwise returns it unchanged.
func ClassifyJoinError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNoActiveCall) || errors.Is(err, ErrAlreadyJoined) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no active") || strings.Contains(msg, "not found"):
		return ErrNoActiveCall
	case strings.Contains(msg, "already") || strings.Contains(msg, "joined"):
		return ErrAlreadyJoined
	}
	return err
}
