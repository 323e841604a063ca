// Package queue owns the per-chat play queues. All mutation goes through a
// per-chat lock so a manual skip racing a natural stream-end cannot corrupt
// the list.
package queue

import (
	"sync"

	"AviaxMusic/model"
)

// Store maps chat IDs to ordered track lists. The head of each list is the
// currently playing track. Single writer per chat is still the expected
// discipline; the locks only make violations safe, not sensible.
type Store struct {
	mu    sync.Mutex
	chats map[int64]*chatQueue
}

type chatQueue struct {
	mu     sync.Mutex
	tracks []*model.Track
}

// NewStore creates an empty queue store.
func NewStore() *Store {
	return &Store{chats: make(map[int64]*chatQueue)}
}

func (s *Store) chat(chatID int64) *chatQueue {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.chats[chatID]
	if !ok {
		q = &chatQueue{}
		s.chats[chatID] = q
	}
	return q
}

// Append adds a track to the tail of the chat's queue and returns the new
// queue position (0 means it became the head).
func (s *Store) Append(chatID int64, t *model.Track) int {
	q := s.chat(chatID)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, t)
	return len(q.tracks) - 1
}

// Head returns the currently playing track, nil when the queue is empty.
func (s *Store) Head(chatID int64) *model.Track {
	q := s.chat(chatID)
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) == 0 {
		return nil
	}
	return q.tracks[0]
}

// PopHead removes and returns the head, nil when the queue is empty.
func (s *Store) PopHead(chatID int64) *model.Track {
	q := s.chat(chatID)
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) == 0 {
		return nil
	}
	head := q.tracks[0]
	q.tracks = q.tracks[1:]
	return head
}

// Len returns the queue length for a chat.
func (s *Store) Len(chatID int64) int {
	q := s.chat(chatID)
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

// Tracks returns a snapshot copy of the chat's queue.
func (s *Store) Tracks(chatID int64) []*model.Track {
	q := s.chat(chatID)
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*model.Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// Clear drops the whole queue for a chat.
func (s *Store) Clear(chatID int64) {
	q := s.chat(chatID)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = nil
}

// WithChat runs fn with the chat's queue locked. fn receives the current
// list and returns the replacement list. Used by the advance transition to
// make its pop-or-keep decision atomic.
func (s *Store) WithChat(chatID int64, fn func(tracks []*model.Track) []*model.Track) {
	q := s.chat(chatID)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = fn(q.tracks)
}
