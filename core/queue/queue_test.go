package queue

import (
	"sync"
	"testing"

	"AviaxMusic/model"
)

func entry(vidid string) *model.Track {
	return &model.Track{File: "file_" + vidid, VidID: vidid}
}

func TestAppendAndHead(t *testing.T) {
	s := NewStore()
	chatID := int64(-1)

	if pos := s.Append(chatID, entry("a")); pos != 0 {
		t.Errorf("Expected position 0 for first track, got %d", pos)
	}
	if pos := s.Append(chatID, entry("b")); pos != 1 {
		t.Errorf("Expected position 1 for second track, got %d", pos)
	}

	if head := s.Head(chatID); head == nil || head.VidID != "a" {
		t.Errorf("Expected head a, got %+v", head)
	}
	if got := s.Len(chatID); got != 2 {
		t.Errorf("Expected length 2, got %d", got)
	}
}

func TestPopHead(t *testing.T) {
	s := NewStore()
	chatID := int64(-1)
	s.Append(chatID, entry("a"))
	s.Append(chatID, entry("b"))

	popped := s.PopHead(chatID)
	if popped == nil || popped.VidID != "a" {
		t.Fatalf("Expected to pop a, got %+v", popped)
	}
	if head := s.Head(chatID); head == nil || head.VidID != "b" {
		t.Errorf("Expected new head b, got %+v", head)
	}

	s.PopHead(chatID)
	if popped := s.PopHead(chatID); popped != nil {
		t.Errorf("Expected nil pop on empty queue, got %+v", popped)
	}
}

func TestClearAndSnapshot(t *testing.T) {
	s := NewStore()
	chatID := int64(-1)
	s.Append(chatID, entry("a"))
	s.Append(chatID, entry("b"))

	snap := s.Tracks(chatID)
	s.Clear(chatID)

	if len(snap) != 2 {
		t.Errorf("Expected snapshot of 2 tracks, got %d", len(snap))
	}
	if s.Len(chatID) != 0 {
		t.Errorf("Expected empty queue after clear, got %d", s.Len(chatID))
	}
}

func TestChatsAreIndependent(t *testing.T) {
	s := NewStore()
	s.Append(1, entry("a"))
	s.Append(2, entry("b"))

	s.PopHead(1)
	if s.Len(1) != 0 {
		t.Errorf("Expected chat 1 empty, got %d", s.Len(1))
	}
	if s.Len(2) != 1 {
		t.Errorf("Expected chat 2 untouched, got %d", s.Len(2))
	}
}

func TestWithChatAtomicReplace(t *testing.T) {
	s := NewStore()
	chatID := int64(-1)
	s.Append(chatID, entry("a"))
	s.Append(chatID, entry("b"))

	s.WithChat(chatID, func(tracks []*model.Track) []*model.Track {
		if len(tracks) != 2 {
			t.Errorf("Expected 2 tracks inside WithChat, got %d", len(tracks))
		}
		return tracks[1:]
	})

	if head := s.Head(chatID); head == nil || head.VidID != "b" {
		t.Errorf("Expected head b after replace, got %+v", head)
	}
}

func TestConcurrentMutation(t *testing.T) {
	s := NewStore()
	chatID := int64(-1)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Append(chatID, entry("x"))
		}()
		go func() {
			defer wg.Done()
			s.PopHead(chatID)
		}()
	}
	wg.Wait()
	if got := s.Len(chatID); got < 0 || got > 50 {
		t.Errorf("Queue length out of bounds after concurrent mutation: %d", got)
	}
}
