package call

import (
	"context"
	"errors"
	"sync"
	"testing"

	"AviaxMusic/config"
	"AviaxMusic/core/engine"
	"AviaxMusic/core/queue"
	"AviaxMusic/model"
)

type fakeEngine struct {
	mu           sync.Mutex
	ping         float64
	participants int
	playErr      error
	leaveErr     error
	plays        []engine.MediaStream
	leaves       []int64
}

func (f *fakeEngine) Start(ctx context.Context) error { return nil }

func (f *fakeEngine) Play(ctx context.Context, chatID int64, stream engine.MediaStream) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.plays = append(f.plays, stream)
	return nil
}

func (f *fakeEngine) LeaveCall(ctx context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, chatID)
	return f.leaveErr
}

func (f *fakeEngine) PauseStream(ctx context.Context, chatID int64) error  { return nil }
func (f *fakeEngine) ResumeStream(ctx context.Context, chatID int64) error { return nil }

func (f *fakeEngine) Participants(ctx context.Context, chatID int64) (int, error) {
	return f.participants, nil
}

func (f *fakeEngine) Ping() float64 { return f.ping }

func (f *fakeEngine) leaveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.leaves)
}

type fakeChats struct {
	mu         sync.Mutex
	loops      map[int64]int
	active     map[int64]bool
	video      map[int64]bool
	music      map[int64]bool
	assistants map[int64]int
	autoend    bool
}

func newFakeChats() *fakeChats {
	return &fakeChats{
		loops:      make(map[int64]int),
		active:     make(map[int64]bool),
		video:      make(map[int64]bool),
		music:      make(map[int64]bool),
		assistants: make(map[int64]int),
	}
}

func (f *fakeChats) GetLoop(ctx context.Context, chatID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loops[chatID], nil
}

func (f *fakeChats) SetLoop(ctx context.Context, chatID int64, loop int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loops[chatID] = loop
	return nil
}

func (f *fakeChats) AddActiveChat(ctx context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[chatID] = true
	return nil
}

func (f *fakeChats) RemoveActiveChat(ctx context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, chatID)
	return nil
}

func (f *fakeChats) AddActiveVideoChat(ctx context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.video[chatID] = true
	return nil
}

func (f *fakeChats) RemoveActiveVideoChat(ctx context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.video, chatID)
	return nil
}

func (f *fakeChats) MusicOn(ctx context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.music[chatID] = true
	return nil
}

func (f *fakeChats) GetLang(ctx context.Context, chatID int64) string { return "en" }

func (f *fakeChats) GetAssistant(ctx context.Context, chatID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slot, ok := f.assistants[chatID]; ok {
		return slot, nil
	}
	return -1, nil
}

func (f *fakeChats) SetAssistant(ctx context.Context, chatID int64, slot int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assistants[chatID] = slot
	return nil
}

func (f *fakeChats) AutoendEnabled(ctx context.Context) (bool, error) { return f.autoend, nil }

type fakeResolver struct {
	videoCalls    []string
	downloadCalls []string
	videoURL      string
	downloadPath  string
	videoErr      error
	downloadErr   error
}

func (f *fakeResolver) Video(ctx context.Context, vidID string) (string, error) {
	f.videoCalls = append(f.videoCalls, vidID)
	return f.videoURL, f.videoErr
}

func (f *fakeResolver) Download(ctx context.Context, vidID string, video bool) (string, error) {
	f.downloadCalls = append(f.downloadCalls, vidID)
	return f.downloadPath, f.downloadErr
}

type fakeMessenger struct {
	texts  []string
	photos []string
}

func (f *fakeMessenger) SendText(ctx context.Context, chatID int64, text string) (model.MessageRef, error) {
	f.texts = append(f.texts, text)
	return model.MessageRef{ChatID: chatID, MessageID: len(f.texts)}, nil
}

func (f *fakeMessenger) EditText(ctx context.Context, ref model.MessageRef, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) Delete(ctx context.Context, ref model.MessageRef) error { return nil }

func (f *fakeMessenger) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, voiceChatID int64) (model.MessageRef, error) {
	f.photos = append(f.photos, photoURL)
	return model.MessageRef{ChatID: chatID, MessageID: 100 + len(f.photos)}, nil
}

type fakeTranscoder struct {
	out string
	dur int
}

func (f *fakeTranscoder) SpeedTranscode(ctx context.Context, inputFile string, speed float64) (string, error) {
	if f.out != "" {
		return f.out, nil
	}
	return inputFile, nil
}

func (f *fakeTranscoder) Duration(ctx context.Context, inputFile string) (int, error) {
	return f.dur, nil
}

type testRig struct {
	caller  *Caller
	engines [config.MaxAssistants]*fakeEngine
	chats   *fakeChats
	res     *fakeResolver
	msg     *fakeMessenger
}

// newRig builds a caller with n configured assistants.
func newRig(n int) *testRig {
	cfg := &config.Config{
		StreamImgURL:     "stream.jpg",
		TelegramAudioURL: "tg_audio.jpg",
		TelegramVideoURL: "tg_video.jpg",
		SoundcloudImgURL: "sc.jpg",
	}
	rig := &testRig{
		chats: newFakeChats(),
		res:   &fakeResolver{},
		msg:   &fakeMessenger{},
	}
	var engines [config.MaxAssistants]engine.VoiceEngine
	for i := 0; i < n; i++ {
		cfg.SessionStrings[i] = "session"
		fe := &fakeEngine{}
		rig.engines[i] = fe
		engines[i] = fe
	}
	rig.caller = NewCaller(cfg, Deps{
		Engines:    engines,
		Queues:     queue.NewStore(),
		Chats:      rig.chats,
		Resolver:   rig.res,
		Messenger:  rig.msg,
		Transcoder: &fakeTranscoder{dur: 180},
	})
	return rig
}

func track(file, vidid string) *model.Track {
	return &model.Track{
		File:       file,
		Title:      "Test Track",
		By:         "tester",
		ChatID:     -100200300,
		StreamType: model.StreamAudio,
		VidID:      vidid,
		Dur:        "3:00",
		Seconds:    180,
	}
}

func TestChangeStreamPopsHead(t *testing.T) {
	rig := newRig(1)
	chatID := int64(-100200300)

	rig.caller.Queues().Append(chatID, track("https://cdn.example/a.mp3", "vid-a"))
	rig.caller.Queues().Append(chatID, track("https://cdn.example/b.mp3", "vid-b"))

	if err := rig.caller.ChangeStream(context.Background(), rig.engines[0], chatID); err != nil {
		t.Fatalf("ChangeStream returned error: %v", err)
	}

	if got := rig.caller.Queues().Len(chatID); got != 1 {
		t.Fatalf("Expected 1 track left, got %d", got)
	}
	head := rig.caller.Queues().Head(chatID)
	if head.VidID != "vid-b" {
		t.Errorf("Expected vid-b as new head, got %s", head.VidID)
	}
	if len(rig.engines[0].plays) != 1 || rig.engines[0].plays[0].Source != "https://cdn.example/b.mp3" {
		t.Errorf("Expected a direct play of the new head, got %+v", rig.engines[0].plays)
	}
}

func TestChangeStreamLoopRepeats(t *testing.T) {
	rig := newRig(1)
	chatID := int64(-100200300)
	rig.chats.loops[chatID] = 3

	rig.caller.Queues().Append(chatID, track("https://cdn.example/a.mp3", "vid-a"))
	rig.caller.Queues().Append(chatID, track("https://cdn.example/b.mp3", "vid-b"))

	if err := rig.caller.ChangeStream(context.Background(), rig.engines[0], chatID); err != nil {
		t.Fatalf("ChangeStream returned error: %v", err)
	}

	if got := rig.chats.loops[chatID]; got != 2 {
		t.Errorf("Expected loop decremented to 2, got %d", got)
	}
	if got := rig.caller.Queues().Len(chatID); got != 2 {
		t.Errorf("Expected queue unchanged at 2, got %d", got)
	}
	if head := rig.caller.Queues().Head(chatID); head.VidID != "vid-a" {
		t.Errorf("Expected head to repeat, got %s", head.VidID)
	}
}

func TestChangeStreamEmptyTeardown(t *testing.T) {
	rig := newRig(1)
	chatID := int64(-100200300)
	rig.chats.active[chatID] = true
	rig.chats.video[chatID] = true

	rig.caller.Queues().Append(chatID, track("https://cdn.example/a.mp3", "vid-a"))

	if err := rig.caller.ChangeStream(context.Background(), rig.engines[0], chatID); err != nil {
		t.Fatalf("ChangeStream returned error: %v", err)
	}

	if got := rig.caller.Queues().Len(chatID); got != 0 {
		t.Errorf("Expected empty queue, got %d", got)
	}
	if rig.chats.active[chatID] {
		t.Error("Expected active flag cleared")
	}
	if rig.chats.video[chatID] {
		t.Error("Expected video flag cleared")
	}
	if rig.engines[0].leaveCount() != 1 {
		t.Errorf("Expected exactly one leave call, got %d", rig.engines[0].leaveCount())
	}
}

func TestSpeedupIdentityGuard(t *testing.T) {
	rig := newRig(1)
	chatID := int64(-100200300)
	rig.chats.assistants[chatID] = 0

	tr := track("/tmp/current.mp3", "vid-a")
	rig.caller.Queues().Append(chatID, tr)

	err := rig.caller.SpeedupStream(context.Background(), chatID, "/tmp/stale.mp3", 1.5)
	if err == nil {
		t.Fatal("Expected an error for a stale file path")
	}
	var uerr *UserError
	if !errors.As(err, &uerr) {
		t.Errorf("Expected a UserError, got %T", err)
	}
	if tr.Speed != 0 || tr.SpeedPath != "" || tr.OldDur != "" {
		t.Errorf("Expected no mutation on guard failure, got %+v", tr)
	}
	if len(rig.engines[0].plays) != 0 {
		t.Errorf("Expected no play on guard failure, got %d", len(rig.engines[0].plays))
	}
}

func TestSpeedupMutatesHead(t *testing.T) {
	rig := newRig(1)
	chatID := int64(-100200300)
	rig.chats.assistants[chatID] = 0

	tr := track("/tmp/current.mp3", "vid-a")
	tr.Played = 60
	rig.caller.Queues().Append(chatID, tr)

	if err := rig.caller.SpeedupStream(context.Background(), chatID, "/tmp/current.mp3", 2.0); err != nil {
		t.Fatalf("SpeedupStream returned error: %v", err)
	}

	if tr.Speed != 2.0 {
		t.Errorf("Expected speed 2.0, got %v", tr.Speed)
	}
	if tr.OldDur != "3:00" || tr.OldSeconds != 180 {
		t.Errorf("Expected snapshot of original duration, got %q/%d", tr.OldDur, tr.OldSeconds)
	}
	if tr.Played != 30 {
		t.Errorf("Expected converted position 30, got %d", tr.Played)
	}
}

func TestPingAggregation(t *testing.T) {
	rig := newRig(3)
	rig.engines[0].ping = 100
	rig.engines[1].ping = 200
	rig.engines[2].ping = 300

	if got := rig.caller.Ping(); got != "200.0" {
		t.Errorf("Expected \"200.0\", got %q", got)
	}

	empty := newRig(0)
	if got := empty.caller.Ping(); got != "0.0" {
		t.Errorf("Expected \"0.0\" with no assistants, got %q", got)
	}

	silent := newRig(2)
	if got := silent.caller.Ping(); got != "0.0" {
		t.Errorf("Expected \"0.0\" with no samples, got %q", got)
	}
}

func TestStopStreamForceResilience(t *testing.T) {
	rig := newRig(5)
	chatID := int64(-100200300)
	rig.chats.active[chatID] = true
	rig.engines[1].leaveErr = errors.New("boom")
	rig.engines[3].leaveErr = errors.New("boom")
	rig.caller.Queues().Append(chatID, track("https://cdn.example/a.mp3", "vid-a"))

	rig.caller.StopStreamForce(context.Background(), chatID)

	for i := 0; i < 5; i++ {
		if rig.engines[i].leaveCount() != 1 {
			t.Errorf("Expected leave on assistant %d, got %d calls", i, rig.engines[i].leaveCount())
		}
	}
	if rig.chats.active[chatID] {
		t.Error("Expected active flag cleared despite leave failures")
	}
	if rig.caller.Queues().Len(chatID) != 0 {
		t.Error("Expected queue cleared despite leave failures")
	}
}

func TestMarkerRoutingDownload(t *testing.T) {
	rig := newRig(1)
	chatID := int64(-100200300)
	rig.res.downloadPath = "/tmp/dl/vid-b.m4a"

	rig.caller.Queues().Append(chatID, track("https://cdn.example/a.mp3", "vid-a"))
	rig.caller.Queues().Append(chatID, track("vid_vid-b", "vid-b"))

	if err := rig.caller.ChangeStream(context.Background(), rig.engines[0], chatID); err != nil {
		t.Fatalf("ChangeStream returned error: %v", err)
	}

	if len(rig.res.downloadCalls) != 1 || rig.res.downloadCalls[0] != "vid-b" {
		t.Errorf("Expected download resolution of vid-b, got %v", rig.res.downloadCalls)
	}
	if len(rig.res.videoCalls) != 0 {
		t.Errorf("Expected no live resolution, got %v", rig.res.videoCalls)
	}
	if len(rig.engines[0].plays) != 1 || rig.engines[0].plays[0].Source != "/tmp/dl/vid-b.m4a" {
		t.Errorf("Expected play of the downloaded file, got %+v", rig.engines[0].plays)
	}
}

func TestMarkerRoutingLive(t *testing.T) {
	rig := newRig(1)
	chatID := int64(-100200300)
	rig.res.videoURL = "https://live.example/stream.m3u8"

	rig.caller.Queues().Append(chatID, track("https://cdn.example/a.mp3", "vid-a"))
	rig.caller.Queues().Append(chatID, track("live_vid-c", "vid-c"))

	if err := rig.caller.ChangeStream(context.Background(), rig.engines[0], chatID); err != nil {
		t.Fatalf("ChangeStream returned error: %v", err)
	}

	if len(rig.res.videoCalls) != 1 || rig.res.videoCalls[0] != "vid-c" {
		t.Errorf("Expected live resolution of vid-c, got %v", rig.res.videoCalls)
	}
	if len(rig.res.downloadCalls) != 0 {
		t.Errorf("Expected no download, got %v", rig.res.downloadCalls)
	}
	if len(rig.engines[0].plays) != 1 || rig.engines[0].plays[0].Source != "https://live.example/stream.m3u8" {
		t.Errorf("Expected play of the live URL, got %+v", rig.engines[0].plays)
	}
}

func TestMarkerRoutingDirect(t *testing.T) {
	rig := newRig(1)
	chatID := int64(-100200300)

	rig.caller.Queues().Append(chatID, track("https://cdn.example/a.mp3", "vid-a"))
	rig.caller.Queues().Append(chatID, track("https://cdn.example/direct.mp3", "vid-d"))

	if err := rig.caller.ChangeStream(context.Background(), rig.engines[0], chatID); err != nil {
		t.Fatalf("ChangeStream returned error: %v", err)
	}

	if len(rig.res.videoCalls) != 0 || len(rig.res.downloadCalls) != 0 {
		t.Error("Expected no resolver involvement for a direct URL")
	}
	if len(rig.engines[0].plays) != 1 || rig.engines[0].plays[0].Source != "https://cdn.example/direct.mp3" {
		t.Errorf("Expected direct play, got %+v", rig.engines[0].plays)
	}
}

func TestAdvanceWedgesOnResolutionFailure(t *testing.T) {
	rig := newRig(1)
	chatID := int64(-100200300)
	rig.res.videoErr = errors.New("live lookup failed")

	rig.caller.Queues().Append(chatID, track("https://cdn.example/a.mp3", "vid-a"))
	rig.caller.Queues().Append(chatID, track("live_vid-c", "vid-c"))

	if err := rig.caller.ChangeStream(context.Background(), rig.engines[0], chatID); err != nil {
		t.Fatalf("ChangeStream returned error: %v", err)
	}

	// The failing head stays queued and the announce chat is notified.
	if head := rig.caller.Queues().Head(chatID); head == nil || head.VidID != "vid-c" {
		t.Error("Expected failing head to remain queued")
	}
	if len(rig.msg.texts) == 0 {
		t.Error("Expected a failure notification")
	}
	if len(rig.engines[0].plays) != 0 {
		t.Errorf("Expected no play after failed resolution, got %+v", rig.engines[0].plays)
	}
}

func TestJoinCallErrorClassification(t *testing.T) {
	cases := []struct {
		name    string
		playErr error
		want    string
	}{
		{"no active call", errors.New("GroupCall not found"), "There is no active voice chat here. Start one and try again."},
		{"already joined", errors.New("client already joined"), "The assistant is already in this voice chat."},
		{"generic", errors.New("timeout"), "Something went wrong while joining the voice chat."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rig := newRig(1)
			rig.engines[0].playErr = tc.playErr
			err := rig.caller.JoinCall(context.Background(), -1, -1, "file.mp3", false)
			var uerr *UserError
			if !errors.As(err, &uerr) {
				t.Fatalf("Expected a UserError, got %v", err)
			}
			if uerr.Msg != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, uerr.Msg)
			}
		})
	}
}

func TestJoinCallSchedulesAutoend(t *testing.T) {
	rig := newRig(1)
	rig.chats.autoend = true
	rig.engines[0].participants = 1
	chatID := int64(-42)

	if err := rig.caller.JoinCall(context.Background(), chatID, chatID, "file.mp3", true); err != nil {
		t.Fatalf("JoinCall returned error: %v", err)
	}

	if _, ok := rig.caller.AutoendDeadline(chatID); !ok {
		t.Error("Expected an autoend deadline for a solo listener")
	}
	if !rig.chats.active[chatID] || !rig.chats.video[chatID] || !rig.chats.music[chatID] {
		t.Error("Expected active, video and music flags set")
	}

	busy := newRig(1)
	busy.chats.autoend = true
	busy.engines[0].participants = 4
	if err := busy.caller.JoinCall(context.Background(), chatID, chatID, "file.mp3", false); err != nil {
		t.Fatalf("JoinCall returned error: %v", err)
	}
	if _, ok := busy.caller.AutoendDeadline(chatID); ok {
		t.Error("Expected no autoend deadline with listeners present")
	}
}

func TestForceStopStreamPopsOnlyHead(t *testing.T) {
	rig := newRig(1)
	chatID := int64(-100200300)
	rig.chats.active[chatID] = true
	rig.caller.Queues().Append(chatID, track("https://cdn.example/a.mp3", "vid-a"))
	rig.caller.Queues().Append(chatID, track("https://cdn.example/b.mp3", "vid-b"))

	rig.caller.ForceStopStream(context.Background(), chatID)

	if got := rig.caller.Queues().Len(chatID); got != 1 {
		t.Errorf("Expected only the head removed, %d left", got)
	}
	if rig.chats.active[chatID] {
		t.Error("Expected active flag cleared")
	}
	if rig.engines[0].leaveCount() != 1 {
		t.Errorf("Expected one leave call, got %d", rig.engines[0].leaveCount())
	}
}
