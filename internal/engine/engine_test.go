package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tessro/vibe/internal/core"
	vibeerrors "github.com/tessro/vibe/internal/errors"
)

type load struct {
	gen uint64
	src string
}

// fakeAudio records what the engine asks of it and lets tests inject events.
type fakeAudio struct {
	mu      sync.Mutex
	loads   []load
	pauses  int
	resumes int
	seeks   []time.Duration
	volume  float64
	fail    map[string]error
	sink    func(core.AudioEvent)
	closed  bool
}

func newFakeAudio() *fakeAudio {
	return &fakeAudio{fail: make(map[string]error)}
}

func (f *fakeAudio) Load(gen uint64, src string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, load{gen, src})
	return f.fail[src]
}

func (f *fakeAudio) Pause() {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
}

func (f *fakeAudio) Resume() {
	f.mu.Lock()
	f.resumes++
	f.mu.Unlock()
}

func (f *fakeAudio) Seek(p time.Duration) error {
	f.mu.Lock()
	f.seeks = append(f.seeks, p)
	f.mu.Unlock()
	return nil
}

func (f *fakeAudio) SetVolume(v float64) {
	f.mu.Lock()
	f.volume = v
	f.mu.Unlock()
}

func (f *fakeAudio) Events(sink func(core.AudioEvent)) {
	f.mu.Lock()
	f.sink = sink
	f.mu.Unlock()
}

func (f *fakeAudio) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeAudio) emit(ev core.AudioEvent) {
	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()
	sink(ev)
}

func (f *fakeAudio) lastLoad() load {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.loads) == 0 {
		return load{}
	}
	return f.loads[len(f.loads)-1]
}

func (f *fakeAudio) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

// fakeRecorder forwards every notification to a channel.
type fakeRecorder struct {
	plays chan core.Track
	err   error
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{plays: make(chan core.Track, 32)}
}

func (r *fakeRecorder) RecordPlay(_ context.Context, t core.Track, _ string) error {
	r.plays <- t
	return r.err
}

// fakeColors blocks each derivation until the test releases its cover.
type fakeColors struct {
	mu      sync.Mutex
	pending map[string]chan core.Color
	started chan string
}

func newFakeColors() *fakeColors {
	return &fakeColors{
		pending: make(map[string]chan core.Color),
		started: make(chan string, 16),
	}
}

func (c *fakeColors) gate(cover string) chan core.Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[cover]
	if !ok {
		ch = make(chan core.Color, 1)
		c.pending[cover] = ch
	}
	return ch
}

func (c *fakeColors) Derive(ctx context.Context, cover string) (core.Color, error) {
	c.started <- cover
	select {
	case col := <-c.gate(cover):
		return col, nil
	case <-ctx.Done():
		return core.Color{}, ctx.Err()
	}
}

func (c *fakeColors) release(cover string, col core.Color) {
	c.gate(cover) <- col
}

var (
	trackA = core.Track{ID: "a", Title: "Alpha", Preview: "http://x/a.mp3", Cover: "http://x/a.jpg", Duration: 200 * time.Second, Source: core.SourceITunes}
	trackB = core.Track{ID: "b", Title: "Beta", Preview: "http://x/b.mp3", Cover: "http://x/b.jpg", Duration: 200 * time.Second, Source: core.SourceITunes}
	trackC = core.Track{ID: "c", Title: "Gamma", Preview: "http://x/c.mp3", Cover: "http://x/c.jpg", Duration: 200 * time.Second, Source: core.SourceITunes}
)

// start runs a new engine until the test ends.
func start(t *testing.T, audio *fakeAudio, opts ...Option) *Engine {
	t.Helper()
	e := New(audio, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

func state(t *testing.T, e *Engine) *core.PlaybackState {
	t.Helper()
	s, err := e.State(context.Background())
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	return s
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func enqueue(t *testing.T, e *Engine, tracks ...core.Track) {
	t.Helper()
	for _, tr := range tracks {
		must(t, e.AddToQueue(context.Background(), tr))
	}
}

func currentID(s *core.PlaybackState) string {
	if s.Track == nil {
		return ""
	}
	return s.Track.ID
}

func TestNewEngineIsIdle(t *testing.T) {
	audio := newFakeAudio()
	e := start(t, audio)
	s := state(t, e)

	if s.Status() != core.StatusIdle {
		t.Errorf("Status() = %v, want %v", s.Status(), core.StatusIdle)
	}
	if s.Volume != DefaultVolume {
		t.Errorf("Volume = %v, want %v", s.Volume, DefaultVolume)
	}
	if s.Ambient != core.DefaultAmbient {
		t.Errorf("Ambient = %v, want %v", s.Ambient, core.DefaultAmbient)
	}
	if s.Repeat != core.RepeatOff {
		t.Errorf("Repeat = %v, want off", s.Repeat)
	}
	if audio.volume != DefaultVolume {
		t.Errorf("audio volume = %v, want %v", audio.volume, DefaultVolume)
	}
}

func TestTogglePlayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	e := start(t, audio)

	// Idle: nothing to toggle.
	must(t, e.TogglePlay(ctx))
	must(t, e.TogglePlay(ctx))
	if s := state(t, e); s.Track != nil || s.IsPlaying {
		t.Fatalf("idle toggle changed state: %+v", s)
	}

	must(t, e.PlayTrack(ctx, trackA))
	must(t, e.Seek(ctx, 42*time.Second))

	for _, startPlaying := range []bool{true, false} {
		before := state(t, e)
		if before.IsPlaying != startPlaying {
			t.Fatalf("IsPlaying = %v, want %v", before.IsPlaying, startPlaying)
		}

		must(t, e.TogglePlay(ctx))
		mid := state(t, e)
		if mid.IsPlaying == startPlaying {
			t.Errorf("single toggle left IsPlaying = %v", mid.IsPlaying)
		}
		must(t, e.TogglePlay(ctx))
		after := state(t, e)

		if after.IsPlaying != before.IsPlaying {
			t.Errorf("IsPlaying = %v, want %v", after.IsPlaying, before.IsPlaying)
		}
		if after.Position != before.Position {
			t.Errorf("Position = %v, want %v", after.Position, before.Position)
		}
		if currentID(after) != currentID(before) {
			t.Errorf("Track = %q, want %q", currentID(after), currentID(before))
		}

		// Flip once so the next round starts from the other state.
		must(t, e.TogglePlay(ctx))
	}

	if audio.loadCount() != 1 {
		t.Errorf("loads = %d, want 1 (toggle must not reload)", audio.loadCount())
	}

	// Ended with nothing queued after it.
	must(t, e.Seek(ctx, 0))
	if !state(t, e).IsPlaying {
		must(t, e.TogglePlay(ctx))
	}
	audio.emit(core.AudioEvent{Kind: core.AudioEnded, Gen: audio.lastLoad().gen})
	must(t, e.Seek(ctx, 75*time.Second))
	before := state(t, e)

	must(t, e.TogglePlay(ctx))
	must(t, e.TogglePlay(ctx))
	after := state(t, e)
	if after.IsPlaying != before.IsPlaying || after.Position != before.Position {
		t.Errorf("ended toggle pair = {%v, %v}, want {%v, %v}",
			after.IsPlaying, after.Position, before.IsPlaying, before.Position)
	}
}

func TestSeekClamps(t *testing.T) {
	ctx := context.Background()
	e := start(t, newFakeAudio())
	must(t, e.PlayTrack(ctx, trackA))

	tests := []struct {
		seek time.Duration
		want time.Duration
	}{
		{-5 * time.Second, 0},
		{500 * time.Second, 200 * time.Second},
		{30 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		must(t, e.Seek(ctx, tt.seek))
		if got := state(t, e).Position; got != tt.want {
			t.Errorf("Seek(%v) position = %v, want %v", tt.seek, got, tt.want)
		}
	}
}

func TestSeekRepositionsAudio(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	e := start(t, audio)
	must(t, e.PlayTrack(ctx, trackA))
	must(t, e.Seek(ctx, 900*time.Second))
	_ = state(t, e)

	audio.mu.Lock()
	defer audio.mu.Unlock()
	if len(audio.seeks) != 1 || audio.seeks[0] != 200*time.Second {
		t.Errorf("audio seeks = %v, want [200s]", audio.seeks)
	}
}

func TestSetVolumeClamps(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	e := start(t, audio)

	tests := []struct {
		level float64
		want  float64
	}{
		{-0.3, 0},
		{1.5, 1},
		{0.25, 0.25},
	}

	for _, tt := range tests {
		must(t, e.SetVolume(ctx, tt.level))
		if got := state(t, e).Volume; got != tt.want {
			t.Errorf("SetVolume(%v) volume = %v, want %v", tt.level, got, tt.want)
		}
	}

	// The level carries over to later tracks.
	must(t, e.PlayTrack(ctx, trackA))
	must(t, e.PlayTrack(ctx, trackB))
	if got := state(t, e).Volume; got != 0.25 {
		t.Errorf("volume after track change = %v, want 0.25", got)
	}
	audio.mu.Lock()
	defer audio.mu.Unlock()
	if audio.volume != 0.25 {
		t.Errorf("audio volume = %v, want 0.25", audio.volume)
	}
}

func TestPlayTrackRestartsSameTrack(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	e := start(t, audio)

	must(t, e.PlayTrack(ctx, trackA))
	must(t, e.Seek(ctx, 50*time.Second))
	must(t, e.TogglePlay(ctx))
	must(t, e.PlayTrack(ctx, trackA))

	s := state(t, e)
	if s.Position != 0 || !s.IsPlaying {
		t.Errorf("state = {Position: %v, IsPlaying: %v}, want {0, true}", s.Position, s.IsPlaying)
	}
	if audio.loadCount() != 2 {
		t.Errorf("loads = %d, want 2", audio.loadCount())
	}
}

func TestNextLinearAdvance(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	e := start(t, audio)
	enqueue(t, e, trackA, trackB, trackC)
	must(t, e.PlayTrack(ctx, trackA))

	must(t, e.Next(ctx))
	if got := currentID(state(t, e)); got != "b" {
		t.Fatalf("after one Next track = %q, want b", got)
	}

	must(t, e.Next(ctx))
	must(t, e.Next(ctx))
	s := state(t, e)
	if currentID(s) != "c" {
		t.Errorf("at end of queue track = %q, want c", currentID(s))
	}
	if !s.IsPlaying {
		t.Error("no-op Next should not change the play state")
	}
	if audio.loadCount() != 3 {
		t.Errorf("loads = %d, want 3", audio.loadCount())
	}
}

func TestNextEmptyQueueIsNoop(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	e := start(t, audio)
	must(t, e.PlayTrack(ctx, trackA))
	must(t, e.Next(ctx))
	must(t, e.Previous(ctx))

	if got := currentID(state(t, e)); got != "a" {
		t.Errorf("track = %q, want a", got)
	}
	if audio.loadCount() != 1 {
		t.Errorf("loads = %d, want 1", audio.loadCount())
	}
}

func TestNextFromOutsideQueueStartsAtHead(t *testing.T) {
	ctx := context.Background()
	e := start(t, newFakeAudio())
	enqueue(t, e, trackB, trackC)
	must(t, e.PlayTrack(ctx, trackA))
	must(t, e.Next(ctx))

	if got := currentID(state(t, e)); got != "b" {
		t.Errorf("track = %q, want b", got)
	}
}

func TestRepeatAllWraps(t *testing.T) {
	ctx := context.Background()
	e := start(t, newFakeAudio(), WithRepeat(core.RepeatAll))
	enqueue(t, e, trackA, trackB, trackC)

	must(t, e.PlayTrack(ctx, trackC))
	must(t, e.Next(ctx))
	if got := currentID(state(t, e)); got != "a" {
		t.Errorf("Next from last = %q, want a", got)
	}

	must(t, e.Previous(ctx))
	if got := currentID(state(t, e)); got != "c" {
		t.Errorf("Previous from first = %q, want c", got)
	}
}

func TestPreviousAtHeadWithoutRepeatIsNoop(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	e := start(t, audio)
	enqueue(t, e, trackA, trackB)
	must(t, e.PlayTrack(ctx, trackA))
	must(t, e.Previous(ctx))

	if got := currentID(state(t, e)); got != "a" {
		t.Errorf("track = %q, want a", got)
	}
	if audio.loadCount() != 1 {
		t.Errorf("loads = %d, want 1", audio.loadCount())
	}
}

func TestPreviousIgnoresShuffle(t *testing.T) {
	ctx := context.Background()
	calls := 0
	e := start(t, newFakeAudio(),
		WithShuffle(true),
		WithRandom(func(n int) int {
			calls++
			return n - 1
		}),
	)
	enqueue(t, e, trackA, trackB, trackC)

	// Shuffle jumps to the last entry.
	must(t, e.PlayTrack(ctx, trackA))
	must(t, e.Next(ctx))
	if got := currentID(state(t, e)); got != "c" {
		t.Fatalf("shuffled Next = %q, want c", got)
	}

	for _, want := range []string{"b", "a"} {
		must(t, e.Previous(ctx))
		if got := currentID(state(t, e)); got != want {
			t.Errorf("Previous = %q, want %q", got, want)
		}
	}
	if calls != 1 {
		t.Errorf("random picks = %d, want 1", calls)
	}
}

func TestShuffleStaysInBounds(t *testing.T) {
	ctx := context.Background()
	var seen []int
	picks := []int{2, 0, 0, 1}
	e := start(t, newFakeAudio(),
		WithShuffle(true),
		WithRandom(func(n int) int {
			seen = append(seen, n)
			p := picks[0]
			picks = picks[1:]
			return p
		}),
	)
	enqueue(t, e, trackA, trackB, trackC)
	must(t, e.PlayTrack(ctx, trackA))

	// Repeats are allowed; every pick plays something.
	for _, want := range []string{"c", "a", "a", "b"} {
		must(t, e.Next(ctx))
		if got := currentID(state(t, e)); got != want {
			t.Errorf("shuffled Next = %q, want %q", got, want)
		}
	}
	for _, n := range seen {
		if n != 3 {
			t.Errorf("random range = %d, want 3", n)
		}
	}
}

func TestShuffleWithDefaultRandom(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	e := start(t, audio, WithShuffle(true))
	enqueue(t, e, trackA, trackB, trackC)

	for i := 0; i < 50; i++ {
		must(t, e.Next(ctx))
		switch currentID(state(t, e)) {
		case "a", "b", "c":
		default:
			t.Fatalf("shuffled Next produced %v", state(t, e).Track)
		}
	}
	if audio.loadCount() != 50 {
		t.Errorf("loads = %d, want 50 (shuffle never no-ops)", audio.loadCount())
	}
}

func TestTogglesLeaveQueueOrder(t *testing.T) {
	ctx := context.Background()
	e := start(t, newFakeAudio())
	enqueue(t, e, trackA, trackB, trackC)

	wantRepeat := []core.RepeatMode{core.RepeatAll, core.RepeatOne, core.RepeatOff}
	for _, want := range wantRepeat {
		must(t, e.ToggleRepeat(ctx))
		if got := state(t, e).Repeat; got != want {
			t.Errorf("Repeat = %v, want %v", got, want)
		}
	}

	must(t, e.ToggleShuffle(ctx))
	s := state(t, e)
	if !s.Shuffle {
		t.Error("Shuffle = false, want true")
	}
	for i, want := range []string{"a", "b", "c"} {
		if s.Queue[i].ID != want {
			t.Errorf("Queue[%d] = %q, want %q", i, s.Queue[i].ID, want)
		}
	}
}

func TestAddToQueueKeepsPlayback(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	e := start(t, audio)
	must(t, e.PlayTrack(ctx, trackA))
	must(t, e.Seek(ctx, 12*time.Second))
	enqueue(t, e, trackB)

	s := state(t, e)
	if currentID(s) != "a" || s.Position != 12*time.Second || !s.IsPlaying {
		t.Errorf("enqueue disturbed playback: %+v", s)
	}
	if len(s.Queue) != 1 || s.Queue[0].ID != "b" {
		t.Errorf("Queue = %v, want [b]", s.Queue)
	}
}

func TestEndedRepeatOneRestarts(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	rec := newFakeRecorder()
	e := start(t, audio, WithRepeat(core.RepeatOne), WithRecorder(rec, "me"))
	enqueue(t, e, trackA, trackB, trackC)
	must(t, e.PlayTrack(ctx, trackB))

	gen := audio.lastLoad().gen
	audio.emit(core.AudioEvent{Kind: core.AudioTimeUpdate, Gen: gen, Position: 199 * time.Second})
	audio.emit(core.AudioEvent{Kind: core.AudioEnded, Gen: gen})

	s := state(t, e)
	if currentID(s) != "b" || s.Position != 0 || !s.IsPlaying {
		t.Errorf("state = {%q, %v, %v}, want {b, 0, true}", currentID(s), s.Position, s.IsPlaying)
	}
	restarted := audio.lastLoad()
	if restarted.gen == gen || restarted.src != trackB.Preview {
		t.Errorf("restart load = %+v, want b under a new token", restarted)
	}

	// An end report from the replaced stream must not restart again.
	audio.emit(core.AudioEvent{Kind: core.AudioEnded, Gen: gen})
	_ = state(t, e)
	if audio.loadCount() != 2 {
		t.Errorf("loads = %d, want 2", audio.loadCount())
	}

	// Only the explicit play is recorded.
	waitPlay(t, rec, "b")
	expectNoPlay(t, rec)
}

func TestEndedAdvances(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	rec := newFakeRecorder()
	e := start(t, audio, WithRecorder(rec, "me"))
	enqueue(t, e, trackA, trackB)
	must(t, e.PlayTrack(ctx, trackA))
	waitPlay(t, rec, "a")

	audio.emit(core.AudioEvent{Kind: core.AudioEnded, Gen: audio.lastLoad().gen})

	s := state(t, e)
	if currentID(s) != "b" || !s.IsPlaying || s.Position != 0 {
		t.Errorf("state = {%q, %v, %v}, want {b, true, 0}", currentID(s), s.IsPlaying, s.Position)
	}
	waitPlay(t, rec, "b")
}

func TestEndedAtQueueEndStops(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	e := start(t, audio)
	enqueue(t, e, trackA, trackB)
	must(t, e.PlayTrack(ctx, trackB))

	audio.emit(core.AudioEvent{Kind: core.AudioEnded, Gen: audio.lastLoad().gen})

	s := state(t, e)
	if currentID(s) != "b" {
		t.Errorf("track = %q, want b", currentID(s))
	}
	if s.IsPlaying {
		t.Error("IsPlaying = true after the queue ran out")
	}
	if s.Position != 0 {
		t.Errorf("Position = %v, want 0", s.Position)
	}

	// The source is reloaded paused, so play simply resumes it.
	audio.mu.Lock()
	loads, pauses := len(audio.loads), audio.pauses
	audio.mu.Unlock()
	if loads != 2 || pauses != 1 {
		t.Errorf("loads, pauses = %d, %d, want 2, 1", loads, pauses)
	}

	must(t, e.TogglePlay(ctx))
	s = state(t, e)
	if !s.IsPlaying || s.Position != 0 {
		t.Errorf("replay state = {%v, %v}, want {true, 0}", s.IsPlaying, s.Position)
	}
	if audio.loadCount() != 2 {
		t.Errorf("loads = %d, want 2", audio.loadCount())
	}
}

func TestSeekAfterQueueEnd(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	e := start(t, audio)
	enqueue(t, e, trackA)
	must(t, e.PlayTrack(ctx, trackA))

	audio.emit(core.AudioEvent{Kind: core.AudioEnded, Gen: audio.lastLoad().gen})
	must(t, e.Seek(ctx, 30*time.Second))
	must(t, e.TogglePlay(ctx))

	s := state(t, e)
	if !s.IsPlaying || s.Position != 30*time.Second {
		t.Errorf("state = {%v, %v}, want {true, 30s}", s.IsPlaying, s.Position)
	}

	audio.mu.Lock()
	defer audio.mu.Unlock()
	if len(audio.loads) != 2 {
		t.Errorf("loads = %d, want 2", len(audio.loads))
	}
	if len(audio.seeks) != 1 || audio.seeks[0] != 30*time.Second {
		t.Errorf("audio seeks = %v, want [30s]", audio.seeks)
	}
}

func TestAudioEventsUpdateState(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	e := start(t, audio)
	track := trackA
	track.Duration = 0
	must(t, e.PlayTrack(ctx, track))

	gen := audio.lastLoad().gen
	audio.emit(core.AudioEvent{Kind: core.AudioMetadata, Gen: gen, Duration: 30 * time.Second})
	audio.emit(core.AudioEvent{Kind: core.AudioTimeUpdate, Gen: gen, Position: 7 * time.Second})

	s := state(t, e)
	if s.Duration != 30*time.Second {
		t.Errorf("Duration = %v, want 30s", s.Duration)
	}
	if s.Position != 7*time.Second {
		t.Errorf("Position = %v, want 7s", s.Position)
	}
}

func TestStaleAudioEventsIgnored(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	e := start(t, audio)
	enqueue(t, e, trackA, trackB, trackC)

	must(t, e.PlayTrack(ctx, trackA))
	old := audio.lastLoad().gen
	must(t, e.PlayTrack(ctx, trackB))

	audio.emit(core.AudioEvent{Kind: core.AudioTimeUpdate, Gen: old, Position: 90 * time.Second})
	audio.emit(core.AudioEvent{Kind: core.AudioEnded, Gen: old})
	audio.emit(core.AudioEvent{Kind: core.AudioError, Gen: old, Err: errors.New("gone")})

	s := state(t, e)
	if currentID(s) != "b" || s.Position != 0 || s.Error != "" {
		t.Errorf("stale events changed state: track %q position %v error %q", currentID(s), s.Position, s.Error)
	}
}

func TestStaleColorDiscarded(t *testing.T) {
	ctx := context.Background()
	colors := newFakeColors()
	e := start(t, newFakeAudio(), WithColors(colors, time.Minute))
	sub, cancel := e.Subscribe()
	defer cancel()

	must(t, e.PlayTrack(ctx, trackA))
	must(t, e.PlayTrack(ctx, trackB))
	waitStarted(t, colors, 2)

	stale := core.Color{H: 10, S: 50, L: 60}
	fresh := core.Color{H: 200, S: 70, L: 55}

	// The older derivation completes last and must lose.
	colors.release(trackB.Cover, fresh)
	waitAmbient(t, sub, fresh)
	colors.release(trackA.Cover, stale)

	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case s, ok := <-sub:
			if ok && s.Ambient == stale {
				t.Fatalf("stale color %v was applied", stale)
			}
		case <-deadline:
			if got := state(t, e).Ambient; got != fresh {
				t.Errorf("Ambient = %v, want %v", got, fresh)
			}
			return
		}
	}
}

func TestColorResultGenerationCheck(t *testing.T) {
	e := New(newFakeAudio())
	e.current = &trackB
	e.gen = 2

	if e.onColor(colorResult{gen: 1, cover: trackA.Cover, color: core.Color{H: 1, S: 1, L: 50}}) {
		t.Error("onColor accepted a result for an earlier generation")
	}
	if e.ambient != core.DefaultAmbient {
		t.Errorf("Ambient = %v, want default", e.ambient)
	}

	if e.onColor(colorResult{gen: 2, cover: trackB.Cover, err: errors.New("decode")}) {
		t.Error("onColor accepted a failed derivation")
	}
	if e.ambient != core.DefaultAmbient {
		t.Errorf("Ambient = %v, want default after failure", e.ambient)
	}

	want := core.Color{H: 120, S: 40, L: 50}
	if !e.onColor(colorResult{gen: 2, cover: trackB.Cover, color: want}) {
		t.Error("onColor rejected the current result")
	}
	if e.ambient != want {
		t.Errorf("Ambient = %v, want %v", e.ambient, want)
	}
}

func TestTrackWithoutCoverKeepsColor(t *testing.T) {
	ctx := context.Background()
	colors := newFakeColors()
	e := start(t, newFakeAudio(), WithColors(colors, time.Minute))
	track := trackA
	track.Cover = ""
	must(t, e.PlayTrack(ctx, track))

	select {
	case c := <-colors.started:
		t.Errorf("derivation started for %q", c)
	case <-time.After(20 * time.Millisecond):
	}
	if got := state(t, e).Ambient; got != core.DefaultAmbient {
		t.Errorf("Ambient = %v, want default", got)
	}
}

func TestPlaybackErrorStaysByDefault(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	audio.fail[trackA.Preview] = errors.New("404 not found")
	e := start(t, audio)
	enqueue(t, e, trackA, trackB)

	must(t, e.PlayTrack(ctx, trackA))
	s := state(t, e)
	if currentID(s) != "a" {
		t.Errorf("track = %q, want a", currentID(s))
	}
	if !s.IsPlaying {
		t.Error("play/pause flag changed on error")
	}
	if s.Error == "" {
		t.Error("Error is empty, want the load failure")
	}

	// An explicit play clears the error.
	must(t, e.PlayTrack(ctx, trackB))
	if s := state(t, e); s.Error != "" {
		t.Errorf("Error = %q after playing another track", s.Error)
	}
}

func TestPlaybackErrorAdvancesWhenEnabled(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	audio.fail[trackA.Preview] = errors.New("decode failed")
	e := start(t, audio, WithAdvanceOnError(true))
	enqueue(t, e, trackA, trackB, trackC)

	must(t, e.PlayTrack(ctx, trackA))
	if got := currentID(state(t, e)); got != "b" {
		t.Errorf("track = %q, want b", got)
	}

	// Asynchronous errors take the same path.
	audio.emit(core.AudioEvent{Kind: core.AudioError, Gen: audio.lastLoad().gen, Err: errors.New("stream reset")})
	if got := currentID(state(t, e)); got != "c" {
		t.Errorf("track = %q, want c", got)
	}
}

func TestPlaybackErrorAdvanceGivesUp(t *testing.T) {
	ctx := context.Background()
	audio := newFakeAudio()
	for _, tr := range []core.Track{trackA, trackB, trackC} {
		audio.fail[tr.Preview] = errors.New("unreachable")
	}
	e := start(t, audio, WithAdvanceOnError(true), WithRepeat(core.RepeatAll))
	enqueue(t, e, trackA, trackB, trackC)

	must(t, e.PlayTrack(ctx, trackA))
	s := state(t, e)
	if s.Error == "" {
		t.Error("Error is empty, want the last failure")
	}
	// One attempt for the requested track plus one per queue entry.
	if got := audio.loadCount(); got != 4 {
		t.Errorf("loads = %d, want 4", got)
	}
}

func TestRecorderFailureDoesNotAffectPlayback(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecorder()
	rec.err = errors.New("db locked")
	e := start(t, newFakeAudio(), WithRecorder(rec, "me"))

	must(t, e.PlayTrack(ctx, trackA))
	waitPlay(t, rec, "a")

	s := state(t, e)
	if !s.IsPlaying || s.Error != "" {
		t.Errorf("recorder failure leaked into state: %+v", s)
	}
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	e := start(t, newFakeAudio())

	if s := state(t, e); s.Status() != core.StatusIdle {
		t.Fatalf("Status() = %v, want idle", s.Status())
	}

	enqueue(t, e, trackA, trackB)

	must(t, e.PlayTrack(ctx, trackA))
	s := state(t, e)
	if currentID(s) != "a" || !s.IsPlaying || s.Position != 0 {
		t.Fatalf("after PlayTrack(A) = {%q, %v, %v}", currentID(s), s.IsPlaying, s.Position)
	}

	must(t, e.Seek(ctx, 30*time.Second))
	if got := state(t, e).Position; got != 30*time.Second {
		t.Fatalf("after Seek(30) position = %v", got)
	}

	must(t, e.Next(ctx))
	s = state(t, e)
	if currentID(s) != "b" || !s.IsPlaying || s.Position != 0 {
		t.Fatalf("after Next = {%q, %v, %v}", currentID(s), s.IsPlaying, s.Position)
	}

	must(t, e.Previous(ctx))
	s = state(t, e)
	if currentID(s) != "a" || s.Position != 0 {
		t.Fatalf("after Previous = {%q, %v}, want {a, 0}", currentID(s), s.Position)
	}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	e := start(t, newFakeAudio())

	sub, cancel := e.Subscribe()
	select {
	case s := <-sub:
		if s.Track != nil {
			t.Errorf("primed state has track %v", s.Track)
		}
	case <-time.After(time.Second):
		t.Fatal("subscription was not primed")
	}

	must(t, e.SetVolume(ctx, 0.4))
	select {
	case s := <-sub:
		if s.Volume != 0.4 {
			t.Errorf("Volume = %v, want 0.4", s.Volume)
		}
	case <-time.After(time.Second):
		t.Fatal("no update after SetVolume")
	}

	cancel()
	if _, ok := <-sub; ok {
		t.Error("channel still open after cancel")
	}
	cancel()
}

func TestSubscribeDuringUpdatesEndsCurrent(t *testing.T) {
	ctx := context.Background()
	e := start(t, newFakeAudio())

	const last = 50
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= last; i++ {
			_ = e.SetVolume(ctx, float64(i)/100)
		}
	}()

	var subs []<-chan core.PlaybackState
	for i := 0; i < 20; i++ {
		sub, cancel := e.Subscribe()
		defer cancel()
		subs = append(subs, sub)
	}
	<-done

	want := float64(last) / 100
	for i, sub := range subs {
		var got core.PlaybackState
		select {
		case got = <-sub:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d received nothing", i)
		}
		if got.Volume != want {
			t.Errorf("subscriber %d Volume = %v, want %v", i, got.Volume, want)
		}
	}
}

func TestSlowSubscriberSeesLatest(t *testing.T) {
	ctx := context.Background()
	e := start(t, newFakeAudio())
	sub, cancel := e.Subscribe()
	defer cancel()

	for _, v := range []float64{0.1, 0.2, 0.3} {
		must(t, e.SetVolume(ctx, v))
	}

	got := <-sub
	if got.Volume != 0.3 {
		t.Errorf("Volume = %v, want 0.3", got.Volume)
	}
}

func TestCommandsAfterStop(t *testing.T) {
	audio := newFakeAudio()
	e := New(audio)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	sub, _ := e.Subscribe()
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}

	if err := e.PlayTrack(context.Background(), trackA); !errors.Is(err, vibeerrors.ErrEngineClosed) {
		t.Errorf("PlayTrack() = %v, want ErrEngineClosed", err)
	}
	if err := e.Run(context.Background()); !errors.Is(err, vibeerrors.ErrEngineRunning) {
		t.Errorf("second Run() = %v, want ErrEngineRunning", err)
	}

	for range sub {
	}
	audio.mu.Lock()
	defer audio.mu.Unlock()
	if !audio.closed {
		t.Error("audio output not closed")
	}
}

func TestIndependentEngines(t *testing.T) {
	ctx := context.Background()
	one := start(t, newFakeAudio())
	two := start(t, newFakeAudio())

	must(t, one.PlayTrack(ctx, trackA))
	if s := state(t, two); s.Track != nil {
		t.Errorf("second engine sees track %v", s.Track)
	}
}

func waitPlay(t *testing.T, rec *fakeRecorder, id string) {
	t.Helper()
	select {
	case tr := <-rec.plays:
		if tr.ID != id {
			t.Errorf("recorded %q, want %q", tr.ID, id)
		}
	case <-time.After(time.Second):
		t.Fatalf("no play recorded for %q", id)
	}
}

func expectNoPlay(t *testing.T, rec *fakeRecorder) {
	t.Helper()
	select {
	case tr := <-rec.plays:
		t.Errorf("unexpected play recorded for %q", tr.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitStarted(t *testing.T, c *fakeColors, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.started:
		case <-time.After(time.Second):
			t.Fatalf("only %d of %d derivations started", i, n)
		}
	}
}

func waitAmbient(t *testing.T, sub <-chan core.PlaybackState, want core.Color) {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case s := <-sub:
			if s.Ambient == want {
				return
			}
		case <-timeout:
			t.Fatalf("ambient never became %v", want)
		}
	}
}
