package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "github.com/louisbranch/pokeachieve/internal/platform/errors"
	platformgrpc "github.com/louisbranch/pokeachieve/internal/platform/grpc"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/engine"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/registry"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/retroarch"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/storage"
	journalsqlite "github.com/louisbranch/pokeachieve/internal/services/tracker/storage/sqlite"
)

const redStatus = "GET_STATUS PLAYING game_boy,Pokemon - Red Version (USA, Europe) (SGB Enhanced),crc32=9f7fdd53"

type collectSink struct {
	mu     sync.Mutex
	events []engine.UnlockEvent
}

func (s *collectSink) Unlocked(_ context.Context, event engine.UnlockEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *collectSink) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, event := range s.events {
		if event.AchievementID == id {
			return true
		}
	}
	return false
}

func (s *collectSink) Count(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, event := range s.events {
		if event.AchievementID == id {
			n++
		}
	}
	return n
}

// newTestRuntime builds a runtime whose callbacks are driven by hand.
func newTestRuntime(t *testing.T, fake *fakeEmulator, sink Sink) *Runtime {
	t.Helper()
	r := New(RuntimeConfig{Client: fake.ClientConfig(100 * time.Millisecond), Sink: sink})
	if err := r.client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(r.client.Disconnect)
	return r
}

func TestWatchTitleBuildsEngine(t *testing.T) {
	fake := startFakeEmulator(t)
	fake.SetStatus(redStatus)
	fake.Poke(0xD356, 0x01)
	sink := &collectSink{}
	r := newTestRuntime(t, fake, sink)
	ctx := context.Background()

	if err := r.watchTitle(ctx, r.client); err != nil {
		t.Fatalf("watch title: %v", err)
	}
	snap, ok := r.Snapshot()
	if !ok {
		t.Fatal("expected an active engine")
	}
	if snap.Title != registry.TitleRed {
		t.Fatalf("engine title = %q, want %q", snap.Title, registry.TitleRed)
	}
	session := snap.SessionID

	if err := r.checkAchievements(ctx, r.client); err != nil {
		t.Fatalf("check achievements: %v", err)
	}
	if err := r.checkAchievements(ctx, r.client); err != nil {
		t.Fatalf("check achievements: %v", err)
	}
	waitFor(t, "boulder badge unlock", func() bool { return sink.Has("pokemon_red_gym_1_brock") })

	// same title keeps the session
	if err := r.watchTitle(ctx, r.client); err != nil {
		t.Fatalf("watch title: %v", err)
	}
	if snap, _ := r.Snapshot(); snap.SessionID != session {
		t.Fatalf("session changed without a title change")
	}

	fake.SetStatus("GET_STATUS PLAYING game_boy_advance,Pokemon - Emerald Version (USA, Europe),crc32=1f1c08fb")
	if err := r.watchTitle(ctx, r.client); err != nil {
		t.Fatalf("watch title: %v", err)
	}
	snap, ok = r.Snapshot()
	if !ok || snap.Title != registry.TitleEmerald || snap.SessionID == session {
		t.Fatalf("snapshot after switch = %+v, %v", snap, ok)
	}

	r.retire()
	r.forwarders.Wait()
	if got := sink.Count("pokemon_red_gym_1_brock"); got != 1 {
		t.Fatalf("boulder unlocks = %d, want 1", got)
	}
}

func TestWatchTitleUnknownAndUnloaded(t *testing.T) {
	fake := startFakeEmulator(t)
	r := newTestRuntime(t, fake, &collectSink{})
	ctx := context.Background()

	fake.SetStatus("GET_STATUS PLAYING game_boy,Tetris (World),crc32=46df91ad")
	if err := r.watchTitle(ctx, r.client); err != nil {
		t.Fatalf("unknown title should not fail: %v", err)
	}
	if _, ok := r.Snapshot(); ok {
		t.Fatal("unknown title should have no engine")
	}
	if err := r.checkAchievements(ctx, r.client); err != nil {
		t.Fatalf("check without engine: %v", err)
	}

	fake.SetStatus(redStatus)
	if err := r.watchTitle(ctx, r.client); err != nil {
		t.Fatalf("watch title: %v", err)
	}
	if _, ok := r.Snapshot(); !ok {
		t.Fatal("expected engine for Pokemon Red")
	}

	fake.SetSilent(true)
	if err := r.watchTitle(ctx, r.client); err != nil {
		t.Fatalf("watch title: %v", err)
	}
	if _, ok := r.Snapshot(); !ok {
		t.Fatal("an unanswered status should keep the engine")
	}

	fake.SetSilent(false)
	fake.SetStatus("GET_STATUS CONTENTLESS")
	if err := r.watchTitle(ctx, r.client); err != nil {
		t.Fatalf("watch title: %v", err)
	}
	if _, ok := r.Snapshot(); ok {
		t.Fatal("unloading content should retire the engine")
	}
}

type configErrorProvider struct{}

func (configErrorProvider) Definitions(title string) ([]engine.Definition, error) {
	return nil, apperrors.WithMetadata(apperrors.CodeConfig, "no definitions", map[string]string{"title": title})
}

type brokenProvider struct{}

func (brokenProvider) Definitions(string) ([]engine.Definition, error) {
	return nil, errors.New("catalog unreadable")
}

func TestWatchTitleDefinitionErrors(t *testing.T) {
	fake := startFakeEmulator(t)
	fake.SetStatus(redStatus)
	ctx := context.Background()

	r := newTestRuntime(t, fake, &collectSink{})
	r.provider = configErrorProvider{}
	if err := r.watchTitle(ctx, r.client); err != nil {
		t.Fatalf("title without definitions should not fail: %v", err)
	}
	if _, ok := r.Snapshot(); ok {
		t.Fatal("title without definitions should have no engine")
	}

	r = newTestRuntime(t, fake, &collectSink{})
	r.provider = brokenProvider{}
	if err := r.watchTitle(ctx, r.client); err == nil {
		t.Fatal("expected an error from a broken provider")
	}
}

func TestWatchTitleChecksPlatform(t *testing.T) {
	fake := startFakeEmulator(t)
	fake.SetStatus("GET_STATUS PLAYING game_boy_advance,Pokemon Mystery Dungeon - Red Rescue Team (USA),crc32=ad4b3d3a")
	r := newTestRuntime(t, fake, &collectSink{})

	if err := r.watchTitle(context.Background(), r.client); err != nil {
		t.Fatalf("watch title: %v", err)
	}
	if snap, ok := r.Snapshot(); ok {
		t.Fatalf("spin-off resolved to %q", snap.Title)
	}
}

func TestWatchTitleReopensClosedSocket(t *testing.T) {
	fake := startFakeEmulator(t)
	fake.SetStatus(redStatus)
	r := newTestRuntime(t, fake, &collectSink{})
	r.client.Disconnect()

	if err := r.watchTitle(context.Background(), r.client); err != nil {
		t.Fatalf("watch title: %v", err)
	}
	if !r.client.Connected() {
		t.Fatal("expected the socket to be reopened")
	}
	if snap, ok := r.Snapshot(); !ok || snap.Title != registry.TitleRed {
		t.Fatalf("snapshot = %+v, %v, want %q", snap, ok, registry.TitleRed)
	}
}

func TestWatchTitleReportsFailedReopen(t *testing.T) {
	r := New(RuntimeConfig{Client: retroarch.Config{Host: "127.0.0.1", Port: 70000, Timeout: 50 * time.Millisecond}})
	err := r.watchTitle(context.Background(), r.client)
	if !apperrors.HasCode(err, apperrors.CodeTransport) {
		t.Fatalf("watchTitle() = %v, want a transport error", err)
	}
	if r.client.Connected() {
		t.Fatal("client should stay closed")
	}
}

func TestCheckAchievementsPausesWhileUnreachable(t *testing.T) {
	fake := startFakeEmulator(t)
	fake.SetStatus(redStatus)
	r := newTestRuntime(t, fake, &collectSink{})
	ctx := context.Background()
	if err := r.watchTitle(ctx, r.client); err != nil {
		t.Fatalf("watch title: %v", err)
	}

	fake.SetSilent(true)
	for i := 0; i < r.cfg.FailureThreshold; i++ {
		r.client.GetStatus(ctx)
	}
	before, _ := r.Snapshot()
	if err := r.checkAchievements(ctx, r.client); err != nil {
		t.Fatalf("check achievements: %v", err)
	}
	after, _ := r.Snapshot()
	if after.Passes != before.Passes {
		t.Fatalf("passes = %d, want %d while unreachable", after.Passes, before.Passes)
	}
	if !r.stalled {
		t.Fatal("expected stalled flag")
	}
}

func TestReconnectRestoresClient(t *testing.T) {
	fake := startFakeEmulator(t)
	r := New(RuntimeConfig{Client: fake.ClientConfig(50 * time.Millisecond), ReconnectTimeout: 2 * time.Second})
	if err := r.client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(r.client.Disconnect)

	if err := r.reconnect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if !r.client.Connected() || r.client.ConsecutiveFailures() != 0 {
		t.Fatalf("client after reconnect: connected=%v failures=%d", r.client.Connected(), r.client.ConsecutiveFailures())
	}

	fake.SetSilent(true)
	r.cfg.ReconnectTimeout = 200 * time.Millisecond
	if err := r.reconnect(context.Background()); err == nil {
		t.Fatal("expected reconnect to give up")
	}
}

func TestRunEndToEnd(t *testing.T) {
	fake := startFakeEmulator(t)
	fake.SetStatus(redStatus)
	fake.Poke(0xD356, 0x03)
	sink := &collectSink{}
	journalPath := filepath.Join(t.TempDir(), "journal.db")

	ctx, cancel := context.WithCancel(context.Background())
	r := New(RuntimeConfig{
		Client:           fake.ClientConfig(50 * time.Millisecond),
		PollInterval:     20 * time.Millisecond,
		JoinTimeout:      2 * time.Second,
		FailureThreshold: 3,
		ReconnectTimeout: 100 * time.Millisecond,
		HealthAddr:       "127.0.0.1:0",
		JournalPath:      journalPath,
		Sink:             sink,
	})
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	waitFor(t, "cascade badge unlock", func() bool { return sink.Has("pokemon_red_gym_2_misty") })
	var healthAddr string
	waitFor(t, "health server", func() bool {
		addr, ok := r.HealthAddr()
		healthAddr = addr
		return ok
	})

	conn, err := platformgrpc.DialWithHealth(ctx, healthAddr, HealthService, time.Second, nil)
	if err != nil {
		t.Fatalf("dial health: %v", err)
	}
	defer conn.Close()
	if serving, err := platformgrpc.CheckHealth(ctx, conn, HealthService); err != nil || !serving {
		t.Fatalf("CheckHealth() = %v, %v, want true", serving, err)
	}

	fake.SetSilent(true)
	waitFor(t, "health not serving", func() bool {
		serving, err := platformgrpc.CheckHealth(ctx, conn, HealthService)
		return err == nil && !serving
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	store, err := journalsqlite.Open(context.Background(), journalPath)
	if err != nil {
		t.Fatalf("reopen journal: %v", err)
	}
	defer store.Close()
	records, err := store.ListFailures(context.Background(), 10)
	if err != nil {
		t.Fatalf("list failures: %v", err)
	}
	found := false
	for _, record := range records {
		if record.Kind == storage.KindConnectivityLost {
			found = true
		}
	}
	if !found {
		t.Fatalf("journal = %+v, want a connectivity_lost record", records)
	}
}
