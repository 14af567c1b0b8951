package scanner_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/desertthunder/hitqr/internal/catalog"
	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/playback"
	"github.com/desertthunder/hitqr/internal/scanner"
	"github.com/desertthunder/hitqr/internal/session"
	"github.com/desertthunder/hitqr/internal/shared"
	tu "github.com/desertthunder/hitqr/internal/testing"
)

const deckCSV = `Card#,Title,Artist,Year,SpotifyURL
7,Song,Artist,1999,https://open.spotify.com/track/abc123
8,No Link,Nobody,2001,
`

func collect(t *testing.T, ch <-chan string) []string {
	t.Helper()
	var out []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case raw, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, raw)
		case <-timeout:
			t.Fatalf("decodes channel never closed, got %v", out)
		}
	}
}

func TestLineSource(t *testing.T) {
	t.Run("One Decode Per Line", func(t *testing.T) {
		src := scanner.NewLineSource(strings.NewReader("first\n\n  second  \n"), nil)
		if err := src.Start(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := collect(t, src.Decodes())
		if len(got) != 2 || got[0] != "first" || got[1] != "second" {
			t.Errorf("unexpected decodes %q", got)
		}

		if err := src.Start(context.Background()); !errors.Is(err, shared.ErrScannerClosed) {
			t.Errorf("expected ErrScannerClosed after EOF, got %v", err)
		}
	})

	t.Run("Start Twice", func(t *testing.T) {
		src := scanner.NewLineSource(strings.NewReader(""), nil)
		src.Start(context.Background())
		defer src.Cancel()

		err := src.Start(context.Background())
		if !errors.Is(err, shared.ErrScannerRunning) && !errors.Is(err, shared.ErrScannerClosed) {
			t.Errorf("expected second start to be refused, got %v", err)
		}
	})
}

func TestFeedSource(t *testing.T) {
	t.Run("Push Before Start Is Discarded", func(t *testing.T) {
		src := scanner.NewFeedSource(4)
		if src.Push("early") {
			t.Error("push without a run should be discarded")
		}
	})

	t.Run("Delivers While Running", func(t *testing.T) {
		src := scanner.NewFeedSource(4)
		src.Start(context.Background())

		if !src.Push("hello") {
			t.Fatal("expected push to be accepted")
		}
		select {
		case got := <-src.Decodes():
			if got != "hello" {
				t.Errorf("expected hello, got %q", got)
			}
		case <-time.After(time.Second):
			t.Fatal("decode never arrived")
		}
		src.Cancel()
	})

	t.Run("Cancel Discards Undelivered", func(t *testing.T) {
		src := scanner.NewFeedSource(4)
		src.Start(context.Background())
		src.Push("one")
		src.Push("two")

		src.Cancel()
		if got := collect(t, src.Decodes()); len(got) != 0 {
			t.Errorf("expected undelivered decodes to be discarded, got %q", got)
		}
		if src.Push("three") {
			t.Error("push after cancel should be discarded")
		}
	})

	t.Run("Restartable", func(t *testing.T) {
		src := scanner.NewFeedSource(4)
		src.Start(context.Background())
		src.Cancel()

		if err := src.Start(context.Background()); err != nil {
			t.Fatalf("restart failed: %v", err)
		}
		src.Push("again")
		if got := <-src.Decodes(); got != "again" {
			t.Errorf("expected again, got %q", got)
		}
		src.Cancel()
	})

	t.Run("Context Ends Run", func(t *testing.T) {
		src := scanner.NewFeedSource(4)
		ctx, cancel := context.WithCancel(context.Background())
		src.Start(ctx)
		cancel()

		collect(t, src.Decodes())
		tu.Eventually(t, time.Second, func() bool { return !src.Running() }, "run still active")
	})

	t.Run("Empty Push", func(t *testing.T) {
		src := scanner.NewFeedSource(4)
		src.Start(context.Background())
		defer src.Cancel()
		if src.Push("   ") {
			t.Error("blank decode should be dropped")
		}
	})
}

type bridgeFixture struct {
	player   *tu.FakePlayer
	notifier *tu.RecordingNotifier
	clock    *tu.FakeClock
	session  *session.Session
	bridge   *scanner.Bridge
}

func newBridgeFixture(t *testing.T, devices ...models.Device) *bridgeFixture {
	t.Helper()
	return newBridgeFixtureWith(t, catalog.NewResolver(catalog.NewDirFetcher(fstest.MapFS{
		"hitster-de.csv": &fstest.MapFile{Data: []byte(deckCSV)},
	}, ""), nil), devices...)
}

func newBridgeFixtureWith(t *testing.T, resolver scanner.Resolver, devices ...models.Device) *bridgeFixture {
	t.Helper()
	f := &bridgeFixture{
		player:   tu.NewFakePlayer(devices...),
		notifier: &tu.RecordingNotifier{},
		clock:    &tu.FakeClock{},
	}
	f.session = session.New(f.player, session.Options{Notifier: f.notifier, AfterFunc: f.clock.AfterFunc})
	f.session.LoadDevices(context.Background())

	ctrl := playback.New(f.session, f.player, playback.Options{Rand: rand.New(rand.NewPCG(1, 1))})

	f.bridge = scanner.NewBridge(resolver, ctrl, func() playback.StartPolicy {
		return playback.StartPolicy{Mode: playback.ModeCustom, CustomSeconds: 15}
	}, f.notifier, nil)
	return f
}

var speaker = models.Device{ID: "speaker", Name: "Speaker", IsActive: true}

func TestBridgeRun(t *testing.T) {
	f := newBridgeFixture(t, speaker)
	src := scanner.NewFeedSource(8)

	done := make(chan error, 1)
	go func() { done <- f.bridge.Run(context.Background(), src) }()
	tu.Eventually(t, time.Second, src.Running, "bridge never started the source")

	src.Push("WIFI:S:guest;T:WPA;P:secret;;")
	src.Push("https://www.hitstergame.com/de/00007")

	tu.Eventually(t, time.Second, func() bool { return len(f.player.Calls("PlayTrack")) == 1 }, "card was never played")
	src.Cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	call := f.player.Calls("PlayTrack")[0]
	if call.URI != "spotify:track:abc123" || call.OffsetMs != 15_000 {
		t.Errorf("unexpected play call %+v", call)
	}
	if !f.bridge.ReplayEnabled() {
		t.Error("expected replay to be enabled")
	}
	if n := len(f.notifier.Notifications(session.LevelError)) + len(f.notifier.Notifications(session.LevelWarn)); n != 0 {
		t.Errorf("unrecognized decode must not notify, got %d problems", n)
	}
	infos := f.notifier.Notifications(session.LevelInfo)
	if len(infos) != 1 || infos[0].Message != "Playing card 7" {
		t.Errorf("unexpected info notifications %+v", infos)
	}
}

// gatedResolver holds lookups of one deck until release is closed.
type gatedResolver struct {
	inner   scanner.Resolver
	deck    string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedResolver) Resolve(ctx context.Context, ref *models.CardReference) (*models.CatalogEntry, error) {
	if ref.DeckID == g.deck {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.inner.Resolve(ctx, ref)
}

func TestBridgeRunLatestScanWins(t *testing.T) {
	resolver := &gatedResolver{
		inner: catalog.NewResolver(catalog.NewDirFetcher(fstest.MapFS{
			"hitster-slow.csv": &fstest.MapFile{Data: []byte("Card#,Title,Artist,Year,SpotifyURL\n1,Slow,A,1980,https://open.spotify.com/track/slow\n")},
			"hitster-fast.csv": &fstest.MapFile{Data: []byte("Card#,Title,Artist,Year,SpotifyURL\n2,Fast,B,1990,https://open.spotify.com/track/fast\n")},
		}, ""), nil),
		deck:    "slow",
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	f := newBridgeFixtureWith(t, resolver, speaker)
	src := scanner.NewFeedSource(8)

	done := make(chan error, 1)
	go func() { done <- f.bridge.Run(context.Background(), src) }()
	tu.Eventually(t, time.Second, src.Running, "bridge never started the source")

	src.Push("https://www.hitstergame.com/slow/1")
	select {
	case <-resolver.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("slow lookup never started")
	}
	src.Push("https://www.hitstergame.com/fast/2")
	tu.Eventually(t, time.Second, func() bool { return len(f.player.Calls("PlayTrack")) == 1 }, "fast card was never played")

	close(resolver.release)
	src.Cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	calls := f.player.Calls("PlayTrack")
	if len(calls) != 1 || calls[0].URI != "spotify:track:fast" {
		t.Errorf("expected only the later scan to play, got %+v", calls)
	}
	if song, _ := f.session.Song(); song == nil || song.ID != "2" {
		t.Errorf("expected the later card to stay loaded, got %+v", song)
	}
	if n := len(f.clock.Pending()); n != 1 || !f.session.IsPlaying() {
		t.Errorf("expected the later card to keep playing with its stop armed, pending=%d", n)
	}
	if n := len(f.notifier.Notifications(session.LevelError)) + len(f.notifier.Notifications(session.LevelWarn)); n != 0 {
		t.Errorf("a dropped scan must not be reported, got %d problems", n)
	}
	infos := f.notifier.Notifications(session.LevelInfo)
	if len(infos) != 1 || infos[0].Message != "Playing card 2" {
		t.Errorf("unexpected info notifications %+v", infos)
	}
}

func TestBridgeHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("Unrecognized", func(t *testing.T) {
		f := newBridgeFixture(t, speaker)
		if err := f.bridge.Handle(ctx, "hello world"); err != nil {
			t.Errorf("expected unrecognized input to be ignored, got %v", err)
		}
		if len(f.notifier.Notifications(-1)) != 0 {
			t.Error("expected no notifications")
		}
	})

	t.Run("Card Not Found", func(t *testing.T) {
		f := newBridgeFixture(t, speaker)
		err := f.bridge.Handle(ctx, "https://www.hitstergame.com/de/00099")
		if !errors.Is(err, shared.ErrCardNotFound) {
			t.Errorf("expected ErrCardNotFound, got %v", err)
		}
		warns := f.notifier.Notifications(session.LevelWarn)
		if len(warns) != 1 || warns[0].Message != "This card is not in the catalog" {
			t.Errorf("unexpected warnings %+v", warns)
		}
		if f.bridge.ReplayEnabled() {
			t.Error("replay must stay disabled")
		}
	})

	t.Run("Unknown Deck", func(t *testing.T) {
		f := newBridgeFixture(t, speaker)
		err := f.bridge.Handle(ctx, "https://www.hitstergame.com/fr/00007")
		if !errors.Is(err, shared.ErrCatalogFetch) {
			t.Errorf("expected ErrCatalogFetch, got %v", err)
		}
		if len(f.notifier.Notifications(session.LevelError)) != 1 {
			t.Error("expected an error notification")
		}
	})

	t.Run("No Playable Link", func(t *testing.T) {
		f := newBridgeFixture(t, speaker)
		if err := f.bridge.Handle(ctx, "www.hitstergame.com/de/8"); !errors.Is(err, shared.ErrNoPlayableLink) {
			t.Errorf("expected ErrNoPlayableLink, got %v", err)
		}
	})

	t.Run("No Device", func(t *testing.T) {
		f := newBridgeFixture(t)
		err := f.bridge.Handle(ctx, "https://www.hitstergame.com/de/7")
		if !errors.Is(err, shared.ErrNoDeviceSelected) {
			t.Errorf("expected ErrNoDeviceSelected, got %v", err)
		}
		if f.session.IsPlaying() {
			t.Error("nothing should be playing")
		}
	})

	t.Run("Unauthorized Is Reported Once", func(t *testing.T) {
		f := newBridgeFixture(t, speaker)
		f.player.SetPlayErr(shared.ErrUnauthorized)

		f.bridge.Handle(ctx, "https://www.hitstergame.com/de/7")
		if n := len(f.notifier.Notifications(-1)); n != 1 {
			t.Errorf("expected only the logout notification, got %d", n)
		}
		if f.session.Alive() {
			t.Error("expected session to be torn down")
		}
	})
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{shared.ErrCatalogFetch, "Could not load the catalog for this deck"},
		{shared.ErrNoDeviceSelected, "Select a playback device first"},
		{shared.ErrEmptyPlaylist, "The playlist has no playable tracks"},
		{errors.New("boom"), "Something went wrong"},
	}
	for _, tt := range tests {
		if got := scanner.Describe(tt.err); got != tt.want {
			t.Errorf("Describe(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
