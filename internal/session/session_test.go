package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/traveltogether/planner/internal/assistant"
	"github.com/traveltogether/planner/internal/credentials"
	"github.com/traveltogether/planner/internal/kv"
	"github.com/traveltogether/planner/internal/trips"
)

// mockCompleter is a function-field test double for the Completer seam.
type mockCompleter struct {
	complete func(ctx context.Context, prompt string) (string, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	m.mu.Unlock()
	if m.complete == nil {
		return "ok", nil
	}
	return m.complete(ctx, prompt)
}

func (m *mockCompleter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// recordingNotifier collects notices.
type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) lastError() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.errors) == 0 {
		return ""
	}
	return n.errors[len(n.errors)-1]
}

type fixture struct {
	session   *Session
	completer *mockCompleter
	notifier  *recordingNotifier
	creds     *credentials.Store
	trips     *trips.Store
	navigated *int
}

func newFixture(t *testing.T, mutate func(*Opts)) *fixture {
	t.Helper()
	m := kv.NewMemory()
	creds, err := credentials.New(m)
	if err != nil {
		t.Fatalf("credentials.New: %v", err)
	}
	if err := creds.Set("sk-test"); err != nil {
		t.Fatalf("seed key: %v", err)
	}
	store, err := trips.NewStore(trips.StoreOpts{KV: m})
	if err != nil {
		t.Fatalf("trips.NewStore: %v", err)
	}

	completer := &mockCompleter{}
	notifier := &recordingNotifier{}
	navigated := 0
	opts := Opts{
		Assistant:   completer,
		Credentials: creds,
		Trips:       store,
		Notifier:    notifier,
		Navigate:    func() { navigated++ },
		Now:         func() time.Time { return time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC) },
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{
		session:   s,
		completer: completer,
		notifier:  notifier,
		creds:     creds,
		trips:     store,
		navigated: &navigated,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Opts{}); err == nil {
		t.Fatal("expected error for missing assistant")
	}
}

func TestNew_OpensWithGreeting(t *testing.T) {
	f := newFixture(t, nil)
	msgs := f.session.Messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want the greeting only", len(msgs))
	}
	if msgs[0].ID != 1 || msgs[0].IsUser || msgs[0].Text != Greeting {
		t.Errorf("greeting = %+v", msgs[0])
	}
	if f.session.State() != StateIdle {
		t.Errorf("state = %v, want StateIdle", f.session.State())
	}
}

func TestSubmit_EmptyIsNoOp(t *testing.T) {
	f := newFixture(t, nil)
	for _, text := range []string{"", "   ", "\n\t"} {
		if err := f.session.Submit(context.Background(), text); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Submit(%q) = %v, want ErrEmptyMessage", text, err)
		}
	}
	if got := len(f.session.Messages()); got != 1 {
		t.Errorf("messages = %d, want 1 (no state transition)", got)
	}
	if f.completer.callCount() != 0 {
		t.Error("provider was called for an empty submission")
	}
}

func TestSubmit_AppendsUserThenAssistant(t *testing.T) {
	f := newFixture(t, nil)
	// The user message must be visible before the completion resolves.
	f.completer.complete = func(ctx context.Context, prompt string) (string, error) {
		msgs := f.session.Messages()
		last := msgs[len(msgs)-1]
		if !last.IsUser || last.Text != "Where to in June?" {
			t.Errorf("user message not appended before completion: %+v", last)
		}
		return "Try Lisbon.", nil
	}

	if err := f.session.Submit(context.Background(), "Where to in June?"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	msgs := f.session.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want greeting + user + assistant", len(msgs))
	}
	if !msgs[1].IsUser || msgs[1].Text != "Where to in June?" {
		t.Errorf("messages[1] = %+v, want the user turn", msgs[1])
	}
	if msgs[2].IsUser || msgs[2].Text != "Try Lisbon." {
		t.Errorf("messages[2] = %+v, want the assistant turn", msgs[2])
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].ID != msgs[i-1].ID+1 {
			t.Errorf("message IDs not monotonic: %d then %d", msgs[i-1].ID, msgs[i].ID)
		}
	}
	if f.session.State() != StateResponseReady {
		t.Errorf("state = %v, want StateResponseReady", f.session.State())
	}
}

func TestSubmit_ItineraryScenario(t *testing.T) {
	f := newFixture(t, nil)
	reply := "Here's a 3-day Tokyo itinerary. Day 1: Asakusa. Day 2: Shibuya. Day 3: day trip to Nikko."
	f.completer.complete = func(ctx context.Context, prompt string) (string, error) {
		return reply, nil
	}

	if err := f.session.Submit(context.Background(), "Suggest a 3-day Tokyo itinerary"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !f.session.HasPendingItinerary() {
		t.Fatal("classification-positive reply did not set the pending itinerary")
	}

	saved, err := f.session.Confirm()
	if err != nil || !saved {
		t.Fatalf("Confirm = (%v, %v), want (true, nil)", saved, err)
	}

	recs, err := f.trips.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	last := recs[len(recs)-1]
	if last.Status != trips.StatusUpcoming {
		t.Errorf("status = %q, want upcoming", last.Status)
	}
	if last.Itinerary != reply {
		t.Errorf("itinerary = %q, want the verbatim assistant text", last.Itinerary)
	}
	if len(last.Locations) != 1 || last.Locations[0] != PlaceholderLocation {
		t.Errorf("locations = %v, want the single placeholder", last.Locations)
	}
	if !strings.Contains(last.Title, "Oct 1") || last.Dates != "Oct 1, 2025" {
		t.Errorf("title/dates = %q / %q, want derived from the confirmation clock", last.Title, last.Dates)
	}
	if *f.navigated != 1 {
		t.Errorf("navigate fired %d times, want 1", *f.navigated)
	}
	if f.session.HasPendingItinerary() {
		t.Error("pending itinerary not cleared after confirmation")
	}
}

func TestSubmit_NegativeReplyClearsPending(t *testing.T) {
	f := newFixture(t, nil)
	f.completer.complete = func(ctx context.Context, prompt string) (string, error) {
		return "Your itinerary: Day 1 Tokyo, Day 2 Kyoto.", nil
	}
	if err := f.session.Submit(context.Background(), "plan tokyo"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !f.session.HasPendingItinerary() {
		t.Fatal("expected pending itinerary")
	}

	f.completer.complete = func(ctx context.Context, prompt string) (string, error) {
		return "Pack light and bring an umbrella.", nil
	}
	if err := f.session.Submit(context.Background(), "what should I pack?"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if f.session.HasPendingItinerary() {
		t.Error("pending itinerary survived a classification-negative turn")
	}
}

func TestSubmit_AtMostOneInFlight(t *testing.T) {
	f := newFixture(t, nil)
	release := make(chan struct{})
	f.completer.complete = func(ctx context.Context, prompt string) (string, error) {
		<-release
		return "done", nil
	}

	errc := make(chan error, 1)
	go func() { errc <- f.session.Submit(context.Background(), "first") }()
	waitFor(t, func() bool { return f.session.State() == StateAwaitingResponse })

	if err := f.session.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Submit = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-errc; err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if f.completer.callCount() != 1 {
		t.Errorf("provider called %d times, want 1", f.completer.callCount())
	}

	// The session is submittable again once the turn resolved.
	if err := f.session.Submit(context.Background(), "third"); err != nil {
		t.Errorf("Submit after resolution: %v", err)
	}
}

func TestSubmit_ProviderFailureAbandonsTurn(t *testing.T) {
	f := newFixture(t, nil)
	f.completer.complete = func(ctx context.Context, prompt string) (string, error) {
		return "", &assistant.ProviderError{Message: "Rate limit reached"}
	}

	err := f.session.Submit(context.Background(), "hello")
	var perr *assistant.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Submit = %v, want the provider error", err)
	}

	msgs := f.session.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want greeting + user only (no assistant message)", len(msgs))
	}
	if f.session.State() != StateIdle {
		t.Errorf("state = %v, want StateIdle (resubmittable)", f.session.State())
	}
	if got := f.notifier.lastError(); got != "Rate limit reached" {
		t.Errorf("notice = %q, want the provider message", got)
	}

	// Retry works.
	f.completer.complete = nil
	if err := f.session.Submit(context.Background(), "hello again"); err != nil {
		t.Errorf("resubmit after failure: %v", err)
	}
}

func TestSubmit_InvalidCredentialNotice(t *testing.T) {
	f := newFixture(t, nil)
	f.completer.complete = func(ctx context.Context, prompt string) (string, error) {
		// Mirror the real client: the key is cleared before the error returns.
		if err := f.creds.Clear(); err != nil {
			t.Fatalf("clear: %v", err)
		}
		return "", assistant.ErrInvalidCredential
	}

	if err := f.session.Submit(context.Background(), "hi"); !errors.Is(err, assistant.ErrInvalidCredential) {
		t.Fatalf("Submit = %v, want ErrInvalidCredential", err)
	}
	if got := f.notifier.lastError(); got != InvalidKeyNotice {
		t.Errorf("notice = %q, want %q", got, InvalidKeyNotice)
	}
	if _, ok := f.creds.Get(); ok {
		t.Error("credential still present; next attempt would not re-prompt")
	}
}

func TestSubmit_MissingKeyDeclinedSubstitutesApology(t *testing.T) {
	f := newFixture(t, func(o *Opts) {
		o.RequestCredential = func() (string, bool) { return "", false }
	})
	if err := f.creds.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if err := f.session.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	msgs := f.session.Messages()
	last := msgs[len(msgs)-1]
	if last.IsUser || last.Text != ApologyMessage {
		t.Errorf("last message = %+v, want the apology", last)
	}
	if f.completer.callCount() != 0 {
		t.Error("provider was called despite the declined prompt")
	}
}

func TestSubmit_MissingKeyNilCallbackDeclines(t *testing.T) {
	f := newFixture(t, func(o *Opts) { o.RequestCredential = nil })
	if err := f.creds.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := f.session.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if f.completer.callCount() != 0 {
		t.Error("provider was called with no way to obtain a key")
	}
}

func TestSubmit_MissingKeyGrantedSavesAndProceeds(t *testing.T) {
	f := newFixture(t, func(o *Opts) {
		o.RequestCredential = func() (string, bool) { return "sk-granted", true }
	})
	if err := f.creds.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if err := f.session.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if key, ok := f.creds.Get(); !ok || key != "sk-granted" {
		t.Errorf("credential = (%q, %v), want the granted key saved", key, ok)
	}
	if f.completer.callCount() != 1 {
		t.Errorf("provider called %d times, want 1", f.completer.callCount())
	}
}

func TestConfirm_WithoutPendingIsNoOp(t *testing.T) {
	f := newFixture(t, nil)
	before, _ := f.trips.LoadAll()

	saved, err := f.session.Confirm()
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if saved {
		t.Error("Confirm without pending reported a save")
	}
	after, _ := f.trips.LoadAll()
	if len(after) != len(before) {
		t.Errorf("collection grew from %d to %d on a no-op confirm", len(before), len(after))
	}
	if *f.navigated != 0 {
		t.Error("navigate fired on a no-op confirm")
	}
}

func TestConfirm_SecondCallIsNoOp(t *testing.T) {
	f := newFixture(t, nil)
	f.completer.complete = func(ctx context.Context, prompt string) (string, error) {
		return "Day 1 plan: arrive.", nil
	}
	if err := f.session.Submit(context.Background(), "plan it"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if saved, err := f.session.Confirm(); err != nil || !saved {
		t.Fatalf("first Confirm = (%v, %v)", saved, err)
	}
	countAfterFirst := len(mustLoad(t, f.trips))

	if saved, err := f.session.Confirm(); err != nil || saved {
		t.Fatalf("second Confirm = (%v, %v), want (false, nil)", saved, err)
	}
	if got := len(mustLoad(t, f.trips)); got != countAfterFirst {
		t.Errorf("second confirm changed the collection: %d -> %d", countAfterFirst, got)
	}
}

func TestConfirm_AppendFailureKeepsPending(t *testing.T) {
	m := &flakyKV{Memory: kv.NewMemory()}
	creds, _ := credentials.New(m)
	creds.Set("sk-test")
	store, _ := trips.NewStore(trips.StoreOpts{KV: m})
	notifier := &recordingNotifier{}
	completer := &mockCompleter{complete: func(ctx context.Context, prompt string) (string, error) {
		return "Day 1 plan: go.", nil
	}}
	s, err := New(Opts{Assistant: completer, Credentials: creds, Trips: store, Notifier: notifier})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Submit(context.Background(), "plan"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	m.failWrites = true
	if saved, err := s.Confirm(); err == nil || saved {
		t.Fatalf("Confirm with failing storage = (%v, %v), want an error", saved, err)
	}
	if !s.HasPendingItinerary() {
		t.Error("pending itinerary lost on a failed save")
	}

	m.failWrites = false
	if saved, err := s.Confirm(); err != nil || !saved {
		t.Errorf("retry Confirm = (%v, %v), want success", saved, err)
	}
}

func TestClose_DiscardsLateCompletion(t *testing.T) {
	f := newFixture(t, nil)
	release := make(chan struct{})
	f.completer.complete = func(ctx context.Context, prompt string) (string, error) {
		<-release
		return "Day 1 itinerary: too late.", nil
	}

	errc := make(chan error, 1)
	go func() { errc <- f.session.Submit(context.Background(), "plan") }()
	waitFor(t, func() bool { return f.session.State() == StateAwaitingResponse })

	countBefore := len(f.session.Messages())
	f.session.Close()
	close(release)
	<-errc

	if got := len(f.session.Messages()); got != countBefore {
		t.Errorf("late completion mutated a closed session: %d -> %d messages", countBefore, got)
	}
	if f.session.HasPendingItinerary() {
		t.Error("late completion set a pending itinerary on a closed session")
	}
	if err := f.session.Submit(context.Background(), "again"); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit on closed session = %v, want ErrClosed", err)
	}
}

func mustLoad(t *testing.T, s *trips.Store) []trips.TripRecord {
	t.Helper()
	recs, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	return recs
}

// flakyKV wraps a Memory store and can be switched to fail writes.
type flakyKV struct {
	*kv.Memory
	failWrites bool
}

func (f *flakyKV) Set(key, value string) error {
	if f.failWrites {
		return fmt.Errorf("storage offline")
	}
	return f.Memory.Set(key, value)
}
