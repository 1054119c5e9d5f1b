// Package session orchestrates a single conversation with the travel
// assistant: it accepts user input, invokes the completion client, classifies
// the reply, and on confirmation writes a trip record through the trip store.
//
// A session is a small state machine. Submit appends the user message
// synchronously, so for every turn the user message precedes the assistant
// message or failure notice. At most one completion call is in flight per
// session; further submissions are rejected with ErrBusy until the current
// one resolves.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/traveltogether/planner/internal/assistant"
	"github.com/traveltogether/planner/internal/credentials"
	"github.com/traveltogether/planner/internal/itinerary"
	"github.com/traveltogether/planner/internal/trips"
)

// Greeting is the assistant message every session opens with.
const Greeting = "Hi there! I'm your AI travel assistant. How can I help you plan your next adventure?"

// ApologyMessage substitutes a response when the user declines to provide an
// API key. The provider is never called on that turn.
const ApologyMessage = "I need an API key to function. Please provide your OpenAI API key to continue."

// InvalidKeyNotice is surfaced when the provider rejects the stored key.
const InvalidKeyNotice = "Invalid API key. Please try again with a valid key."

// PlaceholderLocation marks a trip saved from chat before the user has
// filled in real destinations.
const PlaceholderLocation = "To be planned"

// Submission errors. Both leave the session unchanged.
var (
	ErrEmptyMessage = errors.New("session: empty submission")
	ErrBusy         = errors.New("session: a completion request is already in flight")
	ErrClosed       = errors.New("session: closed")
)

// State is the session's position in a turn.
type State int

const (
	// StateIdle accepts submissions.
	StateIdle State = iota
	// StateAwaitingResponse has a completion call in flight.
	StateAwaitingResponse
	// StateResponseReady has the latest assistant reply appended; it accepts
	// submissions like StateIdle and is the only state Confirm acts in.
	StateResponseReady
)

// Message is one chat bubble. Messages live only as long as the session and
// are never persisted.
type Message struct {
	ID     int
	Text   string
	IsUser bool
}

// Completer is the completion-client seam. Satisfied by *assistant.Client
// and assistant.Canned.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Notifier receives user-visible notices. Failures are surfaced here, never
// thrown across the presentation boundary.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Opts holds the session's injected collaborators.
type Opts struct {
	Assistant   Completer
	Credentials *credentials.Store
	Trips       *trips.Store

	// RequestCredential is invoked when no API key is stored. Returning
	// ok=false means the user declined; the turn substitutes ApologyMessage.
	// A nil callback behaves as an immediate decline.
	RequestCredential func() (key string, ok bool)

	Notifier Notifier         // optional
	Navigate func()           // optional; fired after a confirmed trip is saved
	Now      func() time.Time // defaults to time.Now; override in tests
}

// Session is a single conversation. All exported methods are safe for
// concurrent use; the embedding presentation layer typically calls Submit
// from its own goroutine.
type Session struct {
	client   Completer
	creds    *credentials.Store
	trips    *trips.Store
	request  func() (string, bool)
	notifier Notifier
	navigate func()
	now      func() time.Time

	mu         sync.Mutex
	state      State
	closed     bool
	messages   []Message
	nextID     int
	pending    string
	hasPending bool
}

// New creates a Session. It opens with the assistant greeting.
func New(opts Opts) (*Session, error) {
	if opts.Assistant == nil {
		return nil, fmt.Errorf("session: assistant is required")
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("session: credential store is required")
	}
	if opts.Trips == nil {
		return nil, fmt.Errorf("session: trip store is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Session{
		client:   opts.Assistant,
		creds:    opts.Credentials,
		trips:    opts.Trips,
		request:  opts.RequestCredential,
		notifier: opts.Notifier,
		navigate: opts.Navigate,
		now:      now,
		nextID:   1,
	}
	s.append(Greeting, false)
	return s, nil
}

// Submit sends text as the user's next turn and blocks until the assistant
// reply (or failure) has been applied. Empty or whitespace-only text returns
// ErrEmptyMessage without any transition. While a turn is in flight further
// submissions return ErrBusy, which keeps the session to one completion call
// at a time.
func (s *Session) Submit(ctx context.Context, text string) error {
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state == StateAwaitingResponse {
		s.mu.Unlock()
		return ErrBusy
	}
	s.pending = ""
	s.hasPending = false
	s.append(text, true)
	s.state = StateAwaitingResponse
	s.mu.Unlock()

	// Resolve the credential before touching the provider. The prompt may
	// block on a user decision, so it runs outside the session lock.
	if _, ok := s.creds.Get(); !ok {
		key, granted := s.promptForCredential()
		if !granted {
			s.applyReply(ApologyMessage)
			return nil
		}
		if err := s.creds.Set(key); err != nil {
			log.Printf("session: save api key: %v", err)
		}
	}

	reply, err := s.client.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, assistant.ErrMissingCredential) {
			// The key vanished between the check and the call; same outcome
			// as a declined prompt.
			s.applyReply(ApologyMessage)
			return nil
		}
		s.applyFailure(err)
		return err
	}
	s.applyReply(reply)
	return nil
}

func (s *Session) promptForCredential() (string, bool) {
	if s.request == nil {
		return "", false
	}
	key, ok := s.request()
	if !ok || strings.TrimSpace(key) == "" {
		return "", false
	}
	return key, true
}

// applyReply appends the assistant message, classifies it, and moves to
// StateResponseReady. A reply arriving after Close is discarded untouched.
func (s *Session) applyReply(reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		log.Printf("session: discarding completion for closed session")
		return
	}
	s.append(reply, false)
	if itinerary.LooksLikeItinerary(reply) {
		s.pending = reply
		s.hasPending = true
	}
	s.state = StateResponseReady
}

// applyFailure abandons the turn: no assistant message is appended, the
// session returns to StateIdle, and the failure is surfaced as a notice.
func (s *Session) applyFailure(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = StateIdle
	s.mu.Unlock()

	switch {
	case errors.Is(err, assistant.ErrInvalidCredential):
		s.notifyError(InvalidKeyNotice)
	default:
		var perr *assistant.ProviderError
		if errors.As(err, &perr) {
			s.notifyError(perr.Message)
		} else {
			s.notifyError("Failed to get a response. Please try again.")
		}
	}
}

// Confirm saves the pending itinerary as a trip record and signals
// navigation to the trips view. With nothing pending it is a no-op: no
// record is created and no signal fires.
func (s *Session) Confirm() (saved bool, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if !s.hasPending {
		s.mu.Unlock()
		return false, nil
	}
	text := s.pending
	s.mu.Unlock()

	now := s.now()
	rec := trips.TripRecord{
		Title:     "Trip planned on " + now.Format("Jan 2"),
		Dates:     now.Format("Jan 2, 2006"),
		Locations: []string{PlaceholderLocation},
		Itinerary: text,
		Status:    trips.StatusUpcoming,
	}
	if err := s.trips.Append(rec); err != nil {
		// The itinerary stays pending so the user can confirm again.
		s.notifyError("Could not save the trip. Please try again.")
		return false, err
	}

	s.mu.Lock()
	if s.pending == text {
		s.pending = ""
		s.hasPending = false
		s.state = StateIdle
	}
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.Success("Trip saved! Check your trips view.")
	}
	if s.navigate != nil {
		s.navigate()
	}
	return true, nil
}

// Close detaches the session. A completion that resolves afterwards is
// discarded without mutating session state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.pending = ""
	s.hasPending = false
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// HasPendingItinerary reports whether a confirmation affordance should show.
func (s *Session) HasPendingItinerary() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasPending
}

// PendingItinerary returns the candidate itinerary text, if any.
func (s *Session) PendingItinerary() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.hasPending
}

// append adds a message under the session lock. Callers hold s.mu, except
// New, which owns the session exclusively.
func (s *Session) append(text string, isUser bool) {
	s.messages = append(s.messages, Message{ID: s.nextID, Text: text, IsUser: isUser})
	s.nextID++
}

func (s *Session) notifyError(msg string) {
	if s.notifier != nil {
		s.notifier.Error(msg)
	}
}
