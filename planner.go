// Package planner is the conversational-itinerary pipeline behind the
// TravelTogether assistant: it turns free-form completion-API responses into
// confirmable, durably stored trip records and keeps the collection
// consistent across the trip-list and calendar views.
//
// The package is a library with no CLI or server role. A presentation layer
// opens a Planner, creates a Session per conversation, and reads projections
// of the trip collection. Implementation lives under internal/; the exported
// aliases below are the full public surface.
package planner

import (
	"fmt"
	"time"

	"github.com/traveltogether/planner/internal/assistant"
	"github.com/traveltogether/planner/internal/config"
	"github.com/traveltogether/planner/internal/credentials"
	"github.com/traveltogether/planner/internal/kv"
	"github.com/traveltogether/planner/internal/session"
	"github.com/traveltogether/planner/internal/trips"
)

// Re-exported pipeline types.
type (
	Config     = config.Config
	Session    = session.Session
	Message    = session.Message
	State      = session.State
	Notifier   = session.Notifier
	Completer  = session.Completer
	TripRecord = trips.TripRecord
	Status     = trips.Status
)

// Session states.
const (
	StateIdle             = session.StateIdle
	StateAwaitingResponse = session.StateAwaitingResponse
	StateResponseReady    = session.StateResponseReady
)

// Trip statuses.
const (
	StatusUpcoming = trips.StatusUpcoming
	StatusPast     = trips.StatusPast
	StatusDraft    = trips.StatusDraft
)

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// Planner owns the pipeline's shared state: the durable medium, the
// credential store, the trip store, and the completion client. Sessions are
// created per conversation; the Planner outlives them.
type Planner struct {
	cfg    *config.Config
	creds  *credentials.Store
	trips  *trips.Store
	client *assistant.Client
}

// Open builds a Planner over a sqlite-backed durable store at the configured
// path. A nil cfg uses defaults.
func Open(cfg *Config) (*Planner, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	store, err := kv.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("planner: open storage: %w", err)
	}
	return OpenWith(cfg, store)
}

// OpenWith builds a Planner over a caller-supplied durable medium: any
// store satisfying the two-method Get/Set contract.
func OpenWith(cfg *Config, store kv.Store) (*Planner, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if store == nil {
		return nil, fmt.Errorf("planner: durable store is required")
	}
	creds, err := credentials.New(store)
	if err != nil {
		return nil, fmt.Errorf("planner: credentials: %w", err)
	}
	tripStore, err := trips.NewStore(trips.StoreOpts{KV: store})
	if err != nil {
		return nil, fmt.Errorf("planner: trips: %w", err)
	}
	client, err := assistant.NewClient(assistant.ClientOpts{
		Credentials: creds,
		Model:       cfg.Assistant.Model,
		Persona:     cfg.Assistant.Persona,
		MaxTokens:   cfg.Assistant.MaxTokens,
		Temperature: cfg.Assistant.Temperature,
		BaseURL:     cfg.Assistant.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("planner: assistant: %w", err)
	}
	return &Planner{cfg: cfg, creds: creds, trips: tripStore, client: client}, nil
}

// OpenEphemeral builds a Planner with no durability at all.
func OpenEphemeral(cfg *Config) (*Planner, error) {
	return OpenWith(cfg, kv.NewMemory())
}

// Hooks are the presentation-layer callbacks wired into a new session.
type Hooks struct {
	// RequestCredential is called when a turn starts with no stored API key.
	// Return ok=false to decline; the turn substitutes a fixed apology.
	RequestCredential func() (key string, ok bool)
	// Notifier receives user-visible success and failure notices (toasts).
	Notifier Notifier
	// Navigate fires after a confirmed itinerary has been saved.
	Navigate func()
	// Assistant overrides the completion client, e.g. assistant.Canned for
	// keyless operation or a stub in tests. Nil uses the configured client.
	Assistant Completer
	// Now overrides the clock used for confirmation timestamps.
	Now func() time.Time
}

// NewSession starts a conversation.
func (p *Planner) NewSession(hooks Hooks) (*Session, error) {
	completer := hooks.Assistant
	if completer == nil {
		completer = p.client
	}
	return session.New(session.Opts{
		Assistant:         completer,
		Credentials:       p.creds,
		Trips:             p.trips,
		RequestCredential: hooks.RequestCredential,
		Notifier:          hooks.Notifier,
		Navigate:          hooks.Navigate,
		Now:               hooks.Now,
	})
}

// NewOfflineSession starts a conversation against the canned keyword
// responder; no API key is needed and the provider is never contacted.
func (p *Planner) NewOfflineSession(hooks Hooks) (*Session, error) {
	hooks.Assistant = assistant.Canned{}
	return p.NewSession(hooks)
}

// SetAPIKey stores the completion-API credential.
func (p *Planner) SetAPIKey(key string) error { return p.creds.Set(key) }

// HasAPIKey reports whether a credential is stored.
func (p *Planner) HasAPIKey() bool {
	_, ok := p.creds.Get()
	return ok
}

// Trips returns the full collection, seeded with defaults when empty.
func (p *Planner) Trips() ([]TripRecord, error) { return p.trips.LoadAll() }

// TripsByStatus partitions the collection for the trip-list tabs.
func (p *Planner) TripsByStatus() (map[Status][]TripRecord, error) {
	recs, err := p.trips.LoadAll()
	if err != nil {
		return nil, err
	}
	return trips.ByStatus(recs), nil
}

// TripsOnDay returns the trips the calendar attributes to a day. Attribution
// is a substring match on the day's month abbreviation against the
// free-form dates text, approximate on purpose.
func (p *Planner) TripsOnDay(day time.Time) ([]TripRecord, error) {
	recs, err := p.trips.LoadAll()
	if err != nil {
		return nil, err
	}
	return trips.OnDay(recs, day), nil
}
