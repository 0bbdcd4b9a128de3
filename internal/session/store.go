package session

import (
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"pdf-extractor/internal/helper"
	"pdf-extractor/internal/models"
)

var ErrNotFound = errors.New("session not found")

// State is everything one browser session holds. It is created on the
// first request, replaced after each action and dropped when the session
// ends or expires.
type State struct {
	ID         string
	Document   *models.Document
	Pages      []models.PageImage
	RenderErr  string
	Extraction *models.Extraction
	History    []models.ChatMessage
	Created    time.Time
	Updated    time.Time
}

// HasDocument reports whether a PDF has been uploaded.
func (s *State) HasDocument() bool {
	return s != nil && !s.Document.Empty()
}

// Append returns a copy of the state with msgs added to the history. The
// receiver's history slice is never written to.
func (s State) Append(msgs ...models.ChatMessage) State {
	history := make([]models.ChatMessage, 0, len(s.History)+len(msgs))
	history = append(history, s.History...)
	s.History = append(history, msgs...)
	return s
}

// Store keeps session states in memory with a sliding TTL. Actions on the
// same session are serialized through Lock.
type Store struct {
	cache *cache.Cache
	ttl   time.Duration

	// stateMu orders TTL refreshes against saves.
	stateMu sync.Mutex

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(ttl, cleanupInterval time.Duration) *Store {
	s := &Store{
		cache: cache.New(ttl, cleanupInterval),
		ttl:   ttl,
		locks: make(map[string]*sync.Mutex),
	}
	s.cache.OnEvicted(func(id string, _ interface{}) {
		s.mu.Lock()
		delete(s.locks, id)
		s.mu.Unlock()
		log.Debug().Str("session", id).Msg("Session ended")
	})
	return s
}

// Create starts a new empty session.
func (s *Store) Create() (State, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return State{}, err
	}
	now := time.Now()
	st := State{ID: id, Created: now, Updated: now}
	s.stateMu.Lock()
	s.cache.Set(id, st, s.ttl)
	s.stateMu.Unlock()
	log.Debug().Str("session", id).Msg("Session started")
	return st, nil
}

// Get returns the session and refreshes its expiry.
func (s *Store) Get(id string) (State, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	v, ok := s.cache.Get(id)
	if !ok {
		return State{}, ErrNotFound
	}
	st := v.(State)
	s.cache.Set(id, st, s.ttl)
	return st, nil
}

// GetOrCreate returns the session for id or starts a new one when id is
// empty or unknown.
func (s *Store) GetOrCreate(id string) (State, error) {
	if id != "" {
		if st, err := s.Get(id); err == nil {
			return st, nil
		}
	}
	return s.Create()
}

func (s *Store) Save(st State) {
	st.Updated = time.Now()
	s.stateMu.Lock()
	s.cache.Set(st.ID, st, s.ttl)
	s.stateMu.Unlock()
}

// End removes the session and its state.
func (s *Store) End(id string) {
	s.stateMu.Lock()
	s.cache.Delete(id)
	s.stateMu.Unlock()

	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
}

func (s *Store) Count() int {
	return s.cache.ItemCount()
}

// Lock serializes actions on one session. The returned func unlocks.
func (s *Store) Lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
