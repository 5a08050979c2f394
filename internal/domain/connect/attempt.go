package connect

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Attempt is the saved continuation of one in-flight authorization: the PKCE
// verifier plus the endpoints discovered before the redirect. The full-page
// navigation to the identity provider is a hard suspension point, so
// everything needed to finish the exchange must live here rather than in any
// per-request memory.
type Attempt struct {
	PatientID    string
	Verifier     string
	AuthorizeURL string
	TokenURL     string
	FHIRBaseURL  string
	CreatedAt    time.Time
}

// AttemptStore keeps at most one in-flight authorization attempt per
// patient. Beginning a new attempt overwrites the previous slot, which
// invalidates the prior verifier; taking an attempt consumes it, making the
// verifier single-use. Abandoned attempts expire with the TTL.
type AttemptStore struct {
	cache *ttlcache.Cache[string, *Attempt]
}

func NewAttemptStore(ttl time.Duration) *AttemptStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *Attempt](ttl),
		ttlcache.WithDisableTouchOnHit[string, *Attempt](),
	)
	go cache.Start()

	return &AttemptStore{cache: cache}
}

// Begin stores a new attempt for the patient, replacing any prior in-flight
// slot.
func (s *AttemptStore) Begin(a *Attempt) {
	a.CreatedAt = time.Now()
	s.cache.Set(a.PatientID, a, ttlcache.DefaultTTL)
}

// Peek returns the current attempt without consuming it, or nil.
func (s *AttemptStore) Peek(patientID string) *Attempt {
	item := s.cache.Get(patientID)
	if item == nil {
		return nil
	}
	return item.Value()
}

// Take consumes and returns the current attempt, or nil when no attempt is
// in flight (or it already expired).
func (s *AttemptStore) Take(patientID string) *Attempt {
	item := s.cache.Get(patientID)
	if item == nil {
		return nil
	}
	s.cache.Delete(patientID)
	return item.Value()
}

// Clear drops the patient's slot without returning it.
func (s *AttemptStore) Clear(patientID string) {
	s.cache.Delete(patientID)
}

// Close stops the expiration loop.
func (s *AttemptStore) Close() {
	s.cache.Stop()
}
