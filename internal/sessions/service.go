package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"contract-analyzer/internal/analyses"
	"contract-analyzer/internal/llm"
	"contract-analyzer/internal/shared/telemetry"
)

const defaultTTL = 24 * time.Hour

// Options configures a Service.
type Options struct {
	// TTL is the inactivity expiry of a session.
	TTL              time.Duration
	MaxDocumentChars int
	Now              func() time.Time
}

// Service manages many isolated sessions over a Repo. Operations on the same
// session are serialized; different sessions never share state.
type Service struct {
	Repo     Repo
	Analyzer Analyzer
	Chat     llm.Client

	ttl              time.Duration
	maxDocumentChars int
	now              func() time.Time
	locks            sessionLocks
}

// NewService constructs a Service.
func NewService(repo Repo, analyzer Analyzer, chat llm.Client, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		Repo:             repo,
		Analyzer:         analyzer,
		Chat:             chat,
		ttl:              opts.TTL,
		maxDocumentChars: opts.MaxDocumentChars,
		now:              opts.Now,
	}
}

// Create starts an empty session.
func (s *Service) Create(ctx context.Context) (Session, error) {
	now := s.now().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.Repo.Create(ctx, sess); err != nil {
		return Session{}, err
	}
	telemetry.Info("session.created", map[string]any{
		"session_id": sess.ID,
		"expires_at": sess.ExpiresAt,
	})
	return sess, nil
}

// Get returns a live session.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	unlock := s.locks.lock(id)
	defer unlock()
	return s.load(ctx, id)
}

// Delete ends a session and removes its state.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	unlock := s.locks.lock(id)
	defer unlock()
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	telemetry.Info("session.deleted", map[string]any{"session_id": id})
	return nil
}

// SetDocument replaces the session's document and drops its record.
func (s *Service) SetDocument(ctx context.Context, id, text string) (Session, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, orch, err := s.open(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if err := orch.SetDocument(text); err != nil {
		return Session{}, err
	}
	sess, err = s.save(ctx, sess, orch)
	if err != nil {
		return Session{}, err
	}
	telemetry.Info("session.document", map[string]any{
		"session_id": id,
		"chars":      len([]rune(text)),
	})
	return sess, nil
}

// Analyze runs the analysis for the session's document and stores the record.
func (s *Service) Analyze(ctx context.Context, id string) (analyses.Record, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, orch, err := s.open(ctx, id)
	if err != nil {
		return analyses.Record{}, err
	}
	record, err := orch.Analyze(ctx)
	if err != nil {
		return analyses.Record{}, err
	}
	if _, err := s.save(ctx, sess, orch); err != nil {
		return analyses.Record{}, err
	}
	return record, nil
}

// Ask answers a question about the session's analyzed document.
func (s *Service) Ask(ctx context.Context, id, question string) (string, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, orch, err := s.open(ctx, id)
	if err != nil {
		return "", err
	}
	answer, err := orch.Ask(ctx, question)
	if err != nil {
		return "", err
	}
	if _, err := s.save(ctx, sess, orch); err != nil {
		return "", err
	}
	return answer, nil
}

// PurgeExpired removes every expired session and returns how many were removed.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	removed, err := s.Repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		telemetry.Info("session.purged", map[string]any{"removed": removed})
	}
	return removed, nil
}

// RunJanitor purges expired sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PurgeExpired(ctx); err != nil && !errors.Is(err, context.Canceled) {
				telemetry.Error("session.purge_failed", map[string]any{"error": err})
			}
		}
	}
}

// load must be called with the session lock held.
func (s *Service) load(ctx context.Context, id string) (Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Session{}, ErrNotFound
	}
	sess, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if sess.Expired(s.now()) {
		if err := s.Repo.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			return Session{}, err
		}
		telemetry.Info("session.expired", map[string]any{"session_id": id})
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *Service) open(ctx context.Context, id string) (Session, *Orchestrator, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return Session{}, nil, err
	}
	orch := NewOrchestrator(s.Analyzer, s.Chat, s.maxDocumentChars)
	orch.restore(sess.Document, sess.Record)
	return sess, orch, nil
}

func (s *Service) save(ctx context.Context, sess Session, orch *Orchestrator) (Session, error) {
	now := s.now().UTC()
	sess.Document = orch.Document()
	sess.Record = nil
	if record, ok := orch.Record(); ok {
		sess.Record = &record
	}
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(s.ttl)
	if err := s.Repo.Update(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// sessionLocks hands out one mutex per session id, dropping it when unused.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*refLock)
	}
	entry, ok := l.locks[id]
	if !ok {
		entry = &refLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
