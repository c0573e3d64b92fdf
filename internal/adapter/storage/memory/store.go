// Package memory is an in-process implementation of the storage ports.
// Row locks are per-account semaphores held until the owning Tx ends;
// writes are staged on the Tx and become visible together at Commit.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"eagle-ledger/internal/core/domain"
	"eagle-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DefaultLockTimeout bounds how long a Tx waits for an account lock.
const DefaultLockTimeout = 5 * time.Second

type txnRecord struct {
	txn domain.Transaction
	seq int64
}

// Store holds every collection behind one RWMutex.
type Store struct {
	mu        sync.RWMutex
	accounts  map[uuid.UUID]domain.Account
	byNumber  map[string]uuid.UUID
	txns      map[uuid.UUID]txnRecord
	byAccount map[uuid.UUID][]uuid.UUID
	users     map[uuid.UUID]domain.User
	byEmail   map[string]uuid.UUID
	audit     []domain.AuditLog
	seq       int64

	locksMu     sync.Mutex
	locks       map[string]*rowLock
	lockTimeout time.Duration
}

// rowLock is a one-slot semaphore. refs counts the holder plus waiters;
// the entry is dropped from Store.locks when it reaches zero.
type rowLock struct {
	ch   chan struct{}
	refs int
}

// NewStore creates an empty store. A zero lockTimeout uses DefaultLockTimeout.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{
		accounts:    make(map[uuid.UUID]domain.Account),
		byNumber:    make(map[string]uuid.UUID),
		txns:        make(map[uuid.UUID]txnRecord),
		byAccount:   make(map[uuid.UUID][]uuid.UUID),
		users:       make(map[uuid.UUID]domain.User),
		byEmail:     make(map[string]uuid.UUID),
		locks:       make(map[string]*rowLock),
		lockTimeout: lockTimeout,
	}
}

// Begin implements ports.DBTransactor.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.ErrUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	return newTx(s), nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(context.Context) error { return nil }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

func (s *Store) lockFor(accountNumber string) *rowLock {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[accountNumber]
	if !ok {
		l = &rowLock{ch: make(chan struct{}, 1)}
		s.locks[accountNumber] = l
	}
	l.refs++
	return l
}

func (s *Store) unref(accountNumber string, l *rowLock) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, accountNumber)
	}
}

// acquire waits for the account lock, giving up at the lock timeout or when ctx ends.
func (s *Store) acquire(ctx context.Context, accountNumber string) (*rowLock, error) {
	l := s.lockFor(accountNumber)
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case l.ch <- struct{}{}:
		return l, nil
	case <-ctx.Done():
		s.unref(accountNumber, l)
		return nil, apperror.ErrUnavailable(fmt.Errorf("lock account %s: %w", accountNumber, ctx.Err()))
	case <-timer.C:
		s.unref(accountNumber, l)
		return nil, apperror.ErrUnavailable(fmt.Errorf("lock account %s: timed out after %s", accountNumber, s.lockTimeout))
	}
}

// releaseLock frees a lock taken by acquire.
func (s *Store) releaseLock(accountNumber string, l *rowLock) {
	<-l.ch
	s.unref(accountNumber, l)
}

func (s *Store) lockEntries() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}
