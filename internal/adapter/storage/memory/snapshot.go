package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"eagle-ledger/internal/core/domain"

	"github.com/google/uuid"
)

const snapshotVersion = 1

type snapshotUser struct {
	domain.User
	PasswordHash string `json:"password_hash"`
}

type snapshotTxn struct {
	domain.Transaction
	Seq int64 `json:"seq"`
}

type snapshot struct {
	Version      int               `json:"version"`
	SavedAt      time.Time         `json:"saved_at"`
	Seq          int64             `json:"seq"`
	Users        []snapshotUser    `json:"users"`
	Accounts     []domain.Account  `json:"accounts"`
	Transactions []snapshotTxn     `json:"transactions"`
	Audit        []domain.AuditLog `json:"audit"`
}

// SaveSnapshot writes the store to path as JSON. The file is written to a
// sibling .tmp first and renamed into place.
func (s *Store) SaveSnapshot(path string) error {
	s.mu.RLock()
	snap := snapshot{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC(),
		Seq:     s.seq,
		Audit:   append([]domain.AuditLog(nil), s.audit...),
	}
	for _, u := range s.users {
		snap.Users = append(snap.Users, snapshotUser{User: u, PasswordHash: u.PasswordHash})
	}
	for _, a := range s.accounts {
		snap.Accounts = append(snap.Accounts, a)
	}
	for _, rec := range s.txns {
		snap.Transactions = append(snap.Transactions, snapshotTxn{Transaction: rec.txn, Seq: rec.seq})
	}
	s.mu.RUnlock()

	sort.Slice(snap.Accounts, func(i, j int) bool { return snap.Accounts[i].AccountNumber < snap.Accounts[j].AccountNumber })
	sort.Slice(snap.Transactions, func(i, j int) bool { return snap.Transactions[i].Seq < snap.Transactions[j].Seq })

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadSnapshot replaces the store contents with the snapshot at path.
// A missing file leaves the store empty and is not an error.
func (s *Store) LoadSnapshot(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("snapshot version %d is not supported", snap.Version)
	}

	accounts := make(map[uuid.UUID]domain.Account, len(snap.Accounts))
	byNumber := make(map[string]uuid.UUID, len(snap.Accounts))
	txns := make(map[uuid.UUID]txnRecord, len(snap.Transactions))
	byAccount := make(map[uuid.UUID][]uuid.UUID)
	users := make(map[uuid.UUID]domain.User, len(snap.Users))
	byEmail := make(map[string]uuid.UUID, len(snap.Users))

	for _, su := range snap.Users {
		u := su.User
		u.PasswordHash = su.PasswordHash
		users[u.ID] = u
		byEmail[u.Email] = u.ID
	}
	for _, a := range snap.Accounts {
		accounts[a.ID] = a
		byNumber[a.AccountNumber] = a.ID
	}
	for _, st := range snap.Transactions {
		if _, ok := accounts[st.AccountID]; !ok {
			return fmt.Errorf("snapshot transaction %s references unknown account %s", st.ID, st.AccountID)
		}
		txns[st.ID] = txnRecord{txn: st.Transaction, seq: st.Seq}
		byAccount[st.AccountID] = append(byAccount[st.AccountID], st.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts, s.byNumber = accounts, byNumber
	s.txns, s.byAccount = txns, byAccount
	s.users, s.byEmail = users, byEmail
	s.audit = snap.Audit
	s.seq = snap.Seq
	return nil
}
