// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ttbt-io/scorebook/backend/ledger"
)

// RosterEntry is one remembered player of a team.
type RosterEntry struct {
	TeamName string `json:"teamName"`
	Number   int    `json:"number"`
	Name     string `json:"name"`
}

// teamRoster is the file stored for one team name.
type teamRoster struct {
	TeamName    string         `json:"teamName"`
	Players     map[int]string `json:"players"` // number -> name
	LastUpdated int64          `json:"lastUpdated"`
}

// RosterStore remembers {team name, number} -> name across games. Each team
// is one file at a hashed path, fronted by an LRU cache that writes dirty
// entries back on eviction.
type RosterStore struct {
	DataDir   string
	storage   *storage.Storage
	masterKey crypto.MasterKey

	cache *lru.Cache[string, *teamRoster]

	opMu    sync.Mutex // serializes read-modify-write of cached rosters
	dirtyMu sync.Mutex
	dirty   map[string]bool
	mu      sync.Map // *sync.Mutex per path
}

// NewRosterStore creates a roster memory store.
func NewRosterStore(dataDir string, s *storage.Storage, mk crypto.MasterKey) *RosterStore {
	store := &RosterStore{
		DataDir:   dataDir,
		storage:   s,
		masterKey: mk,
		dirty:     make(map[string]bool),
	}
	onEvict := func(key string, value *teamRoster) {
		store.dirtyMu.Lock()
		isDirty := store.dirty[key]
		delete(store.dirty, key)
		store.dirtyMu.Unlock()

		if isDirty {
			if err := store.persist(value); err != nil {
				log.Error("roster memory write on eviction failed", "team", key, "err", err)
			}
		}
	}
	store.cache, _ = lru.NewWithEvict[string, *teamRoster](256, onEvict)
	return store
}

// getHashPath keeps team names out of file names.
func (s *RosterStore) getHashPath(teamName string) string {
	var hash string
	if s.masterKey != nil {
		hash = hex.EncodeToString(s.masterKey.Hash([]byte(teamName)))
	} else {
		h := sha256.Sum256([]byte(teamName))
		hash = hex.EncodeToString(h[:])
	}
	return filepath.Join("rosters", fmt.Sprintf("%s.json", hash))
}

func (s *RosterStore) pathLock(path string) *sync.Mutex {
	m, _ := s.mu.LoadOrStore(path, &sync.Mutex{})
	return m.(*sync.Mutex)
}

func (s *RosterStore) persist(r *teamRoster) error {
	path := s.getHashPath(r.TeamName)
	mutex := s.pathLock(path)
	mutex.Lock()
	defer mutex.Unlock()
	if err := s.storage.SaveDataFile(path, r); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	return nil
}

func (s *RosterStore) loadFromDisk(teamName string) (*teamRoster, error) {
	path := s.getHashPath(teamName)
	mutex := s.pathLock(path)
	mutex.Lock()
	defer mutex.Unlock()

	var r teamRoster
	if err := s.storage.ReadDataFile(path, &r); err != nil {
		return nil, err
	}
	if r.Players == nil {
		r.Players = make(map[int]string)
	}
	return &r, nil
}

// get returns the cached roster of teamName, loading it on a miss.
// Callers hold opMu.
func (s *RosterStore) get(teamName string) (*teamRoster, error) {
	if r, ok := s.cache.Get(teamName); ok {
		return r, nil
	}
	r, err := s.loadFromDisk(teamName)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %w", ledger.ErrPersistence, err)
		}
		r = &teamRoster{TeamName: teamName, Players: make(map[int]string)}
	}
	s.cache.Add(teamName, r)
	return r, nil
}

func (s *RosterStore) markDirty(r *teamRoster) {
	r.LastUpdated = time.Now().UnixNano()
	s.dirtyMu.Lock()
	s.dirty[r.TeamName] = true
	s.dirtyMu.Unlock()
}

func validateRosterEntry(teamName string, number int, name string) error {
	if strings.TrimSpace(teamName) == "" {
		return fmt.Errorf("%w: team name is required", ledger.ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: player name is required", ledger.ErrValidation)
	}
	if number < 0 || number > 99 {
		return fmt.Errorf("%w: number %d is outside 0-99", ledger.ErrValidation, number)
	}
	return nil
}

// Upsert remembers name under (teamName, number).
func (s *RosterStore) Upsert(teamName string, number int, name string) error {
	if err := validateRosterEntry(teamName, number, name); err != nil {
		return err
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	r, err := s.get(teamName)
	if err != nil {
		return err
	}
	r.Players[number] = strings.TrimSpace(name)
	s.markDirty(r)
	return nil
}

// Lookup returns the remembered name of (teamName, number).
func (s *RosterStore) Lookup(teamName string, number int) (string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	r, err := s.get(teamName)
	if err != nil {
		return "", err
	}
	name, ok := r.Players[number]
	if !ok {
		return "", fmt.Errorf("%w: no remembered player #%d for %s", ledger.ErrNotFound, number, teamName)
	}
	return name, nil
}

// ListByTeam returns the remembered players of teamName ordered by number.
func (s *RosterStore) ListByTeam(teamName string) ([]RosterEntry, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	r, err := s.get(teamName)
	if err != nil {
		return nil, err
	}
	out := make([]RosterEntry, 0, len(r.Players))
	for number, name := range r.Players {
		out = append(out, RosterEntry{TeamName: teamName, Number: number, Name: name})
	}
	slices.SortFunc(out, func(a, b RosterEntry) int {
		return cmp.Compare(a.Number, b.Number)
	})
	return out, nil
}

// Update renames and optionally renumbers a remembered player. Moving to a
// number that is already remembered fails with a conflict.
func (s *RosterStore) Update(teamName string, oldNumber int, name string, newNumber int) error {
	if err := validateRosterEntry(teamName, newNumber, name); err != nil {
		return err
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	r, err := s.get(teamName)
	if err != nil {
		return err
	}
	if _, ok := r.Players[oldNumber]; !ok {
		return fmt.Errorf("%w: no remembered player #%d for %s", ledger.ErrNotFound, oldNumber, teamName)
	}
	if newNumber != oldNumber {
		if other, ok := r.Players[newNumber]; ok {
			return fmt.Errorf("%w: number %d is already remembered for %s", ledger.ErrConflict, newNumber, other)
		}
		delete(r.Players, oldNumber)
	}
	r.Players[newNumber] = strings.TrimSpace(name)
	s.markDirty(r)
	return nil
}

// Delete forgets (teamName, number).
func (s *RosterStore) Delete(teamName string, number int) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	r, err := s.get(teamName)
	if err != nil {
		return err
	}
	if _, ok := r.Players[number]; !ok {
		return fmt.Errorf("%w: no remembered player #%d for %s", ledger.ErrNotFound, number, teamName)
	}
	delete(r.Players, number)
	s.markDirty(r)
	return nil
}

// Flush writes the roster of teamName to disk if it is dirty.
func (s *RosterStore) Flush(teamName string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.flushLocked(teamName)
}

func (s *RosterStore) flushLocked(teamName string) error {
	s.dirtyMu.Lock()
	if !s.dirty[teamName] {
		s.dirtyMu.Unlock()
		return nil
	}
	r, ok := s.cache.Peek(teamName)
	if !ok {
		// Evicted entries were written by the eviction callback.
		delete(s.dirty, teamName)
		s.dirtyMu.Unlock()
		return nil
	}
	s.dirtyMu.Unlock()

	// Writers hold opMu too, so r cannot change until the write is done.
	if err := s.persist(r); err != nil {
		return err
	}
	s.dirtyMu.Lock()
	delete(s.dirty, teamName)
	s.dirtyMu.Unlock()
	return nil
}

// FlushAll writes every dirty roster to disk. A roster that fails to write
// stays dirty.
func (s *RosterStore) FlushAll() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.dirtyMu.Lock()
	names := make([]string, 0, len(s.dirty))
	for name := range s.dirty {
		names = append(names, name)
	}
	s.dirtyMu.Unlock()

	var errs []error
	for _, name := range names {
		if err := s.flushLocked(name); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush roster %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Invalidate drops teamName from the cache without writing it.
func (s *RosterStore) Invalidate(teamName string) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.dirtyMu.Lock()
	delete(s.dirty, teamName)
	s.dirtyMu.Unlock()
	s.cache.Remove(teamName)
}
