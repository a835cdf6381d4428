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
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/c2FmZQ/storage"
	"github.com/charmbracelet/log"
	"github.com/ttbt-io/scorebook/backend/ledger"
)

// GameStore persists game snapshots. Every save overwrites the whole record.
type GameStore struct {
	DataDir string
	Debug   bool
	storage *storage.Storage
	mu      sync.Map // *sync.RWMutex per game id
	flushMu sync.Map // *sync.Mutex per game id
	cache   sync.Map // latest JSON per game id

	dirtyMu sync.Mutex
	dirty   map[string]bool
}

// NewGameStore creates a new GameStore.
func NewGameStore(dataDir string, s *storage.Storage) *GameStore {
	return &GameStore{
		DataDir: dataDir,
		storage: s,
		dirty:   make(map[string]bool),
	}
}

func gameFilename(gameId string) string {
	return filepath.Join("games", fmt.Sprintf("%s.json", url.PathEscape(gameId)))
}

func (gs *GameStore) lock(gameId string) *sync.RWMutex {
	m, _ := gs.mu.LoadOrStore(gameId, &sync.RWMutex{})
	return m.(*sync.RWMutex)
}

// SaveGame writes the snapshot to disk and clears its dirty flag.
func (gs *GameStore) SaveGame(game *ledger.GameState) error {
	jsonBytes, err := json.Marshal(game)
	if err != nil {
		return err
	}
	fl := gs.flushLock(game.ID)
	fl.Lock()
	defer fl.Unlock()

	mutex := gs.lock(game.ID)
	mutex.Lock()
	defer mutex.Unlock()

	if err := gs.storage.SaveDataFile(gameFilename(game.ID), game); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	gs.cache.Store(game.ID, jsonBytes)

	gs.dirtyMu.Lock()
	delete(gs.dirty, game.ID)
	gs.dirtyMu.Unlock()
	return nil
}

// SaveGameInMemory updates the in-memory cache and marks the game as dirty.
// If forceSync is true, it writes to disk immediately (behaving like SaveGame).
func (gs *GameStore) SaveGameInMemory(game *ledger.GameState, forceSync bool) error {
	if forceSync {
		return gs.SaveGame(game)
	}
	jsonBytes, err := json.Marshal(game)
	if err != nil {
		return err
	}

	// The cache entry and the dirty flag change together.
	mutex := gs.lock(game.ID)
	mutex.Lock()
	defer mutex.Unlock()
	gs.cache.Store(game.ID, jsonBytes)
	gs.dirtyMu.Lock()
	gs.dirty[game.ID] = true
	gs.dirtyMu.Unlock()
	return nil
}

// IsDirty reports whether the cached snapshot of gameId is newer than disk.
func (gs *GameStore) IsDirty(gameId string) bool {
	gs.dirtyMu.Lock()
	defer gs.dirtyMu.Unlock()
	return gs.dirty[gameId]
}

// flushLock serializes disk writes of one game so an older snapshot never
// lands after a newer one.
func (gs *GameStore) flushLock(gameId string) *sync.Mutex {
	m, _ := gs.flushMu.LoadOrStore(gameId, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// Flush persists a specific game to disk if it is dirty. The cache may move
// on while the write is in flight; the game then stays dirty for the next
// flush.
func (gs *GameStore) Flush(gameId string) error {
	fl := gs.flushLock(gameId)
	fl.Lock()
	defer fl.Unlock()

	mutex := gs.lock(gameId)
	mutex.RLock()
	dirty := gs.IsDirty(gameId)
	val, ok := gs.cache.Load(gameId)
	mutex.RUnlock()
	if !dirty {
		return nil
	}
	if !ok {
		mutex.Lock()
		if _, ok := gs.cache.Load(gameId); !ok {
			gs.dirtyMu.Lock()
			delete(gs.dirty, gameId)
			gs.dirtyMu.Unlock()
		}
		mutex.Unlock()
		return fmt.Errorf("game %s marked dirty but not found in cache", gameId)
	}
	flushed := val.([]byte)

	var g ledger.GameState
	if err := json.Unmarshal(flushed, &g); err != nil {
		return fmt.Errorf("failed to unmarshal game from cache for flush: %w", err)
	}
	if err := gs.storage.SaveDataFile(gameFilename(gameId), &g); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}

	mutex.Lock()
	defer mutex.Unlock()
	if cur, ok := gs.cache.Load(gameId); ok && bytes.Equal(cur.([]byte), flushed) {
		gs.dirtyMu.Lock()
		delete(gs.dirty, gameId)
		gs.dirtyMu.Unlock()
	}
	return nil
}

// FlushAll persists all dirty games to disk.
func (gs *GameStore) FlushAll() error {
	gs.dirtyMu.Lock()
	dirtyIds := make([]string, 0, len(gs.dirty))
	for id := range gs.dirty {
		dirtyIds = append(dirtyIds, id)
	}
	gs.dirtyMu.Unlock()

	for _, id := range dirtyIds {
		if err := gs.Flush(id); err != nil {
			return fmt.Errorf("failed to flush game %s: %w", id, err)
		}
	}
	return nil
}

// LoadGame returns the stored snapshot, or os.ErrNotExist.
func (gs *GameStore) LoadGame(gameId string) (*ledger.GameState, error) {
	if val, ok := gs.cache.Load(gameId); ok {
		var g ledger.GameState
		if err := json.Unmarshal(val.([]byte), &g); err == nil {
			if gs.Debug {
				log.Debug("cache hit", "game", gameId)
			}
			g.Normalize()
			return &g, nil
		}
		gs.cache.Delete(gameId)
	}

	mutex := gs.lock(gameId)
	mutex.RLock()
	defer mutex.RUnlock()

	var g ledger.GameState
	if err := gs.storage.ReadDataFile(gameFilename(gameId), &g); err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	if g.SchemaVersion > ledger.SchemaVersion {
		return nil, fmt.Errorf("game %s has schema version %d, newer than supported %d", gameId, g.SchemaVersion, ledger.SchemaVersion)
	}
	g.Normalize()

	if jsonBytes, err := json.Marshal(&g); err == nil {
		gs.cache.LoadOrStore(gameId, jsonBytes)
	}
	return &g, nil
}

// DeleteGame removes the snapshot from the cache and from disk.
func (gs *GameStore) DeleteGame(gameId string) error {
	fl := gs.flushLock(gameId)
	fl.Lock()
	defer fl.Unlock()

	mutex := gs.lock(gameId)
	mutex.Lock()
	defer mutex.Unlock()

	gs.cache.Delete(gameId)
	gs.dirtyMu.Lock()
	delete(gs.dirty, gameId)
	gs.dirtyMu.Unlock()

	if err := os.Remove(filepath.Join(gs.DataDir, gameFilename(gameId))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete game file: %w", err)
	}
	return nil
}
