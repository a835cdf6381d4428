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
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/ttbt-io/scorebook/backend/ledger"
)

func TestRosterStore_PersistAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	masterKey, _ := crypto.CreateAESMasterKeyForTest()
	s := storage.New(tmpDir, masterKey)
	store := NewRosterStore(tmpDir, s, masterKey)

	if err := store.Upsert("Tigers", 7, "Alice"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert("Tigers", 3, "Bob"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	store.dirtyMu.Lock()
	if !store.dirty["Tigers"] {
		t.Error("Team should be marked dirty")
	}
	store.dirtyMu.Unlock()

	if err := store.Flush("Tigers"); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	hash := hex.EncodeToString(masterKey.Hash([]byte("Tigers")))
	expectedPath := filepath.Join(tmpDir, "rosters", hash+".json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Errorf("Expected persisted file at %s", expectedPath)
	}

	store.Invalidate("Tigers")
	if _, ok := store.cache.Get("Tigers"); ok {
		t.Error("Cache should be empty after invalidate")
	}

	name, err := store.Lookup("Tigers", 7)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if name != "Alice" {
		t.Errorf("Expected Alice, got %q", name)
	}

	list, err := store.ListByTeam("Tigers")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Number != 3 || list[1].Number != 7 {
		t.Errorf("Expected players sorted by number, got %+v", list)
	}
}

func TestRosterStore_NoMasterKey(t *testing.T) {
	tmpDir := t.TempDir()
	s := storage.New(tmpDir, nil)
	store := NewRosterStore(tmpDir, s, nil)

	if err := store.Upsert("Bears", 12, "Carol"); err != nil {
		t.Fatal(err)
	}
	if err := store.FlushAll(); err != nil {
		t.Fatalf("FlushAll failed: %v", err)
	}
	path := filepath.Join(tmpDir, store.getHashPath("Bears"))
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected persisted file at %s: %v", path, err)
	}
}

func TestRosterStore_LookupMissing(t *testing.T) {
	store := NewRosterStore(t.TempDir(), storage.New(t.TempDir(), nil), nil)
	if _, err := store.Lookup("Nobody", 1); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRosterStore_Validation(t *testing.T) {
	store := NewRosterStore(t.TempDir(), storage.New(t.TempDir(), nil), nil)
	tests := []struct {
		name   string
		team   string
		number int
		player string
	}{
		{"EmptyTeam", "", 1, "A"},
		{"EmptyName", "Tigers", 1, "  "},
		{"NegativeNumber", "Tigers", -1, "A"},
		{"NumberTooLarge", "Tigers", 100, "A"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := store.Upsert(tc.team, tc.number, tc.player); !errors.Is(err, ledger.ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestRosterStore_UpdateAndDelete(t *testing.T) {
	store := NewRosterStore(t.TempDir(), storage.New(t.TempDir(), nil), nil)
	store.Upsert("Tigers", 1, "Alice")
	store.Upsert("Tigers", 2, "Bob")

	t.Run("Rename", func(t *testing.T) {
		if err := store.Update("Tigers", 1, "Alicia", 1); err != nil {
			t.Fatal(err)
		}
		if name, _ := store.Lookup("Tigers", 1); name != "Alicia" {
			t.Errorf("Expected Alicia, got %q", name)
		}
	})

	t.Run("RenumberConflict", func(t *testing.T) {
		if err := store.Update("Tigers", 1, "Alicia", 2); !errors.Is(err, ledger.ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}
		if name, _ := store.Lookup("Tigers", 2); name != "Bob" {
			t.Errorf("Conflict should leave #2 untouched, got %q", name)
		}
	})

	t.Run("Renumber", func(t *testing.T) {
		if err := store.Update("Tigers", 1, "Alicia", 11); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Lookup("Tigers", 1); !errors.Is(err, ledger.ErrNotFound) {
			t.Errorf("Old number should be gone, got %v", err)
		}
		if name, _ := store.Lookup("Tigers", 11); name != "Alicia" {
			t.Errorf("Expected Alicia at 11, got %q", name)
		}
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		if err := store.Update("Tigers", 42, "X", 43); !errors.Is(err, ledger.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete("Tigers", 2); err != nil {
			t.Fatal(err)
		}
		if err := store.Delete("Tigers", 2); !errors.Is(err, ledger.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestRosterStore_EvictionPersists(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewRosterStore(tmpDir, storage.New(tmpDir, nil), nil)
	store.Upsert("Tigers", 5, "Eve")

	// Removing from the LRU runs the eviction callback.
	store.cache.Remove("Tigers")

	path := filepath.Join(tmpDir, store.getHashPath("Tigers"))
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Evicted dirty roster should be on disk: %v", err)
	}
	if name, err := store.Lookup("Tigers", 5); err != nil || name != "Eve" {
		t.Errorf("Expected Eve after reload, got %q, %v", name, err)
	}
}

func TestRosterStore_FailedFlushStaysDirty(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewRosterStore(tmpDir, storage.New(tmpDir, nil), nil)
	if err := store.Upsert("Tigers", 7, "Alice"); err != nil {
		t.Fatal(err)
	}

	// A plain file where the rosters directory should be makes every write fail.
	blocker := filepath.Join(tmpDir, "rosters")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := store.FlushAll(); err == nil {
		t.Fatal("FlushAll should fail while the rosters directory is blocked")
	}
	store.dirtyMu.Lock()
	dirty := store.dirty["Tigers"]
	store.dirtyMu.Unlock()
	if !dirty {
		t.Fatal("Team should stay dirty after a failed flush")
	}

	if err := os.Remove(blocker); err != nil {
		t.Fatal(err)
	}
	if err := store.FlushAll(); err != nil {
		t.Fatalf("FlushAll failed: %v", err)
	}
	reloaded := NewRosterStore(tmpDir, storage.New(tmpDir, nil), nil)
	if name, err := reloaded.Lookup("Tigers", 7); err != nil || name != "Alice" {
		t.Errorf("Expected Alice on disk, got %q, %v", name, err)
	}
}
