// Package registry maintains the in-memory contract registry: the map
// from a contract's content hash to its compiled template, source and
// metadata, mirrored to and reloaded from the basics.contracts table.
package registry

import (
	"sync"

	"github.com/Coinversable/validana-core/foundation/blockchain/validator"
)

// ReservedCreateHash and ReservedDeleteHash are the two hashes bound to
// built-in handlers; neither can ever be a real contract's hash.
var (
	ReservedCreateHash [32]byte // all zeros
	ReservedDeleteHash = allOnes()
)

func allOnes() [32]byte {
	var h [32]byte
	for i := range h {
		h[i] = 0xFF
	}
	return h
}

// IsReserved reports whether hash is one of the two built-in hashes.
func IsReserved(hash [32]byte) bool {
	return hash == ReservedCreateHash || hash == ReservedDeleteHash
}

// Entry is one compiled contract's registry record.
type Entry struct {
	ContractHash    [32]byte
	ContractType    string
	ContractVersion string
	Description     string
	Creator         string
	Template        validator.Template
	Code            []byte
	ValidanaVersion int
}

// Registry is the process-wide map of installed contracts. It is
// mutated by the create/delete handlers while their SQL transaction is
// still open (before it commits), and wholesale by Reload after a
// failed block commit.
type Registry struct {
	mu      sync.RWMutex
	entries map[[32]byte]Entry
	loader  Loader
}

// Loader reads every contract row currently stored in basics.contracts.
// It is implemented by Store (store.go), the DB-backed loader, and by
// fakes in tests.
type Loader interface {
	LoadAll() ([]Entry, error)
}

// New constructs a Registry and performs the initial load from loader.
func New(loader Loader) (*Registry, error) {
	r := &Registry{
		entries: make(map[[32]byte]Entry),
		loader:  loader,
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload discards the in-memory map and rebuilds it from the loader.
// Callers must invoke this after a block whose commit failed, per
// spec §4.5, since a failed commit may have left a provisional
// create/delete mutation applied in memory.
func (r *Registry) Reload() error {
	entries, err := r.loader.LoadAll()
	if err != nil {
		return err
	}

	fresh := make(map[[32]byte]Entry, len(entries))
	for _, e := range entries {
		fresh[e.ContractHash] = e
	}

	r.mu.Lock()
	r.entries = fresh
	r.mu.Unlock()

	return nil
}

// Get looks up a contract by hash. ok is false for unknown or reserved
// hashes; reserved hashes are handled by the processor's built-in
// handlers, never stored here.
func (r *Registry) Get(hash [32]byte) (Entry, bool) {
	if IsReserved(hash) {
		return Entry{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[hash]
	return e, ok
}

// Install adds a newly created contract to the registry. The processor
// calls it before the enclosing SQL transaction commits, so the entry
// stays provisional until then (see Reload).
func (r *Registry) Install(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[e.ContractHash] = e
}

// Remove deletes a contract from the registry. The processor calls it
// before the enclosing SQL transaction commits, so the removal stays
// provisional until then (see Reload).
func (r *Registry) Remove(hash [32]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, hash)
}

// Len returns the number of installed (non-reserved) contracts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
