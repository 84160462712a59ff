// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package directory implements the launch directory: a database-backed
// catalog of every market created through the launch family. Node-side
// services (indexers, launch UIs) read it instead of walking chain state.
package directory

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"github.com/zeebo/blake3"
)

var (
	ErrRecordNotFound = errors.New("launch record not found")
	ErrRecordExists   = errors.New("launch record already exists")
	ErrInvalidRecord  = errors.New("invalid launch record")
)

// recordPrefix namespaces launch records within a shared database.
var recordPrefix = []byte("launchdir/rec/")

// LaunchRecord describes one market created through the launch family.
type LaunchRecord struct {
	Token   common.Address `json:"token"`
	Creator common.Address `json:"creator"`
	Name    string         `json:"name"`
	Symbol  string         `json:"symbol"`

	// CreatedAt is the block timestamp of market creation.
	CreatedAt uint64 `json:"createdAt"`

	// SaleEnd is the pre-sale end timestamp, zero when the market
	// launched without a sale.
	SaleEnd uint64 `json:"saleEnd,omitempty"`
}

// Directory is the injected registry of launch records. All state lives in
// the backing database, so multiple consumers can share one directory.
type Directory struct {
	db  database.Database
	log log.Logger
}

// New creates a directory over the given database, logging through the
// caller's logger.
func New(db database.Database, logger log.Logger) *Directory {
	return &Directory{
		db:  db,
		log: logger,
	}
}

// NewTestDirectory creates a memory-backed directory for tests.
func NewTestDirectory() *Directory {
	return New(memdb.New(), log.NewTestLogger(log.InfoLevel))
}

// recordKey derives the database key for a token's launch record. The hash
// keeps keys fixed-width; the shared prefix keeps them scannable.
func recordKey(token common.Address) []byte {
	h := blake3.New()
	h.Write(token.Bytes())
	var digest [32]byte
	h.Digest().Read(digest[:])
	return append(append([]byte{}, recordPrefix...), digest[:]...)
}

// Register stores a new launch record. Re-registering a token fails; launch
// records are immutable once written.
func (d *Directory) Register(rec LaunchRecord) error {
	if rec.Token == (common.Address{}) {
		return ErrInvalidRecord
	}

	key := recordKey(rec.Token)
	ok, err := d.db.Has(key)
	if err != nil {
		return err
	}
	if ok {
		return ErrRecordExists
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := d.db.Put(key, raw); err != nil {
		return err
	}

	d.log.Info("launch registered", "token", rec.Token.Hex(), "symbol", rec.Symbol)
	return nil
}

// Get returns the launch record for a token.
func (d *Directory) Get(token common.Address) (LaunchRecord, error) {
	raw, err := d.db.Get(recordKey(token))
	if errors.Is(err, database.ErrNotFound) {
		return LaunchRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return LaunchRecord{}, err
	}

	var rec LaunchRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return LaunchRecord{}, err
	}
	return rec, nil
}

// Has reports whether a launch record exists for a token.
func (d *Directory) Has(token common.Address) (bool, error) {
	return d.db.Has(recordKey(token))
}

// Delete removes a launch record. Records of live markets are normally kept
// forever; deletion exists for operator cleanup of aborted launches.
func (d *Directory) Delete(token common.Address) error {
	key := recordKey(token)
	ok, err := d.db.Has(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRecordNotFound
	}
	return d.db.Delete(key)
}

// List returns all launch records ordered by creation time, oldest first.
// Records created in the same block sort by symbol for determinism.
func (d *Directory) List() ([]LaunchRecord, error) {
	it := d.db.NewIteratorWithPrefix(recordPrefix)
	defer it.Release()

	var records []LaunchRecord
	for it.Next() {
		var rec LaunchRecord
		if err := json.Unmarshal(it.Value(), &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].Symbol < records[j].Symbol
	})
	return records, nil
}
