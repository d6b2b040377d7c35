package registry

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/Coinversable/validana-core/foundation/blockchain/validator"
)

// contractRow is the gorm model mirroring basics.contracts (spec §6.2).
// It is only used by Store.LoadAll below, the non-transactional bulk
// read that populates a Registry at startup and after a failed block
// commit (spec §4.5 does not require this read to be transactional).
// Writes to basics.contracts happen on the enclosing SQL transaction
// instead, via the ExistsTx/InsertTx/DeleteTx functions in
// contracts_tx.go, so they commit and roll back atomically with the
// rest of the create/delete-contract transaction (spec §3.5, §4.7.1).
type contractRow struct {
	ContractHash    []byte `gorm:"column:contract_hash;primaryKey"`
	ContractType    string `gorm:"column:contract_type"`
	ContractVersion string `gorm:"column:contract_version"`
	Description     string `gorm:"column:description"`
	Creator         string `gorm:"column:creator"`
	ContractTemplate []byte `gorm:"column:contract_template"`
	Code            []byte `gorm:"column:code"`
	ValidanaVersion int16  `gorm:"column:validana_version"`
}

// TableName pins the gorm model to the basics schema, since the
// bootstrap DDL that creates the schema itself is out of scope here.
func (contractRow) TableName() string {
	return "basics.contracts"
}

// Store is the gorm-backed Loader used to (re)populate a Registry at
// startup and after a failed block commit.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an already-connected gorm.DB.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// LoadAll implements Loader.
func (s *Store) LoadAll() ([]Entry, error) {
	var rows []contractRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("registry: load contracts: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		var tmpl validator.Template
		if err := json.Unmarshal(row.ContractTemplate, &tmpl); err != nil {
			return nil, fmt.Errorf("registry: decode template for %x: %w", row.ContractHash, err)
		}

		var hash [32]byte
		copy(hash[:], row.ContractHash)

		entries = append(entries, Entry{
			ContractHash:    hash,
			ContractType:    row.ContractType,
			ContractVersion: row.ContractVersion,
			Description:     row.Description,
			Creator:         row.Creator,
			Template:        tmpl,
			Code:            row.Code,
			ValidanaVersion: int(row.ValidanaVersion),
		})
	}

	return entries, nil
}
