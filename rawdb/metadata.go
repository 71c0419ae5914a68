package rawdb

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion is the current on-disk layout version. Bumping it without
// a migration path is intentional: store.Open refuses to touch a database
// written by a different version rather than attempt a silent upgrade.
const SchemaVersion = 1

// EngineTag identifies the storage engine a database was created with.
// Only "pebble" is ever written by this module; the tag exists so a
// database opened against the wrong engine build fails loudly instead of
// corrupting silently.
const EngineTag = "pebble"

// Metadata is the content of metadata.json, written once by
// store.InitFromGenesis and checked on every store.Open.
type Metadata struct {
	SchemaVersion int    `json:"schema_version"`
	EngineTag     string `json:"engine_tag"`
	ChainID       uint64 `json:"chain_id"`
}

// SchemaMismatchError is returned when an on-disk database's metadata does
// not match what this build expects.
type SchemaMismatchError struct {
	Field    string
	Want     interface{}
	Got      interface{}
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("rawdb: schema mismatch: %s: want %v, got %v", e.Field, e.Want, e.Got)
}

const metadataChainMetaKey = "metadata.json"

// WriteMetadata persists m to the chain_meta table.
func WriteMetadata(db KeyValueWriter, m Metadata) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return WriteChainMeta(db, metadataChainMetaKey, data)
}

// ReadMetadata loads metadata.json from the chain_meta table. It returns
// ErrNotFound if the database has never been initialized.
func ReadMetadata(db KeyValueReader) (Metadata, error) {
	data, err := ReadChainMeta(db, metadataChainMetaKey)
	if err != nil {
		return Metadata{}, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// CheckMetadata validates an on-disk Metadata against what this build
// requires, returning a *SchemaMismatchError describing the first
// mismatched field.
func CheckMetadata(m Metadata, wantChainID uint64) error {
	if m.SchemaVersion != SchemaVersion {
		return &SchemaMismatchError{Field: "schema_version", Want: SchemaVersion, Got: m.SchemaVersion}
	}
	if m.EngineTag != EngineTag {
		return &SchemaMismatchError{Field: "engine_tag", Want: EngineTag, Got: m.EngineTag}
	}
	if m.ChainID != wantChainID {
		return &SchemaMismatchError{Field: "chain_id", Want: wantChainID, Got: m.ChainID}
	}
	return nil
}
