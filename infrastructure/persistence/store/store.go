// Package store defines the single-table record model shared by every
// backend and the minimal operations the persistence layer needs from one:
// multi-item conditional writes, point reads and partition queries.
package store

import (
	"context"
)

// MaxTransactionItems is the per-transaction item ceiling every backend enforces
const MaxTransactionItems = 100

// IndexName selects the key pair a query runs against
type IndexName string

const (
	// IndexPrimary is the table's own PK0/SK0
	IndexPrimary IndexName = ""
	// IndexByCustomerOwner is GSI1 (PK1/SK1)
	IndexByCustomerOwner IndexName = "ByCustomerOwner"
	// IndexByCustomerResource is GSI2 (PK2/SK2)
	IndexByCustomerResource IndexName = "ByCustomerResource"
	// IndexByTypeAndIdentifier is GSI3 (PK3/SK3)
	IndexByTypeAndIdentifier IndexName = "ByTypeAndIdentifier"
)

// Indexes lists the secondary indexes in key order
var Indexes = []IndexName{IndexByCustomerOwner, IndexByCustomerResource, IndexByTypeAndIdentifier}

// Attribute names as stored
const (
	AttrPK0          = "PK0"
	AttrSK0          = "SK0"
	AttrPK1          = "PK1"
	AttrSK1          = "SK1"
	AttrPK2          = "PK2"
	AttrSK2          = "SK2"
	AttrPK3          = "PK3"
	AttrSK3          = "SK3"
	AttrType         = "type"
	AttrVersion      = "version"
	AttrStatus       = "status"
	AttrModifiedDate = "modifiedDate"
	AttrData         = "data"
)

// KeyAttributes returns the partition and sort attribute names of index
func KeyAttributes(index IndexName) (partition, sort string) {
	switch index {
	case IndexByCustomerOwner:
		return AttrPK1, AttrSK1
	case IndexByCustomerResource:
		return AttrPK2, AttrSK2
	case IndexByTypeAndIdentifier:
		return AttrPK3, AttrSK3
	default:
		return AttrPK0, AttrSK0
	}
}

// Key is a primary key
type Key struct {
	PartitionKey string
	SortKey      string
}

// Record is one physical item. Guard records carry only PK0/SK0 and Type.
type Record struct {
	PK0 string `dynamodbav:"PK0"`
	SK0 string `dynamodbav:"SK0"`
	PK1 string `dynamodbav:"PK1,omitempty"`
	SK1 string `dynamodbav:"SK1,omitempty"`
	PK2 string `dynamodbav:"PK2,omitempty"`
	SK2 string `dynamodbav:"SK2,omitempty"`
	PK3 string `dynamodbav:"PK3,omitempty"`
	SK3 string `dynamodbav:"SK3,omitempty"`

	Type         string `dynamodbav:"type"`
	Version      string `dynamodbav:"version,omitempty"`
	Status       string `dynamodbav:"status,omitempty"`
	ModifiedDate string `dynamodbav:"modifiedDate,omitempty"`
	Data         []byte `dynamodbav:"data,omitempty"`
}

// Key returns the record's primary key
func (r Record) Key() Key {
	return Key{PartitionKey: r.PK0, SortKey: r.SK0}
}

// IndexKey returns the record's key pair on index and whether it is projected there
func (r Record) IndexKey(index IndexName) (Key, bool) {
	var k Key
	switch index {
	case IndexByCustomerOwner:
		k = Key{r.PK1, r.SK1}
	case IndexByCustomerResource:
		k = Key{r.PK2, r.SK2}
	case IndexByTypeAndIdentifier:
		k = Key{r.PK3, r.SK3}
	default:
		k = r.Key()
	}
	return k, k.PartitionKey != "" && k.SortKey != ""
}

// ConditionKind enumerates the write preconditions
type ConditionKind int

const (
	// ConditionNone writes unconditionally
	ConditionNone ConditionKind = iota
	// ConditionNotExists requires that no record has the key
	ConditionNotExists
	// ConditionExists requires that a record has the key
	ConditionExists
	// ConditionVersionEquals requires an existing record with the given version
	ConditionVersionEquals
)

// Condition guards a write
type Condition struct {
	Kind    ConditionKind
	Version string
}

// NotExists builds a ConditionNotExists
func NotExists() Condition { return Condition{Kind: ConditionNotExists} }

// Exists builds a ConditionExists
func Exists() Condition { return Condition{Kind: ConditionExists} }

// VersionEquals builds a ConditionVersionEquals
func VersionEquals(version string) Condition {
	return Condition{Kind: ConditionVersionEquals, Version: version}
}

// OpKind is put or delete
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// WriteOp is one conditional item write inside a transaction
type WriteOp struct {
	Kind      OpKind
	Record    Record // full record for puts
	Key       Key    // target for deletes
	Condition Condition
}

// Target returns the primary key the op writes to
func (op WriteOp) Target() Key {
	if op.Kind == OpPut {
		return op.Record.Key()
	}
	return op.Key
}

// Put builds a conditional put
func Put(record Record, condition Condition) WriteOp {
	return WriteOp{Kind: OpPut, Record: record, Condition: condition}
}

// Delete builds a conditional delete
func Delete(key Key, condition Condition) WriteOp {
	return WriteOp{Kind: OpDelete, Key: key, Condition: condition}
}

// Query reads one partition of an index, optionally narrowed by sort key prefix.
// Results are ordered by sort key.
type Query struct {
	Index         IndexName
	PartitionKey  string
	SortKeyPrefix string
	Descending    bool
	Limit         int
}

// Store is a transactional key-value table with conditional writes,
// point reads and partition queries.
//
// TransactWrite applies every op or none. A failed precondition is reported
// as a conflict, except that an Exists or VersionEquals condition on a
// missing record is reported as not found. More than MaxTransactionItems
// ops, or two ops on one key, are rejected before anything is written.
type Store interface {
	TransactWrite(ctx context.Context, ops []WriteOp) error
	// Get returns the record with key and whether it exists; reads are consistent
	Get(ctx context.Context, key Key) (Record, bool, error)
	Query(ctx context.Context, q Query) ([]Record, error)
}
