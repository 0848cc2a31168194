package store

import (
	"fmt"
	"strings"

	pkgerrors "publication-backend/pkg/errors"
)

// CheckTransaction validates a batch before any backend touches it
func CheckTransaction(ops []WriteOp) error {
	if len(ops) == 0 {
		return pkgerrors.NewValidationError("ops", "transaction has no operations")
	}
	if len(ops) > MaxTransactionItems {
		return pkgerrors.NewTransactionTooLargeError(len(ops), MaxTransactionItems)
	}
	seen := make(map[Key]struct{}, len(ops))
	for _, op := range ops {
		target := op.Target()
		if target.PartitionKey == "" || target.SortKey == "" {
			return pkgerrors.NewValidationError("key", "write target has an empty key")
		}
		if _, dup := seen[target]; dup {
			return pkgerrors.NewValidationError("key",
				fmt.Sprintf("transaction writes %s/%s twice", target.PartitionKey, target.SortKey))
		}
		seen[target] = struct{}{}
	}
	return nil
}

// Evaluate applies the precondition of op to the current record, if any.
// Backends without native conditions use it inside their transaction.
func Evaluate(op WriteOp, current Record, exists bool) error {
	target := op.Target()
	switch op.Condition.Kind {
	case ConditionNotExists:
		if exists {
			return pkgerrors.NewConflictError(fmt.Sprintf("%s already exists", describe(target)))
		}
	case ConditionExists:
		if !exists {
			return pkgerrors.NewNotFoundError(describe(target))
		}
	case ConditionVersionEquals:
		if !exists {
			return pkgerrors.NewNotFoundError(describe(target))
		}
		if current.Version != op.Condition.Version {
			return pkgerrors.NewConflictError(fmt.Sprintf("%s was modified concurrently", describe(target))).
				WithDetail("expectedVersion", op.Condition.Version)
		}
	}
	return nil
}

func describe(k Key) string {
	return strings.TrimSpace(k.SortKey + " in " + k.PartitionKey)
}

// MatchesPrefix reports whether key sits in partition and starts with prefix
func MatchesPrefix(k Key, partition, prefix string) bool {
	return k.PartitionKey == partition && strings.HasPrefix(k.SortKey, prefix)
}
