package repository

import (
	"context"
	"fmt"

	"publication-backend/domain/core/entities"
	"publication-backend/domain/core/valueobjects"
	"publication-backend/domain/events"
	"publication-backend/infrastructure/persistence/dao"
	"publication-backend/infrastructure/persistence/store"
	pkgerrors "publication-backend/pkg/errors"

	"go.uber.org/zap"
)

// pendingWrite is an entity together with the version it will hold once
// the transaction commits
type pendingWrite struct {
	entity  entities.Entity
	version valueobjects.RowVersion
}

// UnitOfWork collects entity writes and submits them as one store
// transaction. A unit is used for a single Commit.
type UnitOfWork struct {
	store    store.Store
	logger   *zap.Logger
	maxItems int

	ops       []store.WriteOp
	pending   []pendingWrite
	committed []events.DomainEvent
	done      bool
}

// NewUnitOfWork creates a unit of work bounded by maxItems operations
func NewUnitOfWork(s store.Store, maxItems int, logger *zap.Logger) *UnitOfWork {
	if maxItems <= 0 || maxItems > store.MaxTransactionItems {
		maxItems = store.MaxTransactionItems
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitOfWork{
		store:    s,
		logger:   logger,
		maxItems: maxItems,
	}
}

type validatable interface {
	Validate() error
}

// RegisterInsert adds the first persistence of entity: its records and
// guards, each conditioned on absence.
func (u *UnitOfWork) RegisterInsert(entity entities.Entity) error {
	if err := u.checkOpen(); err != nil {
		return err
	}
	if v, ok := entity.(validatable); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	version := valueobjects.NextVersion()
	set, err := dao.ToRecords(entity, version, true)
	if err != nil {
		return err
	}
	for _, record := range set.Records() {
		u.ops = append(u.ops, store.Put(record, store.NotExists()))
	}
	u.pending = append(u.pending, pendingWrite{entity: entity, version: version})
	return nil
}

// RegisterUpdate adds a replacement of entity conditioned on the version it
// was read at. A ticket leaving the active statuses releases its guard in
// the same transaction.
func (u *UnitOfWork) RegisterUpdate(entity entities.Entity) error {
	if err := u.checkOpen(); err != nil {
		return err
	}
	expected := entity.Version()
	if expected.IsZero() {
		return pkgerrors.NewInternalError(fmt.Sprintf("%s %s has no stored version", entity.EntityType(), entity.ID()))
	}

	version := valueobjects.NextVersion()
	set, err := dao.ToRecords(entity, version, false)
	if err != nil {
		return err
	}
	for _, record := range append([]store.Record{set.Primary}, set.Mirrors...) {
		u.ops = append(u.ops, store.Put(record, store.VersionEquals(expected.String())))
	}
	for _, key := range set.ReleasedGuards {
		u.ops = append(u.ops, store.Delete(key, store.Exists()))
	}
	u.pending = append(u.pending, pendingWrite{entity: entity, version: version})
	return nil
}

// Len is the number of store operations registered so far
func (u *UnitOfWork) Len() int {
	return len(u.ops)
}

// Commit submits every registered write atomically. On success entities
// carry their new versions and their raised events move to
// CommittedEvents; on failure entities are left as they were.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if err := u.checkOpen(); err != nil {
		return err
	}
	u.done = true

	if len(u.ops) == 0 {
		return nil
	}
	if len(u.ops) > u.maxItems {
		u.logger.Warn("Unit of work exceeds transaction ceiling",
			zap.Int("items", len(u.ops)),
			zap.Int("limit", u.maxItems))
		return pkgerrors.NewTransactionTooLargeError(len(u.ops), u.maxItems)
	}

	if err := u.store.TransactWrite(ctx, u.ops); err != nil {
		u.logger.Debug("Unit of work rejected", zap.Int("items", len(u.ops)), zap.Error(err))
		return err
	}

	for _, p := range u.pending {
		p.entity.SetVersion(p.version)
		if ticket, ok := p.entity.(*entities.TicketEntry); ok {
			ticket.SyncStoredStatus()
		}
		if source, ok := p.entity.(entities.EventSource); ok {
			u.committed = append(u.committed, source.GetUncommittedEvents()...)
			source.MarkEventsAsCommitted()
		}
	}

	u.logger.Debug("Unit of work committed",
		zap.Int("entities", len(u.pending)),
		zap.Int("items", len(u.ops)))
	return nil
}

// CommittedEvents returns the domain events raised by the entities of a
// successful commit, in registration order
func (u *UnitOfWork) CommittedEvents() []events.DomainEvent {
	return u.committed
}

func (u *UnitOfWork) checkOpen() error {
	if u.done {
		return pkgerrors.NewInternalError("unit of work already committed")
	}
	return nil
}
