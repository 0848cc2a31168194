package memory

import (
	"testing"

	"publication-backend/infrastructure/persistence/store"
	"publication-backend/infrastructure/persistence/store/storetest"

	"go.uber.org/zap"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return NewStore(zap.NewNop())
	})
}
