package store

import (
	"context"

	evbus "github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/dishankoza/svcsync/internal/registry"
)

// Follow persists every record published on registry.TopicAccepted. Writes
// run on the bus's async worker one at a time, and the version guard in
// Upsert keeps late deliveries from regressing a row. The returned func
// unsubscribes.
func (s *Store) Follow(bus evbus.Bus, log *zap.Logger) (func(), error) {
	if log == nil {
		log = zap.NewNop()
	}
	handler := func(svc registry.Service) {
		changed, err := s.Upsert(context.Background(), svc)
		if err != nil {
			log.Error("persist service", zap.String("service", svc.Name), zap.Error(err))
			return
		}
		log.Debug("persisted service",
			zap.String("service", svc.Name),
			zap.Stringer("version", svc.Version),
			zap.Bool("changed", changed))
	}
	if err := bus.SubscribeAsync(registry.TopicAccepted, handler, true); err != nil {
		return nil, err
	}
	return func() { _ = bus.Unsubscribe(registry.TopicAccepted, handler) }, nil
}
