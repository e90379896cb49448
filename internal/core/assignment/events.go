package assignment

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventType はアサイン変更イベントの種別です。
type EventType string

const (
	EventAssigned EventType = "assigned"
	EventEnded    EventType = "ended"
)

// Event はコミット済みのアサイン変更を通知します。
// EmployeesAssigned はカウンタ再計算に失敗した場合 nil です。
type Event struct {
	Type              EventType
	Assignment        *Assignment
	EmployeesAssigned *int
	OccurredAt        time.Time
}

// EventPublisher はアサイン変更イベントの送出先です。
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// WithEventPublisher はイベントの送出先を設定します。
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// publish は書き込み後にイベントを送出します。送出の失敗はログのみで、結果は変えません。
func (s *Service) publish(ctx context.Context, eventType EventType, result *MutationResult) {
	if s.events == nil {
		return
	}

	event := Event{
		Type:       eventType,
		Assignment: result.Assignment,
		OccurredAt: s.clock.Now(),
	}
	if result.CounterSyncErr == nil {
		count := result.EmployeesAssigned
		event.EmployeesAssigned = &count
	}

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("assignment event publish failed",
			zap.String("type", string(eventType)),
			zap.String("assignment_id", result.Assignment.ID),
			zap.Error(err),
		)
	}
}
