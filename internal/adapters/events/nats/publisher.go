package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/ogurasousui/staffing-ledger/internal/core/assignment"
)

const dateLayout = "2006-01-02"

// Publisher はアサイン変更イベントを JetStream へ送出します。
// 件名は <prefix>.assignment.<type> です。
type Publisher struct {
	js     jetstream.JetStream
	prefix string
}

// NewPublisher は Publisher を生成します。
func NewPublisher(js jetstream.JetStream, subjectPrefix string) *Publisher {
	return &Publisher{js: js, prefix: subjectPrefix}
}

// EnsureStream はイベント用のストリームを作成または更新します。
func EnsureStream(ctx context.Context, js jetstream.JetStream, name, subjectPrefix string) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: []string{subjectPrefix + ".assignment.>"},
		Storage:  jetstream.FileStorage,
		MaxAge:   30 * 24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("nats: ensure stream %s: %w", name, err)
	}
	return stream, nil
}

// Subject は種別に対応する件名を返します。
func (p *Publisher) Subject(t assignment.EventType) string {
	return p.prefix + ".assignment." + string(t)
}

type eventMessage struct {
	Type              string  `json:"type"`
	AssignmentID      string  `json:"assignment_id"`
	EmployeeID        string  `json:"employee_id"`
	ClientID          string  `json:"client_id"`
	ProjectName       *string `json:"project_name"`
	StartDate         string  `json:"start_date"`
	EndDate           *string `json:"end_date"`
	IsActive          bool    `json:"is_active"`
	EmployeesAssigned *int    `json:"employees_assigned"`
	OccurredAt        string  `json:"occurred_at"`
}

// Publish はイベントを送出します。Nats-Msg-Id はアサイン ID と種別から決まり、再送は重複排除されます。
func (p *Publisher) Publish(ctx context.Context, event assignment.Event) error {
	a := event.Assignment
	msg := eventMessage{
		Type:              string(event.Type),
		AssignmentID:      a.ID,
		EmployeeID:        a.EmployeeID,
		ClientID:          a.ClientID,
		ProjectName:       a.ProjectName,
		StartDate:         a.StartDate.Format(dateLayout),
		IsActive:          a.IsActive(),
		EmployeesAssigned: event.EmployeesAssigned,
		OccurredAt:        event.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if a.EndDate != nil {
		end := a.EndDate.Format(dateLayout)
		msg.EndDate = &end
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("nats: marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, p.Subject(event.Type), data, jetstream.WithMsgID(a.ID+":"+string(event.Type))); err != nil {
		return fmt.Errorf("nats: publish %s: %w", event.Type, err)
	}
	return nil
}
