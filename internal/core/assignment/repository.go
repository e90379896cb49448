package assignment

import (
	"context"
	"time"
)

// Repository はアサイン永続化の抽象です。
type Repository interface {
	// Create は稼働中のアサインを作成します。同一ペアの稼働中アサインが既にあれば ErrDuplicateActiveAssignment を返します。
	Create(ctx context.Context, a *Assignment) (*Assignment, error)
	// End は稼働中アサインを終了します。対象が稼働中でなければ ErrNoActiveAssignment を返します。
	End(ctx context.Context, id string, endDate time.Time) (*Assignment, error)
	FindActive(ctx context.Context, employeeID, clientID string) (*Assignment, error)
	ListActiveByClient(ctx context.Context, clientID string) ([]*Assignment, error)
	ListActiveByEmployee(ctx context.Context, employeeID string) ([]*Assignment, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*Assignment, error)
	CountActiveByClient(ctx context.Context, clientID string) (int, error)
	Stats(ctx context.Context) (*Stats, error)
}

// CounterStore はクライアントの稼働人数キャッシュを保持する先です。
type CounterStore interface {
	ListClientIDs(ctx context.Context) ([]string, error)
	SetEmployeesAssigned(ctx context.Context, clientID string, count int) error
}

// EmployeeDirectory は社員スナップショットの参照元です。
// 見つからない ID は結果のマップに含めません。
type EmployeeDirectory interface {
	EmployeeSnapshots(ctx context.Context, ids []string) (map[string]*EmployeeSnapshot, error)
}

// ClientDirectory はクライアントスナップショットの参照元です。
type ClientDirectory interface {
	ClientSnapshots(ctx context.Context, ids []string) (map[string]*ClientSnapshot, error)
}
