package client

import "time"

// Status はクライアントの契約状態を表します。
type Status string

const (
	StatusActive   Status = "active"
	StatusProspect Status = "prospect"
	StatusInactive Status = "inactive"
)

// Client はクライアントエンティティです。
// RequestedPositions はクライアントが募集中のポジション名です。
// EmployeesAssigned は稼働中アサイン数のキャッシュで、アサイン台帳のみが更新します。
type Client struct {
	ID                 string
	Name               string
	Industry           *string
	Status             Status
	Description        *string
	PrimaryContact     *string
	ContactEmail       *string
	ContactPhone       *string
	RequestedPositions []string
	EmployeesAssigned  int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
