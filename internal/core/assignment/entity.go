package assignment

import "time"

// Assignment は社員とクライアントのアサイン（稼働）を表します。
// 稼働中かどうかは EndDate の有無からのみ導出されます。
type Assignment struct {
	ID          string
	EmployeeID  string
	ClientID    string
	ProjectName *string
	StartDate   time.Time
	EndDate     *time.Time
	CreatedAt   time.Time
}

// IsActive はアサインが稼働中であれば true を返します。
func (a *Assignment) IsActive() bool {
	return a.EndDate == nil
}

// End は稼働中のアサインを終了状態へ遷移させます。終了済みのアサインは再度終了できません。
func (a *Assignment) End(date time.Time) error {
	if !a.IsActive() {
		return ErrAssignmentAlreadyEnded
	}
	d := truncateDate(date)
	if d.Before(a.StartDate) {
		return ErrInvalidEndDate
	}
	a.EndDate = &d
	return nil
}

// EmployeeSnapshot は表示用の社員情報スナップショットです。
type EmployeeSnapshot struct {
	ID             string
	Name           string
	Location       string
	Hierarchy      string
	Skills         []string
	ProfilePicture *string
	// Missing は参照先の社員が取得できなかったことを示します。
	Missing bool
}

// ClientSnapshot は表示用のクライアント情報スナップショットです。
type ClientSnapshot struct {
	ID                string
	Name              string
	Industry          string
	Status            string
	PrimaryContact    *string
	ContactEmail      *string
	EmployeesAssigned int
	Missing           bool
}

// ClientMember はクライアントに稼働中の社員一覧の要素です。
type ClientMember struct {
	Assignment *Assignment
	Employee   *EmployeeSnapshot
}

// EmployeeEngagement は社員が稼働中のクライアント一覧の要素です。
type EmployeeEngagement struct {
	Assignment *Assignment
	Client     *ClientSnapshot
}

// HistoryEntry は社員のアサイン履歴の要素です。
type HistoryEntry struct {
	Assignment   *Assignment
	Client       *ClientSnapshot
	Duration     string
	DurationDays int
}

// AssignmentDetail は特定の稼働中アサインを両側のスナップショット付きで表します。
type AssignmentDetail struct {
	Assignment *Assignment
	Employee   *EmployeeSnapshot
	Client     *ClientSnapshot
}

// MutationResult は assign / remove の結果です。
// CounterSyncErr はアサインの書き込み成功後にクライアントの稼働人数の再計算が失敗した場合に設定されます。
type MutationResult struct {
	Assignment        *Assignment
	EmployeesAssigned int
	CounterSyncErr    error
}

// Stats はアサインの集計値です。
type Stats struct {
	ActiveAssignments       int
	TotalAssignments        int
	InactiveAssignments     int
	DistinctEmployeesActive int
	DistinctClientsActive   int
}

// RecountResult はクライアント単位の再計算結果です。
type RecountResult struct {
	ClientID string
	Count    int
	Err      error
}

// RecountSummary は全クライアントの再計算結果の集計です。
type RecountSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Details   []RecountResult
}
