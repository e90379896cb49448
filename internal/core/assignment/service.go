package assignment

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const maxProjectNameLength = 200

// Registries はアサイン台帳が参照する社員・クライアント側の依存です。
type Registries struct {
	Counters  CounterStore
	Employees EmployeeDirectory
	Clients   ClientDirectory
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLocation は「今日」を判定するタイムゾーンを設定します。
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithQueryTimeout はデータストア呼び出し 1 回ごとの期限を設定します。0 以下なら呼び出し元の期限に従います。
// 一括再計算ではクライアントごとに新しい期限が適用されます。
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.queryTimeout = d
	}
}

// Service はアサイン台帳のユースケースをまとめます。
type Service struct {
	repo      Repository
	counters  CounterStore
	employees EmployeeDirectory
	clients   ClientDirectory
	clock     Clock
	tx        TransactionManager
	loc       *time.Location
	logger    *zap.Logger
	events    EventPublisher

	queryTimeout time.Duration
}

// UseCase はアサイン台帳の公開インターフェースです。
type UseCase interface {
	Assign(ctx context.Context, in AssignInput) (*MutationResult, error)
	Remove(ctx context.Context, in RemoveInput) (*MutationResult, error)
	GetActive(ctx context.Context, employeeID, clientID string) (*AssignmentDetail, error)
	ListActiveByClient(ctx context.Context, clientID string) ([]*ClientMember, error)
	ListActiveByEmployee(ctx context.Context, employeeID string) ([]*EmployeeEngagement, error)
	History(ctx context.Context, employeeID string) ([]*HistoryEntry, error)
	RecomputeClientCount(ctx context.Context, clientID string) (int, error)
	RecomputeAllClientCounts(ctx context.Context) (*RecountSummary, error)
	Stats(ctx context.Context) (*Stats, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, registries Registries, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:      repo,
		counters:  registries.Counters,
		employees: registries.Employees,
		clients:   registries.Clients,
		clock:     clock,
		tx:        tx,
		loc:       time.UTC,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssignInput はアサイン作成時の入力です。StartDate が nil の場合は今日になります。
type AssignInput struct {
	EmployeeID  string
	ClientID    string
	ProjectName *string
	StartDate   *time.Time
}

// RemoveInput はアサイン終了時の入力です。
type RemoveInput struct {
	EmployeeID string
	ClientID   string
}

// Assign は社員をクライアントへアサインします。
func (s *Service) Assign(ctx context.Context, in AssignInput) (*MutationResult, error) {
	employeeID, err := normalizeID(in.EmployeeID, ErrInvalidEmployeeID)
	if err != nil {
		return nil, err
	}

	clientID, err := normalizeID(in.ClientID, ErrInvalidClientID)
	if err != nil {
		return nil, err
	}

	projectName, err := normalizeProjectName(in.ProjectName)
	if err != nil {
		return nil, err
	}

	today := s.today()
	startDate := today
	if in.StartDate != nil {
		startDate = truncateDate(*in.StartDate)
		if startDate.After(today) {
			return nil, ErrFutureStartDate
		}
	}

	var created *Assignment
	if err := s.withinReadWrite(ctx, func(txCtx context.Context) error {
		// 一意インデックスが最終的な保証であり、ここでの確認は早期検出のためです。
		existing, err := s.repo.FindActive(txCtx, employeeID, clientID)
		if err != nil && !errors.Is(err, ErrAssignmentNotFound) {
			return err
		}
		if existing != nil {
			return ErrDuplicateActiveAssignment
		}

		result, err := s.repo.Create(txCtx, &Assignment{
			EmployeeID:  employeeID,
			ClientID:    clientID,
			ProjectName: projectName,
			StartDate:   startDate,
			CreatedAt:   s.clock.Now(),
		})
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, wrapDatastore("assign", err)
	}

	result := &MutationResult{Assignment: created}
	s.syncCounter(ctx, clientID, result)
	s.publish(ctx, EventAssigned, result)
	return result, nil
}

// Remove は稼働中のアサインを終了します（論理削除）。
func (s *Service) Remove(ctx context.Context, in RemoveInput) (*MutationResult, error) {
	employeeID, err := normalizeID(in.EmployeeID, ErrInvalidEmployeeID)
	if err != nil {
		return nil, err
	}

	clientID, err := normalizeID(in.ClientID, ErrInvalidClientID)
	if err != nil {
		return nil, err
	}

	today := s.today()

	var ended *Assignment
	if err := s.withinReadWrite(ctx, func(txCtx context.Context) error {
		active, err := s.repo.FindActive(txCtx, employeeID, clientID)
		if err != nil {
			if errors.Is(err, ErrAssignmentNotFound) {
				return ErrNoActiveAssignment
			}
			return err
		}

		// 開始日が今日より後の行（取り込みデータやタイムゾーン変更後）は開始日で終了します。
		endDate := today
		if active.StartDate.After(today) {
			endDate = active.StartDate
			s.logger.Info("ending assignment that starts in the future on its start date",
				zap.String("assignment_id", active.ID),
				zap.Time("start_date", active.StartDate),
			)
		}
		if err := active.End(endDate); err != nil {
			return err
		}

		result, err := s.repo.End(txCtx, active.ID, *active.EndDate)
		if err != nil {
			return err
		}

		ended = result
		return nil
	}); err != nil {
		return nil, wrapDatastore("remove", err)
	}

	result := &MutationResult{Assignment: ended}
	s.syncCounter(ctx, clientID, result)
	s.publish(ctx, EventEnded, result)
	return result, nil
}

// GetActive は社員とクライアントの組に対する稼働中アサインを取得します。
func (s *Service) GetActive(ctx context.Context, employeeID, clientID string) (*AssignmentDetail, error) {
	eid, err := normalizeID(employeeID, ErrInvalidEmployeeID)
	if err != nil {
		return nil, err
	}

	cid, err := normalizeID(clientID, ErrInvalidClientID)
	if err != nil {
		return nil, err
	}

	var found *Assignment
	if err := s.withinReadOnly(ctx, func(txCtx context.Context) error {
		a, err := s.repo.FindActive(txCtx, eid, cid)
		if err != nil {
			return err
		}
		found = a
		return nil
	}); err != nil {
		return nil, wrapDatastore("get active assignment", err)
	}

	employees := s.employeeSnapshots(ctx, []string{eid})
	clients := s.clientSnapshots(ctx, []string{cid})

	return &AssignmentDetail{
		Assignment: found,
		Employee:   employeeSnapshotOrPlaceholder(employees, eid),
		Client:     clientSnapshotOrPlaceholder(clients, cid),
	}, nil
}

// ListActiveByClient はクライアントに稼働中の社員を開始日の新しい順に返します。
func (s *Service) ListActiveByClient(ctx context.Context, clientID string) ([]*ClientMember, error) {
	cid, err := normalizeID(clientID, ErrInvalidClientID)
	if err != nil {
		return nil, err
	}

	var rows []*Assignment
	if err := s.withinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.ListActiveByClient(txCtx, cid)
		if err != nil {
			return err
		}
		rows = found
		return nil
	}); err != nil {
		return nil, wrapDatastore("list active by client", err)
	}

	sortNewestFirst(rows)

	ids := make([]string, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.EmployeeID)
	}
	snapshots := s.employeeSnapshots(ctx, ids)

	members := make([]*ClientMember, 0, len(rows))
	for _, a := range rows {
		members = append(members, &ClientMember{
			Assignment: a,
			Employee:   employeeSnapshotOrPlaceholder(snapshots, a.EmployeeID),
		})
	}
	return members, nil
}

// ListActiveByEmployee は社員が稼働中のクライアントを開始日の新しい順に返します。
func (s *Service) ListActiveByEmployee(ctx context.Context, employeeID string) ([]*EmployeeEngagement, error) {
	eid, err := normalizeID(employeeID, ErrInvalidEmployeeID)
	if err != nil {
		return nil, err
	}

	var rows []*Assignment
	if err := s.withinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.ListActiveByEmployee(txCtx, eid)
		if err != nil {
			return err
		}
		rows = found
		return nil
	}); err != nil {
		return nil, wrapDatastore("list active by employee", err)
	}

	sortNewestFirst(rows)
	snapshots := s.clientSnapshots(ctx, clientIDsOf(rows))

	engagements := make([]*EmployeeEngagement, 0, len(rows))
	for _, a := range rows {
		engagements = append(engagements, &EmployeeEngagement{
			Assignment: a,
			Client:     clientSnapshotOrPlaceholder(snapshots, a.ClientID),
		})
	}
	return engagements, nil
}

// History は社員の全アサイン（終了済みを含む）を稼働期間付きで返します。
func (s *Service) History(ctx context.Context, employeeID string) ([]*HistoryEntry, error) {
	eid, err := normalizeID(employeeID, ErrInvalidEmployeeID)
	if err != nil {
		return nil, err
	}

	var rows []*Assignment
	if err := s.withinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.ListByEmployee(txCtx, eid)
		if err != nil {
			return err
		}
		rows = found
		return nil
	}); err != nil {
		return nil, wrapDatastore("history", err)
	}

	sortNewestFirst(rows)
	snapshots := s.clientSnapshots(ctx, clientIDsOf(rows))
	now := s.clock.Now()

	entries := make([]*HistoryEntry, 0, len(rows))
	for _, a := range rows {
		end := now
		if a.EndDate != nil {
			end = *a.EndDate
		}
		days := ElapsedDays(a.StartDate, end)
		entries = append(entries, &HistoryEntry{
			Assignment:   a,
			Client:       clientSnapshotOrPlaceholder(snapshots, a.ClientID),
			Duration:     FormatDuration(days),
			DurationDays: days,
		})
	}
	return entries, nil
}

// RecomputeClientCount は稼働中アサイン数を数え直し、クライアントの employees_assigned に保存します。
func (s *Service) RecomputeClientCount(ctx context.Context, clientID string) (int, error) {
	cid, err := normalizeID(clientID, ErrInvalidClientID)
	if err != nil {
		return 0, err
	}

	var count int
	if err := s.withinReadWrite(ctx, func(txCtx context.Context) error {
		n, err := s.repo.CountActiveByClient(txCtx, cid)
		if err != nil {
			return err
		}
		if err := s.counters.SetEmployeesAssigned(txCtx, cid, n); err != nil {
			return err
		}
		count = n
		return nil
	}); err != nil {
		return 0, wrapDatastore("recompute client count", err)
	}

	return count, nil
}

// RecomputeAllClientCounts は全クライアントの稼働人数を再計算します。
// 個々の失敗は集計に記録され、残りのクライアントの処理は継続します。
func (s *Service) RecomputeAllClientCounts(ctx context.Context) (*RecountSummary, error) {
	var ids []string
	if err := s.withinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.counters.ListClientIDs(txCtx)
		if err != nil {
			return err
		}
		ids = found
		return nil
	}); err != nil {
		return nil, wrapDatastore("list clients", err)
	}

	summary := &RecountSummary{
		Total:   len(ids),
		Details: make([]RecountResult, 0, len(ids)),
	}
	for _, id := range ids {
		count, err := s.RecomputeClientCount(ctx, id)
		summary.Details = append(summary.Details, RecountResult{ClientID: id, Count: count, Err: err})
		if err != nil {
			summary.Failed++
			s.logger.Warn("client count recompute failed", zap.String("client_id", id), zap.Error(err))
			continue
		}
		summary.Succeeded++
	}

	s.logger.Info("client counts recomputed",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// Stats はアサインの集計値を返します。
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var stats *Stats
	if err := s.withinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.Stats(txCtx)
		if err != nil {
			return err
		}
		stats = found
		return nil
	}); err != nil {
		return nil, wrapDatastore("stats", err)
	}

	stats.InactiveAssignments = stats.TotalAssignments - stats.ActiveAssignments
	return stats, nil
}

// syncCounter はアサインの書き込み後にカウンタを再計算します。失敗しても書き込みは取り消しません。
func (s *Service) syncCounter(ctx context.Context, clientID string, result *MutationResult) {
	count, err := s.RecomputeClientCount(ctx, clientID)
	if err != nil {
		result.CounterSyncErr = err
		s.logger.Warn("client count sync failed after assignment write",
			zap.String("client_id", clientID),
			zap.String("assignment_id", result.Assignment.ID),
			zap.Error(err),
		)
		return
	}
	result.EmployeesAssigned = count
}

func (s *Service) employeeSnapshots(ctx context.Context, ids []string) map[string]*EmployeeSnapshot {
	if s.employees == nil || len(ids) == 0 {
		return nil
	}
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	found, err := s.employees.EmployeeSnapshots(ctx, uniqueIDs(ids))
	if err != nil {
		s.logger.Warn("employee snapshot lookup failed", zap.Int("ids", len(ids)), zap.Error(err))
		return nil
	}
	return found
}

func (s *Service) clientSnapshots(ctx context.Context, ids []string) map[string]*ClientSnapshot {
	if s.clients == nil || len(ids) == 0 {
		return nil
	}
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	found, err := s.clients.ClientSnapshots(ctx, uniqueIDs(ids))
	if err != nil {
		s.logger.Warn("client snapshot lookup failed", zap.Int("ids", len(ids)), zap.Error(err))
		return nil
	}
	return found
}

func (s *Service) withinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	return s.tx.WithinReadOnly(ctx, fn)
}

func (s *Service) withinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	return s.tx.WithinReadWrite(ctx, fn)
}

// callContext は queryTimeout を期限とする子コンテキストを返します。
func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

func (s *Service) today() time.Time {
	return truncateDate(s.clock.Now().In(s.loc))
}

func employeeSnapshotOrPlaceholder(snapshots map[string]*EmployeeSnapshot, id string) *EmployeeSnapshot {
	if snap, ok := snapshots[id]; ok && snap != nil {
		return snap
	}
	return &EmployeeSnapshot{ID: id, Missing: true}
}

func clientSnapshotOrPlaceholder(snapshots map[string]*ClientSnapshot, id string) *ClientSnapshot {
	if snap, ok := snapshots[id]; ok && snap != nil {
		return snap
	}
	return &ClientSnapshot{ID: id, Missing: true}
}

func clientIDsOf(rows []*Assignment) []string {
	ids := make([]string, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.ClientID)
	}
	return ids
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sortNewestFirst(rows []*Assignment) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].StartDate.Equal(rows[j].StartDate) {
			return rows[i].StartDate.After(rows[j].StartDate)
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
}

func normalizeID(raw string, invalid error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", invalid
	}
	parsed, err := uuid.Parse(trimmed)
	if err != nil {
		return "", invalid
	}
	return parsed.String(), nil
}

func normalizeProjectName(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxProjectNameLength {
		return nil, ErrInvalidProjectName
	}
	return &trimmed, nil
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
