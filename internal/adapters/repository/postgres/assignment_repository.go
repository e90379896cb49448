package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/staffing-ledger/internal/core/assignment"
	pgdb "github.com/ogurasousui/staffing-ledger/internal/platform/db/postgres"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
)

// 制約名はマイグレーションで明示的に付けたものです。
const (
	assignmentEmployeeFKConstraint  = "employee_clients_employee_id_fkey"
	assignmentClientFKConstraint    = "employee_clients_client_id_fkey"
	assignmentPeriodCheckConstraint = "employee_clients_period_check"
)

const assignmentColumns = `id, employee_id, client_id, project_name, start_date, end_date, created_at`

// AssignmentRepository は employee_clients テーブルを利用したアサイン永続化の実装です。
type AssignmentRepository struct {
	pool pgdb.Queryer
}

// NewAssignmentRepository は AssignmentRepository を生成します。
func NewAssignmentRepository(pool pgdb.Queryer) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// Create はアサインを登録します。is_active は EndDate から導出して書き込みます。
func (r *AssignmentRepository) Create(ctx context.Context, a *assignment.Assignment) (*assignment.Assignment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employee_clients (employee_id, client_id, project_name, start_date, end_date, is_active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+assignmentColumns+`
    `, a.EmployeeID, a.ClientID, nullableString(a.ProjectName), a.StartDate, nullableTime(a.EndDate), a.IsActive(), a.CreatedAt)

	created, err := scanAssignment(row)
	if err != nil {
		return nil, translateAssignmentPgError(err)
	}
	return created, nil
}

// End は稼働中アサインに終了日を設定します。
func (r *AssignmentRepository) End(ctx context.Context, id string, endDate time.Time) (*assignment.Assignment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE employee_clients
           SET end_date = $1,
               is_active = FALSE
         WHERE id = $2
           AND is_active
        RETURNING `+assignmentColumns+`
    `, endDate, id)

	ended, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, assignment.ErrAssignmentNotFound) {
			return nil, assignment.ErrNoActiveAssignment
		}
		return nil, translateAssignmentPgError(err)
	}
	return ended, nil
}

// FindActive は社員とクライアントの組に対する稼働中アサインを取得します。
func (r *AssignmentRepository) FindActive(ctx context.Context, employeeID, clientID string) (*assignment.Assignment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+assignmentColumns+`
          FROM employee_clients
         WHERE employee_id = $1
           AND client_id = $2
           AND is_active
         LIMIT 1
    `, employeeID, clientID)

	found, err := scanAssignment(row)
	if err != nil {
		return nil, translateAssignmentPgError(err)
	}
	return found, nil
}

// ListActiveByClient はクライアントの稼働中アサインを開始日の新しい順に返します。
func (r *AssignmentRepository) ListActiveByClient(ctx context.Context, clientID string) ([]*assignment.Assignment, error) {
	return r.list(ctx, `
        SELECT `+assignmentColumns+`
          FROM employee_clients
         WHERE client_id = $1
           AND is_active
         ORDER BY start_date DESC, created_at DESC
    `, clientID)
}

// ListActiveByEmployee は社員の稼働中アサインを開始日の新しい順に返します。
func (r *AssignmentRepository) ListActiveByEmployee(ctx context.Context, employeeID string) ([]*assignment.Assignment, error) {
	return r.list(ctx, `
        SELECT `+assignmentColumns+`
          FROM employee_clients
         WHERE employee_id = $1
           AND is_active
         ORDER BY start_date DESC, created_at DESC
    `, employeeID)
}

// ListByEmployee は社員の全アサイン（終了済みを含む）を返します。
func (r *AssignmentRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*assignment.Assignment, error) {
	return r.list(ctx, `
        SELECT `+assignmentColumns+`
          FROM employee_clients
         WHERE employee_id = $1
         ORDER BY start_date DESC, created_at DESC
    `, employeeID)
}

// CountActiveByClient はクライアントの稼働中アサイン数を数えます。
func (r *AssignmentRepository) CountActiveByClient(ctx context.Context, clientID string) (int, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var count int
	if err := exec.QueryRow(ctx, `
        SELECT COUNT(*)
          FROM employee_clients
         WHERE client_id = $1
           AND is_active
    `, clientID).Scan(&count); err != nil {
		return 0, translateAssignmentPgError(err)
	}
	return count, nil
}

// Stats は台帳全体の集計を 1 クエリで取得します。InactiveAssignments はサービス側で導出します。
func (r *AssignmentRepository) Stats(ctx context.Context) (*assignment.Stats, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var stats assignment.Stats
	if err := exec.QueryRow(ctx, `
        SELECT COUNT(*) FILTER (WHERE is_active),
               COUNT(*),
               COUNT(DISTINCT employee_id) FILTER (WHERE is_active),
               COUNT(DISTINCT client_id) FILTER (WHERE is_active)
          FROM employee_clients
    `).Scan(&stats.ActiveAssignments, &stats.TotalAssignments, &stats.DistinctEmployeesActive, &stats.DistinctClientsActive); err != nil {
		return nil, translateAssignmentPgError(err)
	}
	return &stats, nil
}

func (r *AssignmentRepository) list(ctx context.Context, query string, args ...any) ([]*assignment.Assignment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateAssignmentPgError(err)
	}
	defer rows.Close()

	assignments := make([]*assignment.Assignment, 0)
	for rows.Next() {
		found, err := scanAssignment(rows)
		if err != nil {
			return nil, translateAssignmentPgError(err)
		}
		assignments = append(assignments, found)
	}

	if err := rows.Err(); err != nil {
		return nil, translateAssignmentPgError(err)
	}

	return assignments, nil
}

func scanAssignment(row pgx.Row) (*assignment.Assignment, error) {
	var (
		id          string
		employeeID  string
		clientID    string
		projectName sql.NullString
		startDate   time.Time
		endDate     sql.NullTime
		createdAt   time.Time
	)

	if err := row.Scan(&id, &employeeID, &clientID, &projectName, &startDate, &endDate, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, assignment.ErrAssignmentNotFound
		}
		return nil, err
	}

	a := &assignment.Assignment{
		ID:          id,
		EmployeeID:  employeeID,
		ClientID:    clientID,
		ProjectName: stringPtr(projectName),
		StartDate:   startDate.UTC(),
		CreatedAt:   createdAt,
	}
	if endDate.Valid {
		end := endDate.Time.UTC()
		a.EndDate = &end
	}
	return a, nil
}

func translateAssignmentPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case uniqueViolationCode:
		return assignment.ErrDuplicateActiveAssignment
	case foreignKeyViolationCode:
		switch pgErr.ConstraintName {
		case assignmentEmployeeFKConstraint:
			return assignment.ErrEmployeeNotFound
		case assignmentClientFKConstraint:
			return assignment.ErrClientNotFound
		}
	case checkViolationCode:
		if pgErr.ConstraintName == assignmentPeriodCheckConstraint {
			return assignment.ErrInvalidEndDate
		}
	}
	return err
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return *value
}
