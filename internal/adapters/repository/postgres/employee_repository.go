package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/staffing-ledger/internal/core/assignment"
	"github.com/ogurasousui/staffing-ledger/internal/core/employee"
	pgdb "github.com/ogurasousui/staffing-ledger/internal/platform/db/postgres"
)

const employeeColumns = `id, name, location, hierarchy, skills, current_client, cv, profile_picture, project_start_date, created_at, updated_at`

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は社員を新規作成します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees (name, location, hierarchy, skills, current_client, cv, profile_picture, project_start_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+employeeColumns+`
    `, e.Name, e.Location, e.Hierarchy, textArrayArg(e.Skills), nullableString(e.CurrentClient), nullableString(e.CV),
		nullableString(e.ProfilePicture), nullableTime(e.ProjectStartDate), e.CreatedAt, e.UpdatedAt)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Update は社員情報を更新します。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE employees
           SET name = $1,
               location = $2,
               hierarchy = $3,
               skills = $4,
               current_client = $5,
               cv = $6,
               profile_picture = $7,
               project_start_date = $8,
               updated_at = $9
         WHERE id = $10
        RETURNING `+employeeColumns+`
    `, e.Name, e.Location, e.Hierarchy, textArrayArg(e.Skills), nullableString(e.CurrentClient), nullableString(e.CV),
		nullableString(e.ProfilePicture), nullableTime(e.ProjectStartDate), e.UpdatedAt, e.ID)

	updated, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return updated, nil
}

// Delete は社員を削除します。アサイン履歴から参照されている場合は削除できません。
func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// List は社員の一覧を名前順に取得します。スキルは大文字小文字を区別せずに照合します。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListEmployeesFilter) ([]*employee.Employee, string, error) {
	if filter.Limit <= 0 {
		return nil, "", employee.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", employee.ErrInvalidPageToken
	}

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 5)
	conditions := make([]string, 0, 3)

	if filter.Location != nil {
		args = append(args, *filter.Location)
		conditions = append(conditions, "location = $"+strconv.Itoa(len(args)))
	}
	if filter.Hierarchy != nil {
		args = append(args, *filter.Hierarchy)
		conditions = append(conditions, "hierarchy = $"+strconv.Itoa(len(args)))
	}
	if filter.Skill != nil {
		args = append(args, *filter.Skill)
		conditions = append(conditions, "EXISTS (SELECT 1 FROM unnest(skills) AS s WHERE lower(s) = lower($"+strconv.Itoa(len(args))+"))")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limitWithBuffer)
	limitPlaceholder := "$" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := "$" + strconv.Itoa(len(args))

	query := `
        SELECT ` + employeeColumns + `
          FROM employees` + whereClause + `
         ORDER BY name ASC, id ASC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateEmployeePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0, filter.Limit)
	for rows.Next() {
		found, err := scanEmployee(rows)
		if err != nil {
			return nil, "", translateEmployeePgError(err)
		}
		employees = append(employees, found)
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateEmployeePgError(err)
	}

	var nextToken string
	if len(employees) > filter.Limit {
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
		employees = employees[:filter.Limit]
	}

	return employees, nextToken, nil
}

// EmployeeSnapshots は指定 ID の社員を一括で取得します。存在しない ID は結果に含みません。
func (r *EmployeeRepository) EmployeeSnapshots(ctx context.Context, ids []string) (map[string]*assignment.EmployeeSnapshot, error) {
	snapshots := make(map[string]*assignment.EmployeeSnapshot, len(ids))
	if len(ids) == 0 {
		return snapshots, nil
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, name, location, hierarchy, skills, profile_picture
          FROM employees
         WHERE id = ANY($1::uuid[])
    `, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			snap           assignment.EmployeeSnapshot
			profilePicture sql.NullString
		)
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.Location, &snap.Hierarchy, &snap.Skills, &profilePicture); err != nil {
			return nil, err
		}
		snap.ProfilePicture = stringPtr(profilePicture)
		if snap.Skills == nil {
			snap.Skills = []string{}
		}
		snapshots[snap.ID] = &snap
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snapshots, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		id                   string
		name                 string
		location             string
		hierarchy            string
		skills               []string
		currentClient        sql.NullString
		cv                   sql.NullString
		profilePicture       sql.NullString
		projectStartDate     sql.NullTime
		createdAt, updatedAt time.Time
	)

	if err := row.Scan(&id, &name, &location, &hierarchy, &skills, &currentClient, &cv, &profilePicture, &projectStartDate,
		&createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	if skills == nil {
		skills = []string{}
	}

	e := &employee.Employee{
		ID:             id,
		Name:           name,
		Location:       employee.Location(location),
		Hierarchy:      employee.Hierarchy(hierarchy),
		Skills:         skills,
		CurrentClient:  stringPtr(currentClient),
		CV:             stringPtr(cv),
		ProfilePicture: stringPtr(profilePicture),
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}
	if projectStartDate.Valid {
		start := projectStartDate.Time.UTC()
		e.ProjectStartDate = &start
	}
	return e, nil
}

func translateEmployeePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == foreignKeyViolationCode {
			return employee.ErrEmployeeHasAssignments
		}
	}
	return err
}

// textArrayArg は NOT NULL の TEXT[] 列へ空配列として書き込めるよう nil を空スライスに置き換えます。
func textArrayArg(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
