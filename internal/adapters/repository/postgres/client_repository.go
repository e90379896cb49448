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
	"github.com/ogurasousui/staffing-ledger/internal/core/client"
	pgdb "github.com/ogurasousui/staffing-ledger/internal/platform/db/postgres"
)

const clientColumns = `id, name, industry, status, description, primary_contact, contact_email, contact_phone, requested_positions, employees_assigned, created_at, updated_at`

// ClientRepository は PostgreSQL を利用したクライアント永続化の実装です。
// アサイン台帳向けの CounterStore と ClientDirectory も兼ねます。
type ClientRepository struct {
	pool pgdb.Queryer
}

// NewClientRepository は ClientRepository を生成します。
func NewClientRepository(pool pgdb.Queryer) *ClientRepository {
	return &ClientRepository{pool: pool}
}

// Create はクライアントを新規作成します。employees_assigned は 0 で始まります。
func (r *ClientRepository) Create(ctx context.Context, c *client.Client) (*client.Client, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO clients (name, industry, status, description, primary_contact, contact_email, contact_phone, requested_positions, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+clientColumns+`
    `, c.Name, nullableString(c.Industry), c.Status, nullableString(c.Description), nullableString(c.PrimaryContact),
		nullableString(c.ContactEmail), nullableString(c.ContactPhone), textArrayArg(c.RequestedPositions), c.CreatedAt, c.UpdatedAt)

	created, err := scanClient(row)
	if err != nil {
		return nil, translateClientPgError(err)
	}
	return created, nil
}

// Update はクライアント情報を更新します。employees_assigned は変更しません。
func (r *ClientRepository) Update(ctx context.Context, c *client.Client) (*client.Client, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE clients
           SET name = $1,
               industry = $2,
               status = $3,
               description = $4,
               primary_contact = $5,
               contact_email = $6,
               contact_phone = $7,
               requested_positions = $8,
               updated_at = $9
         WHERE id = $10
        RETURNING `+clientColumns+`
    `, c.Name, nullableString(c.Industry), c.Status, nullableString(c.Description), nullableString(c.PrimaryContact),
		nullableString(c.ContactEmail), nullableString(c.ContactPhone), textArrayArg(c.RequestedPositions), c.UpdatedAt, c.ID)

	updated, err := scanClient(row)
	if err != nil {
		return nil, translateClientPgError(err)
	}
	return updated, nil
}

// Delete はクライアントを削除します。
func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return translateClientPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return client.ErrClientNotFound
	}
	return nil
}

// FindByID は ID でクライアントを取得します。
func (r *ClientRepository) FindByID(ctx context.Context, id string) (*client.Client, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+clientColumns+`
          FROM clients
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanClient(row)
	if err != nil {
		return nil, translateClientPgError(err)
	}
	return found, nil
}

// FindByName は名前でクライアントを取得します。
func (r *ClientRepository) FindByName(ctx context.Context, name string) (*client.Client, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+clientColumns+`
          FROM clients
         WHERE name = $1
         LIMIT 1
    `, name)

	found, err := scanClient(row)
	if err != nil {
		return nil, translateClientPgError(err)
	}
	return found, nil
}

// List はクライアントの一覧を名前順に取得します。
func (r *ClientRepository) List(ctx context.Context, filter client.ListClientsFilter) ([]*client.Client, string, error) {
	if filter.Limit <= 0 {
		return nil, "", client.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", client.ErrInvalidPageToken
	}

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 4)
	conditions := make([]string, 0, 2)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.Industry != nil {
		args = append(args, *filter.Industry)
		conditions = append(conditions, "industry = $"+strconv.Itoa(len(args)))
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
        SELECT ` + clientColumns + `
          FROM clients` + whereClause + `
         ORDER BY name ASC, id ASC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateClientPgError(err)
	}
	defer rows.Close()

	clients := make([]*client.Client, 0, filter.Limit)
	for rows.Next() {
		found, err := scanClient(rows)
		if err != nil {
			return nil, "", translateClientPgError(err)
		}
		clients = append(clients, found)
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateClientPgError(err)
	}

	var nextToken string
	if len(clients) > filter.Limit {
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
		clients = clients[:filter.Limit]
	}

	return clients, nextToken, nil
}

// ListClientIDs は全クライアントの ID を返します。
func (r *ClientRepository) ListClientIDs(ctx context.Context) ([]string, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `SELECT id FROM clients ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

// SetEmployeesAssigned は稼働人数キャッシュを上書きします。
func (r *ClientRepository) SetEmployeesAssigned(ctx context.Context, clientID string, count int) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `UPDATE clients SET employees_assigned = $1 WHERE id = $2`, count, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return assignment.ErrClientNotFound
	}
	return nil
}

// ClientSnapshots は指定 ID のクライアントを一括で取得します。存在しない ID は結果に含みません。
func (r *ClientRepository) ClientSnapshots(ctx context.Context, ids []string) (map[string]*assignment.ClientSnapshot, error) {
	snapshots := make(map[string]*assignment.ClientSnapshot, len(ids))
	if len(ids) == 0 {
		return snapshots, nil
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, name, industry, status, primary_contact, contact_email, employees_assigned
          FROM clients
         WHERE id = ANY($1::uuid[])
    `, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			snap           assignment.ClientSnapshot
			industry       sql.NullString
			primaryContact sql.NullString
			contactEmail   sql.NullString
		)
		if err := rows.Scan(&snap.ID, &snap.Name, &industry, &snap.Status, &primaryContact, &contactEmail, &snap.EmployeesAssigned); err != nil {
			return nil, err
		}
		snap.Industry = industry.String
		snap.PrimaryContact = stringPtr(primaryContact)
		snap.ContactEmail = stringPtr(contactEmail)
		snapshots[snap.ID] = &snap
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snapshots, nil
}

func scanClient(row pgx.Row) (*client.Client, error) {
	var (
		id                   string
		name                 string
		industry             sql.NullString
		status               string
		description          sql.NullString
		primaryContact       sql.NullString
		contactEmail         sql.NullString
		contactPhone         sql.NullString
		positions            []string
		employeesAssigned    int
		createdAt, updatedAt time.Time
	)

	if err := row.Scan(&id, &name, &industry, &status, &description, &primaryContact, &contactEmail, &contactPhone,
		&positions, &employeesAssigned, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, client.ErrClientNotFound
		}
		return nil, err
	}

	if positions == nil {
		positions = []string{}
	}

	return &client.Client{
		ID:                 id,
		Name:               name,
		Industry:           stringPtr(industry),
		Status:             client.Status(status),
		Description:        stringPtr(description),
		PrimaryContact:     stringPtr(primaryContact),
		ContactEmail:       stringPtr(contactEmail),
		ContactPhone:       stringPtr(contactPhone),
		RequestedPositions: positions,
		EmployeesAssigned:  employeesAssigned,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}, nil
}

func translateClientPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return client.ErrNameAlreadyExists
		case foreignKeyViolationCode:
			return client.ErrClientHasAssignments
		}
	}
	return err
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
