package client

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
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

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
	maxPositionLength   = 255
)

// Service はクライアントに関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
}

// UseCase はクライアントユースケースの公開インターフェースです。
type UseCase interface {
	CreateClient(ctx context.Context, in CreateClientInput) (*Client, error)
	GetClient(ctx context.Context, in GetClientInput) (*Client, error)
	ListClients(ctx context.Context, in ListClientsInput) (*ListClientsResult, error)
	UpdateClient(ctx context.Context, in UpdateClientInput) (*Client, error)
	DeleteClient(ctx context.Context, in DeleteClientInput) error
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, clock: clock, tx: tx}
}

// CreateClientInput はクライアント作成時の入力です。
type CreateClientInput struct {
	Name               string
	Industry           *string
	Status             *Status
	Description        *string
	PrimaryContact     *string
	ContactEmail       *string
	ContactPhone       *string
	RequestedPositions []string
}

// UpdateClientInput はクライアント更新時の入力です。nil の項目は変更しません。空文字は値を消去します。
// RequestedPositions は RequestedPositionsSet が true の場合のみ置き換えます。
type UpdateClientInput struct {
	ID                    string
	Name                  *string
	Industry              *string
	Status                *Status
	Description           *string
	PrimaryContact        *string
	ContactEmail          *string
	ContactPhone          *string
	RequestedPositions    []string
	RequestedPositionsSet bool
}

func (in UpdateClientInput) empty() bool {
	return in.Name == nil && in.Industry == nil && in.Status == nil && in.Description == nil &&
		in.PrimaryContact == nil && in.ContactEmail == nil && in.ContactPhone == nil && !in.RequestedPositionsSet
}

// DeleteClientInput はクライアント削除時の入力です。
type DeleteClientInput struct {
	ID string
}

// GetClientInput はクライアント取得時の入力です。
type GetClientInput struct {
	ID string
}

// ListClientsInput は一覧取得時の入力です。
type ListClientsInput struct {
	PageSize  int
	PageToken string
	Status    *Status
	Industry  *string
}

// ListClientsResult は一覧取得結果を表します。
type ListClientsResult struct {
	Clients       []*Client
	NextPageToken string
}

// CreateClient は新しいクライアントを作成します。
func (s *Service) CreateClient(ctx context.Context, in CreateClientInput) (*Client, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	email, err := normalizeEmail(in.ContactEmail)
	if err != nil {
		return nil, err
	}

	status := StatusActive
	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		status = *in.Status
	}

	positions, err := normalizePositions(in.RequestedPositions)
	if err != nil {
		return nil, err
	}

	var created *Client
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureNameNotExists(txCtx, name); err != nil {
			return err
		}

		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Client{
			Name:               name,
			Industry:           normalizeOptional(in.Industry),
			Status:             status,
			Description:        normalizeOptional(in.Description),
			PrimaryContact:     normalizeOptional(in.PrimaryContact),
			ContactEmail:       email,
			ContactPhone:       normalizeOptional(in.ContactPhone),
			RequestedPositions: positions,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateClient はクライアント情報を更新します。稼働人数はここでは変更しません。
func (s *Service) UpdateClient(ctx context.Context, in UpdateClientInput) (*Client, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}
	if in.empty() {
		return nil, ErrNoFieldsToUpdate
	}

	var updated *Client
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name, err := normalizeName(*in.Name)
			if err != nil {
				return err
			}
			if name != existing.Name {
				if err := s.ensureNameNotExists(txCtx, name); err != nil {
					return err
				}
				existing.Name = name
			}
		}

		if in.Status != nil {
			if !isValidStatus(*in.Status) {
				return ErrInvalidStatus
			}
			existing.Status = *in.Status
		}

		if in.ContactEmail != nil {
			email, err := normalizeEmail(in.ContactEmail)
			if err != nil {
				return err
			}
			existing.ContactEmail = email
		}

		if in.Industry != nil {
			existing.Industry = normalizeOptional(in.Industry)
		}
		if in.Description != nil {
			existing.Description = normalizeOptional(in.Description)
		}
		if in.PrimaryContact != nil {
			existing.PrimaryContact = normalizeOptional(in.PrimaryContact)
		}
		if in.ContactPhone != nil {
			existing.ContactPhone = normalizeOptional(in.ContactPhone)
		}
		if in.RequestedPositionsSet {
			positions, err := normalizePositions(in.RequestedPositions)
			if err != nil {
				return err
			}
			existing.RequestedPositions = positions
		}

		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteClient はクライアントを削除します。アサイン履歴がある場合は削除できません。
func (s *Service) DeleteClient(ctx context.Context, in DeleteClientInput) error {
	id, err := normalizeID(in.ID)
	if err != nil {
		return err
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
}

// GetClient は ID でクライアントを取得します。
func (s *Service) GetClient(ctx context.Context, in GetClientInput) (*Client, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	var found *Client
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		found = result
		return nil
	}); err != nil {
		return nil, err
	}

	return found, nil
}

// ListClients はクライアントの一覧を名前順に取得します。
func (s *Service) ListClients(ctx context.Context, in ListClientsInput) (*ListClientsResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var statusPtr *Status
	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		status := *in.Status
		statusPtr = &status
	}

	var (
		clients   []*Client
		nextToken string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, token, err := s.repo.List(txCtx, ListClientsFilter{
			Limit:    limit,
			Offset:   offset,
			Status:   statusPtr,
			Industry: normalizeOptional(in.Industry),
		})
		if err != nil {
			return err
		}
		clients = result
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListClientsResult{Clients: clients, NextPageToken: nextToken}, nil
}

func (s *Service) ensureNameNotExists(ctx context.Context, name string) error {
	found, err := s.repo.FindByName(ctx, name)
	if err != nil && !errors.Is(err, ErrClientNotFound) {
		return err
	}
	if found != nil {
		return ErrNameAlreadyExists
	}
	return nil
}

func normalizeID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("id: %w", ErrInvalidID)
	}
	parsed, err := uuid.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("id %q: %w", trimmed, ErrInvalidID)
	}
	return parsed.String(), nil
}

func normalizeName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

func normalizeEmail(raw *string) (*string, error) {
	value := normalizeOptional(raw)
	if value == nil {
		return nil, nil
	}

	addr, err := mail.ParseAddress(*value)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	email := strings.ToLower(addr.Address)
	return &email, nil
}

// normalizePositions は前後の空白を除去します。同名のポジションは複数の募集枠として残します。
func normalizePositions(raw []string) ([]string, error) {
	positions := make([]string, 0, len(raw))
	for _, position := range raw {
		trimmed := strings.TrimSpace(position)
		if trimmed == "" || len(trimmed) > maxPositionLength {
			return nil, fmt.Errorf("position %q: %w", position, ErrInvalidRequestedPosition)
		}
		positions = append(positions, trimmed)
	}
	return positions, nil
}

func normalizeOptional(raw *string) *string {
	if raw == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}

	return &trimmed
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusProspect, StatusInactive:
		return true
	default:
		return false
	}
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
