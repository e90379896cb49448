package employee

import (
	"context"
	"fmt"
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
	maxSkillLength      = 100
)

// Service は社員に関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
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

// CreateEmployeeInput は社員作成時の入力です。
type CreateEmployeeInput struct {
	Name           string
	Location       Location
	Hierarchy      Hierarchy
	Skills         []string
	CurrentClient  *string
	CV             *string
	ProfilePicture *string
	// ProjectStartDate は日付部分のみ保持します。
	ProjectStartDate *time.Time
}

// UpdateEmployeeInput は社員更新時の入力です。
// Skills は SkillsSet、ProjectStartDate は ProjectStartDateSet が true の場合のみ置き換えます。
// ProjectStartDateSet が true で ProjectStartDate が nil の場合は値を消去します。
type UpdateEmployeeInput struct {
	ID                  string
	Name                *string
	Location            *Location
	Hierarchy           *Hierarchy
	Skills              []string
	SkillsSet           bool
	CurrentClient       *string
	CV                  *string
	ProfilePicture      *string
	ProjectStartDate    *time.Time
	ProjectStartDateSet bool
}

func (in UpdateEmployeeInput) empty() bool {
	return in.Name == nil && in.Location == nil && in.Hierarchy == nil && !in.SkillsSet &&
		in.CurrentClient == nil && in.CV == nil && in.ProfilePicture == nil && !in.ProjectStartDateSet
}

// DeleteEmployeeInput は社員削除時の入力です。
type DeleteEmployeeInput struct {
	ID string
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	ID string
}

// ListEmployeesInput は一覧取得時の入力です。
type ListEmployeesInput struct {
	PageSize  int
	PageToken string
	Location  *Location
	Hierarchy *Hierarchy
	Skill     *string
}

// ListEmployeesResult は一覧取得結果を表します。
type ListEmployeesResult struct {
	Employees     []*Employee
	NextPageToken string
}

// CreateEmployee は新しい社員を作成します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	if !isValidLocation(in.Location) {
		return nil, ErrInvalidLocation
	}
	if !isValidHierarchy(in.Hierarchy) {
		return nil, ErrInvalidHierarchy
	}

	skills, err := normalizeSkills(in.Skills)
	if err != nil {
		return nil, err
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Employee{
			Name:             name,
			Location:         in.Location,
			Hierarchy:        in.Hierarchy,
			Skills:           skills,
			CurrentClient:    normalizeOptional(in.CurrentClient),
			CV:               normalizeOptional(in.CV),
			ProfilePicture:   normalizeOptional(in.ProfilePicture),
			ProjectStartDate: normalizeDate(in.ProjectStartDate),
			CreatedAt:        now,
			UpdatedAt:        now,
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

// UpdateEmployee は社員情報を部分更新します。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}
	if in.empty() {
		return nil, ErrNoFieldsToUpdate
	}

	var updated *Employee
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
			existing.Name = name
		}

		if in.Location != nil {
			if !isValidLocation(*in.Location) {
				return ErrInvalidLocation
			}
			existing.Location = *in.Location
		}

		if in.Hierarchy != nil {
			if !isValidHierarchy(*in.Hierarchy) {
				return ErrInvalidHierarchy
			}
			existing.Hierarchy = *in.Hierarchy
		}

		if in.SkillsSet {
			skills, err := normalizeSkills(in.Skills)
			if err != nil {
				return err
			}
			existing.Skills = skills
		}

		if in.CurrentClient != nil {
			existing.CurrentClient = normalizeOptional(in.CurrentClient)
		}
		if in.CV != nil {
			existing.CV = normalizeOptional(in.CV)
		}
		if in.ProfilePicture != nil {
			existing.ProfilePicture = normalizeOptional(in.ProfilePicture)
		}
		if in.ProjectStartDateSet {
			existing.ProjectStartDate = normalizeDate(in.ProjectStartDate)
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

// DeleteEmployee は社員を削除します。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error {
	id, err := normalizeID(in.ID)
	if err != nil {
		return err
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は社員の一覧を取得します。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	filter := ListEmployeesFilter{Limit: limit, Offset: offset}

	if in.Location != nil {
		if !isValidLocation(*in.Location) {
			return nil, ErrInvalidLocation
		}
		location := *in.Location
		filter.Location = &location
	}

	if in.Hierarchy != nil {
		if !isValidHierarchy(*in.Hierarchy) {
			return nil, ErrInvalidHierarchy
		}
		hierarchy := *in.Hierarchy
		filter.Hierarchy = &hierarchy
	}

	filter.Skill = normalizeOptional(in.Skill)

	var (
		employees []*Employee
		nextToken string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, token, err := s.repo.List(txCtx, filter)
		if err != nil {
			return err
		}
		employees = result
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListEmployeesResult{Employees: employees, NextPageToken: nextToken}, nil
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

// normalizeSkills は前後の空白を除去し、大文字小文字を無視して重複を取り除きます。
func normalizeSkills(raw []string) ([]string, error) {
	skills := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, skill := range raw {
		trimmed := strings.TrimSpace(skill)
		if trimmed == "" || len(trimmed) > maxSkillLength {
			return nil, fmt.Errorf("skill %q: %w", skill, ErrInvalidSkill)
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		skills = append(skills, trimmed)
	}
	return skills, nil
}

// normalizeDate は時刻成分を落とし UTC の日付にそろえます。
func normalizeDate(raw *time.Time) *time.Time {
	if raw == nil {
		return nil
	}
	d := time.Date(raw.Year(), raw.Month(), raw.Day(), 0, 0, 0, 0, time.UTC)
	return &d
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

func isValidLocation(location Location) bool {
	switch location {
	case LocationEindhoven, LocationMaastricht:
		return true
	default:
		return false
	}
}

func isValidHierarchy(hierarchy Hierarchy) bool {
	switch hierarchy {
	case HierarchyBoss,
		HierarchyManagingDirector,
		HierarchyManagingConsultant,
		HierarchyPrincipalConsultant,
		HierarchySeniorConsultant,
		HierarchyConsultant,
		HierarchyWerkstudent:
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
