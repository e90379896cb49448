package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"testing"
	"time"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeRepo struct {
	clients map[string]*Client
	order   []string
	seq     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{clients: make(map[string]*Client)}
}

func (r *fakeRepo) Create(_ context.Context, c *Client) (*Client, error) {
	for _, existing := range r.clients {
		if existing.Name == c.Name {
			return nil, ErrNameAlreadyExists
		}
	}
	clone := cloneClient(c)
	r.seq++
	clone.ID = fmt.Sprintf("00000000-0000-4000-8000-%012d", r.seq)
	r.clients[clone.ID] = clone
	r.order = append(r.order, clone.ID)
	return cloneClient(clone), nil
}

func (r *fakeRepo) Update(_ context.Context, c *Client) (*Client, error) {
	if _, ok := r.clients[c.ID]; !ok {
		return nil, ErrClientNotFound
	}
	for _, existing := range r.clients {
		if existing.ID != c.ID && existing.Name == c.Name {
			return nil, ErrNameAlreadyExists
		}
	}
	r.clients[c.ID] = cloneClient(c)
	return cloneClient(c), nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.clients[id]; !ok {
		return ErrClientNotFound
	}
	delete(r.clients, id)
	for i, existingID := range r.order {
		if existingID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	return cloneClient(c), nil
}

func (r *fakeRepo) FindByName(_ context.Context, name string) (*Client, error) {
	for _, c := range r.clients {
		if c.Name == name {
			return cloneClient(c), nil
		}
	}
	return nil, ErrClientNotFound
}

func (r *fakeRepo) List(_ context.Context, filter ListClientsFilter) ([]*Client, string, error) {
	var filtered []*Client
	for _, id := range r.order {
		c := r.clients[id]
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.Industry != nil && (c.Industry == nil || *c.Industry != *filter.Industry) {
			continue
		}
		filtered = append(filtered, cloneClient(c))
	}

	if filter.Offset > len(filtered) {
		return []*Client{}, "", nil
	}

	end := filter.Offset + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}

	var nextToken string
	if end < len(filtered) {
		nextToken = strconv.Itoa(end)
	}

	return filtered[filter.Offset:end], nextToken, nil
}

func cloneClient(c *Client) *Client {
	if c == nil {
		return nil
	}
	copy := *c
	copy.RequestedPositions = slices.Clone(c.RequestedPositions)
	for _, field := range []struct {
		src *string
		dst **string
	}{
		{c.Industry, &copy.Industry},
		{c.Description, &copy.Description},
		{c.PrimaryContact, &copy.PrimaryContact},
		{c.ContactEmail, &copy.ContactEmail},
		{c.ContactPhone, &copy.ContactPhone},
	} {
		if field.src != nil {
			v := *field.src
			*field.dst = &v
		}
	}
	return &copy
}

func strPtr(s string) *string {
	return &s
}

func TestService_CreateClient_Success(t *testing.T) {
	t.Parallel()

	clk := &stubClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc := NewService(newFakeRepo(), clk, nil)

	created, err := svc.CreateClient(context.Background(), CreateClientInput{
		Name:         "  ASML  ",
		Industry:     strPtr(" Semiconductors "),
		ContactEmail: strPtr(" Sourcing@ASML.com "),
		ContactPhone: strPtr("   "),
	})
	if err != nil {
		t.Fatalf("CreateClient returned error: %v", err)
	}

	if created.Name != "ASML" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if created.Industry == nil || *created.Industry != "Semiconductors" {
		t.Fatalf("expected trimmed industry, got %+v", created.Industry)
	}
	if created.ContactEmail == nil || *created.ContactEmail != "sourcing@asml.com" {
		t.Fatalf("expected normalized email, got %+v", created.ContactEmail)
	}
	if created.ContactPhone != nil {
		t.Fatalf("expected blank phone to be nil, got %+v", created.ContactPhone)
	}
	if created.Status != StatusActive {
		t.Fatalf("expected default status active, got %s", created.Status)
	}
	if created.EmployeesAssigned != 0 {
		t.Fatalf("expected zero employees assigned, got %d", created.EmployeesAssigned)
	}
	if !created.CreatedAt.Equal(clk.now) || !created.UpdatedAt.Equal(clk.now) {
		t.Fatalf("expected timestamps to use clock")
	}
}

func TestService_CreateClient_Validation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), &stubClock{now: time.Now()}, nil)

	if _, err := svc.CreateClient(context.Background(), CreateClientInput{Name: "  "}); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}

	if _, err := svc.CreateClient(context.Background(), CreateClientInput{Name: "X", ContactEmail: strPtr("not-an-email")}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}

	bogus := Status("churned")
	if _, err := svc.CreateClient(context.Background(), CreateClientInput{Name: "X", Status: &bogus}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestService_CreateClient_DuplicateName(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), &stubClock{now: time.Now()}, nil)

	if _, err := svc.CreateClient(context.Background(), CreateClientInput{Name: "Philips"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.CreateClient(context.Background(), CreateClientInput{Name: " Philips "}); !errors.Is(err, ErrNameAlreadyExists) {
		t.Fatalf("expected ErrNameAlreadyExists, got %v", err)
	}
}

func TestService_UpdateClient_Success(t *testing.T) {
	t.Parallel()

	clk := &stubClock{now: time.Now()}
	svc := NewService(newFakeRepo(), clk, nil)

	created, err := svc.CreateClient(context.Background(), CreateClientInput{Name: "VDL", Description: strPtr("Bus maker")})
	if err != nil {
		t.Fatalf("CreateClient error: %v", err)
	}

	prospect := StatusProspect
	clk.now = clk.now.Add(time.Hour)

	updated, err := svc.UpdateClient(context.Background(), UpdateClientInput{
		ID:          created.ID,
		Name:        strPtr("VDL Groep"),
		Status:      &prospect,
		Description: strPtr(""),
	})
	if err != nil {
		t.Fatalf("UpdateClient returned error: %v", err)
	}

	if updated.Name != "VDL Groep" || updated.Status != StatusProspect {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.Description != nil {
		t.Fatalf("expected description cleared, got %+v", updated.Description)
	}
	if !updated.UpdatedAt.Equal(clk.now) {
		t.Fatalf("expected updated timestamp to match clock")
	}
}

func TestService_RequestedPositions(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), &stubClock{now: time.Now()}, nil)

	created, err := svc.CreateClient(context.Background(), CreateClientInput{
		Name:               "Thales",
		RequestedPositions: []string{" Java developer ", "Java developer", "Scrum master"},
	})
	if err != nil {
		t.Fatalf("CreateClient returned error: %v", err)
	}
	if !slices.Equal(created.RequestedPositions, []string{"Java developer", "Java developer", "Scrum master"}) {
		t.Fatalf("expected trimmed positions with duplicates kept, got %v", created.RequestedPositions)
	}

	if _, err := svc.CreateClient(context.Background(), CreateClientInput{
		Name:               "Other",
		RequestedPositions: []string{"Tester", " "},
	}); !errors.Is(err, ErrInvalidRequestedPosition) {
		t.Fatalf("expected ErrInvalidRequestedPosition, got %v", err)
	}

	untouched, err := svc.UpdateClient(context.Background(), UpdateClientInput{ID: created.ID, Industry: strPtr("Defence")})
	if err != nil {
		t.Fatalf("UpdateClient returned error: %v", err)
	}
	if len(untouched.RequestedPositions) != 3 {
		t.Fatalf("expected positions kept when not set, got %v", untouched.RequestedPositions)
	}

	cleared, err := svc.UpdateClient(context.Background(), UpdateClientInput{ID: created.ID, RequestedPositionsSet: true})
	if err != nil {
		t.Fatalf("UpdateClient returned error: %v", err)
	}
	if cleared.RequestedPositions == nil || len(cleared.RequestedPositions) != 0 {
		t.Fatalf("expected positions cleared, got %#v", cleared.RequestedPositions)
	}
}

func TestService_UpdateClient_NoFields(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), &stubClock{now: time.Now()}, nil)

	created, err := svc.CreateClient(context.Background(), CreateClientInput{Name: "Signify"})
	if err != nil {
		t.Fatalf("CreateClient error: %v", err)
	}

	if _, err := svc.UpdateClient(context.Background(), UpdateClientInput{ID: created.ID}); !errors.Is(err, ErrNoFieldsToUpdate) {
		t.Fatalf("expected ErrNoFieldsToUpdate, got %v", err)
	}
}

func TestService_UpdateClient_DuplicateName(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), &stubClock{now: time.Now()}, nil)

	first, err := svc.CreateClient(context.Background(), CreateClientInput{Name: "First"})
	if err != nil {
		t.Fatalf("CreateClient error: %v", err)
	}
	second, err := svc.CreateClient(context.Background(), CreateClientInput{Name: "Second"})
	if err != nil {
		t.Fatalf("CreateClient error: %v", err)
	}

	if _, err := svc.UpdateClient(context.Background(), UpdateClientInput{ID: second.ID, Name: &first.Name}); !errors.Is(err, ErrNameAlreadyExists) {
		t.Fatalf("expected ErrNameAlreadyExists, got %v", err)
	}
}

func TestService_GetClient(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), &stubClock{now: time.Now()}, nil)

	if _, err := svc.GetClient(context.Background(), GetClientInput{ID: "   "}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := svc.GetClient(context.Background(), GetClientInput{ID: "17"}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID for non-uuid, got %v", err)
	}

	created, err := svc.CreateClient(context.Background(), CreateClientInput{Name: "DAF"})
	if err != nil {
		t.Fatalf("CreateClient error: %v", err)
	}

	found, err := svc.GetClient(context.Background(), GetClientInput{ID: created.ID})
	if err != nil {
		t.Fatalf("GetClient returned error: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("expected ID %s, got %s", created.ID, found.ID)
	}
}

func TestService_DeleteClient(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), &stubClock{now: time.Now()}, nil)

	created, err := svc.CreateClient(context.Background(), CreateClientInput{Name: "Brainport"})
	if err != nil {
		t.Fatalf("CreateClient error: %v", err)
	}

	if err := svc.DeleteClient(context.Background(), DeleteClientInput{ID: created.ID}); err != nil {
		t.Fatalf("DeleteClient returned error: %v", err)
	}
	if err := svc.DeleteClient(context.Background(), DeleteClientInput{ID: created.ID}); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
}

func TestService_ListClients_FilterAndPagination(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), &stubClock{now: time.Now()}, nil)

	inactive := StatusInactive
	seeds := []CreateClientInput{
		{Name: "A", Industry: strPtr("Healthcare")},
		{Name: "B", Industry: strPtr("Healthcare"), Status: &inactive},
		{Name: "C", Industry: strPtr("Automotive")},
	}
	for _, in := range seeds {
		if _, err := svc.CreateClient(context.Background(), in); err != nil {
			t.Fatalf("CreateClient error: %v", err)
		}
	}

	result, err := svc.ListClients(context.Background(), ListClientsInput{Industry: strPtr(" Healthcare ")})
	if err != nil {
		t.Fatalf("ListClients returned error: %v", err)
	}
	if len(result.Clients) != 2 {
		t.Fatalf("expected 2 healthcare clients, got %d", len(result.Clients))
	}

	result, err = svc.ListClients(context.Background(), ListClientsInput{Status: &inactive})
	if err != nil {
		t.Fatalf("ListClients returned error: %v", err)
	}
	if len(result.Clients) != 1 || result.Clients[0].Name != "B" {
		t.Fatalf("expected only B, got %+v", result.Clients)
	}

	page, err := svc.ListClients(context.Background(), ListClientsInput{PageSize: 2})
	if err != nil {
		t.Fatalf("ListClients returned error: %v", err)
	}
	if len(page.Clients) != 2 || page.NextPageToken != "2" {
		t.Fatalf("unexpected page: %d clients, token %q", len(page.Clients), page.NextPageToken)
	}

	if _, err := svc.ListClients(context.Background(), ListClientsInput{PageSize: maxListPageSize + 1}); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}
	if _, err := svc.ListClients(context.Background(), ListClientsInput{PageToken: "abc"}); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}
