package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockRepo struct {
	users map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: map[uuid.UUID]*User{}}
}

func (m *mockRepo) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) ListByRole(ctx context.Context, role string) ([]*User, error) {
	var out []*User
	for _, u := range m.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func TestRegisterValidatesRole(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	if err := svc.Register(context.Background(), &User{Role: "superuser", Name: "X"}); err == nil {
		t.Fatal("unknown role must be rejected")
	}
	if err := svc.Register(context.Background(), &User{Role: RoleDoctor, Name: "Dr. Rao"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestGetPatientRejectsOtherRoles(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())

	doctor := &User{Role: RoleDoctor, Name: "Dr. Rao"}
	patient := &User{Role: RolePatient, Name: "Asha"}
	repo.Create(context.Background(), doctor)
	repo.Create(context.Background(), patient)

	if _, err := svc.GetPatient(context.Background(), patient.ID); err != nil {
		t.Fatalf("GetPatient: %v", err)
	}
	if _, err := svc.GetPatient(context.Background(), doctor.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for non-patient", err)
	}
	if _, err := svc.GetPatient(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for unknown id", err)
	}
}
