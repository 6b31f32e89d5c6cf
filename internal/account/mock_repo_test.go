package account

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"presentsmart/internal/notify"
)

// ── In-memory Repository ──

type memRepo struct {
	mu       sync.Mutex
	seq      int
	users    map[string]*User
	teachers map[string]*Teacher
	students map[string]*Student
	invites  map[string]*Invitation
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:    make(map[string]*User),
		teachers: make(map[string]*Teacher),
		students: make(map[string]*Student),
		invites:  make(map[string]*Invitation),
	}
}

func (m *memRepo) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memRepo) InTx(_ context.Context, fn func(Repository) error) error {
	return fn(m)
}

func (m *memRepo) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrUserExists
		}
	}
	u.ID = m.nextID("user")
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepo) UserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) UserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memRepo) CreateTeacher(_ context.Context, t *Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.nextID("teacher")
	cp := *t
	m.teachers[t.ID] = &cp
	return nil
}

func (m *memRepo) TeacherByUserID(_ context.Context, userID string) (*Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teachers {
		if t.UserID == userID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) TeacherByID(_ context.Context, id string) (*Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.teachers[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (m *memRepo) CreateStudent(_ context.Context, s *Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.students {
		if existing.Email == s.Email {
			return ErrUserExists
		}
	}
	s.ID = m.nextID("student")
	cp := *s
	m.students[s.ID] = &cp
	return nil
}

func (m *memRepo) UpdateStudent(_ context.Context, s *Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[s.ID]; !ok {
		return fmt.Errorf("student %s not found", s.ID)
	}
	cp := *s
	m.students[s.ID] = &cp
	return nil
}

func (m *memRepo) StudentByEmail(_ context.Context, email string) (*Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.Email == email {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) StudentByUserID(_ context.Context, userID string) (*Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.UserID != nil && *s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) StudentsByTeacher(_ context.Context, teacherID string) ([]Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Student
	for _, s := range m.students {
		if s.TeacherID != nil && *s.TeacherID == teacherID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memRepo) CountStudents(ctx context.Context, teacherID string) (int, error) {
	students, err := m.StudentsByTeacher(ctx, teacherID)
	return len(students), err
}

func (m *memRepo) CreateInvite(_ context.Context, inv *Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv.ID = m.nextID("invite")
	cp := *inv
	m.invites[inv.ID] = &cp
	return nil
}

func (m *memRepo) InviteByToken(_ context.Context, token string) (*Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invites {
		if inv.Token == token {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) MarkInviteUsed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[id]
	if !ok || inv.Used {
		return ErrInvalidInvite
	}
	inv.Used = true
	return nil
}

// ── Recording Notifier ──

type recordingNotifier struct {
	mu       sync.Mutex
	welcomed []string
	invited  []notify.Invite
	err      error
}

func (n *recordingNotifier) Welcome(_ context.Context, to, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomed = append(n.welcomed, to)
	return n.err
}

func (n *recordingNotifier) Invite(_ context.Context, inv notify.Invite) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invited = append(n.invited, inv)
	return n.err
}
