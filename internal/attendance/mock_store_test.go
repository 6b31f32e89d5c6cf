package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"presentsmart/internal/account"
)

// memStore implements CodeStore, RecordStore and Roster.
type memStore struct {
	mu       sync.Mutex
	seq      int
	codes    map[string]Code
	records  []Record
	teachers map[string]account.Teacher
	students map[string]account.Student
}

func newMemStore() *memStore {
	return &memStore{
		codes:    make(map[string]Code),
		teachers: make(map[string]account.Teacher),
		students: make(map[string]account.Student),
	}
}

func (m *memStore) addTeacher(userID, department string) account.Teacher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := account.Teacher{ID: fmt.Sprintf("teacher-%d", m.seq), UserID: userID, Department: department}
	m.teachers[t.ID] = t
	return t
}

func (m *memStore) addStudent(userID, teacherID string) account.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s := account.Student{ID: fmt.Sprintf("student-%d", m.seq), TeacherID: &teacherID}
	if userID != "" {
		s.UserID = &userID
	}
	m.students[s.ID] = s
	return s
}

func (m *memStore) InsertCode(_ context.Context, c *Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.codes {
		if existing.Code == c.Code {
			return errCodeTaken
		}
	}
	m.seq++
	c.ID = fmt.Sprintf("code-%d", m.seq)
	m.codes[c.ID] = *c
	return nil
}

func (m *memStore) CodeByValue(_ context.Context, code string) (*Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.Code == code {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CodesByTeacherSince(_ context.Context, teacherID string, since time.Time) ([]Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Code
	for _, c := range m.codes {
		if c.TeacherID == teacherID && !c.CreatedAt.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) PurgeCodes(_ context.Context, createdBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, c := range m.codes {
		if c.CreatedAt.Before(createdBefore) {
			delete(m.codes, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) InsertRecord(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.StudentID == rec.StudentID && existing.CodeID == rec.CodeID && existing.AttendedOn == rec.AttendedOn {
			return ErrDuplicate
		}
	}
	m.seq++
	rec.ID = fmt.Sprintf("record-%d", m.seq)
	m.records = append(m.records, *rec)
	return nil
}

func (m *memStore) RecordsByStudent(_ context.Context, studentID string, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, rec := range m.records {
		if rec.StudentID == studentID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) RecordsForTeacherSince(_ context.Context, teacherID string, since time.Time) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, rec := range m.records {
		st, ok := m.students[rec.StudentID]
		if !ok || st.TeacherID == nil || *st.TeacherID != teacherID {
			continue
		}
		if rec.TeacherID == teacherID && !rec.CodeCreatedAt.Before(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) TeacherByUserID(_ context.Context, userID string) (*account.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teachers {
		if t.UserID == userID {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) StudentByUserID(_ context.Context, userID string) (*account.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.UserID != nil && *s.UserID == userID {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CountStudents(_ context.Context, teacherID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.students {
		if s.TeacherID != nil && *s.TeacherID == teacherID {
			n++
		}
	}
	return n, nil
}

// fakeClock is a settable time source shared by registry and ledger.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
