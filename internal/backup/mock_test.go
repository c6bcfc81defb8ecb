// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package backup

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// mockStore is an in-memory Store for tests. Individual operations can be
// forced to fail via the err* fields.
type mockStore struct {
	mu        sync.Mutex
	schedules map[string]*Schedule
	records   map[string]*Record

	errDueSchedules error
	errCreateRecord error
	errUpdateRecord error
	errDeleteRecord error
}

func newMockStore() *mockStore {
	return &mockStore{
		schedules: make(map[string]*Schedule),
		records:   make(map[string]*Record),
	}
}

func (m *mockStore) CreateSchedule(_ context.Context, s *Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.schedules[s.ID] = &cp
	return nil
}

func (m *mockStore) GetSchedule(_ context.Context, id string) (*Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockStore) GetScheduleByName(_ context.Context, name string) (*Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.schedules {
		if s.Name == name {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrScheduleNotFound
}

func (m *mockStore) ListSchedules(_ context.Context) ([]*Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStore) UpdateSchedule(_ context.Context, s *Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[s.ID]; !ok {
		return ErrScheduleNotFound
	}
	cp := *s
	m.schedules[s.ID] = &cp
	return nil
}

func (m *mockStore) DeleteSchedule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return ErrScheduleNotFound
	}
	delete(m.schedules, id)
	return nil
}

func (m *mockStore) DueSchedules(_ context.Context, now time.Time) ([]*Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errDueSchedules != nil {
		return nil, m.errDueSchedules
	}
	var out []*Schedule
	for _, s := range m.schedules {
		if s.Enabled && !s.NextRunAt.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRunAt.Before(out[j].NextRunAt) })
	return out, nil
}

func (m *mockStore) CreateRecord(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errCreateRecord != nil {
		return m.errCreateRecord
	}
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *mockStore) UpdateRecord(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errUpdateRecord != nil {
		return m.errUpdateRecord
	}
	if _, ok := m.records[r.ID]; !ok {
		return errors.New("record not found")
	}
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *mockStore) GetRecord(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	cp := *r
	return &cp, nil
}

func (m *mockStore) ListRecords(_ context.Context, limit, offset int) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		cp := *r
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *mockStore) RecordsOlderThan(_ context.Context, kind Kind, cutoff time.Time) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Record
	for _, r := range m.records {
		if r.Kind == kind && r.CreatedAt.Before(cutoff) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockStore) DeleteRecord(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errDeleteRecord != nil {
		return m.errDeleteRecord
	}
	delete(m.records, id)
	return nil
}

func (m *mockStore) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// mockObjectStore is an in-memory ObjectStore.
type mockObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	errPut  error
	errDel  error
	deletes []string
}

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{objects: make(map[string][]byte)}
}

func (m *mockObjectStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errPut != nil {
		return "", m.errPut
	}
	m.objects[key] = append([]byte(nil), data...)
	return "mock://" + key, nil
}

func (m *mockObjectStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, key)
	if m.errDel != nil {
		return m.errDel
	}
	delete(m.objects, key)
	return nil
}

// mockNotifier records dispatched notifications.
type mockNotifier struct {
	mu        sync.Mutex
	successes []Notification
	failures  []Notification
	err       error
}

func (m *mockNotifier) NotifySuccess(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes = append(m.successes, n)
	return m.err
}

func (m *mockNotifier) NotifyFailure(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, n)
	return m.err
}
