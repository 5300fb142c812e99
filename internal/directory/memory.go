package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryDirectory struct {
	mu      sync.RWMutex
	members map[string]Member
	byPhone map[int64]string
}

// NewMemory builds an in-memory directory for development and tests.
func NewMemory() Directory {
	return &memoryDirectory{members: make(map[string]Member), byPhone: make(map[int64]string)}
}

// NewRecordID returns an Airtable-style record identifier.
func NewRecordID() string {
	return "rec" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}

func (d *memoryDirectory) FindByPhone(_ context.Context, phone string) (Member, error) {
	n, err := ParsePhone(phone)
	if err != nil {
		return Member{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byPhone[n]
	if !ok {
		return Member{}, ErrNotFound
	}
	return d.clone(d.members[id]), nil
}

func (d *memoryDirectory) FindByID(_ context.Context, id string) (Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.members[id]
	if !ok {
		return Member{}, ErrNotFound
	}
	return d.clone(m), nil
}

func (d *memoryDirectory) Insert(_ context.Context, fields Fields) (Member, error) {
	n, err := fields.MobileNumber()
	if err != nil {
		return Member{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byPhone[n]; exists {
		return Member{}, ErrExists
	}
	m := Member{ID: NewRecordID(), Fields: copyFields(fields), CreatedAt: time.Now().UTC()}
	d.members[m.ID] = m
	d.byPhone[n] = m.ID
	return d.clone(m), nil
}

func (d *memoryDirectory) Update(_ context.Context, id string, fields Fields) (Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.members[id]
	if !ok {
		return Member{}, ErrNotFound
	}
	merged := copyFields(m.Fields)
	for k, v := range fields {
		merged[k] = v
	}
	m.Fields = merged
	d.members[id] = m
	return d.clone(m), nil
}

func (d *memoryDirectory) Colleges(_ context.Context) ([]string, error) {
	return d.distinct(FieldCollege), nil
}

func (d *memoryDirectory) Skills(_ context.Context) ([]string, error) {
	return d.distinct(FieldSkills), nil
}

func (d *memoryDirectory) distinct(field string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	records := make([]Fields, 0, len(d.members))
	for _, m := range d.members {
		records = append(records, m.Fields)
	}
	return distinctValues(records, field)
}

func (d *memoryDirectory) clone(m Member) Member {
	m.Fields = copyFields(m.Fields)
	return m
}
