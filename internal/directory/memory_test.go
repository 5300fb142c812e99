package directory

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestMemoryInsertFindUpdate(t *testing.T) {
	dir := NewMemory()
	ctx := context.Background()

	m, err := dir.Insert(ctx, Fields{FieldMobileNumber: int64(9876543210), FieldCollege: []any{"X"}})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !strings.HasPrefix(m.ID, "rec") {
		t.Fatalf("expected rec-prefixed id, got %s", m.ID)
	}

	found, err := dir.FindByPhone(ctx, "9876543210")
	if err != nil {
		t.Fatalf("find by phone: %v", err)
	}
	if found.ID != m.ID {
		t.Fatalf("expected %s, got %s", m.ID, found.ID)
	}

	if _, err := dir.Insert(ctx, Fields{FieldMobileNumber: int64(9876543210)}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	updated, err := dir.Update(ctx, m.ID, Fields{FieldCollege: []any{"Y"}, "AreasOfInterest": "web"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Fields["AreasOfInterest"] != "web" {
		t.Fatalf("update not applied: %v", updated.Fields)
	}
	if n, _ := updated.Fields.MobileNumber(); n != 9876543210 {
		t.Fatalf("update dropped existing fields: %v", updated.Fields)
	}

	if _, err := dir.Update(ctx, "recmissing", Fields{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := dir.FindByID(ctx, "recmissing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := dir.FindByPhone(ctx, "1111111111"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	dir := NewMemory()
	ctx := context.Background()
	m, _ := dir.Insert(ctx, Fields{FieldMobileNumber: int64(9876543210)})
	m.Fields["tampered"] = true

	again, _ := dir.FindByID(ctx, m.ID)
	if _, ok := again.Fields["tampered"]; ok {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestMemoryDistinctLists(t *testing.T) {
	dir := NewMemory()
	ctx := context.Background()
	dir.Insert(ctx, Fields{FieldMobileNumber: int64(1), FieldCollege: []any{"MEC"}, FieldSkills: []any{"go", "sql"}})
	dir.Insert(ctx, Fields{FieldMobileNumber: int64(2), FieldCollege: []any{"CET"}, FieldSkills: []any{"go", " rust "}})
	dir.Insert(ctx, Fields{FieldMobileNumber: int64(3)})

	colleges, _ := dir.Colleges(ctx)
	if strings.Join(colleges, ",") != "CET,MEC" {
		t.Fatalf("colleges = %v", colleges)
	}
	skills, _ := dir.Skills(ctx)
	if strings.Join(skills, ",") != "go,rust,sql" {
		t.Fatalf("skills = %v", skills)
	}
}

func TestFieldsMobileNumber(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{int64(9876543210), 9876543210, true},
		{9876543210.0, 9876543210, true},
		{json.Number("9876543210"), 9876543210, true},
		{"9876543210", 9876543210, true},
		{1.5, 0, false},
		{nil, 0, false},
		{[]any{}, 0, false},
	}
	for _, c := range cases {
		got, err := Fields{FieldMobileNumber: c.in}.MobileNumber()
		if (err == nil) != c.ok || got != c.want {
			t.Errorf("MobileNumber(%v) = %d, %v", c.in, got, err)
		}
	}
}
