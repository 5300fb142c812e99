// Package directory stores member records keyed by phone number.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Field names shared with the Airtable "Members" table.
const (
	FieldMobileNumber = "MobileNumber"
	FieldCollege      = "College"
	FieldSkills       = "My_Skills"
)

var (
	// ErrNotFound is returned when no member matches the lookup.
	ErrNotFound = errors.New("member not found")
	// ErrExists is returned by Insert when the phone number is already registered.
	ErrExists = errors.New("member already exists")
)

// Fields is the free-form profile of a member.
type Fields map[string]any

// Member is a stored record.
type Member struct {
	ID        string    `json:"id"`
	Fields    Fields    `json:"fields"`
	CreatedAt time.Time `json:"createdTime"`
}

// Directory is the member record store.
type Directory interface {
	FindByPhone(ctx context.Context, phone string) (Member, error)
	FindByID(ctx context.Context, id string) (Member, error)
	Insert(ctx context.Context, fields Fields) (Member, error)
	Update(ctx context.Context, id string, fields Fields) (Member, error)
	Colleges(ctx context.Context) ([]string, error)
	Skills(ctx context.Context) ([]string, error)
}

// MobileNumber extracts the integer phone number of a record.
func (f Fields) MobileNumber() (int64, error) {
	switch v := f[FieldMobileNumber].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%s is not an integer: %v", FieldMobileNumber, v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, fmt.Errorf("%s is missing", FieldMobileNumber)
	default:
		return 0, fmt.Errorf("%s has unsupported type %T", FieldMobileNumber, v)
	}
}

// ParsePhone converts a phone number string to the stored integer form.
func ParsePhone(phone string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(phone), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid phone number %q: %w", phone, err)
	}
	return n, nil
}

func copyFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// distinctValues collects the sorted distinct string values of field across
// records. List fields contribute each element.
func distinctValues(records []Fields, field string) []string {
	seen := map[string]struct{}{}
	add := func(v any) {
		if s, ok := v.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				seen[s] = struct{}{}
			}
		}
	}
	for _, rec := range records {
		switch v := rec[field].(type) {
		case []any:
			for _, item := range v {
				add(item)
			}
		case []string:
			for _, item := range v {
				add(item)
			}
		default:
			add(v)
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
