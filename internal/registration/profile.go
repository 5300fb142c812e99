package registration

import (
	"strings"

	"github.com/jenga-hub/jenga/internal/directory"
)

// normalizeProfile prepares a submitted profile for the directory: the college
// becomes a one-element list, the phone number from the session is stored as
// an integer and a comma separated skills string becomes a list.
func normalizeProfile(payload directory.Fields, number string) (directory.Fields, error) {
	mobile, err := directory.ParsePhone(number)
	if err != nil {
		return nil, err
	}

	fields := make(directory.Fields, len(payload)+1)
	for k, v := range payload {
		fields[k] = v
	}
	fields[directory.FieldMobileNumber] = mobile

	switch college := fields[directory.FieldCollege].(type) {
	case nil, []any:
	case string:
		if college != "" {
			fields[directory.FieldCollege] = []any{college}
		}
	default:
		fields[directory.FieldCollege] = []any{college}
	}

	if skills, ok := fields[directory.FieldSkills].(string); ok && strings.TrimSpace(skills) != "" {
		fields[directory.FieldSkills] = splitSkills(skills)
	}
	return fields, nil
}

func splitSkills(raw string) []any {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
