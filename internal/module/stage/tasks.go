package stage

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

type namedTask struct {
	TaskName *string `json:"task_name"`
}

// ParseTaskNames accepts a JSON array of names or {"task_name": ...}
// objects, a comma separated string, or a single {"task_name": ...} object.
// Blank names are dropped. Absent or null input yields no names.
func ParseTaskNames(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, ErrInvalidTasksFormat
		}
		return compact(strings.Split(s, ",")), nil

	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, ErrInvalidTasksFormat
		}
		names := make([]string, 0, len(items))
		for _, item := range items {
			name, err := itemName(item)
			if err != nil {
				return nil, err
			}
			names = append(names, name)
		}
		return compact(names), nil

	case '{':
		var obj namedTask
		if err := json.Unmarshal(raw, &obj); err != nil || obj.TaskName == nil {
			return nil, ErrInvalidTasksFormat
		}
		return compact([]string{*obj.TaskName}), nil

	default:
		return nil, ErrInvalidTasksFormat
	}
}

func itemName(item json.RawMessage) (string, error) {
	item = bytes.TrimSpace(item)
	if len(item) > 0 && item[0] == '{' {
		var obj namedTask
		if err := json.Unmarshal(item, &obj); err != nil || obj.TaskName == nil {
			return "", ErrInvalidTasksFormat
		}
		return *obj.TaskName, nil
	}

	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return s, nil
	}
	// Numbers and booleans are accepted as their literal text.
	var v interface{}
	if err := json.Unmarshal(item, &v); err != nil || v == nil {
		return "", ErrInvalidTasksFormat
	}
	return string(item), nil
}

func compact(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// validateTaskName trims and bounds a task name.
func validateTaskName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < MinTaskNameLength || n > MaxTaskNameLength {
		return "", ErrInvalidTaskName
	}
	return name, nil
}
