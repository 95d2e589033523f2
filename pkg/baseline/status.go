// Package baseline holds the data model shared by the index builder, the
// scanners and the reporting layer.
package baseline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the Baseline maturity tier of a feature. Values compare by
// maturity: WidelyAvailable > NewlyAvailable > Limited. The zero value is not
// a valid status.
type Status int

const (
	Limited Status = iota + 1
	NewlyAvailable
	WidelyAvailable
)

var statusNames = map[Status]string{
	Limited:         "limited",
	NewlyAvailable:  "newly",
	WidelyAvailable: "widely",
}

// Valid reports whether s is one of the three known tiers.
func (s Status) Valid() bool {
	return s >= Limited && s <= WidelyAvailable
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// Label returns the human readable tier name used in messages and hovers.
func Label(s Status) string {
	switch s {
	case WidelyAvailable:
		return "Widely available"
	case NewlyAvailable:
		return "Newly available"
	case Limited:
		return "Limited availability"
	}
	return "Unknown availability"
}

// ParseStatus accepts both the dataset encoding ("high", "low", "false") and
// the short names used on the command line ("widely", "newly", "limited").
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "widely", "widely-available":
		return WidelyAvailable, nil
	case "low", "newly", "newly-available":
		return NewlyAvailable, nil
	case "false", "limited", "limited-availability":
		return Limited, nil
	}
	return 0, fmt.Errorf("unknown baseline status %q", s)
}

// MarshalJSON encodes the status the way the upstream dataset does:
// "high", "low" or false.
func (s Status) MarshalJSON() ([]byte, error) {
	switch s {
	case WidelyAvailable:
		return []byte(`"high"`), nil
	case NewlyAvailable:
		return []byte(`"low"`), nil
	case Limited:
		return []byte(`false`), nil
	}
	return nil, fmt.Errorf("cannot marshal invalid baseline status %d", int(s))
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		if !t {
			*s = Limited
			return nil
		}
	case string:
		parsed, err := ParseStatus(t)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	return fmt.Errorf("unexpected baseline status %s", string(b))
}

// MarshalYAML keeps YAML output consistent with JSON output.
func (s Status) MarshalYAML() (interface{}, error) {
	switch s {
	case WidelyAvailable:
		return "high", nil
	case NewlyAvailable:
		return "low", nil
	case Limited:
		return false, nil
	}
	return nil, fmt.Errorf("cannot marshal invalid baseline status %d", int(s))
}
