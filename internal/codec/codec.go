// Package codec implements the flat-text archive format:
//
//	id<VS>timestamp<VS>content<ES>id<VS>timestamp<VS>content...
//
// There is no escaping. Content containing either separator cannot be
// decoded back to the original record.
package codec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"fakearchive/internal/model"
)

const (
	DefaultValueSeparator = ";/-;"
	DefaultEntrySeparator = ";?-;"

	fieldCount = 3
)

type Codec struct {
	ValueSeparator string
	EntrySeparator string
}

func New(valueSep, entrySep string) Codec {
	if valueSep == "" {
		valueSep = DefaultValueSeparator
	}
	if entrySep == "" {
		entrySep = DefaultEntrySeparator
	}
	return Codec{ValueSeparator: valueSep, EntrySeparator: entrySep}
}

func (c Codec) Encode(messages []model.Message) string {
	entries := make([]string, 0, len(messages))
	for _, m := range messages {
		entries = append(entries,
			strconv.FormatInt(m.ID, 10)+c.ValueSeparator+
				strconv.FormatInt(m.Timestamp, 10)+c.ValueSeparator+
				m.Content)
	}
	return strings.Join(entries, c.EntrySeparator)
}

// Decode never fails. Missing or non-numeric fields decode to zero values
// and fields beyond the third are dropped.
func (c Codec) Decode(raw string) []model.Message {
	messages := []model.Message{}
	if raw == "" {
		return messages
	}

	for _, entry := range strings.Split(raw, c.EntrySeparator) {
		fields := strings.Split(entry, c.ValueSeparator)
		var m model.Message
		m.ID = parseNumber(fields[0])
		if len(fields) > 1 {
			m.Timestamp = parseNumber(fields[1])
		}
		if len(fields) > 2 {
			m.Content = fields[2]
		}
		messages = append(messages, m)
	}
	return messages
}

// Validate reports entries that do not split into exactly three fields.
func (c Codec) Validate(raw string) error {
	if raw == "" {
		return nil
	}
	var errs []error
	for i, entry := range strings.Split(raw, c.EntrySeparator) {
		if n := len(strings.Split(entry, c.ValueSeparator)); n != fieldCount {
			errs = append(errs, fmt.Errorf("entry %d: expected %d fields, got %d", i, fieldCount, n))
		}
	}
	return errors.Join(errs...)
}

func parseNumber(s string) int64 {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if n, ok := parsePrefixed(s); ok {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

// parsePrefixed accepts unsigned 0x, 0o and 0b literals. A sign after the
// prefix is rejected.
func parsePrefixed(s string) (int64, bool) {
	if len(s) < 3 || s[0] != '0' {
		return 0, false
	}
	var base int
	switch s[1] {
	case 'x', 'X':
		base = 16
	case 'o', 'O':
		base = 8
	case 'b', 'B':
		base = 2
	default:
		return 0, false
	}
	digits := s[2:]
	if digits[0] == '+' || digits[0] == '-' {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
