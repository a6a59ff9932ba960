package repository

import (
	"errors"
	"testing"
	"time"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *int64:
			*d = v.(int64)
		case *string:
			*d = v.(string)
		case *float64:
			*d = v.(float64)
		case *bool:
			*d = v.(bool)
		case *[]byte:
			if v != nil {
				*d = v.([]byte)
			}
		case *time.Time:
			*d = v.(time.Time)
		case **time.Time:
			if v != nil {
				t := v.(time.Time)
				*d = &t
			}
		default:
			return errors.New("unsupported destination")
		}
	}
	return nil
}

func TestScanMeeting(t *testing.T) {
	start := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	row := fakeRow{values: []any{
		int64(7), "https://discord.com/channels/1/2", "discord", start, end, 1800.0, "/rec/a.wav",
		"hello", []byte(`{"executive_summary":"x"}`), nil, "/out/a.pdf", true, "a@example.com", start,
	}}
	m, err := scanMeeting(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ID != 7 || m.Platform != "discord" || m.EndTime == nil || !m.EndTime.Equal(end) {
		t.Fatalf("unexpected meeting: %+v", m)
	}
	if string(m.SummaryJSON) != `{"executive_summary":"x"}` || m.OutputsJSON != nil || !m.EmailSent {
		t.Fatalf("unexpected payload columns: %+v", m)
	}
}

func TestScanMeeting_Error(t *testing.T) {
	if _, err := scanMeeting(fakeRow{err: errors.New("boom")}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNullableJSON(t *testing.T) {
	if nullableJSON(nil) != nil {
		t.Fatal("expected nil for empty json")
	}
	if nullableJSON([]byte(`{}`)) != "{}" {
		t.Fatal("expected json text")
	}
}
