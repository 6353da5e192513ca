package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2025-06-01T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2025, 6, 1, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2025, 6, 1, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
	if got := ParseTimeDefault("garbage", def); !got.Equal(def) {
		t.Fatalf("expected default on invalid input")
	}
}

func TestAlignHourRange(t *testing.T) {
	from := time.Date(2025, 6, 1, 10, 25, 3, 0, time.UTC)
	to := time.Date(2025, 6, 2, 11, 59, 59, 0, time.UTC)
	af, at := AlignHourRange(from, to)
	if af.Minute() != 0 || af.Second() != 0 || af.Hour() != 10 {
		t.Fatalf("from not aligned: %v", af)
	}
	if at.Minute() != 0 || at.Hour() != 11 {
		t.Fatalf("to not aligned: %v", at)
	}
}
