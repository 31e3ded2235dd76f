package storage

import (
	"testing"
	"time"
)

func TestBuildExemplarPath(t *testing.T) {
	ts := time.Date(2026, time.February, 19, 22, 5, 0, 0, time.FixedZone("x", -5*3600))
	key, err := BuildExemplarPath(7, ts, "0b7c1c1e-8d4a-4c4b-9b0f-2f1f6f1f6f1f")
	if err != nil {
		t.Fatalf("BuildExemplarPath() error = %v", err)
	}
	want := "exemplars/dataset=7/date=2026-02-20/part-0b7c1c1e-8d4a-4c4b-9b0f-2f1f6f1f6f1f.parquet"
	if key != want {
		t.Fatalf("BuildExemplarPath() = %q, want %q", key, want)
	}
}

func TestExemplarPrefix(t *testing.T) {
	if got := ExemplarPrefix(12); got != "exemplars/dataset=12/" {
		t.Fatalf("ExemplarPrefix() = %q", got)
	}
}

func TestBuildExemplarPathRejectsInvalidInput(t *testing.T) {
	if _, err := BuildExemplarPath(7, time.Now(), "../oops"); err == nil {
		t.Fatal("expected invalid component error")
	}
	if _, err := BuildExemplarPath(0, time.Now(), "part"); err == nil {
		t.Fatal("expected invalid data set error")
	}
}
