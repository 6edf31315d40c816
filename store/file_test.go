package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	fs, err := OpenFile(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, ok, _ := fs.Get(context.Background(), "123"); ok {
		t.Error("expected empty store")
	}
	if n, _ := fs.Len(context.Background()); n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}
}

func TestFileStorePutGetSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")

	fs, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	rec := Record{RoleID: "r1", ChannelID: "c1"}
	if err := fs.Put(ctx, "42", rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok, err := reopened.Get(ctx, "42")
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if got != rec {
		t.Errorf("Get = %+v, want %+v", got, rec)
	}
}

func TestFileStoreOnDiskLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	fs, _ := OpenFile(path)
	if err := fs.Put(ctx, "42", Record{RoleID: "r1", ChannelID: "c1"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Single JSON object mapping key -> {"role": ..., "channel": ...}.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["42"]["role"] != "r1" || raw["42"]["channel"] != "c1" {
		t.Errorf("unexpected layout: %s", data)
	}
}

func TestFileStoreLegacyNameKeys(t *testing.T) {
	// Records written before identity keying used the sanitized team name as key.
	path := filepath.Join(t.TempDir(), "data.json")
	legacy := `{"Team Rocket": {"role": "r9", "channel": "c9"}}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	fs, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	rec, ok, _ := fs.Get(context.Background(), "Team Rocket")
	if !ok || rec.RoleID != "r9" {
		t.Errorf("legacy record not readable: ok=%v rec=%+v", ok, rec)
	}
}

func TestFileStorePutFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	fs, _ := OpenFile(path)

	// Make the directory read-only so the temp-file write fails.
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	if err := fs.Put(ctx, "42", Record{RoleID: "r1", ChannelID: "c1"}); err == nil {
		t.Fatal("expected Put to fail on read-only dir")
	}
	if _, ok, _ := fs.Get(ctx, "42"); ok {
		t.Error("failed Put left a record in memory")
	}
}

func TestFileStoreConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	fs, _ := OpenFile(path)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			_ = fs.Put(ctx, key, Record{RoleID: key, ChannelID: key})
		}(i)
	}
	wg.Wait()

	if n, _ := fs.Len(ctx); n != 10 {
		t.Errorf("Len = %d, want 10", n)
	}
	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if n, _ := reopened.Len(ctx); n != 10 {
		t.Errorf("persisted Len = %d, want 10", n)
	}
}
