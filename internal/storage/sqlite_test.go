package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedClock makes the store's timestamps deterministic; advance moves it.
func fixedClock(s *Store, start time.Time) (advance func(time.Duration)) {
	now := start
	s.now = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if err := s1.SetSetting("theme", "dark"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()
	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != 2 || len(v1) != len(v2) {
		t.Errorf("migrations = %v then %v", v1, v2)
	}
	if v, err := s2.GetSetting("theme"); err != nil || v != "dark" {
		t.Errorf("setting after reopen = %q, %v", v, err)
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)
	for _, idx := range []string{"idx_generations_created_at", "idx_jobs_claim"} {
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count); err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found", idx)
		}
	}
}

func TestSettings(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetSetting("backend_url"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSetting(missing) err = %v, want ErrNotFound", err)
	}
	for _, kv := range [][2]string{{"backend_url", "http://a"}, {"backend_url", "http://b"}, {"last_intent", "hiring"}} {
		if err := s.SetSetting(kv[0], kv[1]); err != nil {
			t.Fatalf("SetSetting(%s): %v", kv[0], err)
		}
	}
	if v, _ := s.GetSetting("backend_url"); v != "http://b" {
		t.Errorf("backend_url = %q, want overwritten value", v)
	}
	all, err := s.GetAllSettings()
	if err != nil {
		t.Fatalf("GetAllSettings: %v", err)
	}
	if len(all) != 2 || all["last_intent"] != "hiring" {
		t.Errorf("GetAllSettings = %v", all)
	}
}

func TestGenerations(t *testing.T) {
	s := openTestStore(t)
	advance := fixedClock(s, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	for i := range 3 {
		g := Generation{
			ID:          fmt.Sprintf("g%d", i),
			ProfileName: "Ada Lovelace",
			ProfileURL:  "https://www.linkedin.com/in/ada/",
			Intent:      "hiring",
			Source:      "local",
			Content:     fmt.Sprintf("message %d", i),
		}
		if i == 2 {
			g.Attempts = json.RawMessage(`[{"tier":"backend","error":"Backend URL not set"}]`)
		}
		if err := s.SaveGeneration(g); err != nil {
			t.Fatalf("SaveGeneration: %v", err)
		}
		advance(time.Millisecond)
	}

	recent, err := s.RecentGenerations(2)
	if err != nil {
		t.Fatalf("RecentGenerations: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "g2" || recent[1].ID != "g1" {
		t.Fatalf("RecentGenerations = %+v", recent)
	}
	if string(recent[0].Attempts) == "[]" || string(recent[1].Attempts) != "[]" {
		t.Errorf("attempts = %s / %s", recent[0].Attempts, recent[1].Attempts)
	}
	if !recent[0].CreatedAt.Equal(time.Date(2026, 3, 1, 9, 0, 0, int(2*time.Millisecond), time.UTC)) {
		t.Errorf("CreatedAt = %v", recent[0].CreatedAt)
	}

	g, err := s.GetGeneration("g0")
	if err != nil || g.Content != "message 0" || g.ProfileURL == "" {
		t.Errorf("GetGeneration = %+v, %v", g, err)
	}
	if _, err := s.GetGeneration("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetGeneration(missing) err = %v", err)
	}

	all, _ := s.RecentGenerations(0)
	if len(all) != 3 {
		t.Errorf("RecentGenerations(0) = %d rows, want all 3", len(all))
	}
}

func TestEnqueueAndClaimJob(t *testing.T) {
	s := openTestStore(t)

	id, err := s.EnqueueJob(Job{Type: "generate", PayloadJSON: `{"path":"ada.html"}`})
	if err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if id == "" {
		t.Fatal("EnqueueJob returned empty ID")
	}

	got, err := s.ClaimNextJob([]string{"generate"})
	if err != nil || got == nil {
		t.Fatalf("ClaimNextJob = %v, %v", got, err)
	}
	if got.ID != id || got.Status != JobRunning || got.MaxAttempts != defaultMaxAttempts || got.PayloadJSON != `{"path":"ada.html"}` {
		t.Errorf("claimed job = %+v", got)
	}

	again, err := s.ClaimNextJob([]string{"generate"})
	if err != nil || again != nil {
		t.Errorf("second claim = %+v, %v; running jobs must not be claimed twice", again, err)
	}
}

func TestClaimNextJob_Filters(t *testing.T) {
	s := openTestStore(t)
	advance := fixedClock(s, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	if got, err := s.ClaimNextJob(nil); got != nil || err != nil {
		t.Errorf("ClaimNextJob(nil) = %v, %v", got, err)
	}
	if _, err := s.EnqueueJob(Job{ID: "later", Type: "generate", PayloadJSON: `{}`, RunAfter: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EnqueueJob(Job{ID: "other", Type: "scrape", PayloadJSON: `{}`}); err != nil {
		t.Fatal(err)
	}

	if got, _ := s.ClaimNextJob([]string{"generate"}); got != nil {
		t.Errorf("claimed %s before run_after", got.ID)
	}
	advance(2 * time.Hour)
	got, _ := s.ClaimNextJob([]string{"generate"})
	if got == nil || got.ID != "later" {
		t.Errorf("claim after run_after = %+v", got)
	}
}

func TestCompleteJob(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.EnqueueJob(Job{Type: "generate", PayloadJSON: `{}`})
	if _, err := s.ClaimNextJob([]string{"generate"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CompleteJob(id, "gen-1"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	j, err := s.GetJob(id)
	if err != nil || j.Status != JobCompleted || j.Result != "gen-1" {
		t.Errorf("GetJob = %+v, %v", j, err)
	}
	if err := s.CompleteJob("missing", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("CompleteJob(missing) err = %v", err)
	}
}

func TestFailJob(t *testing.T) {
	s := openTestStore(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fixedClock(s, start)

	retry, _ := s.EnqueueJob(Job{Type: "generate", PayloadJSON: `{}`})
	final, _ := s.EnqueueJob(Job{Type: "generate", PayloadJSON: `{}`, MaxAttempts: 1})

	if err := s.FailJob(retry, "snapshot missing"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}
	j, _ := s.GetJob(retry)
	if j.Status != JobPending || j.Attempts != 1 || j.LastError != "snapshot missing" {
		t.Errorf("retried job = %+v", j)
	}
	if !j.RunAfter.Equal(start.Add(2 * time.Second)) {
		t.Errorf("RunAfter = %v, want 2s backoff", j.RunAfter)
	}

	if err := s.FailJob(final, "fatal"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}
	if j, _ := s.GetJob(final); j.Status != JobFailed {
		t.Errorf("exhausted job status = %q", j.Status)
	}
	if err := s.FailJob("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FailJob(missing) err = %v", err)
	}
}

func TestListJobs(t *testing.T) {
	s := openTestStore(t)
	advance := fixedClock(s, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	for i := range 3 {
		if _, err := s.EnqueueJob(Job{ID: fmt.Sprintf("j%d", i), Type: "generate", PayloadJSON: `{}`}); err != nil {
			t.Fatal(err)
		}
		advance(time.Second)
	}
	if err := s.CompleteJob("j0", "g"); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListJobs("", 10)
	if err != nil || len(all) != 3 || all[0].ID != "j2" {
		t.Errorf("ListJobs = %+v, %v", all, err)
	}
	pending, _ := s.ListJobs(JobPending, 10)
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}
}
