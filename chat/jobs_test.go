package chat

import "testing"

func TestJobTableResolve(t *testing.T) {
	jobs := NewJobTable()
	jobs.Register("job-1", "conv-a")

	id, ok := jobs.Resolve("job-1")
	if !ok || id != "conv-a" {
		t.Errorf("expected conv-a, got %q ok=%v", id, ok)
	}
	if _, ok := jobs.Resolve("job-2"); ok {
		t.Error("unknown job should not resolve")
	}
}

func TestJobTableIgnoresEmptyJobID(t *testing.T) {
	jobs := NewJobTable()
	jobs.Register("", "conv-a")
	if _, ok := jobs.Resolve(""); ok {
		t.Error("empty job id should never be registered")
	}
}

func TestJobTableLastWriteWins(t *testing.T) {
	jobs := NewJobTable()
	jobs.Register("job-1", "conv-a")
	jobs.Register("job-1", "conv-b")
	if id, _ := jobs.Resolve("job-1"); id != "conv-b" {
		t.Errorf("expected conv-b, got %q", id)
	}
}
