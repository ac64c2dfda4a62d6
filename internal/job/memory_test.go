package job

import (
	"context"
	"testing"
)

func TestMemoryRepository_Save(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	job := New(1, "a.wav", "assemblyai")

	err := repo.Save(ctx, job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := repo.FindByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID != job.ID {
		t.Errorf("expected ID %s, got %s", job.ID, saved.ID)
	}
}

func TestMemoryRepository_Save_Update(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	job := New(1, "a.wav", "assemblyai")

	_ = repo.Save(ctx, job)

	_ = job.RecordPoll("t-1", 7)
	_ = repo.Save(ctx, job)

	saved, _ := repo.FindByID(ctx, job.ID)
	if saved.Status != StatusPolling {
		t.Errorf("expected status %s, got %s", StatusPolling, saved.Status)
	}
	if saved.Polls != 7 {
		t.Errorf("expected 7 polls, got %d", saved.Polls)
	}
}

func TestMemoryRepository_FindByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "nonexistent")
	if err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryRepository_FindByID_ReturnsClone(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	job := New(1, "a.wav", "assemblyai")
	_ = repo.Save(ctx, job)

	found, _ := repo.FindByID(ctx, job.ID)
	_ = found.Fail("boom")

	original, _ := repo.FindByID(ctx, job.ID)
	if original.Status != StatusSubmitted {
		t.Error("modifying returned job status should not affect repository")
	}
	if original.Error != "" {
		t.Error("modifying returned job should not affect repository")
	}
}

func TestMemoryRepository_List(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	jobs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("expected 0 jobs, got %d", len(jobs))
	}

	// Saved out of order on purpose.
	_ = repo.Save(ctx, New(3, "c.wav", "gemini"))
	_ = repo.Save(ctx, New(1, "a.wav", "gemini"))
	_ = repo.Save(ctx, New(2, "b.wav", "gemini"))

	jobs, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	for i, j := range jobs {
		if j.Index != i+1 {
			t.Errorf("position %d: expected index %d, got %d", i, i+1, j.Index)
		}
	}
}

func TestMemoryRepository_List_ReturnsClones(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	job := New(1, "a.wav", "assemblyai")
	_ = repo.Save(ctx, job)

	jobs, _ := repo.List(ctx)
	jobs[0].Polls = 99

	original, _ := repo.FindByID(ctx, job.ID)
	if original.Polls != 0 {
		t.Error("modifying listed job should not affect repository")
	}
}

func TestMemoryRepository_ConcurrentAccess(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	done := make(chan bool)

	go func() {
		for i := 0; i < 100; i++ {
			_ = repo.Save(ctx, New(i, "a.wav", "assemblyai"))
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			_, _ = repo.List(ctx)
		}
		done <- true
	}()

	<-done
	<-done
}
