package main

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/inkwell-app/inkwell/internal/ai"
	"github.com/inkwell-app/inkwell/internal/bridge"
	"github.com/inkwell-app/inkwell/internal/chat"
	"github.com/inkwell-app/inkwell/internal/common"
)

type scriptProvider struct {
	chunks []string
	err    error
}

func (p *scriptProvider) StreamChat(ctx context.Context, _ []ai.Message) (<-chan string, <-chan error) {
	chunks := make(chan string, len(p.chunks))
	errs := make(chan error, 1)
	for _, c := range p.chunks {
		chunks <- c
	}
	if p.err != nil {
		errs <- p.err
	}
	close(chunks)
	close(errs)
	return chunks, errs
}

func newTestRepo(t *testing.T) *chat.Repo {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&chat.Session{}, &chat.Message{}, &chat.TurnJob{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return chat.NewRepo(gdb)
}

func queueJob(t *testing.T, repo *chat.Repo, conversationID, prompt string) string {
	t.Helper()
	id, err := common.NewULID()
	if err != nil {
		t.Fatalf("ulid: %v", err)
	}
	job := &chat.TurnJob{ID: id, ConversationID: conversationID, Prompt: prompt, Status: chat.JobQueued}
	if err := repo.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return id
}

func TestHandleJobSuccess(t *testing.T) {
	repo := newTestRepo(t)
	mgr := chat.NewManager(repo, &scriptProvider{chunks: []string{"Hel", "lo"}}, bridge.New(), 10)
	jobID := queueJob(t, repo, "conv-1", "hi")

	if err := handleJob(context.Background(), mgr, repo, jobID); err != nil {
		t.Fatalf("handleJob: %v", err)
	}

	j, err := repo.GetJobByID(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if j.Status != chat.JobSucceeded {
		t.Fatalf("status = %s, want succeeded", j.Status)
	}
	if j.ResultMessageID == nil || *j.ResultMessageID == "" {
		t.Fatalf("succeeded job missing result message id")
	}
}

// A transport failure during the turn is terminal: the outcome lives on
// the job row and redelivering the message would re-run the prompt.
func TestHandleJobTurnFailureIsTerminal(t *testing.T) {
	repo := newTestRepo(t)
	mgr := chat.NewManager(repo, &scriptProvider{err: errors.New("upstream down")}, bridge.New(), 10)
	jobID := queueJob(t, repo, "conv-1", "hi")

	if err := handleJob(context.Background(), mgr, repo, jobID); err != nil {
		t.Fatalf("turn failure should not request redelivery, got %v", err)
	}

	j, err := repo.GetJobByID(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if j.Status != chat.JobFailed {
		t.Fatalf("status = %s, want failed", j.Status)
	}
	if j.Error == nil || *j.Error != "upstream down" {
		t.Fatalf("failed job missing error detail")
	}
}

// A job that cannot even be loaded is worth redelivering.
func TestHandleJobMissingJobIsTransient(t *testing.T) {
	repo := newTestRepo(t)
	mgr := chat.NewManager(repo, &scriptProvider{}, bridge.New(), 10)

	if err := handleJob(context.Background(), mgr, repo, "no-such-job"); err == nil {
		t.Fatalf("expected an error for a missing job")
	}
}

// A redelivery that arrives after the job completed must not re-run the
// prompt or touch the recorded outcome.
func TestHandleJobIgnoresCompletedRedelivery(t *testing.T) {
	repo := newTestRepo(t)
	mgr := chat.NewManager(repo, &scriptProvider{chunks: []string{"again"}}, bridge.New(), 10)
	jobID := queueJob(t, repo, "conv-1", "hi")

	if err := repo.MarkJobFailed(context.Background(), jobID, "already done"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	if err := handleJob(context.Background(), mgr, repo, jobID); err != nil {
		t.Fatalf("handleJob: %v", err)
	}

	j, err := repo.GetJobByID(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if j.Status != chat.JobFailed || j.Error == nil || *j.Error != "already done" {
		t.Fatalf("completed job was overwritten: %+v", j)
	}
}
