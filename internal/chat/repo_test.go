package chat

import (
	"context"
	"fmt"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Session{}, &Message{}, &TurnJob{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestRepoSessionRoundTrip(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	s := &Session{SessionID: "01TESTSESSIONID0000000000A", ConversationID: "conv-1"}
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := repo.GetSessionBySessionID(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.ConversationID != "conv-1" {
		t.Fatalf("unexpected conversation: %q", got.ConversationID)
	}
}

func TestRepoListSessionsNewestFirst(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s := &Session{
			SessionID:      fmt.Sprintf("01TESTSESSIONID000000000%02d", i),
			ConversationID: "conv-1",
		}
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("create session %d: %v", i, err)
		}
	}
	if err := repo.CreateSession(ctx, &Session{SessionID: "01OTHERSESSION000000000000", ConversationID: "conv-2"}); err != nil {
		t.Fatalf("create other session: %v", err)
	}

	sessions, err := repo.ListSessions(ctx, "conv-1")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	if sessions[0].SessionID != "01TESTSESSIONID00000000002" {
		t.Fatalf("expected newest first, got %q", sessions[0].SessionID)
	}
}

func TestRepoListRecentMessagesBounded(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		m := &Message{
			MessageID:      fmt.Sprintf("msg-%d", i),
			SessionID:      "sess-1",
			ConversationID: "conv-1",
			Role:           RoleUser,
			Content:        fmt.Sprintf("m%d", i),
		}
		if err := repo.InsertMessage(ctx, m); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	msgs, err := repo.ListRecentMessagesDesc(ctx, "sess-1", 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "m4" || msgs[1].Content != "m3" {
		t.Fatalf("expected newest first, got %q then %q", msgs[0].Content, msgs[1].Content)
	}
}

func TestRepoListMessagesKeysetPagination(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := repo.InsertMessage(ctx, &Message{
			MessageID:      fmt.Sprintf("msg-%d", i),
			SessionID:      "sess-1",
			ConversationID: "conv-1",
			Role:           RoleUser,
			Content:        fmt.Sprintf("m%d", i),
		}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	page1, err := repo.ListMessages(ctx, "sess-1", 2, 0)
	if err != nil {
		t.Fatalf("page1: %v", err)
	}
	if len(page1) != 2 || page1[0].Content != "m3" {
		t.Fatalf("unexpected page1: %+v", page1)
	}

	page2, err := repo.ListMessages(ctx, "sess-1", 2, page1[len(page1)-1].ID)
	if err != nil {
		t.Fatalf("page2: %v", err)
	}
	if len(page2) != 2 || page2[0].Content != "m1" {
		t.Fatalf("unexpected page2: %+v", page2)
	}
}

func TestRepoJobLifecycle(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	job := &TurnJob{ID: "01JOB000000000000000000000", ConversationID: "conv-1", Prompt: "p", Status: JobQueued}
	if err := repo.CreateJob(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := repo.UpdateJobStatusRunning(ctx, job.ID); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	if err := repo.MarkJobSucceeded(ctx, job.ID, "msg-uuid"); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}

	got, err := repo.GetJobByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != JobSucceeded || got.ResultMessageID == nil || *got.ResultMessageID != "msg-uuid" {
		t.Fatalf("unexpected job state: %+v", got)
	}

	if err := repo.MarkJobFailed(ctx, job.ID, "boom"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	got, err = repo.GetJobByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != JobFailed || got.Error == nil || *got.Error != "boom" {
		t.Fatalf("unexpected failed state: %+v", got)
	}
}

func TestCoordinatorWithGormRepo(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	prov := &fakeProvider{turns: []fakeTurn{{chunks: []string{"Hi"}}}}
	rec := &recordingEmitter{}
	c := NewCoordinator("conv-1", repo, prov, rec, 20)

	msg, err := waitTurn(t, c.Submit(context.Background(), "Hello"))
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	msgs, err := repo.ListRecentMessagesDesc(context.Background(), msg.SessionID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleAssistant || msgs[0].Content != "Hi" {
		t.Fatalf("unexpected newest message: %+v", msgs[0])
	}
	if msgs[1].Role != RoleUser || msgs[1].Content != "Hello" {
		t.Fatalf("unexpected user message: %+v", msgs[1])
	}
}
