package tutor_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	tutorrepo "github.com/jcondon11/lilibet-backend/internal/data/repos/tutor"
	"github.com/jcondon11/lilibet-backend/internal/data/repos/testutil"
	types "github.com/jcondon11/lilibet-backend/internal/domain"
	"github.com/jcondon11/lilibet-backend/internal/pkg/dbctx"
)

func TestConversationRepoCreateAndGet(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	repo := tutorrepo.NewConversationRepo(db, log)

	u := testutil.SeedUser(t, ctx, tx, "convrepo@example.com")
	c := testutil.SeedConversation(t, ctx, tx, u.ID, "math")

	rows, err := repo.GetByIDs(dbc, []uuid.UUID{c.ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(rows))
	}
	if rows[0].Subject != "math" {
		t.Fatalf("expected subject math, got %q", rows[0].Subject)
	}
}

func TestConversationRepoListByUserFiltersArchived(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	repo := tutorrepo.NewConversationRepo(db, log)

	u := testutil.SeedUser(t, ctx, tx, "convlist@example.com")
	active := testutil.SeedConversation(t, ctx, tx, u.ID, "science")
	archived := testutil.SeedConversation(t, ctx, tx, u.ID, "history")
	if err := repo.UpdateFields(dbc, archived.ID, map[string]interface{}{
		"status": types.ConversationStatusArchived,
	}); err != nil {
		t.Fatalf("archive: %v", err)
	}

	rows, err := repo.ListByUser(dbc, u.ID, false, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != active.ID {
		t.Fatalf("expected only the active conversation, got %d rows", len(rows))
	}

	rows, err = repo.ListByUser(dbc, u.ID, true, 0)
	if err != nil {
		t.Fatalf("ListByUser include archived: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both conversations, got %d", len(rows))
	}
}

func TestConversationRepoListByUserOrdering(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	repo := tutorrepo.NewConversationRepo(db, log)

	u := testutil.SeedUser(t, ctx, tx, "convorder@example.com")
	older := testutil.SeedConversation(t, ctx, tx, u.ID, "math")
	newer := testutil.SeedConversation(t, ctx, tx, u.ID, "science")
	if err := repo.UpdateFields(dbc, older.ID, map[string]interface{}{
		"last_message_at": time.Now().UTC().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	rows, err := repo.ListByUser(dbc, u.ID, false, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(rows))
	}
	if rows[0].ID != newer.ID {
		t.Fatalf("expected most recent conversation first")
	}
}

func TestConversationRepoLockRequiresTx(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := tutorrepo.NewConversationRepo(db, log)

	_, err := repo.LockByID(dbctx.Context{Ctx: context.Background()}, uuid.New())
	if err == nil {
		t.Fatalf("expected error when locking outside a transaction")
	}
}

func TestMessageRepoSeqAndListing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	repo := tutorrepo.NewMessageRepo(db, log)

	u := testutil.SeedUser(t, ctx, tx, "msgrepo@example.com")
	c := testutil.SeedConversation(t, ctx, tx, u.ID, "math")

	maxSeq, err := repo.GetMaxSeq(dbc, c.ID)
	if err != nil {
		t.Fatalf("GetMaxSeq empty: %v", err)
	}
	if maxSeq != 0 {
		t.Fatalf("expected max seq 0 on empty conversation, got %d", maxSeq)
	}

	testutil.SeedMessage(t, ctx, tx, c.ID, u.ID, 1, types.RoleUser, "what is a fraction?")
	testutil.SeedMessage(t, ctx, tx, c.ID, u.ID, 2, types.RoleAssistant, "What do you think happens when you split one pizza between two people?")
	testutil.SeedMessage(t, ctx, tx, c.ID, u.ID, 3, types.RoleUser, "each gets half")

	maxSeq, err = repo.GetMaxSeq(dbc, c.ID)
	if err != nil {
		t.Fatalf("GetMaxSeq: %v", err)
	}
	if maxSeq != 3 {
		t.Fatalf("expected max seq 3, got %d", maxSeq)
	}

	recent, err := repo.ListRecent(dbc, c.ID, 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 2 || recent[0].Seq != 3 || recent[1].Seq != 2 {
		t.Fatalf("expected newest-first window [3 2], got %v", seqs(recent))
	}

	asc, err := repo.ListByConversation(dbc, c.ID, 10)
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(asc) != 3 || asc[0].Seq != 1 || asc[2].Seq != 3 {
		t.Fatalf("expected ascending seq order, got %v", seqs(asc))
	}
}

func TestMessageRepoCreate(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	repo := tutorrepo.NewMessageRepo(db, log)

	u := testutil.SeedUser(t, ctx, tx, "msgcreate@example.com")
	c := testutil.SeedConversation(t, ctx, tx, u.ID, "science")

	rows := []*types.Message{
		{
			ID:             uuid.New(),
			ConversationID: c.ID,
			UserID:         u.ID,
			Seq:            1,
			Role:           types.RoleUser,
			Content:        "why is the sky blue?",
			Metadata:       datatypes.JSON([]byte(`{"mode":"discovery"}`)),
		},
	}
	created, err := repo.Create(dbc, rows)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 created message, got %d", len(created))
	}

	got, err := repo.ListByConversation(dbc, c.ID, 10)
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(got) != 1 || got[0].Content != "why is the sky blue?" {
		t.Fatalf("created message not readable back")
	}
}

func seqs(rows []*types.Message) []int64 {
	out := make([]int64, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.Seq)
	}
	return out
}
