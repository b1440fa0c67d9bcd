package postgresql

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docent-service/internal/entity"
)

// testPool connects to DOCENT_TEST_DATABASE_URL and migrates a throwaway
// schema that is dropped when the test ends.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DOCENT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("DOCENT_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	admin, err := NewPool(ctx, dsn, PoolConfig{MaxConns: 2})
	require.NoError(t, err)
	t.Cleanup(admin.Close)

	schema := fmt.Sprintf("docent_test_%d", time.Now().UnixNano())
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool, zerolog.Nop()))
	// Applying twice is a no-op.
	require.NoError(t, Migrate(ctx, pool, zerolog.Nop()))
	return pool
}

func TestConversationRepository_Messages(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewConversationRepository(pool)

	frozen := time.Date(2025, 7, 3, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return frozen }

	session := uuid.New()
	_, err := repo.Messages(ctx, session)
	require.ErrorIs(t, err, ErrNotFound)

	url := "/media/generated/a.png"
	first, err := repo.AppendMessage(ctx, session, entity.SenderUser, "who painted this?", nil)
	require.NoError(t, err)
	second, err := repo.AppendMessage(ctx, session, entity.SenderAssistant, "here it is", &url)
	require.NoError(t, err)
	assert.True(t, second.Timestamp.After(first.Timestamp))

	msgs, err := repo.Messages(ctx, session)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.SenderUser, msgs[0].Sender)
	assert.Equal(t, "who painted this?", msgs[0].Text)
	assert.Nil(t, msgs[0].ImageURL)
	assert.Equal(t, entity.SenderAssistant, msgs[1].Sender)
	require.NotNil(t, msgs[1].ImageURL)
	assert.Equal(t, url, *msgs[1].ImageURL)

	conv, err := repo.GetOrCreate(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, msgs[0].ConversationID, conv.ID)

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, session, list[0].SessionID)
	assert.Equal(t, "who painted this?", list[0].FirstMessage)
}

func TestArtifactRepository(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewArtifactRepository(pool)

	a := &entity.GeneratedArtifact{
		JobID:      uuid.New(),
		Title:      "harbour",
		Prompt:     "a harbour at dusk",
		ImageType:  "t2i",
		StorageKey: "generated/a.png",
		URL:        "/media/generated/a.png",
	}
	require.NoError(t, repo.Create(ctx, a))
	require.NotZero(t, a.ID)

	public, err := repo.ListPublic(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, public)

	require.NoError(t, repo.SetPublic(ctx, a.ID, true))
	public, err = repo.ListPublic(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, a.JobID, public[0].JobID)

	viewed, err := repo.View(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, viewed.Views)

	likes, err := repo.Like(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, likes)

	_, err = repo.View(ctx, a.ID+1000)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Like(ctx, a.ID+1000)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.SetPublic(ctx, a.ID+1000, true), ErrNotFound)
}

func TestJobRepository(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewJobRepository(pool)

	req := entity.JobRequest{ID: uuid.New(), ConversationID: uuid.New(), Mode: entity.ModeTextToImage, PositiveText: "a red car"}
	_, err := repo.GetStatus(ctx, req.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Create(ctx, req))
	require.NoError(t, repo.Create(ctx, req))

	st, err := repo.GetStatus(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatePending, st.State)
	assert.Equal(t, 0, st.Progress)

	url := "/media/generated/car.png"
	require.NoError(t, repo.Finish(ctx, entity.JobStatus{
		JobID:       req.ID,
		State:       entity.StateSucceeded,
		Progress:    100,
		Message:     "done",
		ExecutionID: "p1",
		ArtifactURL: &url,
	}))

	st, err = repo.GetStatus(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateSucceeded, st.State)
	assert.Equal(t, 100, st.Progress)
	assert.Equal(t, "p1", st.ExecutionID)
	require.NotNil(t, st.ArtifactURL)
	assert.Equal(t, url, *st.ArtifactURL)
	assert.Nil(t, st.ErrorDetail)

	require.ErrorIs(t, repo.Finish(ctx, entity.JobStatus{JobID: uuid.New(), State: entity.StateFailed}), ErrNotFound)
}
