package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/mwhitford/wp-harvester/internal/harvest"
)

func TestListByStatusScansLinks(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("SELECT href, status, processed_at, created_at").
		WithArgs(int(harvest.StatusPending)).
		WillReturnRows(pgxmock.NewRows([]string{"href", "status", "processed_at", "created_at"}).
			AddRow("https://legacy.example.com/a", 0, nil, created).
			AddRow("https://legacy.example.com/b", 0, nil, created.Add(time.Second)))

	store := NewLinkStore(mock)
	links, err := store.ListByStatus(context.Background(), harvest.StatusPending)
	require.NoError(t, err)
	require.Len(t, links, 2)
	require.Equal(t, "https://legacy.example.com/a", links[0].Href)
	require.Equal(t, harvest.StatusPending, links[0].Status)
	require.Nil(t, links[0].ProcessedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPendingSkipsConflicts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO found_links").
		WithArgs("https://legacy.example.com/new", int(harvest.StatusPending)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO found_links").
		WithArgs("https://legacy.example.com/known", int(harvest.StatusPending)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	store := NewLinkStore(mock)
	inserted, err := store.InsertPending(context.Background(), []string{
		"https://legacy.example.com/new",
		"https://legacy.example.com/known",
	})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertStatus(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO found_links").
		WithArgs("https://legacy.example.com/a", int(harvest.StatusVisited)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewLinkStore(mock)
	err = store.UpsertStatus(context.Background(), "https://legacy.example.com/a", harvest.StatusVisited)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkProcessedMissingLink(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Unix(1700000000, 0).UTC()
	mock.ExpectExec("UPDATE found_links SET processed_at").
		WithArgs("https://legacy.example.com/gone", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewLinkStore(mock)
	err = store.MarkProcessed(context.Background(), "https://legacy.example.com/gone", at)
	require.ErrorIs(t, err, harvest.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOldestUnprocessedArticleNoWork(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT href, status, processed_at, created_at").
		WithArgs(int(harvest.StatusArticle)).
		WillReturnRows(pgxmock.NewRows([]string{"href", "status", "processed_at", "created_at"}))

	store := NewLinkStore(mock)
	_, err = store.OldestUnprocessedArticle(context.Background())
	require.ErrorIs(t, err, harvest.ErrNoWork)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOldestUnprocessedArticle(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("SELECT href, status, processed_at, created_at").
		WithArgs(int(harvest.StatusArticle)).
		WillReturnRows(pgxmock.NewRows([]string{"href", "status", "processed_at", "created_at"}).
			AddRow("https://legacy.example.com/oldest", int(harvest.StatusArticle), nil, created))

	store := NewLinkStore(mock)
	link, err := store.OldestUnprocessedArticle(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://legacy.example.com/oldest", link.Href)
	require.Equal(t, harvest.StatusArticle, link.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceStatements(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM found_links a").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("DELETE FROM found_links WHERE href").
		WithArgs([]string{"https://legacy.example.com/a?x=1"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("UPDATE found_links SET status").
		WithArgs(int(harvest.StatusFile), harvest.FileExtensionPattern()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	store := NewLinkStore(mock)

	dups, err := store.DeleteDuplicates(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), dups)

	deleted, err := store.DeleteByHref(context.Background(), []string{"https://legacy.example.com/a?x=1"})
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	forced, err := store.ForceFileStatus(context.Background(), harvest.FileExtensionPattern())
	require.NoError(t, err)
	require.Equal(t, int64(3), forced)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByHrefEmptyInput(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewLinkStore(mock)
	deleted, err := store.DeleteByHref(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}
