// AngelaMos | 2026
// repository_test.go

package ticket

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/eventhub/internal/config"
	"github.com/carterperez-dev/eventhub/internal/core"
	"github.com/carterperez-dev/eventhub/migrations"
)

const testDatabaseEnv = "EVENTHUB_TEST_DATABASE_URL"

var ticketRowColumns = []string{
	"id", "ticket_code", "event_id", "user_id", "event_name", "status",
	"created_at", "checked_in_at",
}

const checkInQuery = `UPDATE tickets\s+` +
	`SET status = \$2, checked_in_at = NOW\(\)\s+` +
	`WHERE ticket_code = \$1 AND status = \$3\s+` +
	`RETURNING`

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

func TestRepositoryCheckIn_OnlyFlipsValidTickets(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(checkInQuery).
		WithArgs("T-M5D4RUO0-AB12C", "CheckedIn", "Valid").
		WillReturnRows(sqlmock.NewRows(ticketRowColumns).AddRow(
			"t-1", "T-M5D4RUO0-AB12C", "e-1", "u-alice", "Jazz Night",
			"CheckedIn", now, now,
		))

	got, err := repo.CheckIn(context.Background(), "T-M5D4RUO0-AB12C")
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, got.Status)
	require.NotNil(t, got.CheckedInAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCheckIn_NoRowIsConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(checkInQuery).
		WithArgs("T-M5D4RUO0-AB12C", "CheckedIn", "Valid").
		WillReturnRows(sqlmock.NewRows(ticketRowColumns))

	_, err := repo.CheckIn(context.Background(), "T-M5D4RUO0-AB12C")
	assert.ErrorIs(t, err, core.ErrConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCheckIn_StoreErrorIsNotConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(checkInQuery).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.CheckIn(context.Background(), "T-M5D4RUO0-AB12C")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrConflict)
}

func openTestDatabase(t *testing.T) *core.Database {
	t.Helper()

	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	ctx := context.Background()
	db, err := core.NewDatabase(ctx, config.DatabaseConfig{
		URL:          url,
		MaxOpenConns: 32,
		MaxIdleConns: 32,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx, migrations.FS))
	return db
}

func TestRepositoryCheckIn_PostgresSingleWinner(t *testing.T) {
	db := openTestDatabase(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	eventID := uuid.New().String()
	_, err := db.DB.ExecContext(ctx, `
		INSERT INTO events (
			id, title, description, event_date, event_time,
			location, ticket_price, total_tickets, status, hoster_id
		) VALUES ($1, 'Jazz Night', 'Live jazz', '2025-06-01', '20:00',
			'Blue Room', 20, 100, 'Approved', 'hoster-1')`, eventID)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.DB.ExecContext(ctx, `DELETE FROM tickets WHERE event_id = $1`, eventID)
		_, _ = db.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	})

	tk := &Ticket{
		ID:        uuid.New().String(),
		Code:      "T-" + uuid.New().String()[:8],
		EventID:   eventID,
		UserID:    "u-alice",
		EventName: "Jazz Night",
		Status:    StatusValid,
	}
	require.NoError(t, repo.Create(ctx, tk))

	const attempts = 16
	var (
		wg        sync.WaitGroup
		wins      atomic.Int32
		conflicts atomic.Int32
	)
	start := make(chan struct{})

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			_, err := repo.CheckIn(ctx, tk.Code)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, core.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(attempts-1), conflicts.Load())

	got, err := repo.GetByCode(ctx, tk.Code)
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, got.Status)
}
