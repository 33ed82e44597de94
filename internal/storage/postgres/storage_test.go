package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/sagespace/internal/model"
	"github.com/mcoot/sagespace/internal/storage/postgres/migrations"
	"github.com/mcoot/sagespace/internal/storage/storagetest"
)

var (
	insertAccountQuery = `(?s)^INSERT\s+INTO\s+accounts\s*\(id,\s*username,.*version\)\s*VALUES\s*\(\$1,.*\$13,\s*1\)$`
	selectByIDQuery    = `(?s)^SELECT\s+id,\s*username,.*FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1$`
	selectByEmailQuery = `(?s)^SELECT\s+id,.*FROM\s+accounts\s+WHERE\s+email\s*=\s*\$1$`
	selectByNameQuery  = `(?s)^SELECT\s+id,.*FROM\s+accounts\s+WHERE\s+username\s*=\s*\$1$`
	updateAccountQuery = `(?s)^UPDATE\s+accounts\s+SET.*version\s*=\s*version\s*\+\s*1\s+WHERE\s+id\s*=\s*\$1\s+AND\s+version\s*=\s*\$2$`
	existsQuery        = `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1\)$`
	insertMessageQuery = `(?s)^INSERT\s+INTO\s+messages\s*\(account_id,\s*content,\s*created_at,\s*is_from_user,\s*is_ai\)`
	countMessagesQuery = `(?s)^SELECT\s+COUNT\(\*\)\s+FROM\s+messages\s+WHERE\s+account_id\s*=\s*\$1$`
	listMessagesQuery  = `(?s)^SELECT\s+content,\s*created_at,\s*is_from_user,\s*is_ai\s+FROM\s+messages.*ORDER\s+BY\s+id\s+LIMIT\s+\$2\s+OFFSET\s+\$3$`
)

var accountCols = []string{
	"id", "username", "email", "password_hash", "otp_code", "otp_expiry",
	"is_verified", "is_accepting_messages", "last_verification_sent_at",
	"display_name", "avatar_url", "created_at", "updated_at", "version",
}

var now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newStoreWithMock(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewWithDB(db), mock
}

func accountRow(lastSent any) *sqlmock.Rows {
	return sqlmock.NewRows(accountCols).AddRow(
		"acc-1", "alice_01", "alice@example.com", "$2a$04$hash", "123456", now.Add(5*time.Minute),
		false, true, lastSent,
		"", "", now, now, int64(3),
	)
}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func TestCreateAccount_Success(t *testing.T) {
	store, mock := newStoreWithMock(t)

	args := anyArgs(13)
	args[0] = "acc-1"
	args[1] = "alice_01"
	args[2] = "alice@example.com"
	mock.ExpectExec(insertAccountQuery).WithArgs(args...).WillReturnResult(sqlmock.NewResult(0, 1))

	acc := storagetest.NewAccount("acc-1", "alice_01", "alice@example.com")
	require.NoError(t, store.CreateAccount(context.Background(), acc))
	assert.Equal(t, int64(1), acc.Version)
}

func TestCreateAccount_UniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{emailConstraint, model.ErrEmailTaken},
		{usernameConstraint, model.ErrUsernameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			store, mock := newStoreWithMock(t)
			mock.ExpectExec(insertAccountQuery).
				WithArgs(anyArgs(13)...).
				WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: tt.constraint})

			acc := storagetest.NewAccount("acc-1", "alice_01", "alice@example.com")
			err := store.CreateAccount(context.Background(), acc)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, acc.Version)
		})
	}
}

func TestCreateAccount_DBError(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectExec(insertAccountQuery).WithArgs(anyArgs(13)...).WillReturnError(errors.New("db down"))

	err := store.CreateAccount(context.Background(), storagetest.NewAccount("acc-1", "alice_01", "alice@example.com"))
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db down`, err.Error())
}

func TestGetAccount_Found(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectQuery(selectByIDQuery).WithArgs("acc-1").WillReturnRows(accountRow(now))

	acc, err := store.GetAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, model.AccountID("acc-1"), acc.ID)
	assert.Equal(t, "alice_01", acc.Username)
	assert.Equal(t, "123456", acc.OTPCode)
	assert.True(t, acc.LastVerificationSentAt.Equal(now))
	assert.True(t, acc.IsAcceptingMessages)
	assert.Equal(t, int64(3), acc.Version)
}

func TestGetAccount_NullLastSent(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectQuery(selectByEmailQuery).WithArgs("alice@example.com").WillReturnRows(accountRow(nil))

	acc, err := store.GetAccountByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.False(t, acc.HasSentVerification())
}

func TestGetAccount_NotFound(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectQuery(selectByNameQuery).WithArgs("ghost_001").WillReturnError(sql.ErrNoRows)

	_, err := store.GetAccountByUsername(context.Background(), "ghost_001")
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestUpdateAccount_Success(t *testing.T) {
	store, mock := newStoreWithMock(t)

	args := anyArgs(13)
	args[0] = "acc-1"
	args[1] = int64(3)
	mock.ExpectExec(updateAccountQuery).WithArgs(args...).WillReturnResult(sqlmock.NewResult(0, 1))

	acc := storagetest.NewAccount("acc-1", "alice_01", "alice@example.com")
	acc.Version = 3
	require.NoError(t, store.UpdateAccount(context.Background(), acc))
	assert.Equal(t, int64(4), acc.Version)
}

func TestUpdateAccount_StaleVersion(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectExec(updateAccountQuery).WithArgs(anyArgs(13)...).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(existsQuery).WithArgs("acc-1").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	acc := storagetest.NewAccount("acc-1", "alice_01", "alice@example.com")
	acc.Version = 3
	assert.ErrorIs(t, store.UpdateAccount(context.Background(), acc), model.ErrConcurrentUpdate)
	assert.Equal(t, int64(3), acc.Version)
}

func TestUpdateAccount_NotFound(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectExec(updateAccountQuery).WithArgs(anyArgs(13)...).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(existsQuery).WithArgs("acc-1").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	acc := storagetest.NewAccount("acc-1", "alice_01", "alice@example.com")
	assert.ErrorIs(t, store.UpdateAccount(context.Background(), acc), model.ErrAccountNotFound)
}

func TestUpdateAccount_UsernameTaken(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectExec(updateAccountQuery).
		WithArgs(anyArgs(13)...).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: usernameConstraint})

	acc := storagetest.NewAccount("acc-1", "alice_01", "alice@example.com")
	assert.ErrorIs(t, store.UpdateAccount(context.Background(), acc), model.ErrUsernameTaken)
}

func TestAppendMessage(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectExec(insertMessageQuery).
		WithArgs("acc-1", "hello", now, true, false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.AppendMessage(context.Background(), "acc-1", model.Message{Content: "hello", CreatedAt: now, IsFromUser: true})
	assert.NoError(t, err)
}

func TestAppendMessage_UnknownAccount(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectExec(insertMessageQuery).
		WithArgs(anyArgs(5)...).
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})

	err := store.AppendMessage(context.Background(), "missing", model.Message{Content: "hello"})
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestListMessages(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectQuery(existsQuery).WithArgs("acc-1").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(countMessagesQuery).WithArgs("acc-1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(listMessagesQuery).
		WithArgs("acc-1", int64(2), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"content", "created_at", "is_from_user", "is_ai"}).
			AddRow("second", now.Add(time.Minute), true, false).
			AddRow("third", now.Add(2*time.Minute), true, false))

	msgs, total, err := store.ListMessages(context.Background(), "acc-1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[0].Content)
	assert.Equal(t, "third", msgs[1].Content)
}

func TestListMessages_PastEnd(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectQuery(existsQuery).WithArgs("acc-1").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(countMessagesQuery).WithArgs("acc-1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	msgs, total, err := store.ListMessages(context.Background(), "acc-1", 20, 20)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, msgs)
}

func TestListMessages_UnknownAccount(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectQuery(existsQuery).WithArgs("missing").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, _, err := store.ListMessages(context.Background(), "missing", 0, 20)
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestMigrationsEmbedded(t *testing.T) {
	raw, err := migrations.FS.ReadFile("00001_create_accounts.sql")
	require.NoError(t, err)
	data := string(raw)
	assert.Contains(t, data, "-- +goose Up")
	assert.Contains(t, data, "CONSTRAINT accounts_email_key UNIQUE (email)")
	assert.Contains(t, data, "CONSTRAINT accounts_username_key UNIQUE (username)")
}
