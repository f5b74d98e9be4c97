package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-api/internal/model"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return sqlx.NewDb(db, "mysql"), mock
}

func productRow(id int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "description", "price", "image_url", "stock", "is_active", "rating", "category_id", "seller_id",
	}).AddRow(id, "Kettle", nil, 19.99, nil, 3, true, 4.5, 2, 9)
}

func TestGetForUpdateLocksOnlyInsideTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProductRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`FROM products WHERE id = \?$`).WithArgs(1).WillReturnRows(productRow(1))
	p, err := repo.GetForUpdate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4.5, p.Rating)
	assert.Nil(t, p.Description)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM products WHERE id = \? FOR UPDATE$`).WithArgs(1).WillReturnRows(productRow(1))
	mock.ExpectCommit()
	require.NoError(t, NewTxManager(db).WithinTx(ctx, func(ctx context.Context) error {
		_, err := repo.GetForUpdate(ctx, 1)
		return err
	}))
}

func TestGetForUpdateMissingRow(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM products WHERE id = \?`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err := NewProductRepo(db).GetForUpdate(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveGradesShareLockInsideTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReviewRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT grade FROM reviews WHERE is_active = TRUE AND product_id = ? LOCK IN SHARE MODE")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"grade"}).AddRow(5).AddRow(3))
	mock.ExpectCommit()

	var grades []int
	require.NoError(t, NewTxManager(db).WithinTx(context.Background(), func(ctx context.Context) error {
		var err error
		grades, err = repo.ActiveGrades(ctx, 3)
		return err
	}))
	assert.Equal(t, []int{5, 3}, grades)
}

func TestInsertDuplicateKeyMapsToErrDuplicate(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1-2-1' for key 'reviews.uq_reviews_user_product_active'"}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reviews (user_id, product_id, comment, comment_date, grade, is_active)")).
		WillReturnError(dup)
	err := NewReviewRepo(db).Create(ctx, &model.Review{UserID: 1, ProductID: 2, Grade: 4, IsActive: true})
	assert.ErrorIs(t, err, ErrDuplicate)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("a@x.com", "hash", model.RoleBuyer, true, sqlmock.AnyArg()).
		WillReturnError(dup)
	err = NewUserRepo(db).Create(ctx, &model.User{Email: " A@x.com", PasswordHash: "hash", Role: model.RoleBuyer, IsActive: true})
	assert.ErrorIs(t, err, ErrDuplicate)

	// other driver errors pass through untouched
	fk := &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reviews")).WillReturnError(fk)
	err = NewReviewRepo(db).Create(ctx, &model.Review{UserID: 1, ProductID: 99, Grade: 4, IsActive: true})
	assert.ErrorIs(t, err, fk)
}

func TestInsertSetsID(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reviews")).WillReturnResult(sqlmock.NewResult(41, 1))
	rv := &model.Review{UserID: 1, ProductID: 2, Grade: 4, IsActive: true}
	require.NoError(t, NewReviewRepo(db).Create(context.Background(), rv))
	assert.Equal(t, uint64(41), rv.ID)
	assert.False(t, rv.CommentDate.IsZero())
}

func TestUpdatesRequireAMatchedRow(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()
	products := NewProductRepo(db)

	// with ClientFoundRows a matched row counts even when the value is unchanged
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET rating = ? WHERE id = ?")).
		WithArgs(4.0, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, products.SetRating(ctx, 1, 4.0))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET is_active = FALSE WHERE id = ? AND is_active = TRUE")).
		WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, products.Deactivate(ctx, 1), ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews SET is_active = FALSE WHERE id = ? AND is_active = TRUE")).
		WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, NewReviewRepo(db).Deactivate(ctx, 5), ErrNotFound)
}

func TestWithinTxRollsBackAndJoinsOuterTx(t *testing.T) {
	db, mock := newMock(t)
	tm := NewTxManager(db)
	reviews := NewReviewRepo(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews SET is_active = FALSE")).
		WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := tm.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := reviews.Deactivate(ctx, 5); err != nil {
			return err
		}
		// nested call must not begin a second transaction
		return tm.WithinTx(ctx, func(context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)
}
