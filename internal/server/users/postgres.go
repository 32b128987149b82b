package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/phantomchat/internal/common"
	"github.com/dmitrijs2005/phantomchat/internal/dbx"
	"github.com/dmitrijs2005/phantomchat/internal/server/migrations"
)

// PostgresRepository is the alternative credential backend for deployments
// that already run PostgreSQL. Selected by config.DatabaseDSN; the file
// store stays the default.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres connects via the pgx stdlib driver and applies the embedded
// goose migrations before handing the connection back.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// pgUniqueViolation is SQLSTATE 23505 (unique_violation).
const pgUniqueViolation = "23505"

// Create inserts the record inside one transaction. The existence check
// gives the common case a clean answer, but at READ COMMITTED two
// transactions can both pass it for the same fresh name; the users primary
// key is the actual arbiter, so the loser's INSERT surfaces as a unique
// violation and is reported as ErrorAlreadyExists like any other duplicate.
func (r *PostgresRepository) Create(ctx context.Context, user *User) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`,
			user.UserName).Scan(&exists)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if exists {
			return common.ErrorAlreadyExists
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (username, password_digest) VALUES ($1, $2)`,
			user.UserName, user.PasswordDigest)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return common.ErrorAlreadyExists
			}
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepository) GetByUserName(ctx context.Context, userName string) (*User, error) {
	query :=
		`SELECT username, password_digest FROM users
		 WHERE username = $1
		 `

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, userName).Scan(&user.UserName, &user.PasswordDigest)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
