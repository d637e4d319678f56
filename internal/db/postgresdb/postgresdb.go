// Package postgresdb provides a PostgreSQL-based implementation of the storage interface.
// The dataset is kept in two tables, users and kidneys, with explicit position
// columns so that the order of users and of each user's kidneys survives a round trip.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/kidneyhealth/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// PostgresDB is a PostgreSQL-backed dataset storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables resetting the database schema before migration.
// It can be used for test setups or development purposes.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database,
// runs the embedded schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		database.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w",
				err,
			)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.UpContext(ctx, result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.Up()` calling: %w",
				err,
			)
	}

	return result, nil
}

// Load reads every user and kidney, preserving the stored order.
func (db *PostgresDB) Load(ctx context.Context) (*models.Dataset, error) {
	dataset := models.NewDataset()
	usersByID := map[int]*models.User{}

	userRows, err := db.database.QueryContext(
		ctx,
		`SELECT id, name FROM users ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/Load(): error while querying users: %w",
			err,
		)
	}
	defer userRows.Close()

	for userRows.Next() {
		usr := &models.User{Kidneys: []models.Kidney{}}
		if err := userRows.Scan(&usr.ID, &usr.Name); err != nil {
			return nil, err
		}
		dataset.Users = append(dataset.Users, usr)
		usersByID[usr.ID] = usr
	}
	if err := userRows.Err(); err != nil {
		return nil, err
	}

	kidneyRows, err := db.database.QueryContext(
		ctx,
		`SELECT user_id, healthy FROM kidneys ORDER BY user_id, position`,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/Load(): error while querying kidneys: %w",
			err,
		)
	}
	defer kidneyRows.Close()

	for kidneyRows.Next() {
		var (
			userID  int
			healthy bool
		)
		if err := kidneyRows.Scan(&userID, &healthy); err != nil {
			return nil, err
		}
		if usr, ok := usersByID[userID]; ok {
			usr.Kidneys = append(usr.Kidneys, models.Kidney{Healthy: healthy})
		}
	}
	if err := kidneyRows.Err(); err != nil {
		return nil, err
	}

	return dataset, nil
}

// Save replaces the stored rows with the given dataset in one transaction.
func (db *PostgresDB) Save(ctx context.Context, dataset *models.Dataset) (err error) {
	transaction, err := db.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = transaction.Rollback()
		}
	}()

	if _, err = transaction.ExecContext(ctx, `DELETE FROM kidneys`); err != nil {
		return err
	}
	if _, err = transaction.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return err
	}

	for userPosition, usr := range dataset.Users {
		if usr == nil {
			continue
		}
		_, err = transaction.ExecContext(
			ctx,
			`INSERT INTO users (id, position, name) VALUES ($1, $2, $3)`,
			usr.ID, userPosition, usr.Name,
		)
		if err != nil {
			return fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/Save(): error while inserting user %d: %w",
				usr.ID,
				err,
			)
		}

		for kidneyPosition, kidney := range usr.Kidneys {
			_, err = transaction.ExecContext(
				ctx,
				`INSERT INTO kidneys (user_id, position, healthy) VALUES ($1, $2, $3)`,
				usr.ID, kidneyPosition, kidney.Healthy,
			)
			if err != nil {
				return fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/Save(): error while inserting kidney of user %d: %w",
					usr.ID,
					err,
				)
			}
		}
	}

	return transaction.Commit()
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}
