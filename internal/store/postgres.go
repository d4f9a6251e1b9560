package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the store distinguishes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Postgres implements Store on top of pgx. Every call is its own
// statement; nothing spans a transaction.
type Postgres struct {
	q *Queries
}

// NewPostgres wraps a pool or transaction.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{q: New(db)}
}

func (p *Postgres) CountryID(ctx context.Context, code string) (int32, error) {
	id, err := p.q.CountryIDByCode(ctx, code)
	if err != nil {
		return 0, fmt.Errorf("country %s: %w", code, classifyPgError(err))
	}
	return id, nil
}

func (p *Postgres) DeleteAll(ctx context.Context, table string) (int64, error) {
	if !knownTable(table) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	n, err := p.q.DeleteAllFrom(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, classifyPgError(err))
	}
	return n, nil
}

func (p *Postgres) CreateClient(ctx context.Context, arg CreateClientParams) (int32, error) {
	id, err := p.q.CreateClient(ctx, arg)
	if err != nil {
		return 0, classifyPgError(err)
	}
	return id, nil
}

func (p *Postgres) CreateDevisRef(ctx context.Context, arg CreateDevisRefParams) (int32, error) {
	id, err := p.q.CreateDevisRef(ctx, arg)
	if err != nil {
		return 0, classifyPgError(err)
	}
	return id, nil
}

func (p *Postgres) ClientExternalRefs(ctx context.Context) ([]ExternalRef, error) {
	refs, err := p.q.ListClientExternalRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list client refs: %w", classifyPgError(err))
	}
	return refs, nil
}

func (p *Postgres) Counts(ctx context.Context) (Counts, error) {
	c, err := p.q.CountMigrated(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("count migrated rows: %w", classifyPgError(err))
	}
	return c, nil
}

// classifyPgError maps driver errors onto the store sentinels while
// keeping the original error in the chain.
func classifyPgError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w on %s: %w", ErrConflict, pgErr.ConstraintName, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("foreign key %s: %w", pgErr.ConstraintName, err)
		}
	}

	return err
}

var _ Store = (*Postgres)(nil)
