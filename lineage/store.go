package lineage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/reportstream/rs-acceptor/types"
)

// Action is a row of the router's action log.
type Action struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Queries are the lineage lookups available inside a read transaction.
// A nil result means the store had no answer, which callers treat as a mismatch.
type Queries interface {
	// CountItemDescendants counts descendant items of a report that reached a receiver at a stage.
	// org further restricts the receiving organization when non-nil.
	CountItemDescendants(ctx context.Context, id uuid.UUID, receiver string, stage types.Stage, org *string) (*int, error)
	// CountReportDescendants sums the item counts of descendant reports that reached a receiver at a stage.
	CountReportDescendants(ctx context.Context, id uuid.UUID, receiver string, stage types.Stage) (*int, error)
	// FindUploadedFilename returns the external name of the file sent to a receiver.
	FindUploadedFilename(ctx context.Context, id uuid.UUID, receiver string) (*string, error)
	// MostRecentAction returns the newest action the router recorded.
	MostRecentAction(ctx context.Context) (*Action, error)
}

type Store interface {
	// ReadTx runs fn inside one read-only, repeatable-read transaction so every query sees the same snapshot.
	ReadTx(ctx context.Context, fn func(Queries) error) error
	Close() error
}

var _ Store = (*SQLStore)(nil)

type SQLStore struct {
	db   *sql.DB
	pool *pgxpool.Pool
}

// NewSQLStore wraps an already opened database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// NewPostgresStore connects to the router database.
func NewPostgresStore(ctx context.Context, uri string) (*SQLStore, error) {
	pool, err := pgxpool.New(ctx, normalizeURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &SQLStore{db: stdlib.OpenDBFromPool(pool), pool: pool}, nil
}

// normalizeURI accepts the jdbc: prefixed urls the router itself is configured with.
func normalizeURI(uri string) string {
	return strings.TrimPrefix(uri, "jdbc:")
}

func (s *SQLStore) ReadTx(ctx context.Context, fn func(Queries) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&sqlQueries{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

type sqlQueries struct {
	tx *sql.Tx
}

func (q *sqlQueries) CountItemDescendants(ctx context.Context, id uuid.UUID, receiver string, stage types.Stage, org *string) (*int, error) {
	args := []any{receiver}
	orgClause := ""
	if org != nil {
		args = append(args, *org)
		orgClause = fmt.Sprintf("and RF.receiving_org = $%d", len(args))
	}
	args = append(args, string(stage), id.String())

	query := fmt.Sprintf(`
select count(*)
  from item_lineage as IL
  join report_file as RF on IL.child_report_id = RF.report_id
  join action as A on A.action_id = RF.action_id
  where RF.receiving_org_svc = $1
  %s
  and A.action_name = $%d
  and IL.item_lineage_id in
  (select item_descendants($%d))
`, orgClause, len(args)-1, len(args))

	count, err := q.scanInt(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count item descendants: %w", err)
	}
	return count, nil
}

func (q *sqlQueries) CountReportDescendants(ctx context.Context, id uuid.UUID, receiver string, stage types.Stage) (*int, error) {
	query := `
select sum(item_count)
  from report_file as RF
  join action as A on A.action_id = RF.action_id
  where RF.receiving_org_svc = $1
  and A.action_name = $2
  and RF.report_id in
  (select report_descendants($3))
`
	count, err := q.scanInt(ctx, query, receiver, string(stage), id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to count report descendants: %w", err)
	}
	return count, nil
}

func (q *sqlQueries) FindUploadedFilename(ctx context.Context, id uuid.UUID, receiver string) (*string, error) {
	query := `
select RF.external_name
  from report_file as RF
  join action as A on A.action_id = RF.action_id
  where RF.report_id in (select find_sent_reports($1)) and RF.receiving_org_svc = $2
  order by A.action_id
  limit 1
`
	var name sql.NullString
	if err := q.tx.QueryRowContext(ctx, query, id.String(), receiver).Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find uploaded filename: %w", err)
	}
	if !name.Valid {
		return nil, nil
	}
	return &name.String, nil
}

func (q *sqlQueries) MostRecentAction(ctx context.Context) (*Action, error) {
	query := `
select action_id, action_name, created_at
  from action
  where action_id = (select max(action_id) from action)
`
	var a Action
	if err := q.tx.QueryRowContext(ctx, query).Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get most recent action: %w", err)
	}
	return &a, nil
}

func (q *sqlQueries) scanInt(ctx context.Context, query string, args ...any) (*int, error) {
	var n sql.NullInt64
	if err := q.tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !n.Valid {
		return nil, nil
	}
	v := int(n.Int64)
	return &v, nil
}
