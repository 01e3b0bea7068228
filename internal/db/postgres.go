// Package db adapts internal/coinjoin's PoolStore to a durable Postgres
// backend, grounded on the teacher's pgxpool connection/transaction pattern.
package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/darkstar-labs/batchmix/internal/coinjoin"
)

// PostgresStore implements coinjoin.PoolStore against a Postgres connection
// pool. All four denomination pools must already exist via InitSchema +
// SeedPools before it is handed to an Engine.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for batchmix engine")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file.
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/db/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	if _, err := s.pool.Exec(context.Background(), string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("batchmix schema initialized")
	return nil
}

// SeedPools ensures a `pools` row exists for every supported denomination,
// mirroring the in-memory store's "all pools created at system
// initialization" behavior. Safe to call on every boot.
func (s *PostgresStore) SeedPools(ctx context.Context) error {
	for _, d := range coinjoin.AllDenominations() {
		pool := coinjoin.NewPool(d)
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO pools (denomination, fee_basis_points, minimum_pool_size, maximum_pool_size, accumulator_root)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (denomination) DO NOTHING
		`, int(d), poolFeeBasisPoints(pool), pool.MinimumPoolSize, pool.MaximumPoolSize, pool.AccumulatorRoot[:]); err != nil {
			return fmt.Errorf("failed to seed pool %s: %v", d.Symbol(), err)
		}
	}
	return nil
}

func poolFeeBasisPoints(p *coinjoin.Pool) int64 { return p.FeeBasisPoints }

// GetPool loads denom's configuration row and its pending deposits, ordered
// by insertion sequence so the selector's tie-break stays meaningful.
func (s *PostgresStore) GetPool(denom coinjoin.Denomination) (*coinjoin.Pool, error) {
	ctx := context.Background()

	var feeBps int64
	var minSize, maxSize int
	var root []byte
	err := s.pool.QueryRow(ctx, `
		SELECT fee_basis_points, minimum_pool_size, maximum_pool_size, accumulator_root
		FROM pools WHERE denomination = $1
	`, int(denom)).Scan(&feeBps, &minSize, &maxSize, &root)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("batchmix/db: unknown denomination %s", denom.Symbol())
	}
	if err != nil {
		return nil, fmt.Errorf("batchmix/db: failed to load pool config: %v", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT seq, commitment, nullifier, created_at, expires_at, sender_address,
		       recipient_address, token_in, token_out, min_amount_out, max_slippage_bps, fee_paid
		FROM deposits WHERE denomination = $1 ORDER BY seq ASC
	`, int(denom))
	if err != nil {
		return nil, fmt.Errorf("batchmix/db: failed to load deposits: %v", err)
	}
	defer rows.Close()

	pool := &coinjoin.Pool{
		Denomination:    denom,
		FeeBasisPoints:  feeBps,
		MinimumPoolSize: minSize,
		MaximumPoolSize: maxSize,
	}
	copy(pool.AccumulatorRoot[:], root)

	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		pool.Deposits = append(pool.Deposits, d)
	}
	return pool, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeposit(row rowScanner) (coinjoin.Deposit, error) {
	var d coinjoin.Deposit
	var commitment, nullifier []byte
	var createdAt, expiresAt time.Time

	if err := row.Scan(&d.Seq, &commitment, &nullifier, &createdAt, &expiresAt,
		&d.SenderAddress, &d.RecipientAddress, &d.TokenIn, &d.TokenOut,
		&d.MinAmountOut, &d.MaxSlippageBps, &d.FeePaid); err != nil {
		return d, fmt.Errorf("batchmix/db: failed to scan deposit row: %v", err)
	}
	copy(d.Commitment[:], commitment)
	copy(d.Nullifier[:], nullifier)
	d.Timestamp = createdAt
	d.ExpiryTimestamp = expiresAt
	return d, nil
}

// UpdatePool replaces denom's stored deposit set with pool.Deposits inside a
// single transaction, matching the teacher's transactional-batch-insert
// pattern. The pool configuration row itself is left untouched — only its
// deposit membership changes during normal operation.
func (s *PostgresStore) UpdatePool(denom coinjoin.Denomination, pool *coinjoin.Pool) error {
	ctx := context.Background()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM deposits WHERE denomination = $1`, int(denom)); err != nil {
		return fmt.Errorf("batchmix/db: failed to clear deposits: %v", err)
	}

	for _, d := range pool.Deposits {
		if _, err := tx.Exec(ctx, `
			INSERT INTO deposits (denomination, seq, commitment, nullifier, created_at, expires_at,
			                       sender_address, recipient_address, token_in, token_out,
			                       min_amount_out, max_slippage_bps, fee_paid)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, int(denom), d.Seq, d.Commitment[:], d.Nullifier[:], d.Timestamp, d.ExpiryTimestamp,
			d.SenderAddress, d.RecipientAddress, d.TokenIn, d.TokenOut,
			d.MinAmountOut, d.MaxSlippageBps, d.FeePaid); err != nil {
			return fmt.Errorf("batchmix/db: failed to insert deposit: %v", err)
		}
	}

	return tx.Commit(ctx)
}

// IsNullifierUsed reports whether nullifier has already been recorded.
func (s *PostgresStore) IsNullifierUsed(nullifier [32]byte) bool {
	var exists bool
	err := s.pool.QueryRow(context.Background(),
		`SELECT EXISTS(SELECT 1 FROM nullifiers_used WHERE nullifier = $1)`, nullifier[:]).Scan(&exists)
	if err != nil {
		log.Printf("batchmix/db: IsNullifierUsed query failed: %v", err)
		return false
	}
	return exists
}

// MarkNullifierUsed durably records nullifier as spent.
func (s *PostgresStore) MarkNullifierUsed(nullifier [32]byte) {
	if _, err := s.pool.Exec(context.Background(),
		`INSERT INTO nullifiers_used (nullifier) VALUES ($1) ON CONFLICT DO NOTHING`, nullifier[:]); err != nil {
		log.Printf("batchmix/db: MarkNullifierUsed insert failed: %v", err)
	}
}
