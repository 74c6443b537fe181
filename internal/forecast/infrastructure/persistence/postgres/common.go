// Package postgres contains PostgreSQL repository implementations for the
// resource-forecasting service.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ============================================================================
// Transaction Management
// ============================================================================

// txKey is the context key for database transactions.
type txKey struct{}

// getTxFromContext retrieves a transaction from context if present.
func getTxFromContext(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// setTxToContext stores a transaction in context.
func setTxToContext(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// getExecutor returns either the transaction from context or the database
// connection, so a single repository method serves both the transactional
// write path (compute_timeline, generate_bulk) and the read-only path.
func getExecutor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx := getTxFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

// ============================================================================
// Transaction Manager
// ============================================================================

// TransactionManager starts and finalizes the transaction a UnitOfWork
// scopes its repository calls to.
type TransactionManager struct {
	db *sqlx.DB
}

// NewTransactionManager creates a new TransactionManager.
func NewTransactionManager(db *sqlx.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// BeginTx starts a new read-committed transaction and returns a context
// carrying it.
func (tm *TransactionManager) BeginTx(ctx context.Context) (context.Context, error) {
	tx, err := tm.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return setTxToContext(ctx, tx), nil
}

// CommitTx commits the transaction carried by ctx.
func (tm *TransactionManager) CommitTx(ctx context.Context) error {
	tx := getTxFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("no transaction in context")
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTx rolls back the transaction carried by ctx. Rolling back a
// committed transaction is a no-op error from database/sql and is ignored
// by callers that always defer RollbackTx after a conditional CommitTx.
func (tm *TransactionManager) RollbackTx(ctx context.Context) error {
	tx := getTxFromContext(ctx)
	if tx == nil {
		return nil
	}
	return tx.Rollback()
}

// ============================================================================
// Query Builder Helpers
// ============================================================================

// QueryBuilder helps construct dynamic WHERE clauses from optional filter
// dimensions. No repository in this package calls it: portfolio_forecast and
// stage_resource_forecast read AllRows and filter in memory.
type QueryBuilder struct {
	baseQuery  string
	conditions []string
	args       []interface{}
}

// NewQueryBuilder starts a QueryBuilder from a base query with no WHERE
// clause yet attached.
func NewQueryBuilder(baseQuery string) *QueryBuilder {
	return &QueryBuilder{baseQuery: baseQuery}
}

// WhereIn adds an `column = ANY($n)` condition when values is non-empty,
// and is a no-op otherwise, matching PortfolioFilters' "empty means no
// restriction" convention.
func (qb *QueryBuilder) WhereIn(column string, values []string) *QueryBuilder {
	if len(values) == 0 {
		return qb
	}
	qb.args = append(qb.args, pq.Array(values))
	qb.conditions = append(qb.conditions, fmt.Sprintf("%s = ANY($%d)", column, len(qb.args)))
	return qb
}

// Where adds a single-value condition.
func (qb *QueryBuilder) Where(condition string, arg interface{}) *QueryBuilder {
	qb.args = append(qb.args, arg)
	qb.conditions = append(qb.conditions, fmt.Sprintf(condition, len(qb.args)))
	return qb
}

// Build returns the assembled query and its positional arguments.
func (qb *QueryBuilder) Build() (string, []interface{}) {
	query := qb.baseQuery
	for i, cond := range qb.conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	return query, qb.args
}

// ============================================================================
// Error Helpers
// ============================================================================

// IsNotFoundError checks if an error is a not-found error.
func IsNotFoundError(err error) bool {
	return err == sql.ErrNoRows
}

// IsUniqueViolation checks if an error is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

// IsForeignKeyViolation checks if an error is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23503"
	}
	return false
}

// IsCheckViolation checks if an error is a check constraint violation.
func IsCheckViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23514"
	}
	return false
}
