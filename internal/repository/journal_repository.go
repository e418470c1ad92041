package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/pos-gateway/internal/model"
)

const paymentAttemptsDDL = `CREATE TABLE IF NOT EXISTS payment_attempts (
	id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	attempt_id    CHAR(36)        NOT NULL,
	order_id      BIGINT          NOT NULL,
	user_id       VARCHAR(64)     NOT NULL,
	payment_type  VARCHAR(64)     NOT NULL,
	paid_amount   DECIMAL(12,2)   NOT NULL,
	status        VARCHAR(16)     NOT NULL,
	net_amount    DECIMAL(12,2)   NULL,
	credit_amount DECIMAL(12,2)   NULL,
	change_amount DECIMAL(12,2)   NULL,
	error         TEXT            NULL,
	created_at    DATETIME(3)     NOT NULL,
	finished_at   DATETIME(3)     NULL,
	UNIQUE KEY uq_payment_attempts_attempt (attempt_id),
	KEY idx_payment_attempts_order (order_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// JournalRepo records settlement attempts in the payment_attempts table.
// Rows are inserted as pending and finished exactly once.
type JournalRepo struct {
	db *sql.DB
}

func NewJournalRepo(db *sql.DB) *JournalRepo { return &JournalRepo{db: db} }

// EnsureSchema creates the journal table when missing.
func (r *JournalRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, paymentAttemptsDDL); err != nil {
		return fmt.Errorf("create payment_attempts: %w", err)
	}
	return nil
}

// Begin inserts a pending attempt and returns its row id.
func (r *JournalRepo) Begin(ctx context.Context, a model.PaymentAttempt) (int64, error) {
	const q = `INSERT INTO payment_attempts
		(attempt_id, order_id, user_id, payment_type, paid_amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if a.Status == "" {
		a.Status = model.AttemptPending
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, q,
		a.AttemptID, a.OrderID, a.UserID, a.PaymentType, a.PaidAmount, a.Status, a.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert payment attempt: %w", err)
	}
	return res.LastInsertId()
}

// Finish stores the outcome of a pending attempt.  It returns ErrNotFound
// for an unknown id and ErrConflict when the attempt was already finished.
func (r *JournalRepo) Finish(ctx context.Context, id int64, o model.PaymentOutcome) error {
	const q = `UPDATE payment_attempts
		SET status = ?, net_amount = ?, credit_amount = ?, change_amount = ?, error = ?, finished_at = ?
		WHERE id = ? AND status = ?`
	var errText sql.NullString
	if o.Error != "" {
		errText = sql.NullString{String: o.Error, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, q,
		o.Status, o.NetAmount, o.CreditAmount, o.ChangeAmount, errText, time.Now().UTC(),
		id, model.AttemptPending)
	if err != nil {
		return fmt.Errorf("finish payment attempt %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM payment_attempts WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

// ListByOrder returns the attempts made against one order, newest first.
func (r *JournalRepo) ListByOrder(ctx context.Context, orderID int64, limit int) ([]model.PaymentAttempt, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const q = `SELECT id, attempt_id, order_id, user_id, payment_type, paid_amount, status, created_at
		FROM payment_attempts WHERE order_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, orderID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.PaymentAttempt{}
	for rows.Next() {
		var a model.PaymentAttempt
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.OrderID, &a.UserID, &a.PaymentType,
			&a.PaidAmount, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
