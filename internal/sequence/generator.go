// Package sequence produces human-readable document numbers like
// SAL-202608-0001, scoped per document family and calendar month.
//
// Reading the current maximum and inserting the new document are two steps,
// so two concurrent requests can compute the same next number. The number
// columns carry unique indexes; callers wrap their whole "generate + insert"
// transaction in WithRetry so a collision rolls back, backs off and reruns
// against committed state. The read must not happen inside the transaction
// that collided: under REPEATABLE READ it would see the same snapshot and
// recompute the same number.
package sequence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const (
	SalePrefix    = "SAL"
	InvoicePrefix = "INV"

	// MaxAttempts bounds the collision retry loop.
	MaxAttempts = 3
)

var ErrRetriesExhausted = errors.New("document number collision retries exhausted")

// Format renders a fully-qualified number: PREFIX-YYYYMM-NNNN.
func Format(prefix string, t time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, t.Format("200601"), seq)
}

// Next finds the highest existing number for the prefix and current month on
// the given model and returns the one after it (0001 when the month is fresh).
// model must be a pointer to the gorm model owning the column.
func Next(db *gorm.DB, model interface{}, column, prefix string, now time.Time) (string, error) {
	monthPrefix := fmt.Sprintf("%s-%s-", prefix, now.Format("200601"))

	var last string
	err := db.Model(model).
		Select(column).
		Where(column+" LIKE ?", monthPrefix+"%").
		Order(column + " DESC").
		Limit(1).
		Scan(&last).Error
	if err != nil {
		return "", err
	}

	seq := 1
	if last != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(last, monthPrefix))
		if err != nil {
			return "", fmt.Errorf("malformed document number %q: %w", last, err)
		}
		seq = n + 1
	}

	return Format(prefix, now, seq), nil
}

// IsDuplicateNumber reports whether err is a uniqueness violation on the
// number column (MySQL 1062, gorm's translated error, or sqlite's message in
// tests).
func IsDuplicateNumber(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// WithRetry runs fn up to attempts times, retrying only on duplicate-number
// errors with doubling backoff. Any other error surfaces immediately.
func WithRetry(attempts int, fn func() error) error {
	backoff := 10 * time.Millisecond
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsDuplicateNumber(err) {
			return err
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
}
