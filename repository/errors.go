package repository

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"control-produccion/apperrors"
)

// PostgreSQL error codes as constants
const (
	// Class 08: connection exception
	PgErrConnectionClass = "08"

	// Class 57: operator intervention
	PgErrAdminShutdown = "57P01" // admin_shutdown
	PgErrCannotConnect = "57P03" // cannot_connect_now
	PgErrCrashShutdown = "57P02" // crash_shutdown
)

// IsUnavailable reports whether err means the store could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case PgErrAdminShutdown, PgErrCrashShutdown, PgErrCannotConnect:
			return true
		}
		return strings.HasPrefix(pgErr.Code, PgErrConnectionClass)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.Timeout(err) && !errors.Is(err, context.Canceled)
}

// storeError wraps connection failures as STORE_UNAVAILABLE and passes
// every other error through unchanged.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.IsAppError(err); ok {
		return err
	}
	if IsUnavailable(err) {
		return apperrors.ErrStoreUnavailable(err)
	}
	return err
}
