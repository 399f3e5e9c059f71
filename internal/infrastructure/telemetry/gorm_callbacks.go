package telemetry

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

type contextKey string

const queryStartTimeKey contextKey = "query_start_time"

// markQueryStart stamps the statement context with the current time. Both
// the tracing and metrics plugins register it; the later stamp wins.
func markQueryStart(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = WithQueryStartTime(ctx)
}

// WithQueryStartTime returns ctx carrying the current time as query start.
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartTimeKey, time.Now())
}

// queryElapsed reports the time since markQueryStart ran for this statement.
func queryElapsed(ctx context.Context) (time.Duration, bool) {
	if ctx == nil {
		return 0, false
	}
	started, ok := ctx.Value(queryStartTimeKey).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(started), true
}

type registerFunc func(name string, fn func(*gorm.DB)) error

// gormOperation is one of GORM's callback chains.
// verb is the SQL verb it issues, empty when it must be read from the statement.
type gormOperation struct {
	name   string
	verb   string
	before registerFunc
	after  registerFunc
}

func gormOperations(db *gorm.DB) []gormOperation {
	cb := db.Callback()
	return []gormOperation{
		{"create", "INSERT",
			func(n string, fn func(*gorm.DB)) error { return cb.Create().Before("gorm:create").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Create().After("gorm:create").Register(n, fn) }},
		{"query", "SELECT",
			func(n string, fn func(*gorm.DB)) error { return cb.Query().Before("gorm:query").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Query().After("gorm:query").Register(n, fn) }},
		{"update", "UPDATE",
			func(n string, fn func(*gorm.DB)) error { return cb.Update().Before("gorm:update").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Update().After("gorm:update").Register(n, fn) }},
		{"delete", "DELETE",
			func(n string, fn func(*gorm.DB)) error { return cb.Delete().Before("gorm:delete").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Delete().After("gorm:delete").Register(n, fn) }},
		{"row", "",
			func(n string, fn func(*gorm.DB)) error { return cb.Row().Before("gorm:row").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Row().After("gorm:row").Register(n, fn) }},
		{"raw", "",
			func(n string, fn func(*gorm.DB)) error { return cb.Raw().Before("gorm:raw").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Raw().After("gorm:raw").Register(n, fn) }},
	}
}

// registerAround registers callbacks named "<prefix>:before_<op>" and
// "<prefix>:after_<op>" around every GORM operation. The after callback
// receives the SQL verb of the statement.
func registerAround(db *gorm.DB, prefix string, before func(*gorm.DB), after func(db *gorm.DB, verb string)) error {
	for _, op := range gormOperations(db) {
		if before != nil {
			if err := op.before(prefix+":before_"+op.name, before); err != nil {
				return err
			}
		}
		if after != nil {
			verb := op.verb
			fn := func(tx *gorm.DB) {
				v := verb
				if v == "" {
					v = detectOperationType(tx.Statement.SQL.String())
				}
				after(tx, v)
			}
			if err := op.after(prefix+":after_"+op.name, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// detectOperationType reads the SQL verb from a raw statement.
func detectOperationType(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))

	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, verb) {
			return verb
		}
	}
	return "OTHER"
}
