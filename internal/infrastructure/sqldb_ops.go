package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Agurato/kolnoa/internal/model"
)

// SaveToken stores a token under its access code, replacing any previous one
func (s *SQLDB) SaveToken(ctx context.Context, t *model.Token) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO tokens (access_code, value, expires_at, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (access_code) DO UPDATE SET
			value = excluded.value, expires_at = excluded.expires_at, created_at = excluded.created_at`,
		t.AccessCode, t.Value, toMillis(t.ExpiresAt), toMillis(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *SQLDB) GetToken(ctx context.Context, accessCode string) (*model.Token, error) {
	var (
		t                    model.Token
		expiresAt, createdAt int64
	)
	err := s.db.QueryRowContext(ctx, "SELECT access_code, value, expires_at, created_at FROM tokens WHERE access_code = ?", accessCode).
		Scan(&t.AccessCode, &t.Value, &expiresAt, &createdAt)
	if err != nil {
		return nil, notFound(err, "get token")
	}
	t.ExpiresAt = fromMillis(expiresAt)
	t.CreatedAt = fromMillis(createdAt)
	return &t, nil
}

// DeleteExpiredTokens removes the tokens expired at now. Tokens without expiry are kept.
func (s *SQLDB) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tokens WHERE expires_at <= ?", toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLDB) AddLog(ctx context.Context, entry *model.LogEntry) error {
	logContext := "{}"
	if len(entry.Context) > 0 {
		b, err := json.Marshal(entry.Context)
		if err != nil {
			return fmt.Errorf("encode log context: %w", err)
		}
		logContext = string(b)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO logs (id, level, source, message, context, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Level, entry.Source, entry.Message, logContext, toMillis(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("add log: %w", err)
	}
	return nil
}

// GetLogs returns at most limit entries created since the given time, newest first.
// An empty source matches every entry.
func (s *SQLDB) GetLogs(ctx context.Context, source string, since time.Time, limit int) ([]model.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, level, source, message, context, created_at FROM logs
		WHERE (? = '' OR source = ?) AND created_at >= ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		source, source, toMillis(since), limit)
	if err != nil {
		return nil, fmt.Errorf("get logs: %w", err)
	}
	defer rows.Close()

	var entries []model.LogEntry
	for rows.Next() {
		var (
			e          model.LogEntry
			logContext string
			createdAt  int64
		)
		if err := rows.Scan(&e.ID, &e.Level, &e.Source, &e.Message, &logContext, &createdAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		if logContext != "" && logContext != "{}" {
			_ = json.Unmarshal([]byte(logContext), &e.Context)
		}
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountLogs counts the entries created since the given time per level.
// An empty source matches every entry.
func (s *SQLDB) CountLogs(ctx context.Context, source string, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT level, COUNT(*) FROM logs
		WHERE (? = '' OR source = ?) AND created_at >= ? GROUP BY level`,
		source, source, toMillis(since))
	if err != nil {
		return nil, fmt.Errorf("count logs: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			level string
			count int
		)
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("scan log count: %w", err)
		}
		counts[level] = count
	}
	return counts, rows.Err()
}

// ExecScript runs a SQL script in a transaction and records it in schema_migrations
func (s *SQLDB) ExecScript(ctx context.Context, name, script string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply %s: %w", name, err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE name = ?", name).Scan(&count); err != nil {
		return fmt.Errorf("apply %s: %w", name, err)
	}
	if count > 0 {
		return fmt.Errorf("apply %s: %w", name, model.ErrAlreadyExists)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("apply %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)", name, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	return tx.Commit()
}

// GetAppliedMigrations returns the applied scripts and when they were applied
func (s *SQLDB) GetAppliedMigrations(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("get applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var (
			name      string
			appliedAt int64
		)
		if err := rows.Scan(&name, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		applied[name] = fromMillis(appliedAt)
	}
	return applied, rows.Err()
}

func (s *SQLDB) tableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DescribeSchema lists the columns of one table, or of every table when table is empty
func (s *SQLDB) DescribeSchema(ctx context.Context, table string) ([]model.TableSchema, error) {
	names, err := s.tableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	if table != "" {
		found := false
		for _, name := range names {
			if name == table {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("describe table %s: %w", table, model.ErrNotFound)
		}
		names = []string{table}
	}

	schemas := make([]model.TableSchema, 0, len(names))
	for _, name := range names {
		columns, err := s.tableColumns(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("describe table %s: %w", name, err)
		}
		schemas = append(schemas, model.TableSchema{Name: name, Columns: columns})
	}
	return schemas, nil
}

func (s *SQLDB) tableColumns(ctx context.Context, table string) ([]model.ColumnInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []model.ColumnInfo
	for rows.Next() {
		var (
			c       model.ColumnInfo
			notNull int
			dflt    *string
			pk      int
		)
		if err := rows.Scan(&c.Name, &c.Type, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		c.NotNull = notNull != 0
		c.Default = dflt
		c.PrimaryKey = pk > 0
		columns = append(columns, c)
	}
	return columns, rows.Err()
}
