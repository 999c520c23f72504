package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/anttok/recognitiond/internal/config"
	"github.com/anttok/recognitiond/internal/models"
)

// PostgresStore is the Attendance Store: persons, attendance spans,
// an append-only detection-event audit log, runtime config, issued
// API keys and structured system logs.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.pool)
}

// --- Persons ---

// UpsertPerson creates a person or refreshes its name if it already
// exists, used by register/register_face_for_existing_person.
func (s *PostgresStore) UpsertPerson(ctx context.Context, personID, name string) (*models.Person, error) {
	p := &models.Person{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO persons (person_id, name, status, metadata)
		VALUES ($1, $2, 'active', '{}')
		ON CONFLICT (person_id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()
		RETURNING person_id, name, email, department, position, phone, status, metadata, created_at, updated_at`,
		personID, name,
	).Scan(&p.PersonID, &p.Name, &p.Email, &p.Department, &p.Position, &p.Phone, &p.Status, &p.Metadata, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert person: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetPerson(ctx context.Context, personID string) (*models.Person, error) {
	p := &models.Person{}
	err := s.pool.QueryRow(ctx, `
		SELECT person_id, name, email, department, position, phone, status, metadata, created_at, updated_at
		FROM persons WHERE person_id = $1`, personID,
	).Scan(&p.PersonID, &p.Name, &p.Email, &p.Department, &p.Position, &p.Phone, &p.Status, &p.Metadata, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPersons(ctx context.Context, status models.PersonStatus) ([]models.Person, error) {
	query := `SELECT person_id, name, email, department, position, phone, status, metadata, created_at, updated_at FROM persons`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		var p models.Person
		if err := rows.Scan(&p.PersonID, &p.Name, &p.Email, &p.Department, &p.Position, &p.Phone, &p.Status, &p.Metadata, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, p)
	}
	return persons, nil
}

// UpdatePerson overwrites the editable contact/metadata fields of an
// existing person.
func (s *PostgresStore) UpdatePerson(ctx context.Context, p models.Person) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE persons SET name = $2, email = $3, department = $4, position = $5, phone = $6, metadata = $7, updated_at = now()
		WHERE person_id = $1`,
		p.PersonID, p.Name, p.Email, p.Department, p.Position, p.Phone, p.Metadata)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("person not found")
	}
	return nil
}

// SetPersonStatus transitions a person between active/inactive/deleted.
// Deletion is a status flip, never a row delete, so attendance history
// keeps its foreign key intact.
func (s *PostgresStore) SetPersonStatus(ctx context.Context, personID string, status models.PersonStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE persons SET status = $2, updated_at = now() WHERE person_id = $1`, personID, status)
	if err != nil {
		return fmt.Errorf("set person status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("person not found")
	}
	return nil
}

// --- Attendance ---

// MarkAttendance inserts an AttendanceRow, combining the
// duplicate-suppression lookback and the insert into one statement,
// run under a per-person transaction lock so two concurrent auto-mark
// calls for the same person cannot both succeed. Manual and system entries bypass suppression. Returns
// inserted=false (not an error) when an auto entry was suppressed.
func (s *PostgresStore) MarkAttendance(ctx context.Context, row models.AttendanceRow, duplicateWindow time.Duration) (*models.AttendanceRow, bool, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Metadata == nil {
		row.Metadata = json.RawMessage("{}")
	}
	if row.Date.IsZero() {
		row.Date = row.CheckIn.Truncate(24 * time.Hour)
	}
	if row.Status == "" {
		row.Status = models.AttendanceStatusPresent
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin mark attendance: %w", err)
	}
	defer tx.Rollback(ctx)
	// Serialize marks for one person so the lookback sees rows that a
	// concurrent mark has committed.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, row.PersonID); err != nil {
		return nil, false, fmt.Errorf("lock attendance person: %w", err)
	}

	var out models.AttendanceRow
	err = tx.QueryRow(ctx, `
		INSERT INTO attendance (id, person_id, person_name, check_in, date, source, confidence, marked_by, status, metadata)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		WHERE $8 != 'auto' OR NOT EXISTS (
			SELECT 1 FROM attendance a
			WHERE a.person_id = $2 AND a.check_in > $4 - $11::interval
		)
		RETURNING id, person_id, person_name, check_in, check_out, date, duration_minutes, source, confidence, marked_by, status, metadata`,
		row.ID, row.PersonID, row.PersonName, row.CheckIn, row.Date, row.Source, row.Confidence, row.MarkedBy, row.Status, row.Metadata,
		fmt.Sprintf("%d seconds", int(duplicateWindow.Seconds())),
	).Scan(&out.ID, &out.PersonID, &out.PersonName, &out.CheckIn, &out.CheckOut, &out.Date,
		&out.DurationMinutes, &out.Source, &out.Confidence, &out.MarkedBy, &out.Status, &out.Metadata)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mark attendance: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit mark attendance: %w", err)
	}
	return &out, true, nil
}

// Checkout records a check-out time and derives duration_minutes.
func (s *PostgresStore) Checkout(ctx context.Context, id uuid.UUID, checkOut time.Time) (*models.AttendanceRow, error) {
	var out models.AttendanceRow
	err := s.pool.QueryRow(ctx, `
		UPDATE attendance SET check_out = $2, duration_minutes = FLOOR(EXTRACT(EPOCH FROM ($2 - check_in)) / 60), status = 'left'
		WHERE id = $1
		RETURNING id, person_id, person_name, check_in, check_out, date, duration_minutes, source, confidence, marked_by, status, metadata`,
		id, checkOut,
	).Scan(&out.ID, &out.PersonID, &out.PersonName, &out.CheckIn, &out.CheckOut, &out.Date,
		&out.DurationMinutes, &out.Source, &out.Confidence, &out.MarkedBy, &out.Status, &out.Metadata)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("checkout: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) GetAttendance(ctx context.Context, id uuid.UUID) (*models.AttendanceRow, error) {
	var out models.AttendanceRow
	err := s.pool.QueryRow(ctx, `
		SELECT id, person_id, person_name, check_in, check_out, date, duration_minutes, source, confidence, marked_by, status, metadata
		FROM attendance WHERE id = $1`, id,
	).Scan(&out.ID, &out.PersonID, &out.PersonName, &out.CheckIn, &out.CheckOut, &out.Date,
		&out.DurationMinutes, &out.Source, &out.Confidence, &out.MarkedBy, &out.Status, &out.Metadata)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return &out, nil
}

// AttendanceFilter narrows ListAttendance; zero values are unfiltered.
type AttendanceFilter struct {
	PersonID string
	From, To *time.Time
	Limit    int
	Offset   int
}

func (s *PostgresStore) ListAttendance(ctx context.Context, f AttendanceFilter) ([]models.AttendanceRow, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}

	where := "WHERE true"
	args := []interface{}{}
	argIdx := 1

	if f.PersonID != "" {
		where += fmt.Sprintf(" AND person_id = $%d", argIdx)
		args = append(args, f.PersonID)
		argIdx++
	}
	if f.From != nil {
		where += fmt.Sprintf(" AND date >= $%d", argIdx)
		args = append(args, *f.From)
		argIdx++
	}
	if f.To != nil {
		where += fmt.Sprintf(" AND date <= $%d", argIdx)
		args = append(args, *f.To)
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM attendance "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, person_id, person_name, check_in, check_out, date, duration_minutes, source, confidence, marked_by, status, metadata
		FROM attendance %s ORDER BY check_in DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []models.AttendanceRow
	for rows.Next() {
		var a models.AttendanceRow
		if err := rows.Scan(&a.ID, &a.PersonID, &a.PersonName, &a.CheckIn, &a.CheckOut, &a.Date,
			&a.DurationMinutes, &a.Source, &a.Confidence, &a.MarkedBy, &a.Status, &a.Metadata); err != nil {
			return nil, 0, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, a)
	}
	return out, total, nil
}

func (s *PostgresStore) TodayAttendance(ctx context.Context) ([]models.AttendanceRow, error) {
	today := time.Now().Truncate(24 * time.Hour)
	rows, _, err := s.ListAttendance(ctx, AttendanceFilter{From: &today, To: &today, Limit: 500})
	return rows, err
}

func (s *PostgresStore) AttendanceForPerson(ctx context.Context, personID string, from, to time.Time) ([]models.AttendanceRow, error) {
	rows, _, err := s.ListAttendance(ctx, AttendanceFilter{PersonID: personID, From: &from, To: &to, Limit: 500})
	return rows, err
}

// DailySummary aggregates present-count and average duration per day.
type DailySummary struct {
	Date         time.Time `json:"date"`
	PresentCount int       `json:"present_count"`
	AvgMinutes   float64   `json:"avg_minutes"`
}

func (s *PostgresStore) DailySummaryFor(ctx context.Context, date time.Time) (*DailySummary, error) {
	d := date.Truncate(24 * time.Hour)
	var out DailySummary
	out.Date = d
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT person_id), COALESCE(AVG(duration_minutes), 0)
		FROM attendance WHERE date = $1`, d,
	).Scan(&out.PresentCount, &out.AvgMinutes)
	if err != nil {
		return nil, fmt.Errorf("daily summary: %w", err)
	}
	return &out, nil
}

// --- Detection events ---

func (s *PostgresStore) CreateDetectionEvent(ctx context.Context, ev models.DetectionEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Metadata == nil {
		ev.Metadata = json.RawMessage("{}")
	}
	var vec *pgvector.Vector
	if len(ev.Embedding) > 0 {
		v := pgvector.NewVector(ev.Embedding)
		vec = &v
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO detection_events (id, person_id, person_name, ts, confidence, source, attendance_id, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID, ev.PersonID, ev.PersonName, ev.Timestamp, ev.Confidence, ev.Source, ev.AttendanceID, vec, ev.Metadata)
	if err != nil {
		return fmt.Errorf("create detection event: %w", err)
	}
	return nil
}

func (s *PostgresStore) QueryDetectionEvents(ctx context.Context, personID string, from, to *time.Time, limit int) ([]models.DetectionEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	where := "WHERE true"
	args := []interface{}{}
	argIdx := 1
	if personID != "" {
		where += fmt.Sprintf(" AND person_id = $%d", argIdx)
		args = append(args, personID)
		argIdx++
	}
	if from != nil {
		where += fmt.Sprintf(" AND ts >= $%d", argIdx)
		args = append(args, *from)
		argIdx++
	}
	if to != nil {
		where += fmt.Sprintf(" AND ts <= $%d", argIdx)
		args = append(args, *to)
		argIdx++
	}
	query := fmt.Sprintf(`
		SELECT id, person_id, person_name, ts, confidence, source, attendance_id, metadata
		FROM detection_events %s ORDER BY ts DESC LIMIT $%d`, where, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query detection events: %w", err)
	}
	defer rows.Close()

	var out []models.DetectionEvent
	for rows.Next() {
		var ev models.DetectionEvent
		if err := rows.Scan(&ev.ID, &ev.PersonID, &ev.PersonName, &ev.Timestamp, &ev.Confidence, &ev.Source, &ev.AttendanceID, &ev.Metadata); err != nil {
			return nil, fmt.Errorf("scan detection event: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// SimilarEvent is one result of SearchSimilarEvents.
type SimilarEvent struct {
	EventID  uuid.UUID `json:"event_id"`
	PersonID *string   `json:"person_id,omitempty"`
	Score    float32   `json:"score"`
}

// SearchSimilarEvents is a supplementary audit tool (not the hot-path
// match, which the Recognizer does in-memory): finds past detections
// whose stored embedding is close to the given one.
func (s *PostgresStore) SearchSimilarEvents(ctx context.Context, embedding []float32, limit int) ([]SimilarEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := pgvector.NewVector(embedding)
	rows, err := s.pool.Query(ctx, `
		SELECT id, person_id, 1 - (embedding <=> $1) AS score
		FROM detection_events
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("search similar events: %w", err)
	}
	defer rows.Close()

	var out []SimilarEvent
	for rows.Next() {
		var m SimilarEvent
		if err := rows.Scan(&m.EventID, &m.PersonID, &m.Score); err != nil {
			return nil, fmt.Errorf("scan similar event: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// --- System config ---

func (s *PostgresStore) GetConfig(ctx context.Context, key string) (json.RawMessage, error) {
	var v json.RawMessage
	err := s.pool.QueryRow(ctx, `SELECT value FROM system_config WHERE key = $1`, key).Scan(&v)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get config: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) SetConfig(ctx context.Context, key string, value json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO system_config (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, key, value)
	if err != nil {
		return fmt.Errorf("set config: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListConfig(ctx context.Context) ([]models.SystemConfigEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value, updated_at FROM system_config ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}
	defer rows.Close()

	var out []models.SystemConfigEntry
	for rows.Next() {
		var e models.SystemConfigEntry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// --- API keys ---

func (s *PostgresStore) CreateAPIKey(ctx context.Context, label, keyHash string, permissions []string) (*models.APIKey, error) {
	k := &models.APIKey{ID: uuid.New(), Label: label, KeyHash: keyHash, Permissions: permissions}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO api_keys (id, label, key_hash, permissions) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		k.ID, k.Label, k.KeyHash, k.Permissions,
	).Scan(&k.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	return k, nil
}

func (s *PostgresStore) LookupAPIKey(ctx context.Context, keyHash string) (*models.APIKey, error) {
	k := &models.APIKey{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, label, key_hash, permissions, created_at, revoked_at
		FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL`, keyHash,
	).Scan(&k.ID, &k.Label, &k.KeyHash, &k.Permissions, &k.CreatedAt, &k.RevokedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup api key: %w", err)
	}
	return k, nil
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE api_keys SET revoked_at = now() WHERE id = $1`, id)
	return err
}

// --- System logs ---

func (s *PostgresStore) InsertSystemLog(ctx context.Context, level, message string, fields json.RawMessage) error {
	if fields == nil {
		fields = json.RawMessage("{}")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO system_logs (id, ts, level, message, fields) VALUES ($1, now(), $2, $3, $4)`,
		uuid.New(), level, message, fields)
	return err
}

func (s *PostgresStore) ListSystemLogs(ctx context.Context, limit int) ([]models.SystemLogEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, ts, level, message, fields FROM system_logs ORDER BY ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list system logs: %w", err)
	}
	defer rows.Close()

	var out []models.SystemLogEntry
	for rows.Next() {
		var e models.SystemLogEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Level, &e.Message, &e.Fields); err != nil {
			return nil, fmt.Errorf("scan system log: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
