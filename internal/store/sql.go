package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/memdigest/internal/model"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Options configures a SQLStore.
type Options struct {
	// Validator checks metadata on create/update. Nil uses model.DefaultMetadataValidator.
	Validator *model.MetadataValidator

	// Now overrides the clock. Nil uses time.Now.
	Now func() time.Time

	MaxOpenConns int
}

// SQLStore implements Store on top of sqlx. It speaks SQLite and Postgres.
type SQLStore struct {
	db        *sqlx.DB
	driver    string
	path      string
	validator *model.MetadataValidator
	now       func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	last    int64 // last issued timestamp, unix nanos
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts Options) (*SQLStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	// One connection serializes writers; WAL keeps readers of other processes unblocked.
	opts.MaxOpenConns = 1
	s, err := Open(DriverSQLite, dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)", opts)
	if err != nil {
		return nil, err
	}
	s.path = dbPath
	return s, nil
}

// NewPostgresStore connects to Postgres using a lib/pq DSN.
func NewPostgresStore(dsn string, opts Options) (*SQLStore, error) {
	return Open(DriverPostgres, dsn, opts)
}

// Open connects with the given driver and migrates the schema.
func Open(driver, dsn string, opts Options) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	s := &SQLStore{
		db:        db,
		driver:    driver,
		validator: opts.Validator,
		now:       opts.Now,
		entropy:   ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	if s.validator == nil {
		s.validator = model.DefaultMetadataValidator
	}
	if s.now == nil {
		s.now = time.Now
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id              TEXT PRIMARY KEY,
		owner_id        TEXT NOT NULL,
		content         TEXT NOT NULL,
		importance      INTEGER NOT NULL DEFAULT 5 CHECK (importance BETWEEN 1 AND 10),
		tags            TEXT,
		metadata        TEXT,
		created_at      BIGINT NOT NULL,
		updated_at      BIGINT NOT NULL,
		updated_at_text TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_owner_updated ON memories(owner_id, updated_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// tick returns a timestamp strictly after every one this store issued before.
func (s *SQLStore) tick() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickLocked()
}

func (s *SQLStore) tickLocked() time.Time {
	ns := s.now().UnixNano()
	if ns <= s.last {
		ns = s.last + 1
	}
	s.last = ns
	return time.Unix(0, ns).UTC()
}

func (s *SQLStore) newID() (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tickLocked()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String(), t
}

const memoryColumns = `id, owner_id, content, importance, tags, metadata, created_at, updated_at, updated_at_text`

const insertMemory = `INSERT INTO memories (` + memoryColumns + `)
	VALUES (:id, :owner_id, :content, :importance, :tags, :metadata, :created_at, :updated_at, :updated_at_text)`

const updateMemory = `UPDATE memories
	SET content = :content, importance = :importance, tags = :tags, metadata = :metadata,
	    updated_at = :updated_at, updated_at_text = :updated_at_text
	WHERE id = :id AND owner_id = :owner_id`

type memoryRow struct {
	ID            string         `db:"id"`
	Owner         string         `db:"owner_id"`
	Content       string         `db:"content"`
	Importance    int            `db:"importance"`
	Tags          sql.NullString `db:"tags"`
	Metadata      sql.NullString `db:"metadata"`
	CreatedAt     int64          `db:"created_at"`
	UpdatedAt     int64          `db:"updated_at"`
	UpdatedAtText string         `db:"updated_at_text"`
}

func toRow(m model.Memory) memoryRow {
	r := memoryRow{
		ID:            m.ID,
		Owner:         m.Owner,
		Content:       m.Content,
		Importance:    m.Importance,
		CreatedAt:     m.CreatedAt.UnixNano(),
		UpdatedAt:     m.UpdatedAt.UnixNano(),
		UpdatedAtText: m.UpdatedAt.Format(time.RFC3339Nano),
	}
	if len(m.Tags) > 0 {
		b, _ := json.Marshal(m.Tags)
		r.Tags = sql.NullString{String: string(b), Valid: true}
	}
	if len(m.Metadata) > 0 {
		r.Metadata = sql.NullString{String: string(m.Metadata), Valid: true}
	}
	return r
}

func (r memoryRow) toModel() model.Memory {
	m := model.Memory{
		ID:             r.ID,
		Owner:          r.Owner,
		Content:        r.Content,
		Importance:     r.Importance,
		Tags:           []string{},
		CreatedAt:      time.Unix(0, r.CreatedAt).UTC(),
		UpdatedAt:      time.Unix(0, r.UpdatedAt).UTC(),
		UpdatedAtEpoch: r.UpdatedAt / int64(time.Second),
	}
	if r.Tags.Valid {
		json.Unmarshal([]byte(r.Tags.String), &m.Tags)
	}
	if r.Metadata.Valid {
		m.Metadata = model.Metadata(r.Metadata.String)
	}
	return m
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", model.ErrNotFound, id)
}

// build validates p and returns the record it describes, with a fresh ID.
func (s *SQLStore) build(p CreateParams) (model.Memory, error) {
	if err := model.ValidateOwner(p.Owner); err != nil {
		return model.Memory{}, err
	}
	if err := model.ValidateContent(p.Content); err != nil {
		return model.Memory{}, err
	}
	importance := model.DefaultImportance
	if p.Importance != nil {
		importance = *p.Importance
	}
	if err := model.ValidateImportance(importance); err != nil {
		return model.Memory{}, err
	}
	tags := model.NormalizeTags(p.Tags)
	if err := model.ValidateTags(tags); err != nil {
		return model.Memory{}, err
	}
	if err := s.validator.Validate(p.Metadata); err != nil {
		return model.Memory{}, err
	}

	id, now := s.newID()
	return model.Memory{
		ID:             id,
		Owner:          p.Owner,
		Content:        strings.TrimSpace(p.Content),
		Importance:     importance,
		Tags:           tags,
		Metadata:       p.Metadata.Clone(),
		CreatedAt:      now,
		UpdatedAt:      now,
		UpdatedAtEpoch: now.Unix(),
	}, nil
}

func (s *SQLStore) Create(ctx context.Context, p CreateParams) (*model.Memory, error) {
	m, err := s.build(p)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.NamedExecContext(ctx, insertMemory, toRow(m)); err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}
	return &m, nil
}

func (s *SQLStore) List(ctx context.Context, owner string) ([]model.Memory, error) {
	var rows []memoryRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT `+memoryColumns+` FROM memories
		 WHERE owner_id = ?
		 ORDER BY updated_at DESC, id DESC`), owner)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}

	memories := make([]model.Memory, 0, len(rows))
	for _, r := range rows {
		memories = append(memories, r.toModel())
	}
	return memories, nil
}

func (s *SQLStore) Get(ctx context.Context, owner, id string) (*model.Memory, error) {
	var r memoryRow
	err := s.db.GetContext(ctx, &r, s.db.Rebind(
		`SELECT `+memoryColumns+` FROM memories WHERE id = ? AND owner_id = ?`), id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	m := r.toModel()
	return &m, nil
}

func (s *SQLStore) Update(ctx context.Context, owner, id string, patch model.Patch) (*model.Memory, error) {
	if patch.Content != nil {
		if err := model.ValidateContent(*patch.Content); err != nil {
			return nil, err
		}
	}
	if patch.Importance != nil {
		if err := model.ValidateImportance(*patch.Importance); err != nil {
			return nil, err
		}
	}
	if patch.Tags != nil {
		if err := model.ValidateTags(model.NormalizeTags(*patch.Tags)); err != nil {
			return nil, err
		}
	}
	if patch.Metadata != nil {
		if err := s.validator.Validate(*patch.Metadata); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `SELECT ` + memoryColumns + ` FROM memories WHERE id = ? AND owner_id = ?`
	if s.driver == DriverPostgres {
		query += ` FOR UPDATE`
	}
	var r memoryRow
	err = tx.GetContext(ctx, &r, tx.Rebind(query), id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load memory: %w", err)
	}

	m := patch.Apply(r.toModel())
	m.UpdatedAt = s.tick()
	m.UpdatedAtEpoch = m.UpdatedAt.Unix()

	if _, err := tx.NamedExecContext(ctx, updateMemory, toRow(m)); err != nil {
		return nil, fmt.Errorf("update memory: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLStore) Delete(ctx context.Context, owner, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`DELETE FROM memories WHERE id = ? AND owner_id = ?`), id, owner)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *SQLStore) Clear(ctx context.Context, owner string) (int, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM memories WHERE owner_id = ?`), owner)
	if err != nil {
		return 0, fmt.Errorf("clear memories: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Driver returns the database driver name.
func (s *SQLStore) Driver() string {
	return s.driver
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
