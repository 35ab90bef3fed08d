// Package sqlitestore persists the medicine catalog in SQLite. It implements the
// same contracts as the in-memory container, so the service and the operator
// CLI can run against an imported database file.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/NandaniSingh69/PharmaTrack/interfaces"
	"github.com/NandaniSingh69/PharmaTrack/logging"
	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
)

var _ interfaces.Catalog = (*Store)(nil)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100

	metaLastUpdated = "last_updated"
	metaReport      = "quality_report"
)

const schema = `
CREATE TABLE IF NOT EXISTS medicines (
	id                    TEXT PRIMARY KEY,
	position              INTEGER NOT NULL,
	name                  TEXT NOT NULL,
	composition           TEXT NOT NULL DEFAULT '',
	ingredients           TEXT NOT NULL DEFAULT '[]',
	ingredient_text       TEXT NOT NULL DEFAULT '',
	search_text           TEXT NOT NULL DEFAULT '',
	manufacturer          TEXT NOT NULL DEFAULT '',
	pack_size             TEXT NOT NULL DEFAULT '',
	price                 REAL NOT NULL DEFAULT 0,
	category              TEXT NOT NULL DEFAULT 'Other',
	prescription_required INTEGER NOT NULL DEFAULT 0,
	sub_category          TEXT NOT NULL DEFAULT '',
	usage                 TEXT NOT NULL DEFAULT '',
	side_effects          TEXT NOT NULL DEFAULT '',
	drug_interactions     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_medicines_category ON medicines(category, position);
CREATE INDEX IF NOT EXISTS idx_medicines_position ON medicines(position);

CREATE TABLE IF NOT EXISTS catalog_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const selectColumns = `id, name, composition, ingredients, manufacturer, pack_size, price, category,
	prescription_required, sub_category, usage, side_effects, drug_interactions`

// medicineRow maps a medicines row. Ingredients are stored as a JSON array.
type medicineRow struct {
	entities.Medicine
	IngredientsJSON string `db:"ingredients"`
}

func (r medicineRow) toMedicine() entities.Medicine {
	m := r.Medicine
	if err := json.Unmarshal([]byte(r.IngredientsJSON), &m.Ingredients); err != nil {
		logging.Warn("Invalid ingredients column", "id", m.ID, "error", err)
		m.Ingredients = nil
	}
	return m
}

// Store is a SQLite backed catalog.
type Store struct {
	db       *sqlx.DB
	updating atomic.Bool
}

// Open opens (creating if needed) the catalog database at path.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// whereClause renders filter as a SQL condition and its arguments.
func whereClause(filter interfaces.Filter) (string, []any) {
	conditions := []string{"1 = 1"}
	var args []any

	if filter.ExcludeID != "" {
		conditions = append(conditions, "id <> ?")
		args = append(args, filter.ExcludeID)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, "price <= ?")
		args = append(args, *filter.MaxPrice)
	}
	if len(filter.IngredientTerms) > 0 {
		terms := make([]string, 0, len(filter.IngredientTerms))
		for _, term := range filter.IngredientTerms {
			terms = append(terms, `ingredient_text LIKE ? ESCAPE '\'`)
			args = append(args, likePattern(term))
		}
		conditions = append(conditions, "("+strings.Join(terms, " OR ")+")")
	}

	return strings.Join(conditions, " AND "), args
}

// likePattern builds a substring pattern with LIKE wildcards escaped.
func likePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(term))
	return "%" + escaped + "%"
}

func (s *Store) selectMedicines(ctx context.Context, query string, args ...any) ([]entities.Medicine, error) {
	var rows []medicineRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make([]entities.Medicine, len(rows))
	for i, r := range rows {
		out[i] = r.toMedicine()
	}
	return out, nil
}

// FindByID returns the medicine with the given id, or nil when it is unknown.
func (s *Store) FindByID(ctx context.Context, id string) (*entities.Medicine, error) {
	var row medicineRow
	err := s.db.GetContext(ctx, &row, "SELECT "+selectColumns+" FROM medicines WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find medicine %s: %w", id, err)
	}

	m := row.toMedicine()
	return &m, nil
}

// FindMany returns up to limit medicines matching filter, in import order.
func (s *Store) FindMany(ctx context.Context, filter interfaces.Filter, limit int) ([]entities.Medicine, error) {
	if limit <= 0 {
		return []entities.Medicine{}, nil
	}

	where, args := whereClause(filter)
	out, err := s.selectMedicines(ctx,
		"SELECT "+selectColumns+" FROM medicines WHERE "+where+" ORDER BY position LIMIT ?",
		append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("find medicines: %w", err)
	}
	return out, nil
}

// RandomSample draws up to size matching medicines without replacement.
func (s *Store) RandomSample(ctx context.Context, filter interfaces.Filter, size int) ([]entities.Medicine, error) {
	if size <= 0 {
		return []entities.Medicine{}, nil
	}

	where, args := whereClause(filter)
	out, err := s.selectMedicines(ctx,
		"SELECT "+selectColumns+" FROM medicines WHERE "+where+" ORDER BY random() LIMIT ?",
		append(args, size)...)
	if err != nil {
		return nil, fmt.Errorf("sample medicines: %w", err)
	}
	return out, nil
}

// Search returns medicines whose name, composition or ingredients contain the
// query text, case-insensitively.
func (s *Store) Search(ctx context.Context, query interfaces.SearchQuery) ([]entities.Medicine, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	where, args := whereClause(interfaces.Filter{Category: query.Category, MaxPrice: query.MaxPrice})
	if text := strings.TrimSpace(query.Text); text != "" {
		where += ` AND search_text LIKE ? ESCAPE '\'`
		args = append(args, likePattern(text))
	}

	out, err := s.selectMedicines(ctx,
		"SELECT "+selectColumns+" FROM medicines WHERE "+where+" ORDER BY position LIMIT ?",
		append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("search medicines: %w", err)
	}
	return out, nil
}

// ReplaceAll replaces the catalog in a single transaction. Rows repeating an
// earlier id are ignored.
func (s *Store) ReplaceAll(ctx context.Context, medicines []entities.Medicine, report *interfaces.DataQualityReport) error {
	if report == nil {
		report = &interfaces.DataQualityReport{TotalMedicines: len(medicines)}
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode quality report: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM medicines"); err != nil {
		return fmt.Errorf("clear medicines: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO medicines (
		id, position, name, composition, ingredients, ingredient_text, search_text, manufacturer,
		pack_size, price, category, prescription_required, sub_category, usage, side_effects, drug_interactions
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range medicines {
		ingredients := m.Ingredients
		if ingredients == nil {
			ingredients = []string{}
		}
		ingredientsJSON, err := json.Marshal(ingredients)
		if err != nil {
			return fmt.Errorf("encode ingredients of %s: %w", m.ID, err)
		}
		ingredientText := strings.ToLower(strings.Join(ingredients, "|"))
		searchText := strings.ToLower(m.Name) + "\n" + strings.ToLower(m.Composition) + "\n" + ingredientText

		if _, err := stmt.ExecContext(ctx,
			m.ID, i, m.Name, m.Composition, string(ingredientsJSON), ingredientText, searchText, m.Manufacturer,
			m.PackSize, m.Price, string(m.Category), m.PrescriptionRequired, m.SubCategory, m.Usage,
			m.SideEffects, m.DrugInteractions,
		); err != nil {
			return fmt.Errorf("insert medicine %s: %w", m.ID, err)
		}
	}

	if err := setMeta(ctx, tx, metaLastUpdated, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	if err := setMeta(ctx, tx, metaReport, string(reportJSON)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog: %w", err)
	}

	logging.Info("Catalog replaced", "medicines", len(medicines), "backend", "sqlite")
	return nil
}

func setMeta(ctx context.Context, tx *sqlx.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO catalog_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) getMeta(key string) (string, bool) {
	var value string
	err := s.db.Get(&value, "SELECT value FROM catalog_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		logging.Warn("Failed to read catalog metadata", "key", key, "error", err)
		return "", false
	}
	return value, true
}

// Count returns the number of stored medicines
func (s *Store) Count() int {
	var n int
	if err := s.db.Get(&n, "SELECT COUNT(*) FROM medicines"); err != nil {
		logging.Warn("Failed to count medicines", "error", err)
		return 0
	}
	return n
}

// GetLastUpdated returns the time of the last import
func (s *Store) GetLastUpdated() time.Time {
	value, ok := s.getMeta(metaLastUpdated)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		logging.Warn("Invalid last updated timestamp", "value", value)
		return time.Time{}
	}
	return t
}

// GetDataQualityReport returns the report stored with the last import
func (s *Store) GetDataQualityReport() *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{}
	value, ok := s.getMeta(metaReport)
	if !ok {
		return report
	}
	if err := json.Unmarshal([]byte(value), report); err != nil {
		logging.Warn("Invalid stored quality report", "error", err)
		return &interfaces.DataQualityReport{}
	}
	return report
}

// IsUpdating returns true while an import runs in this process
func (s *Store) IsUpdating() bool {
	return s.updating.Load()
}

// BeginUpdate marks the start of an import.
// Returns false if another import is in progress
func (s *Store) BeginUpdate() bool {
	return s.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of an import
func (s *Store) EndUpdate() {
	s.updating.Store(false)
}
