package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gridmark/internal/domain"
	"gridmark/internal/repository"

	_ "modernc.org/sqlite"
)

var _ repository.Repository = (*Repository)(nil)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (creating if needed) the model database at dbPath
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: keeps :memory: databases alive and serialises writers
	db.SetMaxOpenConns(1)

	repo := &Repository{
		db:     db,
		logger: slog.Default().With("component", "sqlite"),
	}

	if err := repo.configure(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

// SetLogger replaces the repository logger
func (r *Repository) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

func (r *Repository) configure(dbPath string) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if dbPath != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := r.db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL DEFAULT 'model',
		allows_bound_parameters INTEGER NOT NULL DEFAULT 1,
		seq INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS grid_lines (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_x REAL NOT NULL,
		start_y REAL NOT NULL,
		start_z REAL NOT NULL DEFAULT 0,
		end_x REAL NOT NULL,
		end_y REAL NOT NULL,
		end_z REAL NOT NULL DEFAULT 0,
		seq INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS elements (
		id TEXT PRIMARY KEY,
		name TEXT,
		category_id TEXT,
		location_kind TEXT,
		location JSON,
		seq INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS definitions (
		guid TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		group_name TEXT NOT NULL,
		registered_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bindings (
		definition_guid TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		parameter_group TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (definition_guid) REFERENCES definitions(guid) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS binding_categories (
		definition_guid TEXT NOT NULL,
		category_id TEXT NOT NULL,
		seq INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (definition_guid, category_id),
		FOREIGN KEY (definition_guid) REFERENCES bindings(definition_guid) ON DELETE CASCADE,
		FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS field_values (
		element_id TEXT NOT NULL,
		field_name TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (element_id, field_name),
		FOREIGN KEY (element_id) REFERENCES elements(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		committed_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_elements_category ON elements(category_id);
	CREATE INDEX IF NOT EXISTS idx_definitions_name ON definitions(name);
	CREATE INDEX IF NOT EXISTS idx_binding_categories_category ON binding_categories(category_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ============================================================================
// Transactions
// ============================================================================

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scopeKey struct{}

type scope struct {
	repo *Repository
	tx   *sql.Tx
	name string
}

func (r *Repository) scopeFrom(ctx context.Context) (*scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok || s.repo != r {
		return nil, false
	}
	return s, true
}

// q returns the transaction carried by ctx, or the database
func (r *Repository) q(ctx context.Context) querier {
	if s, ok := r.scopeFrom(ctx); ok {
		return s.tx
	}
	return r.db
}

// Transact runs fn in a transaction named name, joining the transaction in
// ctx if there is one. The outermost scope commits and records its name in
// the journal.
func (r *Repository) Transact(ctx context.Context, name string, fn repository.TxFunc) error {
	if s, ok := r.scopeFrom(ctx); ok {
		r.logger.Debug("joining transaction", "name", name, "outer", s.name)
		return fn(ctx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction %q: %w", name, err)
	}
	defer tx.Rollback()

	r.logger.Debug("transaction started", "name", name)
	txCtx := context.WithValue(ctx, scopeKey{}, &scope{repo: r, tx: tx, name: name})

	if err := fn(txCtx); err != nil {
		r.logger.Debug("transaction rolled back", "name", name, "error", err)
		return err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO journal (name, committed_at) VALUES (?, ?)`,
		name, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to journal transaction %q: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction %q: %w", name, err)
	}
	r.logger.Debug("transaction committed", "name", name)
	return nil
}

// Journal returns committed transaction names, oldest first
func (r *Repository) Journal(ctx context.Context) ([]string, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `SELECT name FROM journal ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan journal: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ============================================================================
// Element Source
// ============================================================================

// GridLines returns all grid lines in import order
func (r *Repository) GridLines(ctx context.Context) ([]domain.Line, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `
		SELECT `+lineColumns+` FROM grid_lines ORDER BY seq, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query grid lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.Line
	for rows.Next() {
		var row lineRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan grid line: %w", err)
		}
		lines = append(lines, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grid lines: %w", err)
	}
	return lines, nil
}

// ListElements returns elements in import order, optionally of one category
func (r *Repository) ListElements(ctx context.Context, categoryName string) ([]*domain.Element, error) {
	query := `SELECT ` + elementColumns + ` FROM elements e
		LEFT JOIN categories c ON c.id = e.category_id`
	var args []any
	if categoryName != "" {
		query += ` WHERE c.name = ?`
		args = append(args, categoryName)
	}
	query += ` ORDER BY e.seq, e.rowid`

	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query elements: %w", err)
	}
	defer rows.Close()

	var elements []*domain.Element
	for rows.Next() {
		var row elementRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan element: %w", err)
		}
		e, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", row.ID, err)
		}
		elements = append(elements, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating elements: %w", err)
	}
	return elements, nil
}

// GetElement retrieves a single element by ID
func (r *Repository) GetElement(ctx context.Context, id string) (*domain.Element, error) {
	var row elementRow
	err := r.q(ctx).QueryRowContext(ctx, `
		SELECT `+elementColumns+` FROM elements e
		LEFT JOIN categories c ON c.id = e.category_id
		WHERE e.id = ?
	`, id).Scan(row.scanArgs()...)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query element: %w", err)
	}
	return row.toDomain()
}

// ListCategories returns model categories in use, sorted by name
func (r *Repository) ListCategories(ctx context.Context) ([]domain.CategoryUsage, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `
		SELECT `+categoryColumns+`, COUNT(e.id)
		FROM categories c
		JOIN elements e ON e.category_id = c.id
		WHERE c.kind = ?
		GROUP BY c.id
		ORDER BY c.name
	`, string(domain.CategoryKindModel))
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var usages []domain.CategoryUsage
	for rows.Next() {
		var (
			row   categoryRow
			count int
		)
		if err := rows.Scan(append(row.scanArgs(), &count)...); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		usages = append(usages, domain.CategoryUsage{Category: *row.toDomain(), ElementCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return usages, nil
}

// ============================================================================
// Definitions and Bindings
// ============================================================================

// RegisterDefinition records a definition in the document
func (r *Repository) RegisterDefinition(ctx context.Context, def *domain.FieldDefinition) error {
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO definitions (guid, name, type, group_name, registered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guid) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			group_name = excluded.group_name
	`, def.GUID.String(), def.Name, string(def.Type), def.Group, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to register definition %q: %w", def.Name, err)
	}
	return nil
}

// GetDefinition retrieves a registered definition by GUID
func (r *Repository) GetDefinition(ctx context.Context, guid uuid.UUID) (*domain.FieldDefinition, error) {
	var (
		name, paramType, group string
	)
	err := r.q(ctx).QueryRowContext(ctx, `
		SELECT name, type, group_name FROM definitions WHERE guid = ?
	`, guid.String()).Scan(&name, &paramType, &group)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query definition: %w", err)
	}
	return &domain.FieldDefinition{
		GUID:  guid,
		Name:  name,
		Type:  domain.ParameterType(paramType),
		Group: group,
	}, nil
}

// GetBinding retrieves the binding for a definition
func (r *Repository) GetBinding(ctx context.Context, guid uuid.UUID) (*domain.FieldBinding, error) {
	var row bindingRow
	err := r.q(ctx).QueryRowContext(ctx, `
		SELECT `+bindingColumns+` FROM bindings b
		JOIN definitions d ON d.guid = b.definition_guid
		WHERE b.definition_guid = ?
	`, guid.String()).Scan(row.scanArgs()...)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query binding: %w", err)
	}

	binding, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	if binding.CategoryIDs, err = r.bindingCategories(ctx, guid); err != nil {
		return nil, err
	}
	return binding, nil
}

// ListBindings returns every binding ordered by definition name
func (r *Repository) ListBindings(ctx context.Context) ([]domain.FieldBinding, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `
		SELECT `+bindingColumns+` FROM bindings b
		JOIN definitions d ON d.guid = b.definition_guid
		ORDER BY d.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bindings: %w", err)
	}

	var bindings []domain.FieldBinding
	for rows.Next() {
		var row bindingRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan binding: %w", err)
		}
		b, err := row.toDomain()
		if err != nil {
			rows.Close()
			return nil, err
		}
		bindings = append(bindings, *b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating bindings: %w", err)
	}
	// Release the single connection before querying categories
	rows.Close()

	for i := range bindings {
		ids, err := r.bindingCategories(ctx, bindings[i].DefinitionGUID)
		if err != nil {
			return nil, err
		}
		bindings[i].CategoryIDs = ids
	}
	return bindings, nil
}

// InsertBinding creates a binding. It fails if the definition is already bound.
func (r *Repository) InsertBinding(ctx context.Context, b *domain.FieldBinding) error {
	now := time.Now()
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO bindings (definition_guid, kind, parameter_group, updated_at)
		VALUES (?, ?, ?, ?)
	`, b.DefinitionGUID.String(), string(b.Kind), string(b.ParameterGroup), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert binding %q: %w", b.DefinitionName, err)
	}

	if err := r.insertBindingCategories(ctx, b.DefinitionGUID, b.CategoryIDs); err != nil {
		return fmt.Errorf("failed to insert binding %q: %w", b.DefinitionName, err)
	}
	b.UpdatedAt = time.Unix(now.Unix(), 0)
	return nil
}

// ReInsertBinding replaces a binding's category set and settings, creating
// the binding if it does not exist
func (r *Repository) ReInsertBinding(ctx context.Context, b *domain.FieldBinding) error {
	now := time.Now()
	q := r.q(ctx)

	if _, err := q.ExecContext(ctx, `
		INSERT INTO bindings (definition_guid, kind, parameter_group, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(definition_guid) DO UPDATE SET
			kind = excluded.kind,
			parameter_group = excluded.parameter_group,
			updated_at = excluded.updated_at
	`, b.DefinitionGUID.String(), string(b.Kind), string(b.ParameterGroup), now.Unix()); err != nil {
		return fmt.Errorf("failed to reinsert binding %q: %w", b.DefinitionName, err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM binding_categories WHERE definition_guid = ?`,
		b.DefinitionGUID.String()); err != nil {
		return fmt.Errorf("failed to clear binding categories: %w", err)
	}

	if err := r.insertBindingCategories(ctx, b.DefinitionGUID, b.CategoryIDs); err != nil {
		return fmt.Errorf("failed to reinsert binding %q: %w", b.DefinitionName, err)
	}
	b.UpdatedAt = time.Unix(now.Unix(), 0)
	return nil
}

func (r *Repository) insertBindingCategories(ctx context.Context, guid uuid.UUID, categoryIDs []string) error {
	for i, id := range categoryIDs {
		if _, err := r.q(ctx).ExecContext(ctx, `
			INSERT INTO binding_categories (definition_guid, category_id, seq) VALUES (?, ?, ?)
		`, guid.String(), id, i); err != nil {
			return fmt.Errorf("category %s: %w", id, err)
		}
	}
	return nil
}

func (r *Repository) bindingCategories(ctx context.Context, guid uuid.UUID) ([]string, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `
		SELECT category_id FROM binding_categories WHERE definition_guid = ? ORDER BY seq
	`, guid.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query binding categories: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan binding category: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsFieldBound reports whether a field called fieldName is bound to the category
func (r *Repository) IsFieldBound(ctx context.Context, fieldName, categoryID string) (bool, error) {
	var bound bool
	err := r.q(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM definitions d
			JOIN binding_categories bc ON bc.definition_guid = d.guid
			WHERE d.name = ? AND bc.category_id = ?
		)
	`, fieldName, categoryID).Scan(&bound)
	if err != nil {
		return false, fmt.Errorf("failed to check binding for %q: %w", fieldName, err)
	}
	return bound, nil
}

// ============================================================================
// Field Values
// ============================================================================

// SetFieldValue writes a field value on an element
func (r *Repository) SetFieldValue(ctx context.Context, elementID, fieldName, value string) error {
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO field_values (element_id, field_name, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(element_id, field_name) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, elementID, fieldName, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set %q on %s: %w", fieldName, elementID, err)
	}
	return nil
}

// GetFieldValue reads a field value from an element
func (r *Repository) GetFieldValue(ctx context.Context, elementID, fieldName string) (string, bool, error) {
	var value string
	err := r.q(ctx).QueryRowContext(ctx, `
		SELECT value FROM field_values WHERE element_id = ? AND field_name = ?
	`, elementID, fieldName).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %q on %s: %w", fieldName, elementID, err)
	}
	return value, true, nil
}

// ============================================================================
// Import
// ============================================================================

// ImportProject replaces the model's categories, grids and elements.
// Categories and elements are upserted so bindings and field values of
// surviving rows are kept; rows missing from the project are removed first.
// Kept categories get placeholder names before the upsert, so a snapshot
// may move a name to another ID or swap names between IDs.
func (r *Repository) ImportProject(ctx context.Context, project *domain.Project) error {
	return r.Transact(ctx, "Import Project", func(ctx context.Context) error {
		q := r.q(ctx)

		if _, err := q.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS import_keep (kind TEXT, id TEXT)`); err != nil {
			return fmt.Errorf("failed to prepare import: %w", err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM import_keep`); err != nil {
			return fmt.Errorf("failed to prepare import: %w", err)
		}
		for _, c := range project.Categories {
			if _, err := q.ExecContext(ctx, `INSERT INTO import_keep VALUES ('category', ?)`, c.ID); err != nil {
				return fmt.Errorf("failed to prepare import: %w", err)
			}
		}
		for _, e := range project.Elements {
			if _, err := q.ExecContext(ctx, `INSERT INTO import_keep VALUES ('element', ?)`, e.ID); err != nil {
				return fmt.Errorf("failed to prepare import: %w", err)
			}
		}

		if _, err := q.ExecContext(ctx, `
			DELETE FROM elements WHERE id NOT IN (SELECT id FROM import_keep WHERE kind = 'element')
		`); err != nil {
			return fmt.Errorf("failed to remove stale elements: %w", err)
		}
		if _, err := q.ExecContext(ctx, `
			DELETE FROM categories WHERE id NOT IN (SELECT id FROM import_keep WHERE kind = 'category')
		`); err != nil {
			return fmt.Errorf("failed to remove stale categories: %w", err)
		}

		// Names are UNIQUE: park kept rows on names derived from their IDs
		if _, err := q.ExecContext(ctx, `UPDATE categories SET name = '#import#' || id`); err != nil {
			return fmt.Errorf("failed to stage category names: %w", err)
		}

		for i, c := range project.Categories {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO categories (id, name, kind, allows_bound_parameters, seq)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					kind = excluded.kind,
					allows_bound_parameters = excluded.allows_bound_parameters,
					seq = excluded.seq
			`, categoryInsertArgs(c, i)...); err != nil {
				return fmt.Errorf("failed to upsert category %s: %w", c.ID, err)
			}
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM grid_lines`); err != nil {
			return fmt.Errorf("failed to clear grid lines: %w", err)
		}
		for i, l := range project.Grids {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO grid_lines (`+lineColumns+`, seq)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, append(lineInsertArgs(l), i)...); err != nil {
				return fmt.Errorf("failed to insert grid line %s: %w", l.ID, err)
			}
		}

		for i, e := range project.Elements {
			args, err := elementInsertArgs(e, i)
			if err != nil {
				return fmt.Errorf("element %s: %w", e.ID, err)
			}
			if _, err := q.ExecContext(ctx, `
				INSERT INTO elements (id, name, category_id, location_kind, location, seq)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					category_id = excluded.category_id,
					location_kind = excluded.location_kind,
					location = excluded.location,
					seq = excluded.seq
			`, args...); err != nil {
				return fmt.Errorf("failed to upsert element %s: %w", e.ID, err)
			}
		}

		r.logger.Info("project imported",
			"categories", len(project.Categories),
			"grids", len(project.Grids),
			"elements", len(project.Elements))
		return nil
	})
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
