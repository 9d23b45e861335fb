/*
Package sqlite provides the SQLite-backed persistence layer for the license
simulation engine.

PURPOSE:
  Stores every dataset the engine works with: the baseline role/object
  license extract, the per-tenant simulation working set, the authorization
  reference table, the user-role mapping and the simulation result history.
  In production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

TENANT SCOPING:
  One normalized schema. Every table carries (client_name, system_name)
  columns and every query filters on them; there is no runtime table-name
  synthesis and therefore no table-proliferation or injection surface.

KEY TABLES:
  role_object_baseline: Source-of-truth license extract per tenant
  role_object_sim:      Simulation working set (scratch, truncated per run)
  auth_object_license:  (object, field, activity) -> license reference
  user_role_map:        User-to-role memberships
  simulation_results:   Per-change run outcomes (append-forever history)
  data_loads:           Ingestion audit rows

WORKING-SET LIFECYCLE:
  EnsureSnapshot copies the baseline into role_object_sim when the tenant's
  working set is absent or empty. ReplaceSnapshot persists a reconciled
  working set in one transaction (delete + insert). ClearSnapshot truncates
  after a run; the set is rebuilt from baseline on next access.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

SEE ALSO:
  - license/types.go: Domain types persisted here
  - api/runner.go: Drives the working-set lifecycle per run
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/license-engine/license"
)

// Store implements all persistence for the engine using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite serializes writers anyway, and a pooled second
	// connection to ":memory:" would be a different database entirely.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// NewFromDB wraps an existing database handle. The schema is assumed to be
// in place; used by tests that inject a mock connection.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Baseline license extract (source of truth per tenant)
	CREATE TABLE IF NOT EXISTS role_object_baseline (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_name TEXT NOT NULL,
		system_name TEXT NOT NULL,
		role TEXT NOT NULL,
		role_text TEXT,
		role_classification TEXT,
		object TEXT NOT NULL,
		object_text TEXT,
		field TEXT,
		value_low TEXT,
		value_high TEXT,
		classification TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_baseline_tenant_role
		ON role_object_baseline(client_name, system_name, role);

	-- Simulation working set (scratch space, truncated after each run)
	CREATE TABLE IF NOT EXISTS role_object_sim (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_name TEXT NOT NULL,
		system_name TEXT NOT NULL,
		role TEXT NOT NULL,
		role_text TEXT,
		role_classification TEXT,
		object TEXT NOT NULL,
		object_text TEXT,
		field TEXT,
		value_low TEXT,
		value_high TEXT,
		classification TEXT,
		operation TEXT,
		new_value TEXT,
		new_license TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sim_tenant_role
		ON role_object_sim(client_name, system_name, role);

	-- Authorization object license reference
	CREATE TABLE IF NOT EXISTS auth_object_license (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_name TEXT NOT NULL,
		system_name TEXT NOT NULL,
		object TEXT NOT NULL,
		field TEXT NOT NULL,
		activity TEXT,
		text TEXT,
		license TEXT,
		ui_text TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_auth_tenant_object_field
		ON auth_object_license(client_name, system_name, object, field);

	-- User-to-role memberships
	CREATE TABLE IF NOT EXISTS user_role_map (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_name TEXT NOT NULL,
		system_name TEXT NOT NULL,
		role TEXT NOT NULL,
		user_name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_user_role_tenant_role
		ON user_role_map(client_name, system_name, role);
	CREATE INDEX IF NOT EXISTS idx_user_role_tenant_user
		ON user_role_map(client_name, system_name, user_name);

	-- Per-change simulation run outcomes (append-forever history)
	CREATE TABLE IF NOT EXISTS simulation_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		status TEXT NOT NULL,
		client_name TEXT NOT NULL,
		system_name TEXT NOT NULL,
		fue_required TEXT,
		role_changed TEXT,
		role_description TEXT,
		object TEXT,
		field TEXT,
		value_low TEXT,
		value_high TEXT,
		operation TEXT,
		prev_license TEXT,
		current_license TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_results_tenant_run
		ON simulation_results(client_name, system_name, run_id);
	CREATE INDEX IF NOT EXISTS idx_results_status
		ON simulation_results(run_id, status);

	-- Ingestion audit
	CREATE TABLE IF NOT EXISTS data_loads (
		id TEXT PRIMARY KEY,
		client_name TEXT NOT NULL,
		system_name TEXT NOT NULL,
		dataset TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WORKING SET (role_object_sim)
// =============================================================================

// EnsureSnapshot guarantees the tenant's working set is populated, copying
// from the baseline extract when the set is absent or empty. Returns
// license.ErrNoBaselineData when the tenant has not loaded source data.
func (s *Store) EnsureSnapshot(ctx context.Context, tenant license.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var simCount int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM role_object_sim WHERE client_name = ? AND system_name = ?`,
		tenant.Client, tenant.System,
	).Scan(&simCount)
	if err != nil {
		return fmt.Errorf("failed to count working set: %w", err)
	}
	if simCount > 0 {
		return nil
	}

	var baseCount int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM role_object_baseline WHERE client_name = ? AND system_name = ?`,
		tenant.Client, tenant.System,
	).Scan(&baseCount)
	if err != nil {
		return fmt.Errorf("failed to count baseline: %w", err)
	}
	if baseCount == 0 {
		return license.ErrNoBaselineData
	}

	// The fresh copy is already normalized copy-forward (current value =
	// low, current license = baseline), the same shape reconciliation
	// produces, so read-only consumers resolve licenses without a run.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO role_object_sim
			(client_name, system_name, role, role_text, role_classification,
			 object, object_text, field, value_low, value_high, classification,
			 operation, new_value, new_license)
		SELECT client_name, system_name, role, role_text, role_classification,
		       object, object_text, field, value_low, value_high, classification,
		       NULL, value_low, classification
		FROM role_object_baseline
		WHERE client_name = ? AND system_name = ?`,
		tenant.Client, tenant.System,
	)
	if err != nil {
		return fmt.Errorf("failed to copy baseline into working set: %w", err)
	}
	return nil
}

// LoadSnapshot returns the tenant's full working set.
func (s *Store) LoadSnapshot(ctx context.Context, tenant license.Tenant) ([]license.RoleObjectAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT role, role_text, role_classification, object, object_text,
		       field, value_low, value_high, classification,
		       operation, new_value, new_license
		FROM role_object_sim
		WHERE client_name = ? AND system_name = ?
		ORDER BY role, object, field, value_low
	`
	return s.querySnapshot(ctx, query, tenant.Client, tenant.System)
}

// RoleSnapshot returns the working-set rows of one role, ordered most
// restrictive classification first.
func (s *Store) RoleSnapshot(ctx context.Context, tenant license.Tenant, role string) ([]license.RoleObjectAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT role, role_text, role_classification, object, object_text,
		       field, value_low, value_high, classification,
		       operation, new_value, new_license
		FROM role_object_sim
		WHERE client_name = ? AND system_name = ? AND role = ?
		ORDER BY
			CASE classification
				WHEN 'GB Advanced Use' THEN 1
				WHEN 'GC Core Use' THEN 2
				WHEN 'GD Self-Service Use' THEN 3
				ELSE 99
			END, object, field
	`
	rows, err := s.querySnapshot(ctx, query, tenant.Client, tenant.System, role)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, license.ErrRoleNotFound
	}
	return rows, nil
}

// ReplaceSnapshot persists a reconciled working set atomically: the
// tenant's rows are deleted and rewritten inside one transaction, so a
// failure midway leaves the previous state untouched.
func (s *Store) ReplaceSnapshot(ctx context.Context, tenant license.Tenant, rows []license.RoleObjectAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx,
		`DELETE FROM role_object_sim WHERE client_name = ? AND system_name = ?`,
		tenant.Client, tenant.System,
	); err != nil {
		return fmt.Errorf("failed to clear working set: %w", err)
	}

	insert := `
		INSERT INTO role_object_sim
			(client_name, system_name, role, role_text, role_classification,
			 object, object_text, field, value_low, value_high, classification,
			 operation, new_value, new_license)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, r := range rows {
		if _, err := sqlTx.ExecContext(ctx, insert,
			tenant.Client, tenant.System,
			r.Role, nullString(r.RoleText), nullString(string(r.RoleClassification)),
			r.Object, nullString(r.Text), r.Field, r.Low, r.High,
			nullString(string(r.Classification)),
			nullString(string(r.Operation)), nullString(r.NewValue),
			nullString(string(r.NewLicense)),
		); err != nil {
			return fmt.Errorf("failed to insert working-set row: %w", err)
		}
	}

	return sqlTx.Commit()
}

// ClearSnapshot truncates the tenant's working set. It is rebuilt from the
// baseline on next access.
func (s *Store) ClearSnapshot(ctx context.Context, tenant license.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM role_object_sim WHERE client_name = ? AND system_name = ?`,
		tenant.Client, tenant.System,
	)
	if err != nil {
		return fmt.Errorf("failed to clear working set: %w", err)
	}
	return nil
}

func (s *Store) querySnapshot(ctx context.Context, query string, args ...any) ([]license.RoleObjectAssignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query working set: %w", err)
	}
	defer rows.Close()

	var out []license.RoleObjectAssignment
	for rows.Next() {
		var (
			r                            license.RoleObjectAssignment
			roleText, roleClassif        sql.NullString
			objectText, field, low, high sql.NullString
			classif, op, newVal, newLic  sql.NullString
		)
		if err := rows.Scan(
			&r.Role, &roleText, &roleClassif, &r.Object, &objectText,
			&field, &low, &high, &classif, &op, &newVal, &newLic,
		); err != nil {
			return nil, fmt.Errorf("failed to scan working-set row: %w", err)
		}
		r.RoleText = roleText.String
		r.RoleClassification = license.Classification(roleClassif.String)
		r.Text = objectText.String
		r.Field = field.String
		r.Low = low.String
		r.High = high.String
		r.Classification = license.Classification(classif.String)
		r.Operation = license.Operation(op.String)
		r.NewValue = newVal.String
		r.NewLicense = license.Classification(newLic.String)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// BASELINE (role_object_baseline)
// =============================================================================

// ReplaceBaseline truncates and reloads the tenant's baseline extract.
// Mirrors the ingestion contract: every upload replaces the dataset whole.
func (s *Store) ReplaceBaseline(ctx context.Context, tenant license.Tenant, rows []license.RoleObjectAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx,
		`DELETE FROM role_object_baseline WHERE client_name = ? AND system_name = ?`,
		tenant.Client, tenant.System,
	); err != nil {
		return fmt.Errorf("failed to truncate baseline: %w", err)
	}

	insert := `
		INSERT INTO role_object_baseline
			(client_name, system_name, role, role_text, role_classification,
			 object, object_text, field, value_low, value_high, classification)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, r := range rows {
		if _, err := sqlTx.ExecContext(ctx, insert,
			tenant.Client, tenant.System,
			r.Role, nullString(r.RoleText), nullString(string(r.RoleClassification)),
			r.Object, nullString(r.Text), r.Field, r.Low, r.High,
			nullString(string(r.Classification)),
		); err != nil {
			return fmt.Errorf("failed to insert baseline row: %w", err)
		}
	}

	return sqlTx.Commit()
}

// RoleSummary is the per-role aggregate used by the role listing endpoint.
type RoleSummary struct {
	Role           string
	Description    string
	Classification license.Classification
	AssignedUsers  int64
	Advanced       int64
	Core           int64
	SelfService    int64
}

// RoleSummaries aggregates the baseline per role: object counts per tier
// plus the distinct assigned-user count from the membership table. Only
// roles whose role and object classifications fall in the recognized tiers
// participate, matching the source extract semantics.
func (s *Store) RoleSummaries(ctx context.Context, tenant license.Tenant) ([]RoleSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		WITH role_aggregates AS (
			SELECT
				b.role AS role,
				MAX(b.role_text) AS description,
				MAX(b.role_classification) AS classification,
				SUM(CASE WHEN b.classification = 'GB Advanced Use' THEN 1 ELSE 0 END) AS gb,
				SUM(CASE WHEN b.classification = 'GC Core Use' THEN 1 ELSE 0 END) AS gc,
				SUM(CASE WHEN b.classification = 'GD Self-Service Use' THEN 1 ELSE 0 END) AS gd
			FROM role_object_baseline b
			WHERE b.client_name = ? AND b.system_name = ?
			  AND b.role_classification IN ('GB Advanced Use', 'GC Core Use', 'GD Self-Service Use')
			  AND b.classification IN ('GB Advanced Use', 'GC Core Use', 'GD Self-Service Use')
			GROUP BY b.role
		),
		user_counts AS (
			SELECT role, COUNT(DISTINCT user_name) AS assigned_users
			FROM user_role_map
			WHERE client_name = ? AND system_name = ?
			GROUP BY role
		)
		SELECT ra.role, ra.description, ra.classification,
		       COALESCE(uc.assigned_users, 0), ra.gb, ra.gc, ra.gd
		FROM role_aggregates ra
		LEFT JOIN user_counts uc ON ra.role = uc.role
		ORDER BY ra.role
	`

	rows, err := s.db.QueryContext(ctx, query,
		tenant.Client, tenant.System, tenant.Client, tenant.System)
	if err != nil {
		return nil, fmt.Errorf("failed to query role summaries: %w", err)
	}
	defer rows.Close()

	var out []RoleSummary
	for rows.Next() {
		var (
			rs          RoleSummary
			desc, class sql.NullString
		)
		if err := rows.Scan(&rs.Role, &desc, &class, &rs.AssignedUsers,
			&rs.Advanced, &rs.Core, &rs.SelfService); err != nil {
			return nil, fmt.Errorf("failed to scan role summary: %w", err)
		}
		rs.Description = desc.String
		rs.Classification = license.Classification(class.String)
		out = append(out, rs)
	}
	return out, rows.Err()
}

// =============================================================================
// REFERENCE DATA (auth_object_license)
// =============================================================================

// ReplaceAuthReferences truncates and reloads the tenant's reference table.
func (s *Store) ReplaceAuthReferences(ctx context.Context, tenant license.Tenant, rows []license.AuthObjectLicense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx,
		`DELETE FROM auth_object_license WHERE client_name = ? AND system_name = ?`,
		tenant.Client, tenant.System,
	); err != nil {
		return fmt.Errorf("failed to truncate reference table: %w", err)
	}

	insert := `
		INSERT INTO auth_object_license
			(client_name, system_name, object, field, activity, text, license, ui_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, r := range rows {
		if _, err := sqlTx.ExecContext(ctx, insert,
			tenant.Client, tenant.System,
			r.Object, r.Field, nullString(r.Activity), nullString(r.Text),
			nullString(string(r.License)), nullString(r.UIText),
		); err != nil {
			return fmt.Errorf("failed to insert reference row: %w", err)
		}
	}

	return sqlTx.Commit()
}

// LookupLicense resolves the license for (object, field, activity). The
// boolean is false when no reference row matches; callers treat that as a
// data-quality gap, not an error.
func (s *Store) LookupLicense(ctx context.Context, tenant license.Tenant, object, field, activity string) (license.Classification, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lic sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT license FROM auth_object_license
		WHERE client_name = ? AND system_name = ?
		  AND object = ? AND field = ? AND activity = ?
		LIMIT 1`,
		tenant.Client, tenant.System, object, field, activity,
	).Scan(&lic)
	if err == sql.ErrNoRows {
		return license.ClassNone, false, nil
	}
	if err != nil {
		return license.ClassNone, false, fmt.Errorf("failed to look up license: %w", err)
	}
	if !lic.Valid || lic.String == "" {
		return license.ClassNone, false, nil
	}
	return license.Classification(lic.String), true, nil
}

// ReferenceRows returns all reference rows for (object, field); used by the
// reference/suggestion endpoint.
func (s *Store) ReferenceRows(ctx context.Context, tenant license.Tenant, object, field string) ([]license.AuthObjectLicense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT object, field, activity, text, license, ui_text
		FROM auth_object_license
		WHERE client_name = ? AND system_name = ? AND object = ? AND field = ?
		ORDER BY activity`,
		tenant.Client, tenant.System, object, field,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query reference rows: %w", err)
	}
	defer rows.Close()

	var out []license.AuthObjectLicense
	for rows.Next() {
		var (
			r                            license.AuthObjectLicense
			activity, text, lic, uiText sql.NullString
		)
		if err := rows.Scan(&r.Object, &r.Field, &activity, &text, &lic, &uiText); err != nil {
			return nil, fmt.Errorf("failed to scan reference row: %w", err)
		}
		r.Activity = activity.String
		r.Text = text.String
		r.License = license.Classification(lic.String)
		r.UIText = uiText.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, license.ErrNoReferenceData
	}
	return out, nil
}

// =============================================================================
// USER ROLE MAPPING (user_role_map)
// =============================================================================

// ReplaceUserRoles truncates and reloads the tenant's membership table.
func (s *Store) ReplaceUserRoles(ctx context.Context, tenant license.Tenant, rows []license.UserRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx,
		`DELETE FROM user_role_map WHERE client_name = ? AND system_name = ?`,
		tenant.Client, tenant.System,
	); err != nil {
		return fmt.Errorf("failed to truncate user-role map: %w", err)
	}

	insert := `
		INSERT INTO user_role_map (client_name, system_name, role, user_name)
		VALUES (?, ?, ?, ?)
	`
	for _, r := range rows {
		if _, err := sqlTx.ExecContext(ctx, insert,
			tenant.Client, tenant.System, r.Role, r.User,
		); err != nil {
			return fmt.Errorf("failed to insert user-role row: %w", err)
		}
	}

	return sqlTx.Commit()
}

// UserRoles returns the tenant's full user-to-role mapping.
func (s *Store) UserRoles(ctx context.Context, tenant license.Tenant) ([]license.UserRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_name, role FROM user_role_map
		WHERE client_name = ? AND system_name = ?`,
		tenant.Client, tenant.System,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query user roles: %w", err)
	}
	defer rows.Close()

	var out []license.UserRole
	for rows.Next() {
		var ur license.UserRole
		if err := rows.Scan(&ur.User, &ur.Role); err != nil {
			return nil, fmt.Errorf("failed to scan user role: %w", err)
		}
		out = append(out, ur)
	}
	return out, rows.Err()
}

// =============================================================================
// SIMULATION RESULTS (simulation_results)
// =============================================================================

// LatestRunID returns the highest SIM-prefixed run id persisted for the
// tenant, or "" when none exists.
func (s *Store) LatestRunID(ctx context.Context, tenant license.Tenant) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(run_id) FROM simulation_results
		WHERE client_name = ? AND system_name = ? AND run_id LIKE 'SIM%'`,
		tenant.Client, tenant.System,
	).Scan(&runID)
	if err != nil {
		return "", fmt.Errorf("failed to query latest run id: %w", err)
	}
	return runID.String, nil
}

// InsertResultPlaceholders creates one StatusInProgress result row per
// change, all sharing runID and timestamp, inside one transaction. The
// returned row ids are positionally aligned with changes so finalization
// can update each record by primary key.
func (s *Store) InsertResultPlaceholders(ctx context.Context, tenant license.Tenant, runID string, at time.Time, changes []license.ChangeRequest) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	insert := `
		INSERT INTO simulation_results
			(run_id, timestamp, status, client_name, system_name, fue_required,
			 role_changed, role_description, object, field, value_low, value_high,
			 operation, prev_license, current_license)
		VALUES (?, ?, ?, ?, ?, '0', ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	ids := make([]int64, 0, len(changes))
	ts := at.UTC().Format(time.RFC3339)
	for _, c := range changes {
		res, err := sqlTx.ExecContext(ctx, insert,
			runID, ts, string(license.StatusInProgress),
			tenant.Client, tenant.System,
			c.Role, nullString(c.RoleText), c.Object, c.Field,
			c.ValueLow, c.ValueHigh,
			nullString(string(c.Action)), nullString(string(c.Classification)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert result placeholder: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read placeholder id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// CompleteResult finalizes one placeholder row by primary key.
func (s *Store) CompleteResult(ctx context.Context, id int64, fueRequired string, current license.Classification, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE simulation_results
		SET status = ?, fue_required = ?, current_license = ?, timestamp = ?
		WHERE id = ?`,
		string(license.StatusCompleted), fueRequired,
		nullString(string(current)), at.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete result %d: %w", id, err)
	}
	return nil
}

// FailRun marks every remaining StatusInProgress row of a run as failed.
// Returns the number of rows transitioned.
func (s *Store) FailRun(ctx context.Context, tenant license.Tenant, runID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE simulation_results
		SET status = ?, timestamp = ?
		WHERE client_name = ? AND system_name = ? AND run_id = ? AND status = ?`,
		string(license.StatusFailed), at.UTC().Format(time.RFC3339),
		tenant.Client, tenant.System, runID, string(license.StatusInProgress),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to fail run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ListResults returns the tenant's full result history, newest first.
func (s *Store) ListResults(ctx context.Context, tenant license.Tenant) ([]license.SimulationResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, timestamp, status, fue_required,
		       role_changed, role_description, object, field,
		       value_low, value_high, operation, prev_license, current_license
		FROM simulation_results
		WHERE client_name = ? AND system_name = ?
		ORDER BY timestamp DESC, run_id DESC, id ASC`,
		tenant.Client, tenant.System,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []license.SimulationResultRecord
	for rows.Next() {
		var (
			r                             license.SimulationResultRecord
			ts                            string
			fue, role, roleText           sql.NullString
			object, field, low, high      sql.NullString
			op, prevLic, currLic          sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.RunID, &ts, &r.Status, &fue,
			&role, &roleText, &object, &field, &low, &high,
			&op, &prevLic, &currLic); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Timestamp, _ = time.Parse(time.RFC3339, ts)
		r.Tenant = tenant
		r.FUERequired = fue.String
		r.Role = role.String
		r.RoleText = roleText.String
		r.Object = object.String
		r.Field = field.String
		r.ValueLow = low.String
		r.ValueHigh = high.String
		r.Operation = license.Operation(op.String)
		r.PrevLicense = license.Classification(prevLic.String)
		r.CurrentLicense = license.Classification(currLic.String)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// INGESTION AUDIT (data_loads)
// =============================================================================

// LoadRecord is one ingestion audit row.
type LoadRecord struct {
	ID       string
	Tenant   license.Tenant
	Dataset  string
	RowCount int
}

// RecordLoad appends an ingestion audit row.
func (s *Store) RecordLoad(ctx context.Context, rec LoadRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO data_loads (id, client_name, system_name, dataset, row_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Tenant.Client, rec.Tenant.System,
		rec.Dataset, rec.RowCount, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record load: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
