package authz

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all authorization schema migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create modules table",
			SQL: `
				CREATE TABLE IF NOT EXISTS warden_modules (
					id BIGSERIAL PRIMARY KEY,
					code VARCHAR(100) NOT NULL UNIQUE,
					name VARCHAR(255) NOT NULL,
					category VARCHAR(50) NOT NULL,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					is_core BOOLEAN NOT NULL DEFAULT FALSE,
					sort_order INT NOT NULL DEFAULT 0,
					state VARCHAR(10) NOT NULL DEFAULT 'active',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_warden_modules_state ON warden_modules(state);
				CREATE INDEX idx_warden_modules_category ON warden_modules(category);
			`,
		},
		{
			Version:     2,
			Description: "Create resources table",
			SQL: `
				CREATE TABLE IF NOT EXISTS warden_resources (
					id BIGSERIAL PRIMARY KEY,
					module_id BIGINT NOT NULL REFERENCES warden_modules(id),
					parent_id BIGINT REFERENCES warden_resources(id),
					code VARCHAR(255) NOT NULL UNIQUE,
					name VARCHAR(255) NOT NULL,
					type VARCHAR(20) NOT NULL,
					is_public BOOLEAN NOT NULL DEFAULT FALSE,
					requires_approval BOOLEAN NOT NULL DEFAULT FALSE,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					sort_order INT NOT NULL DEFAULT 0,
					state VARCHAR(10) NOT NULL DEFAULT 'active',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_warden_resources_module_id ON warden_resources(module_id);
				CREATE INDEX idx_warden_resources_parent_id ON warden_resources(parent_id);
				CREATE INDEX idx_warden_resources_state ON warden_resources(state);
			`,
		},
		{
			Version:     3,
			Description: "Create permissions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS warden_permissions (
					id BIGSERIAL PRIMARY KEY,
					resource_id BIGINT NOT NULL REFERENCES warden_resources(id),
					action VARCHAR(20) NOT NULL,
					condition JSONB,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(resource_id, action)
				);

				CREATE INDEX idx_warden_permissions_resource_id ON warden_permissions(resource_id);
			`,
		},
		{
			Version:     4,
			Description: "Create roles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS warden_roles (
					id BIGSERIAL PRIMARY KEY,
					code VARCHAR(100) NOT NULL,
					name VARCHAR(255) NOT NULL,
					scope VARCHAR(20) NOT NULL,
					workspace_id BIGINT,
					company_id BIGINT,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					sort_order INT NOT NULL DEFAULT 0,
					state VARCHAR(10) NOT NULL DEFAULT 'active',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX idx_warden_roles_identity
					ON warden_roles(code, scope, COALESCE(workspace_id, 0), COALESCE(company_id, 0));
				CREATE INDEX idx_warden_roles_scope ON warden_roles(scope);
				CREATE INDEX idx_warden_roles_workspace_id ON warden_roles(workspace_id);
				CREATE INDEX idx_warden_roles_state ON warden_roles(state);
			`,
		},
		{
			Version:     5,
			Description: "Create assignments table",
			SQL: `
				CREATE TABLE IF NOT EXISTS warden_assignments (
					id BIGSERIAL PRIMARY KEY,
					role_id BIGINT NOT NULL REFERENCES warden_roles(id) ON DELETE CASCADE,
					permission_id BIGINT NOT NULL REFERENCES warden_permissions(id) ON DELETE CASCADE,
					workspace_id BIGINT NOT NULL,
					is_granted BOOLEAN NOT NULL,
					granted_by BIGINT NOT NULL,
					granted_at TIMESTAMP NOT NULL DEFAULT NOW(),
					expires_at TIMESTAMP,
					condition JSONB,
					UNIQUE(role_id, permission_id, workspace_id, is_granted)
				);

				CREATE INDEX idx_warden_assignments_workspace_id ON warden_assignments(workspace_id);
				CREATE INDEX idx_warden_assignments_role_id ON warden_assignments(role_id);
				CREATE INDEX idx_warden_assignments_permission_id ON warden_assignments(permission_id);
				CREATE INDEX idx_warden_assignments_expires_at ON warden_assignments(expires_at);
			`,
		},
		{
			Version:     6,
			Description: "Create enablement table",
			SQL: `
				CREATE TABLE IF NOT EXISTS warden_enablement (
					id BIGSERIAL PRIMARY KEY,
					workspace_id BIGINT NOT NULL,
					company_id BIGINT,
					company_key BIGINT NOT NULL DEFAULT 0,
					target_type VARCHAR(10) NOT NULL,
					target_id BIGINT NOT NULL,
					is_enabled BOOLEAN NOT NULL,
					created_by BIGINT NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(workspace_id, company_key, target_type, target_id)
				);

				CREATE INDEX idx_warden_enablement_workspace_id ON warden_enablement(workspace_id);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	// Create migration tracking table
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS warden_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get applied migrations
	rows, err := db.QueryContext(ctx, "SELECT version FROM warden_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	// Run pending migrations
	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO warden_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
