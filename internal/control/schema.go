// Package control provides the virtual-event control table: the durable,
// per-tenant record of which views have already been materialized. Its
// (team_id, view_id) uniqueness constraint is the only synchronization
// primitive in the view materialization protocol.
package control

// CreateVirtualEventsTableSQL creates the virtual events control table.
// The (team_id, view_id) primary key enforces at-most-one materialization
// per tenant: a losing concurrent writer gets a constraint violation, which
// callers treat as success-by-another-writer.
const CreateVirtualEventsTableSQL = `
CREATE TABLE IF NOT EXISTS virtual_events (
    team_id TEXT NOT NULL,
    view_id TEXT NOT NULL,
    readable_name TEXT NOT NULL,
    description TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (team_id, view_id)
)`

// CreateVirtualEventsTeamIndexSQL creates the index backing the per-tenant
// count used by the tenant-wide view-creation ceiling.
const CreateVirtualEventsTeamIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_virtual_events_team ON virtual_events(team_id)`

// AllSchemaSQL returns all SQL statements needed to initialize the control
// database.
func AllSchemaSQL() []string {
	return []string{
		CreateVirtualEventsTableSQL,
		CreateVirtualEventsTeamIndexSQL,
	}
}
