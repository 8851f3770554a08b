package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS voicemails (
	id            TEXT PRIMARY KEY,
	phone_account TEXT NOT NULL,
	source_data   TEXT NOT NULL,
	number        TEXT NOT NULL DEFAULT '',
	timestamp     DATETIME NOT NULL,
	is_read       INTEGER NOT NULL DEFAULT 0 CHECK(is_read IN (0, 1)),
	is_deleted    INTEGER NOT NULL DEFAULT 0 CHECK(is_deleted IN (0, 1)),
	dirty         INTEGER NOT NULL DEFAULT 0 CHECK(dirty IN (0, 1)),
	has_content   INTEGER NOT NULL DEFAULT 0 CHECK(has_content IN (0, 1)),
	mime_type     TEXT NOT NULL DEFAULT '',
	content       BLOB,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(phone_account, source_data)
);

CREATE INDEX IF NOT EXISTS idx_voicemails_account ON voicemails(phone_account);
CREATE INDEX IF NOT EXISTS idx_voicemails_pending
	ON voicemails(phone_account, dirty, is_deleted);

CREATE TABLE IF NOT EXISTS account_state (
	account_id        TEXT PRIMARY KEY,
	retry_interval_ms INTEGER NOT NULL DEFAULT 0,
	last_full_sync    DATETIME,
	enabled           INTEGER NOT NULL DEFAULT 1 CHECK(enabled IN (0, 1)),
	updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS alarms (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	action     TEXT NOT NULL CHECK(action IN ('full_sync', 'upload_only', 'download_only')),
	fire_at    DATETIME NOT NULL,
	UNIQUE(account_id, action)
);

CREATE INDEX IF NOT EXISTS idx_alarms_fire_at ON alarms(fire_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
