package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of SQLite schema migrations.
// Each migration's version must be sequential starting from 1.
//
// There are no foreign keys: list_id and task_id are plain attributes
// inside the JSON document and nothing stops them from dangling.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	type       TEXT NOT NULL CHECK(type IN ('list', 'task', 'subtask')),
	unique_id  TEXT NOT NULL,
	attributes TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (type, unique_id)
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_items_list_id
	ON items(type, json_extract(attributes, '$.list_id'));

CREATE INDEX IF NOT EXISTS idx_items_task_id
	ON items(type, json_extract(attributes, '$.task_id'));

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
