package storage

const schema = `
-- One row per browser session and controller kind ('quiz', 'form', 'edit', 'stock').
-- state holds the controller snapshot as JSON, updated_at is unix seconds.
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT NOT NULL,
    kind TEXT NOT NULL,
    state BLOB NOT NULL,
    updated_at INTEGER NOT NULL,

    PRIMARY KEY (id, kind)
);

CREATE INDEX IF NOT EXISTS sessions_updated_at ON sessions(updated_at);
`
