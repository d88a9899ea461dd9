package snapshot

// Schema is the DDL of the snapshot store.
const Schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id           TEXT PRIMARY KEY,
    url          TEXT NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    source       TEXT NOT NULL DEFAULT 'file',
    html         TEXT NOT NULL,
    html_hash    TEXT NOT NULL,
    shadow_roots INTEGER NOT NULL DEFAULT 0,
    captured_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_url ON snapshots(url, captured_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshots_dedup ON snapshots(url, html_hash);
`
