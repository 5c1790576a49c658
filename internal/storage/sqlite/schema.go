// Package sqlite provides an embedded implementation of storage.MemoryStore
// backed by modernc.org/sqlite (pure Go, no cgo). Embeddings are stored as
// JSON arrays and cosine similarity is computed in Go, since SQLite has no
// native vector type.
package sqlite

// Schema contains the DDL for the memories table. Timestamps are stored as
// Unix epoch seconds so age arithmetic stays portable across drivers.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    memory_type TEXT NOT NULL,
    content TEXT NOT NULL,

    confidence REAL NOT NULL DEFAULT 0.0,
    emotional_weight REAL NOT NULL DEFAULT 0.0,
    importance REAL NOT NULL DEFAULT 0.5,

    context_tags TEXT,
    embedding TEXT,
    access_count INTEGER NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 1,

    created_at INTEGER NOT NULL,
    last_decayed_at INTEGER,

    UNIQUE(user_id, memory_type, content)
);

CREATE INDEX IF NOT EXISTS idx_memories_user_type ON memories(user_id, memory_type);
CREATE INDEX IF NOT EXISTS idx_memories_user_active ON memories(user_id, is_active);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
`
