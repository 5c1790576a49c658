// Package postgres provides a PostgreSQL implementation of storage.MemoryStore.
package postgres

// Schema contains the base DDL for the memories table. All statements are
// idempotent (IF NOT EXISTS) so the schema can be applied on every start.
//
// The embedding column lives in a separate migration because it requires the
// pgvector extension, which may not be installed on every server.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    memory_type TEXT NOT NULL,
    content TEXT NOT NULL,

    -- Extraction scores
    confidence REAL NOT NULL DEFAULT 0.0,
    emotional_weight REAL NOT NULL DEFAULT 0.0,
    importance REAL NOT NULL DEFAULT 0.5,

    -- Context and quality signals
    context_tags JSONB,
    access_count INTEGER NOT NULL DEFAULT 0,

    -- Soft delete flag; records are never physically deleted by the engine
    is_active BOOLEAN NOT NULL DEFAULT TRUE,

    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    -- Decay guard: when this record last went through a decay pass
    last_decayed_at TIMESTAMPTZ,

    -- Duplicate suppression: "insert, ignore on duplicate"
    UNIQUE (user_id, memory_type, content)
);

CREATE INDEX IF NOT EXISTS idx_memories_user_type ON memories(user_id, memory_type);
CREATE INDEX IF NOT EXISTS idx_memories_user_active ON memories(user_id, is_active);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(importance DESC);
`

// MigrationPgvector adds the embedding column and its cosine index. Applied
// only when the vector extension is available. Safe to run repeatedly.
const MigrationPgvector = `
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns
        WHERE table_name = 'memories' AND column_name = 'embedding'
    ) THEN
        ALTER TABLE memories ADD COLUMN embedding vector;
    END IF;
END
$$;

-- ivfflat requires at least one row before the index is useful; guard so a
-- fresh database does not fail schema application.
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_indexes WHERE indexname = 'idx_memories_embedding_cosine'
  ) THEN
    IF EXISTS (SELECT 1 FROM memories LIMIT 1) THEN
      EXECUTE 'CREATE INDEX idx_memories_embedding_cosine ON memories USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)';
    END IF;
  END IF;
END$$;
`

// MigrationTrigram adds a trigram index over content to accelerate the
// keyword (ILIKE substring) recall path. Requires the pg_trgm extension.
const MigrationTrigram = `
CREATE INDEX IF NOT EXISTS idx_memories_content_trgm ON memories USING GIN (content gin_trgm_ops);
`
