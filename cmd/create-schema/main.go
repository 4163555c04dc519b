package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"policyassist-backend/config"
	"policyassist-backend/repository"
)

var tables = []struct {
	name string
	sql  string
}{
	{
		name: "policy_chunks",
		sql: `
CREATE TABLE IF NOT EXISTS policy_chunks (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),

    -- Document identification
    source_document VARCHAR(255) NOT NULL,
    chunk_index INTEGER NOT NULL,
    policy_name VARCHAR(255) NOT NULL DEFAULT '',

    chunk_text TEXT NOT NULL,

    -- Access tags, lower-case; empty means untagged
    department VARCHAR(100) NOT NULL DEFAULT '',
    country VARCHAR(100) NOT NULL DEFAULT '',
    visibility VARCHAR(50) NOT NULL DEFAULT 'all',

    metadata JSONB DEFAULT '{}'::jsonb,

    embedding vector(768),

    created_at TIMESTAMP DEFAULT NOW(),

    CONSTRAINT chunk_order_unique UNIQUE (source_document, chunk_index)
);`,
	},
	{
		name: "chat_messages",
		sql: `
CREATE TABLE IF NOT EXISTS chat_messages (
    id BIGINT PRIMARY KEY, -- snowflake, increases with time
    conversation_id VARCHAR(255) NOT NULL,
    role VARCHAR(20) NOT NULL CHECK (role IN ('user', 'assistant')),
    content TEXT NOT NULL,
    department VARCHAR(100) NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`,
	},
	{
		name: "users",
		sql: `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    username VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    roles TEXT[] NOT NULL DEFAULT '{}',
    department VARCHAR(100) NOT NULL DEFAULT '',
    country VARCHAR(100) NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`,
	},
	{
		name: "policy_documents",
		sql: `
CREATE TABLE IF NOT EXISTS policy_documents (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    storage_key VARCHAR(255) NOT NULL UNIQUE,
    filename VARCHAR(255) NOT NULL,
    policy_name VARCHAR(255) NOT NULL DEFAULT '',
    department VARCHAR(100) NOT NULL DEFAULT '',
    country VARCHAR(100) NOT NULL DEFAULT '',
    visibility VARCHAR(50) NOT NULL DEFAULT 'all',
    mime_type VARCHAR(100) NOT NULL,
    size BIGINT NOT NULL DEFAULT 0,
    checksum VARCHAR(64) NOT NULL DEFAULT '',
    chunk_count INTEGER NOT NULL DEFAULT 0,
    uploaded_by VARCHAR(255) NOT NULL DEFAULT '',
    ingested_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`,
	},
	{
		name: "ingest_runs",
		sql: `
CREATE TABLE IF NOT EXISTS ingest_runs (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'in_progress', 'completed', 'failed')),
    trigger VARCHAR(20) NOT NULL DEFAULT 'manual',
    steps JSONB NOT NULL DEFAULT '[]'::jsonb,
    error_message TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMP
);`,
	},
}

var indexes = []struct {
	name string
	sql  string
}{
	{
		name: "Vector similarity search (HNSW)",
		sql: `CREATE INDEX IF NOT EXISTS idx_policy_chunks_embedding_hnsw ON policy_chunks
USING hnsw (embedding vector_cosine_ops)
WITH (m = 16, ef_construction = 64);`,
	},
	{
		name: "Source document lookup",
		sql:  "CREATE INDEX IF NOT EXISTS idx_policy_chunks_source ON policy_chunks(source_document);",
	},
	{
		name: "Conversation replay",
		sql:  "CREATE INDEX IF NOT EXISTS idx_chat_messages_conversation ON chat_messages(conversation_id, id DESC);",
	},
	{
		name: "Department question history",
		sql:  "CREATE INDEX IF NOT EXISTS idx_chat_messages_department_role ON chat_messages(department, role, id DESC);",
	},
	{
		name: "Latest ingest run",
		sql:  "CREATE INDEX IF NOT EXISTS idx_ingest_runs_created ON ingest_runs(created_at DESC);",
	},
}

func main() {
	drop := flag.Bool("drop", false, "drop existing tables first (development only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := repository.Connect(ctx, cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Printf("Warning: Failed to create pgvector extension: %v", err)
	} else {
		log.Println("✓ pgvector extension enabled")
	}

	if *drop {
		for i := len(tables) - 1; i >= 0; i-- {
			if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+tables[i].name+" CASCADE"); err != nil {
				log.Fatalf("Failed to drop %s: %v", tables[i].name, err)
			}
			log.Printf("✓ Dropped %s (if any)", tables[i].name)
		}
	}

	for _, t := range tables {
		if _, err := pool.Exec(ctx, t.sql); err != nil {
			log.Fatalf("Failed to create %s table: %v", t.name, err)
		}
		log.Printf("✓ Created %s table", t.name)
	}

	created := 0
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx.sql); err != nil {
			log.Printf("Warning: Failed to create index %s: %v", idx.name, err)
			continue
		}
		created++
		log.Printf("✓ Created index: %s", idx.name)
	}

	fmt.Println("\n✅ Database schema created successfully!")
	fmt.Printf("   Tables: %d\n", len(tables))
	fmt.Printf("   Indexes: %d of %d\n", created, len(indexes))
}
