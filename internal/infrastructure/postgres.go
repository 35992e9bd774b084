package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS organizations (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			session_id VARCHAR(64) NOT NULL DEFAULT '',
			settings JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`,

		`CREATE TABLE IF NOT EXISTS operators (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) DEFAULT 'operator',
			org_id VARCHAR(64) DEFAULT '',
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`,

		`CREATE TABLE IF NOT EXISTS customers (
			id VARCHAR(64) PRIMARY KEY,
			org_id VARCHAR(64) NOT NULL REFERENCES organizations(id),
			phone VARCHAR(32) NOT NULL,
			display_name VARCHAR(255),
			first_seen_at TIMESTAMPTZ DEFAULT NOW(),
			order_count INT DEFAULT 0,
			tags TEXT[] DEFAULT '{}',
			last_order_summary TEXT,
			UNIQUE (org_id, phone)
		);`,

		`CREATE TABLE IF NOT EXISTS conversations (
			id VARCHAR(64) PRIMARY KEY,
			org_id VARCHAR(64) NOT NULL REFERENCES organizations(id),
			customer_id VARCHAR(64) NOT NULL REFERENCES customers(id),
			session_id VARCHAR(64) NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);`,

		// At most one open conversation per (org, customer). The inbound
		// pipeline upserts against this index, which closes the
		// select-then-insert race between near-simultaneous messages.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_conversations_open
			ON conversations (org_id, customer_id)
			WHERE status IN ('active', 'escalated');`,

		`CREATE TABLE IF NOT EXISTS messages (
			id VARCHAR(64) PRIMARY KEY,
			conversation_id VARCHAR(64) NOT NULL REFERENCES conversations(id),
			direction VARCHAR(10) NOT NULL,
			sender_role VARCHAR(10) NOT NULL,
			text TEXT NOT NULL DEFAULT '',
			media JSONB,
			llm_confidence DOUBLE PRECISION,
			linked_doc_ids TEXT[] DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`,

		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages (conversation_id, created_at DESC);`,

		`CREATE TABLE IF NOT EXISTS escalations (
			id VARCHAR(64) PRIMARY KEY,
			org_id VARCHAR(64) NOT NULL REFERENCES organizations(id),
			conversation_id VARCHAR(64) NOT NULL REFERENCES conversations(id),
			customer_id VARCHAR(64) NOT NULL REFERENCES customers(id),
			reason TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			assigned_to VARCHAR(255),
			created_at TIMESTAMPTZ DEFAULT NOW(),
			resolved_at TIMESTAMPTZ
		);`,

		`CREATE TABLE IF NOT EXISTS automations (
			org_id VARCHAR(64) PRIMARY KEY REFERENCES organizations(id),
			scope VARCHAR(20) NOT NULL DEFAULT 'all',
			fallback_message TEXT NOT NULL DEFAULT '',
			escalation_rules TEXT[] DEFAULT '{}',
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);`,

		`CREATE TABLE IF NOT EXISTS documents (
			id VARCHAR(64) PRIMARY KEY,
			org_id VARCHAR(64) NOT NULL REFERENCES organizations(id),
			title VARCHAR(512) NOT NULL,
			source_url TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`,

		`CREATE TABLE IF NOT EXISTS document_chunks (
			id VARCHAR(64) PRIMARY KEY,
			document_id VARCHAR(64) NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			org_id VARCHAR(64) NOT NULL REFERENCES organizations(id),
			chunk_index INT NOT NULL DEFAULT 0,
			text TEXT NOT NULL,
			embedding REAL[] NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS idx_document_chunks_org
			ON document_chunks (org_id);`,
	}

	for _, stmt := range statements {
		if _, err := p.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
