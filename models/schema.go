package models

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Dialect names as reported by gorm.Dialector.Name().
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// Tables in creation order. Parents always precede the tables that reference them.
var Tables = []string{
	"users",
	"companies",
	"platforms",
	"interests",
	"personas",
	"content",
	"insights",
	"persona_platforms",
	"persona_interests",
	"content_personas",
	"content_platforms",
}

// SchemaStatements returns the idempotent DDL for the given dialect, one
// statement per element.
func SchemaStatements(dialect string) ([]string, error) {
	switch dialect {
	case DialectPostgres:
		return postgresSchema, nil
	case DialectMySQL:
		return mysqlSchema, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// CreateSchema creates every table, constraint and index if missing.
// Safe to call multiple times.
func CreateSchema(ctx context.Context, db *gorm.DB) error {
	stmts, err := SchemaStatements(db.Dialector.Name())
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SchemaReady reports whether every table exists.
func SchemaReady(db *gorm.DB) bool {
	m := db.Migrator()
	for _, t := range Tables {
		if !m.HasTable(t) {
			return false
		}
	}
	return true
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(128) NOT NULL,
    email VARCHAR(255) NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    role VARCHAR(16) NOT NULL DEFAULT 'viewer' CHECK (role IN ('admin', 'editor', 'viewer')),
    status VARCHAR(16) NOT NULL DEFAULT 'pending' CHECK (status IN ('active', 'inactive', 'pending')),
    department VARCHAR(128) NOT NULL DEFAULT '',
    last_login TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT uni_users_email UNIQUE (email)
)`,
	`CREATE TABLE IF NOT EXISTS companies (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(128) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT uni_companies_name UNIQUE (name)
)`,
	`CREATE TABLE IF NOT EXISTS platforms (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(64) NOT NULL,
    CONSTRAINT uni_platforms_name UNIQUE (name)
)`,
	`CREATE TABLE IF NOT EXISTS interests (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(64) NOT NULL,
    CONSTRAINT uni_interests_name UNIQUE (name)
)`,
	`CREATE TABLE IF NOT EXISTS personas (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(128) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    age_range VARCHAR(32) NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    company_id BIGINT REFERENCES companies(id) ON DELETE SET NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_personas_name ON personas(name)`,
	`CREATE TABLE IF NOT EXISTS content (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type VARCHAR(16) NOT NULL CHECK (type IN ('video', 'article', 'gallery', 'event')),
    status VARCHAR(16) NOT NULL DEFAULT 'draft' CHECK (status IN ('published', 'draft', 'scheduled', 'review')),
    author_id BIGINT NOT NULL REFERENCES users(id),
    views BIGINT NOT NULL DEFAULT 0 CHECK (views >= 0),
    likes BIGINT NOT NULL DEFAULT 0 CHECK (likes >= 0),
    comments BIGINT NOT NULL DEFAULT 0 CHECK (comments >= 0),
    shares BIGINT NOT NULL DEFAULT 0 CHECK (shares >= 0),
    scheduled_at TIMESTAMPTZ,
    published_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_content_author_id ON content(author_id)`,
	`CREATE INDEX IF NOT EXISTS idx_content_status ON content(status)`,
	`CREATE TABLE IF NOT EXISTS insights (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    date DATE NOT NULL,
    category VARCHAR(16) NOT NULL CHECK (category IN ('Content', 'Audience', 'Engagement', 'Conversion')),
    actionable BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS persona_platforms (
    persona_id BIGINT NOT NULL REFERENCES personas(id) ON DELETE CASCADE,
    platform_id BIGINT NOT NULL REFERENCES platforms(id) ON DELETE CASCADE,
    PRIMARY KEY (persona_id, platform_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_persona_platforms_platform_id ON persona_platforms(platform_id)`,
	`CREATE TABLE IF NOT EXISTS persona_interests (
    persona_id BIGINT NOT NULL REFERENCES personas(id) ON DELETE CASCADE,
    interest_id BIGINT NOT NULL REFERENCES interests(id) ON DELETE CASCADE,
    PRIMARY KEY (persona_id, interest_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_persona_interests_interest_id ON persona_interests(interest_id)`,
	`CREATE TABLE IF NOT EXISTS content_personas (
    content_id BIGINT NOT NULL REFERENCES content(id) ON DELETE CASCADE,
    persona_id BIGINT NOT NULL REFERENCES personas(id) ON DELETE CASCADE,
    PRIMARY KEY (content_id, persona_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_content_personas_persona_id ON content_personas(persona_id)`,
	`CREATE TABLE IF NOT EXISTS content_platforms (
    content_id BIGINT NOT NULL REFERENCES content(id) ON DELETE CASCADE,
    platform_id BIGINT NOT NULL REFERENCES platforms(id) ON DELETE CASCADE,
    PRIMARY KEY (content_id, platform_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_content_platforms_platform_id ON content_platforms(platform_id)`,
}

// MySQL has no CREATE INDEX IF NOT EXISTS, so secondary indexes are declared inline.
// InnoDB is required for foreign keys; CHECK constraints need MySQL 8.0.16+.
var mysqlSchema = []string{
	"CREATE TABLE IF NOT EXISTS `users` (" + `
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(128) NOT NULL,
    email VARCHAR(255) NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    role VARCHAR(16) NOT NULL DEFAULT 'viewer',
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    department VARCHAR(128) NOT NULL DEFAULT '',
    last_login DATETIME(3) NULL,
    created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
    updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
    UNIQUE KEY uni_users_email (email),
    CONSTRAINT chk_users_role CHECK (role IN ('admin', 'editor', 'viewer')),
    CONSTRAINT chk_users_status CHECK (status IN ('active', 'inactive', 'pending'))
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"CREATE TABLE IF NOT EXISTS `companies` (" + `
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(128) NOT NULL,
    created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
    UNIQUE KEY uni_companies_name (name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"CREATE TABLE IF NOT EXISTS `platforms` (" + `
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(64) NOT NULL,
    UNIQUE KEY uni_platforms_name (name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"CREATE TABLE IF NOT EXISTS `interests` (" + `
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(64) NOT NULL,
    UNIQUE KEY uni_interests_name (name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"CREATE TABLE IF NOT EXISTS `personas` (" + `
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(128) NOT NULL,
    description TEXT NOT NULL,
    age_range VARCHAR(32) NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    company_id BIGINT UNSIGNED NULL,
    created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
    updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
    KEY idx_personas_name (name),
    CONSTRAINT fk_personas_company FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"CREATE TABLE IF NOT EXISTS `content` (" + `
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL,
    type VARCHAR(16) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'draft',
    author_id BIGINT UNSIGNED NOT NULL,
    views BIGINT NOT NULL DEFAULT 0,
    likes BIGINT NOT NULL DEFAULT 0,
    comments BIGINT NOT NULL DEFAULT 0,
    shares BIGINT NOT NULL DEFAULT 0,
    scheduled_at DATETIME(3) NULL,
    published_at DATETIME(3) NULL,
    created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
    updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
    KEY idx_content_author_id (author_id),
    KEY idx_content_status (status),
    CONSTRAINT fk_content_author FOREIGN KEY (author_id) REFERENCES users(id),
    CONSTRAINT chk_content_type CHECK (type IN ('video', 'article', 'gallery', 'event')),
    CONSTRAINT chk_content_status CHECK (status IN ('published', 'draft', 'scheduled', 'review')),
    CONSTRAINT chk_content_counters CHECK (views >= 0 AND likes >= 0 AND comments >= 0 AND shares >= 0)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"CREATE TABLE IF NOT EXISTS `insights` (" + `
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL,
    date DATE NOT NULL,
    category VARCHAR(16) NOT NULL,
    actionable BOOLEAN NOT NULL DEFAULT FALSE,
    created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
    updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
    CONSTRAINT chk_insights_category CHECK (category IN ('Content', 'Audience', 'Engagement', 'Conversion'))
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"CREATE TABLE IF NOT EXISTS `persona_platforms` (" + `
    persona_id BIGINT UNSIGNED NOT NULL,
    platform_id BIGINT UNSIGNED NOT NULL,
    PRIMARY KEY (persona_id, platform_id),
    KEY idx_persona_platforms_platform_id (platform_id),
    CONSTRAINT fk_pp_persona FOREIGN KEY (persona_id) REFERENCES personas(id) ON DELETE CASCADE,
    CONSTRAINT fk_pp_platform FOREIGN KEY (platform_id) REFERENCES platforms(id) ON DELETE CASCADE
) ENGINE=InnoDB`,
	"CREATE TABLE IF NOT EXISTS `persona_interests` (" + `
    persona_id BIGINT UNSIGNED NOT NULL,
    interest_id BIGINT UNSIGNED NOT NULL,
    PRIMARY KEY (persona_id, interest_id),
    KEY idx_persona_interests_interest_id (interest_id),
    CONSTRAINT fk_pi_persona FOREIGN KEY (persona_id) REFERENCES personas(id) ON DELETE CASCADE,
    CONSTRAINT fk_pi_interest FOREIGN KEY (interest_id) REFERENCES interests(id) ON DELETE CASCADE
) ENGINE=InnoDB`,
	"CREATE TABLE IF NOT EXISTS `content_personas` (" + `
    content_id BIGINT UNSIGNED NOT NULL,
    persona_id BIGINT UNSIGNED NOT NULL,
    PRIMARY KEY (content_id, persona_id),
    KEY idx_content_personas_persona_id (persona_id),
    CONSTRAINT fk_cpe_content FOREIGN KEY (content_id) REFERENCES content(id) ON DELETE CASCADE,
    CONSTRAINT fk_cpe_persona FOREIGN KEY (persona_id) REFERENCES personas(id) ON DELETE CASCADE
) ENGINE=InnoDB`,
	"CREATE TABLE IF NOT EXISTS `content_platforms` (" + `
    content_id BIGINT UNSIGNED NOT NULL,
    platform_id BIGINT UNSIGNED NOT NULL,
    PRIMARY KEY (content_id, platform_id),
    KEY idx_content_platforms_platform_id (platform_id),
    CONSTRAINT fk_cpl_content FOREIGN KEY (content_id) REFERENCES content(id) ON DELETE CASCADE,
    CONSTRAINT fk_cpl_platform FOREIGN KEY (platform_id) REFERENCES platforms(id) ON DELETE CASCADE
) ENGINE=InnoDB`,
}
