package storage

import (
	"database/sql"
	"fmt"
	"log"
)

type migration struct {
	version int
	stmts   []string
}

// 只追加，不修改已发布的迁移
var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS articles (
				id                 TEXT PRIMARY KEY,
				title              TEXT NOT NULL,
				title_translated   TEXT NOT NULL,
				content            TEXT NOT NULL,
				content_translated TEXT NOT NULL,
				image_url          TEXT NOT NULL DEFAULT '',
				images             TEXT NOT NULL DEFAULT '[]',
				url                TEXT NOT NULL UNIQUE,
				source             TEXT NOT NULL,
				category           TEXT NOT NULL,
				slug               TEXT NOT NULL UNIQUE,
				published_date     TEXT,
				scraped_at         TEXT NOT NULL,
				created_at         TEXT NOT NULL
			)`,
		},
	},
	{
		version: 2,
		stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_articles_scraped_at ON articles(scraped_at)`,
			`CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category)`,
			`CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source)`,
		},
	},
}

func latestVersion() int {
	return migrations[len(migrations)-1].version
}

func schemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// migrate 用 PRAGMA user_version 记录已执行的迁移，每个版本在单独事务中执行
func migrate(conn *sql.DB) error {
	current, err := schemaVersion(conn)
	if err != nil {
		return err
	}
	if current >= latestVersion() {
		return nil
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d: %w", m.version, err)
			}
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: setting version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", m.version, err)
		}
		log.Printf("storage: applied migration %d", m.version)
	}
	return nil
}
