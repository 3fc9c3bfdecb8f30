package database

// Timestamps are stored as RFC3339 UTC text in both dialects so that
// ordering and per-day grouping behave the same everywhere.

var sqliteSchema = []string{`
CREATE TABLE IF NOT EXISTS seo_images (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    folder_path TEXT NOT NULL UNIQUE,
    basename TEXT NOT NULL,
    disk TEXT NOT NULL DEFAULT 'public',
    original_extension TEXT NOT NULL DEFAULT '',
    original_mime TEXT NOT NULL DEFAULT '',
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    alt TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    file_size_jpg INTEGER NOT NULL DEFAULT 0,
    file_size_webp INTEGER NOT NULL DEFAULT 0,
    file_size_avif INTEGER NOT NULL DEFAULT 0,
    available_formats TEXT,
    pending INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    deleted_at TEXT
)`,
	`CREATE INDEX IF NOT EXISTS idx_seo_images_created ON seo_images (created_at)`,
}

var mysqlSchema = []string{`
CREATE TABLE IF NOT EXISTS seo_images (
    id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    folder_path VARCHAR(255) NOT NULL,
    basename VARCHAR(255) NOT NULL,
    disk VARCHAR(32) NOT NULL DEFAULT 'public',
    original_extension VARCHAR(16) NOT NULL DEFAULT '',
    original_mime VARCHAR(64) NOT NULL DEFAULT '',
    width INT NOT NULL DEFAULT 0,
    height INT NOT NULL DEFAULT 0,
    alt VARCHAR(255) NOT NULL DEFAULT '',
    title VARCHAR(255) NOT NULL DEFAULT '',
    file_size_jpg BIGINT NOT NULL DEFAULT 0,
    file_size_webp BIGINT NOT NULL DEFAULT 0,
    file_size_avif BIGINT NOT NULL DEFAULT 0,
    available_formats TEXT NULL,
    pending TINYINT(1) NOT NULL DEFAULT 0,
    created_at VARCHAR(32) NOT NULL,
    updated_at VARCHAR(32) NOT NULL,
    deleted_at VARCHAR(32) NULL,
    UNIQUE KEY uq_seo_images_folder (folder_path),
    KEY idx_seo_images_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
