package db

import (
	"database/sql"
	"fmt"
	"log"

	"AviaxMusic/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
func InitDB() error {
	if err := createPlayHistoryTable(); err != nil {
		return err
	}
	return nil
}

func createPlayHistoryTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS play_history (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		chat_id BIGINT NOT NULL,
		vid_id VARCHAR(64) NOT NULL DEFAULT '',
		title VARCHAR(255) NOT NULL DEFAULT '',
		requested_by VARCHAR(128) NOT NULL DEFAULT '',
		stream_type VARCHAR(8) NOT NULL DEFAULT 'audio',
		duration INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_chat_id (chat_id),
		INDEX idx_vid_id (vid_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create play_history table: %w", err)
	}
	return nil
}
