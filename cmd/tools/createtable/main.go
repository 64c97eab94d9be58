package main

import (
	"log"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get DB: %v", err)
	}

	sql := `
	CREATE TABLE IF NOT EXISTS orders (
	  id CHAR(36) NOT NULL,
	  user_id CHAR(36) NULL,
	  total_amount DECIMAL(20,2) NOT NULL,
	  currency CHAR(3) NOT NULL DEFAULT 'MNT',
	  payment_code VARCHAR(16) NULL,
	  payment_status VARCHAR(16) NOT NULL DEFAULT 'pending',
	  payment_method VARCHAR(32) NULL,
	  payment_transaction_id VARCHAR(128) NULL,
	  payment_amount DECIMAL(20,2) NULL,
	  payment_payment_code VARCHAR(16) NULL,
	  payment_sender_name VARCHAR(128) NULL,
	  payment_bank_name VARCHAR(64) NULL,
	  payment_received_at DATETIME(3) NULL,
	  payment_raw_sms TEXT NULL,
	  payment_verified_automatically TINYINT(1) NOT NULL DEFAULT 0,
	  payment_manually_matched TINYINT(1) NOT NULL DEFAULT 0,
	  payment_matched_by CHAR(36) NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_orders_payment_code (payment_code),
	  KEY ix_orders_user_id (user_id),
	  KEY ix_orders_payment_status (payment_status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS payment_logs (
	  id CHAR(36) NOT NULL,
	  ` + "`from`" + ` VARCHAR(32) NOT NULL,
	  message TEXT NOT NULL,
	  received_at DATETIME(3) NOT NULL,
	  parsed_amount DECIMAL(20,2) NULL,
	  parsed_code VARCHAR(32) NULL,
	  parsed_bank VARCHAR(64) NULL,
	  parsed_date VARCHAR(32) NULL,
	  is_incoming TINYINT(1) NOT NULL DEFAULT 0,
	  is_valid TINYINT(1) NOT NULL DEFAULT 0,
	  parsed_json JSON NULL,
	  matched TINYINT(1) NOT NULL DEFAULT 0,
	  matched_order_id CHAR(36) NULL,
	  matched_automatically TINYINT(1) NOT NULL DEFAULT 0,
	  matched_by CHAR(36) NULL,
	  needs_review TINYINT(1) NOT NULL DEFAULT 0,
	  review_reason VARCHAR(255) NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_payment_logs_received_at (received_at),
	  KEY ix_payment_logs_parsed_code (parsed_code),
	  KEY ix_payment_logs_matched (matched, created_at),
	  KEY ix_payment_logs_matched_order (matched_order_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	if _, err := sqlDB.Exec(sql); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	log.Println("✓ orders table created successfully")
	log.Println("✓ payment_logs table created successfully")
}
