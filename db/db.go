package db

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"library-lending/models"
)

var DB *gorm.DB

func ConnectDB() *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Println("Database connected")
	return DB
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Role{}, &models.User{},
		&models.Author{}, &models.Book{}, &models.Copy{},
		&models.Loan{},
	); err != nil {
		return err
	}

	// 同一 copy 最多一条未归还 loan（兜底，业务层另有行锁）
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_per_copy
	  ON %s (copy_id)
	  WHERE returned_at IS NULL;
	`, models.LoanTable, models.LoanTable)).Error; err != nil {
		return err
	}

	// 逾期报表按 due_date 扫描
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_open_due_date
	  ON %s (due_date)
	  WHERE returned_at IS NULL;
	`, models.LoanTable, models.LoanTable)).Error; err != nil {
		return err
	}

	return nil
}
