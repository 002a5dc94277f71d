package config

import (
	"errors"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"p9e.in/safecheck/models"
)

// RunAllSeeding runs all seeding operations (skips anything that already exists)
func RunAllSeeding() error {
	log.Println("=== Starting Database Seeding ===")

	log.Println("[1/2] Seeding Severity SLA defaults...")
	if err := SeedSeveritySLA(); err != nil {
		return err
	}

	log.Println("[2/2] Seeding Default Admin...")
	if err := SeedAdminUser(); err != nil {
		return err
	}

	log.Println("=== Database Seeding Complete ===")
	return nil
}

// SeedSeveritySLA ensures the singleton SLA row exists with the default
// day offsets (low:30, medium:7, high:1).
func SeedSeveritySLA() error {
	var sla models.SeveritySLA
	err := DB.Order("id asc").First(&sla).Error
	if err == nil {
		log.Println("Severity SLA already seeded, skipping")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	sla = models.SeveritySLA{LowDays: 30, MediumDays: 7, HighDays: 1}
	if err := DB.Create(&sla).Error; err != nil {
		return err
	}
	log.Println("✅ Seeded default severity SLA (low:30, medium:7, high:1)")
	return nil
}

// SeedAdminUser creates the bootstrap admin account if no admin exists.
// Email/password come from ADMIN_EMAIL / ADMIN_PASSWORD.
func SeedAdminUser() error {
	var count int64
	if err := DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Admin user already exists, skipping")
		return nil
	}

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("⚠️  ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{
		Email:        email,
		FullName:     "Administrator",
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("✅ Seeded admin user %s", email)
	return nil
}
