package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/lottosix/lottery-api/config"
	"github.com/lottosix/lottery-api/pkg/cryptobox"
	"github.com/lottosix/lottery-api/pkg/helpers"
)

// Seeds the admin account. Re-running rotates the password and TOTP
// secret but keeps the encryption key: a winning draw encrypted under
// the old key must stay decryptable. The provisioning URI is printed
// so the admin can enroll an authenticator app immediately.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "admin@lottery.local"
	password := "ChangeMe!2024admin"

	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	secret, err := helpers.NewTOTPSecret()
	if err != nil {
		log.Fatalf("failed to generate totp secret: %v", err)
	}
	key, err := cryptobox.GenerateKey()
	if err != nil {
		log.Fatalf("failed to generate encryption key: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, firstname, lastname, phone, role,
			totp_secret, encryption_key, registered_on)
		VALUES ($1, $2, 'Alice', 'Admin', '', 'admin', $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			totp_secret = EXCLUDED.totp_secret,
			updated_at = now()
		RETURNING id
	`, email, hash, secret, key, time.Now()).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	fmt.Printf("seeded admin: id=%s email=%s password=%s\n", id, email, password)
	fmt.Printf("totp enrollment: %s\n", helpers.ProvisioningURI(email, secret, cfg.TOTPIssuer))
	if code, err := helpers.GenerateTOTP(secret, time.Now()); err == nil {
		fmt.Printf("current pin (sanity check): %s\n", code)
	}
}
