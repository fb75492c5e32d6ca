// Command portalctl bootstraps a portal deployment: it creates the
// first executive account directly in the database, bypassing the
// self-service registration flow (which only ever produces staff).
package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"github.com/helioview/portal/internal/buildinfo"
	"github.com/helioview/portal/internal/passhash"
	"github.com/helioview/portal/internal/server/config"
	"github.com/helioview/portal/internal/server/models"
	"github.com/helioview/portal/internal/server/repositories/repomanager"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	if cfg.DatabaseDSN == "" {
		log.Fatal("a database DSN is required (-d)")
	}

	rm, err := repomanager.NewPostgresRepositoryManager(cfg.SessionTokenTTL, cfg.ResetTokenTTL)
	if err != nil {
		log.Fatalf("repository init error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	in := bufio.NewReader(os.Stdin)

	email, err := prompt(in, "Email: ")
	if err != nil {
		log.Fatalf("read error: %v", err)
	}
	name, err := prompt(in, "Name: ")
	if err != nil {
		log.Fatalf("read error: %v", err)
	}

	password, err := readPassword("Password: ")
	if err != nil {
		log.Fatalf("read error: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		log.Fatalf("read error: %v", err)
	}
	if password != confirm {
		log.Fatal("passwords do not match")
	}
	if password == "" {
		log.Fatal("password must not be empty")
	}

	hash, err := passhash.Hash(password)
	if err != nil {
		log.Fatalf("hash error: %v", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleExecutive,
		Active:       true,
	}

	created, err := rm.Users(db).Create(ctx, user)
	if err != nil {
		log.Fatalf("create error: %v", err)
	}

	fmt.Printf("Created executive account %s (%s)\n", created.Email, created.ID)
}

func prompt(in *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func readPassword(label string) (string, error) {
	fmt.Print(label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
