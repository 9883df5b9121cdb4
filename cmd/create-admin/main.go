package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/database"
	"github.com/stemsi/exstem-access/internal/logger"
	"github.com/stemsi/exstem-access/internal/repository"
	"github.com/stemsi/exstem-access/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	authService := service.NewAuthService(cfg, repository.NewAdminRepository(pool), log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Admin ===")

	fmt.Print("Enter Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		fmt.Println("Error: Username must be at least 3 characters")
		os.Exit(1)
	}

	password, err := readPassword("Enter Password: ")
	if err != nil {
		fmt.Println("\nError reading password")
		os.Exit(1)
	}
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		os.Exit(1)
	}

	confirm, err := readPassword("Confirm Password: ")
	if err != nil || confirm != password {
		fmt.Println("Error: Passwords do not match")
		os.Exit(1)
	}

	// ─── Create ────────────────────────────────────────────────────────
	admin, err := authService.CreateAdmin(ctx, username, password)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			fmt.Printf("Error: Username '%s' is taken\n", username)
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Failed to create admin")
	}

	fmt.Printf("\nSuccess! Admin '%s' created with ID: %d\n", admin.Username, admin.ID)
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	return string(b), err
}
