package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"kasku/internal/domain"
	"kasku/internal/repository/sqlite"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	nis := fs.String("nis", "", "Member number (NIS)")
	username := fs.String("user", "", "Username")
	fullName := fs.String("fullname", "", "Full name")
	role := fs.String("role", "user", "Role: admin or user")
	position := fs.String("position", "", "Position shown on the member list")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	dbPath := fs.String("db", "data/kasku.db", "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *nis == "" || *username == "" || *fullName == "" {
		fmt.Fprintln(stdout, "Usage: adduser -nis <nis> -user <username> -fullname <name> [-role admin|user] [-position <text>] [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: nis, user, fullname")
	}

	memberRole := domain.Role(*role)
	if memberRole != domain.RoleAdmin && memberRole != domain.RoleUser {
		return fmt.Errorf("role must be admin or user, got %q", *role)
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if path := os.Getenv("KASKU_DATABASE_PATH"); path != "" && *dbPath == "data/kasku.db" {
		*dbPath = path
	}

	db, err := sqlite.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	users := sqlite.NewUserRepository(db)
	if err := users.Init(ctx); err != nil {
		return fmt.Errorf("failed to init user table: %w", err)
	}

	user := &domain.User{
		NIS:      *nis,
		Username: *username,
		FullName: *fullName,
		Role:     memberRole,
		Position: *position,
		Password: password,
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s (%s) created with role %s\n", user.Username, user.NIS, user.Role)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal input (tests, pipes).
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
