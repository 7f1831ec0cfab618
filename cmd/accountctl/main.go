// Account administration for the login database.
//
// Usage:
//
//	go run ./cmd/accountctl create <username> <password> [authority]
//	go run ./cmd/accountctl ban <username>
//	go run ./cmd/accountctl unban <username>
//	go run ./cmd/accountctl vip <username> <level> <days>
//	go run ./cmd/accountctl logins <username> [limit]
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/udisondev/longgate/internal/config"
	"github.com/udisondev/longgate/internal/db"
)

const ConfigPath = "config/loginserver.yaml"

var errUsage = errors.New("usage")

type command struct {
	name string
	args string
	run  func(ctx context.Context, r repos, args []string) error
}

type repos struct {
	accounts *db.PostgresAccountRepository
	vips     *db.PostgresVipRepository
	records  *db.PostgresLoginRecordRepository
}

var commands = []command{
	{"create", "<username> <password> [authority]", createAccount},
	{"ban", "<username>", func(ctx context.Context, r repos, args []string) error { return setFlag(ctx, r, args, 1) }},
	{"unban", "<username>", func(ctx context.Context, r repos, args []string) error { return setFlag(ctx, r, args, 0) }},
	{"vip", "<username> <level> <days>", setVip},
	{"logins", "<username> [limit]", listLogins},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	if err := run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, errUsage) {
			printUsage()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: accountctl <command> [args]")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-7s %s\n", c.name, c.args)
	}
}

func run(ctx context.Context, name string, args []string) error {
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		return errUsage
	}

	cfgPath := ConfigPath
	if p := os.Getenv("LONGGATE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadLoginServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return cmd.run(ctx, repos{
		accounts: db.NewPostgresAccountRepository(database.Pool()),
		vips:     db.NewPostgresVipRepository(database.Pool()),
		records:  db.NewPostgresLoginRecordRepository(database.Pool()),
	}, args)
}

func createAccount(ctx context.Context, r repos, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errUsage
	}

	authority := uint64(1)
	if len(args) == 3 {
		var err error
		if authority, err = strconv.ParseUint(args[2], 10, 16); err != nil {
			return fmt.Errorf("parsing authority: %w", err)
		}
	}

	salt := make([]byte, 8)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}

	id, err := r.accounts.CreateAccount(ctx, args[0], args[1], hex.EncodeToString(salt), uint16(authority))
	if err != nil {
		return err
	}
	fmt.Printf("account %s created with id %d\n", args[0], id)
	return nil
}

func setFlag(ctx context.Context, r repos, args []string, flag int16) error {
	if len(args) != 1 {
		return errUsage
	}
	acc, err := lookup(ctx, r, args[0])
	if err != nil {
		return err
	}
	if err := r.accounts.SetFlag(ctx, acc, flag); err != nil {
		return err
	}
	fmt.Printf("account %s flag set to %d\n", args[0], flag)
	return nil
}

func setVip(ctx context.Context, r repos, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	level, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		return fmt.Errorf("parsing level: %w", err)
	}
	days, err := strconv.Atoi(args[2])
	if err != nil || days <= 0 {
		return fmt.Errorf("days must be a positive number, got %q", args[2])
	}
	acc, err := lookup(ctx, r, args[0])
	if err != nil {
		return err
	}

	expires := time.Now().AddDate(0, 0, days)
	if err := r.vips.SetAccountVip(ctx, acc, byte(level), expires); err != nil {
		return err
	}
	fmt.Printf("account %s vip %d until %s\n", args[0], level, expires.Format(time.DateOnly))
	return nil
}

func listLogins(ctx context.Context, r repos, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	limit := 20
	if len(args) == 2 {
		var err error
		if limit, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("parsing limit: %w", err)
		}
	}
	acc, err := lookup(ctx, r, args[0])
	if err != nil {
		return err
	}

	recs, err := r.records.ListByAccount(ctx, acc, limit)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		fmt.Printf("%s  %-15s  %-17s  %s\n", rec.CreatedAt.Format(time.DateTime), rec.IPAddress, rec.MAC, rec.DeviceID)
	}
	return nil
}

func lookup(ctx context.Context, r repos, username string) (uint32, error) {
	acc, err := r.accounts.GetByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	if acc == nil {
		return 0, fmt.Errorf("account %q not found", username)
	}
	return acc.ID, nil
}
