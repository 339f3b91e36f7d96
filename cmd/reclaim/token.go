package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/erazemk/reclaim/internal/auth"
	"github.com/erazemk/reclaim/internal/db"
	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/store"
)

// cmdToken signs a token the way the identity provider would. The secret is
// taken from -jwt-secret or the database the server uses.
func cmdToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)

	var dbPath string
	defaultDB := envOr("RECLAIM_DB", "reclaim.sqlite3")
	fs.StringVar(&dbPath, "db", defaultDB, "")
	fs.StringVar(&dbPath, "d", defaultDB, "")

	var id model.Identity
	fs.StringVar(&id.UserID, "user", "", "")
	fs.StringVar(&id.UserID, "u", "", "")
	fs.StringVar(&id.Name, "name", "", "")
	fs.StringVar(&id.Role, "role", "", "")
	fs.StringVar(&id.Role, "r", "", "")

	secret := envOr("RECLAIM_JWT_SECRET", "")
	fs.StringVar(&secret, "jwt-secret", secret, "")
	ttl := fs.Duration("ttl", auth.TokenExpiry, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: reclaim token -u <user id> -r <role> [flags]

Flags:
  -u, -user <id>          user id (required)
  -r, -role <role>        finder, claimer or admin (required)
  -name <name>            display name
  -ttl <duration>         token lifetime (default: 24h)
  -d, -db <path>          database holding the secret (default: reclaim.sqlite3, env RECLAIM_DB)
  -jwt-secret <secret>    signing secret instead of the database's (env RECLAIM_JWT_SECRET)
  -h, -help               show this help and exit
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if id.UserID == "" || id.Role == "" {
		fs.Usage()
		return errors.New("user and role are required")
	}
	if id.Name == "" {
		id.Name = id.UserID
	}

	if secret == "" {
		if _, err := os.Stat(dbPath); err != nil {
			fmt.Fprintf(os.Stderr, "error: database %s not found, pass -jwt-secret or -db\n", dbPath)
			return err
		}
		database, err := db.Open(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return err
		}
		defer database.Close()
		if err := db.EnsureSchema(database); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return err
		}
		secret, err = store.GetJWTSecret(context.Background(), database)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return err
		}
	}

	token, err := auth.GenerateToken(secret, id, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	fmt.Fprintf(out, "%s\n", token)
	return nil
}
