// Command admin creates administrator accounts directly in the database.
//
//	admin -d postgres://... -email root@example.com -name Root
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophblog/internal/admin"
	"github.com/dmitrijs2005/gophblog/internal/flagx"
	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/server/auth"
	"github.com/dmitrijs2005/gophblog/internal/server/config"
	"github.com/dmitrijs2005/gophblog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophblog/internal/server/services"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", admin.Describe(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var email, name string
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.StringVar(&email, "email", "", "admin email")
	fs.StringVar(&name, "name", "", "admin display name")
	if err := fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-email", "-name"})); err != nil {
		return err
	}

	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel("warn"))

	db, err := repomanager.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return err
	}

	users := services.NewUserService(db, rm, auth.NewPasswordHasher(cfg.BcryptCost), logger)
	app := admin.NewApp(users, os.Stdin, os.Stdout, int(os.Stdin.Fd()))

	_, err = app.CreateAdmin(ctx, email, name)
	return err
}
