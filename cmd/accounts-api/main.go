package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	accounts "github.com/goliatone/go-accounts"
)

// Config is read from the environment. It doubles as the token options the
// accounts package expects.
type Config struct {
	Address         string   `env:"ACCOUNTS_HTTP_ADDR" envDefault:":8572"`
	DSN             string   `env:"ACCOUNTS_DSN" envDefault:"file:accounts.db?cache=shared"`
	SigningKey      string   `env:"ACCOUNTS_SIGNING_KEY" envDefault:"dev-signing-key"`
	ContextKey      string   `env:"ACCOUNTS_CONTEXT_KEY" envDefault:"actor"`
	TokenExpiration int      `env:"ACCOUNTS_TOKEN_EXPIRATION" envDefault:"72"`
	Issuer          string   `env:"ACCOUNTS_ISSUER" envDefault:"accounts-api"`
	Audience        []string `env:"ACCOUNTS_AUDIENCE" envSeparator:","`
	Debug           bool     `env:"ACCOUNTS_DEBUG" envDefault:"false"`
}

func (c Config) GetSigningKey() string   { return c.SigningKey }
func (c Config) GetContextKey() string   { return c.ContextKey }
func (c Config) GetTokenExpiration() int { return c.TokenExpiration }
func (c Config) GetIssuer() string       { return c.Issuer }
func (c Config) GetAudience() []string   { return c.Audience }

func main() {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatal(err)
	}

	if len(os.Args) > 1 && os.Args[1] == "mint-token" {
		if err := mintToken(cfg, os.Args[2:]); err != nil {
			log.Fatal(err)
		}
		return
	}

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("accounts-api"),
	)

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		log.Fatal(err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	ctx := context.Background()
	if _, err := db.NewCreateTable().
		Model((*accounts.Account)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		log.Fatal(err)
	}

	if err := accounts.CreateAccountIndexes(ctx, db); err != nil {
		log.Fatal(err)
	}

	repo := accounts.NewRepositoryManager(db)
	repo.MustValidate()

	tokens := accounts.NewTokenService(cfg, lgr.GetLogger("tokens"))

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: cfg.Debug,
			StrictRouting:     false,
		}))
	})

	accounts.RegisterAccountRoutes(srv.Router(),
		accounts.WithRepository(repo),
		accounts.WithTokenValidator(tokens),
		accounts.WithNotifier(accounts.LogNotifier{Logger: lgr.GetLogger("notifier")}),
		accounts.WithControllerLogger(lgr.GetLogger("http")),
		accounts.WithContextKey(cfg.ContextKey),
		accounts.WithDebug(cfg.Debug),
	)

	srv.Serve(cfg.Address)

	waitExitSignal()
}

// mintToken prints a signed token for local testing:
//
//	accounts-api mint-token -client
//	accounts-api mint-token -account <uuid> -admin -scopes manage-account,read-general
func mintToken(cfg Config, args []string) error {
	fs := flag.NewFlagSet("mint-token", flag.ExitOnError)
	client := fs.Bool("client", false, "mint a client credentials token")
	account := fs.String("account", "", "account id to bind the token to")
	admin := fs.Bool("admin", false, "mark the identity as admin")
	scopes := fs.String("scopes", accounts.ScopeManageAccount, "comma separated scopes")

	if err := fs.Parse(args); err != nil {
		return err
	}

	tokens := accounts.NewTokenService(cfg, nil)

	var (
		token string
		err   error
	)

	if *client {
		token, err = tokens.GenerateClientToken()
	} else {
		id, perr := uuid.Parse(*account)
		if perr != nil {
			return fmt.Errorf("invalid -account id: %w", perr)
		}
		record := &accounts.Account{ID: id, Admin: *admin}
		token, err = tokens.Generate(record, strings.Split(*scopes, ",")...)
	}

	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

func waitExitSignal() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
}
