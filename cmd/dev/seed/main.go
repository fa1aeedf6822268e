package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"marketstall/internal/stall"
	"marketstall/internal/user"
	"marketstall/pkg/config"
	"marketstall/pkg/db"
)

func main() {
	var (
		rows    = flag.String("rows", "ABCD", "stall row letters")
		perRow  = flag.Int("per-row", 8, "stalls per row")
		price   = flag.String("price", "50.00", "daily price for new stalls")
		migrate = flag.Bool("migrate", true, "apply migrations first")
	)
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	if *migrate {
		path := cfg.MigrationsPath
		if path == "" {
			path = "file://migrations"
		}
		if err := db.MigrateConfig(path, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	daily, err := decimal.NewFromString(*price)
	if err != nil || !daily.IsPositive() {
		fmt.Fprintf(os.Stderr, "invalid -price %q\n", *price)
		os.Exit(2)
	}

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	hash, err := user.HashPassword(cfg.Seed.AdminPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash admin password: %v\n", err)
		os.Exit(1)
	}
	admin, err := user.NewRepository(pool).Upsert(ctx, cfg.Seed.AdminUsername, hash, "admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "upsert admin: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("admin user %q ready (id %s)\n", admin.Username, admin.ID)

	stalls := stall.NewRepository(pool)
	n := 0
	for _, row := range *rows {
		for i := 1; i <= *perRow; i++ {
			in := stall.Input{
				Name:        fmt.Sprintf("%c%d", row, i),
				PricePerDay: daily,
				Description: fmt.Sprintf("Row %c, stall %d", row, i),
			}
			if err := in.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "stall %s: %v\n", in.Name, err)
				os.Exit(1)
			}
			if _, err := stalls.Upsert(ctx, in); err != nil {
				fmt.Fprintf(os.Stderr, "upsert stall %s: %v\n", in.Name, err)
				os.Exit(1)
			}
			n++
		}
	}
	fmt.Printf("%d stalls ready\n", n)
}
