package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/sstoianov/liblend/internal/adminctl"
	"github.com/sstoianov/liblend/internal/flagx"
	"github.com/sstoianov/liblend/internal/server/config"
)

func main() {

	cfg := config.LoadConfig()

	// -e belongs to the server config (S3 endpoint), so the account
	// fields use long flags only.
	args := flagx.FilterArgs(os.Args[1:], []string{"-name", "-email"})
	fs := flag.NewFlagSet("adminctl", flag.ExitOnError)
	name := fs.String("name", "", "administrator display name")
	email := fs.String("email", "", "administrator email")
	_ = fs.Parse(args)

	app := adminctl.NewApp(cfg)
	if err := app.Run(context.Background(), *name, *email); err != nil {
		log.Fatalf("%v", err)
	}

}
