package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/artfeed/internal/admin/cli"
	"github.com/dmitrijs2005/artfeed/internal/flagx"
	"github.com/dmitrijs2005/artfeed/internal/server"
	"github.com/dmitrijs2005/artfeed/internal/server/config"
)

// valueFlags are the configuration flags that take a value; see config.parseFlags.
var valueFlags = []string{
	"-a", "-d", "-s", "-t", "-l", "-k", "-r", "-v", "-u", "-p", "-b", "-g", "-e",
	"-c", "-config", "--config",
}

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	admin, closeFn, err := server.NewAdmin(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	err = cli.NewApp(admin, os.Stdin, os.Stdout).Run(ctx, flagx.Positional(os.Args[1:], valueFlags))
	closeFn()

	if err != nil {
		log.Fatalf("%v", err)
	}

}
