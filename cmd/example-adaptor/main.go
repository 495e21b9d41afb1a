// Command example-adaptor runs the in-memory demonstration Adaptor,
// serving a couple of sample documents and periodically discovering a new
// one via PollIncremental.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	adaptor "github.com/opendocfeed/adaptor"
	"github.com/opendocfeed/adaptor/internal/demoadaptor"
)

func main() {
	configPath := flag.String("config", "adaptor-config.yaml", "path to the adaptor config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	impl := demoadaptor.New(logger)
	if err := adaptor.Run(context.Background(), impl, *configPath); err != nil {
		log.Fatal(err)
	}
}
