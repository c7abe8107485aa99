package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/alantheprice/council/pkg/config"
	"github.com/alantheprice/council/pkg/consensus"
	"github.com/alantheprice/council/pkg/events"
	"github.com/alantheprice/council/pkg/projects"
	"github.com/alantheprice/council/pkg/server"
)

var (
	serveListen string
	serveDB     string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and websocket server",
	Long: `Serve starts the REST and websocket server backing the web UI. Sessions
started over HTTP run in the background; progress streams over the
/ws/consensus/:id websocket, and finished runs can be recorded under named
projects in a local sqlite database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Get()
		if err != nil {
			return err
		}
		if serveListen != "" {
			cfg.ListenAddr = serveListen
		}
		if serveDB != "" {
			cfg.DatabasePath = serveDB
		}

		db, err := projects.InitDB(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening project database: %w", err)
		}

		invoker := resolveClient(cfg, true)
		bus := events.NewEventBus()
		engine := consensus.NewEngine(invoker, consensus.NewMemoryStore(), bus)

		gin.SetMode(gin.ReleaseMode)
		srv := server.New(cfg, engine, invoker, projects.NewStore(db), bus)
		return srv.Run()
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address, defaults to the configured :8000")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "path to the projects database")
}
