package mcp

import (
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ganot/sitewatch/internal/domain/capture"
	"github.com/ganot/sitewatch/internal/domain/website"
	"github.com/ganot/sitewatch/internal/notify"
)

const serverInstructions = `sitewatch tracks websites and their health.
Use list_websites to see the registry, check_website / check_all_websites
to refresh health data, and start_bulk_capture to screenshot every site.
Bulk capture is exclusive: poll get_capture_job for progress and use
cancel_bulk_capture to stop it.`

// Config contains server configuration.
type Config struct {
	Store       *website.Store
	Coordinator *capture.Coordinator
	Alerts      *notify.Center
	Logger      *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "sitewatch",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, NewTools(cfg.Store, cfg.Coordinator, cfg.Alerts, cfg.Logger))

	return server
}
