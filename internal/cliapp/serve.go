package cliapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/aitown/internal/llmclient"
	aitownmcp "github.com/wricardo/aitown/transport/mcp"
	aitownws "github.com/wricardo/aitown/transport/websocket"
)

// serveCommand runs the HTTP server exposing the WebSocket broadcast
// hub and the MCP tool surface (§6 Input RPC surface), generalizing
// the teacher's runHTTPServer, and starts the engine for a default
// world so it begins stepping immediately.
func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP/WebSocket/MCP server and drive the engine loop",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "localhost:8080", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "map", Value: "", Usage: "map to load for the default world (defaults to the manager's default map)"},
			&cli.BoolFlag{Name: "tunnel", Usage: "expose the server through an ngrok tunnel (needs NGROK_AUTHTOKEN)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServe(ctx, cmd)
		},
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	logger := loggerFromCmd(cmd)
	mapsDir := mapsDirFromCmd(cmd)
	if err := os.MkdirAll(mapsDir, 0o755); err != nil {
		return fmt.Errorf("aitownd: creating maps dir: %w", err)
	}

	rt, err := newRuntime(mapsDir, logger)
	if err != nil {
		return err
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY before starting aitownd serve", llmclient.ErrMissingSecret)
	}
	llm, err := llmclient.New(llmclient.Config{APIKey: apiKey, Logger: logger.With("component", "llmclient")})
	if err != nil {
		return fmt.Errorf("aitownd: building llm client: %w", err)
	}

	worldID, engineID, err := rt.provisionWorld("default", cmd.String("map"))
	if err != nil {
		return fmt.Errorf("aitownd: provisioning default world: %w", err)
	}
	if err := rt.engine.Start(ctx, engineID); err != nil {
		return fmt.Errorf("aitownd: starting engine: %w", err)
	}
	logger.Info("default world provisioned", "world", worldID, "engine", engineID)

	hub := aitownws.NewHub(logger.With("component", "websocket"))
	go hub.Run()
	go statusBroadcastLoop(ctx, rt, engineID, worldID, hub)

	supervisor := newAgentSupervisor(rt.world, rt.engine, llm, worldID, engineID, logger.With("component", "agent"))
	go supervisor.Run(ctx)

	mcpServer := aitownmcp.NewServer(rt.engine, rt.world, logger.With("component", "mcp"))

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		world := r.URL.Query().Get("world")
		if world == "" {
			world = worldID
		}
		hub.ServeWS(w, r, world)
	})
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		// The MCP library's HandleMessage understands JSON-RPC
		// directly; the HTTP transport here is a thin pass-through,
		// mirroring the teacher's /mcp proxy endpoint.
		response := mcpServer.MCPServer().HandleMessage(r.Context(), body)
		w.Header().Set("Content-Type", "application/json")
		data, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(data)
	})

	httpServer := &http.Server{
		Addr:         cmd.String("addr"),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("http server listening", "addr", httpServer.Addr)
		logger.Info("websocket endpoint", "url", fmt.Sprintf("ws://%s/ws?world=%s", httpServer.Addr, worldID))
		logger.Info("mcp endpoint", "url", fmt.Sprintf("http://%s/mcp", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", "err", err)
		}
	}()

	if cmd.Bool("tunnel") {
		wg.Add(1)
		go runTunnel(shutdownCtx, logger, mux, &wg)
	}

	sig := <-stop
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	downCtx, downCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer downCancel()
	if err := httpServer.Shutdown(downCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	wg.Wait()
	logger.Info("server stopped")
	return nil
}

// statusBroadcastLoop polls the engine's status at a steady cadence and
// pushes it over the hub; it does not broadcast location history. It is
// the collaborator side of the client-side sync described in §4.8: the
// client needs a steady supply of server-time intervals to play back.
func statusBroadcastLoop(ctx context.Context, rt *runtime, engineID, worldID string, hub *aitownws.Hub) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			doc, err := rt.engine.EngineStatus(ctx, engineID)
			if err != nil {
				continue
			}
			hub.BroadcastEngineStatus(worldID, doc)
		}
	}
}

func runTunnel(ctx context.Context, logger *log.Logger, handler http.Handler, wg *sync.WaitGroup) {
	defer wg.Done()

	authToken := os.Getenv("NGROK_AUTHTOKEN")
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	if authToken == "" {
		logger.Warn("tunnel requested but no auth token set (NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain := os.Getenv("NGROK_DOMAIN"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("ngrok tunnel failed to start", "err", err)
		return
	}
	defer tun.Close()

	logger.Info("ngrok tunnel established", "url", tun.URL())
	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		logger.Error("ngrok server error", "err", err)
	}
}
