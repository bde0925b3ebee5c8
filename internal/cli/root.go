// Package cli implements the studyhall CLI commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"studyhall/internal/config"
	"studyhall/internal/gateway"
	"studyhall/internal/lecture"
	"studyhall/internal/llm"
	"studyhall/internal/logging"
	"studyhall/internal/ratelimit"
	"studyhall/internal/store"
)

var (
	configPath string
	dbPath     string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "studyhall",
	Short: "Lecture memory, chat and summarization",
	Long:  "Store lecture transcripts, chat against them with full history, and run chunked summarization. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config path (default: ~/.config/studyhall/config.toml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $STUDYHALL_DB or paths.db_path)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")
}

func loadConfig() *config.Config {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.Paths.DBPath = dbPath
	} else if env := os.Getenv("STUDYHALL_DB"); env != "" {
		cfg.Paths.DBPath = env
	}
	return cfg
}

func openStore(cfg *config.Config) *store.SQLiteStore {
	if err := cfg.EnsureDirectories(); err != nil {
		exitErr("prepare data directory", err)
	}
	s, err := store.NewSQLiteStore(cfg.Paths.DBPath)
	if err != nil {
		exitErr("open store", err)
	}
	return s
}

// app is the fully wired service stack behind the gateway, built fresh per
// invocation. Rate-limit windows persist in the store, so limits hold
// across processes.
type app struct {
	cfg      *config.Config
	st       *store.SQLiteStore
	limiter  *ratelimit.Service
	lectures *lecture.Service
	gw       *gateway.Gateway
}

func newApp() *app {
	cfg := loadConfig()
	st := openStore(cfg)

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		exitErr("build logger", err)
	}

	gen := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	limiter := ratelimit.NewService(st, cfg.RateLimit.Endpoints,
		ratelimit.WithLogger(logger),
	)
	lectures := lecture.NewService(st, gen,
		lecture.WithLogger(logger),
		lecture.WithChunkBudget(cfg.Pipeline.ChunkBudget),
		lecture.WithMaxOutputTokens(cfg.LLM.MaxOutputTokens),
	)
	auth := gateway.Local("local")
	gw := gateway.New(auth, auth, limiter, lectures,
		gateway.WithTimeout(time.Duration(cfg.Gateway.DispatchTimeoutSeconds)*time.Second),
		gateway.WithLogger(logger),
	)

	return &app{cfg: cfg, st: st, limiter: limiter, lectures: lectures, gw: gw}
}

func (a *app) close() {
	a.lectures.Close()
	a.limiter.Close()
	a.st.Close()
}

func localRequest() gateway.Request {
	return gateway.Request{RemoteIP: "127.0.0.1"}
}

// readContent returns the positional args joined, or stdin when piped.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
