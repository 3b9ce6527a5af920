package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/mattjoyce/actiongate/internal/config"
	"github.com/mattjoyce/actiongate/internal/doctor"
	"github.com/mattjoyce/actiongate/internal/log"
	"github.com/mattjoyce/actiongate/internal/signature"
	"github.com/mattjoyce/actiongate/internal/sink"
	"github.com/mattjoyce/actiongate/internal/webhook"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	// --- NOUNS ---
	case "system":
		return runSystemNoun(args)
	case "config":
		return runConfigNoun(args)

	// --- VERBS ---
	case "start":
		return runStart(args)
	case "sign":
		return runSign(args)
	case "verify":
		return runVerify(args)
	case "doctor":
		return runConfigCheck(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Print(`actiongate - signed action webhook gateway

Usage:
  actiongate <command> [flags]

Commands:
  start                Start the webhook server (alias: system start)
  config check         Validate configuration (alias: doctor)
  config hash          Print the BLAKE3 checksum of the config file
  sign                 Compute a signature header for a request body
  verify               Verify a signature header against a request body
  version              Show version information

Common flags:
  --config PATH        Config file or directory (default: $ACTIONGATE_CONFIG, else built-in defaults)

The signing key is read from signing.secret, ACTIONGATE_SIGNING_KEY or SIGNING_KEY.
`)
}

func runSystemNoun(args []string) int {
	if len(args) < 1 || args[0] != "start" {
		fmt.Fprintln(os.Stderr, "Usage: actiongate system start [--config PATH]")
		return 1
	}
	return runStart(args[1:])
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: actiongate config <check|hash> [flags]")
		return 1
	}
	switch args[0] {
	case "check":
		return runConfigCheck(args[1:])
	case "hash":
		return runConfigHash(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", args[0])
		return 1
	}
}

func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", os.Getenv("ACTIONGATE_CONFIG"), "Config file or directory")
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	configPath := configFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("webhook")

	client := &http.Client{Timeout: cfg.Service.ForwardTimeout}
	sinks, err := sink.Build(cfg.Sinks, client, log.WithComponent("sink"))
	if err != nil {
		log.Error("failed to build sinks", "error", err)
		return 1
	}

	wcfg, err := webhook.FromGlobalConfig(cfg)
	if err != nil {
		log.Error("invalid webhook configuration", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("actiongate starting",
		"version", currentVersionInfo().Version,
		"config", cfg.SourceFile,
		"sinks", sinks.Names(),
	)

	server := webhook.New(wcfg, sinks, logger)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", "error", err)
		return 1
	}
	log.Info("actiongate stopped")
	return 0
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("config check", flag.ContinueOnError)
	configPath := configFlag(fs)
	jsonOut := fs.Bool("json", false, "Output result as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()
	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render JSON: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func runConfigHash(args []string) int {
	fs := flag.NewFlagSet("config hash", flag.ContinueOnError)
	configPath := configFlag(fs)
	expect := fs.String("expect", "", "Fail unless the file hashes to this value")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: actiongate config hash --config PATH [--expect HASH]")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if *expect != "" {
		if err := config.VerifyFileHash(cfg.SourceFile, *expect); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		fmt.Printf("%s: OK\n", cfg.SourceFile)
		return 0
	}

	hash, err := config.ComputeBlake3Hash(cfg.SourceFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash config: %v\n", err)
		return 1
	}
	fmt.Printf("%s  %s\n", hash, cfg.SourceFile)
	return 0
}

// loadVerifier builds a verifier from the configured signing key.
func loadVerifier(configPath string) (*signature.Verifier, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return signature.New(signature.Config{Secret: cfg.Signing.Secret})
}

func readBody(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func runSign(args []string) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	configPath := configFlag(fs)
	bodyPath := fs.String("body", "", "File containing the raw request body (- for stdin)")
	timestamp := fs.String("timestamp", "", "Timestamp to sign (default: now, Unix seconds)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *bodyPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: actiongate sign --body FILE [--timestamp TS] [--config PATH]")
		return 1
	}

	v, err := loadVerifier(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot sign: %v\n", err)
		return 1
	}
	body, err := readBody(*bodyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		return 1
	}

	if *timestamp == "" {
		fmt.Println(v.SignNow(body))
	} else {
		fmt.Println(v.Sign(*timestamp, body))
	}
	return 0
}

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	configPath := configFlag(fs)
	bodyPath := fs.String("body", "", "File containing the raw request body (- for stdin)")
	header := fs.String("header", "", "Signature header value, e.g. t=...,v1=...")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *bodyPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: actiongate verify --body FILE --header VALUE [--config PATH]")
		return 1
	}

	v, err := loadVerifier(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot verify: %v\n", err)
		return 1
	}
	body, err := readBody(*bodyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		return 1
	}

	res, err := v.Check(*header, body)
	if err != nil {
		fmt.Printf("%v\n", err)
		return 1
	}
	if !res.Valid {
		fmt.Printf("%v (timestamp %s, key fingerprint %s)\n", signature.ErrSignatureMismatch, res.Timestamp, v.Fingerprint())
		return 1
	}
	fmt.Printf("valid (timestamp %s)\n", res.Timestamp)
	return 0
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: actiongate version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("actiongate %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	resolvedCommit := strings.TrimSpace(gitCommit)
	if resolvedCommit == "" || resolvedCommit == "unknown" {
		resolvedCommit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if resolvedCommit != "" {
		info.Commit = shortenCommit(resolvedCommit)
	}

	resolvedBuildTime := strings.TrimSpace(buildDate)
	if resolvedBuildTime == "" || resolvedBuildTime == "unknown" {
		resolvedBuildTime = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if normalized, ok := normalizeBuildTimeUTC(resolvedBuildTime); ok {
		info.BuildTime = normalized
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func normalizeBuildTimeUTC(raw string) (string, bool) {
	if raw == "" || raw == "unknown" {
		return "", false
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", false
	}

	return t.UTC().Format(time.RFC3339), true
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}
