package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"xrayctl/internal/config"
)

func main() {
	logger := setupLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	app := newApp(cfg, logger)
	ctx := context.Background()
	args := os.Args[2:]

	var cmdErr error
	switch os.Args[1] {
	case "add":
		cmdErr = app.addUser(ctx, args)
	case "remove":
		cmdErr = app.removeUser(ctx, args)
	case "list":
		cmdErr = app.listUsers(args)
	case "link":
		cmdErr = app.userLink(args)
	case "stats":
		cmdErr = app.stats(ctx, args)
	case "backups":
		cmdErr = app.listBackups(args)
	case "restore":
		cmdErr = app.restoreBackup(ctx, args)
	case "init":
		cmdErr = app.initialize(ctx, args)
	case "check-domain":
		cmdErr = app.checkDomain(ctx, args)
	case "ip":
		cmdErr = app.publicIP(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if cmdErr != nil {
		logger.Fatal(cmdErr)
	}
}

// setupLogger sets up the logger
func setupLogger() *logrus.Logger {
	logger := logrus.New()

	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return logger
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: xctl <command> [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  add           Add a user and print the connection link")
	fmt.Fprintln(os.Stderr, "  remove        Remove a user")
	fmt.Fprintln(os.Stderr, "  list          List users")
	fmt.Fprintln(os.Stderr, "  link          Print a user's connection link (optionally as QR)")
	fmt.Fprintln(os.Stderr, "  stats         Show traffic usage")
	fmt.Fprintln(os.Stderr, "  backups       List config backups")
	fmt.Fprintln(os.Stderr, "  restore       Restore a config backup and restart the container")
	fmt.Fprintln(os.Stderr, "  init          Initialize the protocol (keys, short ID, masking domain)")
	fmt.Fprintln(os.Stderr, "  check-domain  Verify a masking domain's TLS suitability")
	fmt.Fprintln(os.Stderr, "  ip            Detect this server's public IP")
}
