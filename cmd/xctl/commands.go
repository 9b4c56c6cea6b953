package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"xrayctl/internal/config"
	"xrayctl/internal/constants"
	"xrayctl/internal/docker"
	"xrayctl/internal/helpers"
	"xrayctl/internal/models"
	"xrayctl/internal/network"
	"xrayctl/internal/repository"
	"xrayctl/internal/services"
	"xrayctl/internal/verifier"
)

// app wires the services behind the CLI commands
type app struct {
	settings *config.Settings
	users    *services.UserService
	system   *services.SystemService
	qr       *services.QRService
	verifier *verifier.DomainVerifier
	detector *network.Detector
	logger   *logrus.Logger
}

func newApp(cfg *config.Settings, logger *logrus.Logger) *app {
	repo := repository.New(cfg.ConfigPath, logger)
	control := docker.NewController(cfg.ContainerName, logger)

	return &app{
		settings: cfg,
		users:    services.NewUserService(repo, control, cfg, logger),
		system:   services.NewSystemService(repo, control, cfg, logger),
		qr:       services.NewQRService(logger),
		verifier: verifier.New(logger),
		detector: network.NewDetector(logger),
		logger:   logger,
	}
}

func (a *app) addUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	name := fs.String("name", "", "alias for the new user (required)")
	fs.Parse(args)

	if *name == "" {
		fs.Usage()
		return fmt.Errorf("-name is required")
	}

	link, err := a.users.AddUser(ctx, *name)
	if err != nil {
		return err
	}

	fmt.Println(link)
	return nil
}

func (a *app) removeUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	name := fs.String("name", "", "alias of the user to remove (required)")
	fs.Parse(args)

	if *name == "" {
		fs.Usage()
		return fmt.Errorf("-name is required")
	}

	removed, err := a.users.RemoveUser(ctx, *name)
	if err != nil {
		return err
	}

	if removed {
		fmt.Printf("Removed user %s\n", *name)
	} else {
		fmt.Printf("User %s not found\n", *name)
	}
	return nil
}

func (a *app) listUsers(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.Parse(args)

	users, err := a.users.Users()
	if err != nil {
		return err
	}

	if len(users) == 0 {
		fmt.Println("No users configured")
		return nil
	}

	for _, user := range users {
		fmt.Printf("%-32s %s\n", user.Email, user.ID)
	}
	return nil
}

func (a *app) userLink(args []string) error {
	fs := flag.NewFlagSet("link", flag.ExitOnError)
	name := fs.String("name", "", "alias of the user (required)")
	qrPath := fs.String("qr", "", "write the link as a PNG QR code to this path")
	fs.Parse(args)

	if *name == "" {
		fs.Usage()
		return fmt.Errorf("-name is required")
	}

	link, err := a.users.UserLink(*name)
	if err != nil {
		return err
	}
	fmt.Println(link)

	if *qrPath != "" {
		png, err := a.qr.Generate(link)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*qrPath, png, 0644); err != nil {
			return fmt.Errorf("write QR code: %w", err)
		}
		fmt.Printf("QR code written to %s\n", *qrPath)
	}
	return nil
}

func (a *app) stats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	name := fs.String("name", "", "show a single user instead of the full table")
	fs.Parse(args)

	if *name != "" {
		traffic, err := a.users.UserTraffic(ctx, *name)
		if err != nil {
			return err
		}
		fmt.Print(helpers.FormatUsageReport([]models.ClientTraffic{traffic}))
		return nil
	}

	rows, err := a.users.UsersWithStats(ctx)
	if err != nil {
		return err
	}
	fmt.Print(helpers.FormatUsageReport(rows))
	return nil
}

func (a *app) listBackups(args []string) error {
	fs := flag.NewFlagSet("backups", flag.ExitOnError)
	fs.Parse(args)

	backups, err := a.system.Backups()
	if err != nil {
		return err
	}

	if len(backups) == 0 {
		fmt.Println("No backups available")
		return nil
	}

	for _, backup := range backups {
		fmt.Printf("%s  %s\n", backup.CreatedAt.Format(constants.TimestampFormat), backup.Path)
	}
	return nil
}

func (a *app) restoreBackup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	path := fs.String("path", "", "backup file to restore (required)")
	fs.Parse(args)

	if *path == "" {
		fs.Usage()
		return fmt.Errorf("-path is required")
	}

	if err := a.system.RestoreBackup(ctx, *path); err != nil {
		return err
	}
	fmt.Println("Backup restored, container restarted")
	return nil
}

func (a *app) initialize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	domain := fs.String("domain", "", "masking (SNI) domain (required)")
	timeout := fs.Duration("timeout", constants.DefaultProbeTimeout, "domain probe timeout")
	skipVerify := fs.Bool("skip-verify", false, "skip the domain suitability probe")
	fs.Parse(args)

	if *domain == "" {
		fs.Usage()
		return fmt.Errorf("-domain is required")
	}

	hostname := a.verifier.ExtractHostname(*domain)

	if !*skipVerify {
		forbidden := a.settings.ServerIP
		if forbidden == "" {
			forbidden = a.detector.PublicIP(ctx)
		}
		ok, message := a.verifier.Verify(hostname, *timeout, forbidden)
		if !ok {
			return fmt.Errorf("domain not suitable: %s", message)
		}
		fmt.Println(message)
	}

	env, err := a.system.Initialize(ctx, hostname)
	if err != nil {
		return err
	}

	fmt.Println("Initialization complete. Persist these values to your environment:")
	for key, value := range env {
		fmt.Printf("%s=%s\n", key, value)
	}
	return nil
}

func (a *app) checkDomain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("check-domain", flag.ExitOnError)
	domain := fs.String("domain", "", "domain to verify (required)")
	timeout := fs.Duration("timeout", constants.DefaultProbeTimeout, "probe timeout")
	fs.Parse(args)

	if *domain == "" {
		fs.Usage()
		return fmt.Errorf("-domain is required")
	}

	ok, message := a.verifier.Verify(*domain, *timeout, a.settings.ServerIP)
	fmt.Println(message)
	if !ok {
		os.Exit(1)
	}
	return nil
}

func (a *app) publicIP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ip", flag.ExitOnError)
	fs.Parse(args)

	ip := a.detector.PublicIP(ctx)
	if ip == "" {
		return fmt.Errorf("could not detect public IP from any provider")
	}
	fmt.Println(ip)
	return nil
}
