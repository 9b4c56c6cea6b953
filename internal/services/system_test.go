package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	xerrors "xrayctl/internal/errors"
	"xrayctl/internal/models"
	"xrayctl/internal/repository"
)

func newTestSystemService(t *testing.T) (*SystemService, *fakeControl, *repository.Repository) {
	t.Helper()
	logger := testLogger()
	settings := testSettings(t)
	repo := repository.New(settings.ConfigPath, logger)
	seedRealityConfig(t, repo)
	control := &fakeControl{running: true}
	return NewSystemService(repo, control, settings, logger), control, repo
}

func TestRestoreBackupRestarts(t *testing.T) {
	svc, control, repo := newTestSystemService(t)

	backupPath := filepath.Join(t.TempDir(), "config.2024-01-01_10-00-00.json")
	backupContent := `{"inbounds": []}`
	if err := os.WriteFile(backupPath, []byte(backupContent), 0644); err != nil {
		t.Fatal(err)
	}

	if err := svc.RestoreBackup(context.Background(), backupPath); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(repo.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != backupContent {
		t.Fatalf("live file differs from backup:\n%s", data)
	}

	if control.restarts != 1 {
		t.Fatalf("restore must restart the container, restarts=%d", control.restarts)
	}
}

func TestRestoreBackupMissing(t *testing.T) {
	svc, control, _ := newTestSystemService(t)

	err := svc.RestoreBackup(context.Background(), filepath.Join(t.TempDir(), "gone.json"))
	if !xerrors.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if control.restarts != 0 {
		t.Fatal("failed restore must not restart the container")
	}
}

func TestInitialize(t *testing.T) {
	svc, control, repo := newTestSystemService(t)
	control.pair = models.KeyPair{PrivateKey: "generated-priv", PublicKey: "generated-pub"}

	env, err := svc.Initialize(context.Background(), "masq.example.org")
	if err != nil {
		t.Fatal(err)
	}

	if env["XRAY_PUB_KEY"] != "generated-pub" {
		t.Fatalf("expected public key in env, got %v", env)
	}

	doc, err := repo.Load()
	if err != nil {
		t.Fatal(err)
	}
	inbound := doc["inbounds"].([]interface{})[0].(map[string]interface{})
	reality := inbound["streamSettings"].(map[string]interface{})["realitySettings"].(map[string]interface{})

	if reality["privateKey"] != "generated-priv" {
		t.Fatalf("private key not persisted: %v", reality)
	}
	if reality["dest"] != "masq.example.org:443" {
		t.Fatalf("dest not persisted: %v", reality["dest"])
	}

	if control.restarts != 1 {
		t.Fatalf("initialization must restart the container, restarts=%d", control.restarts)
	}
}

func TestInitializeRequiresDomain(t *testing.T) {
	svc, control, _ := newTestSystemService(t)

	_, err := svc.Initialize(context.Background(), "")
	if !xerrors.IsInvalidArgument(err) {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}
	if control.restarts != 0 {
		t.Fatal("failed initialization must not restart the container")
	}
}

func TestBackupsAfterMutations(t *testing.T) {
	userSvc, _ := newTestUserService(t)
	ctx := context.Background()

	if _, err := userSvc.AddUser(ctx, "alice"); err != nil {
		t.Fatal(err)
	}

	backups, err := userSvc.repo.Backups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected one backup after one mutation, got %d", len(backups))
	}
}
