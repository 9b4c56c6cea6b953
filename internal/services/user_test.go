package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"xrayctl/internal/config"
	xerrors "xrayctl/internal/errors"
	"xrayctl/internal/models"
	"xrayctl/internal/repository"
)

// fakeControl records container operations instead of touching docker
type fakeControl struct {
	reloads  int
	restarts int
	running  bool
	stats    map[string]models.TrafficStat
	statsErr error
	pair     models.KeyPair
	keyErr   error
}

func (f *fakeControl) Restart(ctx context.Context) error      { f.restarts++; return nil }
func (f *fakeControl) Start(ctx context.Context) error        { f.running = true; return nil }
func (f *fakeControl) Stop(ctx context.Context) error         { f.running = false; return nil }
func (f *fakeControl) ReloadConfig(ctx context.Context) error { f.reloads++; return nil }
func (f *fakeControl) IsRunning(ctx context.Context) bool     { return f.running }

func (f *fakeControl) GenerateKeyPair(ctx context.Context) (models.KeyPair, error) {
	return f.pair, f.keyErr
}

func (f *fakeControl) TrafficStats(ctx context.Context) (map[string]models.TrafficStat, error) {
	return f.stats, f.statsErr
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	return &config.Settings{
		ConfigPath:    filepath.Join(t.TempDir(), "config.json"),
		ServerIP:      "203.0.113.10",
		XrayPort:      443,
		XrayPubKey:    "test-public-key",
		XrayProtocol:  "vless-reality",
		ContainerName: "xray-core",
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func seedRealityConfig(t *testing.T, repo *repository.Repository) {
	t.Helper()
	doc := map[string]interface{}{
		"inbounds": []interface{}{
			map[string]interface{}{
				"protocol": "vless",
				"port":     float64(443),
				"settings": map[string]interface{}{
					"clients": []interface{}{},
				},
				"streamSettings": map[string]interface{}{
					"security": "reality",
					"realitySettings": map[string]interface{}{
						"serverNames": []interface{}{"masq.example.com"},
						"shortIds":    []interface{}{"0123abcd"},
						"fingerprint": "chrome",
					},
				},
			},
		},
	}
	if err := repo.Save(doc); err != nil {
		t.Fatal(err)
	}
}

func newTestUserService(t *testing.T) (*UserService, *fakeControl) {
	t.Helper()
	logger := testLogger()
	settings := testSettings(t)
	repo := repository.New(settings.ConfigPath, logger)
	seedRealityConfig(t, repo)
	control := &fakeControl{running: true}
	return NewUserService(repo, control, settings, logger), control
}

func TestAddUser(t *testing.T) {
	svc, control := newTestUserService(t)
	ctx := context.Background()

	link, err := svc.AddUser(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasSuffix(link, "#alice") {
		t.Fatalf("link should end with the alias fragment: %s", link)
	}
	if !strings.Contains(link, "pbk=test-public-key") {
		t.Fatalf("link should embed the configured public key: %s", link)
	}

	users, err := svc.Users()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Email != "alice" {
		t.Fatalf("expected exactly one user alice, got %v", users)
	}
	if _, err := uuid.Parse(users[0].ID); err != nil {
		t.Fatalf("client ID is not a valid UUID: %q", users[0].ID)
	}
	if users[0].Flow != "xtls-rprx-vision" {
		t.Fatalf("client flow missing: %v", users[0])
	}

	if control.reloads != 1 {
		t.Fatalf("expected one hot reload, got %d", control.reloads)
	}
}

func TestAddUserDuplicate(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	if _, err := svc.AddUser(ctx, "alice"); err != nil {
		t.Fatal(err)
	}

	_, err := svc.AddUser(ctx, "alice")
	if !xerrors.IsAlreadyExists(err) {
		t.Fatalf("expected AlreadyExistsError, got %v", err)
	}

	users, err := svc.Users()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Fatalf("duplicate add must leave the client list unchanged, got %d users", len(users))
	}
}

func TestAddUserInvalidAlias(t *testing.T) {
	svc, _ := newTestUserService(t)

	_, err := svc.AddUser(context.Background(), "x")
	if !xerrors.IsInvalidArgument(err) {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}
}

func TestRemoveUserTwice(t *testing.T) {
	svc, control := newTestUserService(t)
	ctx := context.Background()

	if _, err := svc.AddUser(ctx, "alice"); err != nil {
		t.Fatal(err)
	}

	removed, err := svc.RemoveUser(ctx, "alice")
	if err != nil || !removed {
		t.Fatalf("first remove: removed=%v err=%v", removed, err)
	}

	removed, err = svc.RemoveUser(ctx, "alice")
	if err != nil {
		t.Fatalf("second remove must not error: %v", err)
	}
	if removed {
		t.Fatal("second remove must report nothing removed")
	}

	// add + first remove reload; the no-op remove must not.
	if control.reloads != 2 {
		t.Fatalf("expected 2 reloads, got %d", control.reloads)
	}
}

func TestUserLink(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	added, err := svc.AddUser(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}

	link, err := svc.UserLink("alice")
	if err != nil {
		t.Fatal(err)
	}
	if link != added {
		t.Fatalf("regenerated link differs:\nadd:  %s\nlink: %s", added, link)
	}

	if _, err := svc.UserLink("nobody"); !xerrors.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestUsersWithStats(t *testing.T) {
	svc, control := newTestUserService(t)
	ctx := context.Background()

	if _, err := svc.AddUser(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddUser(ctx, "bob"); err != nil {
		t.Fatal(err)
	}

	control.stats = map[string]models.TrafficStat{
		"alice": {Up: 100, Down: 200},
	}

	rows, err := svc.UsersWithStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	byAlias := map[string]models.ClientTraffic{}
	for _, row := range rows {
		byAlias[row.Email] = row
	}
	if alice := byAlias["alice"]; alice.Up != 100 || alice.Down != 200 || alice.Total != 300 {
		t.Fatalf("alice counters wrong: %+v", alice)
	}
	if bob := byAlias["bob"]; bob.Up != 0 || bob.Down != 0 {
		t.Fatalf("user without samples must report zeros: %+v", bob)
	}
}

func TestUsersWithStatsDegradesOnFailure(t *testing.T) {
	svc, control := newTestUserService(t)
	ctx := context.Background()

	if _, err := svc.AddUser(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	control.statsErr = errors.New("container unreachable")

	rows, err := svc.UsersWithStats(ctx)
	if err != nil {
		t.Fatalf("stats failure must not fail the call: %v", err)
	}
	if len(rows) != 1 || rows[0].Up != 0 || rows[0].Down != 0 {
		t.Fatalf("expected zero counters, got %v", rows)
	}
}

func TestUserTrafficNotFound(t *testing.T) {
	svc, _ := newTestUserService(t)

	_, err := svc.UserTraffic(context.Background(), "nobody")
	if !xerrors.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
