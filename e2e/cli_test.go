package e2e_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/battleship-go/internal/factory"
	"github.com/mcoot/battleship-go/internal/model"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	tokenFile  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(projectRoot, "bin", "bsctl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/bsctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	// Create temp token file
	tokenFile := filepath.Join(t.TempDir(), "token")

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  tokenFile,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func (r *cliRunner) runWithToken(token string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token", token,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	app      *factory.App
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	// Create application
	app, err := factory.New(context.Background(), factory.Config{})
	require.NoError(t, err)

	server := &http.Server{
		Addr:    addr,
		Handler: app.Router(),
	}

	// Start server
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		app:  app,
		addr: serverURL,
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type authResponse struct {
	Player struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		IsGuest     bool   `json:"is_guest"`
	} `json:"player"`
	SessionToken string `json:"session_token"`
}

type healthResponse struct {
	Status      string `json:"status"`
	QueueLength int    `json:"queue_length"`
}

type statsResponse struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Played int `json:"played"`
}

type gameListResponse struct {
	Games []struct {
		ID     string `json:"id"`
		RoomID string `json:"room_id"`
		Status string `json:"status"`
	} `json:"games"`
}

type shipsPlacedResponse struct {
	GameID string `json:"game_id"`
	Phase  string `json:"phase"`
}

type gameDetailResponse struct {
	Role  string `json:"role"`
	Phase string `json:"phase"`
	Own   struct {
		Ships []model.Ship `json:"ships"`
	} `json:"own"`
	Opponent struct {
		ShipsPlaced bool `json:"ships_placed"`
	} `json:"opponent"`
}

var standardShips = []string{
	"--ship", "carrier=A1:h",
	"--ship", "battleship=C1:h",
	"--ship", "cruiser=E1:h",
	"--ship", "submarine=G1:h",
	"--ship", "destroyer=I1:h",
}

func createGuest(t *testing.T, cli *cliRunner, name string) authResponse {
	t.Helper()
	output, err := cli.run("player", "guest", "--name", name)
	require.NoError(t, err, "output: %s", output)

	var resp authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	return resp
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.QueueLength)
}

func TestCLI_PlayerCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Create guest
	authResp := createGuest(t, cli, "Alice")
	assert.Equal(t, "Alice", authResp.Player.DisplayName)
	assert.True(t, authResp.Player.IsGuest)
	assert.NotEmpty(t, authResp.SessionToken)

	// Get me (token should be saved in token file)
	output, err := cli.run("player", "me")
	require.NoError(t, err, "output: %s", output)

	var player struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		IsGuest     bool   `json:"is_guest"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &player))
	assert.Equal(t, "Alice", player.DisplayName)
	assert.Equal(t, authResp.Player.ID, player.ID)

	// Stats start empty
	output, err = cli.run("player", "stats")
	require.NoError(t, err, "output: %s", output)

	var stats statsResponse
	require.NoError(t, json.Unmarshal([]byte(output), &stats))
	assert.Equal(t, 0, stats.Played)
}

func TestCLI_RegisterAndLogin(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("player", "register", "--name", "Alice", "--user", "alice", "--pass", "secret123")
	require.NoError(t, err, "output: %s", output)

	var registered authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &registered))
	assert.False(t, registered.Player.IsGuest)

	output, err = cli.run("player", "login", "--user", "alice", "--pass", "secret123")
	require.NoError(t, err, "output: %s", output)

	var loggedIn authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &loggedIn))
	assert.Equal(t, registered.Player.ID, loggedIn.Player.ID)
}

func TestCLI_GameCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	alice := createGuest(t, cli, "Alice")
	bob := createGuest(t, cli, "Bob")

	// Matchmaking happens over the websocket; pair the players directly
	ctx := context.Background()
	_, err := ts.app.Matchmaking.JoinRandom(ctx, model.PlayerID(alice.Player.ID))
	require.NoError(t, err)
	res, err := ts.app.Matchmaking.JoinRandom(ctx, model.PlayerID(bob.Player.ID))
	require.NoError(t, err)
	gameID := string(res.Game.ID)

	// List active games
	output, err := cli.runWithToken(alice.SessionToken, "games", "list", "--active")
	require.NoError(t, err, "output: %s", output)

	var list gameListResponse
	require.NoError(t, json.Unmarshal([]byte(output), &list))
	require.Len(t, list.Games, 1)
	assert.Equal(t, gameID, list.Games[0].ID)
	assert.Equal(t, string(res.Game.RoomID), list.Games[0].RoomID)

	// Alice places her ships
	args := append([]string{"games", "ships", gameID}, standardShips...)
	output, err = cli.runWithToken(alice.SessionToken, args...)
	require.NoError(t, err, "output: %s", output)

	var placed shipsPlacedResponse
	require.NoError(t, json.Unmarshal([]byte(output), &placed))
	assert.Equal(t, string(model.PhaseShipsPending), placed.Phase)

	// Bob sees that Alice is ready
	output, err = cli.runWithToken(bob.SessionToken, "games", "show", gameID)
	require.NoError(t, err, "output: %s", output)

	var detail gameDetailResponse
	require.NoError(t, json.Unmarshal([]byte(output), &detail))
	assert.Equal(t, string(model.RolePlayer2), detail.Role)
	assert.True(t, detail.Opponent.ShipsPlaced)
	assert.Empty(t, detail.Own.Ships)

	// Bob places from a file
	layout, err := json.Marshal(layoutFromCLI(t, cli, alice.SessionToken, gameID))
	require.NoError(t, err)
	layoutFile := filepath.Join(t.TempDir(), "layout.json")
	require.NoError(t, os.WriteFile(layoutFile, layout, 0o600))

	output, err = cli.runWithToken(bob.SessionToken, "games", "ships", gameID, "--file", layoutFile)
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &placed))
	assert.Equal(t, string(model.PhaseInPlay), placed.Phase)
}

// layoutFromCLI reads back the layout a player stored
func layoutFromCLI(t *testing.T, cli *cliRunner, token, gameID string) []model.Ship {
	t.Helper()
	output, err := cli.runWithToken(token, "games", "show", gameID)
	require.NoError(t, err, "output: %s", output)

	var detail gameDetailResponse
	require.NoError(t, json.Unmarshal([]byte(output), &detail))
	require.Len(t, detail.Own.Ships, len(model.Fleet))
	return detail.Own.Ships
}

func TestCLI_ErrorHandling(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// No token
	output, err := cli.run("player", "me")
	assert.Error(t, err)
	assert.Contains(t, output, "UNAUTHORIZED")

	alice := createGuest(t, cli, "Alice")

	// Unknown game
	output, err = cli.runWithToken(alice.SessionToken, "games", "show", "no-such-game")
	assert.Error(t, err)
	assert.Contains(t, output, "GAME_NOT_FOUND")

	// Invalid ship argument is rejected before any request
	output, err = cli.runWithToken(alice.SessionToken, "games", "ships", "no-such-game", "--ship", "rowboat=A1:h")
	assert.Error(t, err)
	assert.Contains(t, output, "unknown ship")
}
