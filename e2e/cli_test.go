package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/gridarena/internal/factory"
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
	binaryPath := filepath.Join(projectRoot, "bin", "arenactl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/arenactl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  filepath.Join(t.TempDir(), "token"),
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
		"--token-file", filepath.Join(filepath.Dir(r.tokenFile), "unused"),
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// runWithInput runs with stdin fed from input and returns stdout only
func (r *cliRunner) runWithInput(input string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Stdin = strings.NewReader(input)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	err := cmd.Run()
	return stdout.String(), err
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

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	app, err := factory.New(factory.Config{Logger: logger})
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))

	server := &http.Server{
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	server.RegisterOnShutdown(app.Coordinator.Shutdown)

	go func() {
		if err := server.Serve(listener); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := "http://" + listener.Addr().String()
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
	SessionToken string `json:"session_token"`
	PlayerID     string `json:"player_id"`
	Username     string `json:"username"`
	IsGuest      bool   `json:"is_guest"`
}

type playerResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	IsGuest     bool   `json:"is_guest"`
	Health      int    `json:"health"`
	CurrentRoom string `json:"current_room"`
}

type roomResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
}

type roomSnapshotResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Players []struct {
		PlayerID string `json:"player_id"`
		Username string `json:"username"`
		Health   int    `json:"health"`
	} `json:"players"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	ActiveRooms int    `json:"active_rooms"`
}

type eventLine struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
}

func guest(t *testing.T, cli *cliRunner, name string) authResponse {
	t.Helper()

	output, err := cli.run("player", "guest", "--name", name)
	require.NoError(t, err, "output: %s", output)

	var resp authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	return resp
}

func createRoom(t *testing.T, cli *cliRunner, name string, args ...string) roomResponse {
	t.Helper()

	output, err := cli.run(append([]string{"room", "create", name}, args...)...)
	require.NoError(t, err, "output: %s", output)

	var resp roomResponse
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
	assert.Equal(t, 0, resp.Connections)
	assert.Equal(t, 0, resp.ActiveRooms)
}

func TestCLI_PlayerCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	authResp := guest(t, cli, "Alice")
	assert.Equal(t, "Alice", authResp.Username)
	assert.True(t, authResp.IsGuest)
	assert.NotEmpty(t, authResp.SessionToken)

	// Get me (token should be saved in token file)
	output, err := cli.run("player", "me")
	require.NoError(t, err, "output: %s", output)

	var player playerResponse
	require.NoError(t, json.Unmarshal([]byte(output), &player))
	assert.Equal(t, "Alice", player.Username)
	assert.Equal(t, authResp.PlayerID, player.ID)

	output, err = cli.run("player", "logout")
	require.NoError(t, err, "output: %s", output)

	// Token is gone from both the server and the token file
	_, err = cli.runWithToken(authResp.SessionToken, "player", "me")
	assert.Error(t, err)
	_, err = cli.run("player", "me")
	assert.Error(t, err)
}

func TestCLI_RegisterAndLogin(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("player", "register", "--user", "carol", "--pass", "hunter22")
	require.NoError(t, err, "output: %s", output)

	var registered authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &registered))
	assert.False(t, registered.IsGuest)

	output, err = cli.run("player", "login", "--user", "carol", "--pass", "hunter22")
	require.NoError(t, err, "output: %s", output)

	var loggedIn authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &loggedIn))
	assert.Equal(t, registered.PlayerID, loggedIn.PlayerID)
	assert.NotEqual(t, registered.SessionToken, loggedIn.SessionToken)

	output, err = cli.run("player", "login", "--user", "carol", "--pass", "wrong-pass")
	assert.Error(t, err)
	assert.Contains(t, output, "INVALID_CREDENTIALS")
}

func TestCLI_RoomCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)
	guest(t, cli, "Alice")

	room := createRoom(t, cli, "The Pit", "--max-players", "2")
	assert.NotEmpty(t, room.ID)
	assert.Equal(t, "The Pit", room.Name)
	assert.Equal(t, 2, room.MaxPlayers)
	assert.Equal(t, 0, room.PlayerCount)

	createRoom(t, cli, "Lobby")

	output, err := cli.run("room", "list")
	require.NoError(t, err, "output: %s", output)

	var list struct {
		Rooms []roomResponse `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &list))
	assert.Len(t, list.Rooms, 2)

	output, err = cli.run("room", "get", room.ID)
	require.NoError(t, err, "output: %s", output)

	var snapshot roomSnapshotResponse
	require.NoError(t, json.Unmarshal([]byte(output), &snapshot))
	assert.Equal(t, room.ID, snapshot.ID)
	assert.Empty(t, snapshot.Players)
}

func TestCLI_Play(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)
	alice := guest(t, cli, "Alice")
	room := createRoom(t, cli, "Arena")

	for _, protocol := range [][]string{nil, {"--msgpack"}} {
		// EOF on stdin closes the session once the join is sent, so only the
		// events delivered before the close are guaranteed
		args := append([]string{"play", room.ID}, protocol...)
		output, err := cli.runWithInput("attack\n", args...)
		require.NoError(t, err, "output: %s", output)

		for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
			if line == "" {
				continue
			}
			var event eventLine
			require.NoError(t, json.Unmarshal([]byte(line), &event), line)
			assert.NotEmpty(t, event.Type)
		}
	}

	// The session's disconnect cleanup removes the player again
	require.Eventually(t, func() bool {
		return ts.app.Coordinator.Idle()
	}, 5*time.Second, 20*time.Millisecond)

	output, err := cli.run("player", "me")
	require.NoError(t, err, "output: %s", output)

	var player playerResponse
	require.NoError(t, json.Unmarshal([]byte(output), &player))
	assert.Equal(t, alice.PlayerID, player.ID)
	assert.Empty(t, player.CurrentRoom)
}

func TestCLI_StatsCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("achievements")
	require.NoError(t, err, "output: %s", output)

	var achievements struct {
		Achievements []struct {
			ID       string `json:"id"`
			Achieved bool   `json:"achieved"`
		} `json:"achievements"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &achievements))
	require.NotEmpty(t, achievements.Achievements)
	for _, a := range achievements.Achievements {
		assert.False(t, a.Achieved, a.ID)
	}

	guest(t, cli, "Alice")
	guest(t, cli, "Bob")

	output, err = cli.run("leaderboard", "--limit", "1")
	require.NoError(t, err, "output: %s", output)

	var leaderboard struct {
		Entries []struct {
			Rank int `json:"rank"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &leaderboard))
	require.Len(t, leaderboard.Entries, 1)
	assert.Equal(t, 1, leaderboard.Entries[0].Rank)
}

func TestCLI_ErrorHandling(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Get player without auth
	output, err := cli.run("player", "me")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "unauthorized")

	// Play without a token fails before dialing
	output, err = cli.run("play", "room-1")
	assert.Error(t, err)
	assert.Contains(t, output, "not logged in")

	auth := guest(t, cli, "Alice")

	output, err = cli.runWithToken(auth.SessionToken, "room", "get", "missing")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "not found")

	output, err = cli.runWithToken(auth.SessionToken, "room", "create", "   ")
	assert.Error(t, err)
	assert.Contains(t, output, "INVALID_ROOM_NAME")

	output, err = cli.runWithToken(auth.SessionToken, "events", "missing")
	assert.Error(t, err)
	assert.Contains(t, output, "ROOM_NOT_FOUND")
}
