//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const repoRootRel = ".."   // relative to ./e2e
const mainPkgRel = "./cmd" // main.go lives in cmd/

const (
	stationID = "e2e-station"
	mqttPort  = nat.Port("1883/tcp")
)

type telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature_c"`
	Sequence    uint64    `json:"sequence"`
}

func TestSmoke_DashboardArchiveAndTelemetry(t *testing.T) {
	repoRoot := repoRootPath(t)
	host, port := startMosquitto(t)
	messages := subscribeTelemetry(t, host, port)

	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)
	sqlitePath := filepath.Join(t.TempDir(), "archive.db")

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"HTTP_ADDR="+addr,
		"STATION_ID="+stationID,
		"SQLITE_PATH="+sqlitePath,
		"MQTT_BROKER="+host,
		"MQTT_PORT="+port,
		"MQTT_CLIENT_ID=climate-tracker-e2e",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr

	waitForOK(t, client, base+"/healthz", 10*time.Second)

	var health map[string]any
	getJSON(t, client, base+"/healthz", http.StatusOK, &health)
	if health["status"] != "ok" || health["archive"] != "ok" {
		t.Fatalf("health=%v", health)
	}

	var latest struct {
		TemperatureC float64 `json:"temperature_c"`
		Timestamp    string  `json:"timestamp"`
	}
	getJSON(t, client, base+"/api/v1/latest", http.StatusOK, &latest)
	if latest.TemperatureC < -18 || latest.TemperatureC > -16 {
		t.Errorf("latest temperature %v outside [-18, -16]", latest.TemperatureC)
	}
	if _, err := time.Parse("2006-01-02 15:04:05", latest.Timestamp); err != nil {
		t.Errorf("latest timestamp %q: %v", latest.Timestamp, err)
	}

	select {
	case msg := <-messages:
		if msg.StationID != stationID || msg.Sequence == 0 {
			t.Errorf("telemetry=%+v", msg)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("no telemetry received from broker")
	}

	var archived []map[string]any
	getJSON(t, client, base+"/api/v1/archive?limit=5", http.StatusOK, &archived)
	if len(archived) == 0 {
		t.Error("archive is empty")
	}

	resp, err := client.Get(base + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	page, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(page), "Live Climate Tracker") {
		t.Errorf("GET / status=%d, title present=%v", resp.StatusCode, strings.Contains(string(page), "Live Climate Tracker"))
	}

	stopServer(t, cmd)
}

func startMosquitto(t *testing.T) (host string, port string) {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{string(mqttPort)},
		// Image ships a config that allows anonymous clients on 1883.
		Cmd:        []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor: wait.ForListeningPort(mqttPort).WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err = c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, mqttPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return host, mapped.Port()
}

func subscribeTelemetry(t *testing.T, host, port string) <-chan telemetry {
	t.Helper()

	out := make(chan telemetry, 16)
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID("e2e-subscriber").
		SetConnectTimeout(5 * time.Second)
	client := mqtt.NewClient(opts)

	if token := client.Connect(); !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		t.Fatalf("subscriber connect: %v", token.Error())
	}
	t.Cleanup(func() { client.Disconnect(250) })

	topic := "stations/" + stationID + "/telemetry"
	token := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var tm telemetry
		if err := json.Unmarshal(msg.Payload(), &tm); err != nil {
			t.Errorf("bad telemetry payload %q: %v", msg.Payload(), err)
			return
		}
		select {
		case out <- tm:
		default:
		}
	})
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("subscribe %s: %v", topic, token.Error())
	}
	return out
}

func getJSON(t *testing.T, client *http.Client, url string, wantStatus int, out any) {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status=%d want=%d", url, resp.StatusCode, wantStatus)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	out := filepath.Join(t.TempDir(), "climate-tracker")

	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}

	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func waitForOK(t *testing.T, client *http.Client, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server not healthy after %s: %s", timeout, url)
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("server exited non-zero: %v", err)
			}
			t.Fatalf("server wait error: %v", err)
		}
	}
}
