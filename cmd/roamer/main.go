// Command roamer is a headless presence client for smoke and load testing.
// It logs in over the REST boundary, joins the world, walks a rectangle
// around the spawn point, and logs what it sees.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/call"
	"github.com/atriumverse/atrium/internal/client"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:3001", "server base URL")
	username := flag.String("user", "roamer", "username")
	password := flag.String("pass", "roamer-pass", "password")
	speed := flag.Float64("speed", 120, "walk speed in px/sec")
	legDur := flag.Duration("leg", 3*time.Second, "duration of each walk leg")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	token, err := login(*server, *username, *password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	log.Info("authenticated", zap.String("user", *username))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs := client.Observer{
		OnAccessDenied: func(zoneID, name string) {
			log.Info("bounced off zone", zap.String("zone", zoneID), zap.String("name", name))
		},
		OnChat: func(_, username, text string) {
			log.Info("chat", zap.String("from", username), zap.String("text", text))
		},
		OnReaction: func(id, emoji string) {
			log.Info("reaction", zap.String("from", id), zap.String("emoji", emoji))
		},
	}

	wsURL := "ws" + (*server)[len("http"):] + "/ws"
	conn, err := client.Dial(ctx, wsURL, token, client.Options{}, obs, call.LoopbackDialer{}, time.Second, log)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	go walk(ctx, conn, *speed, *legDur, log)

	err = conn.Run(ctx)
	if ctx.Err() != nil {
		log.Info("shutting down")
		return nil
	}
	return err
}

// walk drives a rectangle: right, down, left, up, forever. The client's own
// prediction handles zone push-back, so walking into a restricted room just
// slides along its edge. The client is only ever touched on the Run
// goroutine, via conn.Do.
func walk(ctx context.Context, conn *client.Conn, speed float64, leg time.Duration, log *zap.Logger) {
	legs := [][2]float64{{speed, 0}, {0, speed}, {-speed, 0}, {0, -speed}}
	i := 0
	ticker := time.NewTicker(leg)
	defer ticker.Stop()

	conn.Do(ctx, func(c *client.Client) { c.SetVelocity(legs[0][0], legs[0][1]) })
	for {
		select {
		case <-ticker.C:
			i = (i + 1) % len(legs)
			vx, vy := legs[i][0], legs[i][1]
			lap := i == 0
			err := conn.Do(ctx, func(c *client.Client) {
				c.SetVelocity(vx, vy)
				if lap {
					c.SendReaction("👋")
					log.Info("lap complete", zap.Float64("x", c.Self().X), zap.Float64("y", c.Self().Y))
				}
			})
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func login(server, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})

	try := func(path string) (string, int, error) {
		resp, err := http.Post(server+path, "application/json", bytes.NewReader(body))
		if err != nil {
			return "", 0, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", resp.StatusCode, nil
		}
		var out struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", resp.StatusCode, err
		}
		return out.Token, resp.StatusCode, nil
	}

	token, status, err := try("/api/auth/login")
	if err != nil {
		return "", err
	}
	if token != "" {
		return token, nil
	}
	if status == http.StatusUnauthorized {
		// First run: the account does not exist yet.
		token, _, err = try("/api/auth/signup")
		if err != nil {
			return "", err
		}
		if token != "" {
			return token, nil
		}
	}
	return "", fmt.Errorf("auth rejected with status %d", status)
}
