package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show monitor and craft status",
	RunE:  runStatus,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live monitor events (matches, triggers, errors)",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	resp, err := http.Get(serverURL + "/api/status")
	if err != nil {
		return fmt.Errorf("connecting to server: %w\nIs the server running? Start it with: spybot serve", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}

	var status struct {
		Monitor struct {
			Running      bool   `json:"running"`
			Mode         string `json:"mode"`
			Offset       int64  `json:"offset"`
			CooldownHits int64  `json:"cooldown_hits"`
			Config       struct {
				Enabled  bool     `json:"enabled"`
				LogPath  string   `json:"log_path"`
				Keywords []string `json:"keywords"`
				Trigger  struct {
					Enabled bool   `json:"enabled"`
					Key     string `json:"key"`
				} `json:"trigger"`
			} `json:"config"`
		} `json:"monitor"`
		Craft *struct {
			ID        string `json:"id"`
			State     string `json:"state"`
			Requested int    `json:"requested"`
			Verified  int    `json:"verified"`
			Error     string `json:"error"`
		} `json:"craft"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	m := status.Monitor
	fmt.Printf("Monitor:   %s\n", runningIcon(m.Running))
	fmt.Printf("Mode:      %s\n", m.Mode)
	fmt.Printf("Log:       %s\n", orDash(m.Config.LogPath))
	fmt.Printf("Keywords:  %s\n", orDash(strings.Join(m.Config.Keywords, ", ")))
	fmt.Printf("Trigger:   %s (key %s, %d hits)\n",
		enabledIcon(m.Config.Trigger.Enabled), orDash(m.Config.Trigger.Key), m.CooldownHits)

	if status.Craft != nil {
		c := status.Craft
		fmt.Printf("\nCraft run: %s\n", c.ID)
		fmt.Printf("State:     %s\n", stateIcon(c.State))
		fmt.Printf("Verified:  %d/%d\n", c.Verified, c.Requested)
		if c.Error != "" {
			fmt.Printf("Error:     %s\n", c.Error)
		}
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	req, _ := http.NewRequest("GET", serverURL+"/api/monitor/events", nil)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to event stream: %w", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		var event struct {
			Type string `json:"type"`
			Data string `json:"data"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}

		switch event.Type {
		case "match":
			fmt.Printf("\033[36m[match]\033[0m %s\n", event.Data)
		case "trigger":
			fmt.Printf("\033[33m[trigger]\033[0m key %s\n", event.Data)
		case "error":
			fmt.Fprintf(os.Stderr, "\033[31m[error]\033[0m %s\n", event.Data)
		default:
			fmt.Printf("[%s] %s\n", event.Type, event.Data)
		}
	}

	return scanner.Err()
}

func runningIcon(running bool) string {
	if running {
		return "🔄 running"
	}
	return "⏸ stopped"
}

func enabledIcon(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func stateIcon(state string) string {
	switch state {
	case "running":
		return "🔄 running"
	case "succeeded":
		return "✅ succeeded"
	case "aborted":
		return "❌ aborted"
	case "stopped":
		return "⏸ stopped"
	default:
		return state
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
