package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Control the log monitor",
}

var monitorStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start log monitoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		return postSimple("/api/monitor/start", "Monitor started")
	},
}

var monitorStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop log monitoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		return postSimple("/api/monitor/stop", "Monitor stopped")
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger [on|off]",
	Short: "Toggle the combat auto-trigger",
	Args:  cobra.ExactArgs(1),
	RunE:  runTriggerToggle,
}

func init() {
	monitorCmd.AddCommand(monitorStartCmd)
	monitorCmd.AddCommand(monitorStopCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(triggerCmd)
}

func postSimple(path, okMsg string) error {
	resp, err := http.Post(serverURL+path, "application/json", nil)
	if err != nil {
		return fmt.Errorf("connecting to server: %w\nIs the server running? Start it with: spybot serve", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}
	fmt.Println(okMsg)
	return nil
}

func runTriggerToggle(cmd *cobra.Command, args []string) error {
	enabled, err := parseOnOff(args[0])
	if err != nil {
		return err
	}

	body, _ := json.Marshal(map[string]bool{"enabled": enabled})
	resp, err := http.Post(serverURL+"/api/trigger/toggle", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(respBody))
	}

	fmt.Printf("Trigger %s\n", enabledIcon(enabled))
	return nil
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	return false, fmt.Errorf("expected 'on' or 'off', got %q", s)
}
