package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	presetSeqs   []string
	presetCounts []int
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage craft presets",
}

var presetSaveCmd = &cobra.Command{
	Use:   "save [slot]",
	Short: "Save a craft preset",
	Long: `Save a reusable (sequence, count) queue under a slot name.

Example:
  spybot preset save 1 --seq 151 -n 10 --seq 211 -n 3`,
	Args: cobra.ExactArgs(1),
	RunE: runPresetSave,
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	RunE:  runPresetList,
}

var presetApplyCmd = &cobra.Command{
	Use:   "apply [slot]",
	Short: "Start a craft run from a saved preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetApply,
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete [slot]",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetDelete,
}

func init() {
	presetSaveCmd.Flags().StringArrayVar(&presetSeqs, "seq", nil, "Menu sequence (repeatable)")
	presetSaveCmd.Flags().IntSliceVarP(&presetCounts, "count", "n", nil, "Count per sequence (repeatable)")

	presetCmd.AddCommand(presetSaveCmd)
	presetCmd.AddCommand(presetListCmd)
	presetCmd.AddCommand(presetApplyCmd)
	presetCmd.AddCommand(presetDeleteCmd)
	rootCmd.AddCommand(presetCmd)
}

func runPresetSave(cmd *cobra.Command, args []string) error {
	slot := args[0]
	if len(presetSeqs) == 0 {
		return fmt.Errorf("specify at least one --seq with --count")
	}
	if len(presetCounts) != len(presetSeqs) {
		return fmt.Errorf("need one --count per --seq (%d given, %d needed)", len(presetCounts), len(presetSeqs))
	}

	type presetItem struct {
		Sequence string `json:"sequence"`
		Count    int    `json:"count"`
	}
	items := make([]presetItem, len(presetSeqs))
	for i, seq := range presetSeqs {
		items[i] = presetItem{Sequence: seq, Count: presetCounts[i]}
	}
	body, _ := json.Marshal(items)

	req, _ := http.NewRequest("PUT", serverURL+"/api/presets/"+slot, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(respBody))
	}

	fmt.Printf("Preset %s saved (%d items)\n", slot, len(items))
	return nil
}

func runPresetList(cmd *cobra.Command, args []string) error {
	resp, err := http.Get(serverURL + "/api/presets")
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}

	var presets []struct {
		Slot  string `json:"slot"`
		Items []struct {
			Sequence string `json:"sequence"`
			Count    int    `json:"count"`
		} `json:"items"`
		UpdatedAt string `json:"updated_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&presets); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	if len(presets) == 0 {
		fmt.Println("No presets saved.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tITEMS\tUPDATED")
	for _, p := range presets {
		parts := make([]string, len(p.Items))
		for i, item := range p.Items {
			parts[i] = fmt.Sprintf("%s×%d", item.Sequence, item.Count)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Slot, strings.Join(parts, " "), p.UpdatedAt)
	}
	return w.Flush()
}

func runPresetApply(cmd *cobra.Command, args []string) error {
	slot := args[0]
	resp, err := http.Post(serverURL+"/api/presets/"+slot+"/apply", "application/json", nil)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}

	var run struct {
		ID        string `json:"id"`
		Requested int    `json:"requested"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	fmt.Printf("Craft run %s started from preset %s (%d items)\n", run.ID, slot, run.Requested)
	fmt.Printf("Streaming events...\n\n")
	return streamRunEvents(run.ID)
}

func runPresetDelete(cmd *cobra.Command, args []string) error {
	slot := args[0]
	req, _ := http.NewRequest("DELETE", serverURL+"/api/presets/"+slot, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}

	fmt.Printf("Preset %s deleted\n", slot)
	return nil
}
