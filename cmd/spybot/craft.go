package main

import (
	"bufio"
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
	craftItems  []string
	craftSeqs   []string
	craftCounts []int
	craftPreset string
	craftFollow bool
)

var craftCmd = &cobra.Command{
	Use:   "craft",
	Short: "Manage craft runs",
}

var craftStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a craft run",
	Long: `Start a verified craft run. Each crafted item is confirmed against the
game log before it counts.

Example:
  spybot craft start --item "Antidote" -n 5
  spybot craft start --seq 151 -n 10 --seq 211 -n 3
  spybot craft start --preset 1`,
	RunE: runCraftStart,
}

var craftStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active craft run (resumable)",
	RunE:  runCraftStop,
}

var craftResumeCmd = &cobra.Command{
	Use:   "resume [run-id]",
	Short: "Resume a stopped or aborted craft run",
	Args:  cobra.ExactArgs(1),
	RunE:  runCraftResume,
}

var craftRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List craft runs",
	RunE:  runCraftRuns,
}

var craftRecipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "List known recipes",
	RunE:  runCraftRecipes,
}

func init() {
	craftStartCmd.Flags().StringArrayVar(&craftItems, "item", nil, "Item name to craft (repeatable)")
	craftStartCmd.Flags().StringArrayVar(&craftSeqs, "seq", nil, "Menu sequence to craft (repeatable)")
	craftStartCmd.Flags().IntSliceVarP(&craftCounts, "count", "n", nil, "Count per item/sequence (repeatable)")
	craftStartCmd.Flags().StringVar(&craftPreset, "preset", "", "Start from a saved preset slot")
	craftStartCmd.Flags().BoolVarP(&craftFollow, "follow", "f", true, "Stream run events")

	craftCmd.AddCommand(craftStartCmd)
	craftCmd.AddCommand(craftStopCmd)
	craftCmd.AddCommand(craftResumeCmd)
	craftCmd.AddCommand(craftRunsCmd)
	craftCmd.AddCommand(craftRecipesCmd)
	rootCmd.AddCommand(craftCmd)
}

type cliJob struct {
	Item     string `json:"item,omitempty"`
	Sequence string `json:"sequence,omitempty"`
	Count    int    `json:"count"`
}

func buildJobs() ([]cliJob, error) {
	specs := len(craftItems) + len(craftSeqs)
	if specs == 0 {
		return nil, nil
	}
	if len(craftCounts) != specs {
		return nil, fmt.Errorf("need one --count per --item/--seq (%d given, %d needed)", len(craftCounts), specs)
	}
	jobs := make([]cliJob, 0, specs)
	i := 0
	for _, item := range craftItems {
		jobs = append(jobs, cliJob{Item: item, Count: craftCounts[i]})
		i++
	}
	for _, seq := range craftSeqs {
		jobs = append(jobs, cliJob{Sequence: seq, Count: craftCounts[i]})
		i++
	}
	return jobs, nil
}

func runCraftStart(cmd *cobra.Command, args []string) error {
	jobs, err := buildJobs()
	if err != nil {
		return err
	}
	if len(jobs) == 0 && craftPreset == "" {
		return fmt.Errorf("specify --item/--seq with --count, or --preset")
	}

	body, _ := json.Marshal(map[string]any{
		"jobs":   jobs,
		"preset": craftPreset,
	})

	resp, err := http.Post(serverURL+"/api/craft/start", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("connecting to server: %w\nIs the server running? Start it with: spybot serve", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(respBody))
	}

	var run struct {
		ID        string `json:"id"`
		Requested int    `json:"requested"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	fmt.Printf("Craft run %s started (%d items)\n", run.ID, run.Requested)
	if !craftFollow {
		return nil
	}
	fmt.Printf("Streaming events...\n\n")
	return streamRunEvents(run.ID)
}

func runCraftStop(cmd *cobra.Command, args []string) error {
	resp, err := http.Post(serverURL+"/api/craft/stop", "application/json", nil)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}

	var run struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if run.ID == "" {
		fmt.Println("No active craft run.")
		return nil
	}
	fmt.Printf("Run %s: %s\n", run.ID, stateIcon(run.State))
	return nil
}

func runCraftResume(cmd *cobra.Command, args []string) error {
	id := args[0]
	resp, err := http.Post(serverURL+"/api/craft/resume/"+id, "application/json", nil)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}

	fmt.Printf("Run %s resumed\n", id)
	fmt.Printf("Streaming events...\n\n")
	return streamRunEvents(id)
}

func runCraftRuns(cmd *cobra.Command, args []string) error {
	resp, err := http.Get(serverURL + "/api/craft/runs")
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}

	var runs []struct {
		ID        string `json:"id"`
		State     string `json:"state"`
		Requested int    `json:"requested"`
		Verified  int    `json:"verified"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No craft runs found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tVERIFIED\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n", r.ID, stateIcon(r.State), r.Verified, r.Requested, r.CreatedAt)
	}
	return w.Flush()
}

func runCraftRecipes(cmd *cobra.Command, args []string) error {
	resp, err := http.Get(serverURL + "/api/craft/recipes")
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	var recipes []struct {
		Name     string `json:"name"`
		Sequence string `json:"sequence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&recipes); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSEQUENCE")
	for _, r := range recipes {
		fmt.Fprintf(w, "%s\t%s\n", r.Name, r.Sequence)
	}
	return w.Flush()
}

func streamRunEvents(runID string) error {
	req, _ := http.NewRequest("GET", serverURL+"/api/craft/runs/"+runID+"/events", nil)
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
		case "status":
			fmt.Printf("\033[36m[status]\033[0m %s\n", event.Data)
		case "progress":
			var p struct {
				Item      string `json:"item"`
				Verified  int    `json:"verified"`
				Requested int    `json:"requested"`
			}
			if err := json.Unmarshal([]byte(event.Data), &p); err == nil {
				fmt.Printf("\033[32m[craft]\033[0m %s (%d/%d)\n", p.Item, p.Verified, p.Requested)
			}
		case "error":
			fmt.Fprintf(os.Stderr, "\033[31m[error]\033[0m %s\n", event.Data)
		case "done":
			fmt.Printf("\n\033[32m✓ Done:\033[0m %s\n", event.Data)
			return nil
		}
	}

	return scanner.Err()
}
