package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Poll the Prometheus metrics endpoint and print live session counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url := v.GetString("url")
			interval := v.GetDuration("interval")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", url)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := printMetricsSnapshot(url); err != nil {
						fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
					}
				}
			}
		},
	}

	cmd.Flags().String("url", "http://localhost:9300/metrics", "Prometheus metrics endpoint")
	cmd.Flags().Duration("interval", 2*time.Second, "refresh interval")
	_ = v.BindPFlag("url", cmd.Flags().Lookup("url"))
	_ = v.BindPFlag("interval", cmd.Flags().Lookup("interval"))
	return cmd
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"bci_windows_total":         0,
		"bci_windows_dropped_total": 0,
		"bci_decisions_total":       0,
		"bci_ring_fill":             0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] windows=%.0f dropped=%.0f decisions=%.0f ring_fill=%.2f\n",
		time.Now().Format(time.RFC3339),
		targets["bci_windows_total"],
		targets["bci_windows_dropped_total"],
		targets["bci_decisions_total"],
		targets["bci_ring_fill"],
	)
	return nil
}
