// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Exit codes of `zonewatchd probe`.
const (
	exitDegraded    = 2
	exitUnreachable = 3
)

var errDegraded = errors.New("degraded")

type probeOptions struct {
	url     string
	zone    string
	format  string
	token   string
	live    bool
	timeout time.Duration
}

func newProbeCmd() *cobra.Command {
	opts := probeOptions{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Query a running zonewatchd and exit non-zero when unhealthy",
		Long: "Without --zone, probe checks the readiness endpoint (or liveness with --live).\n" +
			"With --zone it fetches the zone's json, xml or sh view and exits 2 when the\n" +
			"zone is degraded.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.url, "url", "http://localhost:8080", "base URL of the zonewatchd API")
	f.StringVar(&opts.zone, "zone", "", "zone to query")
	f.StringVar(&opts.format, "format", "sh", "zone view: json, xml or sh")
	f.StringVar(&opts.token, "token", "", "API token (defaults to $ZONEWATCH_API_TOKEN)")
	f.BoolVar(&opts.live, "live", false, "check liveness instead of readiness")
	f.DurationVar(&opts.timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}

func probePath(opts probeOptions) (string, error) {
	if opts.zone == "" {
		if opts.live {
			return "/healthz", nil
		}
		return "/readyz", nil
	}
	switch opts.format {
	case "json", "xml", "sh":
	default:
		return "", fmt.Errorf("unknown format %q (supported: json, xml, sh)", opts.format)
	}
	return "/health/zone/" + url.PathEscape(opts.zone) + "/api/" + opts.format, nil
}

func runProbe(out io.Writer, opts probeOptions) error {
	path, err := probePath(opts)
	if err != nil {
		return err
	}
	if opts.token == "" {
		opts.token = strings.TrimSpace(os.Getenv("ZONEWATCH_API_TOKEN"))
	}

	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(opts.url, "/")+path, nil)
	if err != nil {
		return err
	}
	if opts.token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.token)
	}

	client := &http.Client{Timeout: opts.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return &exitError{code: exitUnreachable, err: fmt.Errorf("probe failed (network): %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &exitError{code: exitUnreachable, err: fmt.Errorf("probe failed (read): %w", err)}
	}
	_, _ = out.Write(body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusServiceUnavailable:
		return &exitError{code: exitDegraded, err: fmt.Errorf("%s: %w", path, errDegraded)}
	default:
		return fmt.Errorf("probe failed (status): %s", resp.Status)
	}
}
