package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"clearhaven/internal/brokerage"
	"clearhaven/internal/closure"
)

// closurewatch follows an account closure from the terminal: it polls the
// progress endpoint, prints per-step status, and on failure schedules
// automatic resume attempts from the backend-issued delay. Press r+enter
// to retry immediately.
func main() {
	apiURL := flag.String("api", "http://localhost:8080", "base URL of the closure API")
	token := flag.String("token", os.Getenv("CLOSURE_TOKEN"), "bearer token (defaults to CLOSURE_TOKEN)")
	accountID := flag.String("account", "", "brokerage account id")
	interval := flag.Duration("interval", 60*time.Second, "progress poll interval")
	flag.Parse()

	if *token == "" || *accountID == "" {
		flag.Usage()
		os.Exit(2)
	}

	client := &apiClient{base: strings.TrimRight(*apiURL, "/"), token: *token, httpc: &http.Client{Timeout: 15 * time.Second}}
	coord := closure.NewCoordinator(client, *accountID, *interval)
	coord.OnUpdate = printReport

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			if strings.TrimSpace(sc.Text()) == "r" {
				fmt.Println("resume requested")
				coord.Retry()
			}
		}
	}()

	if err := coord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func printReport(rep closure.Report) {
	fmt.Printf("--- %s (phase: %s)\n", time.Now().Format(time.TimeOnly), rep.Phase)
	for _, s := range rep.Steps {
		fmt.Printf("  [%-11s] %s\n", s.Status, s.Label)
	}
	switch {
	case rep.Complete:
		fmt.Println("closure complete")
	case rep.HasFailed:
		fmt.Println("a step has failed; press r+enter to resume now")
	}
}

type apiClient struct {
	base  string
	token string
	httpc *http.Client
}

func (c *apiClient) Progress(ctx context.Context, accountID string) (closure.Report, error) {
	var rep closure.Report
	err := c.do(ctx, http.MethodGet, "/v1/account-closure/progress/"+accountID, nil, &rep)
	return rep, err
}

func (c *apiClient) Resume(ctx context.Context, accountID, achRelationshipID string) (brokerage.ResumeResult, error) {
	var res brokerage.ResumeResult
	var body any
	if achRelationshipID != "" {
		body = map[string]string{"ach_relationship_id": achRelationshipID}
	}
	err := c.do(ctx, http.MethodPost, "/v1/account-closure/resume/"+accountID, body, &res)
	return res, err
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(payload))
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}
