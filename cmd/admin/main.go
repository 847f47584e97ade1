// Command admin is the operator CLI for a running limits server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	actor     uint64

	httpClient = &http.Client{Timeout: 10 * time.Second}
)

func defaultServer() string {
	if s := os.Getenv("AEL_SERVER"); s != "" {
		return s
	}
	return "http://127.0.0.1:8080"
}

var rootCmd = &cobra.Command{
	Use:   "ael",
	Short: "Operator CLI for the entity limit server",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", defaultServer(), "server base url")
	rootCmd.PersistentFlags().Uint64Var(&actor, "actor", 0, "acting operator user id (0 = console)")
	rootCmd.AddCommand(tiersCmd(), categoriesCmd(), createCmd(), setLimitCmd(), setEnabledCmd(), evaluateCmd(), refreshCmd(), saveCmd(), grantCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func call(method, path string, body any) error {
	u := strings.TrimRight(strings.TrimSpace(serverURL), "/") + path

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != 0 {
		req.Header.Set("X-Actor-ID", fmt.Sprintf("%d", actor))
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if len(bytes.TrimSpace(b)) > 0 {
		fmt.Println(string(bytes.TrimSpace(b)))
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
