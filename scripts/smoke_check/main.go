package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// target is one request of the smoke run. As names the account whose token
// is sent; an empty As sends no Authorization header.
type target struct {
	Method   string          `json:"method"`
	Path     string          `json:"path"`
	As       string          `json:"as"`
	Body     json.RawMessage `json:"body,omitempty"`
	Expect   int             `json:"expect"`
	Critical bool            `json:"critical"`
}

type account struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type config struct {
	Accounts map[string]account `json:"accounts"`
	Targets  []target           `json:"targets"`
}

type result struct {
	Target   target
	Status   int
	Duration time.Duration
	Error    error
}

func (r result) ok() bool {
	return r.Error == nil && r.Status == r.Target.Expect
}

func main() {
	var (
		base        string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL including the prefix")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smoke_check", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	cfg, err := loadConfig(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	tokens := make(map[string]string, len(cfg.Accounts))
	for name, acc := range cfg.Accounts {
		token, err := login(client, base, acc)
		if err != nil {
			log.Fatalf("login as %s failed: %v", name, err)
		}
		tokens[name] = token
	}

	var (
		results  []result
		breaking int
		optional int
	)
	for _, t := range cfg.Targets {
		res := run(client, base, tokens, t)
		if !res.ok() {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	printReport(results)
	fmt.Printf("Breaking failures: %d, Optional failures: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	for i, t := range cfg.Targets {
		if t.Expect == 0 {
			cfg.Targets[i].Expect = http.StatusOK
		}
		if t.As != "" {
			if _, ok := cfg.Accounts[t.As]; !ok {
				return nil, fmt.Errorf("target %s %s uses unknown account %q", t.Method, t.Path, t.As)
			}
		}
	}
	return &cfg, nil
}

func login(client *http.Client, base string, acc account) (string, error) {
	payload, err := json.Marshal(acc)
	if err != nil {
		return "", err
	}
	resp, _, err := do(client, http.MethodPost, base+"/auth/login", "", payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if envelope.Data.AccessToken == "" {
		return "", errors.New("login response carried no token")
	}
	return envelope.Data.AccessToken, nil
}

func run(client *http.Client, base string, tokens map[string]string, tgt target) result {
	res := result{Target: tgt}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	resp, dur, err := do(client, tgt.Method, strings.TrimRight(base, "/")+path, tokens[tgt.As], tgt.Body)
	res.Duration = dur
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	res.Status = resp.StatusCode
	return res
}

func do(client *http.Client, method, url, token string, body []byte) (*http.Response, time.Duration, error) {
	if client == nil {
		return nil, 0, errors.New("nil client")
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, 0, err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	return resp, time.Since(start), nil
}

func printReport(results []result) {
	fmt.Println("Smoke Check Report")
	fmt.Println("==================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.ok() {
			status = "FAIL"
		}
		who := res.Target.As
		if who == "" {
			who = "anonymous"
		}
		fmt.Printf("[%s] %s %s as %s\n", status, res.Target.Method, res.Target.Path, who)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Status: %d, expected %d (%s) | Critical: %t\n", res.Status, res.Target.Expect, res.Duration, res.Target.Critical)
	}
}
