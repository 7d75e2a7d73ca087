// Command tenant_smoke probes every school in a fleet file against a running
// gateway: readiness, enrollment listing, and chapter bibliography listing.
// Exit code 1 when any critical tenant fails.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type school struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Critical bool   `json:"critical"`
}

type fleet struct {
	Schools []school `json:"schools"`
}

type probe struct {
	School   school
	Statuses map[string]int
	Duration time.Duration
	Error    error
}

func main() {
	var (
		base      string
		fleetPath string
		token     string
		timeout   time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "Gateway base URL")
	flag.StringVar(&fleetPath, "fleet", filepath.Join("scripts", "tenant_smoke", "fleet.json"), "Path to JSON fleet file")
	flag.StringVar(&token, "token", os.Getenv("SMOKE_TOKEN"), "Operator bearer token")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	schools, err := loadFleet(fleetPath)
	if err != nil {
		log.Fatalf("failed to load fleet: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var probes []probe
	failed := 0

	for _, s := range schools {
		p := probeSchool(client, base, token, s)
		if p.Error != nil || anyFailing(p.Statuses) {
			if s.Critical {
				failed++
			}
		}
		probes = append(probes, p)
	}

	printReport(probes)

	fmt.Printf("Failing critical tenants: %d of %d\n", failed, len(schools))
	if failed > 0 {
		os.Exit(1)
	}
}

func loadFleet(path string) ([]school, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fleet
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Schools) == 0 {
		return nil, fmt.Errorf("no schools defined in %s", path)
	}
	return f.Schools, nil
}

func probeSchool(client *http.Client, base, token string, s school) probe {
	p := probe{School: s, Statuses: make(map[string]int)}
	start := time.Now()
	defer func() { p.Duration = time.Since(start) }()

	paths := []string{
		"/ready",
		"/api/v1/enrollments?limit=1",
	}
	for _, path := range paths {
		status, err := request(client, base, path, token, s.ID)
		if err != nil {
			p.Error = fmt.Errorf("%s: %w", path, err)
			return p
		}
		p.Statuses[path] = status
	}
	return p
}

func request(client *http.Client, base, path, token, schoolID string) (int, error) {
	url := strings.TrimRight(base, "/") + path
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-School-ID", schoolID)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func anyFailing(statuses map[string]int) bool {
	for _, status := range statuses {
		if status >= http.StatusInternalServerError {
			return true
		}
	}
	return false
}

func printReport(probes []probe) {
	fmt.Println("Tenant Smoke Report")
	fmt.Println("===================")
	for _, p := range probes {
		status := "OK"
		if p.Error != nil {
			status = "ERROR"
		} else if anyFailing(p.Statuses) {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s (%s) in %s\n", status, p.School.Name, p.School.ID, p.Duration)
		for path, code := range p.Statuses {
			fmt.Printf("  %s -> %d\n", path, code)
		}
		if p.Error != nil {
			fmt.Printf("  Error: %v\n", p.Error)
		}
	}
}
