// Command seed loads professionals and schedule blocks into a running API.
//
//	go run ./cmd/seed testdata/seed-clinic.json
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/professionals"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/slots"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

// SeedFile lists professionals and the blocks to open for each of them.
type SeedFile struct {
	Professionals []professionals.Professional `json:"profesionales"`
	Blocks        []slots.ScheduleBlock        `json:"bloques"`
}

type summary struct {
	Professionals int
	Skipped       int
	Slots         int
}

func main() {
	logger := logging.New("info")
	if len(os.Args) < 2 {
		fmt.Println("Usage: seed <seed-file.json>")
		os.Exit(1)
	}
	apiURL := strings.TrimRight(os.Getenv("API_URL"), "/")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error("read seed file", "error", err)
		os.Exit(1)
	}
	var file SeedFile
	if err := json.Unmarshal(data, &file); err != nil {
		logger.Error("parse seed file", "error", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	res, err := seed(context.Background(), client, apiURL, file)
	if err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seed complete",
		"api_url", apiURL,
		"professionals", res.Professionals,
		"skipped", res.Skipped,
		"slots", res.Slots,
	)
}

func seed(ctx context.Context, client *http.Client, apiURL string, file SeedFile) (summary, error) {
	var out summary
	for _, p := range file.Professionals {
		status, body, err := post(ctx, client, apiURL+"/api/v1/profesionales", p)
		if err != nil {
			return out, err
		}
		switch {
		case status == http.StatusConflict:
			out.Skipped++
		case status >= 300:
			return out, fmt.Errorf("create professional %s: status %d: %s", p.ID, status, body)
		default:
			out.Professionals++
		}
	}
	for _, b := range file.Blocks {
		status, body, err := post(ctx, client, apiURL+"/api/v1/bloques", b)
		if err != nil {
			return out, err
		}
		if status >= 300 {
			return out, fmt.Errorf("create block for %s on %s: status %d: %s", b.ProfessionalID, b.Date, status, body)
		}
		var created struct {
			Slots []slots.Slot `json:"horarios"`
		}
		if err := json.Unmarshal(body, &created); err != nil {
			return out, fmt.Errorf("decode block response: %w", err)
		}
		out.Slots += len(created.Slots)
	}
	return out, nil
}

func post(ctx context.Context, client *http.Client, url string, payload any) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
