package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// NotifyRebuild asks a running planner API at baseURL to drop its search
// index. Offline builders call it after committing a rebuild.
func NotifyRebuild(ctx context.Context, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := strings.TrimRight(baseURL, "/") + "/api/plan/invalidate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to notify planner: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("planner returned status: %s", resp.Status)
	}
	return nil
}
