package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// ReplaceHubs stores freshly selected hubs. With truncate every existing hub
// is removed first; otherwise only the hubs of the given regions are.
func (db *DB) ReplaceHubs(ctx context.Context, regionIDs []string, hubs []models.Hub, truncate bool) error {
	err := db.inTx(ctx, "hubs", func(tx *sql.Tx) error {
		if truncate {
			if _, err := tx.ExecContext(ctx, "DELETE FROM transit_hubs"); err != nil {
				return fmt.Errorf("failed to truncate hubs: %w", err)
			}
		} else {
			for _, region := range regionIDs {
				if _, err := tx.ExecContext(ctx, "DELETE FROM transit_hubs WHERE region_id = ?", region); err != nil {
					return fmt.Errorf("failed to clear hubs of region %s: %w", region, err)
				}
			}
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO transit_hubs (hub_id, region_id, stop_id, rank, score, curated, metrics)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare hub insert: %w", err)
		}
		defer stmt.Close()

		for _, h := range hubs {
			metrics, err := json.Marshal(h.Metrics)
			if err != nil {
				return fmt.Errorf("failed to encode metrics of hub %s: %w", h.StopID, err)
			}
			curated := 0
			if h.Curated {
				curated = 1
			}
			if _, err := stmt.ExecContext(ctx,
				h.ID, h.RegionID, string(h.StopID), h.Rank, h.Score, curated, string(metrics),
			); err != nil {
				return fmt.Errorf("failed to insert hub %s/%s: %w", h.RegionID, h.StopID, err)
			}
		}

		_, err = recordBuild(ctx, tx, BuildHubs)
		return err
	})
	if err != nil {
		return err
	}

	log.Printf("Hubs: stored %d hubs across %d regions", len(hubs), len(regionIDs))
	return nil
}

// LoadHubs returns every hub ordered by region and rank
func (db *DB) LoadHubs(ctx context.Context) ([]models.Hub, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT hub_id, region_id, stop_id, rank, score, curated, metrics
		FROM transit_hubs ORDER BY region_id, rank
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query hubs: %w", err)
	}
	defer rows.Close()

	var hubs []models.Hub
	for rows.Next() {
		var h models.Hub
		var curated int
		var metrics string
		if err := rows.Scan(&h.ID, &h.RegionID, &h.StopID, &h.Rank, &h.Score, &curated, &metrics); err != nil {
			return nil, fmt.Errorf("failed to scan hub: %w", err)
		}
		h.Curated = curated == 1
		if err := json.Unmarshal([]byte(metrics), &h.Metrics); err != nil {
			log.Printf("Warning: unreadable metrics for hub %s: %v", h.ID, err)
		}
		hubs = append(hubs, h)
	}
	return hubs, rows.Err()
}

// HubStopIDs returns the set of stops that are a hub in any region
func (db *DB) HubStopIDs(ctx context.Context) (map[models.StopID]struct{}, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT DISTINCT stop_id FROM transit_hubs")
	if err != nil {
		return nil, fmt.Errorf("failed to query hub stops: %w", err)
	}
	defer rows.Close()

	out := make(map[models.StopID]struct{})
	for rows.Next() {
		var id models.StopID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan hub stop: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}
