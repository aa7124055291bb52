//go:build integration

package api_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
)

type slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type column struct {
	Weekday int    `json:"weekday"`
	Status  string `json:"status"`
	Open    bool   `json:"open"`
	Slots   []slot `json:"slots"`
	Sync    string `json:"sync"`
}

type schedulePayload struct {
	Columns []column `json:"columns"`
	Results []struct {
		Weekday   int    `json:"weekday"`
		Operation string `json:"operation"`
		Error     string `json:"error"`
	} `json:"results"`
}

func schedulePath(kind string, owner uuid.UUID) string {
	return fmt.Sprintf("/schedules/%s/%s", kind, owner)
}

// decodeSchedule fails the test unless resp carries a schedule.
func decodeSchedule(t *testing.T, resp TestResponse) schedulePayload {
	t.Helper()
	if !resp.IsSuccess() {
		t.Fatalf("request failed: HTTP %d %s", resp.Code, resp.Message)
	}
	var p schedulePayload
	if err := resp.Decode(&p); err != nil {
		t.Fatalf("failed to decode schedule: %v", err)
	}
	return p
}
