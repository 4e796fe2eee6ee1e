package main

import (
	"fmt"
	"strconv"
	"strings"

	"quire/internal/api"
)

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid record id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var queueListHeaders = []string{"ID", "Document", "Kind", "Status", "Priority", "Retries", "Created"}

var queueListAligns = []columnAlignment{
	alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft,
}

func buildQueueListRows(records []api.QueueRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		name := record.DisplayName
		if name == "" {
			name = record.DocumentID
		}
		rows = append(rows, []string{
			strconv.FormatInt(record.ID, 10),
			name,
			record.Kind,
			record.Status,
			strconv.Itoa(record.Priority),
			fmt.Sprintf("%d/%d", record.RetryCount, record.MaxRetries),
			record.CreatedAt,
		})
	}
	return rows
}

func buildQueueStatsRows(stats api.QueueStats) [][]string {
	entries := []struct {
		label string
		count int
	}{
		{"pending", stats.Pending},
		{"in_progress", stats.InProgress},
		{"retrying", stats.Retrying},
		{"completed", stats.Completed},
		{"failed", stats.Failed},
		{"cancelled", stats.Cancelled},
		{"skipped", stats.Skipped},
	}
	rows := make([][]string, 0, len(entries)+1)
	for _, entry := range entries {
		if entry.count == 0 {
			continue
		}
		rows = append(rows, []string{entry.label, strconv.Itoa(entry.count)})
	}
	if len(rows) > 0 {
		rows = append(rows, []string{"total", strconv.Itoa(stats.Total)})
	}
	return rows
}

func printQueueRecordDetail(record api.QueueRecord) string {
	var b strings.Builder
	write := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%-14s %s\n", label+":", value)
	}
	write("ID", strconv.FormatInt(record.ID, 10))
	write("Document", record.DocumentID)
	write("Name", record.DisplayName)
	write("Kind", record.Kind)
	write("Status", record.Status)
	write("Priority", strconv.Itoa(record.Priority))
	write("Retries", fmt.Sprintf("%d/%d", record.RetryCount, record.MaxRetries))
	write("Processor", record.ProcessorID)
	write("Error", record.ErrorMessage)
	write("Details", record.ErrorDetails)
	write("Result", record.ResultData)
	write("Created", record.CreatedAt)
	write("Updated", record.UpdatedAt)
	write("Started", record.StartedAt)
	write("Completed", record.CompletedAt)
	write("Next retry", record.NextRetryAt)
	return b.String()
}
