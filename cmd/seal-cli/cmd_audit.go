package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
)

// ---- Audit Command ----

func (c *CLI) auditCommand(args []string) error {
	opts := parseArgs(args)
	query := buildQuery(opts, "type", "subject", "status")

	resp, err := c.get("/api/v1/audit-events" + query)
	if err != nil {
		return err
	}

	var events []struct {
		Type      string `json:"type"`
		Subject   string `json:"subject"`
		Action    string `json:"action"`
		Resource  string `json:"resource"`
		Status    string `json:"status"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(resp, &events); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tSUBJECT\tACTION\tRESOURCE\tSTATUS")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt, e.Type, e.Subject, e.Action, e.Resource, e.Status)
	}
	w.Flush()
	return nil
}
