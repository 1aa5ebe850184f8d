package main

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// ---- Check Command ----

func (c *CLI) checkCommand(args []string) error {
	pos := positionalArgs(args)
	if len(pos) != 3 {
		return fmt.Errorf("usage: seal-cli check <subject> <permission> <object>")
	}
	subject, permission, object := pos[0], pos[1], pos[2]

	query := url.Values{}
	query.Set("subject", subject)
	query.Set("permission", permission)
	query.Set("object", object)

	resp, err := c.get("/api/v1/check?" + query.Encode())
	if err != nil {
		return err
	}

	var result struct {
		Allowed       bool     `json:"allowed"`
		DepthExceeded bool     `json:"depth_exceeded"`
		Trace         []string `json:"trace,omitempty"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}

	verdict := "DENIED"
	if result.Allowed {
		verdict = "ALLOWED"
	}
	fmt.Printf("%s: %s %s %s\n", verdict, subject, permission, object)
	if result.DepthExceeded {
		fmt.Println("warning: evaluation depth exceeded, result may be incomplete")
	}

	opts := parseArgs(args)
	if _, trace := opts["trace"]; trace {
		for _, step := range result.Trace {
			fmt.Println("  " + step)
		}
	}
	return nil
}
