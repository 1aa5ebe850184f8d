package main

import "fmt"

// ---- Health Command ----

func (c *CLI) healthCommand(args []string) error {
	path := "/health"
	if len(args) > 0 {
		switch args[0] {
		case "live":
			path = "/healthz"
		case "ready":
			path = "/ready"
		case "full":
			path = "/health"
		default:
			return fmt.Errorf("unknown health subcommand: %s", args[0])
		}
	}

	resp, err := c.get(path)
	if err != nil {
		return err
	}
	return prettyPrint(resp)
}
