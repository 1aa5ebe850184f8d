package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// ---- Namespace Commands ----

func (c *CLI) namespaceCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: seal-cli namespace <subcommand>")
	}

	sub := args[0]
	args = args[1:]

	switch sub {
	case "show":
		return c.showNamespaces()
	case "load":
		return c.loadNamespaces(args)
	case "versions":
		return c.listVersions()
	case "activate":
		if len(args) < 1 {
			return fmt.Errorf("usage: seal-cli namespace activate <version>")
		}
		return c.activateVersion(args[0])
	default:
		return fmt.Errorf("unknown namespace subcommand: %s", sub)
	}
}

func (c *CLI) showNamespaces() error {
	resp, err := c.get("/api/v1/namespaces")
	if err != nil {
		return err
	}

	var body struct {
		Version string `json:"version"`
		Source  string `json:"source"`
	}
	if err := json.Unmarshal(resp, &body); err != nil {
		return err
	}
	fmt.Printf("Version: %s\n\n%s", body.Version, body.Source)
	return nil
}

// loadNamespaces posts rule source read from a file argument, or from
// stdin when no file is given.
func (c *CLI) loadNamespaces(args []string) error {
	pos := positionalArgs(args)

	var source []byte
	var err error
	if len(pos) > 0 && pos[0] != "-" {
		source, err = os.ReadFile(pos[0])
	} else {
		source, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return err
	}

	resp, err := c.post("/api/v1/namespaces", map[string]string{"source": string(source)})
	if err != nil {
		return err
	}
	return prettyPrint(resp)
}

func (c *CLI) listVersions() error {
	resp, err := c.get("/api/v1/namespaces/versions")
	if err != nil {
		return err
	}

	var versions []struct {
		Version   string `json:"version"`
		Active    bool   `json:"active"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(resp, &versions); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tACTIVE\tCREATED")
	for _, v := range versions {
		active := ""
		if v.Active {
			active = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", v.Version, active, v.CreatedAt)
	}
	w.Flush()
	return nil
}

func (c *CLI) activateVersion(version string) error {
	resp, err := c.post("/api/v1/namespaces/versions/"+version+"/activate", nil)
	if err != nil {
		return err
	}
	return prettyPrint(resp)
}
