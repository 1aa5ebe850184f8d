package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
)

// ---- Tuple Commands ----

// tupleBody mirrors the server's wire shape for one relation tuple.
type tupleBody struct {
	Namespace  string          `json:"namespace"`
	Object     string          `json:"object"`
	Relation   string          `json:"relation"`
	SubjectID  string          `json:"subject_id,omitempty"`
	SubjectSet *subjectSetBody `json:"subject_set,omitempty"`
}

type subjectSetBody struct {
	Namespace string `json:"namespace"`
	Object    string `json:"object"`
	Relation  string `json:"relation"`
}

func (c *CLI) tupleCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: seal-cli tuple <subcommand>")
	}

	sub := args[0]
	args = args[1:]

	switch sub {
	case "list":
		return c.listTuples(args)
	case "create":
		return c.writeTuple(args)
	case "delete":
		return c.deleteTuple(args)
	case "reverse":
		if len(args) < 1 {
			return fmt.Errorf("usage: seal-cli tuple reverse <subject>")
		}
		return c.reverseTuples(args[0])
	default:
		return fmt.Errorf("unknown tuple subcommand: %s", sub)
	}
}

func (c *CLI) listTuples(args []string) error {
	opts := parseArgs(args)
	query := buildQuery(opts, "namespace", "object", "relation")

	resp, err := c.get("/api/v1/relation-tuples" + query)
	if err != nil {
		return err
	}

	var tuples []tupleBody
	if err := json.Unmarshal(resp, &tuples); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SUBJECT\tRELATION\tOBJECT")
	for _, t := range tuples {
		subject := t.SubjectID
		if t.SubjectSet != nil {
			subject = fmt.Sprintf("%s:%s#%s", t.SubjectSet.Namespace, t.SubjectSet.Object, t.SubjectSet.Relation)
		}
		fmt.Fprintf(w, "%s\t%s\t%s:%s\n", subject, t.Relation, t.Namespace, t.Object)
	}
	w.Flush()
	fmt.Printf("\nTotal: %d\n", len(tuples))
	return nil
}

func (c *CLI) writeTuple(args []string) error {
	body, err := tupleFromArgs(args)
	if err != nil {
		return err
	}
	resp, err := c.put("/api/v1/relation-tuples", []tupleBody{*body})
	if err != nil {
		return err
	}
	return prettyPrint(resp)
}

func (c *CLI) deleteTuple(args []string) error {
	body, err := tupleFromArgs(args)
	if err != nil {
		return err
	}
	return c.delete("/api/v1/relation-tuples", []tupleBody{*body})
}

func (c *CLI) reverseTuples(subject string) error {
	resp, err := c.get("/api/v1/relation-tuples/reverse?subject=" + subject)
	if err != nil {
		return err
	}
	return prettyPrint(resp)
}

// tupleFromArgs builds the wire tuple from "<subject> <relation> <object>".
// The subject may be "ns:id" or a subject set "ns:id#relation".
func tupleFromArgs(args []string) (*tupleBody, error) {
	pos := positionalArgs(args)
	if len(pos) != 3 {
		return nil, fmt.Errorf("usage: seal-cli tuple create|delete <subject> <relation> <object>")
	}
	subject, relation, object := pos[0], pos[1], pos[2]

	objectNS, objectID, ok := strings.Cut(object, ":")
	if !ok {
		return nil, fmt.Errorf("object %q must have the form namespace:id", object)
	}

	body := &tupleBody{
		Namespace: objectNS,
		Object:    objectID,
		Relation:  relation,
	}
	if base, setRelation, isSet := strings.Cut(subject, "#"); isSet {
		ns, id, ok := strings.Cut(base, ":")
		if !ok {
			return nil, fmt.Errorf("subject %q must have the form namespace:id#relation", subject)
		}
		body.SubjectSet = &subjectSetBody{Namespace: ns, Object: id, Relation: setRelation}
	} else {
		body.SubjectID = subject
	}
	return body, nil
}
