package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"shopfront/internal/docstore"
)

// Color definitions for the interface.
var (
	colorOK     = color.New(color.FgGreen, color.Bold).SprintFunc()
	colorErr    = color.New(color.FgRed, color.Bold).SprintFunc()
	colorPrompt = color.New(color.FgMagenta).SprintFunc()
	colorInfo   = color.New(color.FgBlue).SprintFunc()
)

// printList renders a one-column table.
func printList(header string, values []string) {
	if len(values) == 0 {
		fmt.Println(colorInfo("(none)"))
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{header})
	for _, v := range values {
		table.Append([]string{v})
	}
	table.Render()
}

// printDocuments renders documents as a table with one column per field seen
// across the result set.
func printDocuments(docs []docstore.Document) {
	if len(docs) == 0 {
		fmt.Println(colorInfo("(no documents)"))
		return
	}

	headerSet := make(map[string]bool)
	for _, doc := range docs {
		for key := range doc {
			headerSet[key] = true
		}
	}
	headers := make([]string, 0, len(headerSet))
	for key := range headerSet {
		headers = append(headers, key)
	}
	sort.Strings(headers)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	for _, doc := range docs {
		row := make([]string, len(headers))
		for i, header := range headers {
			val, ok := doc[header]
			if !ok {
				row[i] = "(n/a)"
				continue
			}
			switch v := val.(type) {
			case docstore.ObjectID:
				row[i] = v.Hex()
			case map[string]any, []any, docstore.Document:
				raw, _ := json.MarshalIndent(v, "", "  ")
				row[i] = string(raw)
			case nil:
				row[i] = "(nil)"
			default:
				row[i] = fmt.Sprintf("%v", v)
			}
		}
		table.Append(row)
	}
	table.Render()
}

// clearScreen clears the terminal screen.
func clearScreen() {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "cls")
	default:
		cmd = exec.Command("clear")
	}
	cmd.Stdout = os.Stdout
	_ = cmd.Run()
}
