// Command shopctl is an operator console for inspecting and repairing a
// shopfront data directory. It opens the store files directly, so it is meant
// to run while the server is stopped.
package main

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/chzyer/readline"
	flag "github.com/spf13/pflag"
)

func main() {
	log.SetFlags(0)

	dataDir := flag.String("data", "data", "Path to the shopfront data directory")
	backupDir := flag.String("backups", "backups", "Path to the backup directory")
	flag.Parse()

	c, err := newCLI(*dataDir, *backupDir)
	if err != nil {
		log.Fatalf("Failed to open data directory %s: %v", *dataDir, err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          colorPrompt(c.database) + "> ",
		HistoryFile:     "/tmp/shopctl_history.tmp",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Fatalf("Failed to initialize readline: %v", err)
	}
	defer rl.Close()
	c.rl = rl

	fmt.Printf("shopctl connected to %s. Type 'help' for commands.\n", *dataDir)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		c.dispatch(input)
	}
	fmt.Println("Bye.")
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("use"),
	readline.PcItem("databases"),
	readline.PcItem("collections"),
	readline.PcItem("find"),
	readline.PcItem("findone"),
	readline.PcItem("count"),
	readline.PcItem("insert"),
	readline.PcItem("update"),
	readline.PcItem("delete"),
	readline.PcItem("deletemany"),
	readline.PcItem("backup"),
	readline.PcItem("clear"),
	readline.PcItem("help"),
	readline.PcItem("exit"),
)
