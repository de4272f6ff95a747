package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/chzyer/readline"
	jsoniter "github.com/json-iterator/go"

	"shopfront/internal/backup"
	"shopfront/internal/docstore"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type cli struct {
	db        *docstore.DB
	database  string
	backupDir string
	rl        *readline.Instance
}

func newCLI(dataDir, backupDir string) (*cli, error) {
	db, err := docstore.Open(dataDir)
	if err != nil {
		return nil, err
	}
	return &cli{db: db, database: "shop", backupDir: backupDir}, nil
}

// dispatch routes one input line to its command handler.
func (c *cli) dispatch(input string) {
	parts := strings.SplitN(input, " ", 2)
	cmd := parts[0]
	args := ""
	if len(parts) == 2 {
		args = strings.TrimSpace(parts[1])
	}

	var err error
	switch cmd {
	case "use":
		err = c.handleUse(args)
	case "databases":
		err = c.handleDatabases()
	case "collections":
		err = c.handleCollections()
	case "find":
		err = c.handleFind(args, false)
	case "findone":
		err = c.handleFind(args, true)
	case "count":
		err = c.handleCount(args)
	case "insert":
		err = c.handleInsert(args)
	case "update":
		err = c.handleUpdate(args)
	case "delete":
		err = c.handleDelete(args, false)
	case "deletemany":
		err = c.handleDelete(args, true)
	case "backup":
		err = c.handleBackup(args)
	case "clear":
		clearScreen()
	case "help":
		printHelp()
	default:
		err = fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
	if err != nil {
		fmt.Println(colorErr("Error:"), err)
	}
}

func (c *cli) handleUse(args string) error {
	if args == "" {
		return fmt.Errorf("usage: use <database>")
	}
	c.database = args
	c.rl.SetPrompt(colorPrompt(c.database) + "> ")
	fmt.Println(colorOK("Switched to database"), args)
	return nil
}

func (c *cli) handleDatabases() error {
	names, err := c.db.DatabaseNames()
	if err != nil {
		return err
	}
	printList("Database", names)
	return nil
}

func (c *cli) handleCollections() error {
	names, err := c.db.CollectionNames(c.database)
	if err != nil {
		return err
	}
	printList("Collection", names)
	return nil
}

// splitCollectionAndJSON peels the collection name off the front of args and
// decodes the trailing JSON values, if any.
func splitCollectionAndJSON(args string, want int) (string, []map[string]any, error) {
	parts := strings.SplitN(args, " ", 2)
	if parts[0] == "" {
		return "", nil, fmt.Errorf("collection name required")
	}
	rest := ""
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}

	var values []map[string]any
	decoder := json.NewDecoder(strings.NewReader(rest))
	for decoder.More() {
		var v map[string]any
		if err := decoder.Decode(&v); err != nil {
			return "", nil, fmt.Errorf("invalid JSON argument: %w", err)
		}
		values = append(values, v)
	}
	if len(values) > want {
		return "", nil, fmt.Errorf("expected at most %d JSON argument(s), got %d", want, len(values))
	}
	return parts[0], values, nil
}

func (c *cli) handleFind(args string, single bool) error {
	name, values, err := splitCollectionAndJSON(args, 1)
	if err != nil {
		return err
	}
	filter := map[string]any{}
	if len(values) == 1 {
		filter = values[0]
	}
	col := c.db.Collection(c.database, name)

	if single {
		doc, err := col.FindOne(filter)
		if err != nil {
			return err
		}
		printDocuments([]docstore.Document{doc})
		return nil
	}

	seq, err := col.FindMany(filter)
	if err != nil {
		return err
	}
	var docs []docstore.Document
	for doc := range seq {
		docs = append(docs, doc)
	}
	printDocuments(docs)
	fmt.Println(colorInfo(fmt.Sprintf("%d document(s)", len(docs))))
	return nil
}

func (c *cli) handleCount(args string) error {
	name, values, err := splitCollectionAndJSON(args, 1)
	if err != nil {
		return err
	}
	filter := map[string]any{}
	if len(values) == 1 {
		filter = values[0]
	}
	n, err := c.db.Collection(c.database, name).CountDocuments(filter)
	if err != nil {
		return err
	}
	fmt.Println(colorOK(fmt.Sprintf("%d document(s)", n)))
	return nil
}

func (c *cli) handleInsert(args string) error {
	name, values, err := splitCollectionAndJSON(args, 1)
	if err != nil {
		return err
	}
	if len(values) != 1 {
		return fmt.Errorf("usage: insert <collection> <document-json>")
	}
	id, err := c.db.Collection(c.database, name).InsertOne(docstore.Document(values[0]))
	if err != nil {
		return err
	}
	fmt.Println(colorOK("Inserted"), id.Hex())
	return nil
}

func (c *cli) handleUpdate(args string) error {
	name, values, err := splitCollectionAndJSON(args, 2)
	if err != nil {
		return err
	}
	if len(values) != 2 {
		return fmt.Errorf("usage: update <collection> <filter-json> <update-json>")
	}
	matched, err := c.db.Collection(c.database, name).UpdateOne(values[0], docstore.Document(values[1]))
	if err != nil {
		return err
	}
	fmt.Println(colorOK(fmt.Sprintf("%d document(s) updated", matched)))
	return nil
}

func (c *cli) handleDelete(args string, many bool) error {
	name, values, err := splitCollectionAndJSON(args, 1)
	if err != nil {
		return err
	}
	if len(values) != 1 {
		return fmt.Errorf("a filter is required; use {} to match everything")
	}
	col := c.db.Collection(c.database, name)

	var deleted int
	if many {
		deleted, err = col.DeleteMany(values[0])
	} else {
		deleted, err = col.DeleteOne(values[0])
	}
	if err != nil {
		return err
	}
	fmt.Println(colorOK(fmt.Sprintf("%d document(s) deleted", deleted)))
	return nil
}

func (c *cli) handleBackup(args string) error {
	dir := c.backupDir
	if args != "" {
		dir = args
	}
	m := backup.NewManager(c.db, dir, time.Hour, 0)
	if err := m.Perform(); err != nil {
		return err
	}
	fmt.Println(colorOK("Backup written under"), dir)
	return nil
}

func printHelp() {
	fmt.Println(`Available commands:
  use <database>                          Switch database (default "shop")
  databases                               List databases in the data directory
  collections                             List collections in the current database
  find <collection> [filter]              List documents matching a filter
  findone <collection> [filter]           Show the first matching document
  count <collection> [filter]             Count matching documents
  insert <collection> <document>          Insert a JSON document
  update <collection> <filter> <update>   Update the first match ($set/$unset or replacement)
  delete <collection> <filter>            Delete the first match
  deletemany <collection> <filter>        Delete every match
  backup [dir]                            Snapshot every collection
  clear                                   Clear the screen
  exit                                    Leave the console`)
}
