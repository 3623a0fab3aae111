// Viewer is a read-only operator tool: it scans the broker's BadgerDB and
// prints stored messages, rooms and users as tables without touching the
// running broker.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

// Local copies of the stored shapes to keep the viewer independent from the
// repository internals.
type storedMessage struct {
	ID      string `json:"id"`
	Room    string `json:"room"`
	Author  string `json:"author"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Seq     uint64 `json:"seq"`
	At      int64  `json:"at"`
}

type storedRoom struct {
	ID           string   `json:"id"`
	Kind         string   `json:"kind"`
	Participants []string `json:"participants"`
	CreatedAt    int64    `json:"created_at"`
}

func main() {
	_ = godotenv.Load()
	dbPath := flag.String("db", os.Getenv("BADGER_FILEPATH"), "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg:, room:, user:)")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("No database path: set BADGER_FILEPATH or pass -db")
	}

	// BypassLockGuard allows opening while the broker holds the lock.
	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	color.Cyanln("Broker storage viewer (read-only)")

	switch *prefix {
	case "room:":
		err = printRooms(db)
	default:
		err = printMessages(db, *prefix)
	}
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}
}

func printMessages(db *badger.DB, prefix string) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Seq", "Room", "Time", "Author", "Kind", "Content"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	count := 0
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var m storedMessage
				if err := json.Unmarshal(v, &m); err != nil {
					// Skip rather than abort: a foreign key under the prefix
					// must not kill the whole scan.
					return nil
				}
				table.Append([]string{
					fmt.Sprintf("%d", m.Seq),
					shorten(m.Room),
					time.Unix(0, m.At).UTC().Format("15:04:05"),
					shorten(m.Author),
					m.Kind,
					m.Content,
				})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	table.Render()
	color.Greenf("%d messages\n", count)
	return nil
}

func printRooms(db *badger.DB) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Room", "Kind", "Participants", "Created"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte("room:")
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var r storedRoom
				if err := json.Unmarshal(v, &r); err != nil {
					return nil
				}
				table.Append([]string{
					shorten(r.ID),
					r.Kind,
					fmt.Sprintf("%v", r.Participants),
					time.Unix(r.CreatedAt, 0).UTC().Format(time.RFC822),
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func shorten(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
