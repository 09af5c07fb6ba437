package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"sim-bridge-go/internal/output"
)

func main() {
	var (
		path  = flag.String("path", "", "Path to a raw telemetry log")
		limit = flag.Int("limit", 0, "Number of records to dump (0: all)")
	)
	flag.Parse()

	if *path == "" {
		log.Fatal("path is required")
	}

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("open raw log: %v", err)
	}
	defer f.Close()

	records, err := output.ReadRecords(f, *limit)
	if err != nil {
		log.Fatalf("read raw log: %v", err)
	}

	for i, record := range records {
		var payload any
		if len(record.Data) > 0 {
			if err := json.Unmarshal(record.Data, &payload); err != nil {
				log.Printf("record %d: payload is not JSON: %v", i, err)
			}
		}
		line, err := json.Marshal(map[string]any{
			"timestamp": record.Timestamp.Format(time.RFC3339Nano),
			"sid":       record.SID,
			"payload":   payload,
		})
		if err != nil {
			log.Printf("record %d: encode error: %v", i, err)
			continue
		}
		fmt.Println(string(line))
	}
}
