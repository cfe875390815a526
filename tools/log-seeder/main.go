// log-seeder generates synthetic traffic against a running collector:
// RFC 3164 syslog datagrams over UDP and JSON submissions over HTTP.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	syslogAddr = flag.String("syslog-addr", "localhost:514", "syslog UDP address")
	restURL    = flag.String("rest-url", "http://localhost:8080", "collector HTTP base URL")
	count      = flag.Int("count", 100, "number of records to generate")
	interval   = flag.Duration("interval", 100*time.Millisecond, "interval between records")
	jsonRatio  = flag.Float64("json-ratio", 0.5, "fraction of records sent as JSON (rest go as syslog)")
)

var levels = []string{"emergency", "alert", "critical", "error", "warning", "notice", "info", "debug"}

func main() {
	flag.Parse()

	gofakeit.Seed(time.Now().UnixNano())

	conn, err := net.Dial("udp", *syslogAddr)
	if err != nil {
		log.Fatalf("dial syslog: %v", err)
	}
	defer conn.Close()

	client := &http.Client{Timeout: 10 * time.Second}

	log.Printf("seeding %d records (syslog: %s, rest: %s)", *count, *syslogAddr, *restURL)

	sent := 0
	failed := 0
	for i := 0; i < *count; i++ {
		var err error
		if rand.Float64() < *jsonRatio {
			err = sendJSON(client)
		} else {
			err = sendSyslog(conn)
		}
		if err != nil {
			failed++
			log.Printf("send failed: %v", err)
		} else {
			sent++
		}

		if *interval > 0 && i < *count-1 {
			time.Sleep(*interval)
		}
	}

	log.Printf("done: %d sent, %d failed", sent, failed)
}

func sendSyslog(conn net.Conn) error {
	severity := rand.Intn(8)
	facility := rand.Intn(24)
	pri := facility*8 + severity

	line := fmt.Sprintf("<%d>%s %s %s[%d]: %s",
		pri,
		time.Now().Format("Jan _2 15:04:05"),
		gofakeit.DomainName(),
		gofakeit.AppName(),
		rand.Intn(65536),
		gofakeit.HackerPhrase(),
	)
	_, err := conn.Write([]byte(line))
	return err
}

func sendJSON(client *http.Client) error {
	body, err := json.Marshal(map[string]any{
		"message":   gofakeit.HackerPhrase(),
		"level":     levels[rand.Intn(len(levels))],
		"host":      gofakeit.DomainName(),
		"app_name":  gofakeit.AppName(),
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	resp, err := client.Post(*restURL+"/api/logs", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
