package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const sampleMessage = "210*****82 dansand 2,000.00 dungeer orlogiin guilgee hiigdlee. Ognoo: 2026-01-07, Utga: ORD-A7X9 Uldegdel: 183,055.09"

type smsPayload struct {
	From       string    `json:"from"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

func main() {
	url := flag.String("url", "http://localhost:8080/webhooks/sms", "Webhook URL")
	key := flag.String("key", os.Getenv("SMS_WEBHOOK_KEY"), "API key (plaintext)")
	from := flag.String("from", "5765", "Sender id / short code")
	message := flag.String("message", sampleMessage, "SMS body")
	dryRun := flag.Bool("dry-run", false, "Only print the payload, don't send")

	flag.Parse()

	if *key == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: key not provided and SMS_WEBHOOK_KEY not set\n")
		os.Exit(1)
	}

	payload := smsPayload{
		From:       *from,
		Message:    *message,
		ReceivedAt: time.Now(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *url)
	req, err := http.NewRequest("POST", *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", *key)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %s\nResponse: %s\n", resp.Status, string(respBody))
}
