// Package main provides a load test for the live message streams.
//
// Two accounts open a chat. Each client holds a message stream over its own
// websocket ticket while the accounts take turns posting through the REST API,
// so every post fans out a fresh snapshot to all clients.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Metrics tracks the test results
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	MessagesSent         int64
	SnapshotsReceived    int64
	ErrorFrames          int64
	Errors               int64
}

var metrics Metrics

var httpClient = &http.Client{Timeout: 5 * time.Second}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

type frame struct {
	Type    string            `json:"type"`
	Payload []json.RawMessage `json:"payload"`
	Error   string            `json:"error"`
}

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	emailA := flag.String("email-a", "ada@example.com", "First account email")
	emailB := flag.String("email-b", "grace@example.com", "Second account email")
	password := flag.String("password", "password123", "Password for both accounts")
	clients := flag.Int("clients", 50, "Number of concurrent stream clients")
	interval := flag.Duration("interval", time.Second, "Delay between posted messages")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	flag.Parse()

	log.Printf("Starting live stream load test")
	log.Printf("Target: %s", *host)
	log.Printf("Clients: %d", *clients)
	log.Printf("Duration: %v", *duration)

	a, err := login(*host, *emailA, *password)
	if err != nil {
		log.Fatalf("Login %s failed: %v", *emailA, err)
	}
	b, err := login(*host, *emailB, *password)
	if err != nil {
		log.Fatalf("Login %s failed: %v", *emailB, err)
	}
	chatID, err := openChat(*host, a.Token, b.User.ID)
	if err != nil {
		log.Fatalf("Open chat failed: %v", err)
	}
	log.Printf("Chat %s between %s and %s", chatID, a.User.Username, b.User.Username)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stopChan := make(chan struct{})

	for i := 0; i < *clients; i++ {
		token := a.Token
		if i%2 == 1 {
			token = b.Token
		}
		wg.Add(1)
		go runClient(*host, token, chatID, stopChan, &wg)
		time.Sleep(20 * time.Millisecond) // Stagger connections to spread ticket issuance
	}

	wg.Add(1)
	go runSender(*host, chatID, []string{a.Token, b.Token}, *interval, stopChan, &wg)

	select {
	case <-time.After(*duration):
		log.Println("Test duration reached")
	case <-interrupt:
		log.Println("Interrupted by user")
	}

	close(stopChan)
	log.Println("Waiting for clients to disconnect...")
	wg.Wait()

	printMetrics()
}

func postJSON(host, path, token string, payload any, out any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("http://%s%s", host, path), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s failed with status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func login(host, email, password string) (*session, error) {
	var s session
	err := postJSON(host, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func openChat(host, token, otherID string) (string, error) {
	var chat struct {
		ID string `json:"id"`
	}
	if err := postJSON(host, "/api/chats", token, map[string]string{"user_id": otherID}, &chat); err != nil {
		return "", err
	}
	return chat.ID, nil
}

func getTicket(host, token string) (string, error) {
	var result struct {
		Ticket string `json:"ticket"`
	}
	if err := postJSON(host, "/api/auth/ws-ticket", token, nil, &result); err != nil {
		return "", err
	}
	return result.Ticket, nil
}

func runClient(host, token, chatID string, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	ticket, err := getTicket(host, token)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}

	u := url.URL{
		Scheme:   "ws",
		Host:     host,
		Path:     "/api/ws/chats/" + chatID + "/messages",
		RawQuery: "ticket=" + url.QueryEscape(ticket),
	}

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	defer func() { _ = c.Close() }()

	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	go func() {
		for {
			var f frame
			if err := c.ReadJSON(&f); err != nil {
				return
			}
			if f.Type == "error" {
				atomic.AddInt64(&metrics.ErrorFrames, 1)
				continue
			}
			atomic.AddInt64(&metrics.SnapshotsReceived, 1)
		}
	}()

	<-stopChan
	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func runSender(host, chatID string, tokens []string, interval time.Duration, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; ; n++ {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			msg := map[string]string{"text": fmt.Sprintf("Load test message %d", n)}
			if err := postJSON(host, "/api/chats/"+chatID+"/messages", tokens[n%len(tokens)], msg, nil); err != nil {
				atomic.AddInt64(&metrics.Errors, 1)
				continue
			}
			atomic.AddInt64(&metrics.MessagesSent, 1)
		}
	}
}

func printMetrics() {
	log.Println("Test Results")
	log.Println("============")
	log.Printf("Connections Attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections Successful: %d", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	log.Printf("Connections Failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Messages Sent: %d", atomic.LoadInt64(&metrics.MessagesSent))
	log.Printf("Snapshots Received: %d", atomic.LoadInt64(&metrics.SnapshotsReceived))
	log.Printf("Error Frames: %d", atomic.LoadInt64(&metrics.ErrorFrames))
	log.Printf("Total Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
