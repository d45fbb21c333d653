// interviewclient is a small manual test client for the realtime
// interview endpoint.
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

type clientFrame struct {
	Type  string `json:"type"`
	Audio string `json:"audio,omitempty"`
}

func main() {
	addr := flag.String("addr", "ws://localhost:8080", "server address")
	interviewID := flag.String("interview", "int-local-1", "interview id")
	flag.Parse()

	url := *addr + "/v1/interviews/" + *interviewID + "/realtime"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("Connected to %s", url)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var frame map[string]any
			if err := conn.ReadJSON(&frame); err != nil {
				log.Printf("read ended: %v", err)
				return
			}
			b, _ := json.Marshal(frame)
			log.Printf("<- %s", b)
		}
	}()

	// Send a few fake audio chunks followed by a commit.
	chunk := base64.StdEncoding.EncodeToString([]byte("fake-pcm16-audio"))
	for i := 0; i < 3; i++ {
		if err := conn.WriteJSON(clientFrame{Type: "audio_chunk", Audio: chunk}); err != nil {
			log.Fatalf("failed to send chunk: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err := conn.WriteJSON(clientFrame{Type: "audio_commit"}); err != nil {
		log.Fatalf("failed to send commit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(15 * time.Second):
		log.Println("closing after timeout")
	}
}
