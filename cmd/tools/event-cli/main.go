package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/annel0/voxelmesh/internal/eventbus"
	"github.com/annel0/voxelmesh/internal/storage"
	"github.com/gorilla/websocket"
)

const (
	defaultServerAddr = "localhost:8088"
	timeFormat        = "15:04:05"
)

func main() {
	var (
		serverAddr = flag.String("server", defaultServerAddr, "REST API server address")
		command    = flag.String("cmd", "tail", "Command: tail, stats, index")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		limit      = flag.Int("limit", 0, "Maximum number of events (0 = unlimited)")
	)
	flag.Parse()

	switch *command {
	case "tail":
		if err := tailEvents(*serverAddr, parseStringList(*eventTypes), *limit); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "stats":
		if err := showStats(*serverAddr); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}

	case "index":
		if err := showIndex(*serverAddr); err != nil {
			log.Fatalf("❌ Index failed: %v", err)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats, index")
		os.Exit(1)
	}
}

// apiResponse повторяет GenericResponse сервера
type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// tailEvents выводит события шины в реальном времени через /ws/events
func tailEvents(addr string, types []string, limit int) error {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws/events"}
	if len(types) > 0 {
		u.RawQuery = url.Values{"types": {strings.Join(types, ",")}}.Encode()
	}
	fmt.Printf("🎬 Tailing events from %s (limit: %d)\n", u.String(), limit)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	eventCount := 0
	for limit <= 0 || eventCount < limit {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			if eventCount > 0 {
				break
			}
			return fmt.Errorf("stream error: %w", err)
		}

		var env eventbus.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			fmt.Printf("⚠️ bad event: %v\n", err)
			continue
		}
		printEvent(&env)
		eventCount++
	}

	fmt.Printf("\n📊 Total events: %d\n", eventCount)
	return nil
}

// showStats выводит статистику сервера
func showStats(addr string) error {
	fmt.Println("📊 Server statistics")

	var stats struct {
		Chunks   int                    `json:"chunks"`
		EventBus *eventbus.Stats        `json:"eventbus"`
		Cache    map[string]interface{} `json:"cache"`
	}
	if err := getJSON(addr, "/api/stats", &stats); err != nil {
		return err
	}

	fmt.Printf("Chunks: %d\n", stats.Chunks)
	if stats.EventBus != nil {
		fmt.Printf("Event bus: published=%d dropped=%d\n", stats.EventBus.Published, stats.EventBus.Dropped)
	}
	if stats.Cache != nil {
		fmt.Printf("Cache: backend=%v hits=%v misses=%v hit_ratio=%v\n",
			stats.Cache["backend"], stats.Cache["cache_hits"], stats.Cache["cache_misses"], stats.Cache["hit_ratio"])
	}
	return nil
}

// showIndex выводит индекс собранных сеток
func showIndex(addr string) error {
	fmt.Println("📋 Mesh index")

	var records []storage.MeshRecord
	if err := getJSON(addr, "/api/index", &records); err != nil {
		return err
	}

	for _, rec := range records {
		fmt.Printf("%-12s quads=%-5d triangles=%-5d vertices=%-6d degenerate=%d  %s\n",
			rec.ChunkKey, rec.Quads, rec.Triangles, rec.Vertices, rec.Degenerate, shortDigest(rec.Digest))
	}
	fmt.Printf("\nTotal chunks: %d\n", len(records))
	return nil
}

func getJSON(addr, path string, out interface{}) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get("http://" + addr + path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if !body.Success {
		return fmt.Errorf("%s: %s", path, body.Message)
	}
	return json.Unmarshal(body.Data, out)
}

// printEvent выводит событие в читаемом формате
func printEvent(env *eventbus.Envelope) {
	fmt.Printf("[%s] %s [%s] %s\n",
		env.Timestamp.Local().Format(timeFormat),
		env.Source,
		env.EventType,
		env.ID)

	switch env.EventType {
	case eventbus.EventChunkMeshed:
		ev, err := eventbus.DecodeChunkMeshed(env)
		if err != nil {
			fmt.Printf("  ⚠️ %v\n", err)
			return
		}
		fmt.Printf("  Chunk: %s quads=%d triangles=%d cached=%v (%.2fms)\n",
			ev.Chunk, ev.Quads, ev.Triangles, ev.Cached, ev.DurationMS)
	case eventbus.EventChunkRemoved:
		fmt.Printf("  Chunk: %s removed\n", env.Metadata["chunk"])
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
