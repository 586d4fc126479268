// Package main provides the control CLI for the playback daemon.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
)

var (
	app    = kingpin.New("amplfrctl", "amplfr playback daemon control client")
	server = app.Flag("server", "Daemon address").Default("http://localhost:8080").String()

	statusCmd = app.Command("status", "Show player status")

	playCmd  = app.Command("play", "Start or toggle playback")
	pauseCmd = app.Command("pause", "Pause playback")
	stopCmd  = app.Command("stop", "Stop and rewind the current item")
	nextCmd  = app.Command("next", "Advance to the next item")
	prevCmd  = app.Command("prev", "Return to the previous item")

	seekCmd = app.Command("seek", "Seek within the current item")
	seekPos = seekCmd.Arg("position", "Target position (e.g. 1m30s)").Required().Duration()

	loopCmd = app.Command("loop", "Set the collection loop flag")
	loopOn  = loopCmd.Arg("state", "on or off").Required().Enum("on", "off")

	queueCmd = app.Command("queue", "List the queued items")

	addCmd  = app.Command("add", "Resolve and enqueue items")
	addRefs = addCmd.Arg("refs", "Item IDs or URLs").Required().Strings()
	addPos  = addCmd.Flag("pos", "Insert position (default: append)").Default("-1").Int()

	removeCmd = app.Command("remove", "Remove a queued item")
	removeID  = removeCmd.Arg("id", "Item ID").Required().String()

	shuffleCmd = app.Command("shuffle", "Shuffle the queue")
	sortCmd    = app.Command("sort", "Restore the pre-shuffle order")

	historyCmd = app.Command("history", "List previously played items")

	watchCmd = app.Command("watch", "Stream playback events")
)

type itemJSON struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Artists  []string `json:"artists"`
	Album    string   `json:"album"`
	Duration int64    `json:"duration_ms"`
}

type statusJSON struct {
	State      string    `json:"state"`
	Current    *itemJSON `json:"current"`
	PositionMs int64     `json:"position_ms"`
	DurationMs int64     `json:"duration_ms"`
	Loaded     float64   `json:"loaded"`
	Loop       bool      `json:"loop"`
	QueueLen   int       `json:"queue_len"`
	HistoryLen int       `json:"history_len"`
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case statusCmd.FullCommand():
		var st statusJSON
		get("/api/player", &st)
		printStatus(st)
	case playCmd.FullCommand():
		var st statusJSON
		post("/api/player/play", nil, &st)
		printStatus(st)
	case pauseCmd.FullCommand():
		var st statusJSON
		post("/api/player/pause", nil, &st)
		printStatus(st)
	case stopCmd.FullCommand():
		var st statusJSON
		post("/api/player/stop", nil, &st)
		printStatus(st)
	case nextCmd.FullCommand():
		var st statusJSON
		post("/api/player/next", nil, &st)
		printStatus(st)
	case prevCmd.FullCommand():
		var st statusJSON
		post("/api/player/previous", nil, &st)
		printStatus(st)
	case seekCmd.FullCommand():
		var st statusJSON
		post("/api/player/seek", map[string]any{
			"position_ms": seekPos.Milliseconds(),
			"precise":     true,
		}, &st)
		printStatus(st)
	case loopCmd.FullCommand():
		var st statusJSON
		post("/api/player/loop", map[string]any{"loop": *loopOn == "on"}, &st)
		printStatus(st)
	case queueCmd.FullCommand():
		listItems("/api/queue")
	case historyCmd.FullCommand():
		listItems("/api/history")
	case addCmd.FullCommand():
		var resp struct {
			Added []itemJSON `json:"added"`
		}
		post("/api/queue", map[string]any{"refs": *addRefs, "pos": *addPos}, &resp)
		fmt.Printf("Added %d of %d:\n", len(resp.Added), len(*addRefs))
		for _, it := range resp.Added {
			printItem(it)
		}
	case removeCmd.FullCommand():
		del("/api/queue/" + *removeID)
		fmt.Println("Removed.")
	case shuffleCmd.FullCommand():
		post("/api/queue/shuffle", nil, nil)
		listItems("/api/queue")
	case sortCmd.FullCommand():
		post("/api/queue/sort", nil, nil)
		listItems("/api/queue")
	case watchCmd.FullCommand():
		watch()
	}
}

func get(path string, into any) {
	resp, err := http.Get(*server + path)
	handle(resp, err, into)
}

func post(path string, body, into any) {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader([]byte("{}"))
	} else {
		data, err := json.Marshal(body)
		if err != nil {
			fail(err)
		}
		reader = bytes.NewReader(data)
	}
	resp, err := http.Post(*server+path, "application/json", reader)
	handle(resp, err, into)
}

func del(path string) {
	req, err := http.NewRequest(http.MethodDelete, *server+path, nil)
	if err != nil {
		fail(err)
	}
	resp, err := http.DefaultClient.Do(req)
	handle(resp, err, nil)
}

func handle(resp *http.Response, err error, into any) {
	if err != nil {
		fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		fail(fmt.Errorf("%s", apiErr.Error))
	}
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			fail(err)
		}
	}
}

func fail(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}

func listItems(path string) {
	var contents struct {
		Items []itemJSON `json:"items"`
	}
	get(path, &contents)
	if len(contents.Items) == 0 {
		fmt.Println("(empty)")
		return
	}
	for i, it := range contents.Items {
		fmt.Printf("%3d. ", i+1)
		printItem(it)
	}
}

func printItem(it itemJSON) {
	title := it.Title
	if title == "" {
		title = it.ID
	}
	line := title
	if len(it.Artists) > 0 {
		line = strings.Join(it.Artists, ", ") + " - " + title
	}
	if it.Duration > 0 {
		line += fmt.Sprintf(" [%s]", formatMs(it.Duration))
	}
	fmt.Println(line)
}

func printStatus(st statusJSON) {
	fmt.Printf("State:   %s\n", st.State)
	if st.Current != nil {
		fmt.Print("Current: ")
		printItem(*st.Current)
		fmt.Printf("At:      %s / %s (%.0f%% loaded)\n",
			formatMs(st.PositionMs), formatMs(st.DurationMs), st.Loaded*100)
	}
	fmt.Printf("Queue:   %d queued, %d played, loop=%v\n",
		st.QueueLen, st.HistoryLen, st.Loop)
}

func formatMs(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// watch streams server-sent events until interrupted.
func watch() {
	resp, err := http.Get(*server + "/api/events")
	if err != nil {
		fail(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fail(fmt.Errorf("unexpected status %s", resp.Status))
	}

	fmt.Println("Watching events. Press Ctrl+C to exit.")
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			fmt.Println(strings.TrimPrefix(line, "data: "))
		}
	}
	if err := scanner.Err(); err != nil {
		fail(err)
	}
}
