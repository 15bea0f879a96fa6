package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/codingconcepts/env"
	"github.com/joho/godotenv"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/control"
	"github.com/sansad-av/talktime/internal/timecodec"
)

type Config struct {
	ServerURL string `env:"SERVER_URL" default:"http://localhost:5000"`
	StepDelay int    `env:"SIMULATE_STEP_DELAY_MS" default:"2000"`
}

// step is one operator action in a scripted session
type step struct {
	label  string
	method string
	path   string
	body   interface{}
}

func main() {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Fatalf("error loading .env file: %v", err)
	}
	config := Config{}
	if err := env.Set(&config); err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	if len(os.Args) <= 1 {
		log.Fatalf("Usage: simulate [zero-hour|member-speaking|birthday]")
	}
	steps, ok := scenarios()[os.Args[1]]
	if !ok {
		log.Fatalf("unknown scenario '%s'", os.Args[1])
	}

	baseURL := strings.TrimSuffix(config.ServerURL, "/")
	delay := time.Duration(config.StepDelay) * time.Millisecond
	client := &http.Client{Timeout: 10 * time.Second}
	for i, s := range steps {
		if i > 0 {
			time.Sleep(delay)
		}
		fmt.Printf("[%d/%d] %s\n", i+1, len(steps), s.label)
		if err := run(client, baseURL, s); err != nil {
			log.Fatalf("step '%s' failed: %v", s.label, err)
		}
	}

	state, err := getState(client, baseURL)
	if err != nil {
		log.Fatalf("error getting final state: %v", err)
	}
	fmt.Printf("Done. Now showing %s (%s elapsed).\n", state.State.Mode, state.Elapsed)
}

func run(client *http.Client, baseURL string, s step) error {
	var body io.Reader
	if s.body != nil {
		data, err := json.Marshal(s.body)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(s.method, baseURL+s.path, body)
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		message, _ := io.ReadAll(res.Body)
		return fmt.Errorf("got status %d: %s", res.StatusCode, strings.TrimSpace(string(message)))
	}
	return nil
}

func getState(client *http.Client, baseURL string) (*control.StateResponse, error) {
	res, err := client.Get(baseURL + "/api/control/state")
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("got status %d", res.StatusCode)
	}
	var state control.StateResponse
	if err := json.NewDecoder(res.Body).Decode(&state); err != nil {
		return nil, err
	}
	return &state, nil
}

func scenarios() map[string][]step {
	member := &broadcast.Member{
		SeatNo: "101",
		Name:   "Smt. Priya Sharma",
		Party:  "INC",
		State:  "Rajasthan",
	}
	chair := step{"Set chairperson", http.MethodPost, "/api/control/chairperson", map[string]string{
		"name":     "Shri Harivansh",
		"position": "Deputy Chairman",
	}}
	window := step{"Open display window", http.MethodPost, "/api/control/window", nil}
	end := step{"End broadcast", http.MethodPost, "/api/control/end", nil}
	paused := true
	resumed := false
	durationMinutes := 3

	return map[string][]step{
		"zero-hour": {
			window,
			chair,
			{"Start Zero Hour", http.MethodPost, "/api/control/start", control.StartRequest{
				Mode:          broadcast.ModeZeroHour,
				Payload:       mustMarshal(&broadcast.ZeroHourPayload{Member: member, TimerDurationMinutes: durationMinutes}),
				TimerDuration: &durationMinutes,
			}},
			{"Pause timer", http.MethodPost, "/api/control/pause", map[string]*bool{"paused": &paused}},
			{"Resume timer", http.MethodPost, "/api/control/pause", map[string]*bool{"paused": &resumed}},
			{"Jump timer to 2:50", http.MethodPost, "/api/control/timer", timecodec.TimeValue{Minutes: 2, Seconds: 50}},
			end,
		},
		"member-speaking": {
			window,
			chair,
			{"Start Member Speaking", http.MethodPost, "/api/control/start", control.StartRequest{
				Mode:        broadcast.ModeMemberSpeaking,
				Payload:     mustMarshal(&broadcast.MemberSpeakingPayload{Member: member}),
				InitialTime: &timecodec.TimeValue{Minutes: 1},
			}},
			{"Change heading", http.MethodPatch, "/api/control/data", map[string]string{
				"customHeading": "Special Mention",
			}},
			end,
		},
		"birthday": {
			window,
			{"Start Birthday", http.MethodPost, "/api/control/start", control.StartRequest{
				Mode: broadcast.ModeBirthday,
				Payload: mustMarshal(&broadcast.MessagePayload{
					Entries: []broadcast.MessageEntry{
						{ID: "1", NameEnglish: "Shri A. Kumar", NameHindi: "श्री ए. कुमार", BirthDate: "1960-03-06"},
						{ID: "2", NameEnglish: "Smt. B. Devi", NameHindi: "श्रीमती बी. देवी", BirthDate: "1972-03-06"},
					},
				}),
			}},
			{"Next entry", http.MethodPost, "/api/control/message/next", nil},
			{"Next entry (wraps)", http.MethodPost, "/api/control/message/next", nil},
			end,
		},
	}
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Fatalf("error encoding payload: %v", err)
	}
	return data
}
