package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"snapvalue-be/pkg/events"
	pktNats "snapvalue-be/pkg/nats"

	"github.com/fatih/color"
)

const (
	baseURL       = "http://localhost:3000/api"
	natsURL       = "nats://localhost:4222"
	sessionHeader = "X-Capture-Session"
)

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, sessionID string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}

	client := &http.Client{} // No timeout; the submit poll has its own
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func dataField(body []byte) map[string]interface{} {
	var envelope map[string]interface{}
	json.Unmarshal(body, &envelope)
	if data, ok := envelope["data"].(map[string]interface{}); ok {
		return data
	}
	return nil
}

func main() {
	color.Cyan("🚀 Starting Capture Agent Simulation\n")

	// 0. Tail the external event feed while we drive the API
	sub, err := pktNats.NewSubscriber(natsURL)
	if err != nil {
		color.Red("[SKIP] NATS tail unavailable: %v", err)
	} else {
		defer sub.Close()
		err := sub.Subscribe("events.>", "simulate-tail", func(ctx context.Context, event events.Event) error {
			color.Magenta("  [EVENT] %s %v", event.EventType(), event.Payload())
			return nil
		})
		if err != nil {
			color.Red("[SKIP] NATS subscribe failed: %v", err)
		}
	}

	// 1. Create a capture session
	color.Yellow("\n[SESSION] 1. Create Capture Session")
	resp, body, err := sendRequest("POST", "/session/v1", "", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var sessionID string
	if data := dataField(body); data != nil {
		if id, ok := data["id"].(string); ok {
			sessionID = id
			fmt.Printf("Created Session ID: %s\n", sessionID)
		}
	}
	if sessionID == "" {
		color.Red("No session ID returned, aborting")
		os.Exit(1)
	}

	// 2. Activate the camera
	color.Yellow("\n[CAMERA] 2. Activate Stream")
	resp, body, err = sendRequest("PUT", "/camera/v1/active", "", map[string]interface{}{"active": true})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(dataField(body))

	// 3. Enumerate devices and capabilities
	color.Yellow("\n[CAMERA] 3. Devices & Capabilities")
	_, body, err = sendRequest("GET", "/camera/v1/devices", "", nil)
	if err == nil {
		var envelope map[string]interface{}
		json.Unmarshal(body, &envelope)
		prettyPrint(envelope["data"])
	}
	_, body, err = sendRequest("GET", "/camera/v1/capabilities", "", nil)
	if err == nil {
		prettyPrint(dataField(body))
	}

	// 4. Capture a few photos into the batch
	color.Yellow("\n[BATCH] 4. Capture Photos")
	for i := 0; i < 3; i++ {
		resp, body, err = sendRequest("POST", "/camera/v1/capture", sessionID, nil)
		if err != nil {
			color.Red("Capture %d failed: %v", i+1, err)
			continue
		}
		color.Green("Capture %d: %s", i+1, resp.Status)
		if data := dataField(body); data != nil {
			fmt.Printf("  item=%v stored_bytes=%v\n", data["id"], data["stored_bytes"])
		}
		time.Sleep(200 * time.Millisecond) // let a fresh frame land
	}

	// 5. Review the batch
	color.Yellow("\n[BATCH] 5. List Items")
	_, body, _ = sendRequest("GET", "/batch/v1/items", sessionID, nil)
	prettyPrint(dataField(body))

	// 6. Submit for valuation
	color.Yellow("\n[ANALYSIS] 6. Submit")
	submitReq := map[string]interface{}{
		"category_id": "electronics",
	}
	resp, body, err = sendRequest("POST", "/analysis/v1/submit", sessionID, submitReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(dataField(body))
	if resp.StatusCode != 200 {
		color.Red("Submit rejected, aborting")
		os.Exit(1)
	}

	// 7. Poll progress until the run reaches a terminal state
	color.Yellow("\n[ANALYSIS] 7. Poll Progress")
	deadline := time.Now().Add(3 * time.Minute)
	terminal := map[string]bool{"complete": true, "cancelled": true, "errored": true}
	for time.Now().Before(deadline) {
		_, body, err = sendRequest("GET", "/analysis/v1/progress", sessionID, nil)
		if err != nil {
			color.Red("Progress poll failed: %v", err)
			break
		}
		data := dataField(body)
		if data == nil {
			break
		}
		state, _ := data["state"].(string)
		if snap, ok := data["snapshot"].(map[string]interface{}); ok {
			fmt.Printf("  state=%-11s models=%v/%v stage=%v\n",
				state, snap["models_complete"], snap["models_total"], snap["stage"])
		}
		if terminal[state] {
			break
		}
		time.Sleep(2 * time.Second)
	}

	// 8. Fetch the consensus result
	color.Yellow("\n[ANALYSIS] 8. Result")
	resp, body, err = sendRequest("GET", "/analysis/v1/result", sessionID, nil)
	if err != nil {
		color.Red("Failed: %v", err)
	} else {
		color.Green("Status: %s", resp.Status)
		if data := dataField(body); data != nil {
			if result, ok := data["result"].(map[string]interface{}); ok {
				fmt.Printf("Decision: %v  Value: %v  Confidence: %v\n",
					result["decision"], result["estimated_value"], result["confidence"])
				if votes, ok := result["votes"].([]interface{}); ok {
					fmt.Printf("Votes: %d\n", len(votes))
				}
			} else {
				prettyPrint(data)
			}
		}
	}

	// 9. Cleanup
	color.Yellow("\n[SESSION] 9. Close Session")
	resp, _, err = sendRequest("DELETE", "/session/v1/"+sessionID, "", nil)
	if err != nil {
		color.Red("Failed: %v", err)
	} else {
		color.Green("Status: %s", resp.Status)
	}

	// Give the async event tail a moment to drain
	time.Sleep(1 * time.Second)
	color.Cyan("\n✅ Simulation Complete")
}
