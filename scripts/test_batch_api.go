package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const (
	baseURL       = "http://localhost:3000/api"
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

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func extractID(body []byte) string {
	var parsed map[string]interface{}
	json.Unmarshal(body, &parsed)
	if data, ok := parsed["data"].(map[string]interface{}); ok {
		if id, ok := data["id"].(string); ok {
			return id
		}
	}
	return ""
}

func main() {
	color.Cyan("🚀 Starting Batch Management API Test\n")

	// 1. Create a capture session with a small limit
	color.Yellow("\n[SESSION] 1. Create Capture Session (max 5 items)")
	resp, body, err := sendRequest("POST", "/session/v1", "", map[string]interface{}{"max_items": 5})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	sessionID := extractID(body)
	if sessionID == "" {
		color.Red("No session id in response")
		os.Exit(1)
	}
	fmt.Printf("Created Session ID: %s\n", sessionID)

	// 2. Upload two clips (videos skip the compressor, so any payload works)
	color.Yellow("\n[BATCH] 2. Upload Two Clips")
	var itemIDs []string
	for i := 1; i <= 2; i++ {
		uploadReq := map[string]interface{}{
			"kind":         "video",
			"display_name": fmt.Sprintf("Clip %d", i),
			"data":         "c21va2UgdGVzdCBjbGlw",
		}
		resp, body, err = sendRequest("POST", "/batch/v1/items", sessionID, uploadReq)
		if err != nil {
			color.Red("Failed: %v", err)
			os.Exit(1)
		}
		color.Green("Status: %s", resp.Status)
		if id := extractID(body); id != "" {
			itemIDs = append(itemIDs, id)
		}
	}
	if len(itemIDs) < 2 {
		color.Red("Expected 2 item ids, got %d", len(itemIDs))
		os.Exit(1)
	}

	// 3. Toggle the first clip out of the selection
	color.Yellow("\n[BATCH] 3. Toggle Selection On First Clip")
	resp, body, err = sendRequest("PUT", "/batch/v1/items/"+itemIDs[0]+"/selection", sessionID, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var toggleResp map[string]interface{}
	json.Unmarshal(body, &toggleResp)
	prettyPrint(toggleResp)

	// 4. Select everything again
	color.Yellow("\n[BATCH] 4. Select All")
	resp, body, err = sendRequest("PUT", "/batch/v1/selection", sessionID, map[string]interface{}{"all": true})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	// 5. Remove the second clip
	color.Yellow("\n[BATCH] 5. Remove Second Clip")
	resp, _, err = sendRequest("DELETE", "/batch/v1/items/"+itemIDs[1], sessionID, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	// 6. List what is left
	color.Yellow("\n[BATCH] 6. List Items")
	resp, body, err = sendRequest("GET", "/batch/v1/items", sessionID, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var listResp map[string]interface{}
	json.Unmarshal(body, &listResp)
	prettyPrint(listResp)

	// 7. Clear the batch
	color.Yellow("\n[BATCH] 7. Clear Batch")
	resp, _, err = sendRequest("DELETE", "/batch/v1/items", sessionID, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	// 8. Close the session
	color.Yellow("\n[SESSION] 8. Close Capture Session")
	resp, _, err = sendRequest("DELETE", "/session/v1/"+sessionID, "", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	color.Cyan("\n✅ Batch API Test Complete")
}
