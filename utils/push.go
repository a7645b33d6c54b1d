package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type expoPushMessage struct {
	To       string            `json:"to"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound"`
	Priority string            `json:"priority"`
}

type expoPushResponse struct {
	Data struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"data"`
}

var pushClient = &http.Client{Timeout: 10 * time.Second}

// SendExpoPush delivers one push message through an Expo-compatible
// endpoint. Callers treat failures as best-effort: log and move on.
func SendExpoPush(apiURL, token, title, body string, data map[string]string) error {
	msg := expoPushMessage{
		To:       token,
		Title:    title,
		Body:     body,
		Data:     data,
		Sound:    "default",
		Priority: "high",
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := pushClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push endpoint returned %d: %s", resp.StatusCode, string(raw))
	}

	var parsed expoPushResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Data.Status == "error" {
		return fmt.Errorf("push rejected: %s", parsed.Data.Message)
	}

	return nil
}
