// Package main provides a speech feedback plugin.
// It speaks coaching feedback aloud via the platform's speech synthesizer.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event    string `json:"event"`
	Text     string `json:"text"`
	Exercise string `json:"exercise,omitempty"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func main() {
	// Read request from stdin
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Text == "" {
		writeErrorResponse("text is required")
		return
	}

	if err := speak(req.Text); err != nil {
		writeErrorResponse(fmt.Sprintf("speech failed: %v", err))
		return
	}

	writeSuccessResponse()
}

// speak runs the platform speech synthesizer.
func speak(text string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		cmd = exec.Command("say", text)
	} else {
		cmd = exec.Command("espeak", text)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	resp := Response{
		Success: true,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
