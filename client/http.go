package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"StudentIntro/internal/program"
)

// APIError is a non-2xx response from the node. It unwraps to the program
// error named by Code, so errors.Is works across the wire.
type APIError struct {
	Status  int    // Status is the HTTP status code
	Code    uint32 // Code is the program error code, 0 if none
	Message string // Message is the node's error text
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("status %d, code %d: %s", e.Status, e.Code, e.Message)
	}

	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Unwrap returns the program sentinel for Code, or nil.
func (e *APIError) Unwrap() error {
	return program.FromCode(e.Code)
}

// submitTx sends transaction bytes to a node via POST /tx and decodes the result.
func submitTx(nodeAddr string, txBytes []byte, result any) error {
	resp, err := http.Post(
		"http://"+nodeAddr+"/tx",
		"application/octet-stream",
		bytes.NewReader(txBytes),
	)
	if err != nil {
		return fmt.Errorf("post tx:\n%w", err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// httpGet performs a GET request and decodes the JSON response.
func httpGet(url string, result any) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s:\n%w", url, readAPIError(resp))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// httpGetRaw performs a GET request and returns the body bytes.
func httpGetRaw(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s:\n%w", url, readAPIError(resp))
	}

	return io.ReadAll(resp.Body)
}

// readAPIError decodes an error body into an APIError.
func readAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
		Code  uint32 `json:"code"`
	}

	apiErr := &APIError{Status: resp.StatusCode}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}

	apiErr.Code = body.Code
	apiErr.Message = body.Error

	return apiErr
}
