package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TestContext carries one scenario's identity, last response and saved
// values. It talks to a running server over HTTP.
type TestContext struct {
	BaseURL    string
	AdminToken string

	client     *http.Client
	signingKey []byte
	issuer     string
	audience   string

	accessToken  string
	lastStatus   int
	lastBody     []byte
	lastResponse map[string]any
	saved        map[string]string
}

func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:    env("GUARDIAN_BASE_URL", "http://localhost:8080"),
		AdminToken: os.Getenv("GUARDIAN_ADMIN_TOKEN"),
		client:     &http.Client{Timeout: 10 * time.Second},
		signingKey: []byte(env("JWT_SIGNING_KEY", "dev-secret-key-change-in-production")),
		issuer:     env("JWT_ISSUER", "guardian"),
		audience:   env("JWT_AUDIENCE", "guardian-api"),
		saved:      map[string]string{},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.accessToken = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastResponse = nil
	tc.saved = map[string]string{}
}

// AuthenticateAsParent mints a parent token for a fresh parent id.
func (tc *TestContext) AuthenticateAsParent() error {
	return tc.mint(map[string]any{"kind": "parent", "parent_id": uuid.NewString()})
}

// AuthenticateAsDevice mints a device token paired with the child saved
// as child_id earlier in the scenario.
func (tc *TestContext) AuthenticateAsDevice(deviceID string) error {
	childID, ok := tc.saved["child_id"]
	if !ok {
		return fmt.Errorf("device %q needs a registered child to pair with", deviceID)
	}
	return tc.mint(map[string]any{"kind": "device", "device_id": deviceID, "child_id": childID})
}

func (tc *TestContext) ClearAuthentication() {
	tc.accessToken = ""
}

func (tc *TestContext) mint(extra map[string]any) error {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": tc.issuer,
		"aud": []string{tc.audience},
		"iat": now.Unix(),
		"exp": now.Add(15 * time.Minute).Unix(),
		"jti": uuid.NewString(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tc.signingKey)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	tc.accessToken = signed
	return nil
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, nil)
}

func (tc *TestContext) POSTWithHeaders(path string, body any, headers map[string]string) error {
	return tc.do(http.MethodPost, path, body, headers)
}

func (tc *TestContext) do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	tc.lastResponse = nil
	if len(tc.lastBody) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var decoded map[string]any
		if err := json.Unmarshal(tc.lastBody, &decoded); err == nil {
			tc.lastResponse = decoded
		}
	}
	return nil
}

// Expand replaces {name} placeholders with values saved earlier in the scenario.
func (tc *TestContext) Expand(s string) string {
	for k, v := range tc.saved {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func (tc *TestContext) Save(name, value string) {
	tc.saved[name] = value
}

func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

// GetResponseField reads a dotted path from the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.lastResponse == nil {
		return nil, fmt.Errorf("last response was not a JSON object: %s", tc.lastBody)
	}
	var cur any = tc.lastResponse
	for _, part := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		cur, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response: %s", field, tc.lastBody)
		}
	}
	return cur, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
