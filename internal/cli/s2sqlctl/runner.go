package s2sqlctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("s2sqlctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "s2sql API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 90*time.Second), "HTTP timeout (e.g. 90s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	method := ""
	path := ""
	var body []byte
	switch command {
	case "health":
		method, path = http.MethodGet, "/v1/health"
	case "ready":
		method, path = http.MethodGet, "/v1/ready"
	case "datasets":
		method, path = http.MethodGet, "/v1/datasets"
	case "flush-exemplars":
		method, path = http.MethodPost, "/v1/exemplars/flush"
	case "parse":
		payload, err := parseBody(fs.Args()[1:], defaults.Stdin, stderr)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "parse: %v\n", err)
			return 2
		}
		method, path, body = http.MethodPost, "/v1/parse", payload
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, *apiKey, body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

// parseBody builds the turn payload from -file (or "-" for stdin), or from
// -query and -data-set for a quick single data set turn.
func parseBody(args []string, stdin io.Reader, stderr io.Writer) ([]byte, error) {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "JSON turn file, or - for stdin")
	query := fs.String("query", "", "query text")
	dataSetID := fs.Int64("data-set", 0, "data set id")
	text2SQLType := fs.String("type", "", "text2sql type (ONLY_RULE, ONLY_LLM, RULE_AND_LLM, NONE)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch {
	case *file != "" && *query != "":
		return nil, fmt.Errorf("specify only one of -file or -query")
	case *file == "-":
		if stdin == nil {
			return nil, fmt.Errorf("stdin is not available")
		}
		return readJSON(stdin)
	case *file != "":
		f, err := os.Open(*file)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return readJSON(f)
	case strings.TrimSpace(*query) != "":
		payload := map[string]any{"query_text": *query}
		if *dataSetID > 0 {
			payload["data_set_ids"] = []int64{*dataSetID}
		}
		if *text2SQLType != "" {
			payload["text2sql_type"] = *text2SQLType
		}
		return json.Marshal(payload)
	default:
		return nil, fmt.Errorf("one of -file or -query is required")
	}
}

func readJSON(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("turn is not valid JSON")
	}
	return raw, nil
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: s2sqlctl [flags] <command>")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health            GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready             GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  datasets          GET /v1/datasets")
	_, _ = fmt.Fprintln(w, "  parse             POST /v1/parse (-file turn.json | -query text [-data-set id] [-type t])")
	_, _ = fmt.Fprintln(w, "  flush-exemplars   POST /v1/exemplars/flush")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
