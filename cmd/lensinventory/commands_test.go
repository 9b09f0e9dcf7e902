package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"LensInventory/internal/domain"
)

const analysisJSON = `{
  "product_information": {"product_name": "Canon EOS 80D", "condition": "like new"},
  "market_analysis": {"price_range": {"min": 499, "max": 799, "average": 649}, "market_categories": ["camera"],
    "competition_analysis": {"price_competitiveness": "competitive"}},
  "technical_details": {"specifications": ["24.2 MP sensor"], "features": ["Wi-Fi"]}
}`

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LENS_INVENTORY_CONFIG", "DATABASE_DSN", "DETECTION_ENDPOINT", "SERPAPI_API_KEY",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out, strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenerateFromStdin(t *testing.T) {
	isolateEnv(t)

	out, err := run(t, analysisJSON, "generate", "--platform", "instagram,facebook")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var res domain.GenerationResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(res.Platforms) != 2 || res.Platforms[0].Platform != "instagram" {
		t.Fatalf("platforms = %+v", res.Platforms)
	}
	if res.Draft.Title != "Canon EOS 80D | like new | Competitive Price" {
		t.Fatalf("draft title = %q", res.Draft.Title)
	}
}

func TestGenerateMissingField(t *testing.T) {
	isolateEnv(t)

	_, err := run(t, `{"product_information": {"product_name": "x", "condition": "good"}}`, "generate")
	if !domain.IsMissingField(err) {
		t.Fatalf("err = %v; want missing field", err)
	}

	if _, err := run(t, `not json`, "generate"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestPlatforms(t *testing.T) {
	isolateEnv(t)

	out, err := run(t, "", "platforms")
	if err != nil {
		t.Fatalf("platforms: %v", err)
	}
	for _, want := range []string{"ID", "facebook", "instagram", "hashtag_groups,story_format", "leboncoin"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output lacks %q:\n%s", want, out)
		}
	}
}
