package main

import (
	"os"
	"testing"
)

// Settings that loadConfig picks up from the environment. A developer's
// shell or .env must not leak into command tests.
var configEnv = []string{
	"LLM_PROVIDER", "GEMINI_API_KEY", "OPENAI_API_KEY", "LLM_BASE_URL",
	"LLM_MODEL_LITE", "LLM_MODEL_STANDARD", "LLM_MODEL_ADVANCED",
	"DATABASE_URL", "LOCAL_DB", "REDIS_URL", "REVIEW_LOCK_TTL",
	"ARCHIVE_BUCKET", "ARCHIVE_ENDPOINT", "ARCHIVE_REGION", "ARCHIVE_ACCESS_KEY", "ARCHIVE_SECRET_KEY",
}

func TestMain(m *testing.M) {
	for _, key := range configEnv {
		os.Unsetenv(key)
	}
	configPath = ""
	os.Exit(m.Run())
}
