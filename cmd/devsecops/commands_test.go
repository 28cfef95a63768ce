package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/devsecops-visualizer/internal/config"
	"github.com/jonathan/devsecops-visualizer/internal/pipeline"
	"github.com/jonathan/devsecops-visualizer/internal/server"
	"github.com/jonathan/devsecops-visualizer/internal/sre"
	"github.com/jonathan/devsecops-visualizer/internal/types"
)

// offline clears every credential so that assistant commands answer offline.
func offline(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENROUTER_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
		"LLM_PROVIDER", "LLM_MODEL", "LLM_BASE_URL", "DATABASE_URL",
		"PIPELINE_STEP_DELAY", "PIPELINE_SUCCESS_PROBABILITY",
	} {
		t.Setenv(key, "")
	}
}

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// fakeProvider serves an OpenAI-compatible completion and records the last request.
func fakeProvider(t *testing.T, answer string) *[]map[string]any {
	t.Helper()
	var requests []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		requests = append(requests, body)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": answer}}},
		})
	}))
	t.Cleanup(srv.Close)

	t.Setenv("LLM_BASE_URL", srv.URL)
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	return &requests
}

func TestStagesCommand(t *testing.T) {
	offline(t)

	t.Run("lists the catalog", func(t *testing.T) {
		out, err := execute(t, "", "stages")
		require.NoError(t, err)
		assert.Contains(t, out, "PIPELINE STAGES (16)")
		assert.Contains(t, out, "code-commit")
		assert.Contains(t, out, "rollback")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "", "stages", "--json")
		require.NoError(t, err)
		var stages []types.Stage
		require.NoError(t, json.Unmarshal([]byte(out), &stages))
		require.Len(t, stages, 16)
		assert.Equal(t, "code-commit", stages[0].ID)
	})

	t.Run("one stage", func(t *testing.T) {
		out, err := execute(t, "", "stages", "deploy-aks", "--json")
		require.NoError(t, err)
		var stage types.Stage
		require.NoError(t, json.Unmarshal([]byte(out), &stage))
		assert.Equal(t, "deploy-aks", stage.ID)
	})

	t.Run("unknown stage", func(t *testing.T) {
		_, err := execute(t, "", "stages", "nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stage not found")
	})
}

func TestIncidentsCommand(t *testing.T) {
	offline(t)

	t.Run("lists all incidents", func(t *testing.T) {
		out, err := execute(t, "", "incidents")
		require.NoError(t, err)
		assert.Contains(t, out, "INCIDENTS (8)")
	})

	t.Run("filters by stage", func(t *testing.T) {
		out, err := execute(t, "", "incidents", "--stage", "deploy-aks", "--json")
		require.NoError(t, err)
		var incidents []types.Incident
		require.NoError(t, json.Unmarshal([]byte(out), &incidents))
		ids := make([]string, 0, len(incidents))
		for _, inc := range incidents {
			ids = append(ids, inc.ID)
		}
		assert.ElementsMatch(t, []string{"INC-001", "INC-008"}, ids)
	})

	t.Run("unknown stage filter", func(t *testing.T) {
		_, err := execute(t, "", "incidents", "--stage", "nope")
		require.Error(t, err)
	})

	t.Run("rca requires an id", func(t *testing.T) {
		_, err := execute(t, "", "incidents", "--rca")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--rca requires an incident id")
	})

	t.Run("unknown incident", func(t *testing.T) {
		_, err := execute(t, "", "incidents", "INC-999")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "incident not found")
	})

	t.Run("offline rca uses the recorded analysis", func(t *testing.T) {
		out, err := execute(t, "", "incidents", "INC-001", "--rca", "--json")
		require.NoError(t, err)
		var rca sre.RCA
		require.NoError(t, json.Unmarshal([]byte(out), &rca))
		assert.Equal(t, "INC-001", rca.IncidentID)
		assert.Equal(t, sre.SourceDataset, rca.Source)
		assert.NotEmpty(t, rca.RootCause)
	})

	t.Run("rca from the model", func(t *testing.T) {
		fakeProvider(t, `{"root_cause":"bad probe","resolution":["fix probe"],"prevention":["test probes"]}`)
		out, err := execute(t, "", "incidents", "INC-001", "--rca")
		require.NoError(t, err)
		assert.Contains(t, out, "ROOT CAUSE ANALYSIS INC-001")
		assert.Contains(t, out, "Root cause: bad probe")
		assert.Contains(t, out, "Source: ai")
	})
}

func TestRunCommand(t *testing.T) {
	offline(t)

	t.Run("all stages pass", func(t *testing.T) {
		out, err := execute(t, "", "run", "--probability", "1", "--delay", "0s", "--json")
		require.NoError(t, err)
		var result pipeline.Result
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, pipeline.OutcomeSucceeded, result.Outcome)
		assert.Len(t, result.Statuses, 16)
		assert.Equal(t, 16, result.Statuses.Count(pipeline.StatusSuccess))
	})

	t.Run("first stage fails", func(t *testing.T) {
		out, err := execute(t, "", "run", "--probability", "0", "--delay", "0s", "--json")
		require.NoError(t, err)
		var result pipeline.Result
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, pipeline.OutcomeFailed, result.Outcome)
		assert.Equal(t, "code-commit", result.FailedStage)
		assert.Equal(t, pipeline.StatusFailed, result.Statuses["code-commit"])
	})

	t.Run("same seed same outcome", func(t *testing.T) {
		args := []string{"run", "--seed", "42", "--probability", "0.7", "--delay", "0s", "--json"}
		first, err := execute(t, "", args...)
		require.NoError(t, err)
		second, err := execute(t, "", args...)
		require.NoError(t, err)

		var a, b pipeline.Result
		require.NoError(t, json.Unmarshal([]byte(first), &a))
		require.NoError(t, json.Unmarshal([]byte(second), &b))
		assert.Equal(t, a.Outcome, b.Outcome)
		assert.Equal(t, a.FailedStage, b.FailedStage)
		assert.Equal(t, a.Statuses, b.Statuses)
	})

	t.Run("prints progress and summary", func(t *testing.T) {
		out, err := execute(t, "", "run", "--probability", "1", "--delay", "0s")
		require.NoError(t, err)
		assert.Contains(t, out, "PIPELINE RUN ")
		assert.Contains(t, out, "Outcome:  succeeded")
		assert.Contains(t, out, "✓")
	})

	t.Run("invalid probability", func(t *testing.T) {
		_, err := execute(t, "", "run", "--probability", "1.5", "--delay", "0s")
		require.Error(t, err)
	})
}

func TestAskCommand(t *testing.T) {
	t.Run("offline question fails with missing credential", func(t *testing.T) {
		offline(t)
		out, err := execute(t, "", "ask", "What", "is", "SAST?")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing_credential")
		assert.Contains(t, out, "(error: missing_credential)")
	})

	t.Run("empty question is rejected", func(t *testing.T) {
		offline(t)
		_, err := execute(t, "", "ask")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid question")
	})

	t.Run("unknown stage", func(t *testing.T) {
		offline(t)
		_, err := execute(t, "", "ask", "--stage", "nope", "why?")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stage not found")
	})

	t.Run("stage question reaches the model with context", func(t *testing.T) {
		offline(t)
		requests := fakeProvider(t, "Trivy scans images for CVEs.")
		out, err := execute(t, "", "ask", "--stage", "container-scan", "What does this stage do?")
		require.NoError(t, err)
		assert.Contains(t, out, "STAGE ASSISTANT")
		assert.Contains(t, out, "Trivy scans images for CVEs.")

		require.Len(t, *requests, 1)
		raw, err := json.Marshal((*requests)[0])
		require.NoError(t, err)
		assert.Contains(t, string(raw), "What does this stage do?")
	})

	t.Run("quick interview question", func(t *testing.T) {
		offline(t)
		requests := fakeProvider(t, "Here are some questions.")
		out, err := execute(t, "", "ask", "--quick", "interview", "--stage", "build")
		require.NoError(t, err)
		assert.Contains(t, out, "INTERVIEW ASSISTANT")
		require.Len(t, *requests, 1)
	})

	t.Run("incident question answers offline", func(t *testing.T) {
		offline(t)
		out, err := execute(t, "", "ask", "--incident", "INC-001", "what", "is", "the", "root", "cause?")
		require.NoError(t, err)
		assert.Contains(t, out, "SRE INC-001 (heuristic)")
		assert.Contains(t, out, "Root cause (quick):")
	})

	t.Run("incident question needs text", func(t *testing.T) {
		offline(t)
		_, err := execute(t, "", "ask", "--incident", "INC-001")
		require.Error(t, err)
	})
}

func TestHashPasswordCommand(t *testing.T) {
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("PASSWORD_PEPPER", "")

	verify := func(t *testing.T, password, out string) {
		t.Helper()
		pc := &config.PasswordConfig{BcryptCost: 4}
		assert.True(t, pc.VerifyPassword(password, strings.TrimSpace(out)))
	}

	t.Run("from argument", func(t *testing.T) {
		out, err := execute(t, "", "hash-password", "s3cret-operator")
		require.NoError(t, err)
		verify(t, "s3cret-operator", out)
	})

	t.Run("from stdin", func(t *testing.T) {
		out, err := execute(t, "piped-password\n", "hash-password")
		require.NoError(t, err)
		verify(t, "piped-password", out)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := execute(t, "", "hash-password")
		require.Error(t, err)
	})
}

func TestTokenCommand(t *testing.T) {
	t.Run("requires a secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := execute(t, "", "token")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("issues a valid token", func(t *testing.T) {
		secret := "a-test-secret-that-is-long-enough-for-hs256"
		t.Setenv("JWT_SECRET", secret)
		t.Setenv("JWT_EXPIRATION_HOURS", "")

		out, err := execute(t, "", "token", "--subject", "ci-bot")
		require.NoError(t, err)

		jwtCfg, err := config.NewJWTConfig()
		require.NoError(t, err)
		claims, err := server.NewJWTService(jwtCfg).ValidateToken(strings.TrimSpace(out))
		require.NoError(t, err)
		assert.Equal(t, "ci-bot", claims.Subject)
	})
}
