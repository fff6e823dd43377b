package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/cellblock/internal/engine"
)

func fakeAPI(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		var req wireRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, model, req.Model)
		assert.Len(t, req.Messages, 1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"text":` + string(must(json.Marshal(reply))) + `}],"usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func must(b []byte, err error) []byte {
	if err != nil {
		panic(err)
	}
	return b
}

func TestAskAndQuota(t *testing.T) {
	srv := fakeAPI(t, "The yard went quiet.")
	c := NewClient("secret", 1)
	c.endpoint = srv.URL
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.quota.now = func() time.Time { return now }

	reply, err := c.Ask(context.Background(), Prompt{System: "sys", User: "hello", MaxTokens: 50})
	require.NoError(t, err)
	assert.Equal(t, "The yard went quiet.", reply.Text)
	assert.Equal(t, 10, reply.InputTokens)
	assert.Equal(t, 5, reply.OutputTokens)

	_, err = c.Ask(context.Background(), Prompt{User: "again"})
	assert.ErrorIs(t, err, ErrRateLimited)

	now = now.Add(time.Minute)
	_, err = c.Ask(context.Background(), Prompt{User: "next window"})
	assert.NoError(t, err)
}

func TestAskAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := NewClient("secret", 0)
	c.endpoint = srv.URL

	_, err := c.Ask(context.Background(), Prompt{User: "x", MaxTokens: 10})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)

	_, err = c.Ask(context.Background(), Prompt{})
	assert.ErrorContains(t, err, "empty prompt")
}

func TestEventPrompt(t *testing.T) {
	p := eventPrompt(engine.Event{Category: engine.CatDeath, Tick: 12, GangID: "kings", Description: "Bo killed Dee"}, "two crews")
	assert.Equal(t, narratorSystem, p.System)
	assert.Equal(t, 250, p.MaxTokens)
	assert.Contains(t, p.User, "The block right now: two crews")
	assert.Contains(t, p.User, "tick 12): Bo killed Dee")
	assert.Contains(t, p.User, "Crew involved: kings")

	p = eventPrompt(engine.Event{Category: engine.CatSuccession, Description: "Fay took over"}, "")
	assert.Equal(t, 150, p.MaxTokens)
	assert.NotContains(t, p.User, "The block right now")
}

func TestDisabledClient(t *testing.T) {
	c := NewClient("", 5)
	assert.Nil(t, c)
	assert.False(t, c.Enabled())

	_, err := NarrateEvent(context.Background(), c, engine.Event{Description: "x"}, "")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNarrateEvent(t *testing.T) {
	srv := fakeAPI(t, "Dee went down by the weight pile.")
	c := NewClient("secret", 5)
	c.endpoint = srv.URL

	out, err := NarrateEvent(context.Background(), c, engine.Event{Category: engine.CatDeath, Description: "Bo killed Dee"}, "two crews")
	require.NoError(t, err)
	assert.Equal(t, "Dee went down by the weight pile.", out)
}

func TestNotable(t *testing.T) {
	assert.True(t, Notable(engine.Event{Category: engine.CatDeath}))
	assert.True(t, Notable(engine.Event{Category: engine.CatMerger}))
	assert.False(t, Notable(engine.Event{Category: engine.CatLoyalty}))
}

func TestFallbackBulletin(t *testing.T) {
	s := yard(t)
	data := BuildBulletinData(s, []engine.Event{
		{Category: engine.CatDeath, Description: "Bo killed Dee"},
		{Category: engine.CatBribe, Description: "Ana paid off a guard"},
		{Category: engine.CatWorld, Description: "lockdown"},
		{Category: engine.CatLoyalty, Description: "ignored"},
	})
	assert.Equal(t, []string{"Bo killed Dee"}, data.Deaths)
	assert.Equal(t, []string{"Ana paid off a guard"}, data.Economy)
	assert.Len(t, data.Gangs, 2)

	b := GenerateBulletin(context.Background(), nil, data)
	assert.Contains(t, b.Content, "THE YARD SHEET")
	assert.Contains(t, b.Content, "Iron Saints: 3 members, 50% of the yard, $500")
	assert.Contains(t, b.Content, "OBITUARIES\n- Bo killed Dee")
	assert.NotContains(t, b.Content, "ignored")
}
