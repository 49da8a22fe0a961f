package api

import (
	"bytes"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"loothound/internal/app"
	"loothound/internal/game"
	"loothound/internal/records"
)

func newTestApp(t *testing.T) *app.Application {
	t.Helper()

	catalog := game.NewLootCatalog()
	rotation := 90
	catalog.SetTypes("town", []game.LootType{
		{Name: "key", File: "key.obj", Type: "obj", Rotation: &rotation, Scale: 0.03, Value: 10},
		{Name: "wallet", File: "wallet.obj", Type: "obj", Scale: 0.01, Value: 30},
	})

	g := game.New(game.Config{
		LootPeriod:      5 * time.Second,
		LootProbability: 0.5,
		RetirementTime:  time.Minute,
	}, catalog)

	m := game.NewMap("town", "Town", 2.0, false, 2, 3)
	m.AddRoad(game.NewHorizontalRoad(game.Point{X: 0, Y: 0}, 10))
	m.AddRoad(game.NewVerticalRoad(game.Point{X: 5, Y: -3}, 3))
	m.AddBuilding(game.Building{Bounds: game.Rectangle{
		Position: game.Point{X: 1, Y: 1},
		Size:     game.Size{Width: 2, Height: 2},
	}})
	if err := m.AddOffice(game.Office{
		ID:       "o0",
		Position: game.Point{X: 9, Y: 0},
		Offset:   game.Offset{DX: 1, DY: 1},
	}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddMap(m); err != nil {
		t.Fatal(err)
	}

	a := app.New(g, records.NewMemory(), zap.NewNop())
	a.SetTokenGenerator(app.NewTokenGeneratorSeeded(1, 2))
	a.SetRandFactory(func() *rand.Rand {
		return rand.New(rand.NewSource(42))
	})
	return a
}

func newTestServer(t *testing.T, manualTicks bool) (*httptest.Server, *app.Application) {
	t.Helper()
	a := newTestApp(t)
	router := NewRouter(RouterConfig{
		App:            a,
		ManualTicks:    manualTicks,
		DisableLogging: true,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 10000,
			Burst:             10000,
		},
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, a
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, payload
}

func joinPlayer(t *testing.T, ts *httptest.Server, name string) (token string, playerID uint64) {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/join",
		map[string]string{"userName": name, "mapId": "town"},
		map[string]string{"Content-Type": "application/json"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join returned %d: %s", resp.StatusCode, body)
	}
	var join struct {
		AuthToken string `json:"authToken"`
		PlayerID  uint64 `json:"playerId"`
	}
	if err := json.Unmarshal(body, &join); err != nil {
		t.Fatal(err)
	}
	return join.AuthToken, join.PlayerID
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var e struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("error body %q is not JSON: %v", body, err)
	}
	return e.Code
}

func TestMapsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, true)

	t.Run("lists maps with headers", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/maps", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
			t.Errorf("Cache-Control = %q", cc)
		}
		if cl := resp.Header.Get("Content-Length"); cl != strconv.Itoa(len(body)) {
			t.Errorf("Content-Length = %q, body is %d bytes", cl, len(body))
		}
		if !strings.Contains(string(body), "\n    ") {
			t.Error("response is not pretty-printed")
		}

		var maps []map[string]string
		if err := json.Unmarshal(body, &maps); err != nil {
			t.Fatal(err)
		}
		if len(maps) != 1 || maps[0]["id"] != "town" || maps[0]["name"] != "Town" {
			t.Errorf("maps = %v", maps)
		}
	})

	t.Run("map detail includes geometry and loot types", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/maps/town", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var detail struct {
			ID    string `json:"id"`
			Roads []struct {
				X0 int  `json:"x0"`
				Y0 int  `json:"y0"`
				X1 *int `json:"x1"`
				Y1 *int `json:"y1"`
			} `json:"roads"`
			Buildings []map[string]int `json:"buildings"`
			Offices   []struct {
				ID      string `json:"id"`
				OffsetX int    `json:"offsetX"`
			} `json:"offices"`
			LootTypes []map[string]any `json:"lootTypes"`
		}
		if err := json.Unmarshal(body, &detail); err != nil {
			t.Fatal(err)
		}
		if detail.ID != "town" {
			t.Errorf("id = %q", detail.ID)
		}
		if len(detail.Roads) != 2 {
			t.Fatalf("roads = %d, want 2", len(detail.Roads))
		}
		if detail.Roads[0].X1 == nil || *detail.Roads[0].X1 != 10 || detail.Roads[0].Y1 != nil {
			t.Error("horizontal road encoded wrong")
		}
		if detail.Roads[1].Y1 == nil || *detail.Roads[1].Y1 != 3 {
			t.Error("vertical road encoded wrong")
		}
		if len(detail.Buildings) != 1 || detail.Buildings[0]["w"] != 2 {
			t.Errorf("buildings = %v", detail.Buildings)
		}
		if len(detail.Offices) != 1 || detail.Offices[0].OffsetX != 1 {
			t.Errorf("offices = %v", detail.Offices)
		}
		if len(detail.LootTypes) != 2 {
			t.Fatalf("lootTypes = %d, want 2", len(detail.LootTypes))
		}
		if detail.LootTypes[0]["rotation"] != float64(90) {
			t.Errorf("rotation = %v, want 90", detail.LootTypes[0]["rotation"])
		}
		if _, ok := detail.LootTypes[1]["rotation"]; ok {
			t.Error("absent rotation serialized")
		}
	})

	t.Run("unknown map", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/maps/void", nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", resp.StatusCode)
		}
		if errorCode(t, body) != "mapNotFound" {
			t.Errorf("code = %q", errorCode(t, body))
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/maps", nil, nil)
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want 405", resp.StatusCode)
		}
		if allow := resp.Header.Get("Allow"); allow != "GET, HEAD" {
			t.Errorf("Allow = %q, want GET, HEAD", allow)
		}
		if errorCode(t, body) != "invalidMethod" {
			t.Errorf("code = %q", errorCode(t, body))
		}
	})
}

func TestJoinEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, true)

	t.Run("success", func(t *testing.T) {
		token, playerID := joinPlayer(t, ts, "Rex")
		if len(token) != app.TokenLength {
			t.Errorf("token length = %d, want %d", len(token), app.TokenLength)
		}
		if playerID != 0 {
			t.Errorf("playerId = %d, want 0", playerID)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/join",
			map[string]string{"userName": "", "mapId": "town"}, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
		if errorCode(t, body) != "invalidArgument" {
			t.Errorf("code = %q", errorCode(t, body))
		}
	})

	t.Run("unknown map", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/join",
			map[string]string{"userName": "Rex", "mapId": "void"}, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", resp.StatusCode)
		}
		if errorCode(t, body) != "mapNotFound" {
			t.Errorf("code = %q", errorCode(t, body))
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/game/join",
			strings.NewReader("{not json"))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/game/join", nil, nil)
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want 405", resp.StatusCode)
		}
		if allow := resp.Header.Get("Allow"); allow != "POST" {
			t.Errorf("Allow = %q, want POST", allow)
		}
	})
}

func TestAuthorization(t *testing.T) {
	ts, _ := newTestServer(t, true)
	joinPlayer(t, ts, "Rex")

	cases := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", "invalidToken"},
		{"no bearer prefix", strings.Repeat("a", 39), "invalidToken"},
		{"short token", "Bearer abc", "invalidToken"},
		{"uppercase hex", "Bearer " + strings.Repeat("A", 32), "invalidToken"},
		{"unknown token", "Bearer " + strings.Repeat("a", 32), "unknownToken"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{}
			if tc.header != "" {
				headers["Authorization"] = tc.header
			}
			resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/game/players", nil, headers)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", resp.StatusCode)
			}
			if errorCode(t, body) != tc.wantCode {
				t.Errorf("code = %q, want %q", errorCode(t, body), tc.wantCode)
			}
		})
	}
}

func TestPlayersEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, true)
	token, playerID := joinPlayer(t, ts, "Rex")
	joinPlayer(t, ts, "Fido")

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/game/players", nil,
		map[string]string{"Authorization": "Bearer " + token})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var players map[string]struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &players); err != nil {
		t.Fatal(err)
	}
	if len(players) != 2 {
		t.Fatalf("players = %d, want 2", len(players))
	}
	if players[strconv.FormatUint(playerID, 10)].Name != "Rex" {
		t.Errorf("players = %v", players)
	}
}

func TestStateAndActionFlow(t *testing.T) {
	ts, _ := newTestServer(t, true)
	token, _ := joinPlayer(t, ts, "Rex")
	auth := map[string]string{"Authorization": "Bearer " + token}

	t.Run("missing token beats missing content type", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/player/action",
			map[string]string{"move": "R"}, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
		if errorCode(t, body) != "invalidToken" {
			t.Errorf("code = %q, want invalidToken", errorCode(t, body))
		}
	})

	t.Run("action requires JSON content type", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/player/action",
			map[string]string{"move": "R"}, auth)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
		if errorCode(t, body) != "invalidArgument" {
			t.Errorf("code = %q", errorCode(t, body))
		}
	})

	t.Run("action then tick moves the dog", func(t *testing.T) {
		withCT := map[string]string{
			"Authorization": "Bearer " + token,
			"Content-Type":  "application/json",
		}
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/player/action",
			map[string]string{"move": "R"}, withCT)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("action status = %d: %s", resp.StatusCode, body)
		}
		if string(body) != "{}" {
			t.Errorf("action body = %q, want {}", body)
		}

		resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/tick",
			map[string]int{"timeDelta": 1000}, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("tick status = %d", resp.StatusCode)
		}

		resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/game/state", nil, auth)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("state status = %d", resp.StatusCode)
		}
		var state struct {
			Players map[string]struct {
				Pos   [2]float64 `json:"pos"`
				Speed [2]float64 `json:"speed"`
				Dir   string     `json:"dir"`
				Bag   []any      `json:"bag"`
				Score int        `json:"score"`
			} `json:"players"`
			LostObjects map[string]struct {
				Type int        `json:"type"`
				Pos  [2]float64 `json:"pos"`
			} `json:"lostObjects"`
		}
		if err := json.Unmarshal(body, &state); err != nil {
			t.Fatal(err)
		}
		if len(state.Players) != 1 {
			t.Fatalf("state players = %d, want 1", len(state.Players))
		}
		for _, dog := range state.Players {
			if dog.Pos[0] != 2.0 {
				t.Errorf("dog x = %v, want 2 after 1s at speed 2", dog.Pos[0])
			}
			if dog.Dir != "R" {
				t.Errorf("dir = %q, want R", dog.Dir)
			}
			if dog.Bag == nil {
				t.Error("bag missing from state")
			}
		}
	})

	t.Run("invalid move command", func(t *testing.T) {
		withCT := map[string]string{
			"Authorization": "Bearer " + token,
			"Content-Type":  "application/json",
		}
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/player/action",
			map[string]string{"move": "X"}, withCT)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
		if errorCode(t, body) != "invalidArgument" {
			t.Errorf("code = %q", errorCode(t, body))
		}
	})
}

func TestTickEndpoint(t *testing.T) {
	t.Run("manual mode accepts ticks", func(t *testing.T) {
		ts, _ := newTestServer(t, true)
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/tick",
			map[string]int{"timeDelta": 500}, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d: %s", resp.StatusCode, body)
		}
	})

	t.Run("missing timeDelta", func(t *testing.T) {
		ts, _ := newTestServer(t, true)
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/tick",
			map[string]string{}, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if errorCode(t, body) != "invalidArgument" {
			t.Errorf("code = %q", errorCode(t, body))
		}
	})

	t.Run("disabled with automatic ticks", func(t *testing.T) {
		ts, _ := newTestServer(t, false)
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/tick",
			map[string]int{"timeDelta": 500}, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
		if errorCode(t, body) != "badRequest" {
			t.Errorf("code = %q, want badRequest", errorCode(t, body))
		}

		// Even a GET answers 400, not 405: the endpoint does not exist
		// in this mode.
		resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/game/tick", nil, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestRecordsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, true)

	t.Run("empty leaderboard", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/game/records", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if strings.TrimSpace(string(body)) != "[]" {
			t.Errorf("body = %q, want []", body)
		}
	})

	t.Run("maxItems over the limit", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/game/records?maxItems=101", nil, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
		if errorCode(t, body) != "invalidArgument" {
			t.Errorf("code = %q", errorCode(t, body))
		}
	})

	t.Run("non-numeric start", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/game/records?start=abc", nil, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestUnmatchedAPIPath(t *testing.T) {
	ts, _ := newTestServer(t, true)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/nothing", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if errorCode(t, body) != "badRequest" {
		t.Errorf("code = %q, want badRequest", errorCode(t, body))
	}
}
