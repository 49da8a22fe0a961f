package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"loothound/internal/app"
	"loothound/internal/game"
	"loothound/internal/records"
)

// Leaderboard paging bounds.
const (
	defaultRecordsStart    = 0
	defaultRecordsMaxItems = 100
	maxRecordsMaxItems     = 100
)

// GameService is the application surface the API needs. The interface
// keeps handlers testable against a stub without the full world.
type GameService interface {
	Maps() []*game.Map
	FindMap(id string) *game.Map
	LootTypes(mapID string) []game.LootType
	JoinGame(name, mapID string) (app.JoinResult, error)
	FindPlayerByToken(token string) *app.Player
	PlayersInSession(p *app.Player) []app.PlayerInfo
	GameState(p *app.Player) app.StateView
	MovePlayer(p *app.Player, cmd string)
	Tick(delta time.Duration)
	Records(ctx context.Context, start, maxItems int) ([]records.Record, error)
}

// handlers holds the endpoint implementations.
type handlers struct {
	app         GameService
	manualTicks bool
}

// Wire shapes. Field order matters for readable pretty-printed output;
// lootTypes pass through exactly as configured.

type mapListItemJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type roadJSON struct {
	X0 int  `json:"x0"`
	Y0 int  `json:"y0"`
	X1 *int `json:"x1,omitempty"`
	Y1 *int `json:"y1,omitempty"`
}

type buildingJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type officeJSON struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	OffsetX int    `json:"offsetX"`
	OffsetY int    `json:"offsetY"`
}

type mapDetailJSON struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Roads     []roadJSON      `json:"roads"`
	Buildings []buildingJSON  `json:"buildings"`
	Offices   []officeJSON    `json:"offices"`
	LootTypes []game.LootType `json:"lootTypes"`
}

type joinRequestJSON struct {
	UserName string `json:"userName"`
	MapID    string `json:"mapId"`
}

type joinResponseJSON struct {
	AuthToken string `json:"authToken"`
	PlayerID  uint64 `json:"playerId"`
}

type playerNameJSON struct {
	Name string `json:"name"`
}

type bagItemJSON struct {
	ID   uint64 `json:"id"`
	Type int    `json:"type"`
}

type dogStateJSON struct {
	Pos   [2]float64    `json:"pos"`
	Speed [2]float64    `json:"speed"`
	Dir   string        `json:"dir"`
	Bag   []bagItemJSON `json:"bag"`
	Score int           `json:"score"`
}

type lootStateJSON struct {
	Type int        `json:"type"`
	Pos  [2]float64 `json:"pos"`
}

type stateResponseJSON struct {
	Players     map[string]dogStateJSON  `json:"players"`
	LostObjects map[string]lootStateJSON `json:"lostObjects"`
}

type actionRequestJSON struct {
	Move *string `json:"move"`
}

type tickRequestJSON struct {
	TimeDelta *int64 `json:"timeDelta"`
}

type recordJSON struct {
	Name     string  `json:"name"`
	Score    int     `json:"score"`
	PlayTime float64 `json:"playTime"`
}

// handleMaps serves the map list.
func (h *handlers) handleMaps(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	maps := h.app.Maps()
	list := make([]mapListItemJSON, 0, len(maps))
	for _, m := range maps {
		list = append(list, mapListItemJSON{ID: m.ID(), Name: m.Name()})
	}
	writeJSON(w, http.StatusOK, list)
}

// handleMapByID serves one full map description.
func (h *handlers) handleMapByID(w http.ResponseWriter, r *http.Request, mapID string) {
	if !allowGet(w, r) {
		return
	}
	m := h.app.FindMap(mapID)
	if m == nil {
		writeError(w, http.StatusNotFound, codeMapNotFound, "Map not found")
		return
	}

	detail := mapDetailJSON{
		ID:        m.ID(),
		Name:      m.Name(),
		Roads:     make([]roadJSON, 0, len(m.Roads())),
		Buildings: make([]buildingJSON, 0, len(m.Buildings())),
		Offices:   make([]officeJSON, 0, len(m.Offices())),
		LootTypes: h.app.LootTypes(mapID),
	}
	if detail.LootTypes == nil {
		detail.LootTypes = []game.LootType{}
	}

	for _, road := range m.Roads() {
		rj := roadJSON{X0: road.Start().X, Y0: road.Start().Y}
		if road.IsHorizontal() {
			x1 := road.End().X
			rj.X1 = &x1
		} else {
			y1 := road.End().Y
			rj.Y1 = &y1
		}
		detail.Roads = append(detail.Roads, rj)
	}
	for _, b := range m.Buildings() {
		detail.Buildings = append(detail.Buildings, buildingJSON{
			X: b.Bounds.Position.X,
			Y: b.Bounds.Position.Y,
			W: b.Bounds.Size.Width,
			H: b.Bounds.Size.Height,
		})
	}
	for _, o := range m.Offices() {
		detail.Offices = append(detail.Offices, officeJSON{
			ID:      o.ID,
			X:       o.Position.X,
			Y:       o.Position.Y,
			OffsetX: o.Offset.DX,
			OffsetY: o.Offset.DY,
		})
	}

	writeJSON(w, http.StatusOK, detail)
}

// handleJoin puts a new player into the game.
func (h *handlers) handleJoin(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}

	var req joinRequestJSON
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "Join game request parse error")
		return
	}
	if req.UserName == "" {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid name")
		return
	}

	result, err := h.app.JoinGame(req.UserName, req.MapID)
	if errors.Is(err, app.ErrMapNotFound) {
		writeError(w, http.StatusNotFound, codeMapNotFound, "Map not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, joinResponseJSON{
		AuthToken: result.Token,
		PlayerID:  result.PlayerID,
	})
}

// handlePlayers lists everyone in the requester's session.
func (h *handlers) handlePlayers(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	player := h.authorize(w, r)
	if player == nil {
		return
	}

	resp := make(map[string]playerNameJSON)
	for _, info := range h.app.PlayersInSession(player) {
		resp[strconv.FormatUint(info.ID, 10)] = playerNameJSON{Name: info.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleState serves the requester's session state: dogs keyed by id
// with position, speed, direction, bag and score, plus the loot on the
// ground.
func (h *handlers) handleState(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	player := h.authorize(w, r)
	if player == nil {
		return
	}

	writeJSON(w, http.StatusOK, stateToJSON(h.app.GameState(player)))
}

// stateToJSON converts a state view into the wire shape shared by the
// state endpoint and the live feed.
func stateToJSON(view app.StateView) stateResponseJSON {
	resp := stateResponseJSON{
		Players:     make(map[string]dogStateJSON, len(view.Dogs)),
		LostObjects: make(map[string]lootStateJSON, len(view.Loot)),
	}
	for _, dog := range view.Dogs {
		ds := dogStateJSON{
			Pos:   dog.Pos,
			Speed: dog.Speed,
			Dir:   dog.Dir,
			Bag:   make([]bagItemJSON, 0, len(dog.Bag)),
			Score: dog.Score,
		}
		for _, item := range dog.Bag {
			ds.Bag = append(ds.Bag, bagItemJSON{ID: item.ID, Type: item.Type})
		}
		resp.Players[strconv.FormatUint(dog.ID, 10)] = ds
	}
	for _, obj := range view.Loot {
		resp.LostObjects[strconv.FormatUint(obj.ID, 10)] = lootStateJSON{
			Type: obj.Type,
			Pos:  obj.Pos,
		}
	}
	return resp
}

// handleAction applies a movement command to the requester's dog. The
// token is validated before the content type, so a bad header always
// answers 401.
func (h *handlers) handleAction(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}
	player := h.authorize(w, r)
	if player == nil {
		return
	}
	if !hasJSONContentType(r) {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid content type")
		return
	}

	var req actionRequestJSON
	if err := decodeBody(r, &req); err != nil || req.Move == nil || !isValidMove(*req.Move) {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "Failed to parse action")
		return
	}

	h.app.MovePlayer(player, *req.Move)
	writeJSON(w, http.StatusOK, struct{}{})
}

// handleTick advances game time by the requested delta. The endpoint
// exists only when the server runs without an automatic tick period.
func (h *handlers) handleTick(w http.ResponseWriter, r *http.Request) {
	if !h.manualTicks {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid endpoint")
		return
	}
	if !allowPost(w, r) {
		return
	}

	var req tickRequestJSON
	if err := decodeBody(r, &req); err != nil || req.TimeDelta == nil || *req.TimeDelta <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "Failed to parse tick request JSON")
		return
	}

	h.app.Tick(time.Duration(*req.TimeDelta) * time.Millisecond)
	writeJSON(w, http.StatusOK, struct{}{})
}

// handleRecords serves a leaderboard page.
func (h *handlers) handleRecords(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	start, ok := queryInt(r, "start", defaultRecordsStart)
	if !ok || start < 0 {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid start parameter")
		return
	}
	maxItems, ok := queryInt(r, "maxItems", defaultRecordsMaxItems)
	if !ok || maxItems < 0 || maxItems > maxRecordsMaxItems {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid maxItems parameter")
		return
	}

	recs, err := h.app.Records(r.Context(), start, maxItems)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeBadRequest, "Failed to read records")
		return
	}

	resp := make([]recordJSON, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, recordJSON{
			Name:     rec.Name,
			Score:    rec.Score,
			PlayTime: rec.PlayTime,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBadRequest answers unmatched /api paths.
func (h *handlers) handleBadRequest(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusBadRequest, codeBadRequest, "Bad request")
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func hasJSONContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.TrimSpace(ct) == "application/json"
}

func isValidMove(move string) bool {
	switch move {
	case game.MoveUp, game.MoveDown, game.MoveLeft, game.MoveRight, game.MoveStop:
		return true
	}
	return false
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
